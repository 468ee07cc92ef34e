// Package repository declares the storage interfaces the service layer
// programs against. The sqlite subpackage implements them; tests substitute
// in-memory mocks.
//
// LOOKUP SEMANTICS:
// Get*/List* methods report absence as (nil, nil) — "no such row" is a normal
// outcome, not an error. Mutations (Update*, Set*, Delete*, Reorder*) return
// apperror.ErrNotFound when their target row doesn't exist, and
// apperror.ErrConflict on uniqueness violations. Anything else is a real
// storage failure.
//
// The by-id lookups carry entity-prefixed names (GetUserByID, GetWebsiteByID)
// so a single concrete store can implement both interfaces.
package repository

import (
	"context"

	"github.com/mrahman/sitebuilder/internal/model"
)

// PageOptions selects one page of a listing. Page is 1-indexed;
// the store computes offset = (Page-1) * PageSize.
type PageOptions struct {
	Page     int
	PageSize int
}

// SectionOrder is one entry of a reorder request.
type SectionOrder struct {
	ID    string `json:"id" validate:"required"`
	Order int    `json:"order"`
}

// UserStore persists accounts and password-reset tokens.
type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByGitHubID(ctx context.Context, githubID int64) (*model.User, error)
	Update(ctx context.Context, user *model.User) error
	UpdatePassword(ctx context.Context, userID, passwordHash string) error

	CreateResetToken(ctx context.Context, token *model.PasswordResetToken) error
	GetResetToken(ctx context.Context, token string) (*model.PasswordResetToken, error)
	DeleteResetToken(ctx context.Context, token string) error
}

// WebsiteStore persists the website aggregate.
//
// Multi-row writes (CreateWithDefaults, UpsertTexts, ReorderSections,
// SetPasswordProtection) are transactional inside the store: they either
// fully apply or leave nothing behind.
type WebsiteStore interface {
	// CreateWithDefaults inserts the website plus its template-derived
	// sections, texts, and images in one transaction.
	CreateWithDefaults(ctx context.Context, site *model.Website,
		sections []model.WebsiteSection, texts []model.TextField, images []model.Image) error

	GetWebsiteByID(ctx context.Context, id string) (*model.Website, error)
	GetDetails(ctx context.Context, id string) (*model.WebsiteDetails, error)
	ListByUser(ctx context.Context, userID string, opts PageOptions) ([]model.WebsiteSummary, error)
	CountByUser(ctx context.Context, userID string) (int, error)

	UpdateTitle(ctx context.Context, id, title string) error
	UpdateTemplate(ctx context.Context, id, template string) error
	SetPublished(ctx context.Context, id string, published bool) error
	// SetPasswordProtection writes the flag and the (possibly empty) hash
	// atomically; disabling always clears the hash.
	SetPasswordProtection(ctx context.Context, id string, protected bool, passwordHash string) error

	// UpsertTexts applies {key, content} pairs by (websiteID, key) — update
	// when the key exists, insert otherwise — and touches the website's
	// updated_at, all in one transaction.
	UpsertTexts(ctx context.Context, websiteID string, texts []model.TextField) error

	GetSection(ctx context.Context, sectionID string) (*model.WebsiteSection, error)
	SetSectionEnabled(ctx context.Context, sectionID string, enabled bool) (*model.WebsiteSection, error)
	// ReorderSections applies all {id, order} pairs in one transaction and
	// returns the website's sections in their new order.
	ReorderSections(ctx context.Context, websiteID string, orders []SectionOrder) ([]model.WebsiteSection, error)
}
