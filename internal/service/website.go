// Package service contains the domain action layer.
//
// Every action follows the same discipline, in order:
//
//	validate input      → apperror.ErrValidation before any I/O
//	authenticate caller → apperror.ErrUnauthorized (no store writes happen)
//	authorize ownership → apperror.ErrForbidden when the caller isn't the owner
//	store operations    → single statements, or one transaction for multi-row writes
//	cache invalidation  → every dependent cached view is dropped after a write
//
// Services accept primitives and input structs, never HTTP types, and return
// domain errors, never status codes. The handler layer does the translation
// both ways.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mrahman/sitebuilder/internal/apperror"
	"github.com/mrahman/sitebuilder/internal/auth"
	"github.com/mrahman/sitebuilder/internal/cache"
	"github.com/mrahman/sitebuilder/internal/catalog"
	"github.com/mrahman/sitebuilder/internal/model"
	"github.com/mrahman/sitebuilder/internal/repository"
	"github.com/mrahman/sitebuilder/internal/validate"
)

const (
	MaxTitleLength  = 100
	DefaultPageSize = 10
	MaxPageSize     = 50
)

// WebsiteService orchestrates the website lifecycle.
type WebsiteService struct {
	websites  repository.WebsiteStore
	passwords *auth.PasswordService
	validator *validate.Validator
	cache     cache.Invalidator
	logger    *slog.Logger
}

func NewWebsiteService(
	websites repository.WebsiteStore,
	passwords *auth.PasswordService,
	validator *validate.Validator,
	invalidator cache.Invalidator,
	logger *slog.Logger,
) *WebsiteService {
	return &WebsiteService{
		websites:  websites,
		passwords: passwords,
		validator: validator,
		cache:     invalidator,
		logger:    logger,
	}
}

// CreateWebsiteInput is the input bag for Create.
type CreateWebsiteInput struct {
	Title    string `json:"title"    validate:"required,max=100"`
	Template string `json:"template" validate:"required"`
}

// TextInput is one {key, content} pair of a text update.
type TextInput struct {
	Key     string `json:"key" validate:"required"`
	Content string `json:"content"`
}

// PasswordProtectionInput toggles site password protection.
// Password is only consulted when enabling.
type PasswordProtectionInput struct {
	Protected bool   `json:"passwordProtected"`
	Password  string `json:"password"`
}

// Create builds a new website from a catalog template: the website row plus
// the template's default sections, text fields, and images, inserted in one
// transaction, then re-read as a full aggregate. Any failure mid-way leaves
// no partial website visible.
func (s *WebsiteService) Create(ctx context.Context, callerID string, input CreateWebsiteInput) (*model.WebsiteDetails, error) {
	input.Title = strings.TrimSpace(input.Title)
	if err := s.validator.Struct(input); err != nil {
		return nil, err
	}

	if callerID == "" {
		return nil, apperror.Unauthorized("you must be logged in to create a website")
	}

	tmpl, ok := catalog.GetTemplateByID(input.Template)
	if !ok {
		return nil, apperror.ValidationFailed("template", "invalid template selected")
	}

	site := &model.Website{
		Title:    input.Title,
		Template: tmpl.ID,
		UserID:   callerID,
	}

	sections := make([]model.WebsiteSection, 0, len(tmpl.Sections))
	for _, def := range catalog.GetDefaultSections(tmpl.ID) {
		sections = append(sections, model.WebsiteSection{
			Type:    def.Type,
			Title:   def.Title,
			Enabled: def.DefaultEnabled,
			Order:   def.Order,
		})
	}

	defaultTexts := catalog.DefaultTexts(tmpl.ID)
	texts := make([]model.TextField, 0, len(defaultTexts))
	for key, content := range defaultTexts {
		texts = append(texts, model.TextField{Key: key, Content: content})
	}

	images := make([]model.Image, 0, len(tmpl.DefaultImages))
	for altKey, url := range tmpl.DefaultImages {
		alt := altKey
		images = append(images, model.Image{URL: url, AltText: &alt})
	}

	if err := s.websites.CreateWithDefaults(ctx, site, sections, texts, images); err != nil {
		s.logger.Error("failed to create website",
			slog.String("userID", callerID),
			slog.String("template", tmpl.ID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating website: %w", err)
	}

	details, err := s.websites.GetDetails(ctx, site.ID)
	if err != nil {
		return nil, fmt.Errorf("reading created website: %w", err)
	}
	if details == nil {
		return nil, apperror.Internal(nil, "created website could not be read back")
	}

	s.logger.Info("website created",
		slog.String("id", site.ID),
		slog.String("userID", callerID),
		slog.String("template", tmpl.ID),
	)

	s.invalidate("/dashboard")
	return details, nil
}

// GetWithDetails returns the caller's website with sections, texts, and
// images loaded.
func (s *WebsiteService) GetWithDetails(ctx context.Context, callerID, websiteID string) (*model.WebsiteDetails, error) {
	if websiteID = strings.TrimSpace(websiteID); websiteID == "" {
		return nil, apperror.ValidationFailed("id", "website ID is required")
	}
	if callerID == "" {
		return nil, apperror.Unauthorized("you must be logged in to view this website")
	}

	details, err := s.websites.GetDetails(ctx, websiteID)
	if err != nil {
		return nil, fmt.Errorf("getting website %s: %w", websiteID, err)
	}
	if details == nil || details.UserID != callerID {
		// Hide other users' sites behind the same 404 the original used for
		// its owner-scoped lookup — existence is not leaked to non-owners.
		return nil, apperror.NotFound("website", websiteID)
	}

	return details, nil
}

// ListForUser returns one page of the caller's websites, newest first, each
// with a preview image when one exists.
func (s *WebsiteService) ListForUser(ctx context.Context, callerID string, opts repository.PageOptions) ([]model.WebsiteSummary, int, error) {
	if callerID == "" {
		return nil, 0, apperror.Unauthorized("you must be logged in to view your websites")
	}

	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.PageSize < 1 {
		opts.PageSize = DefaultPageSize
	}
	if opts.PageSize > MaxPageSize {
		opts.PageSize = MaxPageSize
	}

	sites, err := s.websites.ListByUser(ctx, callerID, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("listing websites: %w", err)
	}
	total, err := s.websites.CountByUser(ctx, callerID)
	if err != nil {
		return nil, 0, fmt.Errorf("counting websites: %w", err)
	}

	return sites, total, nil
}

// UpdateTitle renames the caller's website.
func (s *WebsiteService) UpdateTitle(ctx context.Context, callerID, websiteID, title string) error {
	title = strings.TrimSpace(title)
	if websiteID == "" {
		return apperror.ValidationFailed("id", "website ID is required")
	}
	if title == "" {
		return apperror.ValidationFailed("title", "website title is required")
	}
	if len(title) > MaxTitleLength {
		return apperror.ValidationFailed("title",
			fmt.Sprintf("website title must be %d characters or less", MaxTitleLength))
	}

	if _, err := s.requireOwner(ctx, callerID, websiteID); err != nil {
		return err
	}

	if err := s.websites.UpdateTitle(ctx, websiteID, title); err != nil {
		return fmt.Errorf("updating title of website %s: %w", websiteID, err)
	}

	s.invalidate("/dashboard", "/dashboard/edit/"+websiteID, "/sites/"+websiteID)
	return nil
}

// UpdateTemplate switches the caller's website to another catalog template.
// Existing sections and texts are kept — the template only drives rendering
// and future defaults.
func (s *WebsiteService) UpdateTemplate(ctx context.Context, callerID, websiteID, template string) error {
	if websiteID == "" {
		return apperror.ValidationFailed("id", "website ID is required")
	}
	if template == "" {
		return apperror.ValidationFailed("template", "template selection is required")
	}
	if _, ok := catalog.GetTemplateByID(template); !ok {
		return apperror.ValidationFailed("template", "invalid template selected")
	}

	if _, err := s.requireOwner(ctx, callerID, websiteID); err != nil {
		return err
	}

	if err := s.websites.UpdateTemplate(ctx, websiteID, template); err != nil {
		return fmt.Errorf("updating template of website %s: %w", websiteID, err)
	}

	s.invalidate("/dashboard", "/dashboard/edit/"+websiteID,
		"/dashboard/preview/"+websiteID, "/sites/"+websiteID)
	return nil
}

// Publish moves the website between Draft and Published.
func (s *WebsiteService) Publish(ctx context.Context, callerID, websiteID string, published bool) error {
	if websiteID == "" {
		return apperror.ValidationFailed("id", "website ID is required")
	}

	if _, err := s.requireOwner(ctx, callerID, websiteID); err != nil {
		return err
	}

	if err := s.websites.SetPublished(ctx, websiteID, published); err != nil {
		return fmt.Errorf("publishing website %s: %w", websiteID, err)
	}

	s.logger.Info("website publish state changed",
		slog.String("id", websiteID),
		slog.Bool("published", published),
	)

	s.invalidate("/dashboard", "/dashboard/edit/"+websiteID, "/sites/"+websiteID)
	return nil
}

// UpdatePasswordProtection enables or disables the site password.
// Enabling requires a non-empty password, which is stored only as a bcrypt
// hash; disabling clears the stored hash. Flag and hash are written in one
// transaction.
func (s *WebsiteService) UpdatePasswordProtection(ctx context.Context, callerID, websiteID string, input PasswordProtectionInput) error {
	if websiteID == "" {
		return apperror.ValidationFailed("id", "website ID is required")
	}
	if input.Protected && strings.TrimSpace(input.Password) == "" {
		return apperror.ValidationFailed("password",
			"password is required when enabling password protection")
	}

	if _, err := s.requireOwner(ctx, callerID, websiteID); err != nil {
		return err
	}

	var hash string
	if input.Protected {
		var err error
		hash, err = s.passwords.Hash(input.Password)
		if err != nil {
			return fmt.Errorf("hashing site password: %w", err)
		}
	}

	if err := s.websites.SetPasswordProtection(ctx, websiteID, input.Protected, hash); err != nil {
		return fmt.Errorf("updating password protection of website %s: %w", websiteID, err)
	}

	s.invalidate("/dashboard", "/dashboard/manage/"+websiteID,
		"/dashboard/edit/"+websiteID, "/sites/"+websiteID)
	return nil
}

// UpdateTexts upserts the submitted {key, content} pairs by (websiteID, key)
// and touches the website's updated_at. The whole batch is one transaction —
// either every field applies or none do.
func (s *WebsiteService) UpdateTexts(ctx context.Context, callerID, websiteID string, texts []TextInput) error {
	if websiteID == "" {
		return apperror.ValidationFailed("id", "website ID is required")
	}
	if len(texts) == 0 {
		return apperror.ValidationFailed("texts", "text fields are required")
	}
	for _, t := range texts {
		if strings.TrimSpace(t.Key) == "" {
			return apperror.ValidationFailed("key", "text field key is required")
		}
	}

	if _, err := s.requireOwner(ctx, callerID, websiteID); err != nil {
		return err
	}

	fields := make([]model.TextField, 0, len(texts))
	for _, t := range texts {
		fields = append(fields, model.TextField{Key: t.Key, Content: t.Content})
	}

	if err := s.websites.UpsertTexts(ctx, websiteID, fields); err != nil {
		return fmt.Errorf("updating texts of website %s: %w", websiteID, err)
	}

	s.invalidate("/dashboard/edit/"+websiteID,
		"/dashboard/preview/"+websiteID, "/sites/"+websiteID)
	return nil
}

// UpdateSectionStatus enables or disables one section. Ownership is checked
// through the section's website.
func (s *WebsiteService) UpdateSectionStatus(ctx context.Context, callerID, sectionID string, enabled bool) (*model.WebsiteSection, error) {
	if sectionID = strings.TrimSpace(sectionID); sectionID == "" {
		return nil, apperror.ValidationFailed("id", "section ID is required")
	}
	if callerID == "" {
		return nil, apperror.Unauthorized("you must be logged in to update a section")
	}

	section, err := s.websites.GetSection(ctx, sectionID)
	if err != nil {
		return nil, fmt.Errorf("getting section %s: %w", sectionID, err)
	}
	if section == nil {
		return nil, apperror.NotFound("section", sectionID)
	}

	site, err := s.websites.GetWebsiteByID(ctx, section.WebsiteID)
	if err != nil {
		return nil, fmt.Errorf("getting website %s: %w", section.WebsiteID, err)
	}
	if site == nil {
		return nil, apperror.NotFound("website", section.WebsiteID)
	}
	if site.UserID != callerID {
		return nil, apperror.Forbidden("you do not have permission to update this section")
	}

	updated, err := s.websites.SetSectionEnabled(ctx, sectionID, enabled)
	if err != nil {
		return nil, fmt.Errorf("updating section %s: %w", sectionID, err)
	}

	s.invalidate("/dashboard/edit/"+site.ID, "/sites/"+site.ID)
	return updated, nil
}

// ReorderSections applies the submitted {id, order} pairs as one atomic
// batch and returns the sections in their new render order.
func (s *WebsiteService) ReorderSections(ctx context.Context, callerID, websiteID string, orders []repository.SectionOrder) ([]model.WebsiteSection, error) {
	if websiteID == "" {
		return nil, apperror.ValidationFailed("id", "website ID is required")
	}
	if len(orders) == 0 {
		return nil, apperror.ValidationFailed("sections", "section data is required")
	}
	for _, o := range orders {
		if o.ID == "" {
			return nil, apperror.ValidationFailed("sections", "section ID is required")
		}
	}

	if _, err := s.requireOwner(ctx, callerID, websiteID); err != nil {
		return nil, err
	}

	sections, err := s.websites.ReorderSections(ctx, websiteID, orders)
	if err != nil {
		return nil, fmt.Errorf("reordering sections of website %s: %w", websiteID, err)
	}

	s.invalidate("/dashboard/edit/"+websiteID, "/sites/"+websiteID)
	return sections, nil
}

// GetPublicSite serves the public site view. Unpublished sites are 404 for
// everyone but their owner (who may preview). Password-protected sites
// require the correct site password unless the owner is asking.
func (s *WebsiteService) GetPublicSite(ctx context.Context, callerID, websiteID, password string) (*model.WebsiteDetails, error) {
	if websiteID = strings.TrimSpace(websiteID); websiteID == "" {
		return nil, apperror.ValidationFailed("id", "website ID is required")
	}

	details, err := s.websites.GetDetails(ctx, websiteID)
	if err != nil {
		return nil, fmt.Errorf("getting website %s: %w", websiteID, err)
	}
	if details == nil {
		return nil, apperror.NotFound("website", websiteID)
	}

	isOwner := callerID != "" && callerID == details.UserID
	if !details.IsPublished && !isOwner {
		return nil, apperror.NotFound("website", websiteID)
	}

	if details.PasswordProtected && !isOwner {
		if password == "" {
			return nil, apperror.Unauthorized("this site is password protected")
		}
		ok, err := s.passwords.Verify(details.PasswordHash, password)
		if err != nil {
			return nil, fmt.Errorf("verifying site password: %w", err)
		}
		if !ok {
			return nil, apperror.Unauthorized("incorrect site password")
		}
	}

	return details, nil
}

// requireOwner authenticates and authorizes one mutating action: the caller
// must be logged in and own the website. Missing sites are 404 so non-owners
// can't probe for existence, matching the lookup path.
func (s *WebsiteService) requireOwner(ctx context.Context, callerID, websiteID string) (*model.Website, error) {
	if callerID == "" {
		return nil, apperror.Unauthorized("you must be logged in to update this website")
	}

	site, err := s.websites.GetWebsiteByID(ctx, websiteID)
	if err != nil {
		return nil, fmt.Errorf("getting website %s: %w", websiteID, err)
	}
	if site == nil {
		return nil, apperror.NotFound("website", websiteID)
	}
	if site.UserID != callerID {
		return nil, apperror.Forbidden("not authorized to update this website")
	}
	return site, nil
}

func (s *WebsiteService) invalidate(paths ...string) {
	for _, p := range paths {
		s.cache.Invalidate(p)
	}
}
