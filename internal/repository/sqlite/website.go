package sqlite

import (
	"context"
	"time"

	"github.com/mrahman/sitebuilder/internal/apperror"
	"github.com/mrahman/sitebuilder/internal/model"
	"github.com/mrahman/sitebuilder/internal/repository"
)

// Compile-time check that *Store implements repository.WebsiteStore.
var _ repository.WebsiteStore = (*Store)(nil)

var websiteSchema = Schema[model.Website]{
	Table: "websites",
	Columns: []string{
		"id", "title", "template", "is_published", "password_protected",
		"password_hash", "user_id", "created_at", "updated_at",
	},
	ID: func(w *model.Website) string { return w.ID },
	Init: func(w *model.Website, id string, now time.Time) {
		w.ID = id
		w.CreatedAt = now
		w.UpdatedAt = now
	},
}

var sectionSchema = Schema[model.WebsiteSection]{
	Table: "website_sections",
	Columns: []string{
		"id", "type", "title", "enabled", "sort_order", "website_id",
		"created_at", "updated_at",
	},
	ID: func(s *model.WebsiteSection) string { return s.ID },
	Init: func(s *model.WebsiteSection, id string, now time.Time) {
		s.ID = id
		s.CreatedAt = now
		s.UpdatedAt = now
	},
}

var textFieldSchema = Schema[model.TextField]{
	Table: "text_fields",
	Columns: []string{
		"id", "key", "content", "website_id", "created_at", "updated_at",
	},
	ID: func(t *model.TextField) string { return t.ID },
	Init: func(t *model.TextField, id string, now time.Time) {
		t.ID = id
		t.CreatedAt = now
		t.UpdatedAt = now
	},
}

var imageSchema = Schema[model.Image]{
	Table: "images",
	Columns: []string{
		"id", "url", "alt_text", "website_id", "created_at", "updated_at",
	},
	ID: func(i *model.Image) string { return i.ID },
	Init: func(i *model.Image, id string, now time.Time) {
		i.ID = id
		i.CreatedAt = now
		i.UpdatedAt = now
	},
}

var (
	websiteRepo   = NewRepo(websiteSchema)
	sectionRepo   = NewRepo(sectionSchema)
	textFieldRepo = NewRepo(textFieldSchema)
	imageRepo     = NewRepo(imageSchema)
)

// sectionOrderAsc is the render order: sort key ascending, id as tiebreaker
// (applied by the repo for any non-id sort column).
var sectionOrderAsc = OrderBy{Column: "sort_order"}

// CreateWithDefaults inserts the website row and bulk-inserts its
// template-derived sections, text fields, and images inside one transaction.
// If any insert fails, the rollback leaves no partial website behind.
//
// The section/text/image slices get their WebsiteID filled from the created
// row, so callers build them with only type/title/content populated.
func (s *Store) CreateWithDefaults(ctx context.Context, site *model.Website,
	sections []model.WebsiteSection, texts []model.TextField, images []model.Image) error {

	return s.WithTx(ctx, func(q Querier) error {
		if err := websiteRepo.Create(ctx, q, site); err != nil {
			return err
		}

		for i := range sections {
			sections[i].WebsiteID = site.ID
		}
		if _, err := sectionRepo.CreateMany(ctx, q, sections); err != nil {
			return err
		}

		for i := range texts {
			texts[i].WebsiteID = site.ID
		}
		if _, err := textFieldRepo.CreateMany(ctx, q, texts); err != nil {
			return err
		}

		for i := range images {
			images[i].WebsiteID = site.ID
		}
		if _, err := imageRepo.CreateMany(ctx, q, images); err != nil {
			return err
		}

		return nil
	})
}

// GetWebsiteByID returns the bare website row, or (nil, nil) when absent.
func (s *Store) GetWebsiteByID(ctx context.Context, id string) (*model.Website, error) {
	return websiteRepo.FindByID(ctx, s.db, id)
}

// GetDetails loads the full aggregate: the website plus its sections in
// render order, texts, and images. Returns (nil, nil) when the website
// doesn't exist.
func (s *Store) GetDetails(ctx context.Context, id string) (*model.WebsiteDetails, error) {
	site, err := websiteRepo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if site == nil {
		return nil, nil
	}

	byWebsite := Where{Eq("website_id", id)}

	sections, err := sectionRepo.FindMany(ctx, s.db, byWebsite, sectionOrderAsc)
	if err != nil {
		return nil, err
	}
	texts, err := textFieldRepo.FindMany(ctx, s.db, byWebsite, OrderBy{Column: "key"})
	if err != nil {
		return nil, err
	}
	images, err := imageRepo.FindMany(ctx, s.db, byWebsite, OrderBy{Column: "created_at"})
	if err != nil {
		return nil, err
	}

	return &model.WebsiteDetails{
		Website:  *site,
		Sections: sections,
		Texts:    texts,
		Images:   images,
	}, nil
}

// ListByUser returns one page of the user's websites, newest first, each with
// at most one preview image attached.
func (s *Store) ListByUser(ctx context.Context, userID string, opts repository.PageOptions) ([]model.WebsiteSummary, error) {
	sites, err := websiteRepo.FindPage(ctx, s.db,
		Where{Eq("user_id", userID)}, OrderBy{Column: "created_at", Desc: true},
		opts.Page, opts.PageSize)
	if err != nil {
		return nil, err
	}

	summaries := make([]model.WebsiteSummary, 0, len(sites))
	for _, site := range sites {
		preview, err := imageRepo.FindFirst(ctx, s.db,
			Where{Eq("website_id", site.ID)}, OrderBy{Column: "created_at"})
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, model.WebsiteSummary{
			Website:      site,
			PreviewImage: preview,
		})
	}
	return summaries, nil
}

// CountByUser returns how many websites the user owns.
func (s *Store) CountByUser(ctx context.Context, userID string) (int, error) {
	return websiteRepo.Count(ctx, s.db, Where{Eq("user_id", userID)})
}

// UpdateTitle sets the website's title. NotFound when the row is absent.
func (s *Store) UpdateTitle(ctx context.Context, id, title string) error {
	_, err := websiteRepo.Update(ctx, s.db, id, Fields{Set("title", title)})
	return err
}

// UpdateTemplate switches the website to another catalog template.
func (s *Store) UpdateTemplate(ctx context.Context, id, template string) error {
	_, err := websiteRepo.Update(ctx, s.db, id, Fields{Set("template", template)})
	return err
}

// SetPublished flips the publish state.
func (s *Store) SetPublished(ctx context.Context, id string, published bool) error {
	_, err := websiteRepo.Update(ctx, s.db, id, Fields{Set("is_published", published)})
	return err
}

// SetPasswordProtection writes the protection flag, the hash, and updated_at
// as one transactional update — the sibling fields are never half-written.
func (s *Store) SetPasswordProtection(ctx context.Context, id string, protected bool, passwordHash string) error {
	if !protected {
		passwordHash = ""
	}
	return s.WithTx(ctx, func(q Querier) error {
		_, err := websiteRepo.Update(ctx, q, id, Fields{
			Set("password_protected", protected),
			Set("password_hash", passwordHash),
		})
		return err
	})
}

// UpsertTexts applies each {key, content} pair by (website_id, key): update
// the existing row when the key is present, insert otherwise. The whole
// batch plus the website's updated_at touch runs in one transaction — a
// failing pair applies none of them.
func (s *Store) UpsertTexts(ctx context.Context, websiteID string, texts []model.TextField) error {
	return s.WithTx(ctx, func(q Querier) error {
		for _, text := range texts {
			existing, err := textFieldRepo.FindUnique(ctx, q, Where{
				Eq("website_id", websiteID),
				Eq("key", text.Key),
			})
			if err != nil {
				return err
			}

			if existing != nil {
				if _, err := textFieldRepo.Update(ctx, q, existing.ID, Fields{
					Set("content", text.Content),
				}); err != nil {
					return err
				}
				continue
			}

			field := model.TextField{
				Key:       text.Key,
				Content:   text.Content,
				WebsiteID: websiteID,
			}
			if err := textFieldRepo.Create(ctx, q, &field); err != nil {
				return err
			}
		}

		_, err := websiteRepo.Update(ctx, q, websiteID, Fields{
			Set("updated_at", time.Now().UTC()),
		})
		return err
	})
}

// GetSection returns a section row, or (nil, nil) when absent.
func (s *Store) GetSection(ctx context.Context, sectionID string) (*model.WebsiteSection, error) {
	return sectionRepo.FindByID(ctx, s.db, sectionID)
}

// SetSectionEnabled toggles a section and returns the updated row.
func (s *Store) SetSectionEnabled(ctx context.Context, sectionID string, enabled bool) (*model.WebsiteSection, error) {
	return sectionRepo.Update(ctx, s.db, sectionID, Fields{Set("enabled", enabled)})
}

// ReorderSections applies every {id, order} pair in one transaction.
// A section that doesn't exist or belongs to another website fails the whole
// batch — no partial reordering is ever visible. Returns the website's
// sections in their new render order.
func (s *Store) ReorderSections(ctx context.Context, websiteID string, orders []repository.SectionOrder) ([]model.WebsiteSection, error) {
	err := s.WithTx(ctx, func(q Querier) error {
		for _, o := range orders {
			section, err := sectionRepo.FindByID(ctx, q, o.ID)
			if err != nil {
				return err
			}
			if section == nil || section.WebsiteID != websiteID {
				return apperror.NotFound("section", o.ID)
			}
			if _, err := sectionRepo.Update(ctx, q, o.ID, Fields{
				Set("sort_order", o.Order),
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return sectionRepo.FindMany(ctx, s.db, Where{Eq("website_id", websiteID)}, sectionOrderAsc)
}
