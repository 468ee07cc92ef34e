package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"testing"

	"github.com/mrahman/sitebuilder/internal/apperror"
	"github.com/mrahman/sitebuilder/internal/auth"
	"github.com/mrahman/sitebuilder/internal/model"
	"github.com/mrahman/sitebuilder/internal/repository"
	"github.com/mrahman/sitebuilder/internal/validate"
)

// fakeWebsiteStore is an in-memory repository.WebsiteStore. A hand-written
// fake keeps the tests readable — what it does is exactly what you see.
type fakeWebsiteStore struct {
	sites    map[string]*model.Website
	sections map[string]*model.WebsiteSection
	texts    map[string]*model.TextField
	images   map[string]*model.Image
	nextID   int

	lastListOpts repository.PageOptions
	createErr    error
}

func newFakeWebsiteStore() *fakeWebsiteStore {
	return &fakeWebsiteStore{
		sites:    make(map[string]*model.Website),
		sections: make(map[string]*model.WebsiteSection),
		texts:    make(map[string]*model.TextField),
		images:   make(map[string]*model.Image),
	}
}

func (f *fakeWebsiteStore) id() string {
	f.nextID++
	return fmt.Sprintf("fake-%d", f.nextID)
}

func (f *fakeWebsiteStore) CreateWithDefaults(_ context.Context, site *model.Website,
	sections []model.WebsiteSection, texts []model.TextField, images []model.Image) error {
	if f.createErr != nil {
		return f.createErr
	}

	site.ID = f.id()
	stored := *site
	f.sites[site.ID] = &stored

	for i := range sections {
		sections[i].ID = f.id()
		sections[i].WebsiteID = site.ID
		sec := sections[i]
		f.sections[sec.ID] = &sec
	}
	for i := range texts {
		texts[i].ID = f.id()
		texts[i].WebsiteID = site.ID
		text := texts[i]
		f.texts[text.ID] = &text
	}
	for i := range images {
		images[i].ID = f.id()
		images[i].WebsiteID = site.ID
		img := images[i]
		f.images[img.ID] = &img
	}
	return nil
}

func (f *fakeWebsiteStore) GetWebsiteByID(_ context.Context, id string) (*model.Website, error) {
	site, ok := f.sites[id]
	if !ok {
		return nil, nil
	}
	copied := *site
	return &copied, nil
}

func (f *fakeWebsiteStore) GetDetails(_ context.Context, id string) (*model.WebsiteDetails, error) {
	site, ok := f.sites[id]
	if !ok {
		return nil, nil
	}

	details := &model.WebsiteDetails{Website: *site}
	for _, sec := range f.sections {
		if sec.WebsiteID == id {
			details.Sections = append(details.Sections, *sec)
		}
	}
	sort.Slice(details.Sections, func(i, j int) bool {
		return details.Sections[i].Order < details.Sections[j].Order
	})
	for _, text := range f.texts {
		if text.WebsiteID == id {
			details.Texts = append(details.Texts, *text)
		}
	}
	for _, img := range f.images {
		if img.WebsiteID == id {
			details.Images = append(details.Images, *img)
		}
	}
	return details, nil
}

func (f *fakeWebsiteStore) ListByUser(_ context.Context, userID string, opts repository.PageOptions) ([]model.WebsiteSummary, error) {
	f.lastListOpts = opts
	var out []model.WebsiteSummary
	for _, site := range f.sites {
		if site.UserID == userID {
			out = append(out, model.WebsiteSummary{Website: *site})
		}
	}
	return out, nil
}

func (f *fakeWebsiteStore) CountByUser(_ context.Context, userID string) (int, error) {
	n := 0
	for _, site := range f.sites {
		if site.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (f *fakeWebsiteStore) setField(id string, fn func(*model.Website)) error {
	site, ok := f.sites[id]
	if !ok {
		return apperror.NotFound("websites", id)
	}
	fn(site)
	return nil
}

func (f *fakeWebsiteStore) UpdateTitle(_ context.Context, id, title string) error {
	return f.setField(id, func(w *model.Website) { w.Title = title })
}

func (f *fakeWebsiteStore) UpdateTemplate(_ context.Context, id, template string) error {
	return f.setField(id, func(w *model.Website) { w.Template = template })
}

func (f *fakeWebsiteStore) SetPublished(_ context.Context, id string, published bool) error {
	return f.setField(id, func(w *model.Website) { w.IsPublished = published })
}

func (f *fakeWebsiteStore) SetPasswordProtection(_ context.Context, id string, protected bool, hash string) error {
	if !protected {
		hash = ""
	}
	return f.setField(id, func(w *model.Website) {
		w.PasswordProtected = protected
		w.PasswordHash = hash
	})
}

func (f *fakeWebsiteStore) UpsertTexts(_ context.Context, websiteID string, texts []model.TextField) error {
	if _, ok := f.sites[websiteID]; !ok {
		return apperror.NotFound("websites", websiteID)
	}
	for _, incoming := range texts {
		updated := false
		for _, existing := range f.texts {
			if existing.WebsiteID == websiteID && existing.Key == incoming.Key {
				existing.Content = incoming.Content
				updated = true
				break
			}
		}
		if !updated {
			text := model.TextField{
				ID: f.id(), Key: incoming.Key, Content: incoming.Content, WebsiteID: websiteID,
			}
			f.texts[text.ID] = &text
		}
	}
	return nil
}

func (f *fakeWebsiteStore) GetSection(_ context.Context, sectionID string) (*model.WebsiteSection, error) {
	sec, ok := f.sections[sectionID]
	if !ok {
		return nil, nil
	}
	copied := *sec
	return &copied, nil
}

func (f *fakeWebsiteStore) SetSectionEnabled(_ context.Context, sectionID string, enabled bool) (*model.WebsiteSection, error) {
	sec, ok := f.sections[sectionID]
	if !ok {
		return nil, apperror.NotFound("website_sections", sectionID)
	}
	sec.Enabled = enabled
	copied := *sec
	return &copied, nil
}

func (f *fakeWebsiteStore) ReorderSections(_ context.Context, websiteID string, orders []repository.SectionOrder) ([]model.WebsiteSection, error) {
	for _, o := range orders {
		sec, ok := f.sections[o.ID]
		if !ok || sec.WebsiteID != websiteID {
			return nil, apperror.NotFound("section", o.ID)
		}
		sec.Order = o.Order
	}
	var out []model.WebsiteSection
	for _, sec := range f.sections {
		if sec.WebsiteID == websiteID {
			out = append(out, *sec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

// fakeInvalidator records every invalidated path so tests can assert that
// mutations drop their dependent cached views.
type fakeInvalidator struct {
	paths []string
}

func (f *fakeInvalidator) Invalidate(path string) {
	f.paths = append(f.paths, path)
}

func (f *fakeInvalidator) has(path string) bool {
	for _, p := range f.paths {
		if p == path {
			return true
		}
	}
	return false
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestWebsiteService(store *fakeWebsiteStore, inv *fakeInvalidator) *WebsiteService {
	return NewWebsiteService(store, auth.NewPasswordServiceWithCost(4), validate.New(), inv, quietLogger())
}

func createSiteForTest(t *testing.T, svc *WebsiteService, ownerID string) *model.WebsiteDetails {
	t.Helper()
	details, err := svc.Create(context.Background(), ownerID, CreateWebsiteInput{
		Title: "Our Wedding", Template: "rustic",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return details
}

func TestCreate_FromTemplateDefaults(t *testing.T) {
	store := newFakeWebsiteStore()
	inv := &fakeInvalidator{}
	svc := newTestWebsiteService(store, inv)

	details := createSiteForTest(t, svc, "user-1")

	if details.UserID != "user-1" {
		t.Errorf("UserID = %q, want %q", details.UserID, "user-1")
	}
	if len(details.Sections) == 0 {
		t.Error("Create() produced no default sections")
	}
	if len(details.Texts) == 0 {
		t.Error("Create() produced no default texts")
	}
	if details.IsPublished {
		t.Error("new websites must start as drafts")
	}
	if !inv.has("/dashboard") {
		t.Error("Create() did not invalidate /dashboard")
	}
}

func TestCreate_InvalidTemplate(t *testing.T) {
	svc := newTestWebsiteService(newFakeWebsiteStore(), &fakeInvalidator{})

	_, err := svc.Create(context.Background(), "user-1", CreateWebsiteInput{
		Title: "X", Template: "brutalist",
	})
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("Create() with unknown template: error = %v, want ErrValidation", err)
	}
}

func TestCreate_RequiresAuth(t *testing.T) {
	svc := newTestWebsiteService(newFakeWebsiteStore(), &fakeInvalidator{})

	_, err := svc.Create(context.Background(), "", CreateWebsiteInput{
		Title: "X", Template: "rustic",
	})
	if !errors.Is(err, apperror.ErrUnauthorized) {
		t.Errorf("Create() without caller: error = %v, want ErrUnauthorized", err)
	}
}

func TestGetWithDetails_NonOwnerGets404(t *testing.T) {
	store := newFakeWebsiteStore()
	svc := newTestWebsiteService(store, &fakeInvalidator{})
	site := createSiteForTest(t, svc, "owner")

	// Existence must not leak: the non-owner sees the same 404 as for a
	// website that doesn't exist at all.
	_, err := svc.GetWithDetails(context.Background(), "intruder", site.ID)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetWithDetails() as non-owner: error = %v, want ErrNotFound", err)
	}
}

func TestUpdateTitle_NonOwnerForbidden(t *testing.T) {
	store := newFakeWebsiteStore()
	svc := newTestWebsiteService(store, &fakeInvalidator{})
	site := createSiteForTest(t, svc, "owner")

	err := svc.UpdateTitle(context.Background(), "intruder", site.ID, "Hijacked")
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("UpdateTitle() as non-owner: error = %v, want ErrForbidden", err)
	}
	if store.sites[site.ID].Title == "Hijacked" {
		t.Error("UpdateTitle() as non-owner mutated the website")
	}
}

func TestUpdateTitle_Validation(t *testing.T) {
	store := newFakeWebsiteStore()
	svc := newTestWebsiteService(store, &fakeInvalidator{})
	site := createSiteForTest(t, svc, "owner")

	for name, title := range map[string]string{
		"empty":    "   ",
		"too long": strings.Repeat("a", MaxTitleLength+1),
	} {
		if err := svc.UpdateTitle(context.Background(), "owner", site.ID, title); !errors.Is(err, apperror.ErrValidation) {
			t.Errorf("%s title: error = %v, want ErrValidation", name, err)
		}
	}
}

func TestUpdateTitle_InvalidatesDependentPaths(t *testing.T) {
	store := newFakeWebsiteStore()
	inv := &fakeInvalidator{}
	svc := newTestWebsiteService(store, inv)
	site := createSiteForTest(t, svc, "owner")
	inv.paths = nil

	if err := svc.UpdateTitle(context.Background(), "owner", site.ID, "Renamed"); err != nil {
		t.Fatalf("UpdateTitle() error = %v", err)
	}

	for _, want := range []string{"/dashboard", "/dashboard/edit/" + site.ID, "/sites/" + site.ID} {
		if !inv.has(want) {
			t.Errorf("UpdateTitle() did not invalidate %s (got %v)", want, inv.paths)
		}
	}
}

func TestUpdatePasswordProtection_RequiresPasswordWhenEnabling(t *testing.T) {
	store := newFakeWebsiteStore()
	svc := newTestWebsiteService(store, &fakeInvalidator{})
	site := createSiteForTest(t, svc, "owner")

	err := svc.UpdatePasswordProtection(context.Background(), "owner", site.ID,
		PasswordProtectionInput{Protected: true, Password: "  "})
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("enabling with empty password: error = %v, want ErrValidation", err)
	}
}

func TestUpdatePasswordProtection_StoresHashNotPlaintext(t *testing.T) {
	store := newFakeWebsiteStore()
	svc := newTestWebsiteService(store, &fakeInvalidator{})
	site := createSiteForTest(t, svc, "owner")

	err := svc.UpdatePasswordProtection(context.Background(), "owner", site.ID,
		PasswordProtectionInput{Protected: true, Password: "sommer2026"})
	if err != nil {
		t.Fatalf("UpdatePasswordProtection() error = %v", err)
	}

	stored := store.sites[site.ID]
	if !stored.PasswordProtected {
		t.Error("protection flag not set")
	}
	if stored.PasswordHash == "" || stored.PasswordHash == "sommer2026" {
		t.Errorf("PasswordHash = %q — must be a hash, never the plaintext", stored.PasswordHash)
	}

	ok, err := auth.NewPasswordServiceWithCost(4).Verify(stored.PasswordHash, "sommer2026")
	if err != nil || !ok {
		t.Errorf("stored hash does not verify against the original password (ok=%v err=%v)", ok, err)
	}
}

func TestUpdateTexts_EmptyBatchRejected(t *testing.T) {
	store := newFakeWebsiteStore()
	svc := newTestWebsiteService(store, &fakeInvalidator{})
	site := createSiteForTest(t, svc, "owner")

	err := svc.UpdateTexts(context.Background(), "owner", site.ID, nil)
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("UpdateTexts() with empty batch: error = %v, want ErrValidation", err)
	}
}

func TestUpdateSectionStatus_OwnershipViaWebsite(t *testing.T) {
	store := newFakeWebsiteStore()
	svc := newTestWebsiteService(store, &fakeInvalidator{})
	site := createSiteForTest(t, svc, "owner")
	sectionID := site.Sections[0].ID

	if _, err := svc.UpdateSectionStatus(context.Background(), "intruder", sectionID, false); !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("UpdateSectionStatus() as non-owner: error = %v, want ErrForbidden", err)
	}

	section, err := svc.UpdateSectionStatus(context.Background(), "owner", sectionID, false)
	if err != nil {
		t.Fatalf("UpdateSectionStatus() as owner: error = %v", err)
	}
	if section.Enabled {
		t.Error("UpdateSectionStatus(false) returned an enabled section")
	}
}

func TestUpdateSectionStatus_MissingSection(t *testing.T) {
	svc := newTestWebsiteService(newFakeWebsiteStore(), &fakeInvalidator{})

	_, err := svc.UpdateSectionStatus(context.Background(), "owner", "ghost", true)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("UpdateSectionStatus() on missing section: error = %v, want ErrNotFound", err)
	}
}

func TestListForUser_ClampsPaging(t *testing.T) {
	store := newFakeWebsiteStore()
	svc := newTestWebsiteService(store, &fakeInvalidator{})

	if _, _, err := svc.ListForUser(context.Background(), "user-1",
		repository.PageOptions{Page: -3, PageSize: 9999}); err != nil {
		t.Fatalf("ListForUser() error = %v", err)
	}

	if store.lastListOpts.Page != 1 {
		t.Errorf("Page = %d, want clamped to 1", store.lastListOpts.Page)
	}
	if store.lastListOpts.PageSize != MaxPageSize {
		t.Errorf("PageSize = %d, want clamped to %d", store.lastListOpts.PageSize, MaxPageSize)
	}
}

func TestGetPublicSite_Visibility(t *testing.T) {
	store := newFakeWebsiteStore()
	svc := newTestWebsiteService(store, &fakeInvalidator{})
	site := createSiteForTest(t, svc, "owner")
	ctx := context.Background()

	// Draft: anonymous visitors and other users get 404; the owner previews.
	if _, err := svc.GetPublicSite(ctx, "", site.ID, ""); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("draft for anonymous: error = %v, want ErrNotFound", err)
	}
	if _, err := svc.GetPublicSite(ctx, "owner", site.ID, ""); err != nil {
		t.Errorf("draft for owner: error = %v, want preview access", err)
	}

	if err := svc.Publish(ctx, "owner", site.ID, true); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if _, err := svc.GetPublicSite(ctx, "", site.ID, ""); err != nil {
		t.Errorf("published for anonymous: error = %v, want access", err)
	}
}

func TestGetPublicSite_PasswordProtection(t *testing.T) {
	store := newFakeWebsiteStore()
	svc := newTestWebsiteService(store, &fakeInvalidator{})
	site := createSiteForTest(t, svc, "owner")
	ctx := context.Background()

	if err := svc.Publish(ctx, "owner", site.ID, true); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if err := svc.UpdatePasswordProtection(ctx, "owner", site.ID,
		PasswordProtectionInput{Protected: true, Password: "geheim"}); err != nil {
		t.Fatalf("UpdatePasswordProtection() error = %v", err)
	}

	if _, err := svc.GetPublicSite(ctx, "", site.ID, ""); !errors.Is(err, apperror.ErrUnauthorized) {
		t.Errorf("no password: error = %v, want ErrUnauthorized", err)
	}
	if _, err := svc.GetPublicSite(ctx, "", site.ID, "wrong"); !errors.Is(err, apperror.ErrUnauthorized) {
		t.Errorf("wrong password: error = %v, want ErrUnauthorized", err)
	}
	if _, err := svc.GetPublicSite(ctx, "", site.ID, "geheim"); err != nil {
		t.Errorf("correct password: error = %v, want access", err)
	}
	// The owner never needs the site password.
	if _, err := svc.GetPublicSite(ctx, "owner", site.ID, ""); err != nil {
		t.Errorf("owner bypass: error = %v, want access", err)
	}
}

func TestReorderSections_RequiresNonEmptyBatch(t *testing.T) {
	store := newFakeWebsiteStore()
	svc := newTestWebsiteService(store, &fakeInvalidator{})
	site := createSiteForTest(t, svc, "owner")

	_, err := svc.ReorderSections(context.Background(), "owner", site.ID, nil)
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("ReorderSections() with empty batch: error = %v, want ErrValidation", err)
	}
}
