package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/mrahman/sitebuilder/internal/auth"
	"github.com/mrahman/sitebuilder/internal/catalog"
	"github.com/mrahman/sitebuilder/internal/repository"
	"github.com/mrahman/sitebuilder/internal/service"
)

// WebsiteHandler exposes the dashboard's website CRUD endpoints.
//
// All routes here sit behind RequireAuth, so the userID is always in the
// request context. The handler decodes, delegates to WebsiteService, and
// writes the envelope — ownership and validation rules live in the service.
type WebsiteHandler struct {
	websites *service.WebsiteService
	logger   *slog.Logger
}

func NewWebsiteHandler(websites *service.WebsiteService, logger *slog.Logger) *WebsiteHandler {
	return &WebsiteHandler{websites: websites, logger: logger}
}

// websitePage is the list response payload: one page plus enough metadata for
// the frontend to render pagination.
type websitePage struct {
	Websites interface{} `json:"websites"`
	Total    int         `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"pageSize"`
}

// HandleList returns one page of the caller's websites, newest first.
//
// HTTP: GET /api/websites?page=1&pageSize=10
func (h *WebsiteHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	opts := repository.PageOptions{
		Page:     queryInt(r, "page", 1),
		PageSize: queryInt(r, "pageSize", service.DefaultPageSize),
	}

	sites, total, err := h.websites.ListForUser(r.Context(), userID, opts)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, websitePage{
		Websites: sites,
		Total:    total,
		Page:     opts.Page,
		PageSize: opts.PageSize,
	})
}

// HandleCreate builds a new website from a catalog template.
//
// HTTP: POST /api/websites
// Body: {"title": "Our Wedding", "template": "rustic"}
//
// Responds 201 with the full aggregate: the website plus its default
// sections, texts, and images.
func (h *WebsiteHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var input service.CreateWebsiteInput
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, err)
		return
	}

	details, err := h.websites.Create(r.Context(), userID, input)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, details)
}

// HandleGet returns the caller's website with all content loaded.
//
// HTTP: GET /api/websites/{id}
func (h *WebsiteHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	details, err := h.websites.GetWithDetails(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, details)
}

// HandleUpdateTitle renames a website.
//
// HTTP: PATCH /api/websites/{id}/title
// Body: {"title": "New Name"}
func (h *WebsiteHandler) HandleUpdateTitle(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var input struct {
		Title string `json:"title"`
	}
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, err)
		return
	}

	if err := h.websites.UpdateTitle(r.Context(), userID, r.PathValue("id"), input.Title); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]string{"message": "title updated"})
}

// HandleUpdateTemplate switches a website to another catalog template.
//
// HTTP: PATCH /api/websites/{id}/template
// Body: {"template": "modern"}
func (h *WebsiteHandler) HandleUpdateTemplate(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var input struct {
		Template string `json:"template"`
	}
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, err)
		return
	}

	if err := h.websites.UpdateTemplate(r.Context(), userID, r.PathValue("id"), input.Template); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]string{"message": "template updated"})
}

// HandlePublish flips the publish state.
//
// HTTP: PATCH /api/websites/{id}/publish
// Body: {"published": true}
func (h *WebsiteHandler) HandlePublish(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var input struct {
		Published bool `json:"published"`
	}
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, err)
		return
	}

	if err := h.websites.Publish(r.Context(), userID, r.PathValue("id"), input.Published); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]bool{"published": input.Published})
}

// HandlePasswordProtection enables or disables the site password.
//
// HTTP: PATCH /api/websites/{id}/password-protection
// Body: {"passwordProtected": true, "password": "secret"}
func (h *WebsiteHandler) HandlePasswordProtection(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var input service.PasswordProtectionInput
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, err)
		return
	}

	if err := h.websites.UpdatePasswordProtection(r.Context(), userID, r.PathValue("id"), input); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]string{"message": "password protection updated"})
}

// HandleUpdateTexts applies a batch of {key, content} pairs as one atomic
// upsert.
//
// HTTP: PUT /api/websites/{id}/texts
// Body: {"texts": [{"key": "couple_names", "content": "Ana & Lukas"}, ...]}
func (h *WebsiteHandler) HandleUpdateTexts(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var input struct {
		Texts []service.TextInput `json:"texts"`
	}
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, err)
		return
	}

	if err := h.websites.UpdateTexts(r.Context(), userID, r.PathValue("id"), input.Texts); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]string{"message": "texts updated"})
}

// HandleReorderSections saves a new section order and returns the sections in
// their new render order.
//
// HTTP: PUT /api/websites/{id}/sections/order
// Body: {"sections": [{"id": "abc", "order": 0}, ...]}
func (h *WebsiteHandler) HandleReorderSections(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var input struct {
		Sections []repository.SectionOrder `json:"sections"`
	}
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, err)
		return
	}

	sections, err := h.websites.ReorderSections(r.Context(), userID, r.PathValue("id"), input.Sections)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, sections)
}

// HandleSectionStatus enables or disables one section.
//
// HTTP: PATCH /api/sections/{id}/status
// Body: {"enabled": false}
func (h *WebsiteHandler) HandleSectionStatus(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var input struct {
		Enabled bool `json:"enabled"`
	}
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, err)
		return
	}

	section, err := h.websites.UpdateSectionStatus(r.Context(), userID, r.PathValue("id"), input.Enabled)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, section)
}

// HandleTemplates lists the template catalog for the "new website" picker.
//
// HTTP: GET /api/templates
func (h *WebsiteHandler) HandleTemplates(w http.ResponseWriter, r *http.Request) {
	ids := catalog.IDs()
	templates := make([]catalog.Template, 0, len(ids))
	for _, id := range ids {
		if tmpl, ok := catalog.GetTemplateByID(id); ok {
			templates = append(templates, tmpl)
		}
	}
	writeSuccess(w, http.StatusOK, templates)
}

// queryInt reads an integer query parameter, falling back to def when the
// parameter is missing or malformed. Range clamping happens in the service.
func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
