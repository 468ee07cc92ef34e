package handler

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/mrahman/sitebuilder/internal/auth"
	"github.com/mrahman/sitebuilder/internal/cache"
	"github.com/mrahman/sitebuilder/internal/service"
)

// SiteHandler serves the public, read-side view of a published website.
//
// This is the only endpoint backed by the page cache: published,
// unprotected sites are rendered once and replayed from memory until a
// mutation invalidates "/sites/{id}". Password-protected sites and owner
// previews always hit the database — their responses depend on who is asking.
type SiteHandler struct {
	websites *service.WebsiteService
	pages    *cache.PageCache
	logger   *slog.Logger
}

func NewSiteHandler(websites *service.WebsiteService, pages *cache.PageCache, logger *slog.Logger) *SiteHandler {
	return &SiteHandler{websites: websites, pages: pages, logger: logger}
}

// HandleView returns the public aggregate for a published website.
//
// HTTP: GET /sites/{id}
// Auth: optional — owners can view their own unpublished or protected sites.
//
// Password-protected sites answer 401; the visitor then posts the site
// password to /sites/{id}/unlock.
func (h *SiteHandler) HandleView(w http.ResponseWriter, r *http.Request) {
	siteID := r.PathValue("id")
	callerID, _ := auth.UserIDFromContext(r.Context())

	cacheKey := "/sites/" + siteID

	// Cache replay only for anonymous visitors: the owner path and the
	// protected path produce caller-dependent responses.
	if callerID == "" {
		if body, ok := h.pages.Get(cacheKey); ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			if _, err := w.Write(body); err != nil {
				h.logger.Error("failed to write cached site", slog.String("error", err.Error()))
			}
			return
		}
	}

	details, err := h.websites.GetPublicSite(r.Context(), callerID, siteID, "")
	if err != nil {
		writeError(w, err)
		return
	}

	envelope := Envelope{Success: true, Data: details, Status: http.StatusOK}

	// Only the anonymous, unprotected rendering is safe to share between
	// visitors.
	if callerID == "" && !details.PasswordProtected {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(envelope); err == nil {
			h.pages.Put(cacheKey, buf.Bytes())
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			if _, err := w.Write(buf.Bytes()); err != nil {
				h.logger.Error("failed to write site response", slog.String("error", err.Error()))
			}
			return
		}
	}

	writeJSON(w, http.StatusOK, envelope)
}

// HandleUnlock checks a visitor's site password and, when it matches, returns
// the full aggregate.
//
// HTTP: POST /sites/{id}/unlock
// Body: {"password": "..."}
//
// A wrong password is a 401, same as viewing without one.
func (h *SiteHandler) HandleUnlock(w http.ResponseWriter, r *http.Request) {
	siteID := r.PathValue("id")
	callerID, _ := auth.UserIDFromContext(r.Context())

	var input struct {
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, err)
		return
	}

	details, err := h.websites.GetPublicSite(r.Context(), callerID, siteID, input.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, details)
}
