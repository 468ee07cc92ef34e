package model

import "time"

// Website is the aggregate root of the builder: one site per row, owned by a
// user, assembled from sections, text fields, and images.
//
// State machine: Draft (IsPublished=false) ⇄ Published (IsPublished=true),
// with an orthogonal password-protection flag. PasswordHash holds a bcrypt
// hash of the site password when protection is enabled, and is cleared when
// it's disabled. The hash never leaves the server (json:"-").
type Website struct {
	ID                string    `json:"id"                db:"id"`
	Title             string    `json:"title"             db:"title"`
	Template          string    `json:"template"          db:"template"` // catalog template id
	IsPublished       bool      `json:"isPublished"       db:"is_published"`
	PasswordProtected bool      `json:"passwordProtected" db:"password_protected"`
	PasswordHash      string    `json:"-"                 db:"password_hash"`
	UserID            string    `json:"userId"            db:"user_id"`
	CreatedAt         time.Time `json:"createdAt"         db:"created_at"`
	UpdatedAt         time.Time `json:"updatedAt"         db:"updated_at"`
}

// WebsiteSection is one block of a site (hero, story, gallery, ...).
// Sections are bulk-created from the template's defaults at website creation,
// then toggled and reordered by the owner. Order is an opaque sort key —
// gaps and duplicates are tolerated, ties break by id.
type WebsiteSection struct {
	ID        string    `json:"id"        db:"id"`
	Type      string    `json:"type"      db:"type"`
	Title     string    `json:"title"     db:"title"`
	Enabled   bool      `json:"enabled"   db:"enabled"`
	Order     int       `json:"order"     db:"sort_order"`
	WebsiteID string    `json:"websiteId" db:"website_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// TextField is an editable piece of site copy, addressed by a key that is
// unique within its website ("couple_names", "welcome_message", ...).
// Writes are upserts on (website_id, key).
type TextField struct {
	ID        string    `json:"id"        db:"id"`
	Key       string    `json:"key"       db:"key"`
	Content   string    `json:"content"   db:"content"`
	WebsiteID string    `json:"websiteId" db:"website_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// Image is a picture attached to a website.
type Image struct {
	ID        string    `json:"id"        db:"id"`
	URL       string    `json:"url"       db:"url"`
	AltText   *string   `json:"altText"   db:"alt_text"`
	WebsiteID string    `json:"websiteId" db:"website_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// WebsiteDetails is a website with its full aggregate loaded: sections in
// render order, texts, and images.
type WebsiteDetails struct {
	Website
	Sections []WebsiteSection `json:"sections"`
	Texts    []TextField      `json:"texts"`
	Images   []Image          `json:"images"`
}

// WebsiteSummary is the dashboard listing shape: the website row plus one
// preview image, if any.
type WebsiteSummary struct {
	Website
	PreviewImage *Image `json:"previewImage"`
}
