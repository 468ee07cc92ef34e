// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered account.
//
// Users can sign up with email + password or via GitHub OAuth. In the OAuth
// case PasswordHash stays empty and GitHubID carries the provider's numeric ID.
// A user row is created lazily: on first successful sign-up, sign-in, or OAuth
// callback. Users are never deleted by this layer.
//
// WHY Name *string?
// The sign-up form's name field is optional, and "no name given" is distinct
// from "empty name". A nullable pointer maps cleanly to the nullable column.
type User struct {
	ID           string    `json:"id"        db:"id"`
	Email        string    `json:"email"     db:"email"`
	Name         *string   `json:"name"      db:"name"`
	PasswordHash string    `json:"-"         db:"password_hash"` // bcrypt; never serialized
	GitHubID     int64     `json:"-"         db:"github_id"`     // 0 when not linked
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

// PasswordResetToken is a single-use token emailed to a user who requested a
// password reset. Expired or consumed tokens are deleted on use.
type PasswordResetToken struct {
	ID        string    `json:"id"        db:"id"` // the token itself (uuid)
	UserID    string    `json:"userId"    db:"user_id"`
	ExpiresAt time.Time `json:"expiresAt" db:"expires_at"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}
