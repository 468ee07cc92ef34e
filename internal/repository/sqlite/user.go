package sqlite

import (
	"context"
	"errors"
	"time"

	"github.com/mrahman/sitebuilder/internal/apperror"
	"github.com/mrahman/sitebuilder/internal/model"
	"github.com/mrahman/sitebuilder/internal/repository"
)

// Compile-time check that *Store implements repository.UserStore.
var _ repository.UserStore = (*Store)(nil)

var userSchema = Schema[model.User]{
	Table: "users",
	Columns: []string{
		"id", "email", "name", "password_hash", "github_id", "created_at", "updated_at",
	},
	ID: func(u *model.User) string { return u.ID },
	Init: func(u *model.User, id string, now time.Time) {
		u.ID = id
		u.CreatedAt = now
		u.UpdatedAt = now
	},
}

// resetTokenSchema keeps a caller-assigned ID: the token value itself (a
// uuid minted by the auth service) is the primary key, so Init only fills
// it in when empty.
var resetTokenSchema = Schema[model.PasswordResetToken]{
	Table: "password_reset_tokens",
	Columns: []string{
		"id", "user_id", "expires_at", "created_at", "updated_at",
	},
	ID: func(t *model.PasswordResetToken) string { return t.ID },
	Init: func(t *model.PasswordResetToken, id string, now time.Time) {
		if t.ID == "" {
			t.ID = id
		}
		t.CreatedAt = now
		t.UpdatedAt = now
	},
}

var (
	userRepo       = NewRepo(userSchema)
	resetTokenRepo = NewRepo(resetTokenSchema)
)

// Create inserts a new user. A duplicate email surfaces as ErrConflict.
func (s *Store) Create(ctx context.Context, user *model.User) error {
	return userRepo.Create(ctx, s.db, user)
}

// GetUserByID returns the user, or (nil, nil) when absent.
func (s *Store) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return userRepo.FindByID(ctx, s.db, id)
}

// GetByEmail returns the user with the given email, or (nil, nil).
func (s *Store) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return userRepo.FindUnique(ctx, s.db, Where{Eq("email", email)})
}

// GetByGitHubID returns the user linked to the given GitHub account,
// or (nil, nil). githubID 0 means "not linked" and never matches.
func (s *Store) GetByGitHubID(ctx context.Context, githubID int64) (*model.User, error) {
	if githubID == 0 {
		return nil, nil
	}
	return userRepo.FindUnique(ctx, s.db, Where{Eq("github_id", githubID)})
}

// Update rewrites the user's mutable profile fields.
func (s *Store) Update(ctx context.Context, user *model.User) error {
	updated, err := userRepo.Update(ctx, s.db, user.ID, Fields{
		Set("email", user.Email),
		Set("name", user.Name),
		Set("github_id", user.GitHubID),
	})
	if err != nil {
		return err
	}
	*user = *updated
	return nil
}

// UpdatePassword replaces the stored bcrypt hash.
func (s *Store) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	_, err := userRepo.Update(ctx, s.db, userID, Fields{
		Set("password_hash", passwordHash),
	})
	return err
}

// CreateResetToken stores a password-reset token.
func (s *Store) CreateResetToken(ctx context.Context, token *model.PasswordResetToken) error {
	return resetTokenRepo.Create(ctx, s.db, token)
}

// GetResetToken returns the token row, or (nil, nil) when absent.
func (s *Store) GetResetToken(ctx context.Context, token string) (*model.PasswordResetToken, error) {
	return resetTokenRepo.FindByID(ctx, s.db, token)
}

// DeleteResetToken removes a consumed or expired token.
func (s *Store) DeleteResetToken(ctx context.Context, token string) error {
	_, err := resetTokenRepo.Delete(ctx, s.db, token)
	if err != nil && !errors.Is(err, apperror.ErrNotFound) {
		return err
	}
	return nil
}
