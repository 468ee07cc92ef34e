package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mrahman/sitebuilder/internal/apperror"
	"github.com/mrahman/sitebuilder/internal/auth"
	"github.com/mrahman/sitebuilder/internal/mail"
	"github.com/mrahman/sitebuilder/internal/model"
	"github.com/mrahman/sitebuilder/internal/repository"
	"github.com/mrahman/sitebuilder/internal/validate"
)

// resetTokenTTL bounds how long an emailed reset link stays usable.
const resetTokenTTL = time.Hour

// AuthService owns the authentication flows: sign-up, sign-in, GitHub OAuth,
// and password reset. It orchestrates the user store, token service, password
// hashing, and outgoing mail — HTTP concerns (cookies, redirects) stay in the
// handler.
type AuthService struct {
	users     repository.UserStore
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	validator *validate.Validator
	mailer    mail.Sender
	baseURL   string
	logger    *slog.Logger
}

func NewAuthService(
	users repository.UserStore,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	validator *validate.Validator,
	mailer mail.Sender,
	baseURL string,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		validator: validator,
		mailer:    mailer,
		baseURL:   strings.TrimRight(baseURL, "/"),
		logger:    logger,
	}
}

// AuthResult bundles the user and the issued session token so the handler
// can set the cookie and respond in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// SignUpInput is the sign-up form's input bag.
type SignUpInput struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Name     string `json:"name"     validate:"max=100"`
}

// SignInInput is the sign-in form's input bag.
type SignInInput struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ResetPasswordInput carries the emailed token plus the new password.
type ResetPasswordInput struct {
	Token    string `json:"token"    validate:"required"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// SignUp registers a new account: hash the password, create the user row,
// issue a session. A taken email is a conflict.
func (s *AuthService) SignUp(ctx context.Context, input SignUpInput) (*AuthResult, error) {
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.Name = strings.TrimSpace(input.Name)
	if err := s.validator.Struct(input); err != nil {
		return nil, err
	}

	hash, err := s.passwords.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	user := &model.User{
		Email:        input.Email,
		PasswordHash: hash,
	}
	if input.Name != "" {
		user.Name = &input.Name
	}

	// The unique index on email is the source of truth for "already
	// registered" — the store surfaces a duplicate as ErrConflict, so no
	// pre-check race.
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: creating user: %w", err)
	}

	s.logger.Info("user signed up", slog.String("userID", user.ID))

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}

	return &AuthResult{User: user, Token: token}, nil
}

// SignIn verifies the password and issues a session. Unknown email and wrong
// password produce the same error — no account enumeration.
func (s *AuthService) SignIn(ctx context.Context, input SignInInput) (*AuthResult, error) {
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if err := s.validator.Struct(input); err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, input.Email)
	if err != nil {
		return nil, fmt.Errorf("service/auth: looking up user: %w", err)
	}
	if user == nil || user.PasswordHash == "" {
		return nil, apperror.Unauthorized("invalid email or password")
	}

	ok, err := s.passwords.Verify(user.PasswordHash, input.Password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: verifying password: %w", err)
	}
	if !ok {
		return nil, apperror.Unauthorized("invalid email or password")
	}

	s.logger.Info("user signed in", slog.String("userID", user.ID))

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}

	return &AuthResult{User: user, Token: token}, nil
}

// LoginOrRegisterGitHub handles the OAuth callback: find the linked account,
// or link by email, or lazily create a user on first sign-in. Then issue a
// session like any other login.
func (s *AuthService) LoginOrRegisterGitHub(ctx context.Context, ghUser *auth.GitHubUser) (*AuthResult, error) {
	if ghUser == nil {
		return nil, fmt.Errorf("service/auth: GitHub user must not be nil")
	}

	user, err := s.users.GetByGitHubID(ctx, ghUser.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: looking up GitHub user %d: %w", ghUser.ID, err)
	}

	// Link an existing email/password account to this GitHub identity
	// rather than creating a duplicate.
	if user == nil && ghUser.Email != "" {
		user, err = s.users.GetByEmail(ctx, strings.ToLower(ghUser.Email))
		if err != nil {
			return nil, fmt.Errorf("service/auth: looking up user by email: %w", err)
		}
		if user != nil {
			user.GitHubID = ghUser.ID
			if err := s.users.Update(ctx, user); err != nil {
				return nil, fmt.Errorf("service/auth: linking GitHub account: %w", err)
			}
		}
	}

	if user == nil {
		email := strings.ToLower(ghUser.Email)
		if email == "" {
			// GitHub users may hide their email; synthesize a stable one so
			// the unique email column holds.
			email = fmt.Sprintf("github-%d@users.noreply.github.com", ghUser.ID)
		}

		user = &model.User{
			Email:    email,
			GitHubID: ghUser.ID,
		}
		if ghUser.Name != "" {
			name := ghUser.Name
			user.Name = &name
		} else if ghUser.Login != "" {
			login := ghUser.Login
			user.Name = &login
		}

		if err := s.users.Create(ctx, user); err != nil {
			return nil, fmt.Errorf("service/auth: creating user (githubID=%d): %w", ghUser.ID, err)
		}
	}

	s.logger.Info("user authenticated via GitHub",
		slog.String("userID", user.ID),
		slog.Int64("githubID", ghUser.ID),
	)

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}

	return &AuthResult{User: user, Token: token}, nil
}

// ForgotPassword creates a single-use reset token and emails a reset link.
// Unknown emails succeed silently — the response never reveals whether an
// account exists.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return apperror.ValidationFailed("email", "email is required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("service/auth: looking up user: %w", err)
	}
	if user == nil {
		s.logger.Info("password reset requested for unknown email")
		return nil
	}

	token := &model.PasswordResetToken{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(resetTokenTTL),
	}
	if err := s.users.CreateResetToken(ctx, token); err != nil {
		return fmt.Errorf("service/auth: storing reset token: %w", err)
	}

	resetURL := fmt.Sprintf("%s/dashboard/reset-password?token=%s", s.baseURL, token.ID)
	if err := s.mailer.SendPasswordReset(user.Email, resetURL); err != nil {
		return fmt.Errorf("service/auth: sending reset email: %w", err)
	}

	s.logger.Info("password reset email sent", slog.String("userID", user.ID))
	return nil
}

// ResetPassword consumes a reset token and stores the new password hash.
// Invalid and expired tokens fail identically.
func (s *AuthService) ResetPassword(ctx context.Context, input ResetPasswordInput) error {
	if err := s.validator.Struct(input); err != nil {
		return err
	}

	token, err := s.users.GetResetToken(ctx, input.Token)
	if err != nil {
		return fmt.Errorf("service/auth: looking up reset token: %w", err)
	}
	if token == nil || time.Now().After(token.ExpiresAt) {
		return apperror.ValidationFailed("token", "reset link is invalid or expired")
	}

	hash, err := s.passwords.Hash(input.Password)
	if err != nil {
		return fmt.Errorf("service/auth: hashing password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, token.UserID, hash); err != nil {
		return fmt.Errorf("service/auth: updating password: %w", err)
	}

	// Single use: a consumed token must not work twice.
	if err := s.users.DeleteResetToken(ctx, token.ID); err != nil {
		return fmt.Errorf("service/auth: deleting reset token: %w", err)
	}

	s.logger.Info("password reset completed", slog.String("userID", token.UserID))
	return nil
}

// GetUserByID returns the user for /api/me.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, apperror.Unauthorized("")
	}

	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", id, err)
	}
	if user == nil {
		return nil, apperror.NotFound("user", id)
	}
	return user, nil
}
