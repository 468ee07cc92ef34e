package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/mrahman/sitebuilder/internal/apperror"
	"github.com/mrahman/sitebuilder/internal/auth"
	"github.com/mrahman/sitebuilder/internal/model"
	"github.com/mrahman/sitebuilder/internal/validate"
)

// fakeUserStore is an in-memory repository.UserStore.
type fakeUserStore struct {
	users  map[string]*model.User
	tokens map[string]*model.PasswordResetToken
	nextID int
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		users:  make(map[string]*model.User),
		tokens: make(map[string]*model.PasswordResetToken),
	}
}

func (f *fakeUserStore) Create(_ context.Context, user *model.User) error {
	for _, existing := range f.users {
		if existing.Email == user.Email {
			return apperror.Conflict("users", "users already exists")
		}
	}
	f.nextID++
	user.ID = fmt.Sprintf("user-%d", f.nextID)
	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()
	stored := *user
	f.users[user.ID] = &stored
	return nil
}

func (f *fakeUserStore) GetUserByID(_ context.Context, id string) (*model.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	copied := *user
	return &copied, nil
}

func (f *fakeUserStore) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, user := range f.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeUserStore) GetByGitHubID(_ context.Context, githubID int64) (*model.User, error) {
	if githubID == 0 {
		return nil, nil
	}
	for _, user := range f.users {
		if user.GitHubID == githubID {
			copied := *user
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeUserStore) Update(_ context.Context, user *model.User) error {
	stored, ok := f.users[user.ID]
	if !ok {
		return apperror.NotFound("users", user.ID)
	}
	stored.Email = user.Email
	stored.Name = user.Name
	stored.GitHubID = user.GitHubID
	return nil
}

func (f *fakeUserStore) UpdatePassword(_ context.Context, userID, passwordHash string) error {
	user, ok := f.users[userID]
	if !ok {
		return apperror.NotFound("users", userID)
	}
	user.PasswordHash = passwordHash
	return nil
}

func (f *fakeUserStore) CreateResetToken(_ context.Context, token *model.PasswordResetToken) error {
	stored := *token
	f.tokens[token.ID] = &stored
	return nil
}

func (f *fakeUserStore) GetResetToken(_ context.Context, token string) (*model.PasswordResetToken, error) {
	t, ok := f.tokens[token]
	if !ok {
		return nil, nil
	}
	copied := *t
	return &copied, nil
}

func (f *fakeUserStore) DeleteResetToken(_ context.Context, token string) error {
	delete(f.tokens, token)
	return nil
}

// fakeMailer records outgoing reset mail instead of sending anything.
type fakeMailer struct {
	sentTo   []string
	lastLink string
}

func (f *fakeMailer) SendPasswordReset(to, resetURL string) error {
	f.sentTo = append(f.sentTo, to)
	f.lastLink = resetURL
	return nil
}

func newTestAuthService(t *testing.T, users *fakeUserStore, mailer *fakeMailer) *AuthService {
	t.Helper()
	tokens, err := auth.NewTokenService("test-secret-at-least-16-chars!!")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return NewAuthService(users, tokens, auth.NewPasswordServiceWithCost(4),
		validate.New(), mailer, "http://localhost:8080", quietLogger())
}

func TestSignUp(t *testing.T) {
	users := newFakeUserStore()
	svc := newTestAuthService(t, users, &fakeMailer{})

	result, err := svc.SignUp(context.Background(), SignUpInput{
		Email: "Ana@Example.com", Password: "longenough", Name: "Ana",
	})
	if err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}

	if result.Token == "" {
		t.Error("SignUp() did not issue a session token")
	}
	if result.User.Email != "ana@example.com" {
		t.Errorf("Email = %q, want lowercased", result.User.Email)
	}
	if result.User.PasswordHash == "longenough" || result.User.PasswordHash == "" {
		t.Error("password stored as plaintext or not at all")
	}
}

func TestSignUp_DuplicateEmailIsConflict(t *testing.T) {
	users := newFakeUserStore()
	svc := newTestAuthService(t, users, &fakeMailer{})
	ctx := context.Background()

	input := SignUpInput{Email: "taken@example.com", Password: "longenough"}
	if _, err := svc.SignUp(ctx, input); err != nil {
		t.Fatalf("first SignUp() error = %v", err)
	}

	_, err := svc.SignUp(ctx, input)
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("second SignUp() error = %v, want ErrConflict", err)
	}
}

func TestSignUp_Validation(t *testing.T) {
	svc := newTestAuthService(t, newFakeUserStore(), &fakeMailer{})
	ctx := context.Background()

	cases := map[string]SignUpInput{
		"bad email":      {Email: "not-an-email", Password: "longenough"},
		"short password": {Email: "ok@example.com", Password: "short"},
		"empty":          {},
	}
	for name, input := range cases {
		if _, err := svc.SignUp(ctx, input); !errors.Is(err, apperror.ErrValidation) {
			t.Errorf("%s: error = %v, want ErrValidation", name, err)
		}
	}
}

func TestSignIn(t *testing.T) {
	users := newFakeUserStore()
	svc := newTestAuthService(t, users, &fakeMailer{})
	ctx := context.Background()

	if _, err := svc.SignUp(ctx, SignUpInput{Email: "ana@example.com", Password: "longenough"}); err != nil {
		t.Fatalf("setup SignUp: %v", err)
	}

	result, err := svc.SignIn(ctx, SignInInput{Email: "ana@example.com", Password: "longenough"})
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	if result.Token == "" {
		t.Error("SignIn() did not issue a session token")
	}
}

func TestSignIn_WrongCredentialsLookIdentical(t *testing.T) {
	users := newFakeUserStore()
	svc := newTestAuthService(t, users, &fakeMailer{})
	ctx := context.Background()

	if _, err := svc.SignUp(ctx, SignUpInput{Email: "ana@example.com", Password: "longenough"}); err != nil {
		t.Fatalf("setup SignUp: %v", err)
	}

	// Wrong password and unknown email must both be the same 401 — no
	// account enumeration through error messages.
	_, wrongPw := svc.SignIn(ctx, SignInInput{Email: "ana@example.com", Password: "wrongwrong"})
	_, unknown := svc.SignIn(ctx, SignInInput{Email: "ghost@example.com", Password: "whatever1"})

	if !errors.Is(wrongPw, apperror.ErrUnauthorized) {
		t.Errorf("wrong password: error = %v, want ErrUnauthorized", wrongPw)
	}
	if !errors.Is(unknown, apperror.ErrUnauthorized) {
		t.Errorf("unknown email: error = %v, want ErrUnauthorized", unknown)
	}

	var appErr1, appErr2 *apperror.AppError
	if errors.As(wrongPw, &appErr1) && errors.As(unknown, &appErr2) && appErr1.Message != appErr2.Message {
		t.Errorf("messages differ: %q vs %q", appErr1.Message, appErr2.Message)
	}
}

func TestLoginOrRegisterGitHub_CreatesUserOnFirstSignIn(t *testing.T) {
	users := newFakeUserStore()
	svc := newTestAuthService(t, users, &fakeMailer{})

	result, err := svc.LoginOrRegisterGitHub(context.Background(), &auth.GitHubUser{
		ID: 42, Login: "octocat", Email: "octo@example.com",
	})
	if err != nil {
		t.Fatalf("LoginOrRegisterGitHub() error = %v", err)
	}
	if result.User.ID == "" || result.Token == "" {
		t.Fatal("first GitHub sign-in should create a user and issue a token")
	}

	// Second sign-in finds the same account instead of creating another.
	again, err := svc.LoginOrRegisterGitHub(context.Background(), &auth.GitHubUser{
		ID: 42, Login: "octocat", Email: "octo@example.com",
	})
	if err != nil {
		t.Fatalf("second LoginOrRegisterGitHub() error = %v", err)
	}
	if again.User.ID != result.User.ID {
		t.Errorf("second sign-in created user %s, want %s", again.User.ID, result.User.ID)
	}
}

func TestLoginOrRegisterGitHub_LinksExistingEmailAccount(t *testing.T) {
	users := newFakeUserStore()
	svc := newTestAuthService(t, users, &fakeMailer{})
	ctx := context.Background()

	signedUp, err := svc.SignUp(ctx, SignUpInput{Email: "ana@example.com", Password: "longenough"})
	if err != nil {
		t.Fatalf("setup SignUp: %v", err)
	}

	result, err := svc.LoginOrRegisterGitHub(ctx, &auth.GitHubUser{
		ID: 7, Login: "ana", Email: "ana@example.com",
	})
	if err != nil {
		t.Fatalf("LoginOrRegisterGitHub() error = %v", err)
	}
	if result.User.ID != signedUp.User.ID {
		t.Errorf("GitHub sign-in created user %s instead of linking %s", result.User.ID, signedUp.User.ID)
	}
}

func TestForgotPassword_SendsTokenLink(t *testing.T) {
	users := newFakeUserStore()
	mailer := &fakeMailer{}
	svc := newTestAuthService(t, users, mailer)
	ctx := context.Background()

	if _, err := svc.SignUp(ctx, SignUpInput{Email: "ana@example.com", Password: "longenough"}); err != nil {
		t.Fatalf("setup SignUp: %v", err)
	}

	if err := svc.ForgotPassword(ctx, "ana@example.com"); err != nil {
		t.Fatalf("ForgotPassword() error = %v", err)
	}
	if len(mailer.sentTo) != 1 || mailer.sentTo[0] != "ana@example.com" {
		t.Errorf("sentTo = %v, want one mail to the account", mailer.sentTo)
	}
	if len(users.tokens) != 1 {
		t.Errorf("stored %d reset tokens, want 1", len(users.tokens))
	}
	if mailer.lastLink == "" {
		t.Error("reset mail has no link")
	}
}

func TestForgotPassword_UnknownEmailIsSilent(t *testing.T) {
	mailer := &fakeMailer{}
	svc := newTestAuthService(t, newFakeUserStore(), mailer)

	// Must succeed without sending anything — the response never reveals
	// whether an account exists.
	if err := svc.ForgotPassword(context.Background(), "ghost@example.com"); err != nil {
		t.Fatalf("ForgotPassword() for unknown email: error = %v, want nil", err)
	}
	if len(mailer.sentTo) != 0 {
		t.Errorf("sent %d mails for an unknown email, want 0", len(mailer.sentTo))
	}
}

func TestResetPassword_FullFlow(t *testing.T) {
	users := newFakeUserStore()
	mailer := &fakeMailer{}
	svc := newTestAuthService(t, users, mailer)
	ctx := context.Background()

	if _, err := svc.SignUp(ctx, SignUpInput{Email: "ana@example.com", Password: "oldpassword"}); err != nil {
		t.Fatalf("setup SignUp: %v", err)
	}
	if err := svc.ForgotPassword(ctx, "ana@example.com"); err != nil {
		t.Fatalf("setup ForgotPassword: %v", err)
	}

	var tokenID string
	for id := range users.tokens {
		tokenID = id
	}

	if err := svc.ResetPassword(ctx, ResetPasswordInput{Token: tokenID, Password: "newpassword"}); err != nil {
		t.Fatalf("ResetPassword() error = %v", err)
	}

	// Old password out, new password in.
	if _, err := svc.SignIn(ctx, SignInInput{Email: "ana@example.com", Password: "oldpassword"}); !errors.Is(err, apperror.ErrUnauthorized) {
		t.Errorf("old password still works after reset: error = %v", err)
	}
	if _, err := svc.SignIn(ctx, SignInInput{Email: "ana@example.com", Password: "newpassword"}); err != nil {
		t.Errorf("new password rejected after reset: error = %v", err)
	}

	// Single use: the same token must not work again.
	err := svc.ResetPassword(ctx, ResetPasswordInput{Token: tokenID, Password: "thirdpassword"})
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("reusing a consumed token: error = %v, want ErrValidation", err)
	}
}

func TestResetPassword_ExpiredToken(t *testing.T) {
	users := newFakeUserStore()
	svc := newTestAuthService(t, users, &fakeMailer{})
	ctx := context.Background()

	signedUp, err := svc.SignUp(ctx, SignUpInput{Email: "ana@example.com", Password: "longenough"})
	if err != nil {
		t.Fatalf("setup SignUp: %v", err)
	}

	users.tokens["stale"] = &model.PasswordResetToken{
		ID:        "stale",
		UserID:    signedUp.User.ID,
		ExpiresAt: time.Now().Add(-time.Minute),
	}

	err = svc.ResetPassword(ctx, ResetPasswordInput{Token: "stale", Password: "newpassword"})
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("expired token: error = %v, want ErrValidation", err)
	}
}

func TestGetUserByID(t *testing.T) {
	users := newFakeUserStore()
	svc := newTestAuthService(t, users, &fakeMailer{})
	ctx := context.Background()

	signedUp, err := svc.SignUp(ctx, SignUpInput{Email: "me@example.com", Password: "longenough"})
	if err != nil {
		t.Fatalf("setup SignUp: %v", err)
	}

	user, err := svc.GetUserByID(ctx, signedUp.User.ID)
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}
	if user.Email != "me@example.com" {
		t.Errorf("Email = %q, want %q", user.Email, "me@example.com")
	}

	if _, err := svc.GetUserByID(ctx, "ghost"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("unknown id: error = %v, want ErrNotFound", err)
	}
	if _, err := svc.GetUserByID(ctx, ""); !errors.Is(err, apperror.ErrUnauthorized) {
		t.Errorf("empty id: error = %v, want ErrUnauthorized", err)
	}
}
