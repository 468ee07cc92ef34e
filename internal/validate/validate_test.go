package validate

import (
	"errors"
	"testing"

	"github.com/mrahman/sitebuilder/internal/apperror"
)

type signupForm struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

func TestStruct_Valid(t *testing.T) {
	v := New()

	err := v.Struct(signupForm{Email: "ana@example.com", Password: "longenough"})
	if err != nil {
		t.Errorf("Struct() error = %v for valid input", err)
	}
}

func TestStruct_FailureIsValidationError(t *testing.T) {
	v := New()

	err := v.Struct(signupForm{Email: "not-an-email", Password: "longenough"})
	if !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("Struct() error = %v, want ErrValidation", err)
	}
}

func TestStruct_UsesJSONFieldNames(t *testing.T) {
	v := New()

	err := v.Struct(signupForm{Email: "ana@example.com", Password: "short"})

	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("Struct() error = %v, want *apperror.AppError", err)
	}
	// Clients see the wire name, not the Go field name.
	if appErr.Field != "password" {
		t.Errorf("Field = %q, want %q", appErr.Field, "password")
	}
}
