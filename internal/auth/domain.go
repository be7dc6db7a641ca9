package auth

import (
	"fmt"
	"sort"
	"strings"

	"github.com/wastewatch/wastewatch/internal/shared"
)

// LoginForm is the sign-in form.
type LoginForm struct {
	Username string `validate:"required"`
	Password string `validate:"required"`
}

// RegisterForm is the sign-up form. Only citizens and officers may self-register.
type RegisterForm struct {
	Username        string `validate:"required,max=150"`
	Email           string `validate:"required,email"`
	Password        string `validate:"required,min=8"`
	ConfirmPassword string `validate:"required,eqfield=Password"`
	FirstName       string `validate:"max=150"`
	LastName        string `validate:"max=150"`
	PhoneNumber     string `validate:"omitempty,max=15"`
	Role            string `validate:"required,oneof=citizen officer"`
}

// FormError lists the fields that failed validation, keyed by form field.
type FormError struct {
	Fields map[string]string
}

func (e *FormError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for key := range e.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", key, e.Fields[key]))
	}
	return strings.Join(parts, ", ")
}

// Unwrap lets callers match shared.ErrInvalidInput.
func (e *FormError) Unwrap() error {
	return shared.ErrInvalidInput
}

// FlowError carries the message shown to the user for a failed flow.
type FlowError struct {
	Op      string
	Message string
	Err     error
}

func (e *FlowError) Error() string {
	return e.Message
}

// Unwrap exposes the gateway error.
func (e *FlowError) Unwrap() error {
	return e.Err
}

// Result describes what a successful flow did.
type Result struct {
	User    shared.User
	Message string
}
