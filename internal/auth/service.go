// Package auth runs the sign-in and sign-up flows against the backend.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/wastewatch/wastewatch/internal/api"
	"github.com/wastewatch/wastewatch/internal/platform/httpx"
	"github.com/wastewatch/wastewatch/internal/shared"
)

// RegisteredMessage is shown after a successful sign-up.
const RegisteredMessage = "Registration successful! Please login with your credentials."

// Gateway is the subset of the API client the flows use.
type Gateway interface {
	Login(ctx context.Context, creds api.Credentials) (api.LoginResponse, error)
	Register(ctx context.Context, reg api.Registration) (api.RegisterResponse, error)
	BaseURL() string
}

// Sessions records a successful sign-in.
type Sessions interface {
	Login(ctx context.Context, user shared.User, tokens shared.Tokens) error
}

// Service wraps the authentication flows.
type Service struct {
	gateway   Gateway
	sessions  Sessions
	logger    *slog.Logger
	validator *validator.Validate
}

// NewService constructs a new Service.
func NewService(gateway Gateway, sessions Sessions, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{gateway: gateway, sessions: sessions, logger: logger, validator: validator.New()}
}

// Login authenticates and hands the identity and tokens to the session.
func (s *Service) Login(ctx context.Context, form LoginForm) (Result, error) {
	form.Username = strings.TrimSpace(form.Username)
	if err := s.validate(form); err != nil {
		return Result{}, err
	}
	resp, err := s.gateway.Login(ctx, api.Credentials{Username: form.Username, Password: form.Password})
	if err != nil {
		s.logger.Warn("login rejected", slog.String("username", form.Username), slog.Any("error", err))
		return Result{}, &FlowError{Op: "login", Message: s.loginMessage(err), Err: err}
	}
	user, err := IdentityFromLogin(resp)
	if err != nil {
		return Result{}, &FlowError{Op: "login", Message: "Login failed. Please try again.", Err: err}
	}
	if err := s.sessions.Login(ctx, user, resp.Tokens); err != nil {
		return Result{}, err
	}
	return Result{User: user, Message: resp.Message}, nil
}

// Register creates the account. The caller stays signed out and is expected
// to log in afterwards.
func (s *Service) Register(ctx context.Context, form RegisterForm) (Result, error) {
	form.Username = strings.TrimSpace(form.Username)
	form.Email = strings.TrimSpace(form.Email)
	form.Role = strings.ToLower(strings.TrimSpace(form.Role))
	if err := s.validate(form); err != nil {
		return Result{}, err
	}
	resp, err := s.gateway.Register(ctx, api.Registration{
		Username:    form.Username,
		Email:       form.Email,
		Password:    form.Password,
		Password2:   form.ConfirmPassword,
		FirstName:   strings.TrimSpace(form.FirstName),
		LastName:    strings.TrimSpace(form.LastName),
		PhoneNumber: strings.TrimSpace(form.PhoneNumber),
		Role:        form.Role,
	})
	if err != nil {
		return Result{}, &FlowError{Op: "register", Message: registerMessage(err), Err: err}
	}
	role, _ := shared.ParseRole(resp.Role)
	return Result{
		User: shared.User{
			ID:       resp.User.ID,
			Username: resp.User.Username,
			Email:    resp.User.Email,
			Name:     fullName(resp.User.FirstName, resp.User.LastName),
			Role:     role,
		},
		Message: RegisteredMessage,
	}, nil
}

// IdentityFromLogin maps a login response onto the persisted identity.
func IdentityFromLogin(resp api.LoginResponse) (shared.User, error) {
	role, ok := shared.ParseRole(resp.Role)
	if !ok {
		return shared.User{}, fmt.Errorf("unknown role %q: %w", resp.Role, shared.ErrMalformedIdentity)
	}
	user := shared.User{
		ID:       resp.User.ID,
		Username: resp.User.Username,
		Email:    resp.User.Email,
		Name:     fullName(resp.User.FirstName, resp.User.LastName),
		Role:     role,
	}
	if err := user.Validate(); err != nil {
		return shared.User{}, err
	}
	return user, nil
}

func (s *Service) validate(form any) error {
	err := s.validator.Struct(form)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("auth: validate: %w", err)
	}
	out := &FormError{Fields: make(map[string]string, len(fieldErrs))}
	for _, fieldErr := range fieldErrs {
		out.Fields[fieldErr.Field()] = fieldMessage(fieldErr)
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "eqfield":
		return "Passwords do not match"
	case "min":
		return fmt.Sprintf("Ensure this field has at least %s characters.", fe.Param())
	case "max":
		return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
	case "oneof":
		return fmt.Sprintf("Choose one of: %s.", strings.ReplaceAll(fe.Param(), " ", ", "))
	}
	return fe.Error()
}

func (s *Service) loginMessage(err error) string {
	switch {
	case errors.Is(err, api.ErrTimeout):
		return "The server took too long to respond. Make sure the backend is running and try again."
	case errors.Is(err, api.ErrNetwork):
		return fmt.Sprintf("Could not reach the server (%s). Make sure the backend is running and the endpoint is correct.", s.gateway.BaseURL())
	}
	if apiErr, ok := api.AsError(err); ok && apiErr.Payload.Error != "" {
		return apiErr.Payload.Error
	}
	return "Login failed. Please try again."
}

func registerMessage(err error) string {
	apiErr, ok := api.AsError(err)
	if !ok || !apiErr.HasResponse() {
		return "Registration failed. Please try again."
	}
	if apiErr.Kind == api.KindValidation {
		if msg := httpx.Flatten(apiErr.Payload); msg != "" {
			return msg
		}
	}
	if apiErr.Payload.Message != "" {
		return apiErr.Payload.Message
	}
	return "Registration failed"
}

func fullName(first, last string) string {
	return strings.TrimSpace(first + " " + last)
}
