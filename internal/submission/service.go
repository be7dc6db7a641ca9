// Package submission runs the citizen report form.
package submission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/wastewatch/wastewatch/internal/api"
	"github.com/wastewatch/wastewatch/internal/rbac"
	"github.com/wastewatch/wastewatch/internal/session"
	"github.com/wastewatch/wastewatch/internal/shared"
)

// Messages shown by the form.
const (
	MissingFields   = "Please fill in all required fields"
	NotSignedIn     = "You must be logged in to submit a report."
	Submitted       = "Waste report submitted successfully!"
	ManualEntryHint = "No waste types available - enter manually"
)

// Gateway is the part of the API client the form uses.
type Gateway interface {
	ListWasteTypes(ctx context.Context) ([]api.WasteType, error)
	CreateReport(ctx context.Context, in api.ReportInput) (api.Report, error)
}

// SessionSource reports who is signed in.
type SessionSource interface {
	Snapshot() session.Snapshot
}

// Form is a report being authored. WasteType is a name; it does not have to
// match an entry of the taxonomy.
type Form struct {
	WasteType   string `validate:"required"`
	Location    string `validate:"required"`
	Description string `validate:"required"`
	Image       *api.Attachment
}

// Options are the choices offered when the form opens.
type Options struct {
	WasteTypes []api.WasteType
	FreeText   bool
	Hint       string
}

// Error carries the message shown above the form.
type Error struct {
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }

// Unwrap exposes the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// Service submits reports for citizens.
type Service struct {
	gateway   Gateway
	sessions  SessionSource
	logger    *slog.Logger
	validator *validator.Validate
}

// NewService constructs a Service.
func NewService(gateway Gateway, sessions SessionSource, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{gateway: gateway, sessions: sessions, logger: logger, validator: validator.New()}
}

func (s *Service) authorize() (shared.User, error) {
	snap := s.sessions.Snapshot()
	if !snap.Authenticated() {
		return shared.User{}, &Error{Message: NotSignedIn, Err: shared.ErrNotAuthenticated}
	}
	if !rbac.For(snap.User.Role).CanSubmitReports {
		return shared.User{}, &Error{Message: "Only citizens can submit waste reports.", Err: shared.ErrForbidden}
	}
	return *snap.User, nil
}

// Prepare loads the waste types to choose from. When they cannot be loaded
// the form falls back to free-text entry instead of failing.
func (s *Service) Prepare(ctx context.Context) (Options, error) {
	if _, err := s.authorize(); err != nil {
		return Options{}, err
	}
	wastes, err := s.gateway.ListWasteTypes(ctx)
	if err != nil {
		s.logger.Warn("waste types unavailable, using free text", slog.Any("error", err))
		if errors.Is(err, api.ErrUnauthorized) {
			return Options{}, &Error{Message: api.UserMessage(err, "submit reports"), Err: err}
		}
		return Options{FreeText: true, Hint: ManualEntryHint}, nil
	}
	if len(wastes) == 0 {
		return Options{WasteTypes: []api.WasteType{}, FreeText: true, Hint: ManualEntryHint}, nil
	}
	return Options{WasteTypes: wastes}, nil
}

// Submit validates form and creates the report with status pending.
func (s *Service) Submit(ctx context.Context, form Form) (api.Report, error) {
	user, err := s.authorize()
	if err != nil {
		return api.Report{}, err
	}
	form.WasteType = strings.TrimSpace(form.WasteType)
	form.Location = strings.TrimSpace(form.Location)
	form.Description = strings.TrimSpace(form.Description)
	if err := s.validator.Struct(form); err != nil {
		return api.Report{}, &Error{Message: MissingFields, Err: fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)}
	}
	report, err := s.gateway.CreateReport(ctx, api.ReportInput{
		WasteType:   form.WasteType,
		Location:    form.Location,
		Description: form.Description,
		Status:      api.StatusPending,
		Image:       form.Image,
	})
	if err != nil {
		s.logger.Warn("report submission failed", slog.Int64("user_id", user.ID), slog.Any("error", err))
		return api.Report{}, &Error{Message: api.UserMessage(err, "submit reports"), Err: err}
	}
	s.logger.Info("report submitted", slog.Int64("report_id", report.ID), slog.Int64("user_id", user.ID))
	return report, nil
}
