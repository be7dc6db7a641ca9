package shared

import "errors"

var (
	// ErrNotAuthenticated indicates an operation that needs a session ran without one.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrForbidden indicates the current role lacks the capability for an action.
	ErrForbidden = errors.New("permission denied")
	// ErrMalformedIdentity indicates a persisted or received identity is unusable.
	ErrMalformedIdentity = errors.New("malformed identity")
	// ErrInvalidInput indicates client-side validation rejected a form.
	ErrInvalidInput = errors.New("invalid input")
	// ErrBusy indicates the same mutation is already in flight.
	ErrBusy = errors.New("operation already in progress")
	// ErrDeclined indicates the user did not confirm a destructive action.
	ErrDeclined = errors.New("action not confirmed")
)
