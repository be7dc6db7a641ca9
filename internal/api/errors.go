package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/wastewatch/wastewatch/internal/platform/httpx"
)

// Kind classifies a failed call.
type Kind int

const (
	// KindNetwork means no response was received.
	KindNetwork Kind = iota + 1
	// KindTimeout means the request was aborted after the configured timeout.
	KindTimeout
	// KindUnauthorized is a 401; the session is no longer valid.
	KindUnauthorized
	// KindForbidden is a 403; scoped to the endpoint, the session stays.
	KindForbidden
	// KindValidation is a 400 or 422 carrying field errors.
	KindValidation
	// KindNotFound is a 404.
	KindNotFound
	// KindRejected is any other 4xx.
	KindRejected
	// KindServer is a 5xx.
	KindServer
)

// Sentinels matched by errors.Is against *Error.
var (
	ErrNetwork      = errors.New("api: network error")
	ErrTimeout      = errors.New("api: request timed out")
	ErrUnauthorized = errors.New("api: unauthorized")
	ErrForbidden    = errors.New("api: forbidden")
	ErrValidation   = errors.New("api: validation failed")
	ErrNotFound     = errors.New("api: not found")
	ErrRejected     = errors.New("api: request rejected")
	ErrServer       = errors.New("api: server error")
	// ErrResponseTooLarge is returned when a body exceeds the read limit.
	ErrResponseTooLarge = errors.New("api: response too large")
)

var kindSentinels = map[Kind]error{
	KindNetwork:      ErrNetwork,
	KindTimeout:      ErrTimeout,
	KindUnauthorized: ErrUnauthorized,
	KindForbidden:    ErrForbidden,
	KindValidation:   ErrValidation,
	KindNotFound:     ErrNotFound,
	KindRejected:     ErrRejected,
	KindServer:       ErrServer,
}

func (k Kind) outcome(status int) string {
	switch k {
	case KindNetwork:
		return "network"
	case KindTimeout:
		return "timeout"
	}
	return fmt.Sprint(status)
}

// Error is returned for every failed call.
type Error struct {
	Kind    Kind
	Status  int
	Method  string
	Path    string
	Payload httpx.Payload
	Err     error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindNetwork:
		return fmt.Sprintf("api: %s %s: network error: %v", e.Method, e.Path, e.Err)
	case KindTimeout:
		return fmt.Sprintf("api: %s %s: timed out", e.Method, e.Path)
	}
	if msg := httpx.Flatten(e.Payload); msg != "" {
		return fmt.Sprintf("api: %s %s: status %d: %s", e.Method, e.Path, e.Status, msg)
	}
	return fmt.Sprintf("api: %s %s: status %d", e.Method, e.Path, e.Status)
}

// Unwrap exposes the transport cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind.
func (e *Error) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// HasResponse reports whether the backend answered at all.
func (e *Error) HasResponse() bool {
	return e.Status > 0
}

// AsError unwraps err into *Error.
func AsError(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// StatusOf returns the HTTP status carried by err, or 0 without a response.
func StatusOf(err error) int {
	if apiErr, ok := AsError(err); ok {
		return apiErr.Status
	}
	return 0
}

func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized:
		return KindUnauthorized
	case status == http.StatusForbidden:
		return KindForbidden
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return KindValidation
	case status == http.StatusNotFound:
		return KindNotFound
	case status >= 500:
		return KindServer
	}
	return KindRejected
}

func transportError(method, path string, err error) *Error {
	kind := KindNetwork
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		kind = KindTimeout
	}
	return &Error{Kind: kind, Method: method, Path: path, Err: err}
}
