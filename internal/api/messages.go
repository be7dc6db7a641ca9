package api

import (
	"fmt"

	"github.com/wastewatch/wastewatch/internal/platform/httpx"
)

// Describe renders err for an inline banner next to the action that failed.
// The body's detail, message and error fields are tried in that order, then
// "Failed to <action> (<status>)", or "(network error)" without a response.
func Describe(err error, action string) string {
	if err == nil {
		return ""
	}
	apiErr, ok := AsError(err)
	if !ok || !apiErr.HasResponse() {
		return fmt.Sprintf("Failed to %s (network error)", action)
	}
	for _, candidate := range []string{apiErr.Payload.Detail, apiErr.Payload.Message, apiErr.Payload.Error} {
		if candidate != "" {
			return candidate
		}
	}
	return fmt.Sprintf("Failed to %s (%d)", action, apiErr.Status)
}

// UserMessage renders err according to the failure taxonomy: connectivity,
// timeout, expired session, permission, validation and server failures each
// read differently.
func UserMessage(err error, action string) string {
	if err == nil {
		return ""
	}
	apiErr, ok := AsError(err)
	if !ok {
		return "An unexpected error occurred. Please try again."
	}
	switch apiErr.Kind {
	case KindNetwork:
		return "Network error. Please check your connection and try again."
	case KindTimeout:
		return "The server took too long to respond. Please try again."
	case KindUnauthorized:
		return "Authentication required. Please login again."
	case KindForbidden:
		return fmt.Sprintf("You do not have permission to %s.", action)
	case KindServer:
		return fmt.Sprintf("Server error (%d). Please try again.", apiErr.Status)
	}
	if msg := httpx.Flatten(apiErr.Payload); msg != "" {
		return msg
	}
	return fmt.Sprintf("Failed to %s. Please check your input and try again.", action)
}
