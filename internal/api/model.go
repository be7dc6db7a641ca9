package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/wastewatch/wastewatch/internal/shared"
)

// ReportStatus is the triage state of a report.
type ReportStatus string

const (
	StatusPending    ReportStatus = "pending"
	StatusInProgress ReportStatus = "in_progress"
	StatusResolved   ReportStatus = "resolved"
)

// ReportStatuses lists the statuses in workflow order.
func ReportStatuses() []ReportStatus {
	return []ReportStatus{StatusPending, StatusInProgress, StatusResolved}
}

// Valid reports whether s is a known status.
func (s ReportStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusResolved:
		return true
	}
	return false
}

// Label is the human-readable status name.
func (s ReportStatus) Label() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusInProgress:
		return "On Progress"
	case StatusResolved:
		return "Resolved"
	}
	return string(s)
}

// UserSummary is the nested submitter shown on reports.
type UserSummary struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Report is a citizen's waste report.
type Report struct {
	ID          int64        `json:"id"`
	UserID      int64        `json:"user"`
	UserDetails *UserSummary `json:"user_details,omitempty"`
	WasteType   string       `json:"waste_type"`
	Location    string       `json:"location"`
	Description string       `json:"description"`
	Image       string       `json:"image,omitempty"`
	Status      ReportStatus `json:"status"`
	CreatedAt   time.Time    `json:"time_created"`
}

// Key identifies the report for reconciliation.
func (r Report) Key() int64 { return r.ID }

// ReportedBy names the submitter: username, then "User N", then "Unknown user".
func (r Report) ReportedBy() string {
	if r.UserDetails != nil && r.UserDetails.Username != "" {
		return r.UserDetails.Username
	}
	if r.UserID > 0 {
		return fmt.Sprintf("User %d", r.UserID)
	}
	return "Unknown user"
}

// WasteType is an entry of the waste taxonomy. Reports reference it by name.
type WasteType struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Key identifies the waste type for reconciliation.
func (w WasteType) Key() int64 { return w.ID }

// UserProfile is an account as listed by the admin endpoints.
type UserProfile struct {
	ID          int64
	UserID      int64
	Username    string
	Email       string
	FirstName   string
	LastName    string
	PhoneNumber string
	Role        shared.Role
}

// Key identifies the profile for reconciliation.
func (p UserProfile) Key() int64 { return p.ID }

type profileUser struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type profileWire struct {
	ID          int64           `json:"id"`
	User        json.RawMessage `json:"user,omitempty"`
	Username    string          `json:"username,omitempty"`
	Email       string          `json:"email,omitempty"`
	FirstName   string          `json:"first_name,omitempty"`
	LastName    string          `json:"last_name,omitempty"`
	PhoneNumber string          `json:"phone_number"`
	Role        string          `json:"role"`
}

// UnmarshalJSON accepts both the nested {user:{...}} shape and flat fields.
func (p *UserProfile) UnmarshalJSON(data []byte) error {
	var wire profileWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	out := UserProfile{
		ID:          wire.ID,
		Username:    wire.Username,
		Email:       wire.Email,
		FirstName:   wire.FirstName,
		LastName:    wire.LastName,
		PhoneNumber: wire.PhoneNumber,
		Role:        shared.Role(strings.ToLower(strings.TrimSpace(wire.Role))),
	}
	nested := bytes.TrimSpace(wire.User)
	switch {
	case len(nested) > 0 && nested[0] == '{':
		var u profileUser
		if err := json.Unmarshal(nested, &u); err != nil {
			return fmt.Errorf("decode profile user: %w", err)
		}
		out.UserID = u.ID
		out.Username = firstNonEmpty(u.Username, out.Username)
		out.Email = firstNonEmpty(u.Email, out.Email)
		out.FirstName = firstNonEmpty(u.FirstName, out.FirstName)
		out.LastName = firstNonEmpty(u.LastName, out.LastName)
	case len(nested) > 0 && nested[0] != 'n':
		if err := json.Unmarshal(nested, &out.UserID); err != nil {
			return fmt.Errorf("decode profile user id: %w", err)
		}
	}
	*p = out
	return nil
}

// MarshalJSON writes the nested shape served by the backend.
func (p UserProfile) MarshalJSON() ([]byte, error) {
	user, err := json.Marshal(profileUser{
		ID:        p.UserID,
		Username:  p.Username,
		Email:     p.Email,
		FirstName: p.FirstName,
		LastName:  p.LastName,
	})
	if err != nil {
		return nil, err
	}
	return json.Marshal(profileWire{
		ID:          p.ID,
		User:        user,
		PhoneNumber: p.PhoneNumber,
		Role:        string(p.Role),
	})
}

// ProfileInput is the write shape for profile create and update.
type ProfileInput struct {
	UserID      int64  `json:"user,omitempty"`
	PhoneNumber string `json:"phone_number"`
	Role        string `json:"role"`
}

// Credentials is the login request body.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AccountUser is the user object returned by login and register.
type AccountUser struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// LoginResponse is the body of a successful login.
type LoginResponse struct {
	Message string        `json:"message"`
	User    AccountUser   `json:"user"`
	Role    string        `json:"role"`
	Tokens  shared.Tokens `json:"tokens"`
}

// Registration is the register request body.
type Registration struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	Password2   string `json:"password2"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	PhoneNumber string `json:"phone_number"`
	Role        string `json:"role"`
}

// RegisterResponse is the body of a successful registration.
type RegisterResponse struct {
	Message string      `json:"message"`
	User    AccountUser `json:"user"`
	Role    string      `json:"role"`
}

// WasteTypeInput is the write shape for waste types.
type WasteTypeInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Attachment is an optional report photo.
type Attachment struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// ReportInput is the create shape for reports. Status defaults to pending.
type ReportInput struct {
	WasteType   string
	Location    string
	Description string
	Status      ReportStatus
	Image       *Attachment
}

// ReportPatch carries the fields of a partial report update.
type ReportPatch struct {
	Status      *ReportStatus `json:"status,omitempty"`
	WasteType   *string       `json:"waste_type,omitempty"`
	Location    *string       `json:"location,omitempty"`
	Description *string       `json:"description,omitempty"`
}

// StatusPatch builds a patch that only changes the status.
func StatusPatch(status ReportStatus) ReportPatch {
	return ReportPatch{Status: &status}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
