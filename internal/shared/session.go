package shared

import (
	"strings"
)

// Role identifies what a signed-in user may see and do.
type Role string

const (
	// RoleCitizen submits reports and sees only their own.
	RoleCitizen Role = "citizen"
	// RoleOfficer triages every report.
	RoleOfficer Role = "officer"
	// RoleAdmin additionally manages users and the waste-type taxonomy.
	RoleAdmin Role = "admin"
)

// ParseRole normalises a backend role string. The boolean is false for unknown roles.
func ParseRole(raw string) (Role, bool) {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	return role, role.Valid()
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleCitizen, RoleOfficer, RoleAdmin:
		return true
	}
	return false
}

// User is the identity blob persisted alongside the session tokens.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Role     Role   `json:"role"`
}

// DisplayName prefers the full name and falls back to the username.
func (u User) DisplayName() string {
	if name := strings.TrimSpace(u.Name); name != "" {
		return name
	}
	return u.Username
}

// Validate rejects identities that cannot back a session.
func (u User) Validate() error {
	if u.ID <= 0 || strings.TrimSpace(u.Username) == "" {
		return ErrMalformedIdentity
	}
	if !u.Role.Valid() {
		return ErrMalformedIdentity
	}
	return nil
}

// Tokens carries the bearer credentials issued at login.
type Tokens struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Complete reports whether both tokens are present.
func (t Tokens) Complete() bool {
	return t.Access != "" && t.Refresh != ""
}

// Session couples an identity with its tokens.
type Session struct {
	User   User
	Tokens Tokens
}

// Valid reports whether the session has a usable identity and both tokens.
func (s Session) Valid() bool {
	return s.User.Validate() == nil && s.Tokens.Complete()
}
