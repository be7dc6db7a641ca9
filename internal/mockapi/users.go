package mockapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/wastewatch/wastewatch/internal/api"
	"github.com/wastewatch/wastewatch/internal/platform/httpx"
	"github.com/wastewatch/wastewatch/internal/rbac"
	"github.com/wastewatch/wastewatch/internal/shared"
)

const requiredField = "This field is required."

// fieldSet accumulates validation messages in the order fields are checked.
type fieldSet []httpx.FieldError

func (f *fieldSet) add(field, message string) {
	*f = append(*f, httpx.FieldError{Field: field, Messages: []string{message}})
}

func (f *fieldSet) require(field, value string) {
	if strings.TrimSpace(value) == "" {
		f.add(field, requiredField)
	}
}

func (f fieldSet) respond(w http.ResponseWriter) bool {
	if len(f) == 0 {
		return false
	}
	httpx.Fields(w, http.StatusBadRequest, f...)
	return true
}

func badJSON(w http.ResponseWriter, err error) {
	httpx.Detail(w, http.StatusBadRequest, "JSON parse error - "+err.Error())
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var creds api.Credentials
	if err := httpx.DecodeJSON(r, &creds); err != nil {
		badJSON(w, err)
		return
	}
	var errs fieldSet
	errs.require("username", creds.Username)
	errs.require("password", creds.Password)
	if errs.respond(w) {
		return
	}
	acct, ok := s.store.authenticate(creds.Username, creds.Password)
	if !ok {
		httpx.JSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid credentials"})
		return
	}
	acct, ok = s.store.ensureProfile(acct.ID)
	if !ok {
		httpx.JSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid credentials"})
		return
	}
	tokens, err := s.tokens.pair(acct.ID)
	if err != nil {
		s.logger.Error("mint tokens", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, api.LoginResponse{
		Message: "Login successful",
		User:    acct.summary(),
		Role:    string(acct.Role),
		Tokens:  tokens,
	})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var in api.Registration
	if err := httpx.DecodeJSON(r, &in); err != nil {
		badJSON(w, err)
		return
	}
	var errs fieldSet
	errs.require("username", in.Username)
	errs.require("password", in.Password)
	errs.require("password2", in.Password2)
	if len(in.PhoneNumber) > 20 {
		errs.add("phone_number", "Ensure this field has no more than 20 characters.")
	}
	if errs.respond(w) {
		return
	}
	role := strings.TrimSpace(in.Role)
	if role == "" {
		role = string(shared.RoleCitizen)
	}
	switch {
	case in.Password != in.Password2:
		httpx.Fields(w, http.StatusBadRequest, httpx.FieldError{Field: "non_field_errors", Messages: []string{"Passwords do not match."}})
		return
	case !shared.Role(role).Valid():
		httpx.Fields(w, http.StatusBadRequest, httpx.FieldError{Field: "non_field_errors", Messages: []string{"Invalid role."}})
		return
	}
	acct, err := s.store.createAccount(account{
		Username:  strings.TrimSpace(in.Username),
		Email:     strings.TrimSpace(in.Email),
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Phone:     in.PhoneNumber,
		Role:      shared.Role(role),
	}, in.Password)
	switch {
	case errors.Is(err, errUsernameTaken):
		httpx.Fields(w, http.StatusBadRequest, httpx.FieldError{Field: "username", Messages: []string{err.Error()}})
		return
	case errors.Is(err, errEmailTaken):
		httpx.Fields(w, http.StatusBadRequest, httpx.FieldError{Field: "email", Messages: []string{err.Error()}})
		return
	case err != nil:
		s.logger.Error("register account", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, api.RegisterResponse{
		Message: "User registered successfully",
		User:    acct.summary(),
		Role:    string(acct.Role),
	})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "Logout successful"})
}

func (s *Server) listProfiles(w http.ResponseWriter, r *http.Request) {
	respondList(s, w, s.store.profiles())
}

func (s *Server) getProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	profile, ok := s.store.profile(id)
	if !ok {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	httpx.JSON(w, http.StatusOK, profile)
}

type profileBody struct {
	User        json.Number `json:"user"`
	UserID      json.Number `json:"user_id"`
	PhoneNumber *string     `json:"phone_number"`
	Role        *string     `json:"role"`
}

func (b profileBody) validate(partial bool) (phone string, role shared.Role, errs fieldSet) {
	if b.PhoneNumber != nil {
		phone = *b.PhoneNumber
		if len(phone) > 20 {
			errs.add("phone_number", "Ensure this field has no more than 20 characters.")
		}
	}
	switch {
	case b.Role != nil:
		role = shared.Role(*b.Role)
		if !role.Valid() {
			errs.add("role", `"`+*b.Role+`" is not a valid choice.`)
		}
	case !partial:
		role = shared.RoleCitizen
	}
	return phone, role, errs
}

func (s *Server) createProfile(w http.ResponseWriter, r *http.Request) {
	var body profileBody
	if err := httpx.DecodeJSON(r, &body); err != nil {
		badJSON(w, err)
		return
	}
	phone, role, errs := body.validate(false)
	if errs.respond(w) {
		return
	}
	principal, _ := rbac.PrincipalFromContext(r.Context())
	userID := principal.UserID
	for _, raw := range []json.Number{body.User, body.UserID} {
		if raw == "" {
			continue
		}
		id, err := raw.Int64()
		if err != nil {
			httpx.Fields(w, http.StatusBadRequest, httpx.FieldError{Field: "user", Messages: []string{"A valid integer is required."}})
			return
		}
		userID = id
		break
	}
	profile, err := s.store.attachProfile(userID, phone, role)
	switch {
	case errors.Is(err, errNoAccount):
		httpx.JSON(w, http.StatusBadRequest, map[string]string{"user": err.Error()})
		return
	case errors.Is(err, errProfileExists):
		httpx.Fields(w, http.StatusBadRequest, httpx.FieldError{Field: "user", Messages: []string{err.Error()}})
		return
	case err != nil:
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, profile)
}

func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	if _, ok := s.store.profile(id); !ok {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	var body profileBody
	if err := httpx.DecodeJSON(r, &body); err != nil {
		badJSON(w, err)
		return
	}
	phone, role, errs := body.validate(r.Method == http.MethodPatch)
	if errs.respond(w) {
		return
	}
	if body.PhoneNumber == nil {
		current, _ := s.store.profile(id)
		phone = current.PhoneNumber
	}
	profile, ok := s.store.updateProfile(id, phone, role)
	if !ok {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	httpx.JSON(w, http.StatusOK, profile)
}

func (s *Server) deleteProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok || !s.store.deleteProfile(id) {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
