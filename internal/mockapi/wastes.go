package mockapi

import (
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/wastewatch/wastewatch/internal/api"
	"github.com/wastewatch/wastewatch/internal/platform/httpx"
)

const maxNameLength = 100

func (s *Server) listWasteTypes(w http.ResponseWriter, r *http.Request) {
	respondList(s, w, s.store.wasteTypes())
}

func (s *Server) getWasteType(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	wt, ok := s.store.wasteType(id)
	if !ok {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	httpx.JSON(w, http.StatusOK, wt)
}

type wasteTypeBody struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// apply validates the body against current and returns the merged entry.
// Partial bodies keep the fields they omit.
func (b wasteTypeBody) apply(current api.WasteType, partial bool) (api.WasteType, fieldSet) {
	var errs fieldSet
	out := current
	if b.Name != nil || !partial {
		name := ""
		if b.Name != nil {
			name = strings.TrimSpace(*b.Name)
		}
		switch {
		case name == "":
			errs.add("name", requiredField)
		case utf8.RuneCountInString(name) > maxNameLength:
			errs.add("name", "Ensure this field has no more than 100 characters.")
		}
		out.Name = name
	}
	if b.Description != nil || !partial {
		description := ""
		if b.Description != nil {
			description = strings.TrimSpace(*b.Description)
		}
		if description == "" {
			errs.add("description", requiredField)
		}
		out.Description = description
	}
	return out, errs
}

func (s *Server) createWasteType(w http.ResponseWriter, r *http.Request) {
	var body wasteTypeBody
	if err := httpx.DecodeJSON(r, &body); err != nil {
		badJSON(w, err)
		return
	}
	wt, errs := body.apply(api.WasteType{}, false)
	if errs.respond(w) {
		return
	}
	httpx.JSON(w, http.StatusCreated, s.store.saveWasteType(wt))
}

func (s *Server) updateWasteType(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	current, ok := s.store.wasteType(id)
	if !ok {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	var body wasteTypeBody
	if err := httpx.DecodeJSON(r, &body); err != nil {
		badJSON(w, err)
		return
	}
	wt, errs := body.apply(current, r.Method == http.MethodPatch)
	if errs.respond(w) {
		return
	}
	httpx.JSON(w, http.StatusOK, s.store.saveWasteType(wt))
}

func (s *Server) deleteWasteType(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok || !s.store.deleteWasteType(id) {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
