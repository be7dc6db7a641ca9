package mockapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wastewatch/wastewatch/internal/api"
	"github.com/wastewatch/wastewatch/internal/platform/httpx"
	"github.com/wastewatch/wastewatch/internal/rbac"
	"github.com/wastewatch/wastewatch/internal/shared"
)

const (
	maxUploadBytes = 10 << 20
	maxImageBytes  = 5 << 20
)

// seesAllReports mirrors the backend queryset: officers and admins see every
// report, everyone else only their own.
func seesAllReports(p rbac.Principal) bool {
	return p.Role == shared.RoleOfficer || p.Role == shared.RoleAdmin
}

// visibleReport looks a report up through the caller's queryset so reports of
// other citizens are indistinguishable from missing ones.
func (s *Server) visibleReport(r *http.Request) (api.Report, rbac.Principal, bool) {
	p, ok := rbac.PrincipalFromContext(r.Context())
	if !ok {
		return api.Report{}, p, false
	}
	id, ok := pathID(r)
	if !ok {
		return api.Report{}, p, false
	}
	report, ok := s.store.report(id)
	if !ok || (!seesAllReports(p) && report.UserID != p.UserID) {
		return api.Report{}, p, false
	}
	return report, p, true
}

func (s *Server) listReports(w http.ResponseWriter, r *http.Request) {
	p, ok := rbac.PrincipalFromContext(r.Context())
	if !ok {
		respondList(s, w, []api.Report{})
		return
	}
	owner := p.UserID
	if seesAllReports(p) {
		owner = 0
	}
	respondList(s, w, s.store.listReports(owner))
}

func (s *Server) getReport(w http.ResponseWriter, r *http.Request) {
	report, _, ok := s.visibleReport(r)
	if !ok {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

// reportFields reads a report body sent as multipart, urlencoded or JSON into
// a flat field map.
func reportFields(r *http.Request) (map[string]string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	fields := make(map[string]string)
	switch mediaType {
	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			return nil, fmt.Errorf("Multipart form parse error - %w", err)
		}
		for key, values := range r.MultipartForm.Value {
			if len(values) > 0 {
				fields[key] = values[0]
			}
		}
		for key := range r.MultipartForm.File {
			fields[key] = ""
		}
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return nil, err
		}
		for key := range r.PostForm {
			fields[key] = r.PostForm.Get(key)
		}
	default:
		var raw map[string]any
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			return nil, fmt.Errorf("JSON parse error - %w", err)
		}
		for key, value := range raw {
			switch v := value.(type) {
			case string:
				fields[key] = v
			case nil:
				fields[key] = ""
			default:
				fields[key] = fmt.Sprint(v)
			}
		}
	}
	return fields, nil
}

func checkLength(errs *fieldSet, field, value string) {
	if utf8.RuneCountInString(value) > maxNameLength {
		errs.add(field, "Ensure this field has no more than 100 characters.")
	}
}

func checkStatus(errs *fieldSet, raw string) api.ReportStatus {
	status := api.ReportStatus(raw)
	if !status.Valid() {
		errs.add("status", fmt.Sprintf("%q is not a valid choice.", raw))
	}
	return status
}

func (s *Server) createReport(w http.ResponseWriter, r *http.Request) {
	p, ok := rbac.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	if p.Role != shared.RoleCitizen && p.Role != "" {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	fields, err := reportFields(r)
	if err != nil {
		httpx.Detail(w, http.StatusBadRequest, err.Error())
		return
	}
	var errs fieldSet
	for _, name := range []string{"waste_type", "location", "description"} {
		errs.require(name, fields[name])
	}
	checkLength(&errs, "waste_type", fields["waste_type"])
	checkLength(&errs, "location", fields["location"])
	status := api.StatusPending
	if raw, ok := fields["status"]; ok && raw != "" {
		status = checkStatus(&errs, raw)
	}
	if errs.respond(w) {
		return
	}
	imageURL, err := s.storeImage(r)
	if err != nil {
		httpx.Fields(w, http.StatusBadRequest, httpx.FieldError{Field: "image", Messages: []string{err.Error()}})
		return
	}
	report := s.store.createReport(api.Report{
		UserID:      p.UserID,
		WasteType:   strings.TrimSpace(fields["waste_type"]),
		Location:    strings.TrimSpace(fields["location"]),
		Description: strings.TrimSpace(fields["description"]),
		Image:       imageURL,
		Status:      status,
	}, s.now())
	httpx.JSON(w, http.StatusCreated, report)
}

// storeImage keeps the optional "image" upload and returns its absolute URL.
func (s *Server) storeImage(r *http.Request) (string, error) {
	if r.MultipartForm == nil {
		return "", nil
	}
	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return "", nil
	}
	if err != nil {
		return "", errors.New("The submitted data was not a file. Check the encoding type on the form.")
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, maxImageBytes+1))
	if err != nil {
		return "", errors.New("Upload a valid image.")
	}
	if len(data) == 0 {
		return "", errors.New("The submitted file is empty.")
	}
	if len(data) > maxImageBytes {
		return "", errors.New("Upload a valid image. The file is too large.")
	}
	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return "", errors.New("Upload a valid image. The file you uploaded was either not an image or a corrupted image.")
	}
	name := uuid.NewString() + strings.ToLower(filepath.Ext(header.Filename))
	s.store.saveImage(name, image{ContentType: contentType, Data: data})
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host + "/media/reports/" + name, nil
}

func (s *Server) serveImage(w http.ResponseWriter, r *http.Request) {
	img, ok := s.store.image(chi.URLParam(r, "name"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", img.ContentType)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(img.Data)
}

// updateReport applies PUT and PATCH. Admins may change anything; officers
// may only send a body consisting of the status alone.
func (s *Server) updateReport(w http.ResponseWriter, r *http.Request) {
	current, p, ok := s.visibleReport(r)
	if !ok {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	fields, err := reportFields(r)
	if err != nil {
		httpx.Detail(w, http.StatusBadRequest, err.Error())
		return
	}
	switch p.Role {
	case shared.RoleAdmin:
	case shared.RoleOfficer:
		if _, hasStatus := fields["status"]; !hasStatus || len(fields) != 1 {
			httpx.RespondError(w, httpx.ErrForbidden)
			return
		}
	default:
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}

	partial := r.Method == http.MethodPatch
	next := current
	var errs fieldSet
	for _, f := range []struct {
		name   string
		target *string
	}{
		{"waste_type", &next.WasteType},
		{"location", &next.Location},
		{"description", &next.Description},
	} {
		value, present := fields[f.name]
		if !present && partial {
			continue
		}
		value = strings.TrimSpace(value)
		if value == "" {
			errs.add(f.name, requiredField)
			continue
		}
		if f.name != "description" {
			checkLength(&errs, f.name, value)
		}
		*f.target = value
	}
	if raw, present := fields["status"]; present {
		next.Status = checkStatus(&errs, raw)
	}
	if errs.respond(w) {
		return
	}
	updated, ok := s.store.updateReport(current.ID, func(r *api.Report) {
		r.WasteType = next.WasteType
		r.Location = next.Location
		r.Description = next.Description
		r.Status = next.Status
	})
	if !ok {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (s *Server) deleteReport(w http.ResponseWriter, r *http.Request) {
	current, p, ok := s.visibleReport(r)
	if !ok {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	if p.Role != shared.RoleAdmin {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	if !s.store.deleteReport(current.ID) {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
