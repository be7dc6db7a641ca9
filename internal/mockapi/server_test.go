package mockapi_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wastewatch/wastewatch/internal/api"
	"github.com/wastewatch/wastewatch/internal/auth"
	"github.com/wastewatch/wastewatch/internal/mockapi"
	"github.com/wastewatch/wastewatch/internal/platform/httpx"
	"github.com/wastewatch/wastewatch/internal/shared"
	"github.com/wastewatch/wastewatch/internal/tokenstore"
	_ "github.com/wastewatch/wastewatch/testing"
)

const password = "secret123"

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 32)...)

type harness struct {
	backend *mockapi.Server
	server  *httptest.Server
}

func newHarness(t *testing.T, cfg mockapi.Config) *harness {
	t.Helper()
	backend := mockapi.New(cfg, mockapi.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, backend.Seed(password))
	server := httptest.NewServer(backend)
	t.Cleanup(server.Close)
	return &harness{backend: backend, server: server}
}

func (h *harness) client(t *testing.T) (*api.Client, *tokenstore.Store) {
	t.Helper()
	store := tokenstore.New(tokenstore.NewMemoryBackend(), nil)
	client, err := api.NewClient(api.Config{BaseURL: h.server.URL + "/api", Timeout: 5 * time.Second}, store)
	require.NoError(t, err)
	return client, store
}

func (h *harness) signIn(t *testing.T, username string) *api.Client {
	t.Helper()
	ctx := context.Background()
	client, store := h.client(t)
	resp, err := client.Login(ctx, api.Credentials{Username: username, Password: password})
	require.NoError(t, err)
	user, err := auth.IdentityFromLogin(resp)
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, shared.Session{User: user, Tokens: resp.Tokens}))
	return client
}

func submit(t *testing.T, client *api.Client, location string) api.Report {
	t.Helper()
	report, err := client.CreateReport(context.Background(), api.ReportInput{
		WasteType:   "Plastic",
		Location:    location,
		Description: "Overflowing bin",
	})
	require.NoError(t, err)
	return report
}

func TestLoginReturnsTokensAndRole(t *testing.T) {
	h := newHarness(t, mockapi.Config{})
	client, _ := h.client(t)

	resp, err := client.Login(context.Background(), api.Credentials{Username: "officer", Password: password})
	require.NoError(t, err)
	assert.Equal(t, "Login successful", resp.Message)
	assert.Equal(t, "officer", resp.Role)
	assert.True(t, resp.Tokens.Complete())

	expiry, err := auth.AccessExpiry(resp.Tokens.Access)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiry, time.Minute)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	h := newHarness(t, mockapi.Config{})
	client, _ := h.client(t)

	_, err := client.Login(context.Background(), api.Credentials{Username: "officer", Password: "nope"})
	require.ErrorIs(t, err, api.ErrUnauthorized)
	apiErr, ok := api.AsError(err)
	require.True(t, ok)
	assert.Equal(t, "Invalid credentials", apiErr.Payload.Error)
}

func TestRegisterValidation(t *testing.T) {
	h := newHarness(t, mockapi.Config{})
	client, _ := h.client(t)
	ctx := context.Background()

	resp, err := client.Register(ctx, api.Registration{
		Username: "dina", Email: "dina@example.com", Password: password, Password2: password, Role: "citizen",
	})
	require.NoError(t, err)
	assert.Equal(t, "User registered successfully", resp.Message)
	assert.Equal(t, "citizen", resp.Role)

	cases := []struct {
		name string
		in   api.Registration
		want string
	}{
		{"duplicate username", api.Registration{Username: "DINA", Password: password, Password2: password}, "username: Username already exists."},
		{"duplicate email", api.Registration{Username: "dina2", Email: "Dina@example.com", Password: password, Password2: password}, "email: Email already exists."},
		{"password mismatch", api.Registration{Username: "eve", Password: password, Password2: "other"}, "Passwords do not match."},
		{"invalid role", api.Registration{Username: "eve", Password: password, Password2: password, Role: "mayor"}, "Invalid role."},
		{"missing password", api.Registration{Username: "eve"}, "password: This field is required."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := client.Register(ctx, tc.in)
			require.ErrorIs(t, err, api.ErrValidation)
			apiErr, ok := api.AsError(err)
			require.True(t, ok)
			assert.Contains(t, httpx.Flatten(apiErr.Payload), tc.want)
		})
	}
}

func TestCitizensSeeOnlyTheirOwnReports(t *testing.T) {
	h := newHarness(t, mockapi.Config{})
	_, err := h.backend.AddUser("dina", password, shared.RoleCitizen)
	require.NoError(t, err)
	ctx := context.Background()

	citizen := h.signIn(t, "citizen")
	dina := h.signIn(t, "dina")
	own := submit(t, citizen, "Main Street")
	other := submit(t, dina, "Harbour Road")
	assert.Equal(t, api.StatusPending, own.Status)
	require.NotNil(t, own.UserDetails)
	assert.Equal(t, "citizen", own.UserDetails.Username)

	reports, err := citizen.ListReports(ctx)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, own.ID, reports[0].ID)

	_, err = citizen.GetReport(ctx, other.ID)
	require.ErrorIs(t, err, api.ErrNotFound)

	officer := h.signIn(t, "officer")
	reports, err = officer.ListReports(ctx)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, other.ID, reports[0].ID, "newest first")
}

func TestOnlyCitizensCreateReports(t *testing.T) {
	h := newHarness(t, mockapi.Config{})
	for _, username := range []string{"officer", "admin"} {
		client := h.signIn(t, username)
		_, err := client.CreateReport(context.Background(), api.ReportInput{WasteType: "Plastic", Location: "Dock", Description: "Bags"})
		require.ErrorIs(t, err, api.ErrForbidden, username)
	}

	anonymous, _ := h.client(t)
	_, err := anonymous.CreateReport(context.Background(), api.ReportInput{WasteType: "Plastic", Location: "Dock", Description: "Bags"})
	require.ErrorIs(t, err, api.ErrUnauthorized)
}

func TestReportCreateRequiresFields(t *testing.T) {
	h := newHarness(t, mockapi.Config{})
	citizen := h.signIn(t, "citizen")

	_, err := citizen.CreateReport(context.Background(), api.ReportInput{WasteType: "Plastic"})
	require.ErrorIs(t, err, api.ErrValidation)
	apiErr, _ := api.AsError(err)
	assert.Equal(t, "location: This field is required., description: This field is required.", httpx.Flatten(apiErr.Payload))
}

func TestOfficerMayOnlyChangeStatus(t *testing.T) {
	h := newHarness(t, mockapi.Config{})
	ctx := context.Background()
	report := submit(t, h.signIn(t, "citizen"), "Main Street")
	officer := h.signIn(t, "officer")

	updated, err := officer.UpdateReport(ctx, report.ID, api.StatusPatch(api.StatusInProgress))
	require.NoError(t, err)
	assert.Equal(t, api.StatusInProgress, updated.Status)

	location := "Elsewhere"
	patch := api.StatusPatch(api.StatusResolved)
	patch.Location = &location
	_, err = officer.UpdateReport(ctx, report.ID, patch)
	require.ErrorIs(t, err, api.ErrForbidden)

	_, err = officer.UpdateReport(ctx, report.ID, api.StatusPatch("archived"))
	require.ErrorIs(t, err, api.ErrValidation)

	admin := h.signIn(t, "admin")
	updated, err = admin.UpdateReport(ctx, report.ID, patch)
	require.NoError(t, err)
	assert.Equal(t, "Elsewhere", updated.Location)
	assert.Equal(t, api.StatusResolved, updated.Status)
}

func TestCitizenCannotEditOwnReport(t *testing.T) {
	h := newHarness(t, mockapi.Config{})
	citizen := h.signIn(t, "citizen")
	report := submit(t, citizen, "Main Street")

	_, err := citizen.UpdateReport(context.Background(), report.ID, api.StatusPatch(api.StatusResolved))
	require.ErrorIs(t, err, api.ErrForbidden)
}

func TestOnlyAdminsDeleteReports(t *testing.T) {
	h := newHarness(t, mockapi.Config{})
	ctx := context.Background()
	citizen := h.signIn(t, "citizen")
	report := submit(t, citizen, "Main Street")

	require.ErrorIs(t, citizen.DeleteReport(ctx, report.ID), api.ErrForbidden)
	require.ErrorIs(t, h.signIn(t, "officer").DeleteReport(ctx, report.ID), api.ErrForbidden)

	admin := h.signIn(t, "admin")
	require.NoError(t, admin.DeleteReport(ctx, report.ID))
	require.ErrorIs(t, admin.DeleteReport(ctx, report.ID), api.ErrNotFound)
}

func TestWasteTypeWritesAreAdminOnly(t *testing.T) {
	h := newHarness(t, mockapi.Config{})
	ctx := context.Background()

	citizen := h.signIn(t, "citizen")
	wastes, err := citizen.ListWasteTypes(ctx)
	require.NoError(t, err)
	assert.Len(t, wastes, 3)
	_, err = citizen.CreateWasteType(ctx, api.WasteTypeInput{Name: "Glass", Description: "Jars"})
	require.ErrorIs(t, err, api.ErrForbidden)

	admin := h.signIn(t, "admin")
	created, err := admin.CreateWasteType(ctx, api.WasteTypeInput{Name: "Glass", Description: "Jars"})
	require.NoError(t, err)
	assert.Equal(t, "Glass", created.Name)

	_, err = admin.CreateWasteType(ctx, api.WasteTypeInput{Name: "Metal"})
	require.ErrorIs(t, err, api.ErrValidation)

	updated, err := admin.UpdateWasteType(ctx, created.ID, api.WasteTypeInput{Name: "Glass", Description: "Bottles and jars"})
	require.NoError(t, err)
	assert.Equal(t, "Bottles and jars", updated.Description)

	require.NoError(t, admin.DeleteWasteType(ctx, created.ID))
	_, err = admin.GetWasteType(ctx, created.ID)
	require.ErrorIs(t, err, api.ErrNotFound)
}

func TestProfilesAreAdminOnly(t *testing.T) {
	h := newHarness(t, mockapi.Config{})
	ctx := context.Background()

	_, err := h.signIn(t, "officer").ListProfiles(ctx)
	require.ErrorIs(t, err, api.ErrForbidden)

	admin := h.signIn(t, "admin")
	profiles, err := admin.ListProfiles(ctx)
	require.NoError(t, err)
	require.Len(t, profiles, 3)
	var officer api.UserProfile
	for _, p := range profiles {
		if p.Username == "officer" {
			officer = p
		}
	}
	require.NotZero(t, officer.ID)
	assert.Equal(t, shared.RoleOfficer, officer.Role)

	updated, err := admin.UpdateProfile(ctx, officer.ID, api.ProfileInput{PhoneNumber: "555-0100", Role: "officer"})
	require.NoError(t, err)
	assert.Equal(t, "555-0100", updated.PhoneNumber)

	_, err = admin.CreateProfile(ctx, api.ProfileInput{UserID: officer.UserID, Role: "officer"})
	require.ErrorIs(t, err, api.ErrValidation)

	require.NoError(t, admin.DeleteProfile(ctx, officer.ID))
	profiles, err = admin.ListProfiles(ctx)
	require.NoError(t, err)
	assert.Len(t, profiles, 2)

	client, _ := h.client(t)
	resp, err := client.Login(ctx, api.Credentials{Username: "officer", Password: password})
	require.NoError(t, err)
	assert.Equal(t, "citizen", resp.Role, "a profile-less account comes back as a citizen")
}

func TestPaginatedListsDecode(t *testing.T) {
	h := newHarness(t, mockapi.Config{Paginate: true})
	citizen := h.signIn(t, "citizen")
	submit(t, citizen, "Main Street")

	reports, err := citizen.ListReports(context.Background())
	require.NoError(t, err)
	assert.Len(t, reports, 1)

	wastes, err := citizen.ListWasteTypes(context.Background())
	require.NoError(t, err)
	assert.Len(t, wastes, 3)
}

func TestReportImageIsStoredAndServed(t *testing.T) {
	h := newHarness(t, mockapi.Config{})
	citizen := h.signIn(t, "citizen")

	report, err := citizen.CreateReport(context.Background(), api.ReportInput{
		WasteType:   "Plastic",
		Location:    "Main Street",
		Description: "Bags",
		Image:       &api.Attachment{Filename: "/tmp/photo.PNG", ContentType: "image/png", Body: bytes.NewReader(pngBytes)},
	})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(report.Image, h.server.URL+"/media/reports/"))
	assert.True(t, strings.HasSuffix(report.Image, ".png"))

	resp, err := http.Get(report.Image)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, body)
}

func TestReportImageMustBeAnImage(t *testing.T) {
	h := newHarness(t, mockapi.Config{})
	citizen := h.signIn(t, "citizen")

	_, err := citizen.CreateReport(context.Background(), api.ReportInput{
		WasteType:   "Plastic",
		Location:    "Main Street",
		Description: "Bags",
		Image:       &api.Attachment{Filename: "notes.txt", Body: strings.NewReader("just text")},
	})
	require.ErrorIs(t, err, api.ErrValidation)
}

func TestCSRFHeaderMustMatchCookie(t *testing.T) {
	h := newHarness(t, mockapi.Config{})

	resp, err := http.Get(h.server.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "csrftoken" {
			cookie = c
		}
	}
	require.NotNil(t, cookie)

	post := func(header string) int {
		req, err := http.NewRequest(http.MethodPost, h.server.URL+"/api/user/logout/", nil)
		require.NoError(t, err)
		req.AddCookie(cookie)
		if header != "" {
			req.Header.Set("X-CSRFToken", header)
		}
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}
	assert.Equal(t, http.StatusForbidden, post(""))
	assert.Equal(t, http.StatusForbidden, post("wrong"))
	assert.Equal(t, http.StatusOK, post(cookie.Value))
}

func TestSecurityHeaders(t *testing.T) {
	h := newHarness(t, mockapi.Config{})
	resp, err := http.Get(h.server.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
}

func TestLoginIsRateLimited(t *testing.T) {
	h := newHarness(t, mockapi.Config{LoginRate: 2})
	client, _ := h.client(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := client.Login(ctx, api.Credentials{Username: "citizen", Password: password})
		require.NoError(t, err)
	}
	_, err := client.Login(ctx, api.Credentials{Username: "citizen", Password: password})
	require.ErrorIs(t, err, api.ErrRejected)
	assert.Equal(t, http.StatusTooManyRequests, api.StatusOf(err))
}

func TestInvalidTokenIsRejected(t *testing.T) {
	h := newHarness(t, mockapi.Config{})
	citizen := h.signIn(t, "citizen")
	h.backend.RevokeTokens()

	_, err := citizen.ListReports(context.Background())
	require.ErrorIs(t, err, api.ErrUnauthorized)
	apiErr, _ := api.AsError(err)
	assert.Equal(t, "Given token not valid for any token type", apiErr.Payload.Detail)
}
