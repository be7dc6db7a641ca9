package submission

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wastewatch/wastewatch/internal/api"
	"github.com/wastewatch/wastewatch/internal/platform/httpx"
	"github.com/wastewatch/wastewatch/internal/session"
	"github.com/wastewatch/wastewatch/internal/shared"
)

type stubGateway struct {
	wastes    []api.WasteType
	wastesErr error
	createErr error
	submitted []api.ReportInput
}

func (s *stubGateway) ListWasteTypes(ctx context.Context) ([]api.WasteType, error) {
	return s.wastes, s.wastesErr
}

func (s *stubGateway) CreateReport(ctx context.Context, in api.ReportInput) (api.Report, error) {
	s.submitted = append(s.submitted, in)
	if s.createErr != nil {
		return api.Report{}, s.createErr
	}
	return api.Report{ID: 21, UserID: 5, WasteType: in.WasteType, Status: in.Status}, nil
}

type fixedSession session.Snapshot

func (f fixedSession) Snapshot() session.Snapshot { return session.Snapshot(f) }

func as(role shared.Role) fixedSession {
	return fixedSession{State: session.StateAuthenticated, User: &shared.User{ID: 5, Username: "cito", Role: role}}
}

func TestPrepareListsWasteTypes(t *testing.T) {
	gw := &stubGateway{wastes: []api.WasteType{{ID: 1, Name: "Plastic"}}}
	opts, err := NewService(gw, as(shared.RoleCitizen), nil).Prepare(context.Background())
	require.NoError(t, err)
	assert.False(t, opts.FreeText)
	assert.Len(t, opts.WasteTypes, 1)
}

func TestPrepareFallsBackToFreeText(t *testing.T) {
	gw := &stubGateway{wastesErr: &api.Error{Kind: api.KindServer, Status: http.StatusBadGateway}}
	opts, err := NewService(gw, as(shared.RoleCitizen), nil).Prepare(context.Background())
	require.NoError(t, err)
	assert.True(t, opts.FreeText)
	assert.Equal(t, ManualEntryHint, opts.Hint)

	gw = &stubGateway{wastes: []api.WasteType{}}
	opts, err = NewService(gw, as(shared.RoleCitizen), nil).Prepare(context.Background())
	require.NoError(t, err)
	assert.True(t, opts.FreeText)
}

func TestOnlyCitizensSubmit(t *testing.T) {
	for _, role := range []shared.Role{shared.RoleOfficer, shared.RoleAdmin} {
		gw := &stubGateway{}
		svc := NewService(gw, as(role), nil)
		_, err := svc.Submit(context.Background(), Form{WasteType: "x", Location: "y", Description: "z"})
		assert.ErrorIs(t, err, shared.ErrForbidden)
		_, err = svc.Prepare(context.Background())
		assert.ErrorIs(t, err, shared.ErrForbidden)
		assert.Empty(t, gw.submitted)
	}

	_, err := NewService(&stubGateway{}, fixedSession{State: session.StateAnonymous}, nil).
		Submit(context.Background(), Form{WasteType: "x", Location: "y", Description: "z"})
	assert.ErrorIs(t, err, shared.ErrNotAuthenticated)
	assert.Equal(t, NotSignedIn, err.Error())
}

func TestSubmitRequiresFields(t *testing.T) {
	gw := &stubGateway{}
	_, err := NewService(gw, as(shared.RoleCitizen), nil).
		Submit(context.Background(), Form{WasteType: "Plastic", Location: "  ", Description: "bags"})
	require.ErrorIs(t, err, shared.ErrInvalidInput)
	assert.Equal(t, MissingFields, err.Error())
	assert.Empty(t, gw.submitted)
}

func TestSubmitSendsPendingWithImage(t *testing.T) {
	gw := &stubGateway{}
	image := &api.Attachment{Filename: "a.jpg", Body: strings.NewReader("x")}
	report, err := NewService(gw, as(shared.RoleCitizen), nil).Submit(context.Background(), Form{
		WasteType:   " Old tyres ",
		Location:    "Park Area",
		Description: "Dumped overnight",
		Image:       image,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(21), report.ID)
	require.Len(t, gw.submitted, 1)
	in := gw.submitted[0]
	assert.Equal(t, api.StatusPending, in.Status)
	assert.Equal(t, "Old tyres", in.WasteType)
	assert.Same(t, image, in.Image)
}

func TestSubmitErrorMessages(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{&api.Error{Kind: api.KindUnauthorized, Status: 401}, "Authentication required. Please login again."},
		{&api.Error{Kind: api.KindForbidden, Status: 403}, "You do not have permission to submit reports."},
		{&api.Error{Kind: api.KindValidation, Status: 400, Payload: httpx.DecodePayload([]byte(`{"detail":"Bad image"}`))}, "Bad image"},
		{&api.Error{Kind: api.KindServer, Status: 500}, "Server error (500). Please try again."},
		{&api.Error{Kind: api.KindNetwork, Err: errors.New("refused")}, "Network error. Please check your connection and try again."},
	}
	for _, tc := range cases {
		gw := &stubGateway{createErr: tc.err}
		_, err := NewService(gw, as(shared.RoleCitizen), nil).
			Submit(context.Background(), Form{WasteType: "a", Location: "b", Description: "c"})
		require.Error(t, err)
		assert.Equal(t, tc.want, err.Error())
		assert.ErrorIs(t, err, tc.err)
	}
}
