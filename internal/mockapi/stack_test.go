package mockapi_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wastewatch/wastewatch/internal/api"
	"github.com/wastewatch/wastewatch/internal/auth"
	"github.com/wastewatch/wastewatch/internal/dashboard"
	"github.com/wastewatch/wastewatch/internal/mockapi"
	"github.com/wastewatch/wastewatch/internal/session"
	"github.com/wastewatch/wastewatch/internal/shared"
	"github.com/wastewatch/wastewatch/internal/submission"
	"github.com/wastewatch/wastewatch/internal/tokenstore"
)

// stack wires the client components the way the CLI does.
type stack struct {
	store    *tokenstore.Store
	client   *api.Client
	sessions *session.Manager
	auth     *auth.Service
	board    *dashboard.Controller
	reports  *submission.Service
}

func newStack(t *testing.T, h *harness, confirm bool) *stack {
	t.Helper()
	client, store := h.client(t)
	sessions := session.NewManager(store, client.Signals(), nil)
	t.Cleanup(sessions.Close)
	sessions.Init(context.Background())
	board := dashboard.New(client, dashboard.ConfirmFunc(func(context.Context, string) bool { return confirm }), nil)
	t.Cleanup(board.Bind(sessions))
	return &stack{
		store:    store,
		client:   client,
		sessions: sessions,
		auth:     auth.NewService(client, sessions, nil),
		board:    board,
		reports:  submission.NewService(client, sessions, nil),
	}
}

func (s *stack) login(t *testing.T, username string) {
	t.Helper()
	_, err := s.auth.Login(context.Background(), auth.LoginForm{Username: username, Password: password})
	require.NoError(t, err)
	require.True(t, s.sessions.Snapshot().Authenticated())
}

func TestCitizenSubmitsAndOfficerTriages(t *testing.T) {
	h := newHarness(t, mockapi.Config{})
	ctx := context.Background()

	citizen := newStack(t, h, false)
	citizen.login(t, "citizen")
	opts, err := citizen.reports.Prepare(ctx)
	require.NoError(t, err)
	assert.False(t, opts.FreeText)
	assert.Len(t, opts.WasteTypes, 3)

	report, err := citizen.reports.Submit(ctx, submission.Form{WasteType: "Organic", Location: "Market Square", Description: "Food waste"})
	require.NoError(t, err)
	assert.Equal(t, api.StatusPending, report.Status)

	officer := newStack(t, h, false)
	officer.login(t, "officer")
	require.NoError(t, officer.board.Load(ctx))
	st := officer.board.State()
	require.Len(t, st.Reports, 1)
	assert.Empty(t, st.Users, "officers do not fetch users")

	require.NoError(t, officer.board.SetStatus(ctx, report.ID, api.StatusInProgress))
	assert.Equal(t, api.StatusInProgress, officer.board.State().Reports[0].Status)
	require.ErrorIs(t, officer.board.DeleteReport(ctx, report.ID), shared.ErrForbidden)

	require.NoError(t, citizen.board.Load(ctx))
	mine := citizen.board.State().Reports
	require.Len(t, mine, 1)
	assert.Equal(t, api.StatusInProgress, mine[0].Status)
}

func TestAdminManagesTaxonomyAndUsers(t *testing.T) {
	h := newHarness(t, mockapi.Config{})
	ctx := context.Background()
	citizen := newStack(t, h, false)
	citizen.login(t, "citizen")
	report, err := citizen.reports.Submit(ctx, submission.Form{WasteType: "Plastic", Location: "Pier", Description: "Nets"})
	require.NoError(t, err)

	admin := newStack(t, h, true)
	admin.login(t, "admin")
	require.NoError(t, admin.board.Load(ctx))
	st := admin.board.State()
	assert.Len(t, st.Reports, 1)
	assert.Len(t, st.Users, 3)
	assert.Len(t, st.WasteTypes, 3)

	created, err := admin.board.CreateWasteType(ctx, dashboard.WasteTypeForm{Name: " Glass ", Description: "Jars"})
	require.NoError(t, err)
	assert.Equal(t, "Glass", created.Name)
	st = admin.board.State()
	require.Len(t, st.WasteTypes, 4)
	assert.Equal(t, created.ID, st.WasteTypes[0].ID)

	require.NoError(t, admin.board.DeleteReport(ctx, report.ID))
	assert.Empty(t, admin.board.State().Reports)

	require.NoError(t, admin.board.DeleteWasteType(ctx, created.ID))
	assert.Len(t, admin.board.State().WasteTypes, 3)
}

func TestRevokedTokenSignsEveryoneOut(t *testing.T) {
	h := newHarness(t, mockapi.Config{})
	ctx := context.Background()
	s := newStack(t, h, false)
	s.login(t, "officer")
	require.NoError(t, s.board.Load(ctx))

	h.backend.RevokeTokens()

	err := s.board.Load(ctx)
	require.ErrorIs(t, err, dashboard.ErrStale)
	assert.Equal(t, session.StateAnonymous, s.sessions.Snapshot().State)
	_, ok := s.store.Load(ctx)
	assert.False(t, ok)
	_, visible := s.board.Page()
	assert.False(t, visible)
}

func TestRegisterDoesNotSignIn(t *testing.T) {
	h := newHarness(t, mockapi.Config{})
	s := newStack(t, h, false)

	res, err := s.auth.Register(context.Background(), auth.RegisterForm{
		Username:        "dina",
		Email:           "dina@example.com",
		Password:        password,
		ConfirmPassword: password,
		Role:            "citizen",
	})
	require.NoError(t, err)
	assert.Equal(t, auth.RegisteredMessage, res.Message)
	assert.False(t, s.sessions.Snapshot().Authenticated())

	s.login(t, "dina")
}
