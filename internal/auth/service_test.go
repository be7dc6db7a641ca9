package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wastewatch/wastewatch/internal/api"
	"github.com/wastewatch/wastewatch/internal/auth"
	"github.com/wastewatch/wastewatch/internal/platform/httpx"
	"github.com/wastewatch/wastewatch/internal/session"
	"github.com/wastewatch/wastewatch/internal/shared"
	"github.com/wastewatch/wastewatch/internal/tokenstore"
	_ "github.com/wastewatch/wastewatch/testing"
)

type stubGateway struct {
	login       api.LoginResponse
	loginErr    error
	register    api.RegisterResponse
	registerErr error
	calls       int
	lastReg     api.Registration
}

func (s *stubGateway) Login(ctx context.Context, creds api.Credentials) (api.LoginResponse, error) {
	s.calls++
	return s.login, s.loginErr
}

func (s *stubGateway) Register(ctx context.Context, reg api.Registration) (api.RegisterResponse, error) {
	s.calls++
	s.lastReg = reg
	return s.register, s.registerErr
}

func (s *stubGateway) BaseURL() string { return "http://backend.test/api" }

func newService(t *testing.T, gw *stubGateway) (*auth.Service, *session.Manager, *tokenstore.MemoryBackend) {
	t.Helper()
	backend := tokenstore.NewMemoryBackend()
	manager := session.NewManager(tokenstore.New(backend, nil), nil, nil)
	manager.Init(context.Background())
	return auth.NewService(gw, manager, nil), manager, backend
}

func TestLoginEstablishesSession(t *testing.T) {
	gw := &stubGateway{login: api.LoginResponse{
		Message: "Login successful",
		User:    api.AccountUser{ID: 4, Username: "ana", Email: "ana@example.com", FirstName: "Ana", LastName: ""},
		Role:    "Officer",
		Tokens:  shared.Tokens{Access: "a", Refresh: "r"},
	}}
	svc, manager, backend := newService(t, gw)

	res, err := svc.Login(context.Background(), auth.LoginForm{Username: " ana ", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "Ana", res.User.Name)
	assert.Equal(t, shared.RoleOfficer, res.User.Role)

	snap := manager.Snapshot()
	require.True(t, snap.Authenticated())
	assert.Equal(t, int64(4), snap.User.ID)
	assert.Equal(t, 3, backend.Len())
}

func TestLoginValidatesBeforeCallingBackend(t *testing.T) {
	gw := &stubGateway{}
	svc, _, _ := newService(t, gw)

	_, err := svc.Login(context.Background(), auth.LoginForm{Username: "  "})
	var formErr *auth.FormError
	require.ErrorAs(t, err, &formErr)
	assert.Contains(t, formErr.Fields, "Username")
	assert.Contains(t, formErr.Fields, "Password")
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
	assert.Zero(t, gw.calls)
}

func TestLoginMessages(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"credentials", &api.Error{Kind: api.KindUnauthorized, Status: 401, Payload: httpx.DecodePayload([]byte(`{"error":"Invalid credentials"}`))}, "Invalid credentials"},
		{"timeout", &api.Error{Kind: api.KindTimeout, Err: context.DeadlineExceeded}, "The server took too long to respond. Make sure the backend is running and try again."},
		{"network", &api.Error{Kind: api.KindNetwork, Err: errors.New("refused")}, "Could not reach the server (http://backend.test/api). Make sure the backend is running and the endpoint is correct."},
		{"other", &api.Error{Kind: api.KindServer, Status: 500}, "Login failed. Please try again."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, manager, _ := newService(t, &stubGateway{loginErr: tc.err})
			_, err := svc.Login(context.Background(), auth.LoginForm{Username: "ana", Password: "x"})
			require.Error(t, err)
			assert.Equal(t, tc.want, err.Error())
			assert.ErrorIs(t, err, tc.err)
			assert.False(t, manager.Snapshot().Authenticated())
		})
	}
}

func TestLoginRejectsUnknownRole(t *testing.T) {
	gw := &stubGateway{login: api.LoginResponse{
		User:   api.AccountUser{ID: 4, Username: "ana"},
		Role:   "superuser",
		Tokens: shared.Tokens{Access: "a", Refresh: "r"},
	}}
	svc, manager, _ := newService(t, gw)
	_, err := svc.Login(context.Background(), auth.LoginForm{Username: "ana", Password: "x"})
	require.ErrorIs(t, err, shared.ErrMalformedIdentity)
	assert.False(t, manager.Snapshot().Authenticated())
}

func validRegistration() auth.RegisterForm {
	return auth.RegisterForm{
		Username:        "ben",
		Email:           "ben@example.com",
		Password:        "longenough",
		ConfirmPassword: "longenough",
		FirstName:       "Ben",
		LastName:        "Okoro",
		Role:            "citizen",
	}
}

func TestRegisterDoesNotSignIn(t *testing.T) {
	gw := &stubGateway{register: api.RegisterResponse{
		Message: "User created",
		User:    api.AccountUser{ID: 9, Username: "ben", FirstName: "Ben", LastName: "Okoro"},
		Role:    "citizen",
	}}
	svc, manager, backend := newService(t, gw)

	res, err := svc.Register(context.Background(), validRegistration())
	require.NoError(t, err)
	assert.Equal(t, auth.RegisteredMessage, res.Message)
	assert.Equal(t, "Ben Okoro", res.User.Name)
	assert.Equal(t, "longenough", gw.lastReg.Password2)
	assert.False(t, manager.Snapshot().Authenticated())
	assert.Zero(t, backend.Len())
}

func TestRegisterValidation(t *testing.T) {
	gw := &stubGateway{}
	svc, _, _ := newService(t, gw)

	form := validRegistration()
	form.ConfirmPassword = "different"
	form.Role = "admin"
	form.Email = "not-an-email"
	_, err := svc.Register(context.Background(), form)
	var formErr *auth.FormError
	require.ErrorAs(t, err, &formErr)
	assert.Equal(t, "Passwords do not match", formErr.Fields["ConfirmPassword"])
	assert.Equal(t, "Choose one of: citizen, officer.", formErr.Fields["Role"])
	assert.Equal(t, "Enter a valid email address.", formErr.Fields["Email"])
	assert.Zero(t, gw.calls)
}

func TestRegisterFlattensFieldErrors(t *testing.T) {
	gw := &stubGateway{registerErr: &api.Error{
		Kind:    api.KindValidation,
		Status:  400,
		Payload: httpx.DecodePayload([]byte(`{"username":["A user with that username already exists."],"email":["Enter a valid email address."]}`)),
	}}
	svc, _, _ := newService(t, gw)

	_, err := svc.Register(context.Background(), validRegistration())
	require.Error(t, err)
	assert.Equal(t, "username: A user with that username already exists., email: Enter a valid email address.", err.Error())
	assert.ErrorIs(t, err, api.ErrValidation)
}

func TestAccessExpiry(t *testing.T) {
	exp := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp":     exp.Unix(),
		"user_id": 4,
	}).SignedString([]byte("any-key"))
	require.NoError(t, err)

	got, err := auth.AccessExpiry(token)
	require.NoError(t, err)
	assert.True(t, exp.Equal(got))
	assert.False(t, auth.Expired(token, exp.Add(-time.Minute)))
	assert.True(t, auth.Expired(token, exp.Add(time.Minute)))

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"user_id": 4}).SignedString([]byte("k"))
	require.NoError(t, err)
	_, err = auth.AccessExpiry(noExp)
	assert.ErrorIs(t, err, auth.ErrNoExpiry)
	assert.False(t, auth.Expired(noExp, time.Now()))

	_, err = auth.AccessExpiry("not-a-jwt")
	assert.Error(t, err)
	assert.True(t, auth.Expired("not-a-jwt", time.Now()))
}
