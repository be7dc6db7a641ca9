// Package mockapi is an in-memory stand-in for the waste-reporting backend. It
// serves the same routes, payload shapes and permission rules so the client
// can be exercised end to end without the real service.
package mockapi

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wastewatch/wastewatch/internal/api"
	"github.com/wastewatch/wastewatch/internal/observability"
	"github.com/wastewatch/wastewatch/internal/platform/httpx"
	"github.com/wastewatch/wastewatch/internal/rbac"
	"github.com/wastewatch/wastewatch/internal/shared"
)

// Config tunes the mock backend.
type Config struct {
	// Prefix is the mount point of the API routes, "/api" by default.
	Prefix     string
	JWTSecret  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	// Paginate wraps list responses in a {count,next,previous,results} envelope.
	Paginate bool
	// LoginRate caps login attempts per client IP per minute. Zero disables it.
	LoginRate      int
	RequestTimeout time.Duration
	Production     bool
}

// Server is the mock backend.
type Server struct {
	cfg     Config
	store   *store
	tokens  *issuer
	logger  *slog.Logger
	metrics *observability.Metrics
	rbac    rbac.Middleware
	now     func() time.Time
	handler http.Handler
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithMetrics records per-route request metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithClock overrides the time source used for token lifetimes and timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// New builds a mock backend with an empty data set.
func New(cfg Config, opts ...Option) *Server {
	if cfg.Prefix == "" {
		cfg.Prefix = "/api"
	}
	cfg.Prefix = "/" + strings.Trim(cfg.Prefix, "/")
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "wastewatch-mock-secret"
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 60 * time.Minute
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 24 * time.Hour
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	s := &Server{cfg: cfg, store: newStore(), logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	s.rbac = rbac.Middleware{Logger: s.logger}
	s.tokens = newIssuer(cfg.JWTSecret, cfg.AccessTTL, cfg.RefreshTTL, s.now)
	s.handler = s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Prefix is the mount point of the API routes.
func (s *Server) Prefix() string { return s.cfg.Prefix }

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	for _, mw := range s.middlewareStack() {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}
	r.Get("/media/reports/{name}", s.serveImage)

	r.Route(s.cfg.Prefix, func(r chi.Router) {
		r.Use(s.authenticate)
		r.Route("/user", func(r chi.Router) {
			r.With(s.loginLimiter()).Post("/login/", s.login)
			r.Post("/register/", s.register)
			r.Post("/logout/", s.logout)
			r.Route("/user", func(r chi.Router) {
				r.Use(s.rbac.RequireRole(shared.RoleAdmin))
				r.Get("/", s.listProfiles)
				r.Post("/", s.createProfile)
				r.Get("/{id}/", s.getProfile)
				r.Put("/{id}/", s.updateProfile)
				r.Patch("/{id}/", s.updateProfile)
				r.Delete("/{id}/", s.deleteProfile)
			})
		})
		r.Route("/waste/waste", func(r chi.Router) {
			r.Use(s.rbac.RequireAuthenticated)
			r.Get("/", s.listWasteTypes)
			r.Get("/{id}/", s.getWasteType)
			r.Group(func(r chi.Router) {
				r.Use(s.rbac.RequireRole(shared.RoleAdmin))
				r.Post("/", s.createWasteType)
				r.Put("/{id}/", s.updateWasteType)
				r.Patch("/{id}/", s.updateWasteType)
				r.Delete("/{id}/", s.deleteWasteType)
			})
		})
		r.Route("/report/report", func(r chi.Router) {
			r.Get("/", s.listReports)
			r.Post("/", s.createReport)
			r.Get("/{id}/", s.getReport)
			r.Put("/{id}/", s.updateReport)
			r.Patch("/{id}/", s.updateReport)
			r.Delete("/{id}/", s.deleteReport)
		})
	})
	return r
}

// authenticate resolves a Bearer token into a principal. Requests without a
// token pass through anonymously; a bad token is rejected outright.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}
		scheme, raw, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(raw) == "" {
			httpx.Detail(w, http.StatusUnauthorized, "Authorization header must contain two space-delimited values")
			return
		}
		userID, err := s.tokens.verify(strings.TrimSpace(raw))
		if err != nil {
			httpx.JSON(w, http.StatusUnauthorized, map[string]string{
				"detail": err.Error(),
				"code":   "token_not_valid",
			})
			return
		}
		acct, ok := s.store.account(userID)
		if !ok {
			httpx.JSON(w, http.StatusUnauthorized, map[string]string{
				"detail": "User not found",
				"code":   "user_not_found",
			})
			return
		}
		ctx := rbac.ContextWithPrincipal(r.Context(), rbac.Principal{
			UserID:   acct.ID,
			Username: acct.Username,
			Role:     acct.Role,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AddUser seeds an account with a profile.
func (s *Server) AddUser(username, password string, role shared.Role) (api.AccountUser, error) {
	if !role.Valid() {
		return api.AccountUser{}, fmt.Errorf("seed %s: %w", username, shared.ErrInvalidInput)
	}
	acct, err := s.store.createAccount(account{
		Username: username,
		Email:    username + "@example.com",
		Role:     role,
	}, password)
	if err != nil {
		return api.AccountUser{}, fmt.Errorf("seed %s: %w", username, err)
	}
	return acct.summary(), nil
}

// AddWasteType seeds a waste type.
func (s *Server) AddWasteType(name, description string) api.WasteType {
	return s.store.saveWasteType(api.WasteType{Name: name, Description: description})
}

// RevokeTokens invalidates every access token issued so far.
func (s *Server) RevokeTokens() {
	s.tokens.revokeAll()
}

// Seed loads a demo data set: one account per role and a few waste types.
// Every seeded password is the given one.
func (s *Server) Seed(password string) error {
	for _, u := range []struct {
		name string
		role shared.Role
	}{
		{"admin", shared.RoleAdmin},
		{"officer", shared.RoleOfficer},
		{"citizen", shared.RoleCitizen},
	} {
		if _, err := s.AddUser(u.name, password, u.role); err != nil && !errors.Is(err, errUsernameTaken) {
			return err
		}
	}
	if len(s.store.wasteTypes()) == 0 {
		s.AddWasteType("Plastic", "Bottles, bags and packaging")
		s.AddWasteType("Organic", "Food and garden waste")
		s.AddWasteType("Electronic", "Batteries, appliances and cables")
	}
	return nil
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

// respondList writes items as a bare array or, when pagination is on, as a
// single page envelope.
func respondList[T any](s *Server, w http.ResponseWriter, items []T) {
	if !s.cfg.Paginate {
		httpx.JSON(w, http.StatusOK, items)
		return
	}
	httpx.JSON(w, http.StatusOK, shared.Page[T]{Count: len(items), Results: items})
}
