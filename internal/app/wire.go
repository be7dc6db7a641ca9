package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/wastewatch/wastewatch/internal/api"
	"github.com/wastewatch/wastewatch/internal/auth"
	"github.com/wastewatch/wastewatch/internal/dashboard"
	"github.com/wastewatch/wastewatch/internal/mockapi"
	"github.com/wastewatch/wastewatch/internal/observability"
	"github.com/wastewatch/wastewatch/internal/session"
	"github.com/wastewatch/wastewatch/internal/submission"
	"github.com/wastewatch/wastewatch/internal/tokenstore"
)

// Runtime holds the wired client components.
type Runtime struct {
	Config     *Config
	Logger     *slog.Logger
	Metrics    *observability.Metrics
	Store      *tokenstore.Store
	Client     *api.Client
	Sessions   *session.Manager
	Auth       *auth.Service
	Dashboard  *dashboard.Controller
	Submission *submission.Service

	closers []func() error
}

// BuildParams groups the inputs of Build.
type BuildParams struct {
	Config  *Config
	Logger  *slog.Logger
	Confirm dashboard.Confirmer
	// Backend overrides the token store backend selected by TOKEN_STORE.
	Backend tokenstore.Backend
}

// Build wires the token store, gateway, session manager and controllers.
// The session is restored before Build returns.
func Build(ctx context.Context, params BuildParams) (*Runtime, error) {
	cfg := params.Config
	if cfg == nil {
		return nil, errors.New("app: config required")
	}
	logger := params.Logger
	if logger == nil {
		logger = NewLogger(cfg, nil)
	}
	rt := &Runtime{Config: cfg, Logger: logger, Metrics: observability.NewMetrics()}

	backend := params.Backend
	if backend == nil {
		var err error
		backend, err = rt.tokenBackend(ctx)
		if err != nil {
			_ = rt.Close()
			return nil, err
		}
	}
	rt.Store = tokenstore.New(backend, logger.With(slog.String("component", "tokenstore")))

	client, err := api.NewClient(api.Config{
		BaseURL:    cfg.APIBaseURL,
		Timeout:    cfg.APITimeout,
		CSRFCookie: cfg.APICSRFCookie,
	}, rt.Store, api.WithLogger(logger.With(slog.String("component", "api"))), api.WithMetrics(rt.Metrics))
	if err != nil {
		_ = rt.Close()
		return nil, fmt.Errorf("app: api client: %w", err)
	}
	rt.Client = client

	rt.Sessions = session.NewManager(rt.Store, client.Signals(), logger.With(slog.String("component", "session")))
	rt.closers = append(rt.closers, func() error {
		rt.Sessions.Close()
		return nil
	})
	rt.Sessions.Init(ctx)

	rt.Auth = auth.NewService(client, rt.Sessions, logger)
	rt.Dashboard = dashboard.New(client, params.Confirm, logger.With(slog.String("component", "dashboard")))
	unbind := rt.Dashboard.Bind(rt.Sessions)
	rt.closers = append(rt.closers, func() error {
		unbind()
		return nil
	})
	rt.Submission = submission.NewService(client, rt.Sessions, logger)
	return rt, nil
}

func (rt *Runtime) tokenBackend(ctx context.Context) (tokenstore.Backend, error) {
	cfg := rt.Config
	switch cfg.TokenStore {
	case TokenStoreMemory:
		return tokenstore.NewMemoryBackend(), nil
	case TokenStoreRedis:
		client, err := tokenstore.DialRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, client.Close)
		return tokenstore.NewRedisBackend(client, cfg.TokenKeyPrefix, cfg.TokenTTL), nil
	default:
		dir := cfg.TokenStoreDir
		if dir == "" {
			var err error
			if dir, err = tokenstore.DefaultDir(); err != nil {
				return nil, err
			}
		}
		return tokenstore.NewFileBackend(dir)
	}
}

// Close releases resources in reverse order of acquisition.
func (rt *Runtime) Close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil && !errors.Is(err, redis.ErrClosed) {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}

// NewMockServer builds the mock backend from the MOCK_* settings.
func NewMockServer(cfg *Config, logger *slog.Logger, metrics *observability.Metrics) *mockapi.Server {
	return mockapi.New(mockapi.Config{
		JWTSecret:  cfg.MockJWTSecret,
		AccessTTL:  cfg.MockAccessTTL,
		RefreshTTL: cfg.MockRefreshTTL,
		Paginate:   cfg.MockPaginate,
		LoginRate:  cfg.MockLoginRate,
		Production: cfg.IsProduction(),
	}, mockapi.WithLogger(logger), mockapi.WithMetrics(metrics))
}
