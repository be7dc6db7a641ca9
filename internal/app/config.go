package app

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Token store backends selectable through TOKEN_STORE.
const (
	TokenStoreFile   = "file"
	TokenStoreRedis  = "redis"
	TokenStoreMemory = "memory"
)

// Config holds runtime configuration for the client and the mock backend.
type Config struct {
	AppEnv string `envconfig:"APP_ENV" default:"development"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"warn"`

	APIBaseURL    string        `envconfig:"API_BASE_URL" default:"http://127.0.0.1:8000/api"`
	APITimeout    time.Duration `envconfig:"API_TIMEOUT" default:"15s"`
	APICSRFCookie string        `envconfig:"API_CSRF_COOKIE" default:"csrftoken"`

	TokenStore     string        `envconfig:"TOKEN_STORE" default:"file"`
	TokenStoreDir  string        `envconfig:"TOKEN_STORE_DIR"`
	TokenKeyPrefix string        `envconfig:"TOKEN_KEY_PREFIX" default:"wastewatch:"`
	TokenTTL       time.Duration `envconfig:"TOKEN_TTL" default:"0s"`

	RedisAddr     string `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	MockAddr       string        `envconfig:"MOCK_ADDR" default:"127.0.0.1:8000"`
	MockJWTSecret  string        `envconfig:"MOCK_JWT_SECRET" default:"wastewatch-mock-secret"`
	MockAccessTTL  time.Duration `envconfig:"MOCK_ACCESS_TTL" default:"60m"`
	MockRefreshTTL time.Duration `envconfig:"MOCK_REFRESH_TTL" default:"24h"`
	MockPaginate   bool          `envconfig:"MOCK_PAGINATE" default:"false"`
	MockLoginRate  int           `envconfig:"MOCK_LOGIN_RATE" default:"30"`
	MockSeedPass   string        `envconfig:"MOCK_SEED_PASSWORD" default:"wastewatch"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the client cannot start with.
func (c *Config) Validate() error {
	base, err := url.Parse(strings.TrimSpace(c.APIBaseURL))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return fmt.Errorf("API_BASE_URL must be an absolute URL, got %q", c.APIBaseURL)
	}
	if c.APITimeout <= 0 {
		return errors.New("API_TIMEOUT must be positive")
	}
	switch c.TokenStore {
	case TokenStoreFile, TokenStoreRedis, TokenStoreMemory:
	default:
		return fmt.Errorf("TOKEN_STORE must be one of file, redis, memory, got %q", c.TokenStore)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}

func parseLevel(raw string) (slog.Level, error) {
	if strings.TrimSpace(raw) == "" {
		return slog.LevelWarn, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(raw))); err != nil {
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return level, nil
}
