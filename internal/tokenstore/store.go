// Package tokenstore persists the client session as three independent keys:
// the identity blob, the access token and the refresh token.
package tokenstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/wastewatch/wastewatch/internal/shared"
)

var (
	// ErrKeyNotFound is returned by backends when a key holds no value.
	ErrKeyNotFound = errors.New("tokenstore: key not found")
	// ErrIncompleteTokens indicates Save was called without both tokens.
	ErrIncompleteTokens = errors.New("tokenstore: access and refresh tokens required")
)

// Backend is a durable string key/value store. Writes to different keys are
// independent; no cross-key transaction is assumed.
type Backend interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Keys names the storage keys a session is split across.
type Keys struct {
	User    string
	Access  string
	Refresh string
}

// DefaultKeys matches the key names used by the web client.
var DefaultKeys = Keys{User: "user", Access: "accessToken", Refresh: "refreshToken"}

func (k Keys) all() []string {
	return []string{k.User, k.Access, k.Refresh}
}

// Store reads and writes sessions through a Backend.
type Store struct {
	backend Backend
	keys    Keys
	logger  *slog.Logger
}

// Option customises a Store.
type Option func(*Store)

// WithKeys overrides the storage key names.
func WithKeys(keys Keys) Option {
	return func(s *Store) {
		s.keys = keys
	}
}

// New constructs a Store over backend.
func New(backend Backend, logger *slog.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{backend: backend, keys: DefaultKeys, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save writes the identity and both tokens.
func (s *Store) Save(ctx context.Context, sess shared.Session) error {
	if err := sess.User.Validate(); err != nil {
		return fmt.Errorf("tokenstore: save: %w", err)
	}
	if !sess.Tokens.Complete() {
		return ErrIncompleteTokens
	}
	identity, err := json.Marshal(sess.User)
	if err != nil {
		return fmt.Errorf("tokenstore: encode identity: %w", err)
	}
	writes := []struct{ key, value string }{
		{s.keys.User, string(identity)},
		{s.keys.Access, sess.Tokens.Access},
		{s.keys.Refresh, sess.Tokens.Refresh},
	}
	for _, w := range writes {
		if err := s.backend.Set(ctx, w.key, w.value); err != nil {
			return fmt.Errorf("tokenstore: write %s: %w", w.key, err)
		}
	}
	return nil
}

// SaveIdentity writes only the identity blob and drops any tokens left behind
// by an earlier session, so the stored keys never mix two identities.
func (s *Store) SaveIdentity(ctx context.Context, user shared.User) error {
	if err := user.Validate(); err != nil {
		return fmt.Errorf("tokenstore: save identity: %w", err)
	}
	identity, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("tokenstore: encode identity: %w", err)
	}
	if err := s.backend.Set(ctx, s.keys.User, string(identity)); err != nil {
		return fmt.Errorf("tokenstore: write %s: %w", s.keys.User, err)
	}
	for _, key := range []string{s.keys.Access, s.keys.Refresh} {
		if err := s.backend.Delete(ctx, key); err != nil && !errors.Is(err, ErrKeyNotFound) {
			return fmt.Errorf("tokenstore: drop %s: %w", key, err)
		}
	}
	return nil
}

// Load returns the persisted session. The boolean is false when any key is
// missing, unreadable or malformed; callers treat that as "no session".
func (s *Store) Load(ctx context.Context) (shared.Session, bool) {
	raw, ok := s.read(ctx, s.keys.User)
	if !ok {
		return shared.Session{}, false
	}
	access, ok := s.read(ctx, s.keys.Access)
	if !ok {
		return shared.Session{}, false
	}
	refresh, ok := s.read(ctx, s.keys.Refresh)
	if !ok {
		return shared.Session{}, false
	}

	var user shared.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		s.logger.Warn("discard unparsable identity", slog.Any("error", err))
		return shared.Session{}, false
	}
	user.Role, _ = shared.ParseRole(string(user.Role))

	sess := shared.Session{User: user, Tokens: shared.Tokens{Access: access, Refresh: refresh}}
	if !sess.Valid() {
		s.logger.Warn("discard malformed session", slog.Int64("user_id", user.ID))
		return shared.Session{}, false
	}
	return sess, true
}

// AccessToken returns the stored access token, or "" when absent.
func (s *Store) AccessToken(ctx context.Context) string {
	token, _ := s.read(ctx, s.keys.Access)
	return token
}

// Clear removes all three keys. It is idempotent and never fails; backend
// errors are logged.
func (s *Store) Clear(ctx context.Context) {
	for _, key := range s.keys.all() {
		if err := s.backend.Delete(ctx, key); err != nil && !errors.Is(err, ErrKeyNotFound) {
			s.logger.Warn("clear session key", slog.String("key", key), slog.Any("error", err))
		}
	}
}

func (s *Store) read(ctx context.Context, key string) (string, bool) {
	value, err := s.backend.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrKeyNotFound) {
			s.logger.Warn("read session key", slog.String("key", key), slog.Any("error", err))
		}
		return "", false
	}
	if value == "" {
		return "", false
	}
	return value, true
}
