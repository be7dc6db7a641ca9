// Package session tracks who is signed in. It is the only writer of the
// token store apart from the gateway's 401 path.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/wastewatch/wastewatch/internal/api"
	"github.com/wastewatch/wastewatch/internal/shared"
)

// State is the lifecycle phase of the session.
type State int

const (
	// StateInitializing is the phase before persisted state has been read.
	StateInitializing State = iota
	// StateAuthenticated means an identity is held.
	StateAuthenticated
	// StateAnonymous means nobody is signed in.
	StateAnonymous
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateAuthenticated:
		return "authenticated"
	case StateAnonymous:
		return "anonymous"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Snapshot is a consistent view of the session. User is non-nil exactly when
// State is StateAuthenticated.
type Snapshot struct {
	State State
	User  *shared.User
}

// Loading reports whether initialisation is still pending.
func (s Snapshot) Loading() bool { return s.State == StateInitializing }

// Authenticated reports whether an identity is held.
func (s Snapshot) Authenticated() bool { return s.State == StateAuthenticated && s.User != nil }

// Role returns the signed-in role, or "" when anonymous.
func (s Snapshot) Role() shared.Role {
	if !s.Authenticated() {
		return ""
	}
	return s.User.Role
}

// Store is the persistence the manager drives.
type Store interface {
	Save(ctx context.Context, sess shared.Session) error
	SaveIdentity(ctx context.Context, user shared.User) error
	Load(ctx context.Context) (shared.Session, bool)
	Clear(ctx context.Context)
}

// AuthSignals is the channel the gateway broadcasts 401s on.
type AuthSignals interface {
	Subscribe(fn func(api.AuthErrorEvent)) func()
}

// Manager owns the session state machine.
type Manager struct {
	store  Store
	logger *slog.Logger

	// opMu serialises whole transitions: the store write, the state change
	// and observer delivery. Observers must not call back into Init, Login,
	// Register or Logout.
	opMu sync.Mutex

	mu    sync.RWMutex
	state State
	user  *shared.User

	subMu     sync.Mutex
	subSeq    int
	observers map[int]func(Snapshot)

	unsubscribe func()
}

// NewManager builds a manager in the initializing state and registers it on
// signals so that a rejected session is torn down wherever it is detected.
func NewManager(store Store, signals AuthSignals, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		store:     store,
		logger:    logger,
		state:     StateInitializing,
		observers: make(map[int]func(Snapshot)),
	}
	if signals != nil {
		m.unsubscribe = signals.Subscribe(m.HandleAuthError)
	}
	return m
}

// Close detaches the manager from the auth-error channel.
func (m *Manager) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
}

// Snapshot returns the current state and identity.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked()
}

func (m *Manager) snapshotLocked() Snapshot {
	snap := Snapshot{State: m.state}
	if m.user != nil {
		u := *m.user
		snap.User = &u
	}
	return snap
}

// Init rehydrates the session from the store. A missing or corrupt session
// is cleared and the manager becomes anonymous.
func (m *Manager) Init(ctx context.Context) Snapshot {
	m.opMu.Lock()
	defer m.opMu.Unlock()
	sess, ok := m.store.Load(ctx)
	if !ok {
		m.store.Clear(ctx)
		return m.transition(StateAnonymous, nil)
	}
	m.logger.Debug("session restored", slog.Int64("user_id", sess.User.ID), slog.String("role", string(sess.User.Role)))
	return m.transition(StateAuthenticated, &sess.User)
}

// Login records the identity and tokens returned by a successful login.
// Tokens are not validated here; the backend rejects bad ones with 401.
func (m *Manager) Login(ctx context.Context, user shared.User, tokens shared.Tokens) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()
	sess := shared.Session{User: user, Tokens: tokens}
	if err := m.store.Save(ctx, sess); err != nil {
		return fmt.Errorf("session: login: %w", err)
	}
	m.transition(StateAuthenticated, &user)
	return nil
}

// Register marks the identity as signed in without tokens. Only the identity
// is persisted, so the session does not survive a restart and any protected
// call answers 401.
func (m *Manager) Register(ctx context.Context, user shared.User) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()
	if err := m.store.SaveIdentity(ctx, user); err != nil {
		return fmt.Errorf("session: register: %w", err)
	}
	m.transition(StateAuthenticated, &user)
	return nil
}

// Logout forgets the session. Safe to call when already anonymous.
func (m *Manager) Logout(ctx context.Context) {
	m.opMu.Lock()
	defer m.opMu.Unlock()
	m.store.Clear(ctx)
	m.transition(StateAnonymous, nil)
}

// HandleAuthError reacts to a 401 anywhere in the client.
func (m *Manager) HandleAuthError(ev api.AuthErrorEvent) {
	m.logger.Info("session invalidated by backend", slog.String("path", ev.Path), slog.Int("status", ev.Status))
	m.Logout(context.Background())
}

// Subscribe registers fn to be called after every transition.
func (m *Manager) Subscribe(fn func(Snapshot)) func() {
	m.subMu.Lock()
	m.subSeq++
	id := m.subSeq
	m.observers[id] = fn
	m.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.subMu.Lock()
			delete(m.observers, id)
			m.subMu.Unlock()
		})
	}
}

func (m *Manager) transition(state State, user *shared.User) Snapshot {
	m.mu.Lock()
	m.state = state
	if user != nil {
		u := *user
		m.user = &u
	} else {
		m.user = nil
	}
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(snap)
	return snap
}

func (m *Manager) notify(snap Snapshot) {
	m.subMu.Lock()
	ids := make([]int, 0, len(m.observers))
	for id := range m.observers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(Snapshot), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, m.observers[id])
	}
	m.subMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}
