package session

import (
	"context"
	"sync"
)

// State is the session lifecycle position. Transitions:
// Uninitialized -> Loading -> {Authenticated, Anonymous};
// Authenticated -> Anonymous via logout or failed refresh;
// Anonymous -> Authenticated via login. Nothing else.
type State int

const (
	Uninitialized State = iota
	Loading
	Authenticated
	Anonymous
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Loading:
		return "loading"
	case Authenticated:
		return "authenticated"
	case Anonymous:
		return "anonymous"
	}
	return "unknown"
}

// Snapshot is the externally visible session state.
type Snapshot struct {
	State State
	User  User
}

// IsAuthenticated reports whether a user is signed in.
func (s Snapshot) IsAuthenticated() bool { return s.State == Authenticated }

// IsLoading reports whether session restore is still in flight.
func (s Snapshot) IsLoading() bool { return s.State == Loading || s.State == Uninitialized }

// Manager owns the session state. Consumers read it through Snapshot
// and observe changes through OnChange; the state is mutated only by
// the declared operations. Mutating operations are serialized by a
// dedicated operation mutex held across the whole call, network
// included, so two overlapping logins can never interleave their state
// writes: the last call to start is the last to resolve.
type Manager struct {
	api   API
	store TokenStore

	opMu sync.Mutex // serializes mutating operations end to end

	mu        sync.Mutex // guards the fields below
	state     State
	user      User
	tokens    TokenPair
	observers []func(Snapshot)
}

// NewManager builds a manager in the Uninitialized state.
func NewManager(api API, store TokenStore) *Manager {
	return &Manager{api: api, store: store, state: Uninitialized}
}

// Snapshot returns the current state and user.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{State: m.state, User: m.user}
}

// AccessToken returns the current access token, empty when signed out.
func (m *Manager) AccessToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokens.Access
}

// OnChange registers an observer invoked after every state transition.
// The returned function removes the observer; late notifications after
// removal are possible and must be tolerated as no-ops by the caller.
func (m *Manager) OnChange(fn func(Snapshot)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, fn)
	idx := len(m.observers) - 1
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if idx < len(m.observers) {
			m.observers[idx] = nil
		}
	}
}

// setState applies a transition and notifies observers outside the lock.
func (m *Manager) setState(state State, user User, tokens TokenPair) {
	m.mu.Lock()
	m.state = state
	m.user = user
	m.tokens = tokens
	obs := make([]func(Snapshot), 0, len(m.observers))
	for _, fn := range m.observers {
		if fn != nil {
			obs = append(obs, fn)
		}
	}
	snap := Snapshot{State: state, User: user}
	m.mu.Unlock()
	for _, fn := range obs {
		fn(snap)
	}
}

// Initialize restores the session from persisted tokens. It runs the
// whoami probe with the stored access token, falls back to one rotation
// when the access token has expired, and degrades to Anonymous on any
// failure, clearing stale tokens. It never returns an error: a client
// that cannot restore is simply logged out.
func (m *Manager) Initialize(ctx context.Context) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.mu.Lock()
	if m.state != Uninitialized {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()
	m.setState(Loading, User{}, TokenPair{})

	pair, ok, err := m.store.Load()
	if err != nil || !ok {
		m.setState(Anonymous, User{}, TokenPair{})
		return
	}

	user, err := m.api.Me(ctx, pair.Access)
	if err == ErrUnauthorized {
		// Access token expired while we were away; one rotation attempt.
		var newPair TokenPair
		user, newPair, err = m.api.Refresh(ctx, pair.Refresh)
		if err == nil {
			pair = newPair
			_ = m.store.Save(pair)
		}
	}
	if err != nil {
		_ = m.store.Clear()
		m.setState(Anonymous, User{}, TokenPair{})
		return
	}
	m.setState(Authenticated, user, pair)
}

// Login signs in. On success the token pair is persisted and the state
// becomes Authenticated; on failure the session state is left untouched
// and the error is returned for the UI to render.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	user, pair, err := m.api.Login(ctx, email, password)
	if err != nil {
		return err
	}
	_ = m.store.Save(pair)
	m.setState(Authenticated, user, pair)
	return nil
}

// Register creates an account without establishing a session; the user
// is asked to sign in afterwards. ErrEmailTaken surfaces on duplicates.
func (m *Manager) Register(ctx context.Context, email, password string) (User, error) {
	return m.api.Register(ctx, email, password)
}

// Logout revokes the refresh token (or all sessions) and clears local
// state. Local cleanup never depends on the revoke call succeeding.
func (m *Manager) Logout(ctx context.Context, allSessions bool) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.mu.Lock()
	tokens := m.tokens
	m.mu.Unlock()

	if tokens.Refresh != "" || tokens.Access != "" {
		// Best effort; the server-side token expires on its own if this fails.
		_ = m.api.Logout(ctx, tokens.Access, tokens.Refresh, allSessions)
	}
	_ = m.store.Clear()
	m.setState(Anonymous, User{}, TokenPair{})
}

// Refresh rotates the token pair silently. A failed rotation is the
// terminal "must re-authenticate" outcome: local tokens are cleared and
// the session becomes Anonymous.
func (m *Manager) Refresh(ctx context.Context) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()
	return m.refreshLocked(ctx)
}

func (m *Manager) refreshLocked(ctx context.Context) error {
	m.mu.Lock()
	tokens := m.tokens
	state := m.state
	m.mu.Unlock()

	if state != Authenticated || tokens.Refresh == "" {
		return ErrUnauthorized
	}
	user, pair, err := m.api.Refresh(ctx, tokens.Refresh)
	if err != nil {
		_ = m.store.Clear()
		m.setState(Anonymous, User{}, TokenPair{})
		return err
	}
	_ = m.store.Save(pair)
	m.setState(Authenticated, user, pair)
	return nil
}

// Authorized runs fn with the current access token. When fn reports
// ErrUnauthorized the manager rotates the pair once and retries; if the
// rotation fails the session is forced Anonymous and the original error
// is returned. This is the single implicit-logout path.
func (m *Manager) Authorized(ctx context.Context, fn func(accessToken string) error) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.mu.Lock()
	access := m.tokens.Access
	state := m.state
	m.mu.Unlock()

	if state != Authenticated {
		return ErrUnauthorized
	}
	err := fn(access)
	if err != ErrUnauthorized {
		return err
	}
	if rerr := m.refreshLocked(ctx); rerr != nil {
		return err
	}
	m.mu.Lock()
	access = m.tokens.Access
	m.mu.Unlock()
	return fn(access)
}
