// Package session owns the "who is logged in" state of a running client.
//
// A Manager is created once at startup and passed explicitly to whatever
// needs it. It persists the bearer credential through a credentials.Store
// and keeps the user profile in memory only.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/learnhub/internal/client/api"
	"github.com/dmitrijs2005/learnhub/internal/client/credentials"
	"github.com/dmitrijs2005/learnhub/internal/client/models"
	"github.com/dmitrijs2005/learnhub/internal/logging"
)

var (
	ErrInvalidLoginResponse = errors.New("login response carried no token")
	ErrLoginInProgress      = errors.New("login already in progress")
)

// LoginRequest is the body of POST auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse is the body returned by POST auth/login.
type LoginResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// RegisterRequest is the body of POST auth/register.
type RegisterRequest struct {
	FullName        string `json:"fullName" validate:"required,max=100"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
	Role            string `json:"role,omitempty" validate:"omitempty,oneof=Student Instructor"`
}

// loginSaver is implemented by stores that can persist the token and the
// login identifier together.
type loginSaver interface {
	SaveLogin(ctx context.Context, token, email string) error
}

// Listener is called after every state change, outside the manager's lock.
type Listener func(state State, user *models.User)

type Manager struct {
	client *api.Client
	store  credentials.Store
	logger logging.Logger
	now    func() time.Time

	mu    sync.Mutex
	state State
	user  *models.User
	// gen changes whenever a login starts or the credential is dropped. A
	// refresh applies its result only if gen is unchanged.
	gen       uint64
	listeners map[int]Listener
	nextID    int
}

func NewManager(client *api.Client, store credentials.Store, logger logging.Logger) *Manager {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Manager{
		client:    client,
		store:     store,
		logger:    logger.With("component", "session"),
		now:       time.Now,
		state:     StateAnonymous,
		listeners: make(map[int]Listener),
	}
}

// State returns the current state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// User returns a copy of the current user, or nil when anonymous.
func (m *Manager) User() *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyUser(m.user)
}

func (m *Manager) IsAuthenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.user != nil
}

// Token returns the persisted credential, "" when there is none.
func (m *Manager) Token(ctx context.Context) (string, error) {
	return m.store.Token(ctx)
}

// Subscribe registers l and returns a function that removes it.
func (m *Manager) Subscribe(l Listener) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = l
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

// Login authenticates with the API. On success the token is persisted and the
// returned user becomes current. On failure no credential remains persisted
// and the session is anonymous.
func (m *Manager) Login(ctx context.Context, identifier, secret string) error {
	if !m.beginLogin() {
		return ErrLoginInProgress
	}

	resp, err := api.Post[LoginResponse](ctx, m.client, "auth/login",
		LoginRequest{Email: identifier, Password: secret}, false)
	if err == nil && resp.Token == "" {
		err = ErrInvalidLoginResponse
	}
	if err == nil {
		err = m.persistLogin(ctx, resp.Token, identifier)
	}

	if err != nil {
		m.dropCredential(ctx)
		m.transition(StateAnonymous, nil)
		m.logger.Info(ctx, "login failed", "email", identifier, "error", err)
		return err
	}

	user := resp.User
	m.transition(StateAuthenticated, &user)
	m.logger.Info(ctx, "logged in", "user_id", user.UserID, "role", user.Role)
	return nil
}

func (m *Manager) persistLogin(ctx context.Context, token, identifier string) error {
	if s, ok := m.store.(loginSaver); ok {
		if err := s.SaveLogin(ctx, token, identifier); err != nil {
			return fmt.Errorf("persist credential: %w", err)
		}
		return nil
	}
	if err := m.store.SetToken(ctx, token); err != nil {
		return fmt.Errorf("persist credential: %w", err)
	}
	return nil
}

// Logout tells the API the session is over and then, whatever the API
// answered, forgets the credential and the user.
func (m *Manager) Logout(ctx context.Context) {
	token, err := m.store.Token(ctx)
	if err != nil {
		m.logger.Warn(ctx, "credential read failed, skipping remote logout", "error", err)
	}
	if token != "" {
		if _, err := api.Post[api.Empty](ctx, m.client, "auth/logout", nil, false); err != nil {
			m.logger.Warn(ctx, "remote logout failed", "error", err)
		}
	}

	m.dropCredential(ctx)
	m.transition(StateAnonymous, nil)
	m.logger.Info(ctx, "logged out")
}

// RefreshUser re-reads the profile of the credential holder. A 401 means the
// credential is no longer valid: it is cleared and the session becomes
// anonymous. Any other failure leaves the previous state as it was.
func (m *Manager) RefreshUser(ctx context.Context) error {
	token, err := m.store.Token(ctx)
	if err != nil {
		return fmt.Errorf("read credential: %w", err)
	}
	if token == "" {
		return nil
	}

	gen, prevState, prevUser, ok := m.beginRefresh()
	if !ok {
		return nil
	}

	user, err := api.Get[models.User](ctx, m.client, "users/me")
	switch {
	case err == nil:
		if !m.credentialUnchanged(ctx, token) {
			m.logger.Debug(ctx, "credential changed during refresh, discarding profile")
			m.transitionIf(gen, prevState, prevUser)
			return nil
		}
		if !m.transitionIf(gen, StateAuthenticated, user) {
			m.logger.Debug(ctx, "session changed during refresh, discarding profile")
		}
		return nil
	case errors.Is(err, api.ErrUnauthorized):
		if !m.credentialUnchanged(ctx, token) {
			m.transitionIf(gen, prevState, prevUser)
			return err
		}
		m.logger.Info(ctx, "credential rejected, signing out")
		m.dropCredential(ctx)
		m.transition(StateAnonymous, nil)
		return err
	default:
		m.logger.Warn(ctx, "profile refresh failed, keeping session", "error", err)
		m.transitionIf(gen, prevState, prevUser)
		return err
	}
}

// credentialUnchanged reports whether the store still holds token.
func (m *Manager) credentialUnchanged(ctx context.Context, token string) bool {
	cur, err := m.store.Token(context.WithoutCancel(ctx))
	return err == nil && cur == token
}

// Restore brings back a session persisted by a previous run. A JWT whose exp
// has passed is dropped without asking the server.
func (m *Manager) Restore(ctx context.Context) error {
	token, err := m.store.Token(ctx)
	if err != nil {
		return fmt.Errorf("read credential: %w", err)
	}
	if token == "" {
		return nil
	}

	if exp, ok := tokenExpiry(token); ok && !m.now().Before(exp) {
		m.logger.Info(ctx, "stored credential expired", "expired_at", exp)
		m.dropCredential(ctx)
		m.transition(StateAnonymous, nil)
		return nil
	}
	return m.RefreshUser(ctx)
}

// Register creates an account. It does not sign the new user in.
func (m *Manager) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	return api.Post[models.User](ctx, m.client, "auth/register", req, false)
}

// dropCredential deletes the persisted token even when ctx is already done,
// so a timed out logout still signs the user out durably.
func (m *Manager) dropCredential(ctx context.Context) {
	m.mu.Lock()
	m.gen++
	m.mu.Unlock()

	if err := m.store.ClearToken(context.WithoutCancel(ctx)); err != nil {
		m.logger.Error(ctx, "failed to clear credential", "error", err)
	}
}

func (m *Manager) beginLogin() bool {
	m.mu.Lock()
	if m.state == StateAuthenticating {
		m.mu.Unlock()
		return false
	}
	m.gen++
	listeners := m.setLocked(StateAuthenticating, nil)
	m.mu.Unlock()

	notify(listeners, StateAuthenticating, nil)
	return true
}

// beginRefresh moves to StateRefreshing and returns what to restore if the
// refresh fails. ok is false while a login is in flight.
func (m *Manager) beginRefresh() (gen uint64, prevState State, prevUser *models.User, ok bool) {
	m.mu.Lock()
	if m.state == StateAuthenticating {
		m.mu.Unlock()
		return 0, 0, nil, false
	}
	gen, prevState, prevUser = m.gen, m.state, copyUser(m.user)
	listeners := m.setLocked(StateRefreshing, prevUser)
	user := copyUser(m.user)
	m.mu.Unlock()

	notify(listeners, StateRefreshing, user)
	return gen, prevState, prevUser, true
}

// transitionIf is transition guarded by gen. It reports whether the change
// was applied.
func (m *Manager) transitionIf(gen uint64, state State, user *models.User) bool {
	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		return false
	}
	listeners := m.setLocked(state, user)
	user = copyUser(m.user)
	m.mu.Unlock()

	notify(listeners, state, user)
	return true
}

// transition sets the new state and notifies listeners.
func (m *Manager) transition(state State, user *models.User) {
	m.mu.Lock()
	listeners := m.setLocked(state, user)
	user = copyUser(m.user)
	m.mu.Unlock()

	notify(listeners, state, user)
}

// setLocked must be called with mu held. An anonymous state always carries
// a nil user.
func (m *Manager) setLocked(state State, user *models.User) []Listener {
	if state == StateAnonymous {
		user = nil
	}
	m.state = state
	m.user = copyUser(user)

	listeners := make([]Listener, 0, len(m.listeners))
	for _, l := range m.listeners {
		listeners = append(listeners, l)
	}
	return listeners
}

func notify(listeners []Listener, state State, user *models.User) {
	for _, l := range listeners {
		l(state, copyUser(user))
	}
}

func copyUser(u *models.User) *models.User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
