package session

import (
	"bytes"
	"context"
	"errors"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/learnhub/internal/client/api"
	"github.com/dmitrijs2005/learnhub/internal/client/credentials"
	"github.com/dmitrijs2005/learnhub/internal/client/models"
	"github.com/dmitrijs2005/learnhub/internal/client/storage"
	"github.com/dmitrijs2005/learnhub/internal/logging"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend answers the auth endpoints and records what it saw.
type fakeBackend struct {
	mu sync.Mutex

	loginStatus  int
	loginBody    any
	meStatus     int
	meBody       any
	logoutStatus int

	loginReq   LoginRequest
	meAuth     []string
	logoutHits int
	registered *RegisterRequest
}

func (f *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		_ = json.NewDecoder(r.Body).Decode(&f.loginReq)
		reply(w, f.loginStatus, f.loginBody)
	})
	mux.HandleFunc("GET /api/users/me", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.meAuth = append(f.meAuth, r.Header.Get("Authorization"))
		reply(w, f.meStatus, f.meBody)
	})
	mux.HandleFunc("POST /api/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.logoutHits++
		reply(w, f.logoutStatus, nil)
	})
	mux.HandleFunc("POST /api/auth/register", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		var req RegisterRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.registered = &req
		reply(w, http.StatusCreated, models.User{UserID: 11, Email: req.Email, FullName: req.FullName})
	})
	return mux
}

func reply(w http.ResponseWriter, status int, body any) {
	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

func setup(t *testing.T, fb *fakeBackend) (*Manager, *credentials.MetadataStore) {
	t.Helper()
	srv := httptest.NewServer(fb.handler())
	t.Cleanup(srv.Close)

	store := credentials.NewMemoryStore()
	c, err := api.NewClient(srv.URL+"/api", store)
	require.NoError(t, err)
	return NewManager(c, store, nil), store
}

func storedToken(t *testing.T, store credentials.Store) string {
	t.Helper()
	tok, err := store.Token(context.Background())
	require.NoError(t, err)
	return tok
}

func TestLogin_Success_PersistsTokenAndUser(t *testing.T) {
	fb := &fakeBackend{
		loginBody: LoginResponse{Token: "tok1", User: models.User{UserID: 7, Email: "a@b.com"}},
		meBody:    models.User{UserID: 7, Email: "a@b.com", FullName: "Ann"},
	}
	m, store := setup(t, fb)
	ctx := context.Background()

	require.NoError(t, m.Login(ctx, "a@b.com", "secret123"))

	assert.Equal(t, "tok1", storedToken(t, store))
	assert.Equal(t, StateAuthenticated, m.State())
	require.NotNil(t, m.User())
	assert.Equal(t, int64(7), m.User().UserID)
	assert.Equal(t, LoginRequest{Email: "a@b.com", Password: "secret123"}, fb.loginReq)

	email, err := store.LastEmail(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", email)

	// The next profile fetch carries the new credential.
	require.NoError(t, m.RefreshUser(ctx))
	assert.Equal(t, []string{"Bearer tok1"}, fb.meAuth)
	assert.Equal(t, "Ann", m.User().FullName)
}

func TestLogin_Failure_ClearsStaleCredential(t *testing.T) {
	fb := &fakeBackend{loginStatus: http.StatusUnauthorized, loginBody: map[string]string{"message": "bad credentials"}}
	m, store := setup(t, fb)
	require.NoError(t, store.SetToken(context.Background(), "stale"))

	err := m.Login(context.Background(), "a@b.com", "wrong")
	require.ErrorIs(t, err, api.ErrUnauthorized)
	assert.Contains(t, err.Error(), "bad credentials")

	assert.Empty(t, storedToken(t, store))
	assert.Equal(t, StateAnonymous, m.State())
	assert.Nil(t, m.User())
}

func TestLogin_EmptyTokenIsAFailure(t *testing.T) {
	fb := &fakeBackend{loginBody: LoginResponse{User: models.User{UserID: 1}}}
	m, store := setup(t, fb)

	err := m.Login(context.Background(), "a@b.com", "secret123")
	require.ErrorIs(t, err, ErrInvalidLoginResponse)
	assert.Empty(t, storedToken(t, store))
	assert.Equal(t, StateAnonymous, m.State())
}

func TestLogin_InvalidEmailRejectedLocally(t *testing.T) {
	fb := &fakeBackend{}
	m, _ := setup(t, fb)

	err := m.Login(context.Background(), "not-an-email", "x")
	require.ErrorIs(t, err, api.ErrValidation)
	assert.Empty(t, fb.loginReq.Email, "request must not be sent")
}

func TestLogout_ClearsEvenWhenRemoteFails(t *testing.T) {
	for _, status := range []int{http.StatusOK, http.StatusInternalServerError, http.StatusUnauthorized} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			fb := &fakeBackend{
				loginBody:    LoginResponse{Token: "tok1", User: models.User{UserID: 7}},
				logoutStatus: status,
			}
			m, store := setup(t, fb)
			require.NoError(t, m.Login(context.Background(), "a@b.com", "secret123"))

			m.Logout(context.Background())

			assert.Equal(t, 1, fb.logoutHits)
			assert.Empty(t, storedToken(t, store))
			assert.Equal(t, StateAnonymous, m.State())
			assert.Nil(t, m.User())
		})
	}
}

func TestLogout_ServerUnreachable(t *testing.T) {
	store := credentials.NewMemoryStore()
	require.NoError(t, store.SetToken(context.Background(), "tok1"))
	c, err := api.NewClient("http://127.0.0.1:1/api", store, api.WithTimeout(time.Second))
	require.NoError(t, err)
	m := NewManager(c, store, nil)

	m.Logout(context.Background())

	assert.Empty(t, storedToken(t, store))
	assert.Equal(t, StateAnonymous, m.State())
}

// unreadableStore fails every token read but still clears.
type unreadableStore struct {
	*credentials.MetadataStore
}

func (unreadableStore) Token(context.Context) (string, error) {
	return "", errors.New("disk I/O error")
}

func TestLogout_TokenReadFailureIsLogged(t *testing.T) {
	fb := &fakeBackend{}
	srv := httptest.NewServer(fb.handler())
	t.Cleanup(srv.Close)

	inner := credentials.NewMemoryStore()
	require.NoError(t, inner.SetToken(context.Background(), "tok1"))
	store := unreadableStore{inner}
	c, err := api.NewClient(srv.URL+"/api", store)
	require.NoError(t, err)
	var logs bytes.Buffer
	m := NewManager(c, store, logging.New(&logs, "debug"))

	m.Logout(context.Background())

	assert.Contains(t, logs.String(), "credential read failed")
	assert.Contains(t, logs.String(), "disk I/O error")
	assert.Zero(t, fb.logoutHits)
	assert.Empty(t, storedToken(t, inner))
	assert.Equal(t, StateAnonymous, m.State())
}

func TestRefreshUser_NoCredentialIsNoop(t *testing.T) {
	fb := &fakeBackend{}
	m, _ := setup(t, fb)

	require.NoError(t, m.RefreshUser(context.Background()))
	assert.Empty(t, fb.meAuth)
	assert.Equal(t, StateAnonymous, m.State())
}

func TestRefreshUser_401ClearsSession(t *testing.T) {
	fb := &fakeBackend{
		loginBody: LoginResponse{Token: "tok1", User: models.User{UserID: 7}},
		meStatus:  http.StatusUnauthorized,
	}
	m, store := setup(t, fb)
	require.NoError(t, m.Login(context.Background(), "a@b.com", "secret123"))

	err := m.RefreshUser(context.Background())
	require.ErrorIs(t, err, api.ErrUnauthorized)
	assert.Empty(t, storedToken(t, store))
	assert.Equal(t, StateAnonymous, m.State())
	assert.Nil(t, m.User())
}

func TestRefreshUser_OtherErrorKeepsState(t *testing.T) {
	fb := &fakeBackend{
		loginBody: LoginResponse{Token: "tok1", User: models.User{UserID: 7, FullName: "Ann"}},
		meStatus:  http.StatusInternalServerError,
	}
	m, store := setup(t, fb)
	require.NoError(t, m.Login(context.Background(), "a@b.com", "secret123"))

	err := m.RefreshUser(context.Background())
	require.ErrorIs(t, err, api.ErrServer)
	assert.Equal(t, "tok1", storedToken(t, store))
	assert.Equal(t, StateAuthenticated, m.State())
	assert.Equal(t, "Ann", m.User().FullName)
}

func TestRefreshUser_OtherErrorAtStartupStaysAnonymous(t *testing.T) {
	fb := &fakeBackend{meStatus: http.StatusBadGateway}
	m, store := setup(t, fb)
	require.NoError(t, store.SetToken(context.Background(), "tok1"))

	require.Error(t, m.RefreshUser(context.Background()))
	assert.Equal(t, "tok1", storedToken(t, store), "credential kept for the next try")
	assert.Equal(t, StateAnonymous, m.State())
	assert.Nil(t, m.User())
}

func signed(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "7",
		"exp": exp.Unix(),
	}).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return tok
}

func TestRestore_ExpiredJWTDroppedWithoutNetwork(t *testing.T) {
	fb := &fakeBackend{meBody: models.User{UserID: 7}}
	m, store := setup(t, fb)
	require.NoError(t, store.SetToken(context.Background(), signed(t, time.Now().Add(-time.Hour))))

	require.NoError(t, m.Restore(context.Background()))
	assert.Empty(t, fb.meAuth)
	assert.Empty(t, storedToken(t, store))
	assert.Equal(t, StateAnonymous, m.State())
}

func TestRestore_LiveJWTRefreshesUser(t *testing.T) {
	fb := &fakeBackend{meBody: models.User{UserID: 7, Role: models.RoleInstructor}}
	m, store := setup(t, fb)
	tok := signed(t, time.Now().Add(time.Hour))
	require.NoError(t, store.SetToken(context.Background(), tok))

	require.NoError(t, m.Restore(context.Background()))
	assert.Equal(t, []string{"Bearer " + tok}, fb.meAuth)
	assert.Equal(t, StateAuthenticated, m.State())
	assert.True(t, m.User().IsInstructor())
}

func TestRestore_OpaqueTokenRefreshesUser(t *testing.T) {
	fb := &fakeBackend{meBody: models.User{UserID: 7}}
	m, store := setup(t, fb)
	require.NoError(t, store.SetToken(context.Background(), "tok1"))

	require.NoError(t, m.Restore(context.Background()))
	assert.Equal(t, []string{"Bearer tok1"}, fb.meAuth)
	assert.Equal(t, StateAuthenticated, m.State())
}

func TestSubscribe_ReceivesTransitions(t *testing.T) {
	fb := &fakeBackend{loginBody: LoginResponse{Token: "tok1", User: models.User{UserID: 7}}}
	m, _ := setup(t, fb)

	var (
		mu     sync.Mutex
		states []State
	)
	unsubscribe := m.Subscribe(func(s State, u *models.User) {
		mu.Lock()
		defer mu.Unlock()
		states = append(states, s)
		if s == StateAnonymous {
			assert.Nil(t, u)
		}
	})

	require.NoError(t, m.Login(context.Background(), "a@b.com", "secret123"))
	m.Logout(context.Background())
	unsubscribe()
	require.NoError(t, m.Login(context.Background(), "a@b.com", "secret123"))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []State{StateAuthenticating, StateAuthenticated, StateAnonymous}, states)
}

func TestUser_ReturnsCopy(t *testing.T) {
	fb := &fakeBackend{loginBody: LoginResponse{Token: "tok1", User: models.User{UserID: 7, FullName: "Ann"}}}
	m, _ := setup(t, fb)
	require.NoError(t, m.Login(context.Background(), "a@b.com", "secret123"))

	u := m.User()
	u.FullName = "changed"
	assert.Equal(t, "Ann", m.User().FullName)
}

func TestRegister(t *testing.T) {
	fb := &fakeBackend{}
	m, store := setup(t, fb)

	u, err := m.Register(context.Background(), RegisterRequest{
		FullName: "Ann", Email: "a@b.com", Password: "secret123", ConfirmPassword: "secret123",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(11), u.UserID)
	require.NotNil(t, fb.registered)
	assert.Empty(t, storedToken(t, store))
	assert.Equal(t, StateAnonymous, m.State())
}

func TestRegister_PasswordMismatchRejectedLocally(t *testing.T) {
	fb := &fakeBackend{}
	m, _ := setup(t, fb)

	_, err := m.Register(context.Background(), RegisterRequest{
		FullName: "Ann", Email: "a@b.com", Password: "secret123", ConfirmPassword: "secret124",
	})
	require.ErrorIs(t, err, api.ErrValidation)
	assert.Nil(t, fb.registered)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "anonymous", StateAnonymous.String())
	assert.Equal(t, "authenticating", StateAuthenticating.String())
	assert.Equal(t, "authenticated", StateAuthenticated.String())
	assert.Equal(t, "refreshing", StateRefreshing.String())
	assert.Equal(t, "unknown", State(42).String())
}

func TestTokenExpiry(t *testing.T) {
	_, ok := tokenExpiry("tok1")
	assert.False(t, ok)

	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	got, ok := tokenExpiry(signed(t, exp))
	require.True(t, ok)
	assert.True(t, got.Equal(exp))
}

// sqliteSetup is setup with a durable store, whose reads and writes honour
// the context.
func sqliteSetup(t *testing.T, h http.Handler) (*Manager, *credentials.MetadataStore) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	db, err := storage.InitDatabase(context.Background(), filepath.Join(t.TempDir(), "learnhub.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store := credentials.NewSQLiteStore(db)
	c, err := api.NewClient(srv.URL+"/api", store)
	require.NoError(t, err)
	return NewManager(c, store, nil), store
}

func TestLogout_ClearsDurableCredentialWhenContextExpires(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	m, store := sqliteSetup(t, mux)
	require.NoError(t, store.SetToken(context.Background(), "tok1"))

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	m.Logout(ctx)

	assert.Equal(t, StateAnonymous, m.State())
	assert.Empty(t, storedToken(t, store))
}

func TestLogin_FailureWithCancelledContextClearsDurableCredential(t *testing.T) {
	m, store := sqliteSetup(t, http.NewServeMux())
	require.NoError(t, store.SetToken(context.Background(), "stale"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Error(t, m.Login(ctx, "a@b.com", "secret123"))

	assert.Equal(t, StateAnonymous, m.State())
	assert.Empty(t, storedToken(t, store))
}

// heldProfile serves users/me only after release is closed.
func heldProfile(entered chan<- struct{}, release <-chan struct{}, fb *fakeBackend) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/users/me", func(w http.ResponseWriter, r *http.Request) {
		entered <- struct{}{}
		<-release
		reply(w, http.StatusOK, models.User{UserID: 7, Email: "a@b.com", FullName: "Old"})
	})
	mux.Handle("/api/auth/", fb.handler())
	return mux
}

func TestRefreshUser_DoesNotResurrectAfterLogout(t *testing.T) {
	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	m, store := sqliteSetup(t, heldProfile(entered, release, &fakeBackend{}))
	require.NoError(t, store.SetToken(context.Background(), "tok1"))

	done := make(chan error, 1)
	go func() { done <- m.RefreshUser(context.Background()) }()
	<-entered

	m.Logout(context.Background())
	close(release)
	require.NoError(t, <-done)

	assert.Equal(t, StateAnonymous, m.State())
	assert.Nil(t, m.User())
	assert.Empty(t, storedToken(t, store))
}

func TestRefreshUser_DoesNotOverwriteNewerLogin(t *testing.T) {
	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	fb := &fakeBackend{loginBody: LoginResponse{Token: "tok2", User: models.User{UserID: 8, FullName: "New"}}}
	m, store := sqliteSetup(t, heldProfile(entered, release, fb))
	require.NoError(t, store.SetToken(context.Background(), "tok1"))

	done := make(chan error, 1)
	go func() { done <- m.RefreshUser(context.Background()) }()
	<-entered

	require.NoError(t, m.Login(context.Background(), "a@b.com", "secret123"))
	close(release)
	require.NoError(t, <-done)

	assert.Equal(t, StateAuthenticated, m.State())
	require.NotNil(t, m.User())
	assert.Equal(t, "New", m.User().FullName)
	assert.Equal(t, "tok2", storedToken(t, store))
}
