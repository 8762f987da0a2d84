package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toyz/fastpress/pkg/fastpress"
	"github.com/toyz/fastpress/pkg/fastpress/adapters"
	"github.com/toyz/fastpress/pkg/fastpress/cache"
	"github.com/toyz/fastpress/pkg/fastpress/logging"
	"github.com/toyz/fastpress/pkg/fastpress/modules/auth"
	"github.com/toyz/fastpress/pkg/fastpress/security"
)

// memStore is an in-memory auth.Store.
type memStore struct {
	mu       sync.Mutex
	users    map[string]*auth.User
	sessions map[string]*auth.Session
}

func newMemStore() *memStore {
	return &memStore{users: map[string]*auth.User{}, sessions: map[string]*auth.Session{}}
}

func (m *memStore) FindUserByEmail(_ context.Context, email string) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, auth.ErrUserNotFound
}

func (m *memStore) FindUserByID(_ context.Context, id string) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, auth.ErrUserNotFound
}

func (m *memStore) CreateUser(_ context.Context, u *auth.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memStore) FindSession(_ context.Context, id string) (*auth.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, auth.ErrSessionNotFound
}

func (m *memStore) FindSessionByToken(_ context.Context, token string) (*auth.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.Token == token {
			cp := *s
			return &cp, nil
		}
	}
	return nil, auth.ErrSessionNotFound
}

func (m *memStore) CreateSession(_ context.Context, s *auth.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

func (m *memStore) UpdateSession(_ context.Context, s *auth.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.ID]; !ok {
		return auth.ErrSessionNotFound
	}
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

func (m *memStore) DeleteSessionByToken(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		if s.Token == token {
			delete(m.sessions, id)
			return nil
		}
	}
	return auth.ErrSessionNotFound
}

type fixture struct {
	server *adapters.EchoAdapter
	store  *memStore
	cache  *cache.Memory
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	tokens, err := security.NewTokens("test-secret", "HS256", 15*time.Minute, 24*time.Hour)
	require.NoError(t, err)

	f := &fixture{store: newMemStore(), cache: cache.NewMemory()}
	app := &fastpress.AppContext{Logger: logging.Nop(), Tokens: tokens, Cache: f.cache}
	module := auth.New(app, f.store)

	f.server = adapters.NewDefaultEchoAdapter()
	for _, c := range module.Controllers() {
		require.NoError(t, fastpress.Bind(f.server, app, c))
	}
	return f
}

func (f *fixture) do(method, target, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

func cookies(rec *httptest.ResponseRecorder) map[string]*http.Cookie {
	out := map[string]*http.Cookie{}
	for _, c := range rec.Result().Cookies() {
		out[c.Name] = c
	}
	return out
}

const signupBody = `{"email":"ada@example.com","password":"hunter22","name":"Ada"}`

func TestSignup(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/auth/signup", signupBody)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		StatusCode int    `json:"statusCode"`
		Message    string `json:"message"`
		Data       struct {
			User map[string]any `json:"user"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Signup successful", resp.Message)
	assert.Equal(t, "ada@example.com", resp.Data.User["email"])
	assert.NotContains(t, resp.Data.User, "password")

	jar := cookies(rec)
	for _, name := range []string{auth.AccessCookie, auth.RefreshCookie, auth.SessionCookie} {
		require.Contains(t, jar, name)
		assert.True(t, jar[name].HttpOnly)
		assert.Equal(t, http.SameSiteStrictMode, jar[name].SameSite)
		assert.False(t, jar[name].Secure)
	}
	assert.Equal(t, int((15 * time.Minute).Seconds()), jar[auth.AccessCookie].MaxAge)
	assert.Len(t, f.store.sessions, 1)

	stored, err := f.store.FindUserByEmail(context.Background(), "ada@example.com")
	require.NoError(t, err)
	assert.True(t, security.ComparePassword(stored.Password, "hunter22"))
}

func TestSignup_Failures(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusCreated, f.do(http.MethodPost, "/auth/signup", signupBody).Code)

	rec := f.do(http.MethodPost, "/auth/signup", signupBody)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"statusCode":400,"message":"Email already in use"}`, rec.Body.String())

	rec = f.do(http.MethodPost, "/auth/signup", `{"email":"bad","password":"123"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{
		"statusCode": 400,
		"message": "Validation failed",
		"data": {"errors": [
			{"path": "email", "message": "Email must be a valid email address"},
			{"path": "password", "message": "Password must be at least 6 characters"},
			{"path": "name", "message": "Name is required"}
		]}
	}`, rec.Body.String())
}

func TestLoginAndMe(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusCreated, f.do(http.MethodPost, "/auth/signup", signupBody).Code)

	rec := f.do(http.MethodPost, "/auth/login", `{"email":"ada@example.com","password":"wrong-pass"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"statusCode":401,"message":"Invalid email or password"}`, rec.Body.String())

	rec = f.do(http.MethodPost, "/auth/login", `{"email":"nobody@example.com","password":"hunter22"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(http.MethodPost, "/auth/login", `{"email":"ada@example.com","password":"hunter22"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"message":"Login successful"`)
	jar := cookies(rec)
	require.Contains(t, jar, auth.AccessCookie)
	require.Contains(t, jar, auth.SessionCookie)

	rec = f.do(http.MethodGet, "/auth/me", "", jar[auth.AccessCookie])
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"email":"ada@example.com"`)

	rec = f.do(http.MethodGet, "/auth/me", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"statusCode":401,"message":"No token provided"}`, rec.Body.String())
}

func TestLogin_RotatesExistingSession(t *testing.T) {
	f := newFixture(t)
	signup := f.do(http.MethodPost, "/auth/signup", signupBody)
	require.Equal(t, http.StatusCreated, signup.Code)
	session := cookies(signup)[auth.SessionCookie]

	rec := f.do(http.MethodPost, "/auth/login", `{"email":"ada@example.com","password":"hunter22"}`, session)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.NotContains(t, cookies(rec), auth.SessionCookie)
	assert.Len(t, f.store.sessions, 1)
	assert.Equal(t, cookies(rec)[auth.RefreshCookie].Value, f.store.sessions[session.Value].Token)
}

func TestRefreshAndLogout(t *testing.T) {
	f := newFixture(t)
	signup := f.do(http.MethodPost, "/auth/signup", signupBody)
	require.Equal(t, http.StatusCreated, signup.Code)
	refresh := cookies(signup)[auth.RefreshCookie]

	rec := f.do(http.MethodGet, "/auth/refresh", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"statusCode":401,"message":"No refresh token provided"}`, rec.Body.String())

	rec = f.do(http.MethodGet, "/auth/refresh", "", &http.Cookie{Name: auth.RefreshCookie, Value: "garbage"})
	assert.JSONEq(t, `{"statusCode":401,"message":"Invalid refresh token"}`, rec.Body.String())

	rec = f.do(http.MethodGet, "/auth/refresh", "", refresh)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"message":"Token refreshed"`)
	assert.Contains(t, cookies(rec), auth.AccessCookie)

	rec = f.do(http.MethodPost, "/auth/logout", "", refresh)
	require.Equal(t, http.StatusOK, rec.Code)
	for _, c := range cookies(rec) {
		assert.Empty(t, c.Value)
		assert.Negative(t, c.MaxAge)
	}
	assert.Empty(t, f.store.sessions)

	rec = f.do(http.MethodGet, "/auth/refresh", "", refresh)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestService_ExpiredSession(t *testing.T) {
	store := newMemStore()
	tokens, err := security.NewTokens("test-secret", "HS256", time.Minute, time.Hour)
	require.NoError(t, err)
	svc := auth.NewService(store, tokens)
	ctx := context.Background()

	user, err := svc.Signup(ctx, "Grace@Example.com ", "hunter22", "Grace")
	require.NoError(t, err)
	assert.Equal(t, "grace@example.com", user.Email)

	tok, sess, err := svc.GenerateRefreshToken(ctx, user.ID, "")
	require.NoError(t, err)

	sess.ExpiresAt = time.Now().Add(-time.Minute)
	require.NoError(t, store.UpdateSession(ctx, sess))

	_, err = svc.ValidateRefreshToken(ctx, tok.Value)
	assert.ErrorIs(t, err, auth.ErrSessionNotFound)

	_, err = svc.GenerateAccessToken(ctx, "missing")
	assert.ErrorIs(t, err, auth.ErrUserNotFound)

	_, err = svc.Login(ctx, "grace@example.com", "nope-nope")
	assert.ErrorIs(t, err, auth.ErrInvalidPassword)
}
