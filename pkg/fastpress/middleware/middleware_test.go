package middleware_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toyz/fastpress/pkg/fastpress"
	"github.com/toyz/fastpress/pkg/fastpress/adapters"
	"github.com/toyz/fastpress/pkg/fastpress/cache"
	"github.com/toyz/fastpress/pkg/fastpress/logging"
	"github.com/toyz/fastpress/pkg/fastpress/middleware"
	"github.com/toyz/fastpress/pkg/fastpress/security"
)

type fakeUsers struct {
	users map[string]*fastpress.Principal
	calls int
}

func (f *fakeUsers) FindUserByID(_ context.Context, id string) (*fastpress.Principal, error) {
	f.calls++
	return f.users[id], nil
}

type authFixture struct {
	server *adapters.EchoAdapter
	tokens *security.Tokens
	users  *fakeUsers
	cache  *cache.Memory
}

func newAuthFixture(t *testing.T, withCache bool) *authFixture {
	t.Helper()
	tokens, err := security.NewTokens("test-secret", "HS256", time.Minute, time.Hour)
	require.NoError(t, err)

	f := &authFixture{
		tokens: tokens,
		users:  &fakeUsers{users: map[string]*fastpress.Principal{"u1": {ID: "u1", Email: "ada@example.com", Name: "Ada"}}},
	}
	app := &fastpress.AppContext{Logger: logging.Nop(), Tokens: tokens}
	if withCache {
		f.cache = cache.NewMemory()
		app.Cache = f.cache
	}

	c := fastpress.NewController("/me", "MeController").
		Use(middleware.NewAuth(app, f.users)).
		Get("/", "me", func(ctx *fastpress.Context, args fastpress.Args) (any, error) {
			return args.Get(0), nil
		}, fastpress.User())

	f.server = adapters.NewDefaultEchoAdapter()
	require.NoError(t, fastpress.Bind(f.server, app, c))
	return f
}

func (f *authFixture) get(token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: middleware.AccessCookie, Value: token})
	}
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

func TestAuth_MissingCookie(t *testing.T) {
	f := newAuthFixture(t, true)
	rec := f.get("")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"statusCode":401,"message":"No token provided"}`, rec.Body.String())
}

func TestAuth_InvalidToken(t *testing.T) {
	f := newAuthFixture(t, true)
	rec := f.get("not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"statusCode":401,"message":"Unauthorized"}`, rec.Body.String())
}

func TestAuth_ExpiredToken(t *testing.T) {
	f := newAuthFixture(t, true)
	past, err := security.NewTokens("test-secret", "HS256", time.Minute, time.Hour,
		security.WithClock(func() time.Time { return time.Now().Add(-time.Hour) }))
	require.NoError(t, err)
	tok, err := past.IssueAccess("u1")
	require.NoError(t, err)

	rec := f.get(tok.Value)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"statusCode":401,"message":"Token Expired"}`, rec.Body.String())
}

func TestAuth_CachesLoadedUser(t *testing.T) {
	f := newAuthFixture(t, true)
	tok, err := f.tokens.IssueAccess("u1")
	require.NoError(t, err)

	rec := f.get(tok.Value)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"email":"ada@example.com"`)
	assert.Equal(t, 1, f.users.calls)

	cached, hit, err := cache.GetJSON[fastpress.Principal](context.Background(), f.cache, cache.UserKey("u1"))
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, "Ada", cached.Name)

	rec = f.get(tok.Value)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, f.users.calls, "second request is served from the cache")
}

func TestAuth_WithoutCache(t *testing.T) {
	f := newAuthFixture(t, false)
	tok, err := f.tokens.IssueAccess("u1")
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, f.get(tok.Value).Code)
	assert.Equal(t, http.StatusOK, f.get(tok.Value).Code)
	assert.Equal(t, 2, f.users.calls)
}

func TestAuth_UnknownUser(t *testing.T) {
	f := newAuthFixture(t, true)
	tok, err := f.tokens.IssueAccess("ghost")
	require.NoError(t, err)

	rec := f.get(tok.Value)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"statusCode":401,"message":"Unauthorized"}`, rec.Body.String())
}

func TestSanitizePath(t *testing.T) {
	tests := map[string]string{
		"/files/report.pdf":         "/files/report.pdf",
		"/files/../../etc/passwd":   "/files/etc/passwd",
		"/files/....//etc":          "/files/etc",
		"/files/%2e%2e%2fsecret":    "/files/secret",
		"/files/..\\windows":        "/files/windows",
		"/files/name\x00.txt":       "/files/name.txt",
		"/files/%252e%252e%252fkey": "/files/key",
	}
	for in, want := range tests {
		assert.Equal(t, want, middleware.SanitizePath(in), in)
	}
}

func TestSanitizeQuery(t *testing.T) {
	q := url.Values{
		"page":      {"2"},
		"file":      {"../../etc/passwd"},
		"../key":    {"x"},
		"name":      {"ada\x00"},
		"encoded":   {"%2e%2e%2fsecret"},
		"multi":     {"a", "b"},
		"mixedList": {"fine", "..\\bad"},
	}

	got := middleware.SanitizeQuery(q)
	assert.Equal(t, url.Values{
		"page":  {"2"},
		"name":  {"ada"},
		"multi": {"a", "b"},
	}, got)
}

func TestSanitizer_RewritesContext(t *testing.T) {
	var seenPath string
	var seenQuery url.Values
	c := fastpress.NewController("/files", "FileController").
		Use(middleware.NewSanitizer()).
		Get("/*", "serve", func(ctx *fastpress.Context, args fastpress.Args) (any, error) {
			seenPath = ctx.Path()
			seenQuery = ctx.Query()
			return map[string]any{"dl": args.Get(0)}, nil
		}, fastpress.Query("dl").Optional())

	server := adapters.NewDefaultEchoAdapter()
	require.NoError(t, fastpress.Bind(server, &fastpress.AppContext{Logger: logging.Nop()}, c))

	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/files/a/%2e%2e%2fb?dl=..%2Fx&v=1", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/files/a/b", seenPath)
	assert.Equal(t, url.Values{"v": {"1"}}, seenQuery)
	assert.JSONEq(t, `{"dl":null}`, rec.Body.String())
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	log := logging.NewWithWriter(&buf, zerolog.InfoLevel)

	c := fastpress.NewController("/ping", "PingController").
		Use(middleware.NewRequestLogger(log)).
		Get("/", "ping", func(ctx *fastpress.Context, args fastpress.Args) (any, error) {
			return fastpress.OK("pong"), nil
		})
	server := adapters.NewDefaultEchoAdapter()
	require.NoError(t, fastpress.Bind(server, &fastpress.AppContext{Logger: logging.Nop()}, c))

	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	out := buf.String()
	assert.Contains(t, out, `"message":"Request completed"`)
	assert.Contains(t, out, `"path":"/ping"`)
	assert.Contains(t, out, `"status":200`)
}
