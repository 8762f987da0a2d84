package guards_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toyz/fastpress/pkg/fastpress"
	"github.com/toyz/fastpress/pkg/fastpress/adapters"
	"github.com/toyz/fastpress/pkg/fastpress/guards"
	"github.com/toyz/fastpress/pkg/fastpress/logging"
)

func serve(t *testing.T, user *fastpress.Principal, guard fastpress.Guard, target string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	c := fastpress.NewController("/users", "UserController").
		Use(fastpress.MiddlewareHandler(func(ctx *fastpress.Context) error {
			if user != nil {
				ctx.SetUser(user)
			}
			return ctx.Next()
		})).
		Get("/:id", "get", func(ctx *fastpress.Context, args fastpress.Args) (any, error) {
			return fastpress.OK("ok"), nil
		}, fastpress.WithGuards(guard))

	server := adapters.NewDefaultEchoAdapter()
	require.NoError(t, fastpress.Bind(server, &fastpress.AppContext{Logger: logging.Nop()}, c))

	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)
	return rec
}

func TestAuthenticated(t *testing.T) {
	rec := serve(t, nil, guards.Authenticated(), "/users/1", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"statusCode":401,"message":"Unauthorized"}`, rec.Body.String())

	rec = serve(t, &fastpress.Principal{ID: "1"}, guards.Authenticated(), "/users/1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestOwner(t *testing.T) {
	rec := serve(t, &fastpress.Principal{ID: "1"}, guards.Owner("id"), "/users/2", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = serve(t, &fastpress.Principal{ID: "2"}, guards.Owner("id"), "/users/2", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(t, nil, guards.Owner("id"), "/users/2", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHeader(t *testing.T) {
	rec := serve(t, nil, guards.Header("X-Api-Key", "k1"), "/users/1", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"statusCode":403,"message":"Forbidden"}`, rec.Body.String())

	rec = serve(t, nil, guards.Header("X-Api-Key", "k1"), "/users/1", map[string]string{"X-Api-Key": "k1"})
	assert.Equal(t, http.StatusOK, rec.Code)
}
