package routes

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"recipehub/auth"
	"recipehub/middleware"
	"recipehub/payments"
	"recipehub/ratelim"
	"recipehub/recipes"
	"recipehub/users"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDeps(t *testing.T, health map[string]Pinger) Deps {
	tokens := middleware.NewAuth("routes-test-secret-long-enough-000", nil)
	return Deps{
		Auth:      tokens,
		Limiter:   ratelim.NewRateLimiter(100, 100, time.Minute),
		Users:     users.NewHandler(nil, nil),
		Recipes:   recipes.NewHandler(nil),
		Login:     auth.NewHandler(nil, tokens, nil, time.Hour),
		UploadDir: t.TempDir(),
		Health:    health,
	}
}

func TestRoutesRegistered(t *testing.T) {
	router := New(testDeps(t, nil))

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/auth/login"},
		{http.MethodPost, "/auth/logout"},
		{http.MethodPost, "/users"},
		{http.MethodGet, "/users"},
		{http.MethodGet, "/users/abc"},
		{http.MethodGet, "/users/abc/recipes"},
		{http.MethodGet, "/users/abc/activity"},
		{http.MethodPut, "/users/abc"},
		{http.MethodDelete, "/users/abc"},
		{http.MethodPatch, "/users/abc/block"},
		{http.MethodPost, "/users/follow"},
		{http.MethodPost, "/users/unfollow"},
		{http.MethodPost, "/recipes"},
		{http.MethodGet, "/recipes"},
		{http.MethodGet, "/recipes/abc"},
		{http.MethodPut, "/recipes/abc"},
		{http.MethodDelete, "/recipes/abc"},
		{http.MethodPost, "/recipes/abc/upvote"},
		{http.MethodPost, "/recipes/abc/downvote"},
		{http.MethodPost, "/recipes/abc/rate"},
		{http.MethodPost, "/recipes/abc/comment"},
		{http.MethodPut, "/recipes/abc/comment/c1"},
		{http.MethodDelete, "/recipes/abc/comment/c1"},
		{http.MethodPost, "/recipes/abc/image"},
		{http.MethodGet, "/recipes/abc/pdf"},
		{http.MethodGet, "/recipes/abc/qr"},
		{http.MethodGet, "/health"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			h, _, _ := router.Lookup(tt.method, tt.path)
			assert.NotNil(t, h)
		})
	}

	h, _, _ := router.Lookup(http.MethodPost, "/payments/checkout")
	assert.Nil(t, h, "checkout is off without a payments handler")
}

func TestCheckoutRouteWhenEnabled(t *testing.T) {
	client, err := payments.NewClient(payments.Settings{
		SecretKey:  "sk_test_1",
		SuccessURL: "http://localhost:3000/success",
		CancelURL:  "http://localhost:3000/cancel",
	})
	require.NoError(t, err)

	d := testDeps(t, nil)
	d.Payments = payments.NewHandler(client)
	router := New(d)

	h, _, _ := router.Lookup(http.MethodPost, "/payments/checkout")
	require.NotNil(t, h)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/payments/checkout", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWriteRoutesRequireToken(t *testing.T) {
	router := New(testDeps(t, nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/recipes/abc/upvote", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealth(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	rec := httptest.NewRecorder()
	New(testDeps(t, map[string]Pinger{"mongo": ok, "redis": ok})).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	New(testDeps(t, map[string]Pinger{"mongo": ok, "redis": down})).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")
}
