package server

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/stretchr/testify/assert"
)

func TestAuthMiddleware(t *testing.T) {
	var called bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusNoContent)
	})

	t.Run("Disabled", func(t *testing.T) {
		called = false
		srv := &Server{}
		w := httptest.NewRecorder()
		srv.authMiddleware(next).ServeHTTP(w, httptest.NewRequest("GET", "/api/schools", nil))
		assert.True(t, called)
		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	srv := &Server{
		oidcAudience: "test-audience",
		oidcVerifier: func(ctx context.Context, rawIDToken string) (*oidc.IDToken, error) {
			if rawIDToken != "valid-token" {
				return nil, fmt.Errorf("bad token")
			}
			return &oidc.IDToken{Subject: "user1"}, nil
		},
	}
	handler := srv.authMiddleware(next)

	t.Run("Missing Header", func(t *testing.T) {
		called = false
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest("GET", "/api/schools", nil))
		assert.False(t, called)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Not Bearer", func(t *testing.T) {
		called = false
		req := httptest.NewRequest("GET", "/api/schools", nil)
		req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.False(t, called)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Invalid Token", func(t *testing.T) {
		called = false
		req := httptest.NewRequest("GET", "/api/schools", nil)
		req.Header.Set("Authorization", "Bearer nope")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.False(t, called)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Valid Token", func(t *testing.T) {
		called = false
		req := httptest.NewRequest("GET", "/api/schools", nil)
		req.Header.Set("Authorization", "Bearer valid-token")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.True(t, called)
		assert.Equal(t, http.StatusNoContent, w.Code)
	})
}
