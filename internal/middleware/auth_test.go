package middleware

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"groupman/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// callerEcho writes the authenticated caller as JSON.
func callerEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, _ := domain.CallerFromContext(r.Context())
		_ = json.NewEncoder(w).Encode(caller)
	})
}

func authHandler(t *testing.T) http.Handler {
	t.Helper()
	v, err := NewHS256Validator(testSecret)
	require.NoError(t, err)
	return Authenticate(v, ClaimMapping{NameClaim: "preferred_username", RolesClaim: "roles"}, discardLogger())(callerEcho())
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestAuthenticate(t *testing.T) {
	handler := authHandler(t)

	t.Run("valid_token_sets_caller", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+makeToken(testSecret, jwt.MapClaims{
			"sub":                "0b7c",
			"preferred_username": "molly",
			"roles":              []string{"ROLE_USER"},
			"exp":                time.Now().Add(time.Hour).Unix(),
		}))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var caller domain.Caller
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&caller))
		assert.Equal(t, "molly", caller.Name)
		assert.Equal(t, []string{"ROLE_USER"}, caller.Roles)
	})

	tests := []struct {
		name   string
		header string
	}{
		{name: "missing header", header: ""},
		{name: "basic scheme", header: "Basic bW9sbHk6c2VjcmV0"},
		{name: "invalid token", header: "Bearer not-a-token"},
		{name: "no name", header: "Bearer " + makeToken(testSecret, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			body := decodeBody(t, rec)
			assert.InDelta(t, float64(401), body["code"], 0.001)
			assert.Equal(t, "unauthenticated", body["error"])
		})
	}
}

func TestRequireRole(t *testing.T) {
	guarded := RequireRole("ROLE_ADMIN")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	serve := func(caller *domain.Caller) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if caller != nil {
			req = req.WithContext(domain.WithCaller(req.Context(), *caller))
		}
		rec := httptest.NewRecorder()
		guarded.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusNoContent, serve(&domain.Caller{Name: "root", Roles: []string{"ROLE_ADMIN"}}).Code)

	rec := serve(&domain.Caller{Name: "molly", Roles: []string{"ROLE_USER"}})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "forbidden", decodeBody(t, rec)["error"])

	assert.Equal(t, http.StatusUnauthorized, serve(nil).Code)
}
