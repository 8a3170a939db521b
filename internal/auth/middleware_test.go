package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func protectedHandler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject, ok := SubjectFromContext(r.Context())
		require.True(t, ok)
		w.Write([]byte(subject))
	})
}

func TestRequireAuth(t *testing.T) {
	ts, err := NewTokenService(testSecret)
	require.NoError(t, err)
	mw := RequireAuth(ts)

	t.Run("valid bearer token passes", func(t *testing.T) {
		token, err := ts.Generate("api")
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodPost, "/api/execute", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()

		mw(protectedHandler(t)).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "api", rr.Body.String())
	})

	t.Run("missing header blocked", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/execute", nil)
		rr := httptest.NewRecorder()

		mw(protectedHandler(t)).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("expired token blocked", func(t *testing.T) {
		token, err := ts.GenerateWithDuration("api", -time.Minute)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodPost, "/api/execute", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()

		mw(protectedHandler(t)).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("non-bearer scheme blocked", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/execute", nil)
		req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
		rr := httptest.NewRecorder()

		mw(protectedHandler(t)).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestSubjectFromContextAnonymous(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := SubjectFromContext(req.Context())
	assert.False(t, ok)
}
