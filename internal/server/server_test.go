package server_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/cpp-engine/internal/auth"
	"github.com/sakif/cpp-engine/internal/config"
	"github.com/sakif/cpp-engine/internal/engine"
	"github.com/sakif/cpp-engine/internal/server"
)

// fixedEngine returns canned outcomes so routing and auth wiring can be
// exercised without a compiler on the test machine.
type fixedEngine struct{}

func (fixedEngine) Compile(ctx context.Context, code string, opts engine.Options) (*engine.CompileOutcome, error) {
	return &engine.CompileOutcome{Succeeded: true, Warnings: []string{}, Errors: []string{}}, nil
}

func (fixedEngine) Run(ctx context.Context, code, input string, opts engine.Options) (*engine.RunOutcome, error) {
	return &engine.RunOutcome{
		Compile: engine.CompileOutcome{Succeeded: true, Warnings: []string{}, Errors: []string{}},
		Execute: &engine.ExecuteOutcome{Succeeded: true, Stdout: "ok\n"},
	}, nil
}

func (fixedEngine) Health(ctx context.Context) engine.Health {
	return engine.Health{CompilerOK: true, Compiler: "/usr/bin/g++"}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, cfg config.Config) http.Handler {
	t.Helper()
	srv, err := server.New(cfg, testLogger(), server.Deps{Engine: fixedEngine{}})
	require.NoError(t, err)
	return srv.Router()
}

func TestRoutes(t *testing.T) {
	h := newTestServer(t, config.Default())

	t.Run("docs page served at root", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "/api/execute")
	})

	t.Run("health reachable without auth", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("execute mounted and open by default", func(t *testing.T) {
		rr := httptest.NewRecorder()
		body := strings.NewReader(`{"code":"int main(){}"}`)
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/execute", body))
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `"stdout":"ok\n"`)
	})

	t.Run("metrics reachable without auth", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/metrics", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "requests_total")
	})

	t.Run("runs not mounted without a store", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/runs", nil))
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("token endpoint absent when auth disabled", func(t *testing.T) {
		rr := httptest.NewRecorder()
		body := strings.NewReader(`{"api_key":"whatever"}`)
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/token", body))
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestAuthEnabledWhenConfigured(t *testing.T) {
	hash, err := auth.HashAPIKey("secret-key")
	require.NoError(t, err)

	cfg := config.Default()
	cfg.JWTSecret = "unit-test-secret-0123456789"
	cfg.APIKeyHash = hash
	h := newTestServer(t, cfg)

	t.Run("execute rejects anonymous requests", func(t *testing.T) {
		rr := httptest.NewRecorder()
		body := strings.NewReader(`{"code":"int main(){}"}`)
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/execute", body))
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("minted token opens the protected routes", func(t *testing.T) {
		rr := httptest.NewRecorder()
		body := strings.NewReader(`{"api_key":"secret-key"}`)
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/token", body))
		require.Equal(t, http.StatusOK, rr.Code)

		var resp struct {
			Token string `json:"token"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))

		rr = httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/execute",
			strings.NewReader(`{"code":"int main(){}"}`))
		req.Header.Set("Authorization", "Bearer "+resp.Token)
		h.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
	})
}
