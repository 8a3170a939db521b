package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/cpp-engine/internal/apperror"
	"github.com/sakif/cpp-engine/internal/engine"
	"github.com/sakif/cpp-engine/internal/handler"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// mockEngine implements handler.Engine without compilers or Docker.
type mockEngine struct {
	capturedCode  string
	capturedInput string
	capturedOpts  engine.Options

	runOutcome     *engine.RunOutcome
	compileOutcome *engine.CompileOutcome
	health         engine.Health
	err            error
}

func (m *mockEngine) Compile(ctx context.Context, code string, opts engine.Options) (*engine.CompileOutcome, error) {
	m.capturedCode = code
	m.capturedOpts = opts
	if m.err != nil {
		return nil, m.err
	}
	return m.compileOutcome, nil
}

func (m *mockEngine) Run(ctx context.Context, code, input string, opts engine.Options) (*engine.RunOutcome, error) {
	m.capturedCode = code
	m.capturedInput = input
	m.capturedOpts = opts
	if m.err != nil {
		return nil, m.err
	}
	return m.runOutcome, nil
}

func (m *mockEngine) Health(ctx context.Context) engine.Health {
	return m.health
}

func postJSON(t *testing.T, h http.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h(rr, req)
	return rr
}

func TestHandleExecute(t *testing.T) {
	t.Run("successful run", func(t *testing.T) {
		mock := &mockEngine{
			runOutcome: &engine.RunOutcome{
				RunID: "run-42",
				Compile: engine.CompileOutcome{
					Succeeded: true,
					Duration:  120 * time.Millisecond,
					Warnings:  []string{},
					Errors:    []string{},
				},
				Execute: &engine.ExecuteOutcome{
					Succeeded: true,
					ExitCode:  0,
					Stdout:    "Hello, World!\n",
					Duration:  35 * time.Millisecond,
					CPUTime:   10 * time.Millisecond,
					MemoryKB:  1840,
					Sandboxed: true,
				},
			},
		}
		h := handler.NewExecuteHandler(mock, testLogger())

		body := `{"code":"int main(){}","input":"x","options":{"standard":"c++17"}}`
		rr := postJSON(t, h.HandleExecute, "/api/execute", body)

		require.Equal(t, http.StatusOK, rr.Code)

		var res map[string]any
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
		assert.Equal(t, true, res["success"])
		assert.Equal(t, "Hello, World!\n", res["stdout"])
		assert.Equal(t, float64(0), res["exit_code"])
		assert.Equal(t, float64(120), res["compilation_time_ms"])
		assert.Equal(t, float64(35), res["execution_time_ms"])
		assert.Equal(t, float64(1840), res["memory_used_kb"])
		assert.Equal(t, true, res["sandboxed"])
		assert.Equal(t, "run-42", res["run_id"])

		assert.Equal(t, "int main(){}", mock.capturedCode)
		assert.Equal(t, "x", mock.capturedInput)
		assert.Equal(t, "c++17", mock.capturedOpts.Standard)
	})

	t.Run("compile failure omits execute fields", func(t *testing.T) {
		mock := &mockEngine{
			runOutcome: &engine.RunOutcome{
				Compile: engine.CompileOutcome{
					Succeeded: false,
					Warnings:  []string{},
					Errors:    []string{"main.cpp:1:1: error: expected expression"},
					RawOutput: "main.cpp:1:1: error: expected expression\n",
				},
			},
		}
		h := handler.NewExecuteHandler(mock, testLogger())

		rr := postJSON(t, h.HandleExecute, "/api/execute", `{"code":"int main(){"}`)
		require.Equal(t, http.StatusOK, rr.Code)

		var res map[string]any
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
		assert.Equal(t, false, res["success"])
		assert.Equal(t, "", res["stdout"])
		assert.Len(t, res["errors"], 1)
	})

	t.Run("invalid JSON body", func(t *testing.T) {
		h := handler.NewExecuteHandler(&mockEngine{}, testLogger())
		rr := postJSON(t, h.HandleExecute, "/api/execute", `{"code":`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("empty code", func(t *testing.T) {
		h := handler.NewExecuteHandler(&mockEngine{}, testLogger())
		rr := postJSON(t, h.HandleExecute, "/api/execute", `{"code":""}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("engine at capacity", func(t *testing.T) {
		mock := &mockEngine{err: apperror.TooBusy("engine at capacity")}
		h := handler.NewExecuteHandler(mock, testLogger())
		rr := postJSON(t, h.HandleExecute, "/api/execute", `{"code":"int main(){}"}`)
		assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	})

	t.Run("compiler missing", func(t *testing.T) {
		mock := &mockEngine{err: apperror.Unavailable("compiler not found")}
		h := handler.NewExecuteHandler(mock, testLogger())
		rr := postJSON(t, h.HandleExecute, "/api/execute", `{"code":"int main(){}"}`)
		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	})
}

func TestHandleCompile(t *testing.T) {
	mock := &mockEngine{
		compileOutcome: &engine.CompileOutcome{
			Succeeded: true,
			Duration:  90 * time.Millisecond,
			Warnings:  []string{"main.cpp:2:9: warning: unused variable 'x'"},
			Errors:    []string{},
			RawOutput: "main.cpp:2:9: warning: unused variable 'x'\n",
		},
	}
	h := handler.NewExecuteHandler(mock, testLogger())

	rr := postJSON(t, h.HandleCompile, "/api/compile", `{"code":"int main(){int x;}"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	var res map[string]any
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
	assert.Equal(t, true, res["success"])
	assert.Len(t, res["warnings"], 1)
	assert.Equal(t, float64(90), res["compilation_time_ms"])
}

func TestHandleHealth(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		mock := &mockEngine{health: engine.Health{CompilerOK: true, Compiler: "/usr/bin/g++", SandboxOK: true}}
		h := handler.NewHealthHandler(mock)

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rr := httptest.NewRecorder()
		h.HandleHealth(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		var res map[string]any
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
		assert.Equal(t, "ok", res["status"])
	})

	t.Run("compiler missing", func(t *testing.T) {
		mock := &mockEngine{health: engine.Health{CompilerOK: false}}
		h := handler.NewHealthHandler(mock)

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rr := httptest.NewRecorder()
		h.HandleHealth(rr, req)

		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	})
}
