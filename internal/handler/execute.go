// Package handler decodes HTTP requests, calls the engine, and shapes its
// outcomes into the wire responses. No execution logic lives here.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sakif/cpp-engine/internal/apperror"
	"github.com/sakif/cpp-engine/internal/engine"
)

// maxCodeBytes bounds submitted source size. A legitimate snippet is a few
// KB; anything near this limit is abuse or a mistake.
const maxCodeBytes = 256 * 1024

// Engine is the coordinator surface the handlers need. An interface so
// handler tests can substitute a fake without compilers or Docker.
type Engine interface {
	Compile(ctx context.Context, code string, opts engine.Options) (*engine.CompileOutcome, error)
	Run(ctx context.Context, code, input string, opts engine.Options) (*engine.RunOutcome, error)
	Health(ctx context.Context) engine.Health
}

// ExecuteHandler serves the compile and execute endpoints.
type ExecuteHandler struct {
	engine Engine
	logger *slog.Logger
}

func NewExecuteHandler(eng Engine, logger *slog.Logger) *ExecuteHandler {
	return &ExecuteHandler{engine: eng, logger: logger}
}

type executeRequest struct {
	Code    string         `json:"code"`
	Input   string         `json:"input"`
	Options engine.Options `json:"options"`
}

// runResponse is the flattened wire shape for POST /api/execute. Compile and
// execute fields share one object; when compilation fails the execute fields
// stay at their zero values and success is false.
type runResponse struct {
	Success           bool     `json:"success"`
	ExitCode          int      `json:"exit_code"`
	Stdout            string   `json:"stdout"`
	Stderr            string   `json:"stderr"`
	CompilationOutput string   `json:"compilation_output"`
	Warnings          []string `json:"warnings"`
	Errors            []string `json:"errors"`
	CompileTimeMS     int64    `json:"compilation_time_ms"`
	ExecuteTimeMS     int64    `json:"execution_time_ms"`
	CPUTimeMS         int64    `json:"cpu_time_ms"`
	MemoryUsedKB      int64    `json:"memory_used_kb"`
	TimedOut          bool     `json:"timed_out"`
	MemoryExceeded    bool     `json:"memory_exceeded"`
	CPUExceeded       bool     `json:"cpu_exceeded"`
	OutputTruncated   bool     `json:"output_truncated"`
	Sandboxed         bool     `json:"sandboxed"`
	RunID             string   `json:"run_id,omitempty"`
}

type compileResponse struct {
	Success           bool     `json:"success"`
	CompilationOutput string   `json:"compilation_output"`
	Warnings          []string `json:"warnings"`
	Errors            []string `json:"errors"`
	CompileTimeMS     int64    `json:"compilation_time_ms"`
}

func decodeExecuteRequest(w http.ResponseWriter, r *http.Request) (executeRequest, error) {
	var req executeRequest
	body := http.MaxBytesReader(w, r.Body, maxCodeBytes*2)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		return req, apperror.ValidationFailed("body", "request body must be valid JSON")
	}
	if req.Code == "" {
		return req, apperror.ValidationFailed("code", "code cannot be empty")
	}
	if len(req.Code) > maxCodeBytes {
		return req, apperror.ValidationFailed("code", "code exceeds the maximum size")
	}
	return req, nil
}

// HandleExecute is POST /api/execute: compile, then run on compile success.
func (h *ExecuteHandler) HandleExecute(w http.ResponseWriter, r *http.Request) {
	req, err := decodeExecuteRequest(w, r)
	if err != nil {
		writeError(w, err)
		return
	}

	outcome, err := h.engine.Run(r.Context(), req.Code, req.Input, req.Options)
	if err != nil {
		h.logger.Error("run failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	resp := runResponse{
		Success:           outcome.Compile.Succeeded,
		CompilationOutput: outcome.Compile.RawOutput,
		Warnings:          outcome.Compile.Warnings,
		Errors:            outcome.Compile.Errors,
		CompileTimeMS:     outcome.Compile.Duration.Milliseconds(),
		RunID:             outcome.RunID,
	}
	if exec := outcome.Execute; exec != nil {
		resp.Success = exec.Succeeded
		resp.ExitCode = exec.ExitCode
		resp.Stdout = exec.Stdout
		resp.Stderr = exec.Stderr
		resp.ExecuteTimeMS = exec.Duration.Milliseconds()
		resp.CPUTimeMS = exec.CPUTime.Milliseconds()
		resp.MemoryUsedKB = exec.MemoryKB
		resp.TimedOut = exec.TimedOut
		resp.MemoryExceeded = exec.MemoryExceeded
		resp.CPUExceeded = exec.CPUExceeded
		resp.OutputTruncated = exec.OutputTruncated
		resp.Sandboxed = exec.Sandboxed
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleCompile is POST /api/compile: diagnostics only, nothing is run.
func (h *ExecuteHandler) HandleCompile(w http.ResponseWriter, r *http.Request) {
	req, err := decodeExecuteRequest(w, r)
	if err != nil {
		writeError(w, err)
		return
	}

	outcome, err := h.engine.Compile(r.Context(), req.Code, req.Options)
	if err != nil {
		h.logger.Error("compile failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, compileResponse{
		Success:           outcome.Succeeded,
		CompilationOutput: outcome.RawOutput,
		Warnings:          outcome.Warnings,
		Errors:            outcome.Errors,
		CompileTimeMS:     outcome.Duration.Milliseconds(),
	})
}
