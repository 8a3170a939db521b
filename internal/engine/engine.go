// Package engine is the execution coordinator — the single contract the
// HTTP layer calls. It owns the pipeline for one request:
//
//	admit → acquire workspace → compile → execute → record → release
//
// The workspace release sits in a defer, so the session directory is gone on
// every exit path. Nothing below this package's boundary surfaces a Go error
// for anything the user's program did: compile failures, crashes and limit
// kills all come back as data inside outcomes. Errors mean the service
// itself could not do its job.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/sakif/cpp-engine/internal/apperror"
	"github.com/sakif/cpp-engine/internal/config"
	"github.com/sakif/cpp-engine/internal/engine/workspace"
	"github.com/sakif/cpp-engine/internal/model"
	"github.com/sakif/cpp-engine/internal/procrun"
	"github.com/sakif/cpp-engine/internal/repository"
	"github.com/sakif/cpp-engine/internal/sandbox"
)

// RunOutcome is the combined result of one compile+execute round trip.
// Execute is nil when compilation failed — execution is skipped entirely.
type RunOutcome struct {
	RunID   string
	Compile CompileOutcome
	Execute *ExecuteOutcome
}

// Engine coordinates the stages. One Engine serves all requests; per-request
// state lives in the session workspace, never on the Engine.
type Engine struct {
	cfg        config.Config
	logger     *slog.Logger
	workspaces *workspace.Manager
	compile    *CompileStage
	execute    *ExecuteStage
	store      repository.RunRepository // nil = history disabled
	sem        chan struct{}            // admission semaphore
}

// New wires an Engine. backend may be nil (no sandbox — direct execution
// only), store may be nil (no run history).
func New(cfg config.Config, logger *slog.Logger, runner procrun.Runner, backend sandbox.Backend,
	workspaces *workspace.Manager, store repository.RunRepository) *Engine {
	return &Engine{
		cfg:        cfg,
		logger:     logger,
		workspaces: workspaces,
		compile:    NewCompileStage(cfg, runner, logger),
		execute:    NewExecuteStage(cfg, runner, backend, logger),
		store:      store,
		sem:        make(chan struct{}, cfg.MaxSessions),
	}
}

// Compile builds the submitted source and reports diagnostics without
// running anything. The workspace (and the artifact in it) is removed before
// returning.
func (e *Engine) Compile(ctx context.Context, code string, opts Options) (*CompileOutcome, error) {
	s, err := resolveOptions(e.cfg, opts)
	if err != nil {
		return nil, err
	}
	release, err := e.admit()
	if err != nil {
		return nil, err
	}
	defer release()

	sess, err := e.workspaces.Acquire()
	if err != nil {
		return nil, fmt.Errorf("acquiring workspace: %w", err)
	}
	defer e.releaseSession(sess)
	e.logger.Info("session created", slog.String("session", sess.ID), slog.String("kind", model.RunKindCompile))

	outcome, err := e.compile.Compile(ctx, code, s, sess)
	if err != nil {
		return nil, err
	}
	e.recordCompile(ctx, sess.ID, &outcome)
	return &outcome, nil
}

// Run is the full pipeline: compile, then — only on compile success —
// execute with the request's stdin and limits.
func (e *Engine) Run(ctx context.Context, code, input string, opts Options) (*RunOutcome, error) {
	s, err := resolveOptions(e.cfg, opts)
	if err != nil {
		return nil, err
	}
	release, err := e.admit()
	if err != nil {
		return nil, err
	}
	defer release()

	sess, err := e.workspaces.Acquire()
	if err != nil {
		return nil, fmt.Errorf("acquiring workspace: %w", err)
	}
	defer e.releaseSession(sess)
	e.logger.Info("session created", slog.String("session", sess.ID), slog.String("kind", model.RunKindExecute))

	outcome := &RunOutcome{}
	outcome.Compile, err = e.compile.Compile(ctx, code, s, sess)
	if err != nil {
		return nil, err
	}

	if outcome.Compile.Succeeded {
		exec, err := e.execute.Execute(ctx, outcome.Compile.ArtifactPath, []byte(input), s)
		if err != nil {
			return nil, err
		}
		outcome.Execute = &exec
		e.logger.Info("execute finished",
			slog.String("session", sess.ID),
			slog.Int("exitCode", exec.ExitCode),
			slog.Bool("timedOut", exec.TimedOut),
			slog.Bool("sandboxed", exec.Sandboxed),
			slog.Duration("duration", exec.Duration),
		)
	}

	e.recordRun(ctx, sess.ID, outcome)
	return outcome, nil
}

// admit enforces the bounded-session policy: when MaxSessions requests are
// already in flight the caller is rejected immediately rather than queued —
// the client can retry, the host cannot un-fork.
func (e *Engine) admit() (func(), error) {
	select {
	case e.sem <- struct{}{}:
		return func() { <-e.sem }, nil
	default:
		return nil, apperror.TooBusy(fmt.Sprintf("engine at capacity (%d concurrent sessions)", e.cfg.MaxSessions))
	}
}

func (e *Engine) releaseSession(sess *workspace.Session) {
	if err := sess.Release(); err != nil {
		e.logger.Error("failed to release session workspace",
			slog.String("session", sess.ID), slog.String("error", err.Error()))
		return
	}
	e.logger.Info("session destroyed", slog.String("session", sess.ID))
}

// recordCompile / recordRun persist history best-effort: storage trouble is
// logged, never propagated into the request outcome.
func (e *Engine) recordCompile(ctx context.Context, sessionID string, outcome *CompileOutcome) {
	if e.store == nil {
		return
	}
	rec := &model.RunRecord{
		Kind:          model.RunKindCompile,
		SessionID:     sessionID,
		Success:       outcome.Succeeded,
		Warnings:      len(outcome.Warnings),
		Errors:        len(outcome.Errors),
		CompileTimeMS: outcome.Duration.Milliseconds(),
	}
	if err := e.store.Create(ctx, rec); err != nil {
		e.logger.Error("failed to record compile", slog.String("error", err.Error()))
	}
}

func (e *Engine) recordRun(ctx context.Context, sessionID string, outcome *RunOutcome) {
	if e.store == nil {
		return
	}
	rec := &model.RunRecord{
		Kind:          model.RunKindExecute,
		SessionID:     sessionID,
		Success:       outcome.Compile.Succeeded,
		Warnings:      len(outcome.Compile.Warnings),
		Errors:        len(outcome.Compile.Errors),
		CompileTimeMS: outcome.Compile.Duration.Milliseconds(),
	}
	if exec := outcome.Execute; exec != nil {
		rec.Success = exec.Succeeded
		rec.ExitCode = exec.ExitCode
		rec.ExecuteTimeMS = exec.Duration.Milliseconds()
		rec.MemoryKB = exec.MemoryKB
		rec.TimedOut = exec.TimedOut
		rec.Sandboxed = exec.Sandboxed
	}
	if err := e.store.Create(ctx, rec); err != nil {
		e.logger.Error("failed to record run", slog.String("error", err.Error()))
		return
	}
	outcome.RunID = rec.ID
}

// Health is the live view of the environment, served by GET /health.
type Health struct {
	CompilerOK bool   `json:"compiler_ok"`
	Compiler   string `json:"compiler"`
	ClangOK    bool   `json:"clang_ok"`
	SandboxOK  bool   `json:"sandbox_ok"`
}

func (e *Engine) Health(ctx context.Context) Health {
	h := Health{Compiler: e.cfg.CompilerPath}
	if _, err := os.Stat(e.cfg.CompilerPath); err == nil {
		h.CompilerOK = true
	}
	if _, err := os.Stat(e.cfg.ClangPath); err == nil {
		h.ClangOK = true
	}
	h.SandboxOK = e.execute.backend != nil
	return h
}

// helloWorld is the startup smoke test program.
const helloWorld = `#include <iostream>
int main() {
    std::cout << "Hello, World!" << std::endl;
    return 0;
}
`

// Startup validates the environment before the server accepts traffic: the
// primary compiler must exist and must be able to build a trivial program.
// A missing clang++ only warns — it is the optional second toolchain.
func (e *Engine) Startup(ctx context.Context) error {
	if _, err := os.Stat(e.cfg.CompilerPath); err != nil {
		return apperror.Unavailable(fmt.Sprintf("compiler not found: %s", e.cfg.CompilerPath))
	}
	if _, err := os.Stat(e.cfg.ClangPath); err != nil {
		e.logger.Warn("clang++ not found, clang requests will fail",
			slog.String("path", e.cfg.ClangPath))
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.CompileTimeout+5*time.Second)
	defer cancel()
	outcome, err := e.Compile(ctx, helloWorld, Options{})
	if err != nil {
		return fmt.Errorf("test compilation: %w", err)
	}
	if !outcome.Succeeded {
		return apperror.Unavailable("test compilation failed: " + outcome.RawOutput)
	}
	e.logger.Info("test compilation successful")
	return nil
}
