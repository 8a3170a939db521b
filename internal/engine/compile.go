package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/sakif/cpp-engine/internal/apperror"
	"github.com/sakif/cpp-engine/internal/config"
	"github.com/sakif/cpp-engine/internal/engine/workspace"
	"github.com/sakif/cpp-engine/internal/procrun"
)

// CompileOutcome reports one compiler invocation. ArtifactPath is set if and
// only if Succeeded. Warnings and Errors hold the diagnostic lines matched
// by token; everything the compiler printed survives in RawOutput.
type CompileOutcome struct {
	Succeeded    bool          `json:"success"`
	ArtifactPath string        `json:"artifact_path,omitempty"`
	Duration     time.Duration `json:"-"`
	Warnings     []string      `json:"warnings"`
	Errors       []string      `json:"errors"`
	RawOutput    string        `json:"compiler_output"`
}

// CompileStage turns source text into a binary inside a session workspace.
type CompileStage struct {
	cfg    config.Config
	runner procrun.Runner
	logger *slog.Logger
}

func NewCompileStage(cfg config.Config, runner procrun.Runner, logger *slog.Logger) *CompileStage {
	return &CompileStage{cfg: cfg, runner: runner, logger: logger}
}

// Compile writes the source into the session and drives the compiler.
//
// The returned error is non-nil only for service-level failures: the source
// cannot be written to disk, or the compiler binary itself is missing. A
// program that fails to compile is a successful call with
// outcome.Succeeded == false.
func (c *CompileStage) Compile(ctx context.Context, source string, s settings, sess *workspace.Session) (CompileOutcome, error) {
	outcome := CompileOutcome{Warnings: []string{}, Errors: []string{}}
	start := time.Now()

	if err := os.WriteFile(sess.SourcePath(), []byte(source), 0o644); err != nil {
		// Disk failure, reported before the compiler is ever invoked.
		return outcome, fmt.Errorf("writing source file: %w", err)
	}

	argv := buildCompileArgv(s, sess)
	res, err := c.runner.Run(ctx, procrun.Spec{
		Argv:    argv,
		Dir:     sess.Dir,
		Timeout: c.cfg.CompileTimeout,
	})
	outcome.Duration = time.Since(start)
	if err != nil {
		return outcome, fmt.Errorf("running compiler: %w", err)
	}

	// stderr first: that is where diagnostics go, and the original service
	// presented output in this order.
	outcome.RawOutput = string(res.Stderr) + string(res.Stdout)
	outcome.Warnings, outcome.Errors = parseDiagnostics(outcome.RawOutput)

	switch {
	case res.ExitCode == 127:
		// The argv[0] here is the configured compiler path, never user
		// input — 127 means the environment is broken, not the program.
		return outcome, apperror.Unavailable(fmt.Sprintf("compiler not available: %s", s.CompilerPath))
	case res.TimedOut:
		outcome.Errors = append(outcome.Errors,
			fmt.Sprintf("compilation timed out after %s", c.cfg.CompileTimeout))
	case res.ExitCode == 0:
		outcome.Succeeded = true
		outcome.ArtifactPath = sess.BinaryPath()
	}

	c.logger.Info("compile finished",
		slog.String("session", sess.ID),
		slog.Bool("success", outcome.Succeeded),
		slog.Int("warnings", len(outcome.Warnings)),
		slog.Int("errors", len(outcome.Errors)),
		slog.Duration("duration", outcome.Duration),
	)
	return outcome, nil
}

// buildCompileArgv assembles the compiler command line:
//
//	<compiler> -std=<std> -<opt> [-g] -Wall -Wextra -pedantic \
//	    <caller flags...> main.cpp -o main
//
// Caller flags come after the fixed set so they can override it.
func buildCompileArgv(s settings, sess *workspace.Session) []string {
	argv := []string{
		s.CompilerPath,
		"-std=" + s.Standard,
		"-" + s.Optimization,
	}
	if s.Debug {
		argv = append(argv, "-g")
	}
	argv = append(argv, "-Wall", "-Wextra", "-pedantic")
	argv = append(argv, s.Flags...)
	argv = append(argv, sess.SourcePath(), "-o", sess.BinaryPath())
	return argv
}

// parseDiagnostics classifies compiler output lines by token. Exit code, not
// this classification, decides success: gcc and clang agree on the tokens
// but not on every message shape, and the exit code is authoritative.
func parseDiagnostics(raw string) (warnings, errors []string) {
	warnings = []string{}
	errors = []string{}
	for _, line := range strings.Split(raw, "\n") {
		switch {
		case strings.Contains(line, "warning:"):
			warnings = append(warnings, line)
		case strings.Contains(line, "error:"):
			errors = append(errors, line)
		}
	}
	return warnings, errors
}
