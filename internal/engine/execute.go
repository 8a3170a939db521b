package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"syscall"
	"time"

	"github.com/sakif/cpp-engine/internal/config"
	"github.com/sakif/cpp-engine/internal/procrun"
	"github.com/sakif/cpp-engine/internal/sandbox"
)

// ExecuteOutcome reports one run of a compiled artifact.
//
// Succeeded simply means exit code zero — a nonzero exit is the program's
// own business, faithfully reported. TimedOut, MemoryExceeded and
// CPUExceeded are orthogonal flags: a killed process also has a meaningless
// exit code, so callers must not infer the cause from the code alone.
// Sandboxed records the isolation level that actually ran, which matters
// when the backend was down and execution degraded to the host.
type ExecuteOutcome struct {
	Succeeded       bool          `json:"success"`
	ExitCode        int           `json:"exit_code"`
	Stdout          string        `json:"stdout"`
	Stderr          string        `json:"stderr"`
	Duration        time.Duration `json:"-"`
	CPUTime         time.Duration `json:"-"`
	MemoryKB        int64         `json:"memory_used_kb"`
	TimedOut        bool          `json:"timed_out"`
	MemoryExceeded  bool          `json:"memory_exceeded"`
	CPUExceeded     bool          `json:"cpu_exceeded"`
	OutputTruncated bool          `json:"output_truncated"`
	Sandboxed       bool          `json:"sandboxed"`
}

// ExecuteStage runs compiled artifacts, sandboxed when possible.
type ExecuteStage struct {
	cfg     config.Config
	runner  procrun.Runner
	backend sandbox.Backend // nil when no backend is configured/reachable
	logger  *slog.Logger
}

func NewExecuteStage(cfg config.Config, runner procrun.Runner, backend sandbox.Backend, logger *slog.Logger) *ExecuteStage {
	return &ExecuteStage{cfg: cfg, runner: runner, backend: backend, logger: logger}
}

// Execute runs the artifact. Sandboxed execution is attempted when requested
// and a backend is present; if the backend reports itself unavailable the
// stage falls back to direct host execution under rlimits, loudly.
func (e *ExecuteStage) Execute(ctx context.Context, artifactPath string, stdin []byte, s settings) (ExecuteOutcome, error) {
	if s.Sandbox && e.backend != nil {
		out, err := e.runSandboxed(ctx, artifactPath, stdin, s)
		if err == nil {
			return out, nil
		}
		if !errors.Is(err, sandbox.ErrUnavailable) {
			return out, fmt.Errorf("sandbox execution: %w", err)
		}
		e.logger.Warn("sandbox backend unavailable, degrading to direct execution",
			slog.String("error", err.Error()))
	} else if s.Sandbox {
		e.logger.Warn("sandbox requested but no backend configured, running directly")
	}
	return e.runDirect(ctx, artifactPath, stdin, s)
}

func (e *ExecuteStage) runSandboxed(ctx context.Context, artifactPath string, stdin []byte, s settings) (ExecuteOutcome, error) {
	res, err := e.backend.Run(ctx, sandbox.Request{
		ArtifactPath: artifactPath,
		Stdin:        stdin,
		Timeout:      s.Timeout,
		MemoryBytes:  s.MemoryBytes,
		CPUs:         1.0,
	})
	if err != nil {
		return ExecuteOutcome{ExitCode: -1, Sandboxed: true}, err
	}
	out := ExecuteOutcome{
		Succeeded:      res.ExitCode == 0,
		ExitCode:       res.ExitCode,
		Stdout:         string(res.Stdout),
		Stderr:         string(res.Stderr),
		Duration:       res.Duration,
		TimedOut:       res.TimedOut,
		MemoryExceeded: res.OOMKilled,
		Sandboxed:      true,
	}
	if out.TimedOut {
		out.Succeeded = false
		out.ExitCode = -1
	}
	return out, nil
}

func (e *ExecuteStage) runDirect(ctx context.Context, artifactPath string, stdin []byte, s settings) (ExecuteOutcome, error) {
	res, err := e.runner.Run(ctx, procrun.Spec{
		Argv:    []string{artifactPath},
		Stdin:   stdin,
		Timeout: s.Timeout,
		Limits: procrun.Limits{
			MemoryBytes: s.MemoryBytes,
			CPUTime:     s.CPUTime,
			OutputBytes: 16 << 20,
			MaxProcs:    64,
		},
	})
	if err != nil {
		return ExecuteOutcome{ExitCode: -1}, fmt.Errorf("direct execution: %w", err)
	}

	out := ExecuteOutcome{
		Succeeded:       res.ExitCode == 0,
		ExitCode:        res.ExitCode,
		Stdout:          string(res.Stdout),
		Stderr:          string(res.Stderr),
		Duration:        res.Duration,
		CPUTime:         res.CPUTime,
		MemoryKB:        res.MaxRSSKB,
		TimedOut:        res.TimedOut,
		OutputTruncated: res.StdoutTruncated || res.StderrTruncated,
		Sandboxed:       false,
	}
	classifyResourceKill(&out, res, s)
	return out, nil
}

// cpuKillSlack absorbs the gap between the kernel's per-tick CPU accounting
// and the rusage numbers: a process killed at a 1s ceiling can report
// 999.5ms of CPU time.
const cpuKillSlack = 50 * time.Millisecond

// classifyResourceKill distinguishes kernel-enforced limit kills from
// ordinary failures. RLIMIT_CPU delivers SIGXCPU at the soft limit, which is
// unambiguous; a kill with the consumed CPU time at (or a tick under) the
// ceiling covers the hard-limit SIGKILL shape. RLIMIT_AS shows up either as
// a bad_alloc abort (new returning failure) or as a kill with the resident
// set parked at the ceiling, so both shapes are recognized.
func classifyResourceKill(out *ExecuteOutcome, res procrun.Result, s settings) {
	if out.TimedOut || out.Succeeded {
		return
	}
	switch {
	case res.Signal == int(syscall.SIGXCPU):
		out.CPUExceeded = true
	case s.CPUTime > 0 && out.ExitCode == -1 && res.CPUTime >= s.CPUTime-cpuKillSlack:
		out.CPUExceeded = true
	}
	if s.MemoryBytes > 0 {
		limitKB := s.MemoryBytes / 1024
		if res.MaxRSSKB >= limitKB*9/10 || strings.Contains(out.Stderr, "bad_alloc") {
			out.MemoryExceeded = true
		}
	}
}
