//go:build linux

package procrun

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// OSRunner is the real Runner backed by fork/exec.
//
// Resource limits are applied one of two ways:
//   - HelperPath set: the child is started as
//     `<helper> -mem N -cpu N ... -- <argv...>`; the helper calls
//     setrlimit on itself and then execs the target, so the limits are in
//     place before the first user instruction runs.
//   - HelperPath empty: prlimit(2) is applied to the child's pid right
//     after spawn. The ceiling is still kernel-enforced; there is only a
//     sub-millisecond window between exec and prlimit, acceptable for the
//     degraded (helper-less) deployment.
type OSRunner struct {
	HelperPath      string
	MaxCaptureBytes int           // per-stream stdout/stderr cap, 0 = default
	Grace           time.Duration // SIGTERM → SIGKILL interval, 0 = default
	Logger          *slog.Logger
}

var _ Runner = (*OSRunner)(nil)

// NewOSRunner creates a process runner. helperPath may be empty, in which
// case limits are applied via prlimit from the parent.
func NewOSRunner(helperPath string, logger *slog.Logger) *OSRunner {
	return &OSRunner{HelperPath: helperPath, Logger: logger}
}

// Run spawns the process described by spec and supervises it to completion.
// The returned error is non-nil only for caller mistakes (empty argv) or a
// context cancellation; everything the child does is reported in the Result.
func (r *OSRunner) Run(ctx context.Context, spec Spec) (Result, error) {
	if len(spec.Argv) == 0 {
		return Result{ExitCode: -1}, errors.New("procrun: empty argv")
	}

	grace := r.Grace
	if grace <= 0 {
		grace = defaultGrace
	}

	argv := spec.Argv
	if r.HelperPath != "" && spec.Limits != (Limits{}) {
		argv = helperArgv(r.HelperPath, spec)
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = spec.Dir
	if len(spec.Stdin) > 0 {
		cmd.Stdin = bytes.NewReader(spec.Stdin)
	}

	// os/exec drains both pipes on dedicated goroutines, so a chatty child
	// cannot wedge us by filling one stream while we read the other.
	stdout := newLimitedBuffer(r.MaxCaptureBytes)
	stderr := newLimitedBuffer(r.MaxCaptureBytes)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	// Own process group so the kill reaches every descendant, and a death
	// signal so children do not outlive a crashed server.
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid:   true,
		Pdeathsig: syscall.SIGKILL,
	}
	// Bounds the post-exit wait for pipe-holding grandchildren.
	cmd.WaitDelay = grace

	start := time.Now()
	if err := cmd.Start(); err != nil {
		// Executable missing, fork failure: the execvp convention is 127.
		return Result{
			ExitCode: 127,
			Stderr:   []byte(fmt.Sprintf("failed to start process: %v", err)),
			Duration: time.Since(start),
		}, nil
	}
	pid := cmd.Process.Pid

	if r.HelperPath == "" && spec.Limits != (Limits{}) {
		if err := applyPrlimits(pid, spec.Limits); err != nil && r.Logger != nil {
			r.Logger.Warn("applying prlimit failed",
				slog.Int("pid", pid),
				slog.String("error", err.Error()),
			)
		}
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	var timer <-chan time.Time
	if spec.Timeout > 0 {
		t := time.NewTimer(spec.Timeout)
		defer t.Stop()
		timer = t.C
	}

	var timedOut bool
	var runErr error
	select {
	case <-done:
	case <-timer:
		timedOut = true
		r.killGroup(pid, unix.SIGTERM)
		select {
		case <-done:
		case <-time.After(grace):
			r.killGroup(pid, unix.SIGKILL)
			<-done
		}
	case <-ctx.Done():
		// Request-level cancellation: kill, reap, and report upward.
		r.killGroup(pid, unix.SIGKILL)
		<-done
		runErr = ctx.Err()
	}

	res := Result{
		Stdout:          stdout.Bytes(),
		Stderr:          stderr.Bytes(),
		StdoutTruncated: stdout.Truncated(),
		StderrTruncated: stderr.Truncated(),
		Duration:        time.Since(start),
		TimedOut:        timedOut,
	}

	state := cmd.ProcessState
	if state == nil {
		res.ExitCode = -1
		return res, runErr
	}

	res.ExitCode = state.ExitCode() // -1 when killed by a signal
	res.CPUTime = state.UserTime() + state.SystemTime()
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		res.Signal = int(ws.Signal())
	}
	if ru, ok := state.SysUsage().(*syscall.Rusage); ok && ru != nil {
		res.MaxRSSKB = ru.Maxrss // linux reports Maxrss in kilobytes
	}

	return res, runErr
}

func (r *OSRunner) killGroup(pid int, sig syscall.Signal) {
	if pid <= 0 {
		return
	}
	// Negative pid addresses the whole process group.
	if err := unix.Kill(-pid, sig); err != nil && !errors.Is(err, unix.ESRCH) {
		// Group may be gone already; fall back to the single pid.
		_ = unix.Kill(pid, sig)
	}
}

// helperArgv rewrites the command so the sandbox-init helper applies rlimits
// and then execs the real target.
func helperArgv(helper string, spec Spec) []string {
	argv := []string{helper}
	if spec.Limits.MemoryBytes > 0 {
		argv = append(argv, "-mem", strconv.FormatInt(spec.Limits.MemoryBytes, 10))
	}
	if spec.Limits.CPUTime > 0 {
		argv = append(argv, "-cpu", strconv.FormatInt(cpuSeconds(spec.Limits.CPUTime), 10))
	}
	if spec.Limits.OutputBytes > 0 {
		argv = append(argv, "-fsize", strconv.FormatInt(spec.Limits.OutputBytes, 10))
	}
	if spec.Limits.MaxProcs > 0 {
		argv = append(argv, "-nproc", strconv.FormatInt(spec.Limits.MaxProcs, 10))
	}
	argv = append(argv, "--")
	return append(argv, spec.Argv...)
}

func applyPrlimits(pid int, limits Limits) error {
	set := func(resource int, value uint64) error {
		rl := unix.Rlimit{Cur: value, Max: value}
		return unix.Prlimit(pid, resource, &rl, nil)
	}
	if limits.MemoryBytes > 0 {
		if err := set(unix.RLIMIT_AS, uint64(limits.MemoryBytes)); err != nil {
			return fmt.Errorf("rlimit as: %w", err)
		}
	}
	if limits.CPUTime > 0 {
		// Soft limit at the ceiling, hard limit one second above: the soft
		// breach delivers SIGXCPU, which is the unambiguous "CPU limit hit"
		// signal. With Cur == Max the kernel skips straight to SIGKILL and
		// the kill is indistinguishable from a crash.
		secs := uint64(cpuSeconds(limits.CPUTime))
		rl := unix.Rlimit{Cur: secs, Max: secs + 1}
		if err := unix.Prlimit(pid, unix.RLIMIT_CPU, &rl, nil); err != nil {
			return fmt.Errorf("rlimit cpu: %w", err)
		}
	}
	if limits.OutputBytes > 0 {
		if err := set(unix.RLIMIT_FSIZE, uint64(limits.OutputBytes)); err != nil {
			return fmt.Errorf("rlimit fsize: %w", err)
		}
	}
	if limits.MaxProcs > 0 {
		if err := set(unix.RLIMIT_NPROC, uint64(limits.MaxProcs)); err != nil {
			return fmt.Errorf("rlimit nproc: %w", err)
		}
	}
	// Never write core dumps of untrusted programs to the host.
	if err := set(unix.RLIMIT_CORE, 0); err != nil {
		return fmt.Errorf("rlimit core: %w", err)
	}
	return nil
}

// cpuSeconds rounds a duration up to whole seconds, the granularity of
// RLIMIT_CPU.
func cpuSeconds(d time.Duration) int64 {
	s := int64(d / time.Second)
	if d%time.Second != 0 {
		s++
	}
	if s < 1 {
		s = 1
	}
	return s
}
