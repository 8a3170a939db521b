// Package procrun spawns and supervises one child process per call.
//
// This is the lowest layer of the execution engine. Everything above it —
// compilation, sandboxed execution, the hello-world health check — funnels
// through Runner.Run, which guarantees:
//
//   - the argv vector is passed to the kernel verbatim, never through a
//     shell, so source code or flags cannot smuggle in extra commands
//   - stdout and stderr are drained concurrently with the wait, so a child
//     that fills one pipe while we block on the other cannot deadlock us
//   - the wall-clock timeout is enforced with SIGTERM, a grace interval,
//     then SIGKILL against the whole process group
//   - the child is always reaped; no zombies survive a call, including on
//     the timeout and cancellation paths
//   - memory/CPU ceilings are applied by the kernel (rlimits), not polled
//
// Run never panics across its boundary and never returns an error for
// anything the child did: spawn failures, timeouts and crashes all come
// back as a Result the caller can branch on.
package procrun

import (
	"context"
	"sync"
	"time"
)

// Limits are kernel-enforced ceilings applied before user code runs.
// Zero values mean "no limit".
type Limits struct {
	MemoryBytes int64         // address space cap (RLIMIT_AS)
	CPUTime     time.Duration // CPU time cap (RLIMIT_CPU), rounded up to seconds
	OutputBytes int64         // file size cap (RLIMIT_FSIZE)
	MaxProcs    int64         // process/thread cap (RLIMIT_NPROC)
}

// Spec describes one child process to run.
type Spec struct {
	Argv    []string // non-empty; Argv[0] is the executable path
	Dir     string   // working directory ("" = inherit)
	Stdin   []byte   // written to the child's stdin, then closed for EOF
	Timeout time.Duration
	Limits  Limits
}

// Result is what the caller gets back, on every path.
//
// ExitCode is -1 when the child was killed or its status could not be
// determined, and 127 when the process could not be spawned at all (the
// execvp convention). Signal carries the terminating signal number when the
// child died to one, so callers can tell SIGXCPU from SIGSEGV.
type Result struct {
	ExitCode        int
	Stdout          []byte
	Stderr          []byte
	StdoutTruncated bool // output exceeded the capture cap; Stdout is a prefix
	StderrTruncated bool
	Duration        time.Duration
	CPUTime         time.Duration // user + system time consumed by the child
	MaxRSSKB        int64         // peak resident set size, from wait4 rusage
	TimedOut        bool          // wall-clock deadline hit; the child was killed
	Signal          int           // terminating signal, 0 if exited normally
}

// Runner runs one child process per call. The OS implementation lives in
// this package; tests elsewhere substitute fakes.
type Runner interface {
	Run(ctx context.Context, spec Spec) (Result, error)
}

const (
	// defaultMaxCapture bounds how much stdout/stderr we keep per stream.
	// A fork bomb printing in a loop should exhaust its own limits, not
	// the server's memory.
	defaultMaxCapture = 1 << 20 // 1 MiB

	// defaultGrace is how long a child gets between SIGTERM and SIGKILL.
	defaultGrace = 500 * time.Millisecond
)

// limitedBuffer keeps at most max bytes and silently discards the rest.
// It is safe for the single-writer use os/exec gives it.
type limitedBuffer struct {
	mu        sync.Mutex
	buf       []byte
	max       int
	truncated bool
}

func newLimitedBuffer(max int) *limitedBuffer {
	if max <= 0 {
		max = defaultMaxCapture
	}
	return &limitedBuffer{max: max}
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if room := b.max - len(b.buf); room > 0 {
		if len(p) > room {
			b.buf = append(b.buf, p[:room]...)
			b.truncated = true
		} else {
			b.buf = append(b.buf, p...)
		}
	} else {
		b.truncated = true
	}
	// Report everything as written so the copier keeps draining the pipe.
	return len(p), nil
}

func (b *limitedBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf
}

func (b *limitedBuffer) Truncated() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.truncated
}
