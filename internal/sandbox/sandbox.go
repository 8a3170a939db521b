// Package sandbox defines the isolated-execution backend contract.
//
// A Backend runs one already-compiled artifact under full isolation: no
// network, a kernel memory ceiling, a CPU share, and a filesystem containing
// essentially nothing but the program. The engine treats the backend as
// optional — when it is absent or unreachable the engine falls back to
// direct host execution and flags the outcome as not sandboxed.
package sandbox

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable signals that the backend cannot serve runs right now
// (daemon down, image missing). The engine maps this to the direct-execution
// fallback rather than failing the request.
var ErrUnavailable = errors.New("sandbox: backend unavailable")

// Request describes one artifact execution.
type Request struct {
	ArtifactPath string // host path of the compiled binary
	Stdin        []byte
	Timeout      time.Duration
	MemoryBytes  int64
	CPUs         float64 // CPU share, e.g. 0.5
}

// Result reports what the program did inside the sandbox.
type Result struct {
	ExitCode  int
	Stdout    []byte
	Stderr    []byte
	Duration  time.Duration
	TimedOut  bool
	OOMKilled bool
}

// Backend executes artifacts in isolation.
type Backend interface {
	Run(ctx context.Context, req Request) (*Result, error)
	Close() error
}
