//go:build !linux

package procrun

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// OSRunner requires Linux: rlimits, process groups and wait4 rusage have no
// portable equivalent. The stub keeps the rest of the tree compiling on
// other platforms for development.
type OSRunner struct {
	HelperPath      string
	MaxCaptureBytes int
	Grace           time.Duration
	Logger          *slog.Logger
}

var _ Runner = (*OSRunner)(nil)

func NewOSRunner(helperPath string, logger *slog.Logger) *OSRunner {
	return &OSRunner{HelperPath: helperPath, Logger: logger}
}

func (r *OSRunner) Run(ctx context.Context, spec Spec) (Result, error) {
	return Result{ExitCode: -1}, errors.New("procrun: only supported on linux")
}
