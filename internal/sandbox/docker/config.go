package docker

import (
	"time"
)

// Config holds the configuration for Docker-backed execution.
type Config struct {
	// Image is the Docker image binaries run in. It only needs a libc —
	// the program is copied in, nothing is compiled inside the container.
	Image string
	// MemoryLimit is the container memory ceiling in bytes.
	MemoryLimit int64
	// CPULimit is the number of CPUs the container can use.
	CPULimit float64
	// PidsLimit caps processes inside the container; fork bombs die here.
	PidsLimit int64
	// Timeout is the default wall-clock limit when a request carries none.
	Timeout time.Duration
	// PoolSize is the number of pre-warmed containers to maintain.
	PoolSize int
	// MaxCaptureBytes bounds captured stdout/stderr per stream.
	MaxCaptureBytes int64
}

// DefaultConfig provides sensible defaults for a C++ sandbox.
func DefaultConfig() Config {
	return Config{
		Image:           "cpp-sandbox:latest",
		MemoryLimit:     512 * 1024 * 1024,
		CPULimit:        1.0,
		PidsLimit:       64,
		Timeout:         10 * time.Second,
		PoolSize:        3,
		MaxCaptureBytes: 1 << 20,
	}
}
