//go:build linux

// sandbox-init is the rlimit-applying exec trampoline for direct (non-Docker)
// execution. The server starts untrusted binaries as
//
//	sandbox-init -mem 536870912 -cpu 5 -- /path/to/session/main
//
// The helper applies the requested rlimits to itself and then execs the
// target, so every ceiling is in force before the first user instruction
// runs. It inherits stdin/stdout/stderr from the server's pipes untouched.
package main

import (
	"flag"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "sandbox-init:", err)
		os.Exit(125)
	}
}

func run() error {
	mem := flag.Int64("mem", 0, "address space limit in bytes (RLIMIT_AS)")
	cpu := flag.Int64("cpu", 0, "cpu time limit in seconds (RLIMIT_CPU)")
	fsize := flag.Int64("fsize", 0, "file size limit in bytes (RLIMIT_FSIZE)")
	nproc := flag.Int64("nproc", 0, "process count limit (RLIMIT_NPROC)")
	flag.Parse()

	argv := flag.Args()
	if len(argv) == 0 {
		return fmt.Errorf("no command given after --")
	}

	if err := applyLimits(*mem, *cpu, *fsize, *nproc); err != nil {
		return err
	}

	// No PATH lookup: the server always passes an absolute artifact path,
	// and resolving names here would widen what a request can reach.
	return unix.Exec(argv[0], argv, minimalEnv())
}

func applyLimits(mem, cpu, fsize, nproc int64) error {
	set := func(resource int, value uint64, name string) error {
		rl := unix.Rlimit{Cur: value, Max: value}
		if err := unix.Setrlimit(resource, &rl); err != nil {
			return fmt.Errorf("setrlimit %s: %w", name, err)
		}
		return nil
	}
	if mem > 0 {
		if err := set(unix.RLIMIT_AS, uint64(mem), "as"); err != nil {
			return err
		}
	}
	if cpu > 0 {
		// Soft at the ceiling, hard one second above: the soft breach
		// delivers SIGXCPU so the parent can tell a CPU kill from a crash;
		// the hard limit backstops a handler that ignores the signal.
		rl := unix.Rlimit{Cur: uint64(cpu), Max: uint64(cpu) + 1}
		if err := unix.Setrlimit(unix.RLIMIT_CPU, &rl); err != nil {
			return fmt.Errorf("setrlimit cpu: %w", err)
		}
	}
	if fsize > 0 {
		if err := set(unix.RLIMIT_FSIZE, uint64(fsize), "fsize"); err != nil {
			return err
		}
	}
	if nproc > 0 {
		if err := set(unix.RLIMIT_NPROC, uint64(nproc), "nproc"); err != nil {
			return err
		}
	}
	// Untrusted programs never get to write core dumps on the host.
	return set(unix.RLIMIT_CORE, 0, "core")
}

func minimalEnv() []string {
	return []string{"PATH=/usr/local/sbin:/usr/local/bin:/usr/sbin:/usr/bin:/sbin:/bin"}
}
