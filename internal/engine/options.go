package engine

import (
	"regexp"
	"time"

	"github.com/sakif/cpp-engine/internal/apperror"
	"github.com/sakif/cpp-engine/internal/config"
)

// Options are the caller-tunable knobs on a compile or run request. Zero
// values mean "use the configured default".
type Options struct {
	Compiler       string   `json:"compiler"`
	Standard       string   `json:"standard"`
	Optimization   string   `json:"optimization"`
	Debug          bool     `json:"debug"`
	Flags          []string `json:"flags"`
	TimeoutSeconds int      `json:"timeout_seconds"`
	MemoryMB       int64    `json:"memory_mb"`
	Sandbox        *bool    `json:"sandbox"`
}

// Argv elements are handed to the kernel without a shell, so flags cannot
// inject commands — but the standard and optimization fields end up glued
// into -std=/-O arguments, so they are validated against the shapes a
// compiler actually accepts.
var (
	standardPattern     = regexp.MustCompile(`^(c|gnu)\+\+([0-9]{2}|1z|2a|2b|2c)$`)
	optimizationPattern = regexp.MustCompile(`^O([0-3sgz]|fast)$`)
)

// settings is an Options with all defaults applied and validated — what the
// stages actually consume.
type settings struct {
	CompilerPath string // resolved binary path
	Standard     string
	Optimization string
	Debug        bool
	Flags        []string
	Timeout      time.Duration
	MemoryBytes  int64
	CPUTime      time.Duration
	Sandbox      bool
}

func resolveOptions(cfg config.Config, opts Options) (settings, error) {
	s := settings{
		Standard:     cfg.Standard,
		Optimization: cfg.Optimization,
		Debug:        opts.Debug,
		Timeout:      cfg.ExecTimeout,
		MemoryBytes:  cfg.MaxMemoryMB * 1024 * 1024,
		CPUTime:      time.Duration(cfg.MaxCPUSeconds) * time.Second,
		Sandbox:      cfg.SandboxEnabled,
	}

	compiler := opts.Compiler
	if compiler == "" {
		compiler = cfg.DefaultCompiler
	}
	switch compiler {
	case "g++", "gcc":
		s.CompilerPath = cfg.CompilerPath
	case "clang++", "clang":
		s.CompilerPath = cfg.ClangPath
	default:
		return s, apperror.ValidationFailed("compiler", "compiler must be g++ or clang++")
	}

	if opts.Standard != "" {
		if !standardPattern.MatchString(opts.Standard) {
			return s, apperror.ValidationFailed("standard", "unrecognized language standard")
		}
		s.Standard = opts.Standard
	}
	if opts.Optimization != "" {
		if !optimizationPattern.MatchString(opts.Optimization) {
			return s, apperror.ValidationFailed("optimization", "unrecognized optimization level")
		}
		s.Optimization = opts.Optimization
	}

	// Request flags first, configured flags last, both after the fixed
	// warning set — later flags win, so operators keep the final word.
	s.Flags = append(append([]string{}, opts.Flags...), cfg.ExtraFlags...)

	if opts.TimeoutSeconds != 0 {
		if opts.TimeoutSeconds < 1 || opts.TimeoutSeconds > 300 {
			return s, apperror.ValidationFailed("timeout_seconds", "timeout must be between 1 and 300 seconds")
		}
		s.Timeout = time.Duration(opts.TimeoutSeconds) * time.Second
	}
	if opts.MemoryMB != 0 {
		if opts.MemoryMB < 16 || opts.MemoryMB > 8192 {
			return s, apperror.ValidationFailed("memory_mb", "memory limit must be between 16 and 8192 MB")
		}
		s.MemoryBytes = opts.MemoryMB * 1024 * 1024
	}
	if opts.Sandbox != nil {
		s.Sandbox = *opts.Sandbox
	}

	return s, nil
}
