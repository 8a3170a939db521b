// Package config loads service configuration from the environment.
//
// Every knob has a default that works for local development; production
// deployments override via CPP_ENGINE_* environment variables. Config is
// loaded once in main and passed by value — there is no global config
// singleton, which keeps tests free to construct whatever they need.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/shlex"
)

// Config holds everything the server needs to run.
type Config struct {
	// HTTP
	Host string
	Port int

	// Compilers
	CompilerPath    string   // g++-like compiler
	ClangPath       string   // clang++-like compiler
	DefaultCompiler string   // "g++" or "clang++"
	Standard        string   // e.g. "c++20"
	Optimization    string   // e.g. "O2"
	ExtraFlags      []string // appended to every compile, after request flags
	CompileTimeout  time.Duration

	// Execution
	ExecTimeout    time.Duration
	MaxMemoryMB    int64
	MaxCPUSeconds  int64
	SandboxEnabled bool
	SandboxImage   string
	TempRoot       string
	MaxSessions    int    // admission limit on concurrent compile+execute sessions
	HelperPath     string // sandbox-init binary for rlimit setup; empty = prlimit from parent

	// Storage & auth
	DBPath     string
	JWTSecret  string // empty disables API auth
	APIKeyHash string // bcrypt hash of the API key that can mint tokens
}

// Default returns the built-in configuration, matching a stock Linux host
// with g++ installed.
func Default() Config {
	return Config{
		Host:            "0.0.0.0",
		Port:            9000,
		CompilerPath:    "/usr/bin/g++",
		ClangPath:       "/usr/bin/clang++",
		DefaultCompiler: "g++",
		Standard:        "c++20",
		Optimization:    "O2",
		CompileTimeout:  30 * time.Second,
		ExecTimeout:     10 * time.Second,
		MaxMemoryMB:     512,
		MaxCPUSeconds:   5,
		SandboxEnabled:  true,
		SandboxImage:    "cpp-sandbox:latest",
		TempRoot:        "temp",
		MaxSessions:     8,
		DBPath:          "data/cpp-engine.db",
	}
}

// FromEnv builds a Config from defaults overridden by environment variables.
func FromEnv() (Config, error) {
	cfg := Default()

	if v := os.Getenv("CPP_ENGINE_HOST"); v != "" {
		cfg.Host = v
	}
	if err := intVar(&cfg.Port, "CPP_ENGINE_PORT"); err != nil {
		return cfg, err
	}
	if v := os.Getenv("CPP_ENGINE_COMPILER_PATH"); v != "" {
		cfg.CompilerPath = v
	}
	if v := os.Getenv("CPP_ENGINE_CLANG_PATH"); v != "" {
		cfg.ClangPath = v
	}
	if v := os.Getenv("CPP_ENGINE_DEFAULT_COMPILER"); v != "" {
		cfg.DefaultCompiler = v
	}
	if v := os.Getenv("CPP_ENGINE_STD"); v != "" {
		cfg.Standard = v
	}
	if v := os.Getenv("CPP_ENGINE_OPT"); v != "" {
		cfg.Optimization = v
	}
	if v := os.Getenv("CPP_ENGINE_EXTRA_FLAGS"); v != "" {
		// One string in the environment, split with shell-style quoting so
		// values like -DNAME="a b" survive.
		flags, err := shlex.Split(v)
		if err != nil {
			return cfg, fmt.Errorf("config: parsing CPP_ENGINE_EXTRA_FLAGS: %w", err)
		}
		cfg.ExtraFlags = flags
	}
	if err := secondsVar(&cfg.CompileTimeout, "CPP_ENGINE_COMPILE_TIMEOUT"); err != nil {
		return cfg, err
	}
	if err := secondsVar(&cfg.ExecTimeout, "CPP_ENGINE_EXEC_TIMEOUT"); err != nil {
		return cfg, err
	}
	if err := int64Var(&cfg.MaxMemoryMB, "CPP_ENGINE_MAX_MEMORY_MB"); err != nil {
		return cfg, err
	}
	if err := int64Var(&cfg.MaxCPUSeconds, "CPP_ENGINE_MAX_CPU_SECONDS"); err != nil {
		return cfg, err
	}
	if v := os.Getenv("CPP_ENGINE_SANDBOX"); v != "" {
		cfg.SandboxEnabled = v == "true" || v == "1"
	}
	if v := os.Getenv("CPP_ENGINE_SANDBOX_IMAGE"); v != "" {
		cfg.SandboxImage = v
	}
	if v := os.Getenv("CPP_ENGINE_TEMP_ROOT"); v != "" {
		cfg.TempRoot = v
	}
	if err := intVar(&cfg.MaxSessions, "CPP_ENGINE_MAX_SESSIONS"); err != nil {
		return cfg, err
	}
	if v := os.Getenv("CPP_ENGINE_HELPER"); v != "" {
		cfg.HelperPath = v
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	cfg.APIKeyHash = os.Getenv("CPP_ENGINE_API_KEY_HASH")

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects configurations that cannot work. Ranges follow the
// service's operational envelope, not arbitrary taste: a 0-second timeout
// would kill every run, an 8 GB ceiling would let one request swamp the host.
func (c Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("config: invalid port %d", c.Port)
	}
	if c.ExecTimeout < time.Second || c.ExecTimeout > 300*time.Second {
		return fmt.Errorf("config: execution timeout %s out of range [1s,300s]", c.ExecTimeout)
	}
	if c.CompileTimeout < time.Second || c.CompileTimeout > 300*time.Second {
		return fmt.Errorf("config: compile timeout %s out of range [1s,300s]", c.CompileTimeout)
	}
	if c.MaxMemoryMB < 1 || c.MaxMemoryMB > 8192 {
		return fmt.Errorf("config: memory limit %dMB out of range [1,8192]", c.MaxMemoryMB)
	}
	if c.MaxCPUSeconds < 1 {
		return fmt.Errorf("config: cpu limit %ds must be positive", c.MaxCPUSeconds)
	}
	if c.MaxSessions < 1 {
		return fmt.Errorf("config: max sessions %d must be positive", c.MaxSessions)
	}
	switch c.DefaultCompiler {
	case "g++", "clang++":
	default:
		return fmt.Errorf("config: unknown default compiler %q", c.DefaultCompiler)
	}
	return nil
}

func intVar(dst *int, name string) error {
	v := os.Getenv(name)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("config: %s: %w", name, err)
	}
	*dst = n
	return nil
}

func int64Var(dst *int64, name string) error {
	v := os.Getenv(name)
	if v == "" {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fmt.Errorf("config: %s: %w", name, err)
	}
	*dst = n
	return nil
}

// secondsVar reads an integer number of seconds, matching how the original
// deployment expressed timeouts.
func secondsVar(dst *time.Duration, name string) error {
	v := os.Getenv(name)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("config: %s: %w", name, err)
	}
	*dst = time.Duration(n) * time.Second
	return nil
}
