// Package model defines the data structures shared between the engine,
// the storage layer, and the HTTP handlers.
package model

import "time"

// Run kinds. A "compile" record never has execution fields set.
const (
	RunKindCompile = "compile"
	RunKindExecute = "execute"
)

// RunRecord is the persisted summary of one request: what was asked, what
// happened, and what it cost. Source code is intentionally not stored —
// snippets are transient and the history exists for operating the service,
// not for retaining user programs.
type RunRecord struct {
	ID            string    `json:"id"`
	Kind          string    `json:"kind"`
	SessionID     string    `json:"sessionId"`
	Success       bool      `json:"success"`
	ExitCode      int       `json:"exitCode"`
	Warnings      int       `json:"warnings"`
	Errors        int       `json:"errors"`
	CompileTimeMS int64     `json:"compileTimeMs"`
	ExecuteTimeMS int64     `json:"executeTimeMs"`
	MemoryKB      int64     `json:"memoryKb"`
	TimedOut      bool      `json:"timedOut"`
	Sandboxed     bool      `json:"sandboxed"`
	CreatedAt     time.Time `json:"createdAt"`
}
