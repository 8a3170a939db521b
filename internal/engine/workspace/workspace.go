// Package workspace owns the per-request scratch directories.
//
// Every compile+execute round trip gets exactly one Session: a directory
// under the configured temp root named by a random UUID. The UUID doubles as
// the session's identity in logs and as a capability — it is not derivable
// from the request, so one session cannot guess or traverse into another's
// directory. Release is idempotent and the coordinator defers it, so the
// directory disappears on every exit path, including panics unwound by the
// HTTP recoverer.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// SourceFile is the fixed name the submitted code is written to.
	SourceFile = "main.cpp"
	// BinaryFile is the fixed name of the compiled artifact.
	BinaryFile = "main"
)

// Manager hands out sessions under a single temp root. The root is the only
// filesystem resource shared between concurrent requests; every session
// directory below it is exclusively owned by one request.
type Manager struct {
	root string
}

// NewManager creates the temp root if needed and returns a Manager.
func NewManager(root string) (*Manager, error) {
	if root == "" {
		return nil, fmt.Errorf("workspace: temp root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("workspace: resolving temp root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("workspace: creating temp root: %w", err)
	}
	return &Manager{root: abs}, nil
}

// Root returns the absolute temp root path.
func (m *Manager) Root() string {
	return m.root
}

// Session is one request's private directory and identity.
type Session struct {
	ID        string
	Dir       string
	CreatedAt time.Time

	releaseOnce sync.Once
	releaseErr  error
}

// Acquire creates a fresh session directory with a collision-resistant
// random identifier (122 bits from a v4 UUID).
func (m *Manager) Acquire() (*Session, error) {
	id := uuid.NewString()
	dir := filepath.Join(m.root, id)
	if err := os.Mkdir(dir, 0o755); err != nil {
		return nil, fmt.Errorf("workspace: creating session dir: %w", err)
	}
	return &Session{
		ID:        id,
		Dir:       dir,
		CreatedAt: time.Now(),
	}, nil
}

// SourcePath is where the submitted code is written.
func (s *Session) SourcePath() string {
	return filepath.Join(s.Dir, SourceFile)
}

// BinaryPath is where the compiled artifact is placed.
func (s *Session) BinaryPath() string {
	return filepath.Join(s.Dir, BinaryFile)
}

// Release removes the session directory tree. Safe to call more than once;
// only the first call does work. Designed to sit in a defer.
func (s *Session) Release() error {
	s.releaseOnce.Do(func() {
		s.releaseErr = os.RemoveAll(s.Dir)
	})
	return s.releaseErr
}
