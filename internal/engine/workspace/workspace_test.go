package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireCreatesUniqueSessions(t *testing.T) {
	m, err := NewManager(t.TempDir())
	require.NoError(t, err)

	a, err := m.Acquire()
	require.NoError(t, err)
	b, err := m.Acquire()
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
	assert.DirExists(t, a.Dir)
	assert.DirExists(t, b.Dir)
}

func TestSessionPaths(t *testing.T) {
	m, err := NewManager(t.TempDir())
	require.NoError(t, err)

	sess, err := m.Acquire()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(sess.Dir, SourceFile), sess.SourcePath())
	assert.Equal(t, filepath.Join(sess.Dir, BinaryFile), sess.BinaryPath())
}

func TestReleaseRemovesDirectory(t *testing.T) {
	m, err := NewManager(t.TempDir())
	require.NoError(t, err)

	sess, err := m.Acquire()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(sess.SourcePath(), []byte("int main(){}"), 0o644))

	require.NoError(t, sess.Release())
	assert.NoDirExists(t, sess.Dir)
}

func TestReleaseIsIdempotent(t *testing.T) {
	m, err := NewManager(t.TempDir())
	require.NoError(t, err)

	sess, err := m.Acquire()
	require.NoError(t, err)

	require.NoError(t, sess.Release())
	require.NoError(t, sess.Release())
}

func TestNewManagerCreatesRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nested", "temp")
	m, err := NewManager(root)
	require.NoError(t, err)
	assert.DirExists(t, m.Root())
}
