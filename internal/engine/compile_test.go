package engine

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/cpp-engine/internal/engine/workspace"
)

func TestBuildCompileArgv(t *testing.T) {
	m, err := workspace.NewManager(t.TempDir())
	require.NoError(t, err)
	sess, err := m.Acquire()
	require.NoError(t, err)
	defer sess.Release()

	s := settings{
		CompilerPath: "/usr/bin/g++",
		Standard:     "c++20",
		Optimization: "O2",
		Flags:        []string{"-DTEST"},
	}
	argv := buildCompileArgv(s, sess)

	assert.Equal(t, []string{
		"/usr/bin/g++",
		"-std=c++20",
		"-O2",
		"-Wall", "-Wextra", "-pedantic",
		"-DTEST",
		filepath.Join(sess.Dir, workspace.SourceFile),
		"-o",
		filepath.Join(sess.Dir, workspace.BinaryFile),
	}, argv)
}

func TestBuildCompileArgvDebug(t *testing.T) {
	m, err := workspace.NewManager(t.TempDir())
	require.NoError(t, err)
	sess, err := m.Acquire()
	require.NoError(t, err)
	defer sess.Release()

	s := settings{CompilerPath: "/usr/bin/g++", Standard: "c++20", Optimization: "O0", Debug: true}
	argv := buildCompileArgv(s, sess)
	assert.Contains(t, argv, "-g")
}

func TestParseDiagnostics(t *testing.T) {
	raw := `main.cpp: In function 'int main()':
main.cpp:3:9: warning: unused variable 'x' [-Wunused-variable]
    3 |     int x;
main.cpp:4:5: error: 'y' was not declared in this scope
main.cpp:5:1: warning: no return statement [-Wreturn-type]
`
	warnings, errors := parseDiagnostics(raw)
	assert.Len(t, warnings, 2)
	assert.Len(t, errors, 1)
	assert.Contains(t, errors[0], "was not declared")
}

func TestParseDiagnosticsEmpty(t *testing.T) {
	warnings, errors := parseDiagnostics("")
	assert.NotNil(t, warnings)
	assert.NotNil(t, errors)
	assert.Empty(t, warnings)
	assert.Empty(t, errors)
}
