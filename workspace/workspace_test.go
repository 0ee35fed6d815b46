package workspace

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootIsManifestDirectory(t *testing.T) {
	dir := t.TempDir()
	manifest := filepath.Join(dir, "mantra.toml")

	root, err := Root(manifest)
	require.NoError(t, err)

	wantDir, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	gotDir, err := filepath.EvalSymlinks(root)
	require.NoError(t, err)
	assert.Equal(t, wantDir, gotDir)
}

func TestResolveLeavesAbsolutePathsUntouched(t *testing.T) {
	abs := filepath.Join(string(filepath.Separator), "tmp", "x")
	assert.Equal(t, abs, Resolve("/base", abs))
}

func TestResolveJoinsRelativePaths(t *testing.T) {
	assert.Equal(t, filepath.Join("/base", "sub", "file.go"), Resolve("/base", "sub/file.go"))
}
