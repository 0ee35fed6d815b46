package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoadManifestSyntax mirrors cfg.rs's collect_file_syntax test: the
// same manifest shape, decoded into the Go config types.
func TestLoadManifestSyntax(t *testing.T) {
	content := `
[project]
name = "test-proj"
version = "0.1.0"
repository = "some.link"
homepage = "some-other.link"

[[requirements]]
root = "reqs.md"
origin = "cloud-repo.something"

[[requirements]]
files = ["extern-reqs.json"]

[[traces]]
root = ""

[[traces]]
files = ["extern-traces.json"]

[coverage]
files = ["coverage.json"]

[review]
files = ["first_review.toml"]
`
	dir := t.TempDir()
	path := filepath.Join(dir, "mantra.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "test-proj", cfg.Project.Name)
	require.Len(t, cfg.Requirements, 2)
	assert.True(t, cfg.Requirements[0].IsWiki())
	assert.Equal(t, "cloud-repo.something", cfg.Requirements[0].Origin)
	assert.False(t, cfg.Requirements[1].IsWiki())
	assert.Equal(t, []string{"extern-reqs.json"}, cfg.Requirements[1].Files)

	require.Len(t, cfg.Traces, 2)
	assert.True(t, cfg.Traces[0].IsFromSource())
	assert.Equal(t, []string{"extern-traces.json"}, cfg.Traces[1].Files)

	require.NotNil(t, cfg.Coverage)
	assert.Equal(t, "coverage.json", cfg.Coverage.Files[0])
	require.NotNil(t, cfg.Review)
	assert.Equal(t, "first_review.toml", cfg.Review.Files[0])
}

func TestDatabaseURLPrecedence(t *testing.T) {
	cfg := &Config{DB: DBConfig{URL: "manifest.db"}}
	assert.Equal(t, "manifest.db", cfg.DatabaseURL("fallback.db"))

	empty := &Config{}
	assert.Equal(t, "fallback.db", empty.DatabaseURL("fallback.db"))

	t.Setenv("MANTRA_DB", "env.db")
	assert.Equal(t, "env.db", cfg.DatabaseURL("fallback.db"))
}
