// Package workspace resolves the filesystem root that manifest-relative
// paths (wiki roots, trace roots, schema file paths) are interpreted
// against. Adapted from the teacher's repos/git path-resolution helpers,
// trimmed to the single-project case this engine targets: the manifest's
// own directory is the root. GitRoot separately reports the git toplevel;
// Root does not consult it.
package workspace

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/daedaleanai/mantra/git"
)

// Root resolves the directory that relative paths inside the manifest at
// manifestPath are interpreted against: the manifest's own parent
// directory, whether manifestPath is absolute or relative. It does not
// fall back to the git repository root.
func Root(manifestPath string) (string, error) {
	abs, err := filepath.Abs(manifestPath)
	if err != nil {
		return "", errors.Wrapf(err, "could not resolve manifest path %q", manifestPath)
	}
	return filepath.Dir(abs), nil
}

// GitRoot resolves the top-level directory of the git repository
// containing the current working directory, for the case where a
// manifest path needs to be disambiguated against a repository root
// rather than the invocation directory.
func GitRoot() (string, error) {
	root := git.RepoPath()
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", errors.Wrap(err, "could not resolve current directory")
		}
		return wd, nil
	}
	return root, nil
}

// Resolve joins base and path unless path is already absolute.
func Resolve(base, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}
