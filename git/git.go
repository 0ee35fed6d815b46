// Package git wraps the handful of git plumbing commands the workspace
// resolver needs to locate a repository root.
package git

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/daedaleanai/mantra/logging"
	"github.com/daedaleanai/mantra/linepipes"
)

var repoPaths = make(map[string]string)

// RepoPath returns the full path of the current git repository's root,
// or "" if the current directory is not inside a git repository.
func RepoPath() string {
	cwd, err := os.Getwd()
	if err != nil {
		logging.Log().Warnw("could not resolve current directory", "error", err)
		return ""
	}
	if path, ok := repoPaths[cwd]; ok {
		return path
	}

	// See details about "working directory" in https://git-scm.com/docs/githooks
	bare, err := linepipes.Single(linepipes.Run("git", "rev-parse", "--is-bare-repository"))
	if err != nil {
		return ""
	}
	if bare == "true" {
		return ""
	}

	toplevel, err := linepipes.Single(linepipes.Run("git", "rev-parse", "--show-toplevel"))
	if err != nil {
		return ""
	}
	toplevel = strings.TrimSpace(toplevel)
	repoPaths[cwd] = toplevel
	return toplevel
}

// RepoName returns the base name of the current git repository's root.
func RepoName() string {
	root := RepoPath()
	if root == "" {
		return ""
	}
	return strings.TrimSuffix(filepath.Base(root), ".git")
}
