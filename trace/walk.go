package trace

import (
	"context"
	"mime"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"

	"github.com/daedaleanai/mantra/errkind"
	"github.com/daedaleanai/mantra/logging"
	"github.com/daedaleanai/mantra/lsif"
)

// FileEntries is a file's collected trace sites.
type FileEntries struct {
	Filepath string
	Entries  []Entry
}

// grammars maps a file extension to the tree-sitter language and matcher
// used to parse it. Only Go is registered today; registering another
// language is a matter of adding a (*sitter.Language, MatchFn) pair here,
// per the "polymorphism over languages" design note.
var grammars = map[string]struct {
	lang  *sitter.Language
	match MatchFn
}{
	".go": {lang: golang.GetLanguage(), match: GoMatcher},
}

// isTextFile approximates mime_guess::from_path(..).first().type_() ==
// "text" using the standard library's extension-based MIME table, falling
// back to true for unknown extensions with no dot at all (many source
// files, e.g. Makefile, have none) and false for known-binary extensions.
func isTextFile(path string) bool {
	ext := filepath.Ext(path)
	if ext == "" {
		return true
	}
	typ := mime.TypeByExtension(ext)
	if typ == "" {
		// Unregistered extension: assume text, matching the bias toward
		// scanning source files the walk is meant to find.
		return true
	}
	return strings.HasPrefix(typ, "text/") || strings.Contains(typ, "json") || strings.Contains(typ, "xml")
}

// CollectFile dispatches a single file to the AST collector for its
// extension's registered grammar, falling back to the plain-text collector
// when no grammar is registered or the parse fails, mirroring
// trace_from_source's collect_traces dispatch.
func CollectFile(absPath string, lsifGraphs []*lsif.Graph) ([]Entry, error) {
	if !isTextFile(absPath) {
		return nil, nil
	}
	content, err := os.ReadFile(absPath)
	if err != nil {
		return nil, errkind.Wrap(errkind.IO, err, "could not access file %q", absPath)
	}

	if g, ok := grammars[strings.ToLower(filepath.Ext(absPath))]; ok {
		collector := NewAstCollector(content, g.lang, g.match)
		if collector != nil {
			return collector.Collect(lsifGraphs)
		}
		logging.Log().Warnf("failed parsing %s with its registered grammar, falling back to plain text", absPath)
	}

	return NewPlainCollector(string(content)).Collect(nil)
}

// CollectTree walks root (a directory or a single file) and returns every
// file's trace entries, using keepAbsolute to choose whether paths are
// reported relative to root or left absolute. Files are parsed
// concurrently (at most GOMAXPROCS at a time, via errgroup's SetLimit,
// mirroring the retrieval pack's use of golang.org/x/sync/errgroup for
// bounded fan-out), but the function does not return until every file has
// been parsed — preserving the ordering guarantee that all trace entries
// for a generation are available as a unit before ingest begins.
func CollectTree(ctx context.Context, root string, keepAbsolute bool, lsifGraphs []*lsif.Graph) ([]FileEntries, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, errkind.Wrap(errkind.IO, err, "could not access trace root %q", root)
	}

	var files []string
	if info.IsDir() {
		err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, errkind.Wrap(errkind.IO, err, "failed walking trace root %q", root)
		}
	} else {
		files = []string{root}
	}

	results := make([]FileEntries, len(files))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			entries, err := CollectFile(f, lsifGraphs)
			if err != nil {
				logging.Log().Warnw("skipping file during trace collection", "file", f, "error", err)
				return nil
			}
			rel := f
			if !keepAbsolute {
				if r, rerr := filepath.Rel(root, f); rerr == nil {
					rel = r
				}
			}
			results[i] = FileEntries{Filepath: rel, Entries: entries}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := results[:0]
	for _, r := range results {
		if len(r.Entries) > 0 {
			out = append(out, r)
		}
	}
	return out, nil
}
