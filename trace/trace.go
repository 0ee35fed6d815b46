// Package trace walks source files looking for requirement trace tags,
// either via a language grammar's concrete syntax tree or, as a fallback,
// plain-text regex scanning.
package trace

import (
	"regexp"

	"github.com/daedaleanai/mantra/ident"
	"github.com/daedaleanai/mantra/lsif"
)

// LineSpan is the inclusive [Start, End] line range of the item a trace
// tag annotates.
type LineSpan struct {
	Start int
	End   int
}

// Entry is a single extracted trace site, not yet attached to a file.
type Entry struct {
	RequirementIds []string
	Line           int
	Span           *LineSpan
	ItemName       string // filled in by LSIF enrichment when available
}

// reTraceTag matches `[req(ids)]` / `[requirements(ids)]`, optionally
// namespaced as `[ns::req(ids)]`, grounded on
// mantra-lang-tracing's REQ_TRACE_MATCHER.
var reTraceTag = regexp.MustCompile(`\[(?:[^(]+::)?(?:req|requirements)\(([^)]+)\)\]`)

// entriesFromText finds every trace tag occurrence in content, tagging
// each with the 1-based line it was found on.
func entriesFromText(content string, startLine int) ([]Entry, error) {
	var entries []Entry
	matches := reTraceTag.FindAllStringSubmatchIndex(content, -1)
	for _, m := range matches {
		idsRaw := content[m[2]:m[3]]
		ids, err := ident.ParseIds(idsRaw)
		if err != nil {
			return nil, err
		}
		line := startLine + countNewlines(content[:m[0]])
		entries = append(entries, Entry{RequirementIds: ids, Line: line})
	}
	return entries, nil
}

func countNewlines(s string) int {
	n := 0
	for _, r := range s {
		if r == '\n' {
			n++
		}
	}
	return n
}

// Collector is the single capability every language-specific backend
// implements: consume source bytes (plus optional LSIF graphs for
// identifier enrichment) and produce the trace sites found within.
type Collector interface {
	Collect(lsifGraphs []*lsif.Graph) ([]Entry, error)
}
