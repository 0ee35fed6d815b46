// Package coverage maps covered source lines to the requirement traces
// whose spans contain them.
package coverage

import "sort"

// Span is a half-open line range [Start, End) governed by a trace.
type Span struct {
	Start         int
	End           int
	RequirementId string
	TraceLine     int
}

// CoveredFileTrace groups the requirement ids attributed to a single trace
// line by at least one covered line in the file.
type CoveredFileTrace struct {
	TraceLine      int
	RequirementIds []string
}

// Tree is a simple interval index over a single file's trace spans. It is
// not self-balancing: the expected span count per file is small enough
// (one entry per trace) that a linear scan sorted by start is sufficient
// and keeps the implementation auditable against the spec's description of
// "build an interval tree from the spans".
type Tree struct {
	spans []Span
}

// NewTree builds an index from the given spans. Overlapping and nested
// spans are both supported: the caller may pass spans for several distinct
// requirements that all contain the same line.
func NewTree(spans []Span) *Tree {
	cp := make([]Span, len(spans))
	copy(cp, spans)
	sort.Slice(cp, func(i, j int) bool { return cp[i].Start < cp[j].Start })
	return &Tree{spans: cp}
}

// contains reports whether line falls in the half-open span [s.Start, s.End).
func (s Span) contains(line int) bool {
	return line >= s.Start && line < s.End
}

// Covers reports whether line falls inside any span in the tree. Callers
// use this to find covered lines that land in no trace span at all, as
// opposed to lines Match folded into a CoveredFileTrace.
func (t *Tree) Covers(line int) bool {
	for _, sp := range t.spans {
		if sp.contains(line) {
			return true
		}
	}
	return false
}

// Match maps a sorted list of covered lines to the set of covered traces.
// coveredLines MUST already be sorted ascending; this is an idempotent
// precondition the caller is responsible for, not something Match enforces
// by re-sorting (matching the spec's "MUST be sorted before query").
func (t *Tree) Match(coveredLines []int) []CoveredFileTrace {
	byLine := make(map[int]map[string]bool)
	var order []int

	for _, line := range coveredLines {
		for _, sp := range t.spans {
			if !sp.contains(line) {
				continue
			}
			ids, ok := byLine[sp.TraceLine]
			if !ok {
				ids = make(map[string]bool)
				byLine[sp.TraceLine] = ids
				order = append(order, sp.TraceLine)
			}
			ids[sp.RequirementId] = true
		}
	}

	sort.Ints(order)
	result := make([]CoveredFileTrace, 0, len(order))
	for _, traceLine := range order {
		idSet := byLine[traceLine]
		ids := make([]string, 0, len(idSet))
		for id := range idSet {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		result = append(result, CoveredFileTrace{TraceLine: traceLine, RequirementIds: ids})
	}
	return result
}
