package trace

import "github.com/daedaleanai/mantra/lsif"

// PlainCollector is the regex-based fallback used for languages without a
// registered grammar, or when AST parsing of a file fails. It never
// attaches a span. Coverage ingest matches covered lines only against
// recorded spans, so a span-less trace is linked to a test only when the
// coverage data names it directly in covered_traces; a covered line equal
// to the trace line does not link it.
type PlainCollector struct {
	content string
}

// NewPlainCollector wraps raw file content for line-by-line trace scanning.
func NewPlainCollector(content string) *PlainCollector {
	return &PlainCollector{content: content}
}

// Collect implements Collector. lsifGraphs is accepted for interface
// symmetry with AstCollector but unused: the plain-text form never resolves
// item names today (see the LSIF-enrichment open question).
func (c *PlainCollector) Collect(_ []*lsif.Graph) ([]Entry, error) {
	return entriesFromText(c.content, 1)
}
