package trace

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/daedaleanai/mantra/ident"
	"github.com/daedaleanai/mantra/lsif"
)

// MatchFn inspects a single syntax-tree node and, on a hit, returns the
// trace entries it represents plus true. Returning true also tells the
// walker to skip the node's subtree, preventing double-counting of nested
// doc comments within an already-matched item.
type MatchFn func(node *sitter.Node, src []byte) ([]Entry, bool)

// AstCollector walks a concrete syntax tree produced by a tree-sitter
// grammar, applying a language-specific MatchFn at every node in
// depth-first pre-order, grounded on the traversal in
// theRebelliousNerd-codenerd's internal/world/ast_treesitter.go and the
// node-kind dispatch in mantra-rust-trace's collect_traces_in_rust.
type AstCollector struct {
	src     []byte
	lang    *sitter.Language
	match   MatchFn
	tree    *sitter.Tree
}

// NewAstCollector parses src with lang and returns a collector ready to
// walk it, or nil if parsing failed (the caller then falls back to
// PlainCollector, mirroring trace_from_source's fallback-on-parse-failure
// behavior).
func NewAstCollector(src []byte, lang *sitter.Language, match MatchFn) *AstCollector {
	parser := sitter.NewParser()
	parser.SetLanguage(lang)
	tree, err := parser.ParseCtx(context.Background(), nil, src)
	if err != nil || tree == nil || tree.RootNode() == nil {
		return nil
	}
	return &AstCollector{src: src, lang: lang, match: match, tree: tree}
}

// Collect implements Collector via a depth-first pre-order walk that skips
// the subtree of any node the MatchFn claims.
func (c *AstCollector) Collect(lsifGraphs []*lsif.Graph) ([]Entry, error) {
	var entries []Entry
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		if found, skip := c.match(n, c.src); skip {
			entries = append(entries, found...)
			return
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(c.tree.RootNode())

	if len(lsifGraphs) > 0 {
		// Enrichment extension point: item-name resolution from the LSIF
		// graphs is intentionally not performed here. See the module's
		// design notes on the pending LSIF-enrichment open question.
		_ = lsifGraphs
	}

	return entries, nil
}

// GoMatcher recognizes `req(...)` trace calls in Go source: either a call
// expression `req("ids")` standing in for the macro-invocation form, or a
// `// [req(ids)]` line comment preceding a top-level declaration, mirroring
// collect_traces_in_rust's attribute/macro/doc-comment dispatch with Go's
// item-kind suffix "_declaration" in place of Rust's "_item".
func GoMatcher(n *sitter.Node, src []byte) ([]Entry, bool) {
	switch n.Type() {
	case "call_expression":
		fn := n.ChildByFieldName("function")
		args := n.ChildByFieldName("arguments")
		if fn == nil || args == nil || fn.Type() != "identifier" {
			return nil, false
		}
		if fn.Content(src) != "req" {
			return nil, false
		}
		raw := strings.TrimSuffix(strings.TrimPrefix(args.Content(src), "("), ")")
		ids, err := ident.ParseIds(raw)
		if err != nil {
			return nil, false
		}
		line := int(n.StartPoint().Row) + 1
		return []Entry{{RequirementIds: ids, Line: line}}, true

	case "comment":
		text := n.Content(src)
		if !strings.HasPrefix(text, "//") {
			return nil, false
		}
		matches := reTraceTag.FindAllStringSubmatch(text, -1)
		if len(matches) == 0 {
			return nil, false
		}
		line := int(n.StartPoint().Row) + 1
		var entries []Entry
		span := associatedItemSpan(n, src, "_declaration")
		for _, m := range matches {
			ids, err := ident.ParseIds(m[1])
			if err != nil {
				continue
			}
			entries = append(entries, Entry{RequirementIds: ids, Line: line, Span: span})
		}
		return entries, true
	}
	return nil, false
}

// associatedItemSpan walks forward through n's named siblings looking for
// the next node whose kind ends in itemKindSuffix, matching
// mantra-rust-trace's associated_item_span: a comment sibling aborts the
// search unless it is itself a doc-comment line, in which case the walk
// continues past it to the declaration the doc comment documents.
func associatedItemSpan(n *sitter.Node, src []byte, itemKindSuffix string) *LineSpan {
	cur := n
	for {
		sibling := cur.NextNamedSibling()
		if sibling == nil {
			return nil
		}
		kind := sibling.Type()
		if strings.HasSuffix(kind, itemKindSuffix) {
			return &LineSpan{
				Start: int(sibling.StartPoint().Row) + 1,
				End:   int(sibling.EndPoint().Row) + 1,
			}
		}
		if strings.Contains(kind, "comment") && !isDocComment(sibling, src) {
			return nil
		}
		cur = sibling
	}
}

// isDocComment reports whether a comment node is a line comment ("//..."),
// the only form tree-sitter-go produces for Go doc comments; tree-sitter-go
// gives each line of a multi-line "//" doc comment its own sibling comment
// node, so a block comment ("/*...*/") is the only comment kind that should
// ever abort associatedItemSpan's walk.
func isDocComment(n *sitter.Node, src []byte) bool {
	return strings.HasPrefix(n.Content(src), "//")
}
