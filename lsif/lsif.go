// Package lsif builds an in-memory cross-reference index from a
// Language Server Index Format JSON-lines dump. It resolves identifiers to
// reference locations and vice versa; it is an accepted but not yet wired
// enrichment input to the trace collectors (see the module's design notes
// on the pending LSIF-enrichment extension point).
package lsif

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"

	"github.com/daedaleanai/mantra/errkind"
)

// FileLocation is a definition site: a file and the line range of the
// defining range vertex.
type FileLocation struct {
	Filepath  string
	StartLine int
	EndLine   int
}

// Item is a named definition contained in a document.
type Item struct {
	Name      string
	Filepath  string
	StartLine int
	EndLine   int
}

type rangePos struct {
	Line      int
	Character int
}

type rangeData struct {
	Start rangePos
	End   rangePos
}

type itemEdgeOut struct {
	docId     string
	rangeIds  []string
}

type itemRefResult struct {
	rangeIds    []string
	refResultId string
}

// entry mirrors the subset of the LSIF vertex/edge JSON shape this index
// needs. LSIF's actual vertex/edge union has many more fields; only the
// ones this index reads are modeled, matching the retrieval pack's own
// practice of decoding JSON into narrowly-scoped structs rather than a
// full schema.
type entry struct {
	Id    string `json:"id"`
	Type  string `json:"type"`
	Label string `json:"label"`

	// vertex fields
	URI         string    `json:"uri,omitempty"`
	Identifier  string    `json:"identifier,omitempty"`
	Range       rangeData `json:"range,omitempty"`
	ProjectRoot string    `json:"projectRoot,omitempty"`

	// edge fields
	OutV     string   `json:"outV,omitempty"`
	InV      string   `json:"inV,omitempty"`
	InVs     []string `json:"inVs,omitempty"`
	Document string   `json:"document,omitempty"`
	Property string   `json:"property,omitempty"`
}

type element struct {
	kind        string // "document" | "moniker" | "range"
	uri         string
	identifier  string
	rangeData   rangeData
}

// Graph is a read-only index built once per LSIF file.
type Graph struct {
	projectRoot string

	elements  map[string]element
	documents map[string]string // uri -> doc id
	idents    map[string]string // moniker identifier -> moniker id

	rangeToResultSet map[string]string
	monikerIn        map[string]string // moniker id -> result set id
	monikerOut       map[string]string // result set id -> moniker id
	referenceIn      map[string]string // reference result id -> result set id
	referenceOut     map[string]string // result set id -> reference result id

	itemReferenceOut map[string][]itemEdgeOut
	itemDefinitionOut map[string]itemEdgeOut
	docDefItems       map[string][]itemRefResult
}

// Create builds a Graph from newline-delimited LSIF JSON content.
func Create(content string) (*Graph, error) {
	g := &Graph{
		elements:          make(map[string]element),
		documents:         make(map[string]string),
		idents:            make(map[string]string),
		rangeToResultSet:  make(map[string]string),
		monikerIn:         make(map[string]string),
		monikerOut:        make(map[string]string),
		referenceIn:       make(map[string]string),
		referenceOut:      make(map[string]string),
		itemReferenceOut:  make(map[string][]itemEdgeOut),
		itemDefinitionOut: make(map[string]itemEdgeOut),
		docDefItems:       make(map[string][]itemRefResult),
	}

	scanner := bufio.NewScanner(strings.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		var e entry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			return nil, errkind.Wrap(errkind.Parse, err, "failed decoding LSIF entry")
		}

		switch {
		case e.Label == "document":
			g.documents[e.URI] = e.Id
			g.elements[e.Id] = element{kind: "document", uri: e.URI}
		case e.Label == "moniker":
			g.idents[e.Identifier] = e.Id
			g.elements[e.Id] = element{kind: "moniker", identifier: e.Identifier}
		case e.Label == "range":
			g.elements[e.Id] = element{kind: "range", rangeData: e.Range}
		case e.Label == "metaData":
			root := e.ProjectRoot
			if !strings.HasSuffix(root, "/") {
				root += "/"
			}
			g.projectRoot = root
		case e.Type == "edge" && e.Label == "next":
			g.rangeToResultSet[e.OutV] = e.InV
		case e.Type == "edge" && e.Label == "moniker":
			g.monikerIn[e.InV] = e.OutV
			g.monikerOut[e.OutV] = e.InV
		case e.Type == "edge" && e.Label == "textDocument/references":
			g.referenceIn[e.InV] = e.OutV
			g.referenceOut[e.OutV] = e.InV
		case e.Type == "edge" && e.Label == "item":
			switch e.Property {
			case "references":
				g.itemReferenceOut[e.OutV] = append(g.itemReferenceOut[e.OutV], itemEdgeOut{docId: e.Document, rangeIds: e.InVs})
			case "definitions":
				g.itemDefinitionOut[e.OutV] = itemEdgeOut{docId: e.Document, rangeIds: e.InVs}
				g.docDefItems[e.Document] = append(g.docDefItems[e.Document], itemRefResult{rangeIds: e.InVs, refResultId: e.OutV})
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errkind.Wrap(errkind.Parse, err, "failed scanning LSIF content")
	}
	return g, nil
}

// CreateFromReader decodes UTF-8 content from r (the original accepts
// UTF-8/UTF-16 LSIF dumps; this port assumes UTF-8, the format emitted by
// every LSIF indexer in common use, and documents the narrowing rather
// than silently mis-decoding UTF-16 input).
func CreateFromReader(r io.Reader) (*Graph, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, errkind.Wrap(errkind.IO, err, "failed reading LSIF data")
	}
	return Create(string(content))
}

// IdentReferences enumerates (filepath, start-line) reference occurrences
// for the given moniker identifier.
func (g *Graph) IdentReferences(identifier string) []struct {
	Filepath string
	Line     int
} {
	var out []struct {
		Filepath string
		Line     int
	}

	monikerId, ok := g.idents[identifier]
	if !ok {
		return out
	}
	resultSetId, ok := g.monikerIn[monikerId]
	if !ok {
		return out
	}
	refResultId, ok := g.referenceOut[resultSetId]
	if !ok {
		return out
	}
	for _, itemRef := range g.itemReferenceOut[refResultId] {
		docElem, ok := g.elements[itemRef.docId]
		if !ok || docElem.kind != "document" {
			continue
		}
		filepath := g.relativize(docElem.uri)
		for _, rangeId := range itemRef.rangeIds {
			rangeElem, ok := g.elements[rangeId]
			if !ok || rangeElem.kind != "range" {
				continue
			}
			out = append(out, struct {
				Filepath string
				Line     int
			}{Filepath: filepath, Line: rangeElem.rangeData.Start.Line})
		}
	}
	return out
}

// GetIdentLocation returns the definition site of the given identifier.
func (g *Graph) GetIdentLocation(identifier string) (FileLocation, bool) {
	monikerId, ok := g.idents[identifier]
	if !ok {
		return FileLocation{}, false
	}
	resultSetId, ok := g.monikerIn[monikerId]
	if !ok {
		return FileLocation{}, false
	}
	refResultId, ok := g.referenceOut[resultSetId]
	if !ok {
		return FileLocation{}, false
	}
	def, ok := g.itemDefinitionOut[refResultId]
	if !ok || len(def.rangeIds) == 0 {
		return FileLocation{}, false
	}
	rangeElem, ok := g.elements[def.rangeIds[0]]
	if !ok || rangeElem.kind != "range" {
		return FileLocation{}, false
	}
	docElem, ok := g.elements[def.docId]
	if !ok || docElem.kind != "document" {
		return FileLocation{}, false
	}
	return FileLocation{
		Filepath:  g.relativize(docElem.uri),
		StartLine: rangeElem.rangeData.Start.Line,
		EndLine:   rangeElem.rangeData.End.Line,
	}, true
}

// GetIdentifier resolves the enclosing identifier for a (doc, line) pair by
// scanning the document's definition items for a range starting at line.
func (g *Graph) GetIdentifier(doc string, line int) (string, bool) {
	absDoc := g.absPath(doc)
	docId, ok := g.documents[absDoc]
	if !ok {
		return "", false
	}
	for _, item := range g.docDefItems[docId] {
		for _, rangeId := range item.rangeIds {
			rangeElem, ok := g.elements[rangeId]
			if !ok || rangeElem.kind != "range" || rangeElem.rangeData.Start.Line != line {
				continue
			}
			resultSetId, ok := g.rangeToResultSet[rangeId]
			if !ok {
				continue
			}
			monikerId, ok := g.monikerOut[resultSetId]
			if !ok {
				continue
			}
			monikerElem, ok := g.elements[monikerId]
			if !ok || monikerElem.kind != "moniker" {
				continue
			}
			return monikerElem.identifier, true
		}
	}
	return "", false
}

// ContainsDoc reports whether doc appears in the graph's document set.
func (g *Graph) ContainsDoc(doc string) bool {
	_, ok := g.documents[g.absPath(doc)]
	return ok
}

func (g *Graph) absPath(path string) string {
	root := g.projectRoot
	if root == "" {
		return path
	}
	if strings.HasPrefix(path, root) {
		return path
	}
	if strings.HasPrefix(path, "/") && strings.HasSuffix(root, "/") {
		return strings.TrimSuffix(root, "/") + path
	}
	if strings.HasPrefix(path, "/") || strings.HasSuffix(root, "/") {
		return root + path
	}
	return root + "/" + path
}

func (g *Graph) relativize(path string) string {
	if g.projectRoot == "" {
		return path
	}
	if rel := strings.TrimPrefix(path, g.projectRoot); rel != path {
		return rel
	}
	return path
}
