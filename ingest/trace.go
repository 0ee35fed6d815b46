package ingest

import (
	"context"
	"encoding/json"
	"os"

	"github.com/pkg/errors"

	"github.com/daedaleanai/mantra/config"
	"github.com/daedaleanai/mantra/lsif"
	"github.com/daedaleanai/mantra/store"
	"github.com/daedaleanai/mantra/trace"
)

// CollectTraces runs every configured [[traces]] source against db and
// returns the combined change report, grounded on cmd/trace.rs's collect.
func CollectTraces(ctx context.Context, db *store.DB, sources []config.TraceSource) (*store.TraceChanges, error) {
	oldGen, err := db.MaxTraceGeneration(ctx)
	if err != nil {
		return nil, err
	}
	newGen := oldGen + 1
	changes := &store.TraceChanges{NewGeneration: newGen}

	for _, src := range sources {
		var srcChanges *store.TraceChanges
		var err error
		if src.IsFromSource() {
			srcChanges, err = collectTracesFromSource(ctx, db, src, newGen)
		} else {
			srcChanges, err = collectTracesFromFiles(ctx, db, src.Files, newGen)
		}
		if err != nil {
			return nil, err
		}
		changes.Merge(srcChanges)
	}

	return changes, nil
}

func collectTracesFromSource(ctx context.Context, db *store.DB, src config.TraceSource, newGen int64) (*store.TraceChanges, error) {
	var lsifGraphs []*lsif.Graph
	for _, path := range src.LsifData {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "could not access lsif data %q", path)
		}
		g, err := lsif.Create(string(content))
		if err != nil {
			return nil, errors.Wrapf(err, "could not parse lsif data %q", path)
		}
		lsifGraphs = append(lsifGraphs, g)
	}

	root := src.Root
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, errors.Wrap(err, "could not resolve current directory")
		}
		root = wd
	}

	fileEntries, err := trace.CollectTree(ctx, root, src.KeepPathAbsolute, lsifGraphs)
	if err != nil {
		return nil, err
	}

	changes := &store.TraceChanges{NewGeneration: newGen}
	for _, fe := range fileEntries {
		sites := entriesToSites(fe.Entries)
		fileChanges, err := db.AddTraces(ctx, fe.Filepath, sites, newGen)
		if err != nil {
			return nil, err
		}
		changes.Merge(fileChanges)
	}
	return changes, nil
}

func collectTracesFromFiles(ctx context.Context, db *store.DB, files []string, newGen int64) (*store.TraceChanges, error) {
	changes := &store.TraceChanges{NewGeneration: newGen}

	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			return nil, errors.Wrapf(err, "could not access file %q", file)
		}
		var schema TraceSchema
		if err := json.Unmarshal(content, &schema); err != nil {
			return nil, errors.Wrapf(err, "could not parse trace schema %q", file)
		}

		for _, ft := range schema.Traces {
			sites := make([]store.TraceSite, len(ft.Traces))
			for i, t := range ft.Traces {
				sites[i] = store.TraceSite{RequirementIds: t.RequirementIds, Line: t.Line, SpanStart: t.SpanStart, SpanEnd: t.SpanEnd}
			}
			fileChanges, err := db.AddTraces(ctx, ft.Filepath, sites, newGen)
			if err != nil {
				return nil, err
			}
			changes.Merge(fileChanges)
		}
	}

	return changes, nil
}

func entriesToSites(entries []trace.Entry) []store.TraceSite {
	sites := make([]store.TraceSite, len(entries))
	for i, e := range entries {
		site := store.TraceSite{RequirementIds: e.RequirementIds, Line: e.Line}
		if e.Span != nil {
			// trace.LineSpan is inclusive; stored spans are half-open
			// [start, end), as the coverage matcher reads them.
			start, end := e.Span.Start, e.Span.End+1
			site.SpanStart = &start
			site.SpanEnd = &end
		}
		sites[i] = site
	}
	return sites
}
