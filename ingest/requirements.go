package ingest

import (
	"context"
	"encoding/json"
	"os"

	"github.com/pkg/errors"

	"github.com/daedaleanai/mantra/config"
	"github.com/daedaleanai/mantra/logging"
	"github.com/daedaleanai/mantra/store"
	"github.com/daedaleanai/mantra/wiki"
)

// CollectRequirements runs every configured [[requirements]] source
// against db and returns the combined change report, grounded on
// cmd/requirements.rs's collect.
func CollectRequirements(ctx context.Context, db *store.DB, sources []config.RequirementsSource) (*store.RequirementChanges, error) {
	maxGen, err := db.MaxRequirementGeneration(ctx)
	if err != nil {
		return nil, err
	}
	changes := &store.RequirementChanges{NewGeneration: maxGen}

	for _, src := range sources {
		var fileChanges *store.RequirementChanges
		var err error
		if src.IsWiki() {
			fileChanges, err = collectRequirementsFromWiki(ctx, db, src.WikiSource)
		} else {
			fileChanges, err = collectRequirementsFromFiles(ctx, db, src.Files)
		}
		if err != nil {
			return nil, err
		}
		changes.Merge(fileChanges)
	}

	return changes, nil
}

func collectRequirementsFromWiki(ctx context.Context, db *store.DB, src config.WikiSource) (*store.RequirementChanges, error) {
	info, err := os.Stat(src.Root)
	if err != nil {
		return nil, errors.Wrapf(err, "could not access wiki root %q", src.Root)
	}

	var entries []wiki.Requirement
	if info.IsDir() {
		entries, err = wiki.CollectFromDir(src.Root, src.Origin, src.MajorVersion)
	} else {
		entries, err = wiki.CollectFromFile(src.Root, src.Origin, src.MajorVersion)
	}
	if err != nil {
		return nil, err
	}

	if len(entries) == 0 {
		logging.Log().Warnw("no requirements were found", "root", src.Root)
		maxGen, err := db.MaxRequirementGeneration(ctx)
		if err != nil {
			return nil, err
		}
		return &store.RequirementChanges{NewGeneration: maxGen}, nil
	}

	reqs := make([]store.Requirement, len(entries))
	for i, e := range entries {
		reqs[i] = store.Requirement{Id: e.Id, Title: e.Title, OriginLink: e.Origin, Manual: e.Manual, Deprecated: e.Deprecated}
	}
	return db.AddRequirements(ctx, reqs)
}

func collectRequirementsFromFiles(ctx context.Context, db *store.DB, files []string) (*store.RequirementChanges, error) {
	maxGen, err := db.MaxRequirementGeneration(ctx)
	if err != nil {
		return nil, err
	}
	changes := &store.RequirementChanges{NewGeneration: maxGen}

	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			return nil, errors.Wrapf(err, "could not access file %q", file)
		}
		var schema RequirementSchema
		if err := json.Unmarshal(content, &schema); err != nil {
			return nil, errors.Wrapf(err, "could not parse requirement schema %q", file)
		}

		reqs := make([]store.Requirement, len(schema.Requirements))
		for i, r := range schema.Requirements {
			var info *string
			if len(r.Info) > 0 {
				s := string(r.Info)
				info = &s
			}
			reqs[i] = store.Requirement{Id: r.Id, Title: r.Title, OriginLink: r.Link, Info: info, Manual: r.Manual, Deprecated: r.Deprecated}
		}

		fileChanges, err := db.AddRequirements(ctx, reqs)
		if err != nil {
			return nil, err
		}
		changes.Merge(fileChanges)
	}

	return changes, nil
}
