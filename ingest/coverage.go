package ingest

import (
	"context"
	"encoding/json"
	"os"
	"sort"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/daedaleanai/mantra/coverage"
	"github.com/daedaleanai/mantra/logging"
	"github.com/daedaleanai/mantra/store"
)

// CoverageChanges is the change report returned by CollectCoverage,
// grounded on cmd/coverage.rs's CoverageChanges.
type CoverageChanges struct {
	Inserted []store.TracePk
}

// String renders the same summary as the original implementation's
// CoverageChanges Display impl.
func (c *CoverageChanges) String() string {
	if len(c.Inserted) == 0 {
		return "No coverage information was added.\n"
	}
	out := "Coverage added for traces:\n"
	for _, pk := range c.Inserted {
		out += "- " + pk.String() + "\n"
	}
	return out
}

// CollectCoverage reads every coverage data file and links the tests it
// describes to the trace sites they exercise, grounded on
// cmd/coverage.rs's collect_from_str.
func CollectCoverage(ctx context.Context, db *store.DB, files []string) (*CoverageChanges, error) {
	changes := &CoverageChanges{}
	// seen disambiguates test runs sharing a (name, date) natural key across
	// the several data files a single ingest call may process; the uuid
	// token only lives for the duration of this call and is never persisted,
	// the persisted natural key stays (name, date).
	seen := make(map[string]uuid.UUID)

	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			return nil, errors.Wrapf(err, "could not read coverage data from %q", file)
		}
		var schema CoverageSchema
		if err := json.Unmarshal(content, &schema); err != nil {
			return nil, errors.Wrapf(err, "could not parse coverage data %q", file)
		}

		for _, run := range schema.TestRuns {
			runKey := run.Name + "\x00" + run.Date
			if _, dup := seen[runKey]; dup {
				logging.Log().Infow("skipping test run, already ingested this call", "name", run.Name, "date", run.Date)
				continue
			}
			seen[runKey] = uuid.New()

			exists, err := db.TestRunExists(ctx, run.Name, run.Date)
			if err != nil {
				return nil, err
			}
			if exists {
				logging.Log().Infow("skipping test run, already exists", "name", run.Name, "date", run.Date)
				continue
			}

			var meta *string
			if len(run.Meta) > 0 {
				s := string(run.Meta)
				meta = &s
			}
			var logs *string
			if run.Logs != "" {
				logs = &run.Logs
			}
			if err := db.AddTestRun(ctx, run.Name, run.Date, run.NrOfTests, meta, logs); err != nil {
				return nil, err
			}

			for _, test := range run.Tests {
				state, reason := toTestState(test.State)
				if err := db.AddTest(ctx, run.Name, run.Date, test.Name, test.Filepath, test.Line, state, reason); err != nil {
					return nil, err
				}

				links, err := coveredTraceLinks(ctx, db, run.Name, run.Date, test)
				if err != nil {
					return nil, err
				}
				if len(links) == 0 {
					continue
				}
				if _, err := db.AddCoverage(ctx, links); err != nil {
					return nil, err
				}
				for _, l := range links {
					changes.Inserted = append(changes.Inserted, store.TracePk{RequirementId: l.RequirementId, Filepath: l.TraceFilepath, Line: l.TraceLine})
				}
			}
		}
	}

	return changes, nil
}

func toTestState(s TestStateRecord) (store.TestState, *string) {
	switch s.Kind {
	case "passed":
		return store.TestPassed, nil
	case "skipped":
		return store.TestSkipped, s.Reason
	default:
		return store.TestFailed, nil
	}
}

// coveredTraceLinks resolves a test's directly-named covered traces plus
// its raw covered-line ranges (matched against the file's recorded
// TraceSpans) into concrete coverage links.
func coveredTraceLinks(ctx context.Context, db *store.DB, runName, runDate string, test TestRecord) ([]store.CoverageLink, error) {
	var links []store.CoverageLink

	for _, t := range test.CoveredTraces {
		links = append(links, store.CoverageLink{
			TestRunName: runName, TestRunDate: runDate, TestName: test.Name,
			RequirementId: t.RequirementId, TraceFilepath: t.Filepath, TraceLine: t.Line,
		})
	}

	for _, lc := range test.CoveredLines {
		spans, err := db.TraceSpansForFile(ctx, lc.Filepath)
		if err != nil {
			return nil, err
		}
		lines := append([]int(nil), lc.Lines...)
		sort.Ints(lines)
		if len(spans) == 0 {
			for _, line := range lines {
				logging.Log().Infow("unrelated coverage", "filepath", lc.Filepath, "line", line, "test", test.Name)
			}
			continue
		}
		tree := coverage.NewTree(spans)
		for _, covered := range tree.Match(lines) {
			for _, reqId := range covered.RequirementIds {
				links = append(links, store.CoverageLink{
					TestRunName: runName, TestRunDate: runDate, TestName: test.Name,
					RequirementId: reqId, TraceFilepath: lc.Filepath, TraceLine: covered.TraceLine,
				})
			}
		}
		for _, line := range lines {
			if !tree.Covers(line) {
				logging.Log().Infow("unrelated coverage", "filepath", lc.Filepath, "line", line, "test", test.Name)
			}
		}
	}

	return links, nil
}
