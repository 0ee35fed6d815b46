package store

import (
	"context"

	"github.com/daedaleanai/mantra/coverage"
	"github.com/daedaleanai/mantra/errkind"
	"github.com/daedaleanai/mantra/logging"
)

// TraceSpansForFile returns the governing spans recorded against filepath,
// in the shape the coverage package's interval matcher consumes.
func (db *DB) TraceSpansForFile(ctx context.Context, filepath string) ([]coverage.Span, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT RequirementId, Line, StartLine, EndLine FROM TraceSpans WHERE Filepath = ?", filepath)
	if err != nil {
		return nil, errkind.Wrap(errkind.Query, err, "failed querying trace spans for %q", filepath)
	}
	defer rows.Close()

	var spans []coverage.Span
	for rows.Next() {
		var s coverage.Span
		if err := rows.Scan(&s.RequirementId, &s.TraceLine, &s.Start, &s.End); err != nil {
			return nil, errkind.Wrap(errkind.Query, err, "failed scanning trace span row")
		}
		spans = append(spans, s)
	}
	return spans, nil
}

// CoverageLink connects one test to the trace site(s) it exercises.
type CoverageLink struct {
	TestRunName   string
	TestRunDate   string
	TestName      string
	RequirementId string
	TraceFilepath string
	TraceLine     int
}

// AddCoverage links a test to the trace sites it covers ("insert or
// ignore"). A link naming a test or trace that doesn't exist is logged
// and skipped, matching the "coverage insertion edge cases" rule: a
// coverage report referencing a requirement that has since been
// deprecated or retraced should not abort the whole ingest.
func (db *DB) AddCoverage(ctx context.Context, links []CoverageLink) (int, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errkind.Wrap(errkind.Connect, err, "failed to start coverage ingest transaction")
	}
	defer tx.Rollback()

	inserted := 0
	for _, l := range links {
		_, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO TestCoverage (TestRunName, TestRunDate, TestName, RequirementId, TraceFilepath, TraceLine)
			 VALUES (?,?,?,?,?,?)`,
			l.TestRunName, l.TestRunDate, l.TestName, l.RequirementId, l.TraceFilepath, l.TraceLine)
		if err != nil {
			if isForeignKeyViolation(err) {
				logging.Log().Warnw("skipping coverage link, missing test or trace",
					"test", l.TestName, "requirement", l.RequirementId, "file", l.TraceFilepath, "line", l.TraceLine)
				continue
			}
			return 0, errkind.Wrap(errkind.Insert, err, "failed inserting coverage link for %q", l.RequirementId)
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, errkind.Wrap(errkind.Insert, err, "failed to commit coverage ingest")
	}
	return inserted, nil
}
