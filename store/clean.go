package store

import (
	"context"

	"github.com/daedaleanai/mantra/errkind"
)

// CleanReport counts the rows reaped by Clean.
type CleanReport struct {
	TestRunsRemoved int
	ReviewsRemoved  int
}

// Clean removes test runs and reviews left with no remaining coverage or
// verification links, typically after DeleteTraces or DeleteRequirements
// has cascaded away the rows that referenced them. This mirrors the
// original implementation's post-delete sweep that keeps TestRuns/Reviews
// from accumulating as dangling, unreferenced history.
func (db *DB) Clean(ctx context.Context) (*CleanReport, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errkind.Wrap(errkind.Connect, err, "failed to start clean transaction")
	}
	defer tx.Rollback()

	runsRes, err := tx.ExecContext(ctx, `
		DELETE FROM TestRuns
		WHERE NOT EXISTS (
			SELECT 1 FROM TestCoverage tc
			WHERE tc.TestRunName = TestRuns.Name AND tc.TestRunDate = TestRuns.Date
		)`)
	if err != nil {
		return nil, errkind.Wrap(errkind.Delete, err, "failed cleaning orphaned test runs")
	}
	runsN, err := runsRes.RowsAffected()
	if err != nil {
		return nil, errkind.Wrap(errkind.Delete, err, "failed reading rows affected cleaning test runs")
	}

	reviewsRes, err := tx.ExecContext(ctx, `
		DELETE FROM Reviews
		WHERE NOT EXISTS (
			SELECT 1 FROM ManuallyVerified mv
			WHERE mv.ReviewName = Reviews.Name AND mv.ReviewDate = Reviews.Date
		)`)
	if err != nil {
		return nil, errkind.Wrap(errkind.Delete, err, "failed cleaning orphaned reviews")
	}
	reviewsN, err := reviewsRes.RowsAffected()
	if err != nil {
		return nil, errkind.Wrap(errkind.Delete, err, "failed reading rows affected cleaning reviews")
	}

	if err := tx.Commit(); err != nil {
		return nil, errkind.Wrap(errkind.Delete, err, "failed to commit clean")
	}
	return &CleanReport{TestRunsRemoved: int(runsN), ReviewsRemoved: int(reviewsN)}, nil
}
