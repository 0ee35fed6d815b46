package store

import (
	"context"
	"database/sql"

	"github.com/daedaleanai/mantra/errkind"
)

// TestState is the outcome of a single test within a run.
type TestState int

const (
	TestPassed TestState = iota
	TestFailed
	TestSkipped
)

// AddTestRun inserts a test run if one with the same (name, date) doesn't
// already exist ("insert or ignore", matching the original's add_test_run).
func (db *DB) AddTestRun(ctx context.Context, name, date string, nrOfTests int, meta, logs *string) error {
	_, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO TestRuns (Name, Date, NrOfTests, Meta, Logs) VALUES (?,?,?,?,?)`,
		name, date, nrOfTests, meta, logs)
	if err != nil {
		return errkind.Wrap(errkind.Insert, err, "failed inserting test run %q/%q", name, date)
	}
	return nil
}

// TestRunExists reports whether a test run with this natural key is
// already recorded, used by the coverage ingest orchestrator to skip
// duplicate submissions of the same run.
func (db *DB) TestRunExists(ctx context.Context, name, date string) (bool, error) {
	var exists int
	row := db.QueryRowContext(ctx, "SELECT 1 FROM TestRuns WHERE Name=? AND Date=?", name, date)
	err := row.Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, errkind.Wrap(errkind.Query, err, "failed checking test run existence")
	}
	return true, nil
}

// AddTest inserts one test result ("insert or ignore" semantics, matching
// the original's add_test). A Skipped state also records a SkippedTests
// row with its optional reason.
func (db *DB) AddTest(ctx context.Context, runName, runDate, name, filepath string, line int, state TestState, skipReason *string) error {
	passed := state == TestPassed
	if _, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO Tests (TestRunName, TestRunDate, Name, Filepath, Line, Passed) VALUES (?,?,?,?,?,?)`,
		runName, runDate, name, filepath, line, passed); err != nil {
		return errkind.Wrap(errkind.Insert, err, "failed inserting test %q", name)
	}
	if state == TestSkipped {
		if _, err := db.ExecContext(ctx,
			`INSERT OR IGNORE INTO SkippedTests (TestRunName, TestRunDate, Name, Reason) VALUES (?,?,?,?)`,
			runName, runDate, name, skipReason); err != nil {
			return errkind.Wrap(errkind.Insert, err, "failed inserting skipped test %q", name)
		}
	}
	return nil
}

// DeleteTestRunsConfig selects which test runs to reap by age.
type DeleteTestRunsConfig struct {
	Before *string // ISO-8601 date string
}

// DeleteTestRuns removes test runs older than cfg.Before, cascading to
// their Tests, SkippedTests and TestCoverage rows.
func (db *DB) DeleteTestRuns(ctx context.Context, cfg DeleteTestRunsConfig) (int, error) {
	query := "SELECT Name, Date FROM TestRuns WHERE 1=1"
	var args []interface{}
	if cfg.Before != nil {
		query += " AND unixepoch(Date) < unixepoch(?)"
		args = append(args, *cfg.Before)
	}
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return 0, errkind.Wrap(errkind.Query, err, "failed selecting test runs to delete")
	}
	type key struct{ name, date string }
	var keys []key
	for rows.Next() {
		var k key
		if err := rows.Scan(&k.name, &k.date); err != nil {
			rows.Close()
			return 0, errkind.Wrap(errkind.Query, err, "failed scanning test run row")
		}
		keys = append(keys, k)
	}
	rows.Close()

	for _, k := range keys {
		if _, err := db.ExecContext(ctx, "DELETE FROM TestRuns WHERE Name=? AND Date=?", k.name, k.date); err != nil {
			return 0, errkind.Wrap(errkind.Delete, err, "failed deleting test run %q/%q", k.name, k.date)
		}
	}
	return len(keys), nil
}
