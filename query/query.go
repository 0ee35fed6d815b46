// Package query provides the read-side aggregates that populate reports
// (overview, per-requirement detail, per-test-run detail) without leaking
// the store package's table shapes, grounded on the derived views declared
// in store/schema.sql and the original implementation's query-side
// MantraDb methods.
package query

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/daedaleanai/mantra/diagnostics"
	"github.com/daedaleanai/mantra/errkind"
	"github.com/daedaleanai/mantra/store"
)

// Overview is the top-level summary across the whole store.
type Overview struct {
	TotalRequirements int
	FullyTraced       int
	FullyCovered      int
	Invalid           int
	TotalTests        int
	PassedTests       int
	SkippedTests      int
}

// Fetch aggregates RequirementCoverageOverview and TestOverview into a
// single top-level summary.
func Fetch(ctx context.Context, db *store.DB) (*Overview, error) {
	var o Overview
	row := db.QueryRowContext(ctx, "SELECT TotalRequirements, FullyTracedCount, FullyCoveredCount, InvalidCount FROM RequirementCoverageOverview")
	if err := row.Scan(&o.TotalRequirements, &o.FullyTraced, &o.FullyCovered, &o.Invalid); err != nil {
		return nil, errkind.Wrap(errkind.Query, err, "failed reading requirement overview")
	}
	row = db.QueryRowContext(ctx, "SELECT TotalTests, PassedTests, SkippedTests FROM TestOverview")
	if err := row.Scan(&o.TotalTests, &o.PassedTests, &o.SkippedTests); err != nil {
		return nil, errkind.Wrap(errkind.Query, err, "failed reading test overview")
	}
	return &o, nil
}

// TraceDetail is one direct trace attached to a requirement.
type TraceDetail struct {
	Filepath string
	Line     int
}

// CoverageDetail is one test's direct coverage of a requirement, grouped
// by test run.
type CoverageDetail struct {
	TestRunName string
	TestRunDate string
	TestName    string
	Passed      bool
}

// VerifiedDetail is one manual-verification entry covering a requirement.
type VerifiedDetail struct {
	ReviewName string
	ReviewDate string
	Reviewer   string
	Comment    *string
}

// IndirectTraceDetail is a trace attached to some descendant of a
// requirement rather than to the requirement itself.
type IndirectTraceDetail struct {
	RequirementId string `json:"requirement"`
	Filepath      string `json:"filepath"`
	Line          int    `json:"line"`
}

// IndirectCoverageDetail is a test's coverage of some descendant of a
// requirement rather than of the requirement itself.
type IndirectCoverageDetail struct {
	RequirementId string `json:"requirement"`
	TestRunName   string `json:"test_run"`
	TestName      string `json:"test"`
}

// RequirementDetail is the full aggregate for a single requirement.
type RequirementDetail struct {
	Requirement      store.Requirement
	ParentId         *string
	ChildrenIds      []string
	LeafCount        int
	TracedLeaves     int
	DirectTraces     []TraceDetail
	Coverage         []CoverageDetail
	IndirectTraces   []IndirectTraceDetail
	IndirectCoverage []IndirectCoverageDetail
	Verified         []VerifiedDetail
	Valid            bool
	FullyTraced      bool
	FullyCovered     bool
}

// Requirement aggregates everything known about a single requirement:
// its own row, hierarchy neighbors, direct traces, direct coverage,
// manual verifications, and its rollup flags.
func Requirement(ctx context.Context, db *store.DB, id string) (*RequirementDetail, error) {
	var d RequirementDetail

	row := db.QueryRowContext(ctx,
		"SELECT Id, Title, OriginLink, Info, Manual, Deprecated, Generation FROM Requirements WHERE Id = ?", id)
	if err := row.Scan(&d.Requirement.Id, &d.Requirement.Title, &d.Requirement.OriginLink,
		&d.Requirement.Info, &d.Requirement.Manual, &d.Requirement.Deprecated, &d.Requirement.Generation); err != nil {
		if err == sql.ErrNoRows {
			return nil, errkind.New(errkind.Query, "no requirement with id %q", id)
		}
		return nil, errkind.Wrap(errkind.Query, err, "failed reading requirement %q", id)
	}

	var parent sql.NullString
	row = db.QueryRowContext(ctx, "SELECT ParentId FROM RequirementHierarchies WHERE ChildId = ?", id)
	if err := row.Scan(&parent); err == nil && parent.Valid {
		d.ParentId = &parent.String
	} else if err != nil && err != sql.ErrNoRows {
		return nil, errkind.Wrap(errkind.Query, err, "failed reading parent of %q", id)
	}

	rows, err := db.QueryContext(ctx, "SELECT ChildId FROM RequirementHierarchies WHERE ParentId = ? ORDER BY ChildId", id)
	if err != nil {
		return nil, errkind.Wrap(errkind.Query, err, "failed reading children of %q", id)
	}
	for rows.Next() {
		var child string
		if err := rows.Scan(&child); err != nil {
			rows.Close()
			return nil, errkind.Wrap(errkind.Query, err, "failed scanning child of %q", id)
		}
		d.ChildrenIds = append(d.ChildrenIds, child)
	}
	rows.Close()
	sort.Strings(d.ChildrenIds)

	row = db.QueryRowContext(ctx, "SELECT LeafCount, TracedLeafCount FROM LeafChildOverview WHERE Id = ?", id)
	if err := row.Scan(&d.LeafCount, &d.TracedLeaves); err != nil && err != sql.ErrNoRows {
		return nil, errkind.Wrap(errkind.Query, err, "failed reading leaf overview for %q", id)
	}

	rows, err = db.QueryContext(ctx, "SELECT Filepath, Line FROM Traces WHERE RequirementId = ? ORDER BY Filepath, Line", id)
	if err != nil {
		return nil, errkind.Wrap(errkind.Query, err, "failed reading traces for %q", id)
	}
	for rows.Next() {
		var t TraceDetail
		if err := rows.Scan(&t.Filepath, &t.Line); err != nil {
			rows.Close()
			return nil, errkind.Wrap(errkind.Query, err, "failed scanning trace for %q", id)
		}
		d.DirectTraces = append(d.DirectTraces, t)
	}
	rows.Close()

	rows, err = db.QueryContext(ctx, `
		SELECT tc.TestRunName, tc.TestRunDate, tc.TestName, tst.Passed
		FROM TestCoverage tc
		JOIN Tests tst ON tst.TestRunName = tc.TestRunName AND tst.TestRunDate = tc.TestRunDate AND tst.Name = tc.TestName
		WHERE tc.RequirementId = ?
		ORDER BY tc.TestRunName, tc.TestRunDate, tc.TestName`, id)
	if err != nil {
		return nil, errkind.Wrap(errkind.Query, err, "failed reading coverage for %q", id)
	}
	for rows.Next() {
		var c CoverageDetail
		if err := rows.Scan(&c.TestRunName, &c.TestRunDate, &c.TestName, &c.Passed); err != nil {
			rows.Close()
			return nil, errkind.Wrap(errkind.Query, err, "failed scanning coverage for %q", id)
		}
		d.Coverage = append(d.Coverage, c)
	}
	rows.Close()

	indirectTraces, err := indirectTraceTree(ctx, db, id)
	if err != nil {
		return nil, err
	}
	d.IndirectTraces = indirectTraces

	indirectCoverage, err := indirectTestCoverageTree(ctx, db, id)
	if err != nil {
		return nil, err
	}
	d.IndirectCoverage = indirectCoverage

	rows, err = db.QueryContext(ctx, `
		SELECT mv.ReviewName, mv.ReviewDate, r.Reviewer, mv.Comment
		FROM ManuallyVerified mv
		JOIN Reviews r ON r.Name = mv.ReviewName AND r.Date = mv.ReviewDate
		WHERE mv.RequirementId = ?
		ORDER BY mv.ReviewName, mv.ReviewDate`, id)
	if err != nil {
		return nil, errkind.Wrap(errkind.Query, err, "failed reading verifications for %q", id)
	}
	for rows.Next() {
		var v VerifiedDetail
		if err := rows.Scan(&v.ReviewName, &v.ReviewDate, &v.Reviewer, &v.Comment); err != nil {
			rows.Close()
			return nil, errkind.Wrap(errkind.Query, err, "failed scanning verification for %q", id)
		}
		d.Verified = append(d.Verified, v)
	}
	rows.Close()

	var invalidCount int
	row = db.QueryRowContext(ctx, "SELECT COUNT(*) FROM InvalidRequirements WHERE Id = ?", id)
	if err := row.Scan(&invalidCount); err != nil {
		return nil, errkind.Wrap(errkind.Query, err, "failed reading validity of %q", id)
	}
	d.Valid = invalidCount == 0

	var count int
	row = db.QueryRowContext(ctx, "SELECT COUNT(*) FROM FullyTracedRequirements WHERE Id = ?", id)
	if err := row.Scan(&count); err != nil {
		return nil, errkind.Wrap(errkind.Query, err, "failed reading fully-traced status of %q", id)
	}
	d.FullyTraced = count > 0

	row = db.QueryRowContext(ctx, "SELECT COUNT(*) FROM FullyCoveredRequirements WHERE Id = ?", id)
	if err := row.Scan(&count); err != nil {
		return nil, errkind.Wrap(errkind.Query, err, "failed reading fully-covered status of %q", id)
	}
	d.FullyCovered = count > 0

	return &d, nil
}

// indirectTraceTree reads IndirectTraceTree's JSON aggregate for id and
// filters out the self-pairs RequirementDescendants contributes (id's own
// direct traces, already surfaced via DirectTraces), leaving only traces
// that reach id through some descendant.
func indirectTraceTree(ctx context.Context, db *store.DB, id string) ([]IndirectTraceDetail, error) {
	var raw sql.NullString
	row := db.QueryRowContext(ctx, "SELECT Traces FROM IndirectTraceTree WHERE Id = ?", id)
	if err := row.Scan(&raw); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, errkind.Wrap(errkind.Query, err, "failed reading indirect traces for %q", id)
	}
	if !raw.Valid {
		return nil, nil
	}
	var all []IndirectTraceDetail
	if err := json.Unmarshal([]byte(raw.String), &all); err != nil {
		return nil, errkind.Wrap(errkind.Query, err, "failed decoding indirect traces for %q", id)
	}
	var indirect []IndirectTraceDetail
	for _, t := range all {
		if t.RequirementId == id {
			continue
		}
		indirect = append(indirect, t)
	}
	sort.Slice(indirect, func(i, j int) bool {
		if indirect[i].RequirementId != indirect[j].RequirementId {
			return indirect[i].RequirementId < indirect[j].RequirementId
		}
		if indirect[i].Filepath != indirect[j].Filepath {
			return indirect[i].Filepath < indirect[j].Filepath
		}
		return indirect[i].Line < indirect[j].Line
	})
	return indirect, nil
}

// indirectTestCoverageTree reads IndirectTestCoverageTree's JSON aggregate
// for id, filtering out the self-pairs the same way indirectTraceTree does.
func indirectTestCoverageTree(ctx context.Context, db *store.DB, id string) ([]IndirectCoverageDetail, error) {
	var raw sql.NullString
	row := db.QueryRowContext(ctx, "SELECT Coverage FROM IndirectTestCoverageTree WHERE Id = ?", id)
	if err := row.Scan(&raw); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, errkind.Wrap(errkind.Query, err, "failed reading indirect coverage for %q", id)
	}
	if !raw.Valid {
		return nil, nil
	}
	var all []IndirectCoverageDetail
	if err := json.Unmarshal([]byte(raw.String), &all); err != nil {
		return nil, errkind.Wrap(errkind.Query, err, "failed decoding indirect coverage for %q", id)
	}
	var indirect []IndirectCoverageDetail
	for _, c := range all {
		if c.RequirementId == id {
			continue
		}
		indirect = append(indirect, c)
	}
	sort.Slice(indirect, func(i, j int) bool {
		if indirect[i].RequirementId != indirect[j].RequirementId {
			return indirect[i].RequirementId < indirect[j].RequirementId
		}
		if indirect[i].TestRunName != indirect[j].TestRunName {
			return indirect[i].TestRunName < indirect[j].TestRunName
		}
		return indirect[i].TestName < indirect[j].TestName
	})
	return indirect, nil
}

// Validate walks the invalid/untraced/uncovered derived views and reports
// one diagnostics.Issue per finding: first the invalid, then the untraced,
// then the uncovered requirements, each group ordered by id so output is
// stable across runs. A requirement can appear in more than one group.
func Validate(ctx context.Context, db *store.DB) ([]diagnostics.Issue, error) {
	var issues []diagnostics.Issue

	rows, err := db.QueryContext(ctx, "SELECT Id FROM InvalidRequirements ORDER BY Id")
	if err != nil {
		return nil, errkind.Wrap(errkind.Query, err, "failed reading invalid requirements")
	}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, errkind.Wrap(errkind.Query, err, "failed scanning invalid requirement")
		}
		issues = append(issues, diagnostics.Issue{
			RequirementId: id, Description: fmt.Sprintf("requirement %q is deprecated but still traced from code", id),
			Severity: diagnostics.IssueSeverityMajor, Type: diagnostics.IssueTypeDeprecatedButTraced,
		})
	}
	rows.Close()

	rows, err = db.QueryContext(ctx, `
		SELECT Id FROM LeafRequirements
		WHERE Deprecated = 0 AND Id NOT IN (SELECT Id FROM FullyTracedRequirements)
		ORDER BY Id`)
	if err != nil {
		return nil, errkind.Wrap(errkind.Query, err, "failed reading untraced requirements")
	}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, errkind.Wrap(errkind.Query, err, "failed scanning untraced requirement")
		}
		issues = append(issues, diagnostics.Issue{
			RequirementId: id, Description: fmt.Sprintf("requirement %q has no trace reaching it", id),
			Severity: diagnostics.IssueSeverityMajor, Type: diagnostics.IssueTypeUntracedRequirement,
		})
	}
	rows.Close()

	rows, err = db.QueryContext(ctx, `
		SELECT Id FROM LeafRequirements
		WHERE Deprecated = 0 AND Manual = 0 AND Id NOT IN (SELECT Id FROM FullyCoveredRequirements)
		ORDER BY Id`)
	if err != nil {
		return nil, errkind.Wrap(errkind.Query, err, "failed reading uncovered requirements")
	}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, errkind.Wrap(errkind.Query, err, "failed scanning uncovered requirement")
		}
		issues = append(issues, diagnostics.Issue{
			RequirementId: id, Description: fmt.Sprintf("requirement %q is not passed by any test", id),
			Severity: diagnostics.IssueSeverityMinor, Type: diagnostics.IssueTypeUncoveredRequirement,
		})
	}
	rows.Close()

	return issues, nil
}

// TestDetail is a single test's outcome within a TestRunDetail.
type TestDetail struct {
	Name              string
	Filepath          string
	Line              int
	Passed            bool
	Skipped           bool
	SkipReason        *string
	CoveredRequirements []string
}

// TestRunDetail is the full aggregate for a single test run.
type TestRunDetail struct {
	Name      string
	Date      string
	NrOfTests int
	Meta      *string
	Logs      *string
	Tests     []TestDetail
}

// TestRun aggregates a test run's tests, their pass/skip state, and the
// requirements each test covers.
func TestRun(ctx context.Context, db *store.DB, name, date string) (*TestRunDetail, error) {
	var d TestRunDetail
	d.Name, d.Date = name, date

	row := db.QueryRowContext(ctx, "SELECT NrOfTests, Meta, Logs FROM TestRuns WHERE Name = ? AND Date = ?", name, date)
	if err := row.Scan(&d.NrOfTests, &d.Meta, &d.Logs); err != nil {
		if err == sql.ErrNoRows {
			return nil, errkind.New(errkind.Query, "no test run %q/%q", name, date)
		}
		return nil, errkind.Wrap(errkind.Query, err, "failed reading test run %q/%q", name, date)
	}

	rows, err := db.QueryContext(ctx, `
		SELECT t.Name, t.Filepath, t.Line, t.Passed, s.Reason
		FROM Tests t
		LEFT JOIN SkippedTests s ON s.TestRunName = t.TestRunName AND s.TestRunDate = t.TestRunDate AND s.Name = t.Name
		WHERE t.TestRunName = ? AND t.TestRunDate = ?
		ORDER BY t.Name`, name, date)
	if err != nil {
		return nil, errkind.Wrap(errkind.Query, err, "failed reading tests for %q/%q", name, date)
	}
	defer rows.Close()

	for rows.Next() {
		var t TestDetail
		var reason sql.NullString
		if err := rows.Scan(&t.Name, &t.Filepath, &t.Line, &t.Passed, &reason); err != nil {
			return nil, errkind.Wrap(errkind.Query, err, "failed scanning test for %q/%q", name, date)
		}
		if reason.Valid {
			t.Skipped = true
			r := reason.String
			t.SkipReason = &r
		}

		reqRows, err := db.QueryContext(ctx,
			"SELECT DISTINCT RequirementId FROM TestCoverage WHERE TestRunName = ? AND TestRunDate = ? AND TestName = ? ORDER BY RequirementId",
			name, date, t.Name)
		if err != nil {
			return nil, errkind.Wrap(errkind.Query, err, "failed reading covered requirements for test %q", t.Name)
		}
		for reqRows.Next() {
			var reqId string
			if err := reqRows.Scan(&reqId); err != nil {
				reqRows.Close()
				return nil, errkind.Wrap(errkind.Query, err, "failed scanning covered requirement for test %q", t.Name)
			}
			t.CoveredRequirements = append(t.CoveredRequirements, reqId)
		}
		reqRows.Close()

		d.Tests = append(d.Tests, t)
	}

	return &d, nil
}
