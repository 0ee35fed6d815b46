package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestAddRequirementsInsertsThenUpdates(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	changes, err := db.AddRequirements(ctx, []Requirement{
		{Id: "REQ-1", Title: "First", OriginLink: "doc.md#req-1"},
		{Id: "REQ-1.1", Title: "Child", OriginLink: "doc.md#req-1-1"},
	})
	require.NoError(t, err)
	assert.Len(t, changes.Inserted, 2)
	assert.Equal(t, int64(1), changes.NewGeneration)

	// Re-submitting the same content should count as unchanged, not updated.
	changes, err = db.AddRequirements(ctx, []Requirement{
		{Id: "REQ-1", Title: "First", OriginLink: "doc.md#req-1"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, changes.UnchangedCnt)
	assert.Empty(t, changes.Updated)

	// Changing the title bumps the generation and records old/new.
	changes, err = db.AddRequirements(ctx, []Requirement{
		{Id: "REQ-1", Title: "First (revised)", OriginLink: "doc.md#req-1"},
	})
	require.NoError(t, err)
	require.Len(t, changes.Updated, 1)
	assert.Equal(t, "First", changes.Updated[0].Old.Title)
	assert.Equal(t, "First (revised)", changes.Updated[0].New.Title)

	valid, count, err := db.IsValid(ctx)
	require.NoError(t, err)
	assert.True(t, valid)
	assert.Zero(t, count)
}

func TestAddTracesSkipsUnknownRequirement(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_, err := db.AddRequirements(ctx, []Requirement{{Id: "REQ-1", Title: "First", OriginLink: "doc.md"}})
	require.NoError(t, err)

	changes, err := db.AddTraces(ctx, "main.go", []TraceSite{
		{RequirementIds: []string{"REQ-1"}, Line: 10},
		{RequirementIds: []string{"REQ-MISSING"}, Line: 20},
	}, 1)
	require.NoError(t, err)
	require.Len(t, changes.Inserted, 1)
	assert.Equal(t, "REQ-1", changes.Inserted[0].RequirementId)
}

func TestIngestCoverageEndToEnd(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_, err := db.AddRequirements(ctx, []Requirement{{Id: "REQ-1", Title: "First", OriginLink: "doc.md"}})
	require.NoError(t, err)

	_, err = db.AddTraces(ctx, "main.go", []TraceSite{{RequirementIds: []string{"REQ-1"}, Line: 10}}, 1)
	require.NoError(t, err)

	require.NoError(t, db.AddTestRun(ctx, "unit", "2026-01-01", 1, nil, nil))
	require.NoError(t, db.AddTest(ctx, "unit", "2026-01-01", "TestFoo", "main_test.go", 5, TestPassed, nil))

	inserted, err := db.AddCoverage(ctx, []CoverageLink{
		{TestRunName: "unit", TestRunDate: "2026-01-01", TestName: "TestFoo", RequirementId: "REQ-1", TraceFilepath: "main.go", TraceLine: 10},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)

	var fullyCovered int
	row := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM FullyCoveredRequirements WHERE Id = 'REQ-1'")
	require.NoError(t, row.Scan(&fullyCovered))
	assert.Equal(t, 1, fullyCovered)
}

func TestAddReviewSkipsUnknownRequirement(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_, err := db.AddRequirements(ctx, []Requirement{{Id: "REQ-1", Title: "First", OriginLink: "doc.md"}})
	require.NoError(t, err)

	err = db.AddReview(ctx, Review{Name: "design-review", Date: "2026-01-01", Reviewer: "alice"},
		[]VerifiedRequirement{
			{RequirementId: "REQ-1"},
			{RequirementId: "REQ-MISSING"},
		})
	require.NoError(t, err)

	var verifiedCount int
	row := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM ManuallyVerified")
	require.NoError(t, row.Scan(&verifiedCount))
	assert.Equal(t, 1, verifiedCount)
}

func TestCleanRemovesOrphanedTestRunsAndReviews(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.AddTestRun(ctx, "unit", "2026-01-01", 0, nil, nil))
	require.NoError(t, db.AddReview(ctx, Review{Name: "r1", Date: "2026-01-01", Reviewer: "bob"}, nil))

	report, err := db.Clean(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.TestRunsRemoved)
	assert.Equal(t, 1, report.ReviewsRemoved)
}
