package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daedaleanai/mantra/store"
)

func seedDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	_, err = db.AddRequirements(ctx, []store.Requirement{
		{Id: "REQ-1", Title: "Parent", OriginLink: "doc.md#1"},
		{Id: "REQ-1.1", Title: "Child", OriginLink: "doc.md#1-1"},
	})
	require.NoError(t, err)

	_, err = db.AddTraces(ctx, "main.go", []store.TraceSite{{RequirementIds: []string{"REQ-1.1"}, Line: 10}}, 1)
	require.NoError(t, err)

	require.NoError(t, db.AddTestRun(ctx, "unit", "2026-01-01", 1, nil, nil))
	require.NoError(t, db.AddTest(ctx, "unit", "2026-01-01", "TestFoo", "main_test.go", 5, store.TestPassed, nil))
	_, err = db.AddCoverage(ctx, []store.CoverageLink{
		{TestRunName: "unit", TestRunDate: "2026-01-01", TestName: "TestFoo", RequirementId: "REQ-1.1", TraceFilepath: "main.go", TraceLine: 10},
	})
	require.NoError(t, err)

	return db
}

func TestFetchOverview(t *testing.T) {
	db := seedDB(t)
	overview, err := Fetch(context.Background(), db)
	require.NoError(t, err)
	assert.Equal(t, 2, overview.TotalRequirements)
	assert.Equal(t, 1, overview.TotalTests)
	assert.Equal(t, 1, overview.PassedTests)
}

func TestRequirementDetail(t *testing.T) {
	db := seedDB(t)
	detail, err := Requirement(context.Background(), db, "REQ-1")
	require.NoError(t, err)
	assert.Nil(t, detail.ParentId)
	assert.Equal(t, []string{"REQ-1.1"}, detail.ChildrenIds)
	assert.True(t, detail.FullyTraced)
	assert.True(t, detail.FullyCovered)
	assert.Empty(t, detail.DirectTraces)
	assert.Empty(t, detail.Coverage)
	require.Len(t, detail.IndirectTraces, 1)
	assert.Equal(t, "REQ-1.1", detail.IndirectTraces[0].RequirementId)
	assert.Equal(t, "main.go", detail.IndirectTraces[0].Filepath)
	assert.Equal(t, 10, detail.IndirectTraces[0].Line)
	require.Len(t, detail.IndirectCoverage, 1)
	assert.Equal(t, "REQ-1.1", detail.IndirectCoverage[0].RequirementId)
	assert.Equal(t, "unit", detail.IndirectCoverage[0].TestRunName)
	assert.Equal(t, "TestFoo", detail.IndirectCoverage[0].TestName)

	child, err := Requirement(context.Background(), db, "REQ-1.1")
	require.NoError(t, err)
	require.NotNil(t, child.ParentId)
	assert.Equal(t, "REQ-1", *child.ParentId)
	require.Len(t, child.DirectTraces, 1)
	require.Len(t, child.Coverage, 1)
	assert.Equal(t, "unit", child.Coverage[0].TestRunName)
	assert.Empty(t, child.IndirectTraces)
	assert.Empty(t, child.IndirectCoverage)
}

func TestValidateFlagsDeprecatedButTracedAndUncovered(t *testing.T) {
	db := seedDB(t)
	ctx := context.Background()

	_, err := db.AddRequirements(ctx, []store.Requirement{
		{Id: "REQ-2", Title: "Untraced leaf", OriginLink: "doc.md#2"},
	})
	require.NoError(t, err)

	_, err = db.AddRequirements(ctx, []store.Requirement{
		{Id: "REQ-1.1", Title: "Child", OriginLink: "doc.md#1-1", Deprecated: true},
	})
	require.NoError(t, err)

	issues, err := Validate(ctx, db)
	require.NoError(t, err)
	require.NotEmpty(t, issues)

	var sawDeprecated, sawUntraced bool
	for _, i := range issues {
		if i.RequirementId == "REQ-1.1" {
			sawDeprecated = true
		}
		if i.RequirementId == "REQ-2" {
			sawUntraced = true
		}
	}
	assert.True(t, sawDeprecated)
	assert.True(t, sawUntraced)
}

func TestTestRunDetail(t *testing.T) {
	db := seedDB(t)
	detail, err := TestRun(context.Background(), db, "unit", "2026-01-01")
	require.NoError(t, err)
	require.Len(t, detail.Tests, 1)
	assert.True(t, detail.Tests[0].Passed)
	assert.Equal(t, []string{"REQ-1.1"}, detail.Tests[0].CoveredRequirements)
}
