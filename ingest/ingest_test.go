package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daedaleanai/mantra/config"
	"github.com/daedaleanai/mantra/store"
)

func openTestDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestCollectRequirementsFromWiki(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reqs.md")
	require.NoError(t, os.WriteFile(path, []byte("# `REQ-1`: First requirement\n"), 0o644))

	db := openTestDB(t)
	ctx := context.Background()

	changes, err := CollectRequirements(ctx, db, []config.RequirementsSource{
		{WikiSource: config.WikiSource{Root: path, Origin: "wiki"}},
	})
	require.NoError(t, err)
	require.Len(t, changes.Inserted, 1)
	assert.Equal(t, "REQ-1", changes.Inserted[0].Id)
}

func TestCollectRequirementsFromSchemaFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reqs.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"requirements":[{"id":"REQ-2","title":"Second","link":"doc.md"}]}`), 0o644))

	db := openTestDB(t)
	ctx := context.Background()

	changes, err := CollectRequirements(ctx, db, []config.RequirementsSource{
		{SchemaFilesSource: config.SchemaFilesSource{Files: []string{path}}},
	})
	require.NoError(t, err)
	require.Len(t, changes.Inserted, 1)
	assert.Equal(t, "REQ-2", changes.Inserted[0].Id)
}

func TestCollectTracesFromSource(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main\n// [req(REQ-1)]\nfunc main() {}\n"), 0o644))

	db := openTestDB(t)
	ctx := context.Background()
	_, err := db.AddRequirements(ctx, []store.Requirement{{Id: "REQ-1", Title: "First", OriginLink: "doc.md"}})
	require.NoError(t, err)

	changes, err := CollectTraces(ctx, db, []config.TraceSource{{Root: dir}})
	require.NoError(t, err)
	assert.Len(t, changes.Inserted, 1)
}

func TestCollectCoverageEndToEnd(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	_, err := db.AddRequirements(ctx, []store.Requirement{{Id: "REQ-1", Title: "First", OriginLink: "doc.md"}})
	require.NoError(t, err)
	_, err = db.AddTraces(ctx, "main.go", []store.TraceSite{{RequirementIds: []string{"REQ-1"}, Line: 10}}, 1)
	require.NoError(t, err)

	dir := t.TempDir()
	path := filepath.Join(dir, "coverage.json")
	content := `{"test_runs":[{"name":"unit","date":"2026-01-01","nr_of_tests":1,"tests":[
		{"name":"TestFoo","filepath":"main_test.go","line":5,"state":"passed",
		 "covered_traces":[{"req_id":"REQ-1","filepath":"main.go","line":10}]}
	]}]}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	changes, err := CollectCoverage(ctx, db, []string{path})
	require.NoError(t, err)
	require.Len(t, changes.Inserted, 1)
	assert.Equal(t, "REQ-1", changes.Inserted[0].RequirementId)
}

func TestCollectReviews(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	_, err := db.AddRequirements(ctx, []store.Requirement{{Id: "REQ-1", Title: "First", OriginLink: "doc.md"}})
	require.NoError(t, err)

	dir := t.TempDir()
	path := filepath.Join(dir, "review.json")
	content := `{"name":"design-review","date":"2026-01-01 10:00","reviewer":"alice","requirements":[{"id":"REQ-1"}]}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	require.NoError(t, CollectReviews(ctx, db, []string{path}))

	var count int
	row := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM ManuallyVerified")
	require.NoError(t, row.Scan(&count))
	assert.Equal(t, 1, count)
}
