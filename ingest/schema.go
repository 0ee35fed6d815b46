// Package ingest orchestrates the collection of requirements, traces,
// coverage data and reviews from source and data files into the store,
// the Go counterpart of the original implementation's cmd::{requirements,
// trace, coverage, review} modules.
package ingest

import (
	"encoding/json"
	"fmt"
)

// RequirementSchema is the on-disk shape accepted by a [[requirements]]
// entry naming "files" rather than a wiki root, grounded on
// schema/src/requirements.rs's RequirementSchema.
type RequirementSchema struct {
	Requirements []RequirementRecord `json:"requirements"`
}

// RequirementRecord is one entry of a RequirementSchema file.
type RequirementRecord struct {
	Id         string          `json:"id"`
	Title      string          `json:"title"`
	Link       string          `json:"link"`
	Manual     bool            `json:"manual"`
	Deprecated bool            `json:"deprecated"`
	Info       json.RawMessage `json:"info"`
}

// TraceSchema is the on-disk shape accepted by a [[traces]] entry naming
// "files", grounded on schema/src/traces.rs's TraceSchema.
type TraceSchema struct {
	Traces []FileTraces `json:"traces"`
}

// FileTraces is the trace sites discovered in a single file.
type FileTraces struct {
	Filepath string            `json:"filepath"`
	Traces   []TraceEntryDatum `json:"traces"`
}

// TraceEntryDatum is one pre-collected trace site.
type TraceEntryDatum struct {
	RequirementIds []string `json:"requirement_ids"`
	Line           int      `json:"line"`
	SpanStart      *int     `json:"span_start"`
	SpanEnd        *int     `json:"span_end"`
}

// CoverageSchema is the on-disk shape of a [coverage] data file, grounded
// on schema/src/coverage.rs's CoverageSchema.
type CoverageSchema struct {
	TestRuns []TestRunRecord `json:"test_runs"`
}

// TestRunRecord is one test run entry of a CoverageSchema file.
type TestRunRecord struct {
	Name      string          `json:"name"`
	Date      string          `json:"date"`
	Meta      json.RawMessage `json:"meta"`
	Logs      string          `json:"logs"`
	NrOfTests int             `json:"nr_of_tests"`
	Tests     []TestRecord    `json:"tests"`
}

// TestRecord is one test within a TestRunRecord.
type TestRecord struct {
	Name          string              `json:"name"`
	Filepath      string              `json:"filepath"`
	Line          int                 `json:"line"`
	State         TestStateRecord     `json:"state"`
	CoveredTraces []CoveredTraceDatum `json:"covered_traces"`
	CoveredLines  []LineCoverageDatum `json:"covered_lines"`
}

// CoveredTraceDatum is a trace site already known to be exercised by a
// test, bypassing the interval-span lookup.
type CoveredTraceDatum struct {
	RequirementId string `json:"req_id"`
	Filepath      string `json:"filepath"`
	Line          int    `json:"line"`
}

// LineCoverageDatum is raw line-coverage data for a file, requiring a
// TraceSpans lookup to attribute it to requirements.
type LineCoverageDatum struct {
	Filepath string `json:"filepath"`
	Lines    []int  `json:"lines"`
}

// TestStateRecord mirrors the original's three-way TestState enum:
// Passed, Failed, or Skipped with an optional reason. JSON encodes it
// either as a bare string ("passed"/"failed") or as an object
// ({"skipped": {"reason": "..."}}) to keep both tagged-enum shapes valid.
type TestStateRecord struct {
	Kind   string
	Reason *string
}

func (s *TestStateRecord) UnmarshalJSON(data []byte) error {
	var tag string
	if err := json.Unmarshal(data, &tag); err == nil {
		s.Kind = tag
		return nil
	}

	var obj struct {
		Skipped struct {
			Reason *string `json:"reason"`
		} `json:"skipped"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("invalid test state: %w", err)
	}
	s.Kind = "skipped"
	s.Reason = obj.Skipped.Reason
	return nil
}

// ReviewSchema is the on-disk shape of a [review] data file, grounded on
// schema/src/reviews.rs's ReviewSchema.
type ReviewSchema struct {
	Name         string                    `json:"name"`
	Date         string                    `json:"date"`
	Reviewer     string                    `json:"reviewer"`
	Comment      *string                   `json:"comment"`
	Requirements []VerifiedRequirementDatum `json:"requirements"`
}

// VerifiedRequirementDatum is one requirement a review attests to.
type VerifiedRequirementDatum struct {
	Id      string  `json:"id"`
	Comment *string `json:"comment"`
}
