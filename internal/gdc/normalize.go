package gdc

import (
	"github.com/nishad/gdcharvest/internal/table"
)

// Canonical case/sample linkage columns produced by Normalize.
const (
	ColCaseID          = "case_id"
	ColCaseSubmitterID = "case_submitter_id"
	ColProjectID       = "project_id"
	ColSampleType      = "sample_type"
	ColSampleID        = "sample_id"
	ColPatient         = "patient"
)

// linkage column candidates, in preference order. The API returns case
// and sample linkage in several shapes depending on endpoint and query:
// a single nested object ("cases.case_id"), a list of nested objects
// flattened with indices ("cases.0.case_id", "cases.0.samples.0.sample_type"),
// or already-canonical scalar columns. When multiple entries exist per
// file row the first one is selected.
var linkageCandidates = map[string][]string{
	ColCaseID:          {ColCaseID, "cases.case_id", "cases.0.case_id"},
	ColCaseSubmitterID: {ColCaseSubmitterID, "submitter_id", "cases.submitter_id", "cases.0.submitter_id"},
	ColProjectID:       {ColProjectID, "cases.project.project_id", "cases.0.project.project_id"},
	ColSampleType:      {ColSampleType, "cases.samples.sample_type", "cases.0.samples.sample_type", "cases.samples.0.sample_type", "cases.0.samples.0.sample_type"},
	ColSampleID:        {ColSampleID, "cases.samples.sample_id", "cases.0.samples.sample_id", "cases.samples.0.sample_id", "cases.0.samples.0.sample_id"},
}

// canonicalOrder fixes the column order Normalize appends in.
var canonicalOrder = []string{ColCaseID, ColCaseSubmitterID, ColProjectID, ColSampleType, ColSampleID}

// Normalize reconciles the inconsistent case/sample nesting shapes in a
// raw flattened table into canonical scalar columns, plus a "patient"
// alias preferring the case submitter id over the opaque case id.
// Running Normalize on already-normalized data is a no-op for the
// canonical columns.
func Normalize(t *table.Table) *table.Table {
	for _, canonical := range canonicalOrder {
		candidates := linkageCandidates[canonical]
		t.AddColumn(canonical)
		for i := range t.Rows {
			if t.Get(i, canonical) != "" {
				continue
			}
			for _, cand := range candidates {
				if v := t.Get(i, cand); v != "" {
					t.Set(i, canonical, v)
					break
				}
			}
		}
	}

	t.AddColumn(ColPatient)
	for i := range t.Rows {
		switch {
		case t.Get(i, ColCaseSubmitterID) != "":
			t.Set(i, ColPatient, t.Get(i, ColCaseSubmitterID))
		case t.Get(i, ColCaseID) != "":
			t.Set(i, ColPatient, t.Get(i, ColCaseID))
		}
	}
	return t
}

// HitsToTable flattens raw hits into a table and normalizes linkage
// columns in one step.
func HitsToTable(hits []map[string]interface{}) *table.Table {
	rows, cols := FlattenHits(hits)
	t := table.New(cols...)
	for _, r := range rows {
		t.Rows = append(t.Rows, r)
	}
	return Normalize(t)
}
