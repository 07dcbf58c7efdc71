// Package grouping aggregates per-file metadata rows to per-case rows
// and classifies each case by tissue composition.
package grouping

import (
	"github.com/nishad/gdcharvest/internal/gdc"
	"github.com/nishad/gdcharvest/internal/table"
)

// Sample types counting as tumor and normal tissue.
var (
	tumorSampleTypes = map[string]bool{
		"Primary Tumor":   true,
		"Metastatic":      true,
		"Recurrent Tumor": true,
	}
	normalSampleTypes = map[string]bool{
		"Solid Tissue Normal":  true,
		"Blood Derived Normal": true,
	}
)

// Group labels. Every case maps to exactly one.
const (
	GroupPaired     = "paired"
	GroupTumorOnly  = "tumor_only"
	GroupNormalOnly = "normal_only"
	GroupOther      = "other"
)

type caseKey struct {
	caseID      string
	submitterID string
	projectID   string
}

type caseAgg struct {
	hasTumor  bool
	hasNormal bool
}

// BuildGroups returns one row per case with columns case_id,
// submitter_id, project_id, has_tumor, has_normal, group. has_tumor and
// has_normal are the logical OR of the sample types across the case's
// file rows. When the input carries no case-linkage columns the result
// is an empty table, not an error.
func BuildGroups(files *table.Table) *table.Table {
	out := table.New("case_id", "submitter_id", "project_id", "has_tumor", "has_normal", "group")
	if files.Empty() || !files.HasColumn(gdc.ColCaseID) {
		return out
	}

	agg := make(map[caseKey]*caseAgg)
	var order []caseKey
	for i := range files.Rows {
		key := caseKey{
			caseID:      files.Get(i, gdc.ColCaseID),
			submitterID: files.Get(i, gdc.ColCaseSubmitterID),
			projectID:   files.Get(i, gdc.ColProjectID),
		}
		if key.caseID == "" && key.submitterID == "" {
			continue
		}
		a, ok := agg[key]
		if !ok {
			a = &caseAgg{}
			agg[key] = a
			order = append(order, key)
		}
		st := files.Get(i, gdc.ColSampleType)
		if tumorSampleTypes[st] {
			a.hasTumor = true
		}
		if normalSampleTypes[st] {
			a.hasNormal = true
		}
	}

	for _, key := range order {
		a := agg[key]
		out.Append(map[string]string{
			"case_id":      key.caseID,
			"submitter_id": key.submitterID,
			"project_id":   key.projectID,
			"has_tumor":    boolString(a.hasTumor),
			"has_normal":   boolString(a.hasNormal),
			"group":        label(a.hasTumor, a.hasNormal),
		})
	}
	return out
}

// label is total and mutually exclusive over (hasTumor, hasNormal).
func label(hasTumor, hasNormal bool) string {
	switch {
	case hasTumor && hasNormal:
		return GroupPaired
	case hasTumor:
		return GroupTumorOnly
	case hasNormal:
		return GroupNormalOnly
	default:
		return GroupOther
	}
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
