// Package annotations derives clinical, diagnosis, molecular, and
// report tables from case-level GDC metadata, along with the survival
// and classification labels built from them.
package annotations

import (
	"context"

	"github.com/nishad/gdcharvest/internal/gdc"
	"github.com/nishad/gdcharvest/internal/table"
)

// Client is the metadata surface the builders need. *gdc.Client
// satisfies it; tests inject fakes.
type Client interface {
	PagedQuery(ctx context.Context, endpoint string, filters gdc.Filter, fields []string, size int) ([]map[string]interface{}, error)
	CasesQuery(ctx context.Context, filters gdc.Filter, fields []string) ([]map[string]interface{}, error)
}

// dedup merges field lists preserving first-seen order.
func dedup(lists ...[]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, list := range lists {
		for _, f := range list {
			if !seen[f] {
				seen[f] = true
				out = append(out, f)
			}
		}
	}
	return out
}

// BuildClinical fetches the broad clinical/survival/treatment field
// union for the given cases. Best-effort: rejected fields are handled
// inside the client, and whatever shape comes back is flattened.
func BuildClinical(ctx context.Context, c Client, caseIDs []string) (*table.Table, error) {
	filters := gdc.IN("cases.case_id", caseIDs)
	fields := dedup(gdc.DefaultCaseFields, gdc.ClinicalFields)
	hits, err := c.CasesQuery(ctx, filters, fields)
	if err != nil {
		return nil, err
	}
	return gdc.HitsToTable(hits), nil
}

// BuildDiagnosis fetches the narrower diagnosis/subtyping fields.
func BuildDiagnosis(ctx context.Context, c Client, caseIDs []string) (*table.Table, error) {
	filters := gdc.IN("cases.case_id", caseIDs)
	fields := dedup(gdc.DefaultCaseFields, gdc.DiagnosisFields)
	hits, err := c.CasesQuery(ctx, filters, fields)
	if err != nil {
		return nil, err
	}
	return gdc.HitsToTable(hits), nil
}

// BuildMolecularIndex lists available molecular files (variants,
// expression, CNV, methylation, ...) restricted to the project and the
// case-id set under study.
func BuildMolecularIndex(ctx context.Context, c Client, projectID string, caseIDs []string) (*table.Table, error) {
	filters := gdc.And(
		gdc.EQ("cases.project.project_id", projectID),
		gdc.IN("data_category", gdc.MolecularCategories),
		gdc.IN("cases.case_id", caseIDs),
	)
	fields := []string{
		"id",
		"file_name",
		"data_category",
		"data_type",
		"data_format",
		"experimental_strategy",
		"cases.case_id",
		"cases.submitter_id",
		"cases.samples.sample_type",
		"cases.samples.sample_id",
	}
	hits, err := c.PagedQuery(ctx, "files", filters, fields, gdc.DefaultPageSize)
	if err != nil {
		return nil, err
	}
	return gdc.HitsToTable(hits), nil
}

// BuildReportsIndex lists free-text clinical and pathology report files
// for the case set.
func BuildReportsIndex(ctx context.Context, c Client, projectID string, caseIDs []string) (*table.Table, error) {
	filters := gdc.And(
		gdc.EQ("cases.project.project_id", projectID),
		gdc.IN("data_category", []string{"Clinical"}),
		gdc.IN("data_type", gdc.ReportDataTypes),
		gdc.IN("cases.case_id", caseIDs),
	)
	fields := []string{
		"id",
		"file_name",
		"data_category",
		"data_type",
		"data_format",
		"cases.case_id",
		"cases.submitter_id",
	}
	hits, err := c.PagedQuery(ctx, "files", filters, fields, gdc.DefaultPageSize)
	if err != nil {
		return nil, err
	}
	return gdc.HitsToTable(hits), nil
}
