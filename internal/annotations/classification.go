package annotations

import (
	"strings"

	"github.com/nishad/gdcharvest/internal/table"
)

// DeriveCategories builds the per-case classification table: the
// primary diagnosis and every stage column are concatenated into a
// single semicolon-joined category string, skipping nulls.
func DeriveCategories(clinical *table.Table) *table.Table {
	stageCols := StageColumns(clinical)
	cols := []string{"case_id"}
	if clinical.HasColumn("case_submitter_id") {
		cols = append(cols, "case_submitter_id")
	}
	cols = append(cols, "category")
	out := table.New(cols...)
	for _, row := range clinical.Rows {
		parts := make([]string, 0, 1+len(stageCols))
		if pd := firstValue(row, primaryDiagnosisCandidates); pd != "" {
			parts = append(parts, pd)
		}
		for _, sc := range stageCols {
			if v := row[sc]; v != "" {
				parts = append(parts, v)
			}
		}
		nr := map[string]string{
			"case_id":  row["case_id"],
			"category": strings.Join(parts, ";"),
		}
		if clinical.HasColumn("case_submitter_id") {
			nr["case_submitter_id"] = row["case_submitter_id"]
		}
		out.Rows = append(out.Rows, nr)
	}
	return out
}

// DeriveStages builds the per-case stage label table from the first
// stage column of the clinical data: substages are collapsed to their
// Roman-numeral stage and cases with no recognizable stage are
// excluded. Returns nil when the clinical table carries no stage
// column at all.
func DeriveStages(clinical *table.Table) *table.Table {
	stageCols := StageColumns(clinical)
	if len(stageCols) == 0 {
		return nil
	}
	cols := []string{"case_id"}
	if clinical.HasColumn("case_submitter_id") {
		cols = append(cols, "case_submitter_id")
	}
	out := clinical.Select(append(cols, stageCols[0])...)
	out.Rename(stageCols[0], "stage")
	return GroupStages(out, "stage")
}

// romanPrefix returns the leading run of Roman-numeral characters in a
// token; substages carry suffixes like "IIA"/"IIB" after it.
func romanPrefix(token string) string {
	i := 0
	for i < len(token) {
		switch token[i] {
		case 'I', 'V', 'X':
			i++
		default:
			return token[:i]
		}
	}
	return token
}

// NormalizeStage collapses substages to their Roman-numeral stage:
// "Stage IIA" and "Stage IIB" both become "Stage II". The last
// whitespace-delimited token is stripped of trailing non-Roman
// characters; when no Roman-numeral prefix remains the stage is not
// recognizable and an empty string is returned.
func NormalizeStage(stage string) string {
	fields := strings.Fields(stage)
	if len(fields) == 0 {
		return ""
	}
	last := romanPrefix(fields[len(fields)-1])
	if last == "" {
		return ""
	}
	fields[len(fields)-1] = last
	return strings.Join(fields, " ")
}

// GroupStages returns a copy of the table with the stage column
// collapsed via NormalizeStage. Rows whose stage value contains no
// Roman-numeral token are excluded.
func GroupStages(t *table.Table, stageCol string) *table.Table {
	out := table.New(t.Columns...)
	for _, row := range t.Rows {
		normalized := NormalizeStage(row[stageCol])
		if normalized == "" {
			continue
		}
		nr := make(map[string]string, len(row))
		for k, v := range row {
			nr[k] = v
		}
		nr[stageCol] = normalized
		out.Rows = append(out.Rows, nr)
	}
	return out
}
