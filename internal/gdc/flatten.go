package gdc

import (
	"fmt"
	"sort"
	"strconv"
)

// DefaultFileFields is the field set requested from the files endpoint,
// including nested case and sample info for flat tables.
var DefaultFileFields = []string{
	"id",
	"file_id",
	"file_name",
	"md5sum",
	"state",
	"file_size",
	"data_category",
	"data_type",
	"data_format",
	"experimental_strategy",
	"cases.case_id",
	"cases.submitter_id",
	"cases.project.project_id",
	"cases.project.name",
	"cases.disease_type",
	"cases.primary_site",
	"cases.diagnoses.age_at_diagnosis",
	"cases.diagnoses.vital_status",
	"cases.diagnoses.days_to_death",
	"cases.diagnoses.days_to_last_follow_up",
	"cases.demographic.gender",
	"cases.demographic.race",
	"cases.demographic.ethnicity",
	"cases.samples.sample_id",
	"cases.samples.submitter_id",
	"cases.samples.sample_type",
}

// DefaultCaseFields is the minimal cases-endpoint field set.
var DefaultCaseFields = []string{
	"case_id",
	"submitter_id",
	"project.project_id",
	"project.name",
	"disease_type",
	"primary_site",
	"demographic.gender",
	"demographic.race",
	"demographic.ethnicity",
	"demographic.year_of_birth",
}

// ClinicalFields extends the case fields with survival, treatment, and
// exposure signals. Best-effort: the API may reject some of these, in
// which case PagedQuery retries without explicit fields.
var ClinicalFields = []string{
	"demographic.vital_status",
	"demographic.days_to_death",
	"diagnoses.primary_diagnosis",
	"diagnoses.morphology",
	"diagnoses.tumor_stage",
	"diagnoses.tumor_grade",
	"diagnoses.vital_status",
	"diagnoses.days_to_death",
	"diagnoses.days_to_last_follow_up",
	"treatments.treatment_type",
	"treatments.therapeutic_agents",
	"treatments.measure_of_response",
	"treatments.days_to_treatment",
	"follow_ups.days_to_last_follow_up",
	"follow_ups.vital_status",
	"follow_ups.progression_or_recurrence",
	"follow_ups.days_to_recurrence",
	"exposures.cigarettes_per_day",
	"exposures.alcohol_history",
}

// DiagnosisFields is the focused diagnosis/subtyping field set.
var DiagnosisFields = []string{
	"diagnoses.primary_diagnosis",
	"diagnoses.morphology",
	"diagnoses.tumor_stage",
	"diagnoses.tumor_grade",
}

// MolecularCategories select molecular files on the files endpoint.
var MolecularCategories = []string{
	"Simple Nucleotide Variation",
	"Transcriptome Profiling",
	"Copy Number Variation",
	"DNA Methylation",
	"Somatic Structural Variation",
	"Proteome Profiling",
	"Sequencing Reads",
}

// ReportDataTypes select free-text report files.
var ReportDataTypes = []string{
	"Pathology Report",
	"Clinical Supplement",
}

// FlattenHit converts one nested JSON hit into flat dot-separated keys.
// Nested objects contribute "parent.child" keys; lists contribute
// indexed keys ("cases.0.case_id"). Scalar values are rendered as
// strings; nulls become empty strings.
func FlattenHit(hit map[string]interface{}) map[string]string {
	out := make(map[string]string)
	flattenInto(out, "", hit)
	return out
}

func flattenInto(out map[string]string, prefix string, v interface{}) {
	switch vv := v.(type) {
	case map[string]interface{}:
		for k, child := range vv {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			flattenInto(out, key, child)
		}
	case []interface{}:
		for i, child := range vv {
			key := strconv.Itoa(i)
			if prefix != "" {
				key = prefix + "." + key
			}
			flattenInto(out, key, child)
		}
	case nil:
		if prefix != "" {
			out[prefix] = ""
		}
	case string:
		out[prefix] = vv
	case float64:
		// JSON numbers arrive as float64; keep integers free of a
		// trailing ".0" so identifiers and byte sizes stay joinable.
		if vv == float64(int64(vv)) {
			out[prefix] = strconv.FormatInt(int64(vv), 10)
		} else {
			out[prefix] = strconv.FormatFloat(vv, 'f', -1, 64)
		}
	case bool:
		out[prefix] = strconv.FormatBool(vv)
	default:
		out[prefix] = fmt.Sprintf("%v", vv)
	}
}

// FlattenHits flattens a hit list and returns the rows along with the
// union of their columns in sorted order.
func FlattenHits(hits []map[string]interface{}) ([]map[string]string, []string) {
	rows := make([]map[string]string, 0, len(hits))
	seen := make(map[string]bool)
	for _, h := range hits {
		row := FlattenHit(h)
		for k := range row {
			seen[k] = true
		}
		rows = append(rows, row)
	}
	cols := make([]string, 0, len(seen))
	for k := range seen {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return rows, cols
}
