package annotations

import (
	"testing"

	"github.com/nishad/gdcharvest/internal/table"
	"github.com/nishad/gdcharvest/internal/testutil"
)

func TestNormalizeStage(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Stage IIA", "Stage II"},
		{"Stage IIB", "Stage II"},
		{"Stage I", "Stage I"},
		{"Stage IV", "Stage IV"},
		{"Stage IVA", "Stage IV"},
		{"Stage X", "Stage X"},
		{"Stage IA1", "Stage I"},
		{"Stage 2", ""},        // no Roman token
		{"Not Reported", ""},   // trailing token has no Roman prefix
		{"", ""},               // empty input
		{"IIIC", "III"},        // bare substage token
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			testutil.AssertEqual(t, NormalizeStage(tt.in), tt.want, "normalized stage")
		})
	}
}

func TestGroupStages(t *testing.T) {
	in := table.New("case_id", "ajcc_pathologic_stage")
	in.Append(map[string]string{"case_id": "c1", "ajcc_pathologic_stage": "Stage IIA"})
	in.Append(map[string]string{"case_id": "c2", "ajcc_pathologic_stage": "Stage IIB"})
	in.Append(map[string]string{"case_id": "c3", "ajcc_pathologic_stage": "Not Reported"})
	in.Append(map[string]string{"case_id": "c4", "ajcc_pathologic_stage": "Stage IV"})

	out := GroupStages(in, "ajcc_pathologic_stage")
	testutil.AssertEqual(t, out.Len(), 3, "unrecognizable stage rows excluded")
	testutil.AssertEqual(t, out.Get(0, "ajcc_pathologic_stage"), "Stage II", "IIA collapsed")
	testutil.AssertEqual(t, out.Get(1, "ajcc_pathologic_stage"), "Stage II", "IIB collapsed")
	testutil.AssertEqual(t, out.Get(2, "ajcc_pathologic_stage"), "Stage IV", "IV unchanged")
	// Source untouched.
	testutil.AssertEqual(t, in.Get(0, "ajcc_pathologic_stage"), "Stage IIA", "input not mutated")
}

func TestDeriveStages(t *testing.T) {
	clinical := table.New("case_id", "case_submitter_id", "diagnoses.0.ajcc_pathologic_stage", "primary_diagnosis")
	clinical.Append(map[string]string{
		"case_id":                           "c1",
		"case_submitter_id":                 "TCGA-AA-0001",
		"diagnoses.0.ajcc_pathologic_stage": "Stage IIA",
		"primary_diagnosis":                 "Squamous cell carcinoma",
	})
	clinical.Append(map[string]string{
		"case_id":                           "c2",
		"case_submitter_id":                 "TCGA-AA-0002",
		"diagnoses.0.ajcc_pathologic_stage": "Not Reported",
	})
	clinical.Append(map[string]string{
		"case_id":                           "c3",
		"case_submitter_id":                 "TCGA-AA-0003",
		"diagnoses.0.ajcc_pathologic_stage": "Stage IV",
	})

	stages := DeriveStages(clinical)
	testutil.AssertEqual(t, stages.Len(), 2, "unstaged case excluded")
	testutil.AssertEqual(t, stages.Get(0, "stage"), "Stage II", "substage collapsed")
	testutil.AssertEqual(t, stages.Get(0, "case_submitter_id"), "TCGA-AA-0001", "submitter id carried for joining")
	testutil.AssertEqual(t, stages.Get(1, "stage"), "Stage IV", "plain stage kept")
	if stages.HasColumn("primary_diagnosis") {
		t.Error("stage table should carry only case columns and the stage")
	}
}

func TestDeriveStagesNoStageColumn(t *testing.T) {
	clinical := table.New("case_id", "primary_diagnosis")
	clinical.Append(map[string]string{"case_id": "c1", "primary_diagnosis": "Carcinoma"})

	if got := DeriveStages(clinical); got != nil {
		t.Errorf("DeriveStages without a stage column = %v, want nil", got)
	}
}

func TestDeriveCategories(t *testing.T) {
	clinical := table.New("case_id", "primary_diagnosis", "diagnoses.0.ajcc_pathologic_stage")
	clinical.Append(map[string]string{
		"case_id":                           "c1",
		"primary_diagnosis":                 "Squamous cell carcinoma",
		"diagnoses.0.ajcc_pathologic_stage": "Stage II",
	})
	clinical.Append(map[string]string{
		"case_id":           "c2",
		"primary_diagnosis": "Adenocarcinoma",
		// stage null: skipped, no dangling separator
	})
	clinical.Append(map[string]string{
		"case_id": "c3",
		// everything null: empty category
	})

	cats := DeriveCategories(clinical)
	testutil.AssertEqual(t, cats.Len(), 3, "one row per case")
	testutil.AssertEqual(t, cats.Get(0, "category"), "Squamous cell carcinoma;Stage II", "diagnosis and stage joined")
	testutil.AssertEqual(t, cats.Get(1, "category"), "Adenocarcinoma", "null stage skipped")
	testutil.AssertEqual(t, cats.Get(2, "category"), "", "all-null category empty")
}

func TestDeriveCategoriesCarriesSubmitterID(t *testing.T) {
	clinical := table.New("case_id", "case_submitter_id")
	clinical.Append(map[string]string{
		"case_id":           "c1",
		"case_submitter_id": "TCGA-AA-0001",
		"primary_diagnosis": "Carcinoma",
	})

	cats := DeriveCategories(clinical)
	testutil.AssertEqual(t, cats.Get(0, "case_submitter_id"), "TCGA-AA-0001", "submitter id carried for joining")
}
