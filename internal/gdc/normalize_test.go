package gdc

import (
	"testing"

	"github.com/nishad/gdcharvest/internal/testutil"
)

func TestFlattenHit(t *testing.T) {
	hit := map[string]interface{}{
		"file_id":   "abc",
		"file_size": float64(12345),
		"ratio":     1.5,
		"open":      true,
		"md5sum":    nil,
		"cases": []interface{}{
			map[string]interface{}{
				"case_id": "c1",
				"samples": []interface{}{
					map[string]interface{}{"sample_type": "Primary Tumor"},
				},
			},
		},
	}

	row := FlattenHit(hit)
	testutil.AssertEqual(t, row["file_id"], "abc", "scalar")
	testutil.AssertEqual(t, row["file_size"], "12345", "integral float rendered without .0")
	testutil.AssertEqual(t, row["ratio"], "1.5", "fractional float")
	testutil.AssertEqual(t, row["open"], "true", "bool")
	testutil.AssertEqual(t, row["md5sum"], "", "null becomes empty string")
	testutil.AssertEqual(t, row["cases.0.case_id"], "c1", "indexed list key")
	testutil.AssertEqual(t, row["cases.0.samples.0.sample_type"], "Primary Tumor", "nested indexed key")
}

func TestFlattenHitsColumnUnion(t *testing.T) {
	hits := []map[string]interface{}{
		{"a": "1"},
		{"b": "2"},
	}
	rows, cols := FlattenHits(hits)
	testutil.AssertEqual(t, len(rows), 2, "row count")
	testutil.AssertEqual(t, len(cols), 2, "column union")
	testutil.AssertEqual(t, cols[0], "a", "sorted columns")
	testutil.AssertEqual(t, cols[1], "b", "sorted columns")
}

func TestNormalizeIndexedColumns(t *testing.T) {
	hits := []map[string]interface{}{
		testutil.FileHit("f1", "a.svs", "c1", "TCGA-AA-0001", "TCGA-LUSC", "Primary Tumor"),
	}
	tab := HitsToTable(hits)

	testutil.AssertEqual(t, tab.Get(0, ColCaseID), "c1", "case id from indexed column")
	testutil.AssertEqual(t, tab.Get(0, ColCaseSubmitterID), "TCGA-AA-0001", "submitter id")
	testutil.AssertEqual(t, tab.Get(0, ColProjectID), "TCGA-LUSC", "project id")
	testutil.AssertEqual(t, tab.Get(0, ColSampleType), "Primary Tumor", "sample type")
	testutil.AssertEqual(t, tab.Get(0, ColPatient), "TCGA-AA-0001", "patient prefers submitter id")
}

func TestNormalizeObjectShapedColumns(t *testing.T) {
	hits := []map[string]interface{}{
		{
			"file_id": "f1",
			"cases": map[string]interface{}{
				"case_id": "c9",
				"project": map[string]interface{}{"project_id": "TCGA-LUAD"},
			},
		},
	}
	tab := HitsToTable(hits)
	testutil.AssertEqual(t, tab.Get(0, ColCaseID), "c9", "case id from object column")
	testutil.AssertEqual(t, tab.Get(0, ColProjectID), "TCGA-LUAD", "project id from object column")
	// No submitter id anywhere: patient falls back to the case id.
	testutil.AssertEqual(t, tab.Get(0, ColPatient), "c9", "patient falls back to case id")
}

func TestNormalizeIdempotent(t *testing.T) {
	hits := []map[string]interface{}{
		testutil.FileHit("f1", "a.svs", "c1", "TCGA-AA-0001", "TCGA-LUSC", "Primary Tumor"),
	}
	tab := HitsToTable(hits)
	before := map[string]string{}
	for _, col := range []string{ColCaseID, ColCaseSubmitterID, ColProjectID, ColSampleType, ColPatient} {
		before[col] = tab.Get(0, col)
	}

	Normalize(tab)

	for col, want := range before {
		testutil.AssertEqual(t, tab.Get(0, col), want, "column "+col+" unchanged by second pass")
	}
}

func TestNormalizeCaseEndpointHit(t *testing.T) {
	// Cases-endpoint hits carry the submitter id at the top level.
	hits := []map[string]interface{}{
		testutil.CaseHit("c1", "TCGA-AA-0001", "dead", "800", "", "Squamous cell carcinoma"),
	}
	tab := HitsToTable(hits)

	testutil.AssertEqual(t, tab.Get(0, ColCaseID), "c1", "case id")
	testutil.AssertEqual(t, tab.Get(0, ColCaseSubmitterID), "TCGA-AA-0001", "submitter id from top-level key")
	testutil.AssertEqual(t, tab.Get(0, ColPatient), "TCGA-AA-0001", "patient prefers submitter id")
}
