package join

import (
	"fmt"
	"math"
	"testing"

	"github.com/nishad/gdcharvest/internal/table"
	"github.com/nishad/gdcharvest/internal/testutil"
)

func survivalRows(n int, quartile, event string) *table.Table {
	t := table.New("slide", "patient", "time", "event", "time_quartile")
	for i := 0; i < n; i++ {
		t.Append(map[string]string{
			"slide":         fmt.Sprintf("slide-%s-%s-%d", quartile, event, i),
			"patient":       fmt.Sprintf("TCGA-AA-%04d", i),
			"time":          "100",
			"event":         event,
			"time_quartile": quartile,
		})
	}
	return t
}

func countDataset(t *table.Table, value string) int {
	n := 0
	for i := 0; i < t.Len(); i++ {
		if t.Get(i, "dataset") == value {
			n++
		}
	}
	return n
}

func TestSplitRatio(t *testing.T) {
	rows := survivalRows(10, "1", "0")
	split, flagged := Split(rows, []string{"time_quartile", "event"}, SurvivalStratum, DefaultSplitConfig)

	testutil.AssertEqual(t, flagged.Len(), 0, "no incomplete rows")
	testutil.AssertEqual(t, split.Len(), 10, "all rows assigned")
	testutil.AssertEqual(t, countDataset(split, "train"), 8, "train count is round(ratio*n)")
	testutil.AssertEqual(t, countDataset(split, "test"), 2, "test count")

	for i := 0; i < split.Len(); i++ {
		v := split.Get(i, "dataset")
		if v != "train" && v != "test" {
			t.Fatalf("row %d: dataset = %q, want train or test", i, v)
		}
	}
}

func TestSplitFlagsIncompleteRows(t *testing.T) {
	rows := survivalRows(6, "2", "1")
	rows.Append(map[string]string{"slide": "s-x", "patient": "TCGA-AA-9999", "time": "50", "event": "1", "time_quartile": ""})

	split, flagged := Split(rows, []string{"time_quartile", "event"}, SurvivalStratum, DefaultSplitConfig)

	testutil.AssertEqual(t, flagged.Len(), 1, "row missing quartile flagged")
	testutil.AssertEqual(t, flagged.Get(0, "slide"), "s-x", "flagged row identity")
	testutil.AssertFalse(t, flagged.HasColumn("dataset"), "flagged output keeps original schema")
	testutil.AssertEqual(t, split.Len(), 6, "complete rows split")
}

func TestSplitExcludesUndersizedStrata(t *testing.T) {
	rows := survivalRows(8, "0", "0")
	small := survivalRows(3, "3", "1")
	rows.Concat(small)

	split, flagged := Split(rows, []string{"time_quartile", "event"}, SurvivalStratum, DefaultSplitConfig)

	testutil.AssertEqual(t, flagged.Len(), 0, "undersized strata are not flagged")
	testutil.AssertEqual(t, split.Len(), 8, "small stratum excluded entirely")
	for i := 0; i < split.Len(); i++ {
		testutil.AssertEqual(t, split.Get(i, "time_quartile"), "0", "only the viable stratum remains")
	}
}

func TestSplitStratified(t *testing.T) {
	rows := survivalRows(10, "0", "0")
	rows.Concat(survivalRows(10, "1", "1"))

	split, _ := Split(rows, []string{"time_quartile", "event"}, SurvivalStratum, DefaultSplitConfig)

	// Each stratum is split at the ratio independently.
	perStratum := map[string]map[string]int{}
	for i := 0; i < split.Len(); i++ {
		key := SurvivalStratum(map[string]string{
			"time_quartile": split.Get(i, "time_quartile"),
			"event":         split.Get(i, "event"),
		})
		if perStratum[key] == nil {
			perStratum[key] = map[string]int{}
		}
		perStratum[key][split.Get(i, "dataset")]++
	}
	testutil.AssertEqual(t, len(perStratum), 2, "two strata")
	for key, counts := range perStratum {
		if counts["train"] != 8 || counts["test"] != 2 {
			t.Errorf("stratum %s: train=%d test=%d, want 8/2", key, counts["train"], counts["test"])
		}
	}
}

func TestSplitReproducible(t *testing.T) {
	assignment := func() map[string]string {
		rows := survivalRows(12, "1", "0")
		split, _ := Split(rows, []string{"time_quartile", "event"}, SurvivalStratum, SplitConfig{TrainRatio: 0.75, Seed: 7})
		out := map[string]string{}
		for i := 0; i < split.Len(); i++ {
			out[split.Get(i, "slide")] = split.Get(i, "dataset")
		}
		return out
	}

	first, second := assignment(), assignment()
	testutil.AssertEqual(t, len(first), 12, "all rows assigned")
	for slide, ds := range first {
		testutil.AssertEqual(t, second[slide], ds, "same seed gives same assignment for "+slide)
	}
	testutil.AssertEqual(t, int(math.Round(0.75*12)), 9, "ratio sanity")
}

func TestCategoryStratum(t *testing.T) {
	testutil.AssertEqual(t, CategoryStratum(map[string]string{"category": "Carcinoma;Stage II"}), "Carcinoma;Stage II", "category key")
	testutil.AssertEqual(t, SurvivalStratum(map[string]string{"time_quartile": "2", "event": "1"}), "2x1", "survival key")
}
