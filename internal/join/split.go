package join

import (
	"log"
	"math"
	"math/rand"
	"sort"

	"github.com/nishad/gdcharvest/internal/table"
)

// MinClassSize is the smallest stratum that can be split meaningfully;
// classes below it are excluded from both outputs.
const MinClassSize = 5

// SplitConfig controls the stratified train/test split.
type SplitConfig struct {
	TrainRatio float64
	Seed       int64
}

// DefaultSplitConfig is an 80/20 split with a fixed seed so reruns are
// reproducible.
var DefaultSplitConfig = SplitConfig{TrainRatio: 0.8, Seed: 42}

// SurvivalStratum composes the quartile×event stratification key for a
// survival row. Rows with no quartile fall back to event alone.
func SurvivalStratum(row map[string]string) string {
	return row["time_quartile"] + "x" + row["event"]
}

// CategoryStratum stratifies classification rows by their category.
func CategoryStratum(row map[string]string) string {
	return row["category"]
}

// StageStratum stratifies stage rows by their collapsed stage.
func StageStratum(row map[string]string) string {
	return row["stage"]
}

// Split separates rows with any missing required field into the flagged
// side-output, stratifies the remaining complete rows by key, and
// splits each stratum by the configured ratio, adding a dataset column
// with value "train" or "test". Strata smaller than MinClassSize are
// excluded from both outputs (they cannot be stratified meaningfully).
func Split(t *table.Table, required []string, stratum func(row map[string]string) string, cfg SplitConfig) (split, flagged *table.Table) {
	flagged = table.New(t.Columns...)
	split = table.New(append(append([]string(nil), t.Columns...), "dataset")...)

	strata := make(map[string][]map[string]string)
	for _, row := range t.Rows {
		complete := true
		for _, c := range required {
			if row[c] == "" {
				complete = false
				break
			}
		}
		if !complete {
			flagged.Rows = append(flagged.Rows, row)
			continue
		}
		key := stratum(row)
		strata[key] = append(strata[key], row)
	}

	keys := make([]string, 0, len(strata))
	for k := range strata {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rng := rand.New(rand.NewSource(cfg.Seed))
	excluded := 0
	for _, key := range keys {
		rows := strata[key]
		if len(rows) < MinClassSize {
			excluded += len(rows)
			log.Printf("Warning: stratum %q has %d rows (minimum %d); excluded from split", key, len(rows), MinClassSize)
			continue
		}
		rng.Shuffle(len(rows), func(i, j int) { rows[i], rows[j] = rows[j], rows[i] })
		nTrain := int(math.Round(cfg.TrainRatio * float64(len(rows))))
		for i, row := range rows {
			nr := make(map[string]string, len(row)+1)
			for k, v := range row {
				nr[k] = v
			}
			if i < nTrain {
				nr["dataset"] = "train"
			} else {
				nr["dataset"] = "test"
			}
			split.Rows = append(split.Rows, nr)
		}
	}
	if excluded > 0 {
		log.Printf("Warning: %d rows excluded from split due to undersized strata", excluded)
	}
	return split, flagged
}
