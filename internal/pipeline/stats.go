package pipeline

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/nishad/gdcharvest/internal/gdc"
	"github.com/nishad/gdcharvest/internal/table"
)

// datasetStats summarizes one harvested dataset for the stats.json
// artifact.
type datasetStats struct {
	Dataset        string         `json:"dataset"`
	Files          int            `json:"files"`
	Cases          int            `json:"cases"`
	BySampleType   map[string]int `json:"by_sample_type,omitempty"`
	ByDataCategory map[string]int `json:"by_data_category,omitempty"`
	ByGroup        map[string]int `json:"by_group,omitempty"`
	Survival       *survivalStats `json:"survival,omitempty"`
}

type survivalStats struct {
	Cases    int `json:"cases"`
	Events   int `json:"events"`
	Censored int `json:"censored"`
	NullTime int `json:"null_time"`
}

func countBy(t *table.Table, col string) map[string]int {
	if !t.HasColumn(col) {
		return nil
	}
	out := make(map[string]int)
	for _, row := range t.Rows {
		if v := row[col]; v != "" {
			out[v]++
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func (p *Pipeline) writeStats(dir, dataset string, files, groups *table.Table) error {
	st := datasetStats{
		Dataset:        dataset,
		Files:          files.Len(),
		Cases:          len(files.Distinct(gdc.ColCaseID)),
		BySampleType:   countBy(files, gdc.ColSampleType),
		ByDataCategory: countBy(files, "data_category"),
		ByGroup:        countBy(groups, "group"),
	}

	// The survival summary reads back the survival artifact when the
	// annotation stage produced one.
	if surv, err := table.ReadCSV(filepath.Join(dir, "survival.csv")); err == nil {
		ss := survivalStats{Cases: surv.Len()}
		for _, row := range surv.Rows {
			switch row["event"] {
			case "1":
				ss.Events++
			case "0":
				ss.Censored++
			}
			if row["time"] == "" {
				ss.NullTime++
			}
		}
		st.Survival = &ss
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "stats.json"), data, 0644)
}
