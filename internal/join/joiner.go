// Package join produces the ML-ready per-slide annotation tables by
// joining the slide→case mapping against derived label tables, and
// provides stratified train/test splitting.
package join

import (
	"log"

	"github.com/nishad/gdcharvest/internal/slides"
	"github.com/nishad/gdcharvest/internal/table"
)

// joinOnPatient inner-joins the slide mapping against a label table
// whose case-id column is aliased to "patient", and derives the slide
// key by stripping the image extension from the slide filename. Inner
// join semantics are deliberate: slides without clinical data and
// clinical rows without slides are dropped. Drop counts go to the log
// so the loss is visible to operators.
func joinOnPatient(slideMap, labels *table.Table, caseCol string, valueCols []string) *table.Table {
	aliased := labels.Select(append([]string{caseCol}, valueCols...)...)
	aliased.Rename(caseCol, "patient")

	joined := slideMap.InnerJoin(aliased, "patient", "patient")

	joined.AddColumn("slide")
	for i := range joined.Rows {
		joined.Set(i, "slide", slides.StripImageExt(joined.Get(i, "full_slide_file")))
	}

	if dropped := slideMap.Len() - joined.Len(); dropped > 0 {
		log.Printf("Warning: %d of %d slides had no matching label row and were dropped", dropped, slideMap.Len())
	}
	return joined.Select(append([]string{"slide", "patient"}, valueCols...)...)
}

// survivalValueColumns picks the label columns present in a survival
// table: event and time always, plus any derived time variants.
func survivalValueColumns(survival *table.Table) []string {
	cols := []string{"event", "time"}
	for _, optional := range []string{"time_months", "time_quartile"} {
		if survival.HasColumn(optional) {
			cols = append(cols, optional)
		}
	}
	return cols
}

// JoinSurvival emits the per-slide survival table: slide, patient,
// event, time, and any present day/month/quantile variants.
func JoinSurvival(slideMap, survival *table.Table, caseCol string) *table.Table {
	return joinOnPatient(slideMap, survival, caseCol, survivalValueColumns(survival))
}

// JoinClassification emits the per-slide classification table: slide,
// patient, category.
func JoinClassification(slideMap, categories *table.Table, caseCol string) *table.Table {
	return joinOnPatient(slideMap, categories, caseCol, []string{"category"})
}

// JoinStages emits the per-slide stage table: slide, patient, stage.
// The stage table is already filtered to recognizable stages, so the
// join drops slides of unstaged cases.
func JoinStages(slideMap, stages *table.Table, caseCol string) *table.Table {
	return joinOnPatient(slideMap, stages, caseCol, []string{"stage"})
}
