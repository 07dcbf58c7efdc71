package annotations

import (
	"log"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/nishad/gdcharvest/internal/table"
)

// Column candidates for survival signals, in preference order. Clinical
// hits flatten diagnoses/follow_ups lists to indexed columns, so the
// first entry of each list is also considered.
var (
	vitalStatusCandidates = []string{
		"vital_status",
		"demographic.vital_status",
		"diagnoses.vital_status",
		"diagnoses.0.vital_status",
		"follow_ups.vital_status",
		"follow_ups.0.vital_status",
	}
	daysToDeathCandidates = []string{
		"days_to_death",
		"demographic.days_to_death",
		"diagnoses.days_to_death",
		"diagnoses.0.days_to_death",
	}
	daysToFollowUpCandidates = []string{
		"days_to_last_follow_up",
		"diagnoses.days_to_last_follow_up",
		"diagnoses.0.days_to_last_follow_up",
		"follow_ups.days_to_last_follow_up",
		"follow_ups.0.days_to_last_follow_up",
	}
	primaryDiagnosisCandidates = []string{
		"primary_diagnosis",
		"diagnoses.primary_diagnosis",
		"diagnoses.0.primary_diagnosis",
	}
)

// DaysPerMonth converts survival days to months.
const DaysPerMonth = 30.44

func firstValue(row map[string]string, candidates []string) string {
	for _, c := range candidates {
		if v, ok := row[c]; ok && v != "" {
			return v
		}
	}
	return ""
}

func parseDays(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// deriveTimeEvent applies the survival rule to one case. Vital status
// "dead" uses days-to-death with event 1; "alive" uses days-to-last-
// follow-up with event 0. When vital status is absent or unrecognized,
// a positive death-days value is preferred over a positive follow-up
// value. Both outputs are null when no signal is available.
func deriveTimeEvent(vitalStatus string, deathDays, followUpDays string) (timeVal string, event string) {
	dd, hasDD := parseDays(deathDays)
	fu, hasFU := parseDays(followUpDays)

	switch strings.ToLower(vitalStatus) {
	case "dead":
		if hasDD {
			return formatDays(dd), "1"
		}
		return "", "1"
	case "alive":
		if hasFU {
			return formatDays(fu), "0"
		}
		return "", "0"
	}

	if hasDD && dd > 0 {
		return formatDays(dd), "1"
	}
	if hasFU && fu > 0 {
		return formatDays(fu), "0"
	}
	return "", ""
}

func formatDays(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// StageColumns returns the clinical columns whose name contains
// "stage", case-insensitive.
func StageColumns(t *table.Table) []string {
	var out []string
	for _, c := range t.Columns {
		if strings.Contains(strings.ToLower(c), "stage") {
			out = append(out, c)
		}
	}
	return out
}

// DeriveSurvival builds the per-case survival table: case_id, time
// (days), event, vital_status, primary_diagnosis, plus any stage
// columns carried through from the clinical table.
func DeriveSurvival(clinical *table.Table) *table.Table {
	stageCols := StageColumns(clinical)
	cols := []string{"case_id"}
	if clinical.HasColumn("case_submitter_id") {
		cols = append(cols, "case_submitter_id")
	}
	cols = append(cols, "time", "event", "vital_status", "primary_diagnosis")
	cols = append(cols, stageCols...)
	out := table.New(cols...)

	for _, row := range clinical.Rows {
		vs := firstValue(row, vitalStatusCandidates)
		timeVal, event := deriveTimeEvent(vs,
			firstValue(row, daysToDeathCandidates),
			firstValue(row, daysToFollowUpCandidates))

		nr := map[string]string{
			"case_id":           row["case_id"],
			"time":              timeVal,
			"event":             event,
			"vital_status":      vs,
			"primary_diagnosis": firstValue(row, primaryDiagnosisCandidates),
		}
		if clinical.HasColumn("case_submitter_id") {
			nr["case_submitter_id"] = row["case_submitter_id"]
		}
		for _, sc := range stageCols {
			nr[sc] = row[sc]
		}
		out.Rows = append(out.Rows, nr)
	}
	return out
}

// AddMonths adds a time_months column: days divided by 30.44, rounded
// to the nearest integer. Null times stay null.
func AddMonths(t *table.Table) {
	t.AddColumn("time_months")
	for i := range t.Rows {
		days, ok := parseDays(t.Get(i, "time"))
		if !ok {
			continue
		}
		t.Set(i, "time_months", strconv.Itoa(int(math.Round(days/DaysPerMonth))))
	}
}

// AddQuartiles bins time into 4 equal-frequency bins via a rank-based
// cut and writes the bin index (0-3) to time_quartile. When the values
// cannot be split into four distinct bins the column is left null for
// every row rather than failing.
func AddQuartiles(t *table.Table) {
	t.AddColumn("time_quartile")

	type obs struct {
		idx int
		val float64
	}
	var vals []obs
	for i := range t.Rows {
		if v, ok := parseDays(t.Get(i, "time")); ok {
			vals = append(vals, obs{idx: i, val: v})
		}
	}
	if len(vals) < 4 {
		log.Printf("Warning: too few survival times (%d) for quartile binning; leaving time_quartile empty", len(vals))
		return
	}

	sort.Slice(vals, func(a, b int) bool { return vals[a].val < vals[b].val })

	// Quartile boundaries must be strictly increasing for an
	// equal-frequency cut to be meaningful.
	n := len(vals)
	bounds := []float64{
		vals[n/4].val,
		vals[n/2].val,
		vals[3*n/4].val,
	}
	if !(bounds[0] < bounds[1] && bounds[1] < bounds[2]) {
		log.Printf("Warning: survival times have too few distinct values for quartile binning; leaving time_quartile empty")
		return
	}

	for _, o := range vals {
		bin := 0
		for _, b := range bounds {
			if o.val >= b {
				bin++
			}
		}
		t.Set(o.idx, "time_quartile", strconv.Itoa(bin))
	}
}
