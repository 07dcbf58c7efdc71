// Package table implements a small column-ordered table of string cells
// used for all flat tabular artifacts (file metadata, groups, annotation
// tables). Cells are strings; an empty string is a null.
package table

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"sort"
)

// Table holds rows as column-name→value maps plus an explicit column
// order. Missing cells read as empty strings.
type Table struct {
	Columns []string
	Rows    []map[string]string
}

// New creates an empty table with the given column order.
func New(columns ...string) *Table {
	return &Table{Columns: append([]string(nil), columns...)}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Empty reports whether the table is nil or has no rows.
func (t *Table) Empty() bool {
	return t.Len() == 0
}

// HasColumn reports whether the column is part of the schema.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// AddColumn appends a column to the schema if not already present.
func (t *Table) AddColumn(name string) {
	if !t.HasColumn(name) {
		t.Columns = append(t.Columns, name)
	}
}

// Append adds a row. Columns not yet in the schema are appended in
// sorted order so output stays deterministic.
func (t *Table) Append(row map[string]string) {
	var missing []string
	for k := range row {
		if !t.HasColumn(k) {
			missing = append(missing, k)
		}
	}
	sort.Strings(missing)
	t.Columns = append(t.Columns, missing...)
	t.Rows = append(t.Rows, row)
}

// Get returns the value at (row, col), empty if absent.
func (t *Table) Get(i int, col string) string {
	return t.Rows[i][col]
}

// Set writes a cell, extending the schema if needed.
func (t *Table) Set(i int, col, value string) {
	t.AddColumn(col)
	t.Rows[i][col] = value
}

// Rename renames a column in the schema and in every row.
func (t *Table) Rename(from, to string) {
	for i, c := range t.Columns {
		if c == from {
			t.Columns[i] = to
		}
	}
	for _, row := range t.Rows {
		if v, ok := row[from]; ok {
			delete(row, from)
			row[to] = v
		}
	}
}

// Select returns a new table restricted to the given columns, skipping
// columns absent from the schema.
func (t *Table) Select(columns ...string) *Table {
	var kept []string
	for _, c := range columns {
		if t.HasColumn(c) {
			kept = append(kept, c)
		}
	}
	out := New(kept...)
	for _, row := range t.Rows {
		nr := make(map[string]string, len(kept))
		for _, c := range kept {
			nr[c] = row[c]
		}
		out.Rows = append(out.Rows, nr)
	}
	return out
}

// Filter returns a new table with the rows for which keep returns true.
func (t *Table) Filter(keep func(row map[string]string) bool) *Table {
	out := New(t.Columns...)
	for _, row := range t.Rows {
		if keep(row) {
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}

// Distinct returns the distinct non-empty values of a column in first-seen
// order.
func (t *Table) Distinct(col string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, row := range t.Rows {
		v := row[col]
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// InnerJoin joins t with other on leftKey == rightKey. Rows without a
// match on either side are dropped. When other has multiple rows for a
// key, each left row joins against all of them. Right-side columns keep
// their names except the join key; on name collision the left value
// wins.
func (t *Table) InnerJoin(other *Table, leftKey, rightKey string) *Table {
	byKey := make(map[string][]map[string]string)
	for _, row := range other.Rows {
		k := row[rightKey]
		if k == "" {
			continue
		}
		byKey[k] = append(byKey[k], row)
	}

	cols := append([]string(nil), t.Columns...)
	out := New(cols...)
	for _, rc := range other.Columns {
		if rc != rightKey && !out.HasColumn(rc) {
			out.AddColumn(rc)
		}
	}

	for _, lrow := range t.Rows {
		k := lrow[leftKey]
		if k == "" {
			continue
		}
		for _, rrow := range byKey[k] {
			nr := make(map[string]string, len(lrow)+len(rrow))
			for _, rc := range other.Columns {
				if rc == rightKey {
					continue
				}
				nr[rc] = rrow[rc]
			}
			for c, v := range lrow {
				nr[c] = v
			}
			out.Rows = append(out.Rows, nr)
		}
	}
	return out
}

// Concat appends all rows of other, merging schemas.
func (t *Table) Concat(other *Table) {
	for _, c := range other.Columns {
		t.AddColumn(c)
	}
	t.Rows = append(t.Rows, other.Rows...)
}

// WriteCSV writes the table as comma-separated values.
func (t *Table) WriteCSV(path string) error {
	return t.write(path, ',')
}

// WriteTSV writes the table as tab-separated values.
func (t *Table) WriteTSV(path string) error {
	return t.write(path, '\t')
}

func (t *Table) write(path string, sep rune) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = sep
	if err := w.Write(t.Columns); err != nil {
		return err
	}
	record := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for i, c := range t.Columns {
			record[i] = row[c]
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	log.Printf("Wrote %s (%d rows, %d cols)", path, len(t.Rows), len(t.Columns))
	return nil
}

// ReadCSV loads a comma-separated file written by WriteCSV.
func ReadCSV(path string) (*Table, error) {
	return read(path, ',')
}

// ReadTSV loads a tab-separated file.
func ReadTSV(path string) (*Table, error) {
	return read(path, '\t')
}

func read(path string, sep rune) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = sep
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if len(records) == 0 {
		return New(), nil
	}

	t := New(records[0]...)
	for _, rec := range records[1:] {
		row := make(map[string]string, len(t.Columns))
		for i, c := range t.Columns {
			if i < len(rec) {
				row[c] = rec[i]
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}
