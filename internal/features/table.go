// Package features builds the per-customer feature groups consumed by the
// modeling table. Every group is keyed by customer_id and covers the full
// customer universe: a customer without qualifying events gets the
// feature's declared default, never an absent row.
package features

import (
	"github.com/smallbiznis/churnpipe/internal/dataset"
)

// Column is one named feature: computed values for the keys that had
// qualifying events, and the default everyone else receives.
type Column struct {
	Name    string
	Values  map[string]float64
	Default float64
}

// Table is one feature group over the full customer universe.
type Table struct {
	Group   string
	Columns []Column
}

// Names returns the column names in declaration order.
func (t *Table) Names() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Row materializes one customer's values, applying defaults.
func (t *Table) Row(id string) []float64 {
	row := make([]float64, len(t.Columns))
	for i, c := range t.Columns {
		if v, ok := c.Values[id]; ok {
			row[i] = v
		} else {
			row[i] = c.Default
		}
	}
	return row
}

// Value returns a single feature value for a customer.
func (t *Table) Value(id, column string) (float64, bool) {
	for _, c := range t.Columns {
		if c.Name != column {
			continue
		}
		if v, ok := c.Values[id]; ok {
			return v, true
		}
		return c.Default, true
	}
	return 0, false
}

// WriteCSV emits the group artifact, one row per universe customer in
// input order.
func (t *Table) WriteCSV(path string, universe []string) error {
	header := append([]string{"customer_id"}, t.Names()...)
	rows := make([][]string, 0, len(universe))
	for _, id := range universe {
		row := make([]string, 0, len(header))
		row = append(row, id)
		for _, v := range t.Row(id) {
			row = append(row, dataset.FormatFloat(v))
		}
		rows = append(rows, row)
	}
	return dataset.WriteCSV(path, header, rows)
}
