// Package trace holds parsed MCMC logs as typed, immutable column tables.
package trace

import (
	"errors"
	"fmt"
)

// ErrMalformedTrace is returned when a table or log violates the trace
// invariants: unique non-empty names, equal column lengths, numeric cells.
var ErrMalformedTrace = errors.New("malformed trace")

// Column is one named parameter trace. Values are in chain order.
type Column struct {
	Name   string
	Values []float64
}

// Table is an immutable set of equally long columns sharing an implicit
// iteration index. Column order is preserved from construction.
type Table struct {
	columns []Column
	index   map[string]int
	length  int
}

// NewTable builds a Table from columns. Column values are copied so later
// changes by the caller cannot alter the table.
func NewTable(columns ...Column) (*Table, error) {
	t := &Table{
		columns: make([]Column, 0, len(columns)),
		index:   make(map[string]int, len(columns)),
	}
	for i, c := range columns {
		if c.Name == "" {
			return nil, fmt.Errorf("%w: column %d has an empty name", ErrMalformedTrace, i)
		}
		if _, dup := t.index[c.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate column %q", ErrMalformedTrace, c.Name)
		}
		if i == 0 {
			t.length = len(c.Values)
		} else if len(c.Values) != t.length {
			return nil, fmt.Errorf("%w: column %q has %d samples, expected %d",
				ErrMalformedTrace, c.Name, len(c.Values), t.length)
		}
		t.index[c.Name] = i
		t.columns = append(t.columns, Column{
			Name:   c.Name,
			Values: append([]float64(nil), c.Values...),
		})
	}
	return t, nil
}

// Len returns the chain length shared by every column.
func (t *Table) Len() int {
	return t.length
}

// NumColumns returns the number of columns.
func (t *Table) NumColumns() int {
	return len(t.columns)
}

// Names returns the column names in table order.
func (t *Table) Names() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// Has reports whether the table has a column called name.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Column returns a copy of the named column's values.
func (t *Table) Column(name string) ([]float64, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return append([]float64(nil), t.columns[i].Values...), true
}

// Columns returns every column in table order. Values are copies.
func (t *Table) Columns() []Column {
	out := make([]Column, len(t.columns))
	for i, c := range t.columns {
		out[i] = Column{Name: c.Name, Values: append([]float64(nil), c.Values...)}
	}
	return out
}

// At returns the i-th column. The returned Values slice aliases table
// storage and must not be modified.
func (t *Table) At(i int) Column {
	return t.columns[i]
}

// Select returns a new table holding only the named columns, in table order.
// Unknown names are ignored.
func (t *Table) Select(names ...string) *Table {
	keep := make(map[string]bool, len(names))
	for _, n := range names {
		keep[n] = true
	}
	return t.filter(func(name string) bool { return keep[name] })
}

// Drop returns a new table without the named columns. Unknown names are ignored.
func (t *Table) Drop(names ...string) *Table {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	return t.filter(func(name string) bool { return !drop[name] })
}

func (t *Table) filter(keep func(name string) bool) *Table {
	out := &Table{index: make(map[string]int), length: t.length}
	for _, c := range t.columns {
		if !keep(c.Name) {
			continue
		}
		out.index[c.Name] = len(out.columns)
		out.columns = append(out.columns, c)
	}
	return out
}

// Trim returns a new table with the burn-in rows removed from the front of
// every column. The receiver is not modified.
func (t *Table) Trim(b BurnIn) (*Table, error) {
	skip, err := b.Rows(t.length)
	if err != nil {
		return nil, err
	}
	out := &Table{
		columns: make([]Column, len(t.columns)),
		index:   make(map[string]int, len(t.columns)),
		length:  t.length - skip,
	}
	for i, c := range t.columns {
		out.columns[i] = Column{Name: c.Name, Values: c.Values[skip:]}
		out.index[c.Name] = i
	}
	return out, nil
}
