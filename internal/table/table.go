// Package table implements the canonical time-indexed table every pipeline
// stage reads or writes: a sorted, duplicate-free timestamp index plus a set
// of unit-labelled numeric columns, one value per index entry. Missing data
// is carried as an explicit marker so columns never fall out of alignment
// with the index.
package table

import (
	"math"
	"time"
)

// Missing returns the explicit "no value" marker stored in column data.
func Missing() float64 { return math.NaN() }

// IsMissing reports whether v is the "no value" marker.
func IsMissing(v float64) bool { return math.IsNaN(v) }

// Column is one named series aligned to the table index. Unit is a display
// label ("kWh", "m3", "°C") consumed by plotters for axis labelling.
type Column struct {
	Name   string
	Unit   string
	Values []float64
}

// Table is the canonical table. The zero value is not usable; construct with
// New or a Builder.
type Table struct {
	index   []time.Time
	columns []*Column
	byName  map[string]*Column
}

// New returns an empty table.
func New() *Table {
	return &Table{byName: make(map[string]*Column)}
}

// Len returns the number of index entries (rows).
func (t *Table) Len() int { return len(t.index) }

// Empty reports whether the table has no rows and no columns.
func (t *Table) Empty() bool { return len(t.index) == 0 && len(t.columns) == 0 }

// Index returns the timestamp index. Callers must not modify the returned
// slice.
func (t *Table) Index() []time.Time { return t.index }

// Columns returns the columns in insertion order. Callers must not modify
// the returned slice.
func (t *Table) Columns() []*Column { return t.columns }

// ColumnNames returns the column names in insertion order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// Column returns the named column, or nil if absent.
func (t *Table) Column(name string) *Column {
	return t.byName[name]
}

// AddColumn attaches a column to the table. The column must carry exactly one
// value per index entry and its name must be unused.
func (t *Table) AddColumn(c *Column) error {
	if len(c.Values) != len(t.index) {
		return &MisalignedColumnError{Name: c.Name, Got: len(c.Values), Want: len(t.index)}
	}
	if _, exists := t.byName[c.Name]; exists {
		return &ColumnCollisionError{Name: c.Name}
	}
	t.columns = append(t.columns, c)
	t.byName[c.Name] = c
	return nil
}

// Clone returns a deep copy. Plotters receive clones so a misbehaving
// renderer cannot disturb the table handed to later stages.
func (t *Table) Clone() *Table {
	out := New()
	out.index = append([]time.Time(nil), t.index...)
	for _, c := range t.columns {
		cc := &Column{Name: c.Name, Unit: c.Unit, Values: append([]float64(nil), c.Values...)}
		out.columns = append(out.columns, cc)
		out.byName[cc.Name] = cc
	}
	return out
}

// Slice returns a new table restricted to index entries within the inclusive
// [start, end] bounds. A nil bound is open on that side. Bounds outside the
// covered range simply narrow the result, possibly to an empty table.
func (t *Table) Slice(start, end *time.Time) *Table {
	lo, hi := 0, len(t.index)
	if start != nil {
		for lo < hi && t.index[lo].Before(*start) {
			lo++
		}
	}
	if end != nil {
		for hi > lo && t.index[hi-1].After(*end) {
			hi--
		}
	}

	out := New()
	out.index = append([]time.Time(nil), t.index[lo:hi]...)
	for _, c := range t.columns {
		cc := &Column{Name: c.Name, Unit: c.Unit, Values: append([]float64(nil), c.Values[lo:hi]...)}
		out.columns = append(out.columns, cc)
		out.byName[cc.Name] = cc
	}
	return out
}

// DropColumns removes the named columns. Unknown names are ignored.
func (t *Table) DropColumns(names ...string) {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	kept := t.columns[:0]
	for _, c := range t.columns {
		if drop[c.Name] {
			delete(t.byName, c.Name)
			continue
		}
		kept = append(kept, c)
	}
	t.columns = kept
}

// NonMissingCount returns the number of non-missing values in the named
// column, or 0 if the column does not exist.
func (t *Table) NonMissingCount(name string) int {
	c := t.byName[name]
	if c == nil {
		return 0
	}
	n := 0
	for _, v := range c.Values {
		if !IsMissing(v) {
			n++
		}
	}
	return n
}
