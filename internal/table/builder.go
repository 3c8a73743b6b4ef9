package table

import (
	"sort"
	"time"
)

// DuplicatePolicy controls what a Builder does when a cell (timestamp,
// column) is set twice.
type DuplicatePolicy int

const (
	// DuplicateError rejects the second write.
	DuplicateError DuplicatePolicy = iota
	// DuplicateKeepFirst keeps the first value seen.
	DuplicateKeepFirst
	// DuplicateKeepLast keeps the last value seen. EDF exports are known to
	// repeat rows, with the later row being the corrected one.
	DuplicateKeepLast
)

// Builder accumulates unordered (timestamp, column, value) observations and
// produces a sorted table fragment. Readers use it so parsing order never
// dictates index order.
type Builder struct {
	source string
	policy DuplicatePolicy

	colOrder []string
	colUnits map[string]string

	rows map[int64]map[string]float64 // unix nanos -> column -> value
	locs map[int64]time.Time          // preserves the original location
}

// NewBuilder returns a Builder for the named source (used in error messages).
func NewBuilder(source string, policy DuplicatePolicy) *Builder {
	return &Builder{
		source:   source,
		policy:   policy,
		colUnits: make(map[string]string),
		rows:     make(map[int64]map[string]float64),
		locs:     make(map[int64]time.Time),
	}
}

// DeclareColumn registers a column and its unit ahead of any values, fixing
// its position in the output. Columns first seen via Set are appended in
// encounter order.
func (b *Builder) DeclareColumn(name, unit string) {
	if _, ok := b.colUnits[name]; !ok {
		b.colOrder = append(b.colOrder, name)
	}
	b.colUnits[name] = unit
}

// Set records one observation. Under DuplicateError, writing the same cell
// twice fails with DuplicateTimestampError.
func (b *Builder) Set(ts time.Time, column string, v float64) error {
	if _, ok := b.colUnits[column]; !ok {
		b.colOrder = append(b.colOrder, column)
		b.colUnits[column] = ""
	}

	key := ts.UnixNano()
	row := b.rows[key]
	if row == nil {
		row = make(map[string]float64)
		b.rows[key] = row
		b.locs[key] = ts
	}

	if _, dup := row[column]; dup {
		switch b.policy {
		case DuplicateKeepFirst:
			return nil
		case DuplicateKeepLast:
			row[column] = v
			return nil
		default:
			return &DuplicateTimestampError{Source: b.source, Column: column, Timestamp: ts}
		}
	}
	row[column] = v
	return nil
}

// Table assembles the accumulated observations into a sorted table. Cells
// never written hold the missing marker.
func (b *Builder) Table() *Table {
	keys := make([]int64, 0, len(b.rows))
	for k := range b.rows {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	out := New()
	out.index = make([]time.Time, len(keys))
	for i, k := range keys {
		out.index[i] = b.locs[k]
	}

	for _, name := range b.colOrder {
		col := &Column{Name: name, Unit: b.colUnits[name], Values: make([]float64, len(keys))}
		for i, k := range keys {
			if v, ok := b.rows[k][name]; ok {
				col.Values[i] = v
			} else {
				col.Values[i] = Missing()
			}
		}
		out.columns = append(out.columns, col)
		out.byName[name] = col
	}
	return out
}
