package table

import "time"

// Merge combines another table into t via an outer join on the timestamp
// index and returns the merged table. Timestamps present on only one side are
// kept, with missing markers filling the other side's columns.
//
// Columns present on both sides concatenate as long as they never hold two
// non-missing values at the same timestamp (the disjoint-range case produced
// by per-period exports of the same quantity); any overlapping value is a
// ColumnCollisionError, resolved by aliasing one reader's output. A shared
// column must also agree on its unit label: an unlabelled side adopts the
// other's label, two distinct labels are a UnitMismatchError.
func (t *Table) Merge(other *Table) (*Table, error) {
	if other == nil || other.Empty() {
		return t, nil
	}
	if t.Empty() {
		return other, nil
	}

	index := unionIndex(t.index, other.index)
	pos := make(map[int64]int, len(index))
	for i, ts := range index {
		pos[ts.UnixNano()] = i
	}

	out := New()
	out.index = index

	place := func(c *Column, src []time.Time) error {
		dst := out.byName[c.Name]
		if dst == nil {
			dst = &Column{Name: c.Name, Unit: c.Unit, Values: make([]float64, len(index))}
			for i := range dst.Values {
				dst.Values[i] = Missing()
			}
			out.columns = append(out.columns, dst)
			out.byName[c.Name] = dst
		}
		// An unlabelled fragment adopts the other side's unit; two distinct
		// labels on one name mean the sources measure different quantities.
		switch {
		case dst.Unit == "":
			dst.Unit = c.Unit
		case c.Unit != "" && c.Unit != dst.Unit:
			return &UnitMismatchError{Name: c.Name, Got: c.Unit, Want: dst.Unit}
		}
		for i, ts := range src {
			v := c.Values[i]
			if IsMissing(v) {
				continue
			}
			j := pos[ts.UnixNano()]
			if !IsMissing(dst.Values[j]) {
				return &ColumnCollisionError{Name: c.Name}
			}
			dst.Values[j] = v
		}
		return nil
	}

	for _, c := range t.columns {
		if err := place(c, t.index); err != nil {
			return nil, err
		}
	}
	for _, c := range other.columns {
		if err := place(c, other.index); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// unionIndex merges two sorted timestamp slices, dropping duplicates.
func unionIndex(a, b []time.Time) []time.Time {
	out := make([]time.Time, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		an, bn := a[i].UnixNano(), b[j].UnixNano()
		switch {
		case an < bn:
			out = append(out, a[i])
			i++
		case an > bn:
			out = append(out, b[j])
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}
