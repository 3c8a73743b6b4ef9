package table

import (
	"fmt"
	"math"

	"github.com/suiviconso/suiviconso/internal/timeutil"
)

// AggFunc names a per-bucket aggregation applied during resampling.
type AggFunc string

const (
	AggMean AggFunc = "mean"
	AggSum  AggFunc = "sum"
	AggMin  AggFunc = "min"
	AggMax  AggFunc = "max"
)

// ParseAggFunc validates an aggregation name from configuration.
func ParseAggFunc(s string) (AggFunc, error) {
	switch AggFunc(s) {
	case AggMean, AggSum, AggMin, AggMax:
		return AggFunc(s), nil
	}
	return "", fmt.Errorf("unknown aggregation %q (want mean, sum, min or max)", s)
}

// Aggregate reduces values with the function, skipping missing entries.
// A bucket holding only missing values yields the missing marker, never zero.
func (f AggFunc) Aggregate(values []float64) float64 {
	sum, count := 0.0, 0
	min, max := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if IsMissing(v) {
			continue
		}
		sum += v
		count++
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	if count == 0 {
		return Missing()
	}
	switch f {
	case AggSum:
		return sum
	case AggMin:
		return min
	case AggMax:
		return max
	default:
		return sum / float64(count)
	}
}

// Resample regroups rows into fixed-width buckets aligned to the frequency's
// canonical origin and replaces each bucket's rows with one aggregated row
// stamped at the bucket start. The output index runs contiguously from the
// first to the last covered bucket, so gaps in the source come out as missing
// rows rather than holes in the frequency. perColumn overrides the default
// aggregation and must reference existing columns.
func (t *Table) Resample(freq timeutil.Frequency, def AggFunc, perColumn map[string]AggFunc) (*Table, error) {
	for name := range perColumn {
		if t.byName[name] == nil {
			return nil, &UnknownColumnError{Name: name, Available: t.ColumnNames()}
		}
	}

	out := New()
	if len(t.index) == 0 {
		for _, c := range t.columns {
			cc := &Column{Name: c.Name, Unit: c.Unit}
			out.columns = append(out.columns, cc)
			out.byName[cc.Name] = cc
		}
		return out, nil
	}

	// Contiguous buckets from the first to the last covered instant, so the
	// output index has a fixed frequency. Gap buckets aggregate zero rows and
	// come out as missing.
	var bounds []int
	last := t.index[len(t.index)-1]
	lo := 0
	for start := freq.BucketStart(t.index[0]); !start.After(last); start = freq.Next(start) {
		next := freq.Next(start)
		hi := lo
		for hi < len(t.index) && t.index[hi].Before(next) {
			hi++
		}
		out.index = append(out.index, start)
		bounds = append(bounds, hi)
		lo = hi
	}

	for _, c := range t.columns {
		agg := def
		if a, ok := perColumn[c.Name]; ok {
			agg = a
		}
		cc := &Column{Name: c.Name, Unit: c.Unit, Values: make([]float64, len(bounds))}
		prev := 0
		for k, hi := range bounds {
			cc.Values[k] = agg.Aggregate(c.Values[prev:hi])
			prev = hi
		}
		out.columns = append(out.columns, cc)
		out.byName[cc.Name] = cc
	}
	return out, nil
}
