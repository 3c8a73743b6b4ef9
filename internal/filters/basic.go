// Package filters implements the pipeline's filter modules, which transform
// the canonical table between readers and plotters.
package filters

import (
	"log"
	"time"

	"github.com/suiviconso/suiviconso/internal/pipeline"
	"github.com/suiviconso/suiviconso/internal/table"
	"github.com/suiviconso/suiviconso/internal/timeutil"
)

// Register adds all filter kinds to the registry.
func Register(reg *pipeline.Registry) {
	reg.Register("basic_filter", pipeline.RoleFilter, newBasicFilter)
}

// basicFilter resamples and time-slices the table. Within one section the
// resample runs before the slice; declaring two sections in the other order
// gives slice-then-resample, and the two orderings legitimately differ in
// boundary buckets.
type basicFilter struct {
	freq       *timeutil.Frequency
	defaultAgg table.AggFunc
	perColumn  map[string]table.AggFunc
	start      *time.Time
	end        *time.Time
	drop       []string
}

func newBasicFilter(o *pipeline.Options) (pipeline.Module, error) {
	f := &basicFilter{defaultAgg: table.AggMean}

	loc, err := o.Location("timezone")
	if err != nil {
		return nil, err
	}

	freqStr, err := o.StringOr("resample", "")
	if err != nil {
		return nil, err
	}
	if freqStr != "" {
		freq, perr := timeutil.Parse(freqStr)
		if perr != nil {
			return nil, &pipeline.InvalidOptionError{Kind: "basic_filter", Key: "resample", Reason: perr.Error()}
		}
		f.freq = &freq
	}

	// aggregate is either one function name applied to every column or a
	// per-column mapping; unmapped columns fall back to the mean.
	if raw, aerr := o.StringOr("aggregate", ""); aerr == nil && raw != "" {
		agg, perr := table.ParseAggFunc(raw)
		if perr != nil {
			return nil, &pipeline.InvalidOptionError{Kind: "basic_filter", Key: "aggregate", Reason: perr.Error()}
		}
		f.defaultAgg = agg
	} else if aerr != nil {
		m, merr := o.StringMap("aggregate")
		if merr != nil {
			return nil, &pipeline.InvalidOptionError{Kind: "basic_filter", Key: "aggregate", Reason: "want a function name or a column mapping"}
		}
		f.perColumn = make(map[string]table.AggFunc, len(m))
		for col, name := range m {
			agg, perr := table.ParseAggFunc(name)
			if perr != nil {
				return nil, &pipeline.InvalidOptionError{Kind: "basic_filter", Key: "aggregate", Reason: perr.Error()}
			}
			f.perColumn[col] = agg
		}
	}

	if f.start, err = o.Date("start_date", loc); err != nil {
		return nil, err
	}
	if f.end, err = o.Date("end_date", loc); err != nil {
		return nil, err
	}
	if f.start != nil && f.end != nil && f.end.Before(*f.start) {
		return nil, &pipeline.InvalidOptionError{Kind: "basic_filter", Key: "end_date", Reason: "end_date is before start_date"}
	}
	if f.drop, err = o.StringList("drop_columns"); err != nil {
		return nil, err
	}

	return f, o.Finish()
}

func (f *basicFilter) Kind() string { return "basic_filter" }

func (f *basicFilter) Apply(t *table.Table) (*table.Table, error) {
	if f.freq != nil {
		log.Printf("basic_filter: resampling to %s", f.freq)
		next, err := t.Resample(*f.freq, f.defaultAgg, f.perColumn)
		if err != nil {
			return nil, err
		}
		t = next
	}

	if f.start != nil || f.end != nil {
		if f.start != nil {
			log.Printf("basic_filter: removing data before %s", f.start.Format(time.RFC3339))
		}
		if f.end != nil {
			log.Printf("basic_filter: removing data after %s", f.end.Format(time.RFC3339))
		}
		t = t.Slice(f.start, f.end)
	}

	if len(f.drop) > 0 {
		for _, name := range f.drop {
			if t.Column(name) == nil {
				return nil, &table.UnknownColumnError{Name: name, Available: t.ColumnNames()}
			}
		}
		log.Printf("basic_filter: dropping columns %v", f.drop)
		t.DropColumns(f.drop...)
	}

	return t, nil
}
