package plotters

import (
	"fmt"
	"log"
	"time"

	"gonum.org/v1/plot/plotter"

	"github.com/suiviconso/suiviconso/internal/pipeline"
	"github.com/suiviconso/suiviconso/internal/table"
	"github.com/suiviconso/suiviconso/internal/timeutil"
)

// dailyPlotter aggregates to one value per calendar day and overlays each
// covered year as its own series on a Jan..Dec axis.
type dailyPlotter struct {
	sink    artifactSink
	vars    []string
	agg     table.AggFunc
	rolling int
}

func newDailyPlotter(o *pipeline.Options) (pipeline.Module, error) {
	sink, err := newArtifactSink(o)
	if err != nil {
		return nil, err
	}
	p := &dailyPlotter{sink: sink, agg: table.AggSum}

	if p.vars, err = o.StringList("variables"); err != nil {
		return nil, err
	}
	aggName, err := o.StringOr("aggregate", string(table.AggSum))
	if err != nil {
		return nil, err
	}
	if p.agg, err = table.ParseAggFunc(aggName); err != nil {
		return nil, &pipeline.InvalidOptionError{Kind: "daily_plotter", Key: "aggregate", Reason: err.Error()}
	}
	if p.rolling, err = o.IntOr("rolling_average_days", 1); err != nil {
		return nil, err
	}
	if p.rolling < 1 {
		return nil, &pipeline.InvalidOptionError{Kind: "daily_plotter", Key: "rolling_average_days", Reason: "must be at least 1"}
	}
	return p, o.Finish()
}

func (p *dailyPlotter) Kind() string { return "daily_plotter" }

func (p *dailyPlotter) Render(t *table.Table) error {
	vars, err := selectVariables(t, p.vars)
	if err != nil {
		return err
	}
	daily, err := t.Resample(timeutil.Frequency{N: 1, Unit: timeutil.Day}, p.agg, nil)
	if err != nil {
		return err
	}
	if p.rolling > 1 {
		daily = rollingMean(daily, p.rolling)
	}
	if daily.Len() == 0 {
		log.Printf("daily_plotter: no data to plot")
		return nil
	}

	groups, err := splitRows(daily.Index(), sortByYear)
	if err != nil {
		return err
	}
	refYear := daily.Index()[0].Year()
	refLeap := isLeapYear(refYear)
	title := fmt.Sprintf("daily %s over the year", p.agg)
	log.Printf("daily_plotter: plotting %q for %v", title, vars)

	for _, name := range vars {
		col := daily.Column(name)
		var series []lineSeries
		for _, g := range groups {
			pts := make(plotter.XYs, 0, len(g.Rows))
			for _, i := range g.Rows {
				v := col.Values[i]
				if table.IsMissing(v) {
					continue
				}
				ts := daily.Index()[i]
				// A leap day has no position on a non-leap reference axis.
				if ts.Month() == time.February && ts.Day() == 29 && !refLeap {
					continue
				}
				mapped := time.Date(refYear, ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
				pts = append(pts, plotter.XY{X: float64(mapped.YearDay()), Y: v})
			}
			if len(pts) == 0 {
				log.Printf("daily_plotter: no data for %q in %q", name, g.Label)
				continue
			}
			series = append(series, lineSeries{label: g.Label, pts: pts})
		}
		if len(series) == 0 {
			log.Printf("daily_plotter: no data for %q", name)
			continue
		}
		path := p.sink.path(fmt.Sprintf("%s_daily_%s", name, p.agg))
		chartTitle := fmt.Sprintf("%s - %s", name, title)
		if err := renderLines(path, p.sink.format, chartTitle, "Day of year", axisLabel(col), series); err != nil {
			return err
		}
		log.Printf("daily_plotter: wrote %s", path)
	}
	return nil
}

// rollingMean smooths each column with a trailing window of n days. A window
// touching a missing value, or shorter than n, yields a missing value.
func rollingMean(t *table.Table, n int) *table.Table {
	out := t.Clone()
	for _, col := range out.Columns() {
		src := t.Column(col.Name).Values
		for i := range col.Values {
			if i < n-1 {
				col.Values[i] = table.Missing()
				continue
			}
			sum := 0.0
			ok := true
			for j := i - n + 1; j <= i; j++ {
				if table.IsMissing(src[j]) {
					ok = false
					break
				}
				sum += src[j]
			}
			if !ok {
				col.Values[i] = table.Missing()
			} else {
				col.Values[i] = sum / float64(n)
			}
		}
	}
	return out
}

func isLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}
