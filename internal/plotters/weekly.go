package plotters

import (
	"fmt"
	"log"
	"math"
	"sort"

	"gonum.org/v1/plot/plotter"

	"github.com/suiviconso/suiviconso/internal/pipeline"
	"github.com/suiviconso/suiviconso/internal/table"
	"github.com/suiviconso/suiviconso/internal/timeutil"
)

// weeklyPlotter profiles each variable over the seven days of the week,
// with a grey step overlay showing the plain per-weekday daily mean.
type weeklyPlotter struct {
	sink   artifactSink
	vars   []string
	sortBy string
}

func newWeeklyPlotter(o *pipeline.Options) (pipeline.Module, error) {
	sink, err := newArtifactSink(o)
	if err != nil {
		return nil, err
	}
	p := &weeklyPlotter{sink: sink}

	if p.vars, err = o.StringList("variables"); err != nil {
		return nil, err
	}
	if p.sortBy, err = o.Enum("sort_by", sortByYear, sortByYear, sortByHotCold, sortByWeekend, sortByQuarter); err != nil {
		return nil, err
	}
	return p, o.Finish()
}

func (p *weeklyPlotter) Kind() string { return "weekly_plotter" }

func (p *weeklyPlotter) Render(t *table.Table) error {
	vars, err := selectVariables(t, p.vars)
	if err != nil {
		return err
	}
	groups, err := splitRows(t.Index(), p.sortBy)
	if err != nil {
		return err
	}
	daily, err := t.Resample(timeutil.Frequency{N: 1, Unit: timeutil.Day}, table.AggMean, nil)
	if err != nil {
		return err
	}
	log.Printf("weekly_plotter: plotting trend over the week for %v", vars)

	for _, name := range vars {
		col := t.Column(name)
		var series []lineSeries
		for _, g := range groups {
			pts := weekProfile(t, col, g.Rows)
			if len(pts) == 0 {
				log.Printf("weekly_plotter: no data for %q in %q", name, g.Label)
				continue
			}
			series = append(series, lineSeries{label: g.Label, pts: pts})
		}
		if len(series) == 0 {
			log.Printf("weekly_plotter: no data for %q", name)
			continue
		}
		if step := dailyMeanStep(daily, name); step != nil {
			series = append(series, lineSeries{label: "Daily mean", pts: step, step: true})
		}
		path := p.sink.path(fmt.Sprintf("%s_weekly", name))
		chartTitle := fmt.Sprintf("%s - trend over the week", name)
		if err := renderLines(path, p.sink.format, chartTitle, "Day of week (Mon=0)", axisLabel(col), series); err != nil {
			return err
		}
		log.Printf("weekly_plotter: wrote %s", path)
	}
	return nil
}

// weekProfile averages a column by position within the week: weekday plus
// the fraction of day elapsed, rounded to two decimals so sub-hour stamps
// from different weeks land on shared slots.
func weekProfile(t *table.Table, col *table.Column, rows []int) plotter.XYs {
	byDay := make(map[float64][]float64)
	for _, i := range rows {
		v := col.Values[i]
		if table.IsMissing(v) {
			continue
		}
		ts := t.Index()[i]
		frac := (float64(ts.Hour()) + float64(ts.Minute())/60.0) / 24.0
		day := math.Round((float64(mondayWeekday(ts))+frac)*100) / 100
		byDay[day] = append(byDay[day], v)
	}
	if len(byDay) == 0 {
		return nil
	}

	days := make([]float64, 0, len(byDay))
	for d := range byDay {
		days = append(days, d)
	}
	sort.Float64s(days)

	pts := make(plotter.XYs, 0, len(days))
	for _, d := range days {
		pts = append(pts, plotter.XY{X: d, Y: table.AggMean.Aggregate(byDay[d])})
	}
	return pts
}

// dailyMeanStep builds the reference overlay: mean of the daily means per
// weekday, centred on each day and extended to the week's edges.
func dailyMeanStep(daily *table.Table, name string) plotter.XYs {
	col := daily.Column(name)
	if col == nil {
		return nil
	}
	byDay := make(map[int][]float64)
	for i, ts := range daily.Index() {
		v := col.Values[i]
		if table.IsMissing(v) {
			continue
		}
		byDay[mondayWeekday(ts)] = append(byDay[mondayWeekday(ts)], v)
	}
	if len(byDay) == 0 {
		return nil
	}

	pts := make(plotter.XYs, 0, len(byDay)+2)
	for wd := 0; wd < 7; wd++ {
		values, ok := byDay[wd]
		if !ok {
			continue
		}
		pts = append(pts, plotter.XY{X: float64(wd) + 0.5, Y: table.AggMean.Aggregate(values)})
	}
	// Extend flat to the week's boundaries so the step spans 0..7.
	first, last := pts[0], pts[len(pts)-1]
	pts = append(plotter.XYs{{X: 0, Y: first.Y}}, pts...)
	pts = append(pts, plotter.XY{X: 7, Y: last.Y})
	return pts
}
