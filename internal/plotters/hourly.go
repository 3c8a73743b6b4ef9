package plotters

import (
	"fmt"
	"log"
	"sort"

	"gonum.org/v1/plot/plotter"

	"github.com/suiviconso/suiviconso/internal/pipeline"
	"github.com/suiviconso/suiviconso/internal/table"
)

// minProfileHours is the least populated hour slots a split series needs
// before it is worth drawing.
const minProfileHours = 12

// hourlyPlotter profiles each variable over the 24 hours of the day,
// aggregating across every covered day, optionally split into overlaid
// series by a calendar condition.
type hourlyPlotter struct {
	sink   artifactSink
	vars   []string
	sortBy string
	agg    table.AggFunc
}

func newHourlyPlotter(o *pipeline.Options) (pipeline.Module, error) {
	sink, err := newArtifactSink(o)
	if err != nil {
		return nil, err
	}
	p := &hourlyPlotter{sink: sink, agg: table.AggMean}

	if p.vars, err = o.StringList("variables"); err != nil {
		return nil, err
	}
	if p.sortBy, err = o.Enum("sort_by", sortByYear, sortByYear, sortByHotCold, sortByWeekend, sortByQuarter); err != nil {
		return nil, err
	}
	aggName, err := o.StringOr("aggregate", string(table.AggMean))
	if err != nil {
		return nil, err
	}
	if p.agg, err = table.ParseAggFunc(aggName); err != nil {
		return nil, &pipeline.InvalidOptionError{Kind: "hourly_plotter", Key: "aggregate", Reason: err.Error()}
	}
	return p, o.Finish()
}

func (p *hourlyPlotter) Kind() string { return "hourly_plotter" }

func (p *hourlyPlotter) Render(t *table.Table) error {
	vars, err := selectVariables(t, p.vars)
	if err != nil {
		return err
	}
	groups, err := splitRows(t.Index(), p.sortBy)
	if err != nil {
		return err
	}
	title := fmt.Sprintf("hourly %s over the day", p.agg)
	log.Printf("hourly_plotter: plotting %q for %v", title, vars)

	for _, name := range vars {
		col := t.Column(name)
		var series []lineSeries
		for _, g := range groups {
			pts := p.profile(t, col, g.Rows)
			if pts == nil {
				log.Printf("hourly_plotter: insufficient data for %q in %q", name, g.Label)
				continue
			}
			series = append(series, lineSeries{label: g.Label, pts: pts})
		}
		if len(series) == 0 {
			log.Printf("hourly_plotter: no data for %q", name)
			continue
		}
		path := p.sink.path(fmt.Sprintf("%s_hourly_%s", name, p.agg))
		chartTitle := fmt.Sprintf("%s - %s", name, title)
		if err := renderLines(path, p.sink.format, chartTitle, "Hour", axisLabel(col), series); err != nil {
			return err
		}
		log.Printf("hourly_plotter: wrote %s", path)
	}
	return nil
}

// profile aggregates a column by fractional hour of day over the given rows.
// Sub-hour timestamps land on fractional slots (08:30 is 8.5), so mixed
// resolutions keep their shape. Returns nil when fewer than minProfileHours
// slots hold data.
func (p *hourlyPlotter) profile(t *table.Table, col *table.Column, rows []int) plotter.XYs {
	byHour := make(map[float64][]float64)
	for _, i := range rows {
		v := col.Values[i]
		if table.IsMissing(v) {
			continue
		}
		ts := t.Index()[i]
		h := float64(ts.Hour()) + float64(ts.Minute())/60.0
		byHour[h] = append(byHour[h], v)
	}
	if len(byHour) < minProfileHours {
		return nil
	}

	hours := make([]float64, 0, len(byHour))
	for h := range byHour {
		hours = append(hours, h)
	}
	sort.Float64s(hours)

	pts := make(plotter.XYs, 0, len(hours)+1)
	for _, h := range hours {
		pts = append(pts, plotter.XY{X: h, Y: p.agg.Aggregate(byHour[h])})
	}
	// Close the daily loop: hour 24 repeats the first slot.
	pts = append(pts, plotter.XY{X: 24, Y: pts[0].Y})
	return pts
}
