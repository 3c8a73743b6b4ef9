package plotters

import (
	"fmt"
	"log"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot/plotter"

	"github.com/suiviconso/suiviconso/internal/pipeline"
	"github.com/suiviconso/suiviconso/internal/table"
)

const defaultMinPoints = 10

// correlationPlotter scatters each x/y variable pair against each other and
// reports the Pearson coefficient. The pair is first averaged onto the
// coarser variable's native resolution so a 30-minute meter and a daily
// meter compare like for like.
type correlationPlotter struct {
	sink      artifactSink
	xVars     []string
	yVars     []string
	minPoints int
}

func newCorrelationPlotter(o *pipeline.Options) (pipeline.Module, error) {
	sink, err := newArtifactSink(o)
	if err != nil {
		return nil, err
	}
	p := &correlationPlotter{sink: sink}

	if p.xVars, err = o.StringList("x_vars"); err != nil {
		return nil, err
	}
	if p.yVars, err = o.StringList("y_vars"); err != nil {
		return nil, err
	}
	if p.minPoints, err = o.IntOr("min_points", defaultMinPoints); err != nil {
		return nil, err
	}
	if p.minPoints < 2 {
		return nil, &pipeline.InvalidOptionError{Kind: "correlation_plotter", Key: "min_points", Reason: "must be at least 2"}
	}
	return p, o.Finish()
}

func (p *correlationPlotter) Kind() string { return "correlation_plotter" }

func (p *correlationPlotter) Render(t *table.Table) error {
	xVars, err := selectVariables(t, p.xVars)
	if err != nil {
		return err
	}
	yVars, err := selectVariables(t, p.yVars)
	if err != nil {
		return err
	}

	plotted := make(map[string]bool)
	for _, x := range xVars {
		for _, y := range yVars {
			if x == y {
				continue
			}
			key := pairKey(x, y)
			if plotted[key] {
				continue
			}
			plotted[key] = true
			if err := p.renderPair(t, x, y); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *correlationPlotter) renderPair(t *table.Table, x, y string) error {
	title := fmt.Sprintf("%s vs %s", y, x)
	log.Printf("correlation_plotter: plotting %q", title)

	interval := pairInterval(t, x, y)
	xs, ys := alignPair(t, x, y, interval)
	if len(xs) < p.minPoints {
		log.Printf("correlation_plotter: skipping %q, only %d jointly valid points (want %d)",
			title, len(xs), p.minPoints)
		return nil
	}

	r := stat.Correlation(xs, ys, nil)
	pts := make(plotter.XYs, len(xs))
	for i := range xs {
		pts[i] = plotter.XY{X: xs[i], Y: ys[i]}
	}

	label := fmt.Sprintf("mean values over %s", interval)
	if interval == 0 {
		label = "shared samples"
	}
	path := p.sink.path(fmt.Sprintf("%s_vs_%s", y, x))
	chartTitle := fmt.Sprintf("%s (r = %.2f)", title, r)
	if err := renderScatter(path, p.sink.format, chartTitle,
		axisLabel(t.Column(x)), axisLabel(t.Column(y)), label, pts); err != nil {
		return err
	}
	log.Printf("correlation_plotter: wrote %s", path)
	return nil
}

// pairInterval picks the resolution to compare a pair at: the median spacing
// of whichever variable has fewer readings. Zero means too few readings to
// estimate, in which case the pair is compared on raw shared timestamps.
func pairInterval(t *table.Table, x, y string) time.Duration {
	name := x
	if t.NonMissingCount(y) < t.NonMissingCount(x) {
		name = y
	}
	col := t.Column(name)

	var diffs []time.Duration
	var prev *time.Time
	for i, ts := range t.Index() {
		if table.IsMissing(col.Values[i]) {
			continue
		}
		if prev != nil {
			diffs = append(diffs, ts.Sub(*prev))
		}
		cur := ts
		prev = &cur
	}
	if len(diffs) == 0 {
		return 0
	}
	sort.Slice(diffs, func(a, b int) bool { return diffs[a] < diffs[b] })
	return diffs[len(diffs)/2]
}

// alignPair buckets both columns onto the interval grid with a mean and
// keeps only buckets where both sides have a value.
func alignPair(t *table.Table, x, y string, interval time.Duration) (xs, ys []float64) {
	xCol, yCol := t.Column(x), t.Column(y)

	type bucket struct {
		xv, yv []float64
	}
	buckets := make(map[int64]*bucket)
	var order []int64
	for i, ts := range t.Index() {
		key := ts.UnixNano()
		if interval > 0 {
			key = ts.Truncate(interval).UnixNano()
		}
		b, ok := buckets[key]
		if !ok {
			b = &bucket{}
			buckets[key] = b
			order = append(order, key)
		}
		if !table.IsMissing(xCol.Values[i]) {
			b.xv = append(b.xv, xCol.Values[i])
		}
		if !table.IsMissing(yCol.Values[i]) {
			b.yv = append(b.yv, yCol.Values[i])
		}
	}

	for _, key := range order {
		b := buckets[key]
		if len(b.xv) == 0 || len(b.yv) == 0 {
			continue
		}
		xs = append(xs, stat.Mean(b.xv, nil))
		ys = append(ys, stat.Mean(b.yv, nil))
	}
	return xs, ys
}

func pairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "\x00" + b
}
