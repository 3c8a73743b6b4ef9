package plotters

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

const (
	formatPNG  = "png"
	formatHTML = "html"
)

// lineSeries is one labelled polyline of a chart. Step series render as a
// mid-step line in grey, used for reference overlays.
type lineSeries struct {
	label string
	pts   plotter.XYs
	step  bool
}

// renderLines writes a multi-series line chart to path in the sink's format.
func renderLines(path, format, title, xLabel, yLabel string, series []lineSeries) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	if format == formatHTML {
		return renderLinesHTML(path, title, xLabel, yLabel, series)
	}
	return renderLinesPNG(path, title, xLabel, yLabel, series)
}

func renderLinesPNG(path, title, xLabel, yLabel string, series []lineSeries) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel

	colors := generateColors(len(series))
	for i, s := range series {
		ln, err := plotter.NewLine(s.pts)
		if err != nil {
			return err
		}
		if s.step {
			ln.StepStyle = plotter.MidStep
			ln.Color = color.Gray{Y: 150}
			ln.Dashes = []vg.Length{vg.Points(3), vg.Points(3)}
		} else {
			ln.Color = colors[i]
			ln.Width = vg.Points(1)
		}
		p.Add(ln)
		p.Legend.Add(s.label, ln)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	if err := p.Save(10*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("save plot: %w", err)
	}
	return nil
}

func renderLinesHTML(path, title, xLabel, yLabel string, series []lineSeries) error {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "1000px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: xLabel, NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: yLabel, NameLocation: "middle", NameGap: 40}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	for _, s := range series {
		data := make([]opts.LineData, 0, len(s.pts))
		for _, xy := range s.pts {
			data = append(data, opts.LineData{Value: []interface{}{xy.X, xy.Y}})
		}
		line.AddSeries(s.label, data)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create chart file: %w", err)
	}
	defer f.Close()
	if err := line.Render(f); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}

// renderScatter writes a single-series scatter chart to path.
func renderScatter(path, format, title, xLabel, yLabel, label string, pts plotter.XYs) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	if format == formatHTML {
		return renderScatterHTML(path, title, xLabel, yLabel, label, pts)
	}
	return renderScatterPNG(path, title, xLabel, yLabel, label, pts)
}

func renderScatterPNG(path, title, xLabel, yLabel, label string, pts plotter.XYs) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel

	sc, err := plotter.NewScatter(pts)
	if err != nil {
		return err
	}
	sc.GlyphStyle.Radius = vg.Points(2)
	sc.GlyphStyle.Color = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	p.Add(sc)
	p.Legend.Add(label, sc)
	p.Legend.Top = true

	if err := p.Save(8*vg.Inch, 8*vg.Inch, path); err != nil {
		return fmt.Errorf("save plot: %w", err)
	}
	return nil
}

func renderScatterHTML(path, title, xLabel, yLabel, label string, pts plotter.XYs) error {
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "800px", Height: "800px"}),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: xLabel, NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: yLabel, NameLocation: "middle", NameGap: 40}),
	)
	data := make([]opts.ScatterData, 0, len(pts))
	for _, xy := range pts {
		data = append(data, opts.ScatterData{Value: []interface{}{xy.X, xy.Y}})
	}
	scatter.AddSeries(label, data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 4}))

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create chart file: %w", err)
	}
	defer f.Close()
	if err := scatter.Render(f); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}

// generateColors creates a palette of distinct colors for overlaid series.
func generateColors(n int) []color.Color {
	if n <= 0 {
		return nil
	}
	colors := make([]color.Color, n)
	for i := 0; i < n; i++ {
		hue := float64(i) / float64(n)
		r, g, b := hslToRGB(hue, 0.7, 0.5)
		colors[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return colors
}

// hslToRGB converts HSL to RGB (0-255 range)
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	var rf, gf, bf float64

	if s == 0 {
		rf, gf, bf = l, l, l
	} else {
		var q float64
		if l < 0.5 {
			q = l * (1 + s)
		} else {
			q = l + s - l*s
		}
		p := 2*l - q
		rf = hueToRGB(p, q, h+1.0/3.0)
		gf = hueToRGB(p, q, h)
		bf = hueToRGB(p, q, h-1.0/3.0)
	}

	return uint8(rf * 255), uint8(gf * 255), uint8(bf * 255)
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t += 1
	}
	if t > 1 {
		t -= 1
	}
	if t < 1.0/6.0 {
		return p + (q-p)*6*t
	}
	if t < 1.0/2.0 {
		return q
	}
	if t < 2.0/3.0 {
		return p + (q-p)*(2.0/3.0-t)*6
	}
	return p
}
