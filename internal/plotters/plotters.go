// Package plotters implements the pipeline's terminal modules: chart
// rendering and report printing. Plotters never mutate the table they are
// given.
package plotters

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/suiviconso/suiviconso/internal/pipeline"
	"github.com/suiviconso/suiviconso/internal/table"
)

// Register adds all plotter kinds to the registry.
func Register(reg *pipeline.Registry) {
	reg.Register("info_printer", pipeline.RolePlotter, newInfoPrinter)
	reg.Register("daily_plotter", pipeline.RolePlotter, newDailyPlotter)
	reg.Register("hourly_plotter", pipeline.RolePlotter, newHourlyPlotter)
	reg.Register("weekly_plotter", pipeline.RolePlotter, newWeeklyPlotter)
	reg.Register("correlation_plotter", pipeline.RolePlotter, newCorrelationPlotter)
}

// artifactSink decides where a plotter's output files land and in which
// backend format. The orchestrator injects output_dir and format defaults
// from the command line; any section may override them.
type artifactSink struct {
	dir    string
	format string
}

func newArtifactSink(o *pipeline.Options) (artifactSink, error) {
	dir, err := o.StringOr("output_dir", "plots")
	if err != nil {
		return artifactSink{}, err
	}
	format, err := o.Enum("format", formatPNG, formatPNG, formatHTML)
	if err != nil {
		return artifactSink{}, err
	}
	return artifactSink{dir: dir, format: format}, nil
}

// path builds the artifact file path for a base name, sanitized so column
// names with spaces or slashes stay filesystem-safe.
func (s artifactSink) path(name string) string {
	return filepath.Join(s.dir, sanitizeArtifactName(name)+"."+s.format)
}

func sanitizeArtifactName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_':
			return r
		}
		return '_'
	}, name)
}

// selectVariables resolves the variables option against the table. An empty
// selection means every column; naming an absent column is an error.
func selectVariables(t *table.Table, names []string) ([]string, error) {
	if len(names) == 0 {
		return t.ColumnNames(), nil
	}
	for _, n := range names {
		if t.Column(n) == nil {
			return nil, &table.UnknownColumnError{Name: n, Available: t.ColumnNames()}
		}
	}
	return names, nil
}

// axisLabel appends the unit to a column name for axis labelling.
func axisLabel(col *table.Column) string {
	if col.Unit == "" {
		return col.Name
	}
	return fmt.Sprintf("%s (%s)", col.Name, col.Unit)
}

// rowGroup is one overlaid series produced by a sort_by split: a label plus
// the row positions belonging to it.
type rowGroup struct {
	Label string
	Rows  []int
}

const (
	sortByYear    = "year"
	sortByHotCold = "hot-cold"
	sortByWeekend = "weekend"
	sortByQuarter = "quarter"
)

// splitRows partitions the index rows by the sort_by condition. Group order
// is stable so legends come out the same across runs.
func splitRows(index []time.Time, sortBy string) ([]rowGroup, error) {
	switch sortBy {
	case sortByYear:
		byYear := make(map[int][]int)
		for i, ts := range index {
			byYear[ts.Year()] = append(byYear[ts.Year()], i)
		}
		years := make([]int, 0, len(byYear))
		for y := range byYear {
			years = append(years, y)
		}
		sort.Ints(years)
		groups := make([]rowGroup, 0, len(years))
		for _, y := range years {
			groups = append(groups, rowGroup{Label: fmt.Sprintf("%d", y), Rows: byYear[y]})
		}
		return groups, nil
	case sortByHotCold:
		cold := rowGroup{Label: "Nov-Apr"}
		hot := rowGroup{Label: "May-Oct"}
		for i, ts := range index {
			m := int(ts.Month())
			if 4 < m && m <= 10 {
				hot.Rows = append(hot.Rows, i)
			} else {
				cold.Rows = append(cold.Rows, i)
			}
		}
		return []rowGroup{cold, hot}, nil
	case sortByWeekend:
		work := rowGroup{Label: "Work day"}
		weekend := rowGroup{Label: "Weekend"}
		for i, ts := range index {
			switch ts.Weekday() {
			case time.Saturday, time.Sunday:
				weekend.Rows = append(weekend.Rows, i)
			default:
				work.Rows = append(work.Rows, i)
			}
		}
		return []rowGroup{work, weekend}, nil
	case sortByQuarter:
		groups := []rowGroup{{Label: "Q1"}, {Label: "Q2"}, {Label: "Q3"}, {Label: "Q4"}}
		for i, ts := range index {
			q := (int(ts.Month()) - 1) / 3
			groups[q].Rows = append(groups[q].Rows, i)
		}
		return groups, nil
	}
	return nil, fmt.Errorf("unrecognised sort_by condition %q", sortBy)
}

// mondayWeekday maps Go's Sunday-first weekday to a Monday-first 0..6 index.
func mondayWeekday(ts time.Time) int {
	return (int(ts.Weekday()) + 6) % 7
}
