package plotters

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/suiviconso/suiviconso/internal/pipeline"
	"github.com/suiviconso/suiviconso/internal/table"
)

// infoPrinter reports table shape and per-column statistics to the terminal.
// It produces no chart; the artifact defaults injected for plotters are
// accepted so a relative to_csv_file lands next to the other artifacts.
type infoPrinter struct {
	sink      artifactSink
	toCSVFile string
}

func newInfoPrinter(o *pipeline.Options) (pipeline.Module, error) {
	sink, err := newArtifactSink(o)
	if err != nil {
		return nil, err
	}
	p := &infoPrinter{sink: sink}
	if p.toCSVFile, err = o.StringOr("to_csv_file", ""); err != nil {
		return nil, err
	}
	return p, o.Finish()
}

func (p *infoPrinter) Kind() string { return "info_printer" }

func (p *infoPrinter) Render(t *table.Table) error {
	rule := strings.Repeat("-", 20)
	fmt.Printf("\n%s DATA INFO BEG %s\n", rule, rule)
	fmt.Printf("rows: %d\n", t.Len())
	if t.Len() > 0 {
		idx := t.Index()
		fmt.Printf("span: %s .. %s\n",
			idx[0].Format(time.RFC3339), idx[t.Len()-1].Format(time.RFC3339))
	}
	fmt.Printf("%-24s %-8s %8s %12s %12s %12s\n", "column", "unit", "count", "min", "max", "mean")
	for _, col := range t.Columns() {
		values := nonMissing(col.Values)
		if len(values) == 0 {
			fmt.Printf("%-24s %-8s %8d %12s %12s %12s\n", col.Name, col.Unit, 0, "-", "-", "-")
			continue
		}
		lo, hi := values[0], values[0]
		for _, v := range values[1:] {
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		fmt.Printf("%-24s %-8s %8d %12.3f %12.3f %12.3f\n",
			col.Name, col.Unit, len(values), lo, hi, stat.Mean(values, nil))
	}
	fmt.Printf("%s DATA INFO END %s\n\n", rule, rule)

	if p.toCSVFile != "" {
		path := p.toCSVFile
		if !filepath.IsAbs(path) {
			path = filepath.Join(p.sink.dir, path)
		}
		if err := dumpCSV(t, path); err != nil {
			return err
		}
		log.Printf("info_printer: dumped data to file %s", path)
	}
	return nil
}

func nonMissing(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !table.IsMissing(v) {
			out = append(out, v)
		}
	}
	return out
}

// dumpCSV writes the table with an RFC3339 time column; missing cells stay
// empty so a round trip through csv_reader reproduces the markers.
func dumpCSV(t *table.Table, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := append([]string{"time"}, t.ColumnNames()...)
	if err := w.Write(header); err != nil {
		return err
	}
	for i, ts := range t.Index() {
		record := make([]string, 0, len(header))
		record = append(record, ts.Format(time.RFC3339))
		for _, col := range t.Columns() {
			v := col.Values[i]
			if table.IsMissing(v) {
				record = append(record, "")
			} else {
				record = append(record, strconv.FormatFloat(v, 'g', -1, 64))
			}
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
