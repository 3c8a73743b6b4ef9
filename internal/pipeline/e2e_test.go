package pipeline_test

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/suiviconso/suiviconso/internal/filters"
	"github.com/suiviconso/suiviconso/internal/pipeline"
	"github.com/suiviconso/suiviconso/internal/plotters"
	"github.com/suiviconso/suiviconso/internal/readers"
)

// fullRegistry assembles the registry exactly as the command-line entry
// point does.
func fullRegistry() *pipeline.Registry {
	reg := pipeline.NewRegistry()
	readers.Register(reg)
	filters.Register(reg)
	plotters.Register(reg)
	return reg
}

// writeHourlyCSV generates days of hourly rows for the named columns, with
// deterministic values so downstream assertions stay simple.
func writeHourlyCSV(t *testing.T, path string, start time.Time, days int, cols ...string) {
	t.Helper()
	var sb strings.Builder
	sb.WriteString("time," + strings.Join(cols, ",") + "\n")
	for i := 0; i < days*24; i++ {
		ts := start.Add(time.Duration(i) * time.Hour)
		sb.WriteString(ts.Format("2006-01-02 15:04:05"))
		for range cols {
			sb.WriteString(fmt.Sprintf(",%d", i%24))
		}
		sb.WriteString("\n")
	}
	require.NoError(t, os.WriteFile(path, []byte(sb.String()), 0644))
}

func runConfig(t *testing.T, yaml string) error {
	t.Helper()
	sections, err := pipeline.LoadConfig(strings.NewReader(yaml))
	require.NoError(t, err)
	p, err := pipeline.New(fullRegistry(), sections)
	if err != nil {
		return err
	}
	return p.Run()
}

func readDump(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func TestEndToEndSliceAndReport(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "house.csv")
	writeHourlyCSV(t, src, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), 10, "Electricity")
	dump := filepath.Join(dir, "out.csv")

	err := runConfig(t, fmt.Sprintf(`
csv_reader house:
  file_path: %s
  units:
    Electricity: kWh
basic_filter:
  start_date: "2023-01-03"
  end_date: "2023-01-07 23:00"
info_printer:
  to_csv_file: %s
`, src, dump))
	require.NoError(t, err)

	records := readDump(t, dump)
	require.Len(t, records, 1+5*24, "header plus the middle five days")
	for _, rec := range records[1:] {
		require.NotEmpty(t, rec[1], "fully covered slice must have no missing cells")
	}
}

func TestEndToEndTwoReadersOuterJoin(t *testing.T) {
	dir := t.TempDir()
	elec := filepath.Join(dir, "elec.csv")
	gas := filepath.Join(dir, "gas.csv")
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	writeHourlyCSV(t, elec, start, 3, "Electricity")
	// Overlaps the last two days and adds one more.
	writeHourlyCSV(t, gas, start.AddDate(0, 0, 1), 3, "Gas")
	dump := filepath.Join(dir, "out.csv")

	err := runConfig(t, fmt.Sprintf(`
csv_reader elec:
  file_path: %s
csv_reader gas:
  file_path: %s
info_printer:
  to_csv_file: %s
`, elec, gas, dump))
	require.NoError(t, err)

	records := readDump(t, dump)
	require.Len(t, records, 1+4*24, "union of the two covered spans")
	require.Equal(t, []string{"time", "Electricity", "Gas"}, records[0])

	// First day has no gas, last day no electricity.
	require.Empty(t, records[1][2])
	require.NotEmpty(t, records[1][1])
	last := records[len(records)-1]
	require.Empty(t, last[1])
	require.NotEmpty(t, last[2])
}

func TestEndToEndColumnCollisionIsFatal(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.csv")
	b := filepath.Join(dir, "b.csv")
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	writeHourlyCSV(t, a, start, 1, "Electricity")
	writeHourlyCSV(t, b, start, 1, "Electricity")

	err := runConfig(t, fmt.Sprintf(`
csv_reader a:
  file_path: %s
csv_reader b:
  file_path: %s
`, a, b))
	var stageErr *pipeline.StageError
	require.ErrorAs(t, err, &stageErr)
	require.Equal(t, pipeline.RoleReader, stageErr.Role)
}

func TestEndToEndAliasResolvesCollision(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.csv")
	b := filepath.Join(dir, "b.csv")
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	writeHourlyCSV(t, a, start, 1, "Electricity")
	writeHourlyCSV(t, b, start, 1, "Electricity")
	dump := filepath.Join(dir, "out.csv")

	err := runConfig(t, fmt.Sprintf(`
csv_reader a:
  file_path: %s
csv_reader b:
  file_path: %s
  columns:
    Electricity: Electricity annex
info_printer:
  to_csv_file: %s
`, a, b, dump))
	require.NoError(t, err)

	records := readDump(t, dump)
	require.Equal(t, []string{"time", "Electricity", "Electricity annex"}, records[0])
}

func TestEndToEndPlotterFailureDoesNotBlockNext(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "house.csv")
	writeHourlyCSV(t, src, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), 2, "Electricity")
	dump := filepath.Join(dir, "out.csv")

	// The daily plotter names a column that does not exist; the run must
	// still reach the info printer and exit cleanly.
	err := runConfig(t, fmt.Sprintf(`
csv_reader:
  file_path: %s
daily_plotter:
  output_dir: %s
  variables: Water
info_printer:
  to_csv_file: %s
`, src, dir, dump))
	require.NoError(t, err)
	require.FileExists(t, dump)
}

func TestEndToEndUnknownKindFailsBeforeRunning(t *testing.T) {
	err := runConfig(t, "sparkline_plotter:\n  variables: Electricity\n")
	var unknown *pipeline.UnknownKindError
	require.ErrorAs(t, err, &unknown)
}
