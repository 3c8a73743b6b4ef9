package readers

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/suiviconso/suiviconso/internal/pipeline"
	"github.com/suiviconso/suiviconso/internal/table"
	"github.com/suiviconso/suiviconso/internal/units"
)

// EDF "suivi conso" exports: one directory per supply point, one file per
// reporting period. Electricity exports carry one row per 30 minutes with
// the average power draw in watts; gas exports carry one row per day in
// cubic meters. Both use ';' separators, d/m/y dates and a free-form
// preamble before the data rows.

const (
	defaultElecGlob = "mes-puissances-atteintes-30min-*.csv"
	defaultGazGlob  = "ma-conso-quotidienne-*.csv"
)

// discoverExports lists the files matching glob under dir, sorted by name so
// period order is stable.
func discoverExports(kind, dir, glob string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, glob))
	if err != nil {
		return nil, fmt.Errorf("%s: bad glob %q: %w", kind, glob, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("%s: no files matching %q in %s, check data dir", kind, glob, dir)
	}
	sort.Strings(matches)
	return matches, nil
}

// overlapGuard rejects timestamps already contributed by an earlier export
// file. Vendor exports are assumed non-overlapping by construction, so an
// overlap means a mixed-up data directory.
type overlapGuard struct {
	kind string
	seen map[int64]string
}

func newOverlapGuard(kind string) *overlapGuard {
	return &overlapGuard{kind: kind, seen: make(map[int64]string)}
}

func (g *overlapGuard) admit(frag *table.Table, file string) error {
	for _, ts := range frag.Index() {
		if prev, ok := g.seen[ts.UnixNano()]; ok {
			return &table.DuplicateTimestampError{
				Source:    fmt.Sprintf("%s (already in %s)", file, prev),
				Timestamp: ts,
			}
		}
		g.seen[ts.UnixNano()] = file
	}
	return nil
}

// logGaps reports index gaps wider than the sampling interval. Gaps are kept
// as-is, never interpolated.
func logGaps(kind string, frag *table.Table, interval time.Duration) {
	idx := frag.Index()
	gaps := 0
	for i := 1; i < len(idx); i++ {
		if idx[i].Sub(idx[i-1]) > interval {
			gaps++
		}
	}
	if gaps > 0 {
		log.Printf("%s: %d gaps wider than %s preserved as missing", kind, gaps, interval)
	}
}

// edfElecReader reads EDF 30-minute electricity exports.
type edfElecReader struct {
	dir      string
	glob     string
	variable string
	loc      *time.Location
}

func newEDFElecReader(o *pipeline.Options) (pipeline.Module, error) {
	r := &edfElecReader{}
	var err error
	if r.dir, err = o.ExistingDir("dir_path"); err != nil {
		return nil, err
	}
	if r.glob, err = o.StringOr("fname_glob", defaultElecGlob); err != nil {
		return nil, err
	}
	if r.variable, err = o.StringOr("variable_name", "Electricity"); err != nil {
		return nil, err
	}
	if r.loc, err = o.Location("timezone"); err != nil {
		return nil, err
	}
	return r, o.Finish()
}

func (r *edfElecReader) Kind() string { return "edf_elec_reader" }

func (r *edfElecReader) Read() (*table.Table, error) {
	log.Printf("edf_elec_reader: reading %s", r.dir)

	files, err := discoverExports("edf_elec_reader", r.dir, r.glob)
	if err != nil {
		return nil, err
	}

	guard := newOverlapGuard("edf_elec_reader")
	out := table.New()
	for _, file := range files {
		frag, err := r.readFile(file)
		if err != nil {
			return nil, err
		}
		if err := guard.admit(frag, file); err != nil {
			return nil, err
		}
		if out, err = out.Merge(frag); err != nil {
			return nil, err
		}
	}

	logGaps("edf_elec_reader", out, 30*time.Minute)
	log.Printf("edf_elec_reader: %d rows from %d files", out.Len(), len(files))
	return out, nil
}

// readFile parses one 30-minute export. Date rows ("17/01/2023;...") set the
// current day; time rows ("06:30:00;1234;") carry the watts drawn over the
// preceding half hour. Rows at offsets other than :00/:30 appear in some
// vintages of the export and are skipped. Within one file duplicated rows
// keep the last value, the vendor's later row being the corrected one.
func (r *edfElecReader) readFile(path string) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	b := table.NewBuilder(path, table.DuplicateKeepLast)
	b.DeclareColumn(r.variable, units.KilowattHour)

	var year, month, day int
	haveDate := false

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		first := line
		if i := strings.IndexByte(line, ';'); i >= 0 {
			first = line[:i]
		}

		switch {
		case strings.Contains(first, "/"):
			parts := strings.Split(first, "/")
			if len(parts) != 3 {
				continue
			}
			d, err1 := strconv.Atoi(parts[0])
			m, err2 := strconv.Atoi(parts[1])
			y, err3 := strconv.Atoi(parts[2])
			if err1 != nil || err2 != nil || err3 != nil {
				continue
			}
			day, month, year = d, m, y
			haveDate = true

		case strings.Contains(first, ":"):
			if !haveDate {
				continue
			}
			fields := strings.Split(line, ";")
			if len(fields) < 2 {
				continue
			}
			hms := strings.Split(fields[0], ":")
			if len(hms) != 3 {
				continue
			}
			hh, err1 := strconv.Atoi(hms[0])
			mm, err2 := strconv.Atoi(hms[1])
			ss, err3 := strconv.Atoi(hms[2])
			if err1 != nil || err2 != nil || err3 != nil {
				continue
			}
			if (mm != 0 && mm != 30) || ss != 0 {
				// Off-grid entries show up at the same spots every year;
				// EDF has never documented them.
				log.Printf("edf_elec_reader: %s:%d: skipping off-interval entry %q", path, lineNo, line)
				continue
			}
			watts, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
			if err != nil {
				return nil, &MalformedValueError{Source: path, Row: lineNo, Column: r.variable, Value: fields[1]}
			}
			ts := time.Date(year, time.Month(month), day, hh, mm, ss, 0, r.loc)
			if err := b.Set(ts, r.variable, units.WattsToKilowattHours(watts, 0.5)); err != nil {
				return nil, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return b.Table(), nil
}

// edfGazReader reads EDF daily gas exports.
type edfGazReader struct {
	dir      string
	glob     string
	variable string
	unit     string
	factor   float64
	loc      *time.Location
}

func newEDFGazReader(o *pipeline.Options) (pipeline.Module, error) {
	r := &edfGazReader{}
	var err error
	if r.dir, err = o.ExistingDir("dir_path"); err != nil {
		return nil, err
	}
	if r.glob, err = o.StringOr("fname_glob", defaultGazGlob); err != nil {
		return nil, err
	}
	if r.variable, err = o.StringOr("variable_name", "Gas"); err != nil {
		return nil, err
	}
	unit, err := o.Enum("unit", "m3", "m3", "kwh")
	if err != nil {
		return nil, err
	}
	if unit == "kwh" {
		r.unit = units.KilowattHour
	} else {
		r.unit = units.CubicMeter
	}
	if r.factor, err = o.FloatOr("conversion_factor", units.DefaultGasConversionFactor); err != nil {
		return nil, err
	}
	if r.factor <= 0 {
		return nil, &pipeline.InvalidOptionError{Kind: "edf_gaz_reader", Key: "conversion_factor", Reason: "must be positive"}
	}
	if r.loc, err = o.Location("timezone"); err != nil {
		return nil, err
	}
	return r, o.Finish()
}

func (r *edfGazReader) Kind() string { return "edf_gaz_reader" }

func (r *edfGazReader) Read() (*table.Table, error) {
	log.Printf("edf_gaz_reader: reading %s", r.dir)

	files, err := discoverExports("edf_gaz_reader", r.dir, r.glob)
	if err != nil {
		return nil, err
	}

	guard := newOverlapGuard("edf_gaz_reader")
	out := table.New()
	for _, file := range files {
		frag, err := r.readFile(file)
		if err != nil {
			return nil, err
		}
		if err := guard.admit(frag, file); err != nil {
			return nil, err
		}
		if out, err = out.Merge(frag); err != nil {
			return nil, err
		}
	}

	logGaps("edf_gaz_reader", out, 24*time.Hour)
	log.Printf("edf_gaz_reader: %d rows from %d files", out.Len(), len(files))
	return out, nil
}

// readFile parses one daily export: a preamble of caption rows, then
// "dd/mm/yyyy;volume" rows with a decimal comma. Daily readings are stamped
// at noon so they sit centred in their day next to intraday series.
func (r *edfGazReader) readFile(path string) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	b := table.NewBuilder(path, table.DuplicateKeepLast)
	b.DeclareColumn(r.variable, r.unit)

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		fields := strings.Split(strings.TrimSpace(scanner.Text()), ";")
		if len(fields) < 2 {
			continue
		}
		day, err := time.ParseInLocation("02/01/2006", strings.TrimSpace(fields[0]), r.loc)
		if err != nil {
			continue // preamble or caption row
		}
		cell := strings.TrimSpace(strings.ReplaceAll(fields[1], ",", "."))
		if cell == "" {
			continue
		}
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return nil, &MalformedValueError{Source: path, Row: lineNo, Column: r.variable, Value: fields[1]}
		}
		if r.unit == units.KilowattHour {
			v = units.GasEnergy(v, r.factor)
		}
		if err := b.Set(day.Add(12*time.Hour), r.variable, v); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return b.Table(), nil
}
