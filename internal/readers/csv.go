package readers

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/suiviconso/suiviconso/internal/pipeline"
	"github.com/suiviconso/suiviconso/internal/table"
)

// csvReader reads a delimited text file with a header row. A column mapping
// selects which source columns become canonical columns; the timestamp
// column must be strictly increasing after parsing.
type csvReader struct {
	path       string
	separator  rune
	timeColumn string
	timeFormat string
	loc        *time.Location
	columns    map[string]string // source header -> canonical name
	units      map[string]string // canonical name -> unit label
	duplicates table.DuplicatePolicy
}

func newCSVReader(o *pipeline.Options) (pipeline.Module, error) {
	r := &csvReader{}

	var err error
	if r.path, err = o.ExistingFile("file_path"); err != nil {
		return nil, err
	}
	sep, err := o.StringOr("separator", ",")
	if err != nil {
		return nil, err
	}
	if len([]rune(sep)) != 1 {
		return nil, &pipeline.InvalidOptionError{Kind: "csv_reader", Key: "separator", Reason: fmt.Sprintf("want a single character, got %q", sep)}
	}
	r.separator = []rune(sep)[0]

	if r.timeColumn, err = o.StringOr("time_column", ""); err != nil {
		return nil, err
	}
	if r.timeFormat, err = o.StringOr("time_format", ""); err != nil {
		return nil, err
	}
	if r.loc, err = o.Location("timezone"); err != nil {
		return nil, err
	}
	if r.columns, err = o.StringMap("columns"); err != nil {
		return nil, err
	}
	if r.units, err = o.UnitMap("units"); err != nil {
		return nil, err
	}

	dup, err := o.Enum("duplicates", "error", "error", "keep_first", "keep_last")
	if err != nil {
		return nil, err
	}
	switch dup {
	case "keep_first":
		r.duplicates = table.DuplicateKeepFirst
	case "keep_last":
		r.duplicates = table.DuplicateKeepLast
	default:
		r.duplicates = table.DuplicateError
	}

	return r, o.Finish()
}

func (r *csvReader) Kind() string { return "csv_reader" }

func (r *csvReader) Read() (*table.Table, error) {
	log.Printf("csv_reader: reading %s", r.path)

	f, err := os.Open(r.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", r.path, err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.Comma = r.separator
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", r.path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: empty file, expected a header row", r.path)
	}

	header := records[0]
	timeIdx := 0
	if r.timeColumn != "" {
		timeIdx = -1
		for i, h := range header {
			if strings.TrimSpace(h) == r.timeColumn {
				timeIdx = i
				break
			}
		}
		if timeIdx < 0 {
			return nil, fmt.Errorf("%s: time column %q not in header %v", r.path, r.timeColumn, header)
		}
	}

	// Value columns in header order. Without an explicit mapping every
	// non-timestamp column is kept under its source name.
	type colSpec struct {
		idx  int
		name string
	}
	var specs []colSpec
	for i, h := range header {
		if i == timeIdx {
			continue
		}
		source := strings.TrimSpace(h)
		name := source
		if len(r.columns) > 0 {
			mapped, ok := r.columns[source]
			if !ok {
				continue
			}
			name = mapped
		}
		specs = append(specs, colSpec{idx: i, name: name})
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("%s: no value columns selected", r.path)
	}

	b := table.NewBuilder(r.path, r.duplicates)
	for _, spec := range specs {
		b.DeclareColumn(spec.name, r.units[spec.name])
	}

	var prev time.Time
	for rowIdx, record := range records[1:] {
		row := rowIdx + 2 // 1-based, counting the header
		if timeIdx >= len(record) {
			return nil, fmt.Errorf("%s: row %d: missing timestamp cell", r.path, row)
		}
		ts, err := parseTimestamp(strings.TrimSpace(record[timeIdx]), r.timeFormat, r.loc)
		if err != nil {
			return nil, fmt.Errorf("%s: row %d: %w", r.path, row, err)
		}
		if !prev.IsZero() && ts.Before(prev) {
			return nil, &OutOfOrderError{Source: r.path, Row: row}
		}
		prev = ts

		for _, spec := range specs {
			if spec.idx >= len(record) {
				continue
			}
			cell := strings.TrimSpace(record[spec.idx])
			if cell == "" {
				continue // stays a missing marker
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, &MalformedValueError{Source: r.path, Row: row, Column: spec.name, Value: cell}
			}
			if err := b.Set(ts, spec.name, v); err != nil {
				return nil, err
			}
		}
	}

	frag := b.Table()
	log.Printf("csv_reader: %s yielded %d rows, %d columns", r.path, frag.Len(), len(frag.Columns()))
	return frag, nil
}
