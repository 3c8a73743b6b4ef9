// Package readers implements the pipeline's reader modules. Each reader
// parses one external source format into a canonical table fragment; readers
// never see prior pipeline state.
package readers

import (
	"fmt"
	"time"

	"github.com/suiviconso/suiviconso/internal/pipeline"
)

// Register adds all reader kinds to the registry.
func Register(reg *pipeline.Registry) {
	reg.Register("csv_reader", pipeline.RoleReader, newCSVReader)
	reg.Register("edf_elec_reader", pipeline.RoleReader, newEDFElecReader)
	reg.Register("edf_gaz_reader", pipeline.RoleReader, newEDFGazReader)
	reg.Register("influxdb_lp_reader", pipeline.RoleReader, newInfluxLPReader)
	reg.Register("sqlite_reader", pipeline.RoleReader, newSQLiteReader)
}

// MalformedValueError reports a source cell that cannot be parsed as the
// declared type.
type MalformedValueError struct {
	Source string
	Row    int
	Column string
	Value  string
}

func (e *MalformedValueError) Error() string {
	return fmt.Sprintf("%s: row %d, column %q: cannot parse %q as a number", e.Source, e.Row, e.Column, e.Value)
}

// OutOfOrderError reports a timestamp column that is not strictly increasing.
type OutOfOrderError struct {
	Source string
	Row    int
}

func (e *OutOfOrderError) Error() string {
	return fmt.Sprintf("%s: row %d: timestamp column is not strictly increasing", e.Source, e.Row)
}

// timestampLayouts are the source timestamp spellings tried when no explicit
// format is configured.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseTimestamp(s, layout string, loc *time.Location) (time.Time, error) {
	if layout != "" {
		return time.ParseInLocation(layout, s, loc)
	}
	for _, l := range timestampLayouts {
		if ts, err := time.ParseInLocation(l, s, loc); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse timestamp %q", s)
}
