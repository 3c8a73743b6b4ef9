package readers

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "modernc.org/sqlite"

	"github.com/suiviconso/suiviconso/internal/pipeline"
	"github.com/suiviconso/suiviconso/internal/table"
)

// sqliteReader pulls timestamped measurement rows out of an externally-owned
// SQLite file (home-automation exports commonly land in one). The query's
// result set provides the columns; one of them is the timestamp.
type sqliteReader struct {
	path       string
	query      string
	timeColumn string // defaults to the first selected column
	timeFormat string // unix | unix_ms | rfc3339
	columns    map[string]string
	loc        *time.Location
}

func newSQLiteReader(o *pipeline.Options) (pipeline.Module, error) {
	r := &sqliteReader{}
	var err error
	if r.path, err = o.ExistingFile("db_path"); err != nil {
		return nil, err
	}
	if r.query, err = o.String("query"); err != nil {
		return nil, err
	}
	if r.timeColumn, err = o.StringOr("time_column", ""); err != nil {
		return nil, err
	}
	if r.timeFormat, err = o.Enum("time_format", "unix", "unix", "unix_ms", "rfc3339"); err != nil {
		return nil, err
	}
	if r.columns, err = o.UnitMap("columns"); err != nil {
		return nil, err
	}
	if r.loc, err = o.Location("timezone"); err != nil {
		return nil, err
	}
	return r, o.Finish()
}

func (r *sqliteReader) Kind() string { return "sqlite_reader" }

func (r *sqliteReader) Read() (*table.Table, error) {
	log.Printf("sqlite_reader: reading %s", r.path)

	db, err := sql.Open("sqlite", r.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", r.path, err)
	}
	defer db.Close()

	rows, err := db.Query(r.query)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", r.path, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", r.path, err)
	}

	timeIdx := 0
	if r.timeColumn != "" {
		timeIdx = -1
		for i, c := range cols {
			if c == r.timeColumn {
				timeIdx = i
				break
			}
		}
		if timeIdx < 0 {
			return nil, fmt.Errorf("%s: time column %q not in result set %v", r.path, r.timeColumn, cols)
		}
	}

	b := table.NewBuilder(r.path, table.DuplicateError)
	keep := make([]bool, len(cols))
	for i, c := range cols {
		if i == timeIdx {
			continue
		}
		if len(r.columns) > 0 {
			unit, ok := r.columns[c]
			if !ok {
				continue
			}
			b.DeclareColumn(c, unit)
		} else {
			b.DeclareColumn(c, "")
		}
		keep[i] = true
	}

	values := make([]interface{}, len(cols))
	ptrs := make([]interface{}, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}

	rowNo := 0
	for rows.Next() {
		rowNo++
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("%s: row %d: %w", r.path, rowNo, err)
		}

		ts, err := r.parseTime(values[timeIdx])
		if err != nil {
			return nil, fmt.Errorf("%s: row %d: %w", r.path, rowNo, err)
		}

		for i, keepCol := range keep {
			if !keepCol || values[i] == nil {
				continue
			}
			v, ok := numeric(values[i])
			if !ok {
				return nil, &MalformedValueError{Source: r.path, Row: rowNo, Column: cols[i], Value: fmt.Sprint(values[i])}
			}
			if err := b.Set(ts, cols[i], v); err != nil {
				return nil, err
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", r.path, err)
	}

	frag := b.Table()
	log.Printf("sqlite_reader: %d rows, %d columns", frag.Len(), len(frag.Columns()))
	return frag, nil
}

func (r *sqliteReader) parseTime(v interface{}) (time.Time, error) {
	switch r.timeFormat {
	case "rfc3339":
		s, ok := stringValue(v)
		if !ok {
			return time.Time{}, fmt.Errorf("time column holds %T, want text", v)
		}
		ts, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return time.Time{}, fmt.Errorf("bad timestamp %q: %w", s, err)
		}
		return ts.In(r.loc), nil
	case "unix_ms":
		n, ok := numeric(v)
		if !ok {
			return time.Time{}, fmt.Errorf("time column holds %T, want an integer", v)
		}
		return time.UnixMilli(int64(n)).In(r.loc), nil
	default:
		n, ok := numeric(v)
		if !ok {
			return time.Time{}, fmt.Errorf("time column holds %T, want an integer", v)
		}
		return time.Unix(int64(n), 0).In(r.loc), nil
	}
}

func numeric(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func stringValue(v interface{}) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case []byte:
		return string(s), true
	}
	return "", false
}
