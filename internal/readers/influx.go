package readers

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/suiviconso/suiviconso/internal/pipeline"
	"github.com/suiviconso/suiviconso/internal/table"
)

// influxLPReader parses the InfluxDB line protocol, one record per line:
//
//	<measurement>[,<tag>=<value>...] <field>=<value>[,<field>=<value>...] [<timestamp>]
//
// Fields become canonical columns; tags are projected into column-name
// suffixes or dropped. Timestamps are unix nanoseconds; records without one
// inherit the previous record's timestamp plus a configured resolution.
type influxLPReader struct {
	path        string
	measurement string // optional filter; empty accepts all
	projectTags bool
	resolution  time.Duration // 0 means timestamp-less records are an error
	units       map[string]string
	loc         *time.Location
}

func newInfluxLPReader(o *pipeline.Options) (pipeline.Module, error) {
	r := &influxLPReader{}
	var err error
	if r.path, err = o.ExistingFile("file_path"); err != nil {
		return nil, err
	}
	if r.measurement, err = o.StringOr("measurement", ""); err != nil {
		return nil, err
	}
	tags, err := o.Enum("tags", "project", "project", "drop")
	if err != nil {
		return nil, err
	}
	r.projectTags = tags == "project"
	if r.resolution, err = o.Duration("default_resolution"); err != nil {
		return nil, err
	}
	if r.units, err = o.UnitMap("units"); err != nil {
		return nil, err
	}
	if r.loc, err = o.Location("timezone"); err != nil {
		return nil, err
	}
	return r, o.Finish()
}

func (r *influxLPReader) Kind() string { return "influxdb_lp_reader" }

func (r *influxLPReader) Read() (*table.Table, error) {
	log.Printf("influxdb_lp_reader: reading %s", r.path)

	f, err := os.Open(r.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", r.path, err)
	}
	defer f.Close()

	// Same instant across lines is routine in exports (one line per
	// measurement), so cells merge; a genuinely repeated field keeps the
	// last write, matching the exporter's append order.
	b := table.NewBuilder(r.path, table.DuplicateKeepLast)
	for name, unit := range r.units {
		b.DeclareColumn(name, unit)
	}

	var prev time.Time
	havePrev := false
	skippedFields := 0

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		sections := splitUnescaped(line, ' ')
		if len(sections) < 2 || len(sections) > 3 {
			return nil, fmt.Errorf("%s: line %d: malformed record %q", r.path, lineNo, line)
		}

		measurement, suffix := r.parseKey(sections[0])
		if r.measurement != "" && measurement != r.measurement {
			continue
		}

		var ts time.Time
		if len(sections) == 3 {
			nanos, err := strconv.ParseInt(sections[2], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%s: line %d: bad timestamp %q", r.path, lineNo, sections[2])
			}
			ts = time.Unix(0, nanos).In(r.loc)
		} else {
			if !havePrev {
				return nil, fmt.Errorf("%s: line %d: record has no timestamp and no previous record to inherit from", r.path, lineNo)
			}
			if r.resolution == 0 {
				return nil, fmt.Errorf("%s: line %d: record has no timestamp and no default_resolution is configured", r.path, lineNo)
			}
			ts = prev.Add(r.resolution)
		}
		prev, havePrev = ts, true

		for _, pair := range splitUnescaped(sections[1], ',') {
			eq := indexUnescaped(pair, '=')
			if eq < 0 {
				return nil, fmt.Errorf("%s: line %d: malformed field %q", r.path, lineNo, pair)
			}
			field := unescape(pair[:eq])
			v, ok := parseFieldValue(pair[eq+1:])
			if !ok {
				// String fields have no numeric projection.
				skippedFields++
				continue
			}
			if err := b.Set(ts, field+suffix, v); err != nil {
				return nil, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", r.path, err)
	}
	if skippedFields > 0 {
		log.Printf("influxdb_lp_reader: skipped %d non-numeric field values", skippedFields)
	}

	frag := b.Table()
	log.Printf("influxdb_lp_reader: %d rows, %d columns", frag.Len(), len(frag.Columns()))
	return frag, nil
}

// parseKey splits the measurement-and-tags section and builds the projected
// column suffix. Tags are sorted so the suffix is deterministic regardless
// of the exporter's ordering.
func (r *influxLPReader) parseKey(section string) (measurement, suffix string) {
	parts := splitUnescaped(section, ',')
	measurement = unescape(parts[0])
	if !r.projectTags || len(parts) == 1 {
		return measurement, ""
	}
	tags := make([]string, 0, len(parts)-1)
	for _, p := range parts[1:] {
		tags = append(tags, unescape(p))
	}
	sort.Strings(tags)
	return measurement, "," + strings.Join(tags, ",")
}

// parseFieldValue interprets a line-protocol field value: floats, "i"- and
// "u"-suffixed integers and booleans map to numbers; quoted strings do not.
func parseFieldValue(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	if s[0] == '"' {
		return 0, false
	}
	switch s {
	case "t", "T", "true", "True", "TRUE":
		return 1, true
	case "f", "F", "false", "False", "FALSE":
		return 0, true
	}
	if n := len(s); n > 1 && (s[n-1] == 'i' || s[n-1] == 'u') {
		if v, err := strconv.ParseFloat(s[:n-1], 64); err == nil {
			return v, true
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// splitUnescaped splits s on sep, honouring backslash escapes and keeping
// quoted field values intact.
func splitUnescaped(s string, sep byte) []string {
	var out []string
	start := 0
	inQuotes := false
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++ // skip the escaped byte
		case '"':
			inQuotes = !inQuotes
		case sep:
			if !inQuotes {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	out = append(out, s[start:])
	return out
}

// indexUnescaped returns the index of the first unescaped, unquoted sep.
func indexUnescaped(s string, sep byte) int {
	inQuotes := false
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '"':
			inQuotes = !inQuotes
		case sep:
			if !inQuotes {
				return i
			}
		}
	}
	return -1
}

// unescape removes line-protocol backslash escapes.
func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}
