package pipeline

import (
	"fmt"
	"os"
	"time"

	"github.com/suiviconso/suiviconso/internal/units"
)

// dateLayouts are the timestamp spellings accepted in configuration values,
// tried in order.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Options gives module constructors typed, validated access to one section's
// raw option mapping. Every accessor records the key it touched; Finish then
// rejects keys the module never asked about, so typos fail at load time
// instead of being silently ignored.
type Options struct {
	kind string
	raw  map[string]interface{}
	seen map[string]bool
}

// NewOptions wraps a raw option mapping for the named module kind.
func NewOptions(kind string, raw map[string]interface{}) *Options {
	return &Options{kind: kind, raw: raw, seen: make(map[string]bool)}
}

func (o *Options) invalid(key, format string, args ...interface{}) error {
	return &InvalidOptionError{Kind: o.kind, Key: key, Reason: fmt.Sprintf(format, args...)}
}

func (o *Options) lookup(key string) (interface{}, bool) {
	o.seen[key] = true
	v, ok := o.raw[key]
	return v, ok
}

// Finish fails on any option key no accessor consumed.
func (o *Options) Finish() error {
	for key := range o.raw {
		if !o.seen[key] {
			return o.invalid(key, "unknown option")
		}
	}
	return nil
}

// String returns a required string option.
func (o *Options) String(key string) (string, error) {
	v, ok := o.lookup(key)
	if !ok {
		return "", o.invalid(key, "required option missing")
	}
	s, ok := v.(string)
	if !ok {
		return "", o.invalid(key, "want a string, got %T", v)
	}
	return s, nil
}

// StringOr returns an optional string option with a default.
func (o *Options) StringOr(key, def string) (string, error) {
	v, ok := o.lookup(key)
	if !ok {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", o.invalid(key, "want a string, got %T", v)
	}
	return s, nil
}

// Enum returns an optional string option constrained to the allowed values.
func (o *Options) Enum(key, def string, allowed ...string) (string, error) {
	s, err := o.StringOr(key, def)
	if err != nil {
		return "", err
	}
	for _, a := range allowed {
		if s == a {
			return s, nil
		}
	}
	return "", o.invalid(key, "unrecognised value %q, want one of %v", s, allowed)
}

// IntOr returns an optional integer option with a default.
func (o *Options) IntOr(key string, def int) (int, error) {
	v, ok := o.lookup(key)
	if !ok {
		return def, nil
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n == float64(int(n)) {
			return int(n), nil
		}
	}
	return 0, o.invalid(key, "want an integer, got %v", v)
}

// FloatOr returns an optional numeric option with a default.
func (o *Options) FloatOr(key string, def float64) (float64, error) {
	v, ok := o.lookup(key)
	if !ok {
		return def, nil
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	}
	return 0, o.invalid(key, "want a number, got %T", v)
}

// BoolOr returns an optional boolean option with a default.
func (o *Options) BoolOr(key string, def bool) (bool, error) {
	v, ok := o.lookup(key)
	if !ok {
		return def, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, o.invalid(key, "want a boolean, got %T", v)
	}
	return b, nil
}

// StringList returns an optional option that may be a single string or a
// list of strings. Absent yields nil.
func (o *Options) StringList(key string) ([]string, error) {
	v, ok := o.lookup(key)
	if !ok {
		return nil, nil
	}
	switch val := v.(type) {
	case string:
		return []string{val}, nil
	case []interface{}:
		out := make([]string, 0, len(val))
		for _, item := range val {
			s, ok := item.(string)
			if !ok {
				return nil, o.invalid(key, "want strings, got %T in list", item)
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, o.invalid(key, "want a string or list of strings, got %T", v)
}

// StringMap returns an optional mapping option with string keys and values.
// Absent yields nil. YAML hands nested mappings over with interface{} keys.
func (o *Options) StringMap(key string) (map[string]string, error) {
	v, ok := o.lookup(key)
	if !ok {
		return nil, nil
	}
	m, ok := v.(map[interface{}]interface{})
	if !ok {
		return nil, o.invalid(key, "want a mapping, got %T", v)
	}
	out := make(map[string]string, len(m))
	for mk, mv := range m {
		ks, ok := mk.(string)
		if !ok {
			return nil, o.invalid(key, "want string keys, got %T", mk)
		}
		vs, ok := mv.(string)
		if !ok {
			return nil, o.invalid(key, "key %q: want a string value, got %T", ks, mv)
		}
		out[ks] = vs
	}
	return out, nil
}

// UnitMap returns an optional mapping of column names to unit labels,
// rejecting labels outside the known unit set. Absent yields nil.
func (o *Options) UnitMap(key string) (map[string]string, error) {
	m, err := o.StringMap(key)
	if err != nil {
		return nil, err
	}
	for col, unit := range m {
		if !units.IsValid(unit) {
			return nil, o.invalid(key, "column %q: unknown unit %q, want one of %v", col, unit, units.ValidUnits)
		}
	}
	return m, nil
}

// Date returns an optional timestamp option parsed in loc. Absent yields nil.
func (o *Options) Date(key string, loc *time.Location) (*time.Time, error) {
	s, err := o.StringOr(key, "")
	if err != nil || s == "" {
		return nil, err
	}
	for _, layout := range dateLayouts {
		if ts, perr := time.ParseInLocation(layout, s, loc); perr == nil {
			return &ts, nil
		}
	}
	return nil, o.invalid(key, "cannot parse %q as a date/time", s)
}

// Duration returns an optional duration option ("90s", "15m"). Absent yields
// zero.
func (o *Options) Duration(key string) (time.Duration, error) {
	s, err := o.StringOr(key, "")
	if err != nil || s == "" {
		return 0, err
	}
	d, perr := time.ParseDuration(s)
	if perr != nil {
		return 0, o.invalid(key, "cannot parse %q as a duration", s)
	}
	if d <= 0 {
		return 0, o.invalid(key, "duration must be positive, got %s", d)
	}
	return d, nil
}

// ExistingDir returns a required option naming a directory that exists.
func (o *Options) ExistingDir(key string) (string, error) {
	path, err := o.String(key)
	if err != nil {
		return "", err
	}
	info, serr := os.Stat(path)
	if serr != nil {
		return "", o.invalid(key, "directory %q not found, check config file", path)
	}
	if !info.IsDir() {
		return "", o.invalid(key, "%q is not a directory", path)
	}
	return path, nil
}

// ExistingFile returns a required option naming a file that exists.
func (o *Options) ExistingFile(key string) (string, error) {
	path, err := o.String(key)
	if err != nil {
		return "", err
	}
	info, serr := os.Stat(path)
	if serr != nil {
		return "", o.invalid(key, "file %q not found, check config file", path)
	}
	if info.IsDir() {
		return "", o.invalid(key, "%q is a directory, want a file", path)
	}
	return path, nil
}

// Location returns the timezone option parsed against the tz database,
// defaulting to UTC.
func (o *Options) Location(key string) (*time.Location, error) {
	s, err := o.StringOr(key, "UTC")
	if err != nil {
		return nil, err
	}
	loc, lerr := time.LoadLocation(s)
	if lerr != nil {
		return nil, o.invalid(key, "unknown timezone %q", s)
	}
	return loc, nil
}
