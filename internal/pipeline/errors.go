package pipeline

import (
	"fmt"
	"sort"
)

// UnknownKindError reports a configuration section whose name matches no
// registered module kind. Raised at load time, before any module runs.
type UnknownKindError struct {
	Section string
	Known   []string
}

func (e *UnknownKindError) Error() string {
	known := append([]string(nil), e.Known...)
	sort.Strings(known)
	return fmt.Sprintf("section %q matches no module kind, available: %v", e.Section, known)
}

// InvalidOptionError reports a section option that failed its module's
// schema: missing required key, wrong type, out-of-range value or an
// unrecognised key.
type InvalidOptionError struct {
	Kind   string
	Key    string
	Reason string
}

func (e *InvalidOptionError) Error() string {
	return fmt.Sprintf("%s: option %q: %s", e.Kind, e.Key, e.Reason)
}

// StageError wraps a failure from a running module with its identity in the
// pipeline. Reader and filter failures abort the run; plotter failures are
// logged and skipped.
type StageError struct {
	Role    Role
	Kind    string
	Section string
	Err     error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s %s (section %q): %v", e.Role, e.Kind, e.Section, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
