package table

import (
	"fmt"
	"time"
)

// ColumnCollisionError reports two sources contributing overlapping values to
// the same column name. Resolved by aliasing one reader's output.
type ColumnCollisionError struct {
	Name string
}

func (e *ColumnCollisionError) Error() string {
	return fmt.Sprintf("column %q already populated; alias one reader's output", e.Name)
}

// DuplicateTimestampError reports a repeated timestamp where the source
// contract forbids one.
type DuplicateTimestampError struct {
	Source    string
	Column    string
	Timestamp time.Time
}

func (e *DuplicateTimestampError) Error() string {
	msg := fmt.Sprintf("duplicate timestamp %s", e.Timestamp.Format(time.RFC3339))
	if e.Column != "" {
		msg += fmt.Sprintf(" in column %q", e.Column)
	}
	if e.Source != "" {
		msg += " from " + e.Source
	}
	return msg
}

// UnitMismatchError reports one column name carrying two different unit
// labels across merged fragments.
type UnitMismatchError struct {
	Name string
	Got  string
	Want string
}

func (e *UnitMismatchError) Error() string {
	return fmt.Sprintf("column %q labelled %q on one side and %q on the other; align the units or alias one reader's output", e.Name, e.Got, e.Want)
}

// MisalignedColumnError reports a column whose value count does not match the
// index length.
type MisalignedColumnError struct {
	Name string
	Got  int
	Want int
}

func (e *MisalignedColumnError) Error() string {
	return fmt.Sprintf("column %q has %d values for %d index entries", e.Name, e.Got, e.Want)
}

// UnknownColumnError reports a reference to a column the table does not hold.
type UnknownColumnError struct {
	Name      string
	Available []string
}

func (e *UnknownColumnError) Error() string {
	return fmt.Sprintf("column %q not found, available: %v", e.Name, e.Available)
}
