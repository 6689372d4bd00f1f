package reconcile

import (
	"errors"
	"fmt"
)

var (
	// ErrConflictingOptions is returned when dry-run is combined with an update mode.
	ErrConflictingOptions = errors.New("dry_run isn't supported with update or force_update")
	// ErrInvalidModel is returned when a model with configuration errors is run.
	ErrInvalidModel = errors.New("mapping has configuration errors")
)

// Side names where a row came from.
type Side string

const (
	SideExternal Side = "sheet"
	SideStore    Side = "store"
)

// RowIndexError reports a row whose composite index could not be computed.
type RowIndexError struct {
	Sheet  string
	Side   Side
	Row    int
	Field  string
	Reason string
}

func (e *RowIndexError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("sheet %s, %s row %d: %s", e.Sheet, e.Side, e.Row, e.Reason)
	}
	return fmt.Sprintf("sheet %s, %s row %d, field %s: %s", e.Sheet, e.Side, e.Row, e.Field, e.Reason)
}

// CommitConflictError reports a record that was not written to the store.
type CommitConflictError struct {
	Sheet  string `json:"sheet"`
	Index  string `json:"index"`
	Status Status `json:"status"`
	Field  string `json:"field,omitempty"`
	Reason string `json:"reason"`
	Err    error  `json:"-"`
}

func (e *CommitConflictError) Error() string {
	msg := fmt.Sprintf("sheet %s, record [%s]", e.Sheet, e.Index)
	if e.Field != "" {
		msg += ", field " + e.Field
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CommitConflictError) Unwrap() error {
	return e.Err
}
