package battle

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownKey    = errors.New("unknown key")
	ErrInvalidFormat = errors.New("invalid format")
	ErrNotNumber     = errors.New("not a number")
	ErrOutOfRange    = errors.New("out of range")
)

// FieldError is a single raw value that failed validation.
type FieldError struct {
	Field string
	Value string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

func fieldError(field, value string, err error) *FieldError {
	return &FieldError{Field: field, Value: value, Err: err}
}

// MissingColumnsError is returned for rows that lack required columns.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return "missing columns: " + strings.Join(e.Columns, ", ")
}

// GroupError collects the failures of one sub-record, such as participant "A3"
// or team "bravo".
type GroupError struct {
	Name string
	Errs []error
}

func (e *GroupError) Error() string {
	return e.Name + ": " + joinErrors(e.Errs)
}

func (e *GroupError) Unwrap() []error {
	return e.Errs
}

func groupError(name string, errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return &GroupError{Name: name, Errs: errs}
}

// Stage names the part of the row decoding a RowError came from.
type Stage string

const (
	StageColumns      Stage = "columns"
	StageParticipants Stage = "participants"
	StageTeams        Stage = "team characteristics"
	StageMedals       Stage = "medals"
	StageKeys         Stage = "keys"
	StageFields       Stage = "fields"
)

// StageError is the aggregate failure of one decoding stage.
type StageError struct {
	Stage Stage
	Errs  []error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Stage, joinErrors(e.Errs))
}

func (e *StageError) Unwrap() []error {
	return e.Errs
}

// RowError is the failure to decode one row. It carries every failing stage so
// a single log line shows all that is wrong with the row.
type RowError struct {
	Row    int
	Stages []*StageError
}

func (e *RowError) Error() string {
	parts := make([]string, len(e.Stages))
	for i, s := range e.Stages {
		parts[i] = s.Error()
	}
	return fmt.Sprintf("row %d: %s", e.Row, strings.Join(parts, "; "))
}

func (e *RowError) Unwrap() []error {
	errs := make([]error, len(e.Stages))
	for i, s := range e.Stages {
		errs[i] = s
	}
	return errs
}

// Failed reports whether stage s contributed to the row failure.
func (e *RowError) Failed(s Stage) bool {
	for _, st := range e.Stages {
		if st.Stage == s {
			return true
		}
	}
	return false
}

func joinErrors(errs []error) string {
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return "[" + strings.Join(msgs, ", ") + "]"
}
