package schema

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownModel is matched by errors.Is for every *NotFoundError.
var ErrUnknownModel = errors.New("unknown model")

// NotFoundError is returned by Lookup for an unregistered model name.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("unknown model %q (known: %s)", e.Name, strings.Join(Names(), ", "))
}

func (e *NotFoundError) Unwrap() error { return ErrUnknownModel }

// HeaderMismatchError reports a header that is not a permutation of the model's columns.
type HeaderMismatchError struct {
	Model      string
	Missing    []string // model columns absent from the header
	Extra      []string // header columns the model does not define
	Duplicates []string // header columns that appear more than once
}

func (e *HeaderMismatchError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing required columns: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Extra) > 0 {
		parts = append(parts, "unexpected columns: "+strings.Join(e.Extra, ", "))
	}
	if len(e.Duplicates) > 0 {
		parts = append(parts, "duplicate columns: "+strings.Join(e.Duplicates, ", "))
	}
	return fmt.Sprintf("header mismatch for %s: %s", e.Model, strings.Join(parts, "; "))
}

// ColumnCountError reports a record whose field count differs from the model's.
type ColumnCountError struct {
	Expected int
	Actual   int
}

func (e *ColumnCountError) Error() string {
	return fmt.Sprintf("column count mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// Reasons carried by FieldError.
const (
	ReasonEmpty         = "required field is empty"
	ReasonInvalidNumber = "invalid number"
	ReasonInvalidDate   = "invalid date"
)

// FieldError reports one field that failed its type grammar.
type FieldError struct {
	Column string
	Type   FieldType
	Value  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s %q", e.Column, e.Reason, e.Value)
}

// ExtractionError reports a record too short to reach the key columns.
type ExtractionError struct {
	Need int // minimum record length that reaches every key column
	Have int
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("cannot extract key: record has %d fields, key columns need %d", e.Have, e.Need)
}
