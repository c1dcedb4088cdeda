package schema

// validation.go checks CSV data against a Model.
//
// Validation happens at two levels with deliberately different disciplines:
//  1. Header validation is set equality: any permutation of the model's
//     columns passes.
//  2. Record validation is positional: field i is checked against column i
//     of the model, whatever the header order was.
//
// Record validation collects every failing field rather than stopping at the
// first one, so an error log shows the whole picture of a bad row.

import (
	"strings"
)

// PlaceholderKey is logged in place of a composite key that could not be extracted.
const PlaceholderKey = "INVALID_KEY"

// ValidateHeader checks that header contains exactly the model's columns in
// any order. Names are compared case-sensitively, but leading and trailing
// whitespace is trimmed first: " Cuil" matches Cuil, and " Cuil" next to
// "Cuil" is a duplicate. Mismatch lists carry the trimmed names.
// Returns nil or a *HeaderMismatchError.
func ValidateHeader(header []string, m *Model) error {
	seen := make(map[string]int, len(header))
	mismatch := &HeaderMismatchError{Model: m.name}

	for _, raw := range header {
		name := strings.TrimSpace(raw)
		seen[name]++
		switch {
		case seen[name] == 2:
			mismatch.Duplicates = append(mismatch.Duplicates, name)
		case seen[name] > 2:
		default:
			if _, ok := m.index[name]; !ok {
				mismatch.Extra = append(mismatch.Extra, name)
			}
		}
	}

	for _, f := range m.fields {
		if seen[f.Name] == 0 {
			mismatch.Missing = append(mismatch.Missing, f.Name)
		}
	}

	if len(mismatch.Missing) == 0 && len(mismatch.Extra) == 0 && len(mismatch.Duplicates) == 0 {
		return nil
	}
	return mismatch
}

// ExtractKey renders the composite key of record as
// {PartitionKey=value[,SortKey=value]}. Values are the raw field text.
// A record too short to reach the key columns yields an *ExtractionError;
// no other check is made, so this works on otherwise malformed records.
func ExtractKey(record []string, m *Model) (string, error) {
	if need := m.minKeyLength(); len(record) < need {
		return "", &ExtractionError{Need: need, Have: len(record)}
	}

	var b strings.Builder
	b.WriteByte('{')
	b.WriteString(m.partitionKey)
	b.WriteByte('=')
	b.WriteString(record[m.index[m.partitionKey]])
	if m.sortKey != "" {
		b.WriteByte(',')
		b.WriteString(m.sortKey)
		b.WriteByte('=')
		b.WriteString(record[m.index[m.sortKey]])
	}
	b.WriteByte('}')
	return b.String(), nil
}

// ValidateOptions tunes record validation.
type ValidateOptions struct {
	// StrictDates rejects dates that have the right shape but are not on the
	// calendar, such as 2024-13-40.
	StrictDates bool
}

// Outcome is the result of validating one record.
type Outcome struct {
	Expected int // model column count
	Actual   int // record field count
	Fields   []*FieldError
	Key      string           // composite key, empty when KeyErr is set
	KeyErr   *ExtractionError // set when the record cannot reach its key columns
}

// ColumnCountOK reports whether the record has exactly the model's column count.
func (o Outcome) ColumnCountOK() bool { return o.Expected == o.Actual }

// Valid reports whether the record passed every check.
func (o Outcome) Valid() bool {
	return o.ColumnCountOK() && len(o.Fields) == 0 && o.KeyErr == nil
}

// DisplayKey returns the composite key or PlaceholderKey.
func (o Outcome) DisplayKey() string {
	if o.KeyErr != nil {
		return PlaceholderKey
	}
	return o.Key
}

// Errors flattens the outcome into its individual error values, column
// count first, then fields in column order, then key extraction.
func (o Outcome) Errors() []error {
	var errs []error
	if !o.ColumnCountOK() {
		errs = append(errs, &ColumnCountError{Expected: o.Expected, Actual: o.Actual})
	}
	for _, fe := range o.Fields {
		errs = append(errs, fe)
	}
	if o.KeyErr != nil {
		errs = append(errs, o.KeyErr)
	}
	return errs
}

// RecordValidator validates records against one model.
// It holds no per-record state and is safe for concurrent use.
type RecordValidator struct {
	model *Model
	opts  ValidateOptions
}

// NewRecordValidator creates a validator for m.
func NewRecordValidator(m *Model, opts ValidateOptions) *RecordValidator {
	return &RecordValidator{model: m, opts: opts}
}

// Model returns the model the validator checks against.
func (v *RecordValidator) Model() *Model { return v.model }

// Validate checks record positionally against the model.
// A wrong column count is flagged but the fields that are present are still
// checked and key extraction is still attempted.
func (v *RecordValidator) Validate(record []string) Outcome {
	m := v.model
	out := Outcome{Expected: len(m.fields), Actual: len(record)}

	for i, spec := range m.fields {
		if i >= len(record) {
			break
		}
		if fe := v.ValidateField(spec, record[i]); fe != nil {
			out.Fields = append(out.Fields, fe)
		}
	}

	key, err := ExtractKey(record, m)
	if err != nil {
		out.KeyErr = err.(*ExtractionError)
	} else {
		out.Key = key
	}
	return out
}

// ValidateField checks a single value against its spec. The value is
// trimmed before the grammar is applied. Returns nil when the value passes.
func (v *RecordValidator) ValidateField(spec FieldSpec, value string) *FieldError {
	if spec.Type == FieldText {
		return nil
	}

	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		if spec.Nullable {
			return nil
		}
		return &FieldError{Column: spec.Name, Type: spec.Type, Value: value, Reason: ReasonEmpty}
	}

	switch spec.Type {
	case FieldNumber:
		if !ValidNumber(trimmed) {
			return &FieldError{Column: spec.Name, Type: spec.Type, Value: value, Reason: ReasonInvalidNumber}
		}
	case FieldDate:
		ok := ValidDate(trimmed)
		if ok && v.opts.StrictDates {
			ok = ValidCalendarDate(trimmed)
		}
		if !ok {
			return &FieldError{Column: spec.Name, Type: spec.Type, Value: value, Reason: ReasonInvalidDate}
		}
	}
	return nil
}

// ValidateRecord checks record against m with default options.
func ValidateRecord(record []string, m *Model) Outcome {
	return NewRecordValidator(m, ValidateOptions{}).Validate(record)
}
