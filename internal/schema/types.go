package schema

import "strings"

// FieldType represents the expected shape of a CSV field.
type FieldType int

const (
	FieldText   FieldType = iota // free text, never checked
	FieldNumber                  // DynamoDB Type N
	FieldDate                    // yyyy-MM-dd or yyyy-MM-dd HH:mm:ss
)

func (t FieldType) String() string {
	switch t {
	case FieldNumber:
		return "number"
	case FieldDate:
		return "date"
	default:
		return "text"
	}
}

// FieldSpec defines validation rules for a single CSV column.
type FieldSpec struct {
	Name     string    // Column header name (must match CSV exactly)
	Type     FieldType // Expected data type
	Nullable bool      // Empty values pass for Number and Date columns
}

// Model is the column contract of one DynamoDB table export.
//
// A Model is immutable once built. Accessors that return slices hand out
// copies so callers cannot mutate the registry.
type Model struct {
	name         string
	fields       []FieldSpec
	partitionKey string
	sortKey      string

	index map[string]int
}

// Name returns the registry key of the model, e.g. "siisa_morosos".
func (m *Model) Name() string { return m.name }

// Columns returns the ordered column names.
func (m *Model) Columns() []string {
	cols := make([]string, len(m.fields))
	for i, f := range m.fields {
		cols[i] = f.Name
	}
	return cols
}

// Fields returns the ordered field specs.
func (m *Model) Fields() []FieldSpec {
	return append([]FieldSpec(nil), m.fields...)
}

// ColumnCount returns the number of columns a well-formed record has.
func (m *Model) ColumnCount() int { return len(m.fields) }

// PartitionKey returns the partition (hash) key column name.
func (m *Model) PartitionKey() string { return m.partitionKey }

// SortKey returns the sort (range) key column name and whether the model has one.
func (m *Model) SortKey() (string, bool) { return m.sortKey, m.sortKey != "" }

// KeyColumns returns the partition key followed by the sort key, if any.
func (m *Model) KeyColumns() []string {
	if m.sortKey == "" {
		return []string{m.partitionKey}
	}
	return []string{m.partitionKey, m.sortKey}
}

// NumericColumns returns the Type N columns in column order.
func (m *Model) NumericColumns() []string {
	var cols []string
	for _, f := range m.fields {
		if f.Type == FieldNumber {
			cols = append(cols, f.Name)
		}
	}
	return cols
}

// ColumnIndex returns the position of a column, case-sensitively.
func (m *Model) ColumnIndex(name string) (int, bool) {
	i, ok := m.index[name]
	return i, ok
}

// Field returns the spec for a column.
func (m *Model) Field(name string) (FieldSpec, bool) {
	i, ok := m.index[name]
	if !ok {
		return FieldSpec{}, false
	}
	return m.fields[i], true
}

// IsNumeric reports whether the column is Type N.
func (m *Model) IsNumeric(name string) bool {
	f, ok := m.Field(name)
	return ok && f.Type == FieldNumber
}

// HeaderLine returns the canonical comma-joined header.
func (m *Model) HeaderLine() string {
	return strings.Join(m.Columns(), ",")
}

// minKeyLength is the shortest record that still reaches every key column.
func (m *Model) minKeyLength() int {
	n := m.index[m.partitionKey] + 1
	if m.sortKey != "" {
		if sk := m.index[m.sortKey] + 1; sk > n {
			n = sk
		}
	}
	return n
}
