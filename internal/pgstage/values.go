package pgstage

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/csvtools/internal/schema"
)

// ToNumeric converts a DynamoDB-style number ("-12.5", "1e10", "3.2E-4")
// to pgtype.Numeric without going through float64. Empty input is NULL.
func ToNumeric(s string) (pgtype.Numeric, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Numeric{}, nil
	}
	if !schema.ValidNumber(s) {
		return pgtype.Numeric{}, fmt.Errorf("invalid number %q", s)
	}

	mantissa, exp := s, 0
	if i := strings.IndexAny(s, "eE"); i >= 0 {
		e, err := strconv.Atoi(s[i+1:])
		if err != nil {
			return pgtype.Numeric{}, fmt.Errorf("invalid exponent in %q: %w", s, err)
		}
		mantissa, exp = s[:i], e
	}
	if i := strings.IndexByte(mantissa, '.'); i >= 0 {
		exp -= len(mantissa) - i - 1
		mantissa = mantissa[:i] + mantissa[i+1:]
	}

	n, ok := new(big.Int).SetString(mantissa, 10)
	if !ok {
		return pgtype.Numeric{}, fmt.Errorf("invalid number %q", s)
	}
	if n.Sign() == 0 {
		return pgtype.Numeric{Int: n, Valid: true}, nil
	}
	// Magnitude of the leading digit, as in d.ddd x 10^adj.
	adj := exp + len(new(big.Int).Abs(n).String()) - 1
	if adj < MinNumberExp || adj > MaxNumberExp {
		return pgtype.Numeric{}, fmt.Errorf("number %q out of range 1E%d to 1E%d", s, MinNumberExp, MaxNumberExp+1)
	}
	return pgtype.Numeric{Int: n, Exp: int32(exp), Valid: true}, nil
}

// Exponent bounds of a nonzero DynamoDB Number, written d.ddd x 10^exp.
const (
	MinNumberExp = -130
	MaxNumberExp = 125
)

// ToText converts s to pgtype.Text. Blank input is NULL.
func ToText(s string) pgtype.Text {
	if strings.TrimSpace(s) == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

// ToUUID wraps id for pgx.
func ToUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: id != uuid.Nil}
}

// RowValues converts a validated record into COPY values in the order of
// Table.CopyColumns.
func RowValues(m *schema.Model, runID pgtype.UUID, line int, fields []string) ([]any, error) {
	if len(fields) != m.ColumnCount() {
		return nil, &schema.ColumnCountError{Expected: m.ColumnCount(), Actual: len(fields)}
	}
	row := make([]any, 0, len(fields)+2)
	for i, spec := range m.Fields() {
		if spec.Type != schema.FieldNumber {
			row = append(row, ToText(fields[i]))
			continue
		}
		n, err := ToNumeric(fields[i])
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", spec.Name, err)
		}
		row = append(row, n)
	}
	return append(row, runID, int32(line)), nil
}
