// Package pgstage loads validated CSV records into PostgreSQL staging tables.
//
// Each model gets one table. Data columns mirror the model's columns in
// snake_case: number columns are NUMERIC, everything else TEXT, so rows that
// passed the lenient date check still load. Three bookkeeping columns record
// which run loaded a row and from which line.
package pgstage

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/jackc/pgx/v5"

	"github.com/JonMunkholm/csvtools/internal/schema"
)

// Bookkeeping columns appended to every staging table.
const (
	ColRunID      = "run_id"
	ColSourceLine = "source_line"
	ColLoadedAt   = "loaded_at"
)

// Table describes the staging table of one model.
type Table struct {
	Schema string
	Name   string
	model  *schema.Model
}

// NewTable returns the staging table for m in dbSchema. An empty name uses
// the model name.
func NewTable(m *schema.Model, dbSchema, name string) Table {
	if name == "" {
		name = m.Name()
	}
	return Table{Schema: dbSchema, Name: name, model: m}
}

// Model returns the model the table stages.
func (t Table) Model() *schema.Model { return t.model }

// Identifier returns the qualified table name for pgx.
func (t Table) Identifier() pgx.Identifier {
	if t.Schema == "" {
		return pgx.Identifier{t.Name}
	}
	return pgx.Identifier{t.Schema, t.Name}
}

// CopyColumns returns the columns COPY fills, in row order: the data columns
// followed by run_id and source_line. loaded_at is left to its default.
func (t Table) CopyColumns() []string {
	cols := make([]string, 0, t.model.ColumnCount()+2)
	for _, f := range t.model.Fields() {
		cols = append(cols, ColumnName(f.Name))
	}
	return append(cols, ColRunID, ColSourceLine)
}

// CreateStatements returns the DDL that creates the schema and table when
// they do not exist yet.
func (t Table) CreateStatements() []string {
	var stmts []string
	if t.Schema != "" {
		stmts = append(stmts, "CREATE SCHEMA IF NOT EXISTS "+pgx.Identifier{t.Schema}.Sanitize())
	}

	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", t.Identifier().Sanitize())
	for _, f := range t.model.Fields() {
		typ := "TEXT"
		if f.Type == schema.FieldNumber {
			typ = "NUMERIC"
		}
		fmt.Fprintf(&b, "\t%s %s,\n", pgx.Identifier{ColumnName(f.Name)}.Sanitize(), typ)
	}
	fmt.Fprintf(&b, "\t%s UUID NOT NULL,\n", ColRunID)
	fmt.Fprintf(&b, "\t%s INTEGER NOT NULL,\n", ColSourceLine)
	fmt.Fprintf(&b, "\t%s TIMESTAMPTZ NOT NULL DEFAULT now()\n)", ColLoadedAt)
	stmts = append(stmts, b.String())

	stmts = append(stmts, fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)",
		pgx.Identifier{t.Name + "_run_id_idx"}.Sanitize(), t.Identifier().Sanitize(), ColRunID))
	return stmts
}

// ColumnName converts a CSV column name to its database column:
// "FechaIngreso" becomes "fecha_ingreso", "Cuil" becomes "cuil".
func ColumnName(name string) string {
	var b strings.Builder
	runes := []rune(strings.TrimSpace(name))
	for i, r := range runes {
		switch {
		case r == ' ' || r == '-':
			b.WriteByte('_')
		case unicode.IsUpper(r):
			if i > 0 && runes[i-1] != ' ' && !unicode.IsUpper(runes[i-1]) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
