package pgstage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/csvtools/internal/config"
	"github.com/JonMunkholm/csvtools/internal/scan"
)

// DBTX is the database surface the loader needs.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// Connect opens a pool to cfg.URL and verifies it with a ping.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// EnsureTable creates t if it does not exist.
func EnsureTable(ctx context.Context, db DBTX, t Table) error {
	for _, stmt := range t.CreateStatements() {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("create staging table %s: %w", t.Identifier().Sanitize(), err)
		}
	}
	return nil
}

// DefaultBatchSize is rows per COPY when none is configured.
const DefaultBatchSize = 5000

// Result counts what a load wrote.
type Result struct {
	Rows    int64
	Batches int
}

// Loader buffers rows and writes them with COPY in batches.
// It is not safe for concurrent use.
type Loader struct {
	db        DBTX
	table     Table
	runID     pgtype.UUID
	batchSize int
	logger    *slog.Logger

	rows   [][]any
	result Result
}

// NewLoader creates a Loader that tags every row with runID.
func NewLoader(db DBTX, t Table, runID uuid.UUID, batchSize int, logger *slog.Logger) *Loader {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		db:        db,
		table:     t,
		runID:     ToUUID(runID),
		batchSize: batchSize,
		logger:    logger.With("table", t.Identifier().Sanitize()),
		rows:      make([][]any, 0, batchSize),
	}
}

// Add queues one validated record read from line.
func (l *Loader) Add(ctx context.Context, line int, fields []string) error {
	row, err := RowValues(l.table.Model(), l.runID, line, fields)
	if err != nil {
		return fmt.Errorf("line %d: %w", line, err)
	}
	l.rows = append(l.rows, row)
	if len(l.rows) < l.batchSize {
		return nil
	}
	return l.Flush(ctx)
}

// Flush copies the queued rows.
func (l *Loader) Flush(ctx context.Context) error {
	if len(l.rows) == 0 {
		return nil
	}
	n, err := l.db.CopyFrom(ctx, l.table.Identifier(), l.table.CopyColumns(), pgx.CopyFromRows(l.rows))
	if err != nil {
		return fmt.Errorf("copy into %s: %w", l.table.Identifier().Sanitize(), err)
	}
	l.result.Rows += n
	l.result.Batches++
	l.logger.Debug("batch copied", "rows", n, "total", l.result.Rows)
	l.rows = l.rows[:0]
	return nil
}

// Result returns the running totals.
func (l *Loader) Result() Result { return l.result }

// recordSink feeds scanned records, with their line numbers, to a Loader.
type recordSink struct {
	ctx context.Context
	l   *Loader
}

func (s recordSink) Write(fields []string) error { return s.WriteRecord(0, fields) }

func (s recordSink) WriteRecord(line int, fields []string) error {
	return s.l.Add(s.ctx, line, fields)
}

// Sink returns a scan.Sink that adds records to l under ctx.
func (l *Loader) Sink(ctx context.Context) scan.Sink {
	return recordSink{ctx: ctx, l: l}
}

// Load scans src, copies every valid record into the staging table and
// routes invalid ones to h. h.Valid is ignored. The table is created first
// when missing.
func Load(ctx context.Context, db DBTX, s *scan.Scanner, src scan.Source, l *Loader, h scan.Handlers) (scan.Summary, Result, error) {
	if err := EnsureTable(ctx, db, l.table); err != nil {
		return scan.Summary{}, Result{}, err
	}
	h.Valid = l.Sink(ctx)
	sum, err := s.Run(ctx, src, h)
	if err == nil {
		err = l.Flush(ctx)
	} else if ctx.Err() != nil {
		err = errors.Join(err, l.Flush(context.WithoutCancel(ctx)))
	}
	return sum, l.Result(), err
}
