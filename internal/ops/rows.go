package ops

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/JonMunkholm/csvtools/internal/csvio"
	"github.com/JonMunkholm/csvtools/internal/logging"
	"github.com/JonMunkholm/csvtools/internal/scan"
	"github.com/JonMunkholm/csvtools/internal/schema"
)

// RowResult counts the records an operation read and wrote.
type RowResult struct {
	Processed int // data records read, malformed ones included
	Written   int // data records written
	Skipped   int // records dropped as malformed
}

// Dropped returns the records read but not written.
func (r RowResult) Dropped() int { return r.Processed - r.Written }

// eachRecord drives rd, calling fn for well-formed records and onErr for
// records that failed to parse. A nil onErr skips them silently.
func eachRecord(ctx context.Context, rd *csvio.Reader, res *RowResult, fn func(csvio.Record) error, onErr func(csvio.Record) error) error {
	for {
		if err := cancelled(ctx, res.Processed); err != nil {
			return err
		}
		rec, err := rd.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		res.Processed++
		if rec.Err != nil {
			res.Skipped++
			if onErr != nil {
				if err := onErr(rec); err != nil {
					return err
				}
			}
			continue
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
}

// Filter writes the records of in whose column equals value exactly.
func Filter(ctx context.Context, in, out, column, value string) (RowResult, error) {
	var res RowResult

	rd, header, err := openWithHeader(in, csvio.ReaderOptions{})
	if err != nil {
		return res, err
	}
	defer rd.Close()

	idx, err := columnIndex(header, column)
	if err != nil {
		return res, err
	}

	w, err := createWithHeader(out, header)
	if err != nil {
		return res, err
	}

	err = eachRecord(ctx, rd, &res, func(rec csvio.Record) error {
		if idx >= len(rec.Fields) || rec.Fields[idx] != value {
			return nil
		}
		res.Written++
		return w.Write(rec.Fields)
	}, nil)
	return res, errors.Join(err, w.Close())
}

// CleanInvalid writes the records of in whose field count matches the
// header and logs the rest to errLog in the error-log CSV format.
func CleanInvalid(ctx context.Context, in, out, errLog string) (RowResult, error) {
	var res RowResult

	rd, header, err := openWithHeader(in, csvio.ReaderOptions{})
	if err != nil {
		return res, err
	}
	defer rd.Close()

	w, err := createWithHeader(out, header)
	if err != nil {
		return res, err
	}
	log, err := scan.CreateIssueLog(errLog)
	if err != nil {
		w.Close()
		return res, err
	}

	expected := len(header)
	err = eachRecord(ctx, rd, &res, func(rec csvio.Record) error {
		if len(rec.Fields) != expected {
			res.Skipped++
			return log.Report(scan.Issue{
				Line:    rec.Line,
				Kind:    scan.KindColumnCount,
				Details: fmt.Sprintf("expected %d columns, got %d", expected, len(rec.Fields)),
				Key:     schema.PlaceholderKey,
			})
		}
		res.Written++
		return w.Write(rec.Fields)
	}, func(rec csvio.Record) error {
		return log.Report(scan.ParseIssue(rec.Line, rec.Err))
	})
	return res, errors.Join(err, w.Close(), log.Close())
}

// Dedup writes the records of in, dropping any record identical in every
// field to an earlier one.
func Dedup(ctx context.Context, in, out string) (RowResult, error) {
	var res RowResult

	rd, header, err := openWithHeader(in, csvio.ReaderOptions{})
	if err != nil {
		return res, err
	}
	defer rd.Close()

	w, err := createWithHeader(out, header)
	if err != nil {
		return res, err
	}

	seen := make(map[string]struct{})
	err = eachRecord(ctx, rd, &res, func(rec csvio.Record) error {
		key := strings.Join(rec.Fields, "\x1f")
		if _, dup := seen[key]; dup {
			return nil
		}
		seen[key] = struct{}{}
		res.Written++
		return w.Write(rec.Fields)
	}, nil)
	return res, errors.Join(err, w.Close())
}

// DeleteFromRow copies in to out up to, but not including, data row row.
// Rows are numbered the way a spreadsheet shows them: row 1 is the header and
// row 2 the first data record. Malformed records count as rows but are not
// written.
func DeleteFromRow(ctx context.Context, in, out string, row int) (RowResult, error) {
	var res RowResult
	if row < 2 {
		return res, fmt.Errorf("row must be 2 or greater, row 1 is the header: got %d", row)
	}

	rd, header, err := openWithHeader(in, csvio.ReaderOptions{TrimSpace: true})
	if err != nil {
		return res, err
	}
	defer rd.Close()

	w, err := createWithHeader(out, header)
	if err != nil {
		return res, err
	}

	logger := logging.FromContext(ctx)
	err = eachRecord(ctx, rd, &res, func(rec csvio.Record) error {
		if res.Processed+1 >= row {
			return nil
		}
		res.Written++
		return w.Write(rec.Fields)
	}, func(rec csvio.Record) error {
		logger.Warn("skipping malformed record", "line", rec.Line, "error", rec.Err)
		return nil
	})
	return res, errors.Join(err, w.Close())
}

// SplitResult lists the chunk files Split wrote.
type SplitResult struct {
	Records int
	Chunks  []string
}

// ChunkName returns the file name of chunk n (1-based) for prefix.
func ChunkName(prefix string, n int) string {
	return fmt.Sprintf("%s_%03d.csv", prefix, n)
}

// Split writes the records of in to prefix_001.csv, prefix_002.csv, … with
// at most rows data records each. Every chunk starts with the header. An
// input with no data records still produces one header-only chunk.
func Split(ctx context.Context, in, prefix string, rows int) (SplitResult, error) {
	var res SplitResult
	if rows <= 0 {
		return res, fmt.Errorf("rows per chunk must be positive: got %d", rows)
	}

	rd, header, err := openWithHeader(in, csvio.ReaderOptions{})
	if err != nil {
		return res, err
	}
	defer rd.Close()

	var (
		w       *csvio.Writer
		inChunk int
	)
	next := func() error {
		if w != nil {
			err := w.Close()
			w = nil
			if err != nil {
				return err
			}
		}
		name := ChunkName(prefix, len(res.Chunks)+1)
		nw, err := createWithHeader(name, header)
		if err != nil {
			return err
		}
		w, inChunk = nw, 0
		res.Chunks = append(res.Chunks, name)
		return nil
	}

	var counts RowResult
	err = eachRecord(ctx, rd, &counts, func(rec csvio.Record) error {
		if w == nil || inChunk == rows {
			if err := next(); err != nil {
				return err
			}
		}
		inChunk++
		res.Records++
		return w.Write(rec.Fields)
	}, func(rec csvio.Record) error {
		return fmt.Errorf("line %d: %w", rec.Line, rec.Err)
	})
	if err == nil && w == nil {
		err = next()
	}
	if w != nil {
		err = errors.Join(err, w.Close())
	}
	return res, err
}
