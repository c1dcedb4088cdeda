// Package scan runs a record source through a schema validator.
//
// The loop is Reading → Validating → Writing|Logging → Reading until the
// source is exhausted, the context is cancelled, or the configured error
// limit is reached with StopOnMax set. One bad record never aborts the scan.
package scan

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/JonMunkholm/csvtools/internal/csvio"
	"github.com/JonMunkholm/csvtools/internal/schema"
)

// DefaultContextCheckInterval is how many records pass between cancellation checks.
const DefaultContextCheckInterval = 100

// Source yields records until io.EOF. *csvio.Reader satisfies it.
type Source interface {
	Next() (csvio.Record, error)
}

// Sink receives valid records in input order. *csvio.Writer satisfies it.
type Sink interface {
	Write(fields []string) error
}

// RecordSink is a Sink that also receives the source line of each record.
// Run prefers WriteRecord when the Valid handler implements it.
type RecordSink interface {
	WriteRecord(line int, fields []string) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(fields []string) error

// Write calls f.
func (f SinkFunc) Write(fields []string) error { return f(fields) }

// IssueSink receives diagnostics. *IssueLog and *Collector satisfy it.
type IssueSink interface {
	Report(Issue) error
}

// RejectSink receives invalid records with a one-line reason.
type RejectSink interface {
	Reject(line int, reason string, fields []string) error
}

// Handlers are the optional destinations of a scan. Nil fields are skipped.
type Handlers struct {
	Valid    Sink
	Rejected RejectSink
	Issues   IssueSink
}

// Options tune a scan.
type Options struct {
	// MaxErrors caps how many issues reach Handlers.Issues; 0 means no cap.
	MaxErrors int

	// StopOnMax ends the scan once MaxErrors issues have been recorded.
	// Without it the scan runs to the end and only the recording stops.
	StopOnMax bool

	// ReportInterval is records between progress log lines; 0 disables them.
	ReportInterval int

	// ContextCheckInterval is records between cancellation checks.
	ContextCheckInterval int
}

// Summary is the result of a scan.
type Summary struct {
	Processed int            `json:"processed"`
	Valid     int            `json:"valid"`
	Invalid   int            `json:"invalid"`
	Issues    int            `json:"issues"`
	Recorded  int            `json:"recorded"`
	Truncated bool           `json:"truncated"` // some issues were counted but not recorded
	Stopped   bool           `json:"stopped"`   // the scan ended at the error limit
	ByKind    map[Kind]int   `json:"by_kind"`
	ByColumn  map[string]int `json:"by_column"`
	Elapsed   time.Duration  `json:"elapsed_ns"`
}

// ColumnCounts returns ByColumn as "column: count" strings, highest first.
func (s Summary) ColumnCounts() []string {
	cols := make([]string, 0, len(s.ByColumn))
	for c := range s.ByColumn {
		cols = append(cols, c)
	}
	sort.Slice(cols, func(i, j int) bool {
		if s.ByColumn[cols[i]] != s.ByColumn[cols[j]] {
			return s.ByColumn[cols[i]] > s.ByColumn[cols[j]]
		}
		return cols[i] < cols[j]
	})
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = fmt.Sprintf("%s: %d", c, s.ByColumn[c])
	}
	return out
}

// Scanner validates a record stream against one model.
// A Scanner keeps no state between runs.
type Scanner struct {
	validator *schema.RecordValidator
	opts      Options
	logger    *slog.Logger
}

// New creates a Scanner. A nil logger uses slog.Default().
func New(v *schema.RecordValidator, opts Options, logger *slog.Logger) *Scanner {
	if opts.ContextCheckInterval <= 0 {
		opts.ContextCheckInterval = DefaultContextCheckInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{validator: v, opts: opts, logger: logger}
}

// percenter is implemented by sources that know how far through the input they are.
type percenter interface {
	Percent() int
}

// Run drives src to completion. The returned error is non-nil only for
// failures that stop the scan: source I/O errors, sink write errors and
// context cancellation. The Summary is valid in every case.
func (s *Scanner) Run(ctx context.Context, src Source, h Handlers) (Summary, error) {
	sum := Summary{ByKind: map[Kind]int{}, ByColumn: map[string]int{}}
	progress := NewProgress(s.logger, s.opts.ReportInterval)
	pct, _ := src.(percenter)

	finish := func(err error) (Summary, error) {
		sum.Elapsed = progress.Done(sum.Processed)
		return sum, err
	}

	for {
		if sum.Processed%s.opts.ContextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return finish(fmt.Errorf("scan cancelled after %d records: %w", sum.Processed, err))
			}
		}

		rec, err := src.Next()
		if err == io.EOF {
			return finish(nil)
		}
		if err != nil {
			return finish(fmt.Errorf("read record %d: %w", sum.Processed+1, err))
		}
		sum.Processed++

		var issues []Issue
		if rec.Err != nil {
			issues = []Issue{ParseIssue(rec.Line, rec.Err)}
		} else {
			out := s.validator.Validate(rec.Fields)
			if out.Valid() {
				sum.Valid++
				if err := writeValid(h.Valid, rec); err != nil {
					return finish(fmt.Errorf("write record at line %d: %w", rec.Line, err))
				}
				s.tick(progress, sum.Processed, pct)
				continue
			}
			issues = IssuesFor(rec.Line, out)
		}

		sum.Invalid++
		if h.Rejected != nil {
			if err := h.Rejected.Reject(rec.Line, reason(issues), rec.Fields); err != nil {
				return finish(fmt.Errorf("write rejected record at line %d: %w", rec.Line, err))
			}
		}

		stop, err := s.record(&sum, issues, h.Issues)
		if err != nil {
			return finish(err)
		}
		if stop {
			sum.Truncated = true
			sum.Stopped = true
			s.logger.Warn("error limit reached, stopping scan",
				"max_errors", s.opts.MaxErrors,
				"line", rec.Line,
			)
			return finish(nil)
		}
		s.tick(progress, sum.Processed, pct)
	}
}

func writeValid(sink Sink, rec csvio.Record) error {
	switch sk := sink.(type) {
	case nil:
		return nil
	case RecordSink:
		return sk.WriteRecord(rec.Line, rec.Fields)
	default:
		return sk.Write(rec.Fields)
	}
}

func (s *Scanner) tick(p *Progress, processed int, pct percenter) {
	percent := 0
	if pct != nil {
		percent = pct.Percent()
	}
	p.Tick(processed, percent)
}

// record tallies issues and forwards them to sink until MaxErrors is reached.
// It reports whether the scan should stop.
func (s *Scanner) record(sum *Summary, issues []Issue, sink IssueSink) (bool, error) {
	for _, is := range issues {
		sum.Issues++
		sum.ByKind[is.Kind]++
		if is.Column != "" {
			sum.ByColumn[is.Column]++
		}

		if s.opts.MaxErrors > 0 && sum.Recorded >= s.opts.MaxErrors {
			sum.Truncated = true
			continue
		}
		sum.Recorded++
		if sink != nil {
			if err := sink.Report(is); err != nil {
				return false, fmt.Errorf("write error log: %w", err)
			}
		}
	}
	stop := s.opts.StopOnMax && s.opts.MaxErrors > 0 && sum.Recorded >= s.opts.MaxErrors
	return stop, nil
}

// reason joins issue details into one line.
func reason(issues []Issue) string {
	parts := make([]string, len(issues))
	for i, is := range issues {
		parts[i] = is.Details
	}
	return strings.Join(parts, "; ")
}

// ErrHeader wraps header problems so callers can tell them from I/O errors.
var ErrHeader = errors.New("header check failed")

// CheckHeader reads the header from rd and validates it against the model.
func CheckHeader(rd *csvio.Reader, m *schema.Model) ([]string, error) {
	header, err := rd.Header()
	if err != nil {
		return nil, err
	}
	if err := schema.ValidateHeader(header, m); err != nil {
		return header, fmt.Errorf("%w: %w", ErrHeader, err)
	}
	return header, nil
}
