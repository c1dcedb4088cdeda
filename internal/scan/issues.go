package scan

import (
	"fmt"
	"io"
	"strconv"

	"github.com/JonMunkholm/csvtools/internal/csvio"
	"github.com/JonMunkholm/csvtools/internal/schema"
)

// Kind classifies an Issue. The values appear verbatim in error logs.
type Kind string

const (
	KindParse         Kind = "ParseError"
	KindColumnCount   Kind = "ColumnCount"
	KindInvalidNumber Kind = "InvalidNumber"
	KindInvalidDate   Kind = "InvalidDate"
	KindMissingValue  Kind = "MissingValue"
	KindKeyExtraction Kind = "KeyExtraction"
	KindHeader        Kind = "HeaderMismatch"
)

// Issue is one diagnostic about one record.
type Issue struct {
	Line    int    `json:"line"`
	Kind    Kind   `json:"kind"`
	Column  string `json:"column,omitempty"`
	Details string `json:"details"`
	Key     string `json:"key"`
}

// IssuesFor converts a validation outcome into issues: column count first,
// then fields in column order, then key extraction.
func IssuesFor(line int, out schema.Outcome) []Issue {
	key := out.DisplayKey()
	var issues []Issue

	if !out.ColumnCountOK() {
		issues = append(issues, Issue{
			Line:    line,
			Kind:    KindColumnCount,
			Details: fmt.Sprintf("expected %d columns, got %d", out.Expected, out.Actual),
			Key:     key,
		})
	}
	for _, fe := range out.Fields {
		issues = append(issues, Issue{
			Line:    line,
			Kind:    fieldKind(fe),
			Column:  fe.Column,
			Details: fe.Error(),
			Key:     key,
		})
	}
	if out.KeyErr != nil {
		issues = append(issues, Issue{
			Line:    line,
			Kind:    KindKeyExtraction,
			Details: out.KeyErr.Error(),
			Key:     key,
		})
	}
	return issues
}

func fieldKind(fe *schema.FieldError) Kind {
	switch {
	case fe.Reason == schema.ReasonEmpty:
		return KindMissingValue
	case fe.Type == schema.FieldDate:
		return KindInvalidDate
	default:
		return KindInvalidNumber
	}
}

// ParseIssue describes a record the CSV reader could not parse.
func ParseIssue(line int, err error) Issue {
	return Issue{Line: line, Kind: KindParse, Details: err.Error(), Key: schema.PlaceholderKey}
}

// HeaderIssue describes a header that does not match the model. It is
// always reported on line 1.
func HeaderIssue(err error) Issue {
	return Issue{Line: 1, Kind: KindHeader, Details: err.Error(), Key: schema.PlaceholderKey}
}

// IssueLogHeader is the first line of every error log.
var IssueLogHeader = []string{"Line", "ErrorType", "Details", "DynamoDbKey"}

// IssueLog writes issues as CSV for later review. It is append-only.
type IssueLog struct {
	w *csvio.Writer
}

// NewIssueLog writes the header to w and returns the log.
func NewIssueLog(w io.Writer) (*IssueLog, error) {
	l := &IssueLog{w: csvio.NewWriter(w)}
	if err := l.w.Write(IssueLogHeader); err != nil {
		return nil, err
	}
	return l, nil
}

// CreateIssueLog creates path and writes the header.
func CreateIssueLog(path string) (*IssueLog, error) {
	w, err := csvio.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create error log: %w", err)
	}
	if err := w.Write(IssueLogHeader); err != nil {
		w.Close()
		return nil, err
	}
	return &IssueLog{w: w}, nil
}

// Report implements IssueSink.
func (l *IssueLog) Report(is Issue) error {
	return l.w.Write([]string{strconv.Itoa(is.Line), string(is.Kind), is.Details, is.Key})
}

// Count returns the number of issues written.
func (l *IssueLog) Count() int { return l.w.Written() - 1 }

// Close flushes the log and closes the file it owns.
func (l *IssueLog) Close() error { return l.w.Close() }

// Collector keeps issues in memory.
type Collector struct {
	Issues []Issue
}

// Report implements IssueSink.
func (c *Collector) Report(is Issue) error {
	c.Issues = append(c.Issues, is)
	return nil
}

// RejectLog writes rejected records next to the reason they failed, in the
// same column layout as the input with Line and Reason prepended.
type RejectLog struct {
	w *csvio.Writer
}

// CreateRejectLog creates path and writes a header built from columns.
func CreateRejectLog(path string, columns []string) (*RejectLog, error) {
	w, err := csvio.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create reject log: %w", err)
	}
	if err := w.Write(append([]string{"Line", "Reason"}, columns...)); err != nil {
		w.Close()
		return nil, err
	}
	return &RejectLog{w: w}, nil
}

// Reject implements RejectSink.
func (l *RejectLog) Reject(line int, reason string, fields []string) error {
	return l.w.Write(append([]string{strconv.Itoa(line), reason}, fields...))
}

// Count returns the number of rejected rows written.
func (l *RejectLog) Count() int { return l.w.Written() - 1 }

// Close flushes the log and closes the file it owns.
func (l *RejectLog) Close() error { return l.w.Close() }
