// Package csvio reads and writes the delimited files the tools operate on.
//
// A Reader is a forward-only record source: a malformed record is reported
// on the Record itself and reading carries on with the next line. A Writer
// quotes fields only where needed, the same way for every command.
package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrEmptyFile is returned by Header when the input has no lines at all.
var ErrEmptyFile = errors.New("empty file: no header line")

// Record is one parsed row.
type Record struct {
	Line   int      // 1-based line number where the record starts
	Fields []string // nil when Err is set
	Err    error    // parse error for this record only
}

// ReaderOptions tune parsing.
type ReaderOptions struct {
	// Strict rejects bare quotes inside unquoted fields instead of keeping them.
	Strict bool

	// TrimSpace strips leading and trailing whitespace from every field.
	TrimSpace bool

	// Comma is the field delimiter; zero means ','.
	Comma rune
}

// Reader yields the header and then one Record per row.
type Reader struct {
	csv    *csv.Reader
	stream *Stream
	closer io.Closer
	opts   ReaderOptions

	header     []string
	headerRead bool
	records    int
}

// NewReader builds a Reader over r. size is the input length in bytes when
// known, used only for progress.
func NewReader(r io.Reader, size int64, opts ReaderOptions) *Reader {
	stream := Wrap(r, size)

	cr := csv.NewReader(stream)
	cr.FieldsPerRecord = -1 // column counts are checked by the caller
	cr.LazyQuotes = !opts.Strict
	if opts.Comma != 0 {
		cr.Comma = opts.Comma
	}

	return &Reader{csv: cr, stream: stream, opts: opts}
}

// Open opens path for reading. The caller must Close the Reader.
func Open(path string, opts ReaderOptions) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	var size int64
	if info, err := f.Stat(); err == nil {
		size = info.Size()
	}
	rd := NewReader(f, size, opts)
	rd.closer = f
	return rd, nil
}

// Close releases the underlying file, if the Reader owns one.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// Header returns the first record. It is read once and cached.
func (r *Reader) Header() ([]string, error) {
	if r.headerRead {
		return r.header, nil
	}
	r.headerRead = true

	fields, err := r.csv.Read()
	if err == io.EOF {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	r.header = r.clean(fields)
	return r.header, nil
}

// Next returns the next data record, or io.EOF when the input is exhausted.
// A record that fails to parse comes back with Err set and a nil error, so
// one bad line never ends the stream. I/O failures are returned as errors.
func (r *Reader) Next() (Record, error) {
	if !r.headerRead {
		if _, err := r.Header(); err != nil {
			return Record{}, err
		}
	}

	fields, err := r.csv.Read()
	if err == io.EOF {
		return Record{}, io.EOF
	}

	var pe *csv.ParseError
	if errors.As(err, &pe) {
		r.records++
		return Record{Line: pe.StartLine, Err: pe}, nil
	}
	if err != nil {
		return Record{}, err
	}

	r.records++
	line, _ := r.csv.FieldPos(0)
	return Record{Line: line, Fields: r.clean(fields)}, nil
}

// Records returns how many data records, good or bad, have been read.
func (r *Reader) Records() int { return r.records }

// BytesRead returns the bytes consumed from the input so far.
func (r *Reader) BytesRead() int64 { return r.stream.BytesRead() }

// Percent returns read progress as 0-100, or 0 when the size is unknown.
func (r *Reader) Percent() int { return r.stream.Percent() }

func (r *Reader) clean(fields []string) []string {
	if !r.opts.TrimSpace {
		return fields
	}
	for i, f := range fields {
		fields[i] = strings.TrimSpace(f)
	}
	return fields
}

// ReadAll drains the reader into memory. Records with parse errors are skipped
// and counted.
func (r *Reader) ReadAll() (rows [][]string, skipped int, err error) {
	for {
		rec, err := r.Next()
		if err == io.EOF {
			return rows, skipped, nil
		}
		if err != nil {
			return rows, skipped, err
		}
		if rec.Err != nil {
			skipped++
			continue
		}
		rows = append(rows, rec.Fields)
	}
}
