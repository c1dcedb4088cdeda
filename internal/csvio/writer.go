package csvio

import (
	"bufio"
	"encoding/csv"
	"errors"
	"io"
	"os"
)

// Writer is a record sink. Fields are quoted only when they contain the
// delimiter, a quote or a line break.
type Writer struct {
	buf     *bufio.Writer
	csv     *csv.Writer
	closer  io.Closer
	written int
}

// NewWriter wraps w.
func NewWriter(w io.Writer) *Writer {
	buf := bufio.NewWriterSize(w, readBufferSize)
	return &Writer{buf: buf, csv: csv.NewWriter(buf)}
}

// Create creates or truncates path. The caller must Close the Writer.
func Create(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w := NewWriter(f)
	w.closer = f
	return w, nil
}

// Write writes one record.
func (w *Writer) Write(fields []string) error {
	if err := w.csv.Write(fields); err != nil {
		return err
	}
	w.written++
	return nil
}

// Written returns the number of records written, header included.
func (w *Writer) Written() int { return w.written }

// Flush pushes buffered records to the underlying writer.
func (w *Writer) Flush() error {
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		return err
	}
	return w.buf.Flush()
}

// Close flushes and closes the underlying file, if the Writer owns one.
func (w *Writer) Close() error {
	err := w.Flush()
	if w.closer != nil {
		err = errors.Join(err, w.closer.Close())
	}
	return err
}
