package csvio

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// maxLineSize bounds a single physical line; bulk exports occasionally carry
// multi-megabyte free-text fields.
const maxLineSize = 16 * 1024 * 1024

// ErrStop ends EachLine early without reporting an error.
var ErrStop = errors.New("stop")

// EachLine calls fn for every physical line of r with its 1-based number.
// Line terminators, including a trailing '\r', are removed. A leading BOM
// on the first line is removed too.
func EachLine(r io.Reader, fn func(n int, line string) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, readBufferSize), maxLineSize)

	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimSuffix(sc.Text(), "\r")
		if n == 1 {
			line = strings.TrimPrefix(line, string(utf8BOM))
		}
		if err := fn(n, line); err != nil {
			if errors.Is(err, ErrStop) {
				return nil
			}
			return err
		}
	}
	return sc.Err()
}

// EachFileLine is EachLine over the file at path.
func EachFileLine(path string, fn func(n int, line string) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := EachLine(f, fn); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// CountLines returns the number of physical lines in path.
func CountLines(path string) (int, error) {
	count := 0
	err := EachFileLine(path, func(int, string) error {
		count++
		return nil
	})
	return count, err
}

// ReadList reads a file list: one path per line, blank lines and lines
// starting with '#' ignored.
func ReadList(path string) ([]string, error) {
	var paths []string
	err := EachFileLine(path, func(_ int, line string) error {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			return nil
		}
		paths = append(paths, line)
		return nil
	})
	return paths, err
}

// LineWriter writes raw lines, each terminated by '\n'.
type LineWriter struct {
	buf    *bufio.Writer
	closer io.Closer
	lines  int
}

// NewLineWriter wraps w.
func NewLineWriter(w io.Writer) *LineWriter {
	return &LineWriter{buf: bufio.NewWriterSize(w, readBufferSize)}
}

// CreateLines creates or truncates path for line output.
func CreateLines(path string) (*LineWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	lw := NewLineWriter(f)
	lw.closer = f
	return lw, nil
}

// WriteLine writes line followed by '\n'.
func (w *LineWriter) WriteLine(line string) error {
	if _, err := w.buf.WriteString(line); err != nil {
		return err
	}
	w.lines++
	return w.buf.WriteByte('\n')
}

// Lines returns the number of lines written.
func (w *LineWriter) Lines() int { return w.lines }

// Close flushes and closes the underlying file, if owned.
func (w *LineWriter) Close() error {
	err := w.buf.Flush()
	if w.closer != nil {
		err = errors.Join(err, w.closer.Close())
	}
	return err
}
