package csvio

// streaming.go provides the byte-level readers every record source is built on.
//
// They wrap io.Reader so that bulk exports can be read with constant memory:
//
//   - stripBOM: drops a leading UTF-8 BOM (0xEF 0xBB 0xBF) written by Excel
//   - UTF8Sanitizer: replaces invalid UTF-8 bytes with '?'
//   - CountingReader: tracks bytes consumed for progress reporting
//
// Use Wrap to apply all three in the right order.

import (
	"bufio"
	"bytes"
	"io"
	"unicode/utf8"
)

const readBufferSize = 64 * 1024

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// stripBOM returns a buffered reader positioned after the BOM, if there was one.
func stripBOM(r io.Reader) *bufio.Reader {
	br := bufio.NewReaderSize(r, readBufferSize)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	return br
}

// HasBOM reports whether data starts with a UTF-8 BOM.
func HasBOM(data []byte) bool {
	return bytes.HasPrefix(data, utf8BOM)
}

// UTF8Sanitizer replaces invalid UTF-8 bytes with '?' as they stream past.
// Replacing with a single byte keeps output no longer than input.
type UTF8Sanitizer struct {
	src     *bufio.Reader
	pending []byte // tail of a rune that did not fit the caller's buffer
}

// NewUTF8Sanitizer creates a sanitizer over r.
func NewUTF8Sanitizer(r io.Reader) *UTF8Sanitizer {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReaderSize(r, readBufferSize)
	}
	return &UTF8Sanitizer{src: br}
}

// Read implements io.Reader.
func (s *UTF8Sanitizer) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		if len(s.pending) > 0 {
			c := copy(p[n:], s.pending)
			s.pending = s.pending[c:]
			n += c
			continue
		}

		// Never block for more input once something can be returned.
		if n > 0 && s.src.Buffered() == 0 {
			break
		}

		// Fast path: copy a run of ASCII straight out of the buffer.
		if buffered := s.src.Buffered(); buffered > 0 {
			buf, _ := s.src.Peek(buffered)
			k := asciiPrefix(buf, len(p)-n)
			if k > 0 {
				copy(p[n:], buf[:k])
				_, _ = s.src.Discard(k)
				n += k
				continue
			}
		}

		r, size, err := s.src.ReadRune()
		if err != nil {
			if n > 0 {
				return n, nil
			}
			return 0, err
		}

		switch {
		case r == utf8.RuneError && size == 1:
			p[n] = '?'
			n++
		default:
			var enc [utf8.UTFMax]byte
			w := utf8.EncodeRune(enc[:], r)
			c := copy(p[n:], enc[:w])
			n += c
			if c < w {
				s.pending = append(s.pending[:0], enc[c:w]...)
			}
		}
	}
	return n, nil
}

// asciiPrefix returns how many leading bytes of buf, at most limit, are ASCII.
func asciiPrefix(buf []byte, limit int) int {
	if limit > len(buf) {
		limit = len(buf)
	}
	for i := 0; i < limit; i++ {
		if buf[i] >= utf8.RuneSelf {
			return i
		}
	}
	return limit
}

// CountingReader tracks how many bytes have been read through it.
type CountingReader struct {
	src   io.Reader
	read  int64
	total int64
}

// NewCountingReader wraps r. total is the expected size, or 0 if unknown.
func NewCountingReader(r io.Reader, total int64) *CountingReader {
	return &CountingReader{src: r, total: total}
}

// Read implements io.Reader.
func (c *CountingReader) Read(p []byte) (int, error) {
	n, err := c.src.Read(p)
	c.read += int64(n)
	return n, err
}

// BytesRead returns the number of bytes consumed so far.
func (c *CountingReader) BytesRead() int64 { return c.read }

// Total returns the expected size given at construction.
func (c *CountingReader) Total() int64 { return c.total }

// Percent returns progress in the range 0-100, or 0 when the total is unknown.
func (c *CountingReader) Percent() int {
	if c.total <= 0 {
		return 0
	}
	p := int(c.read * 100 / c.total)
	if p > 100 {
		p = 100
	}
	return p
}

// Stream is a sanitized reader that reports progress against the raw input.
type Stream struct {
	io.Reader
	raw *CountingReader
}

// BytesRead returns raw bytes consumed, including read-ahead.
func (s *Stream) BytesRead() int64 { return s.raw.BytesRead() }

// Percent returns raw read progress as 0-100.
func (s *Stream) Percent() int { return s.raw.Percent() }

// Wrap strips a BOM and sanitizes UTF-8, counting the raw bytes underneath.
func Wrap(r io.Reader, total int64) *Stream {
	raw := NewCountingReader(r, total)
	return &Stream{Reader: NewUTF8Sanitizer(stripBOM(raw)), raw: raw}
}
