package csvio

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"testing/iotest"
)

func TestStripBOM(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected string
	}{
		{
			name:     "file with BOM",
			input:    append([]byte{0xEF, 0xBB, 0xBF}, []byte("Cuit,RazonSocial")...),
			expected: "Cuit,RazonSocial",
		},
		{
			name:     "file without BOM",
			input:    []byte("Cuit,RazonSocial"),
			expected: "Cuit,RazonSocial",
		},
		{
			name:     "empty file",
			input:    []byte{},
			expected: "",
		},
		{
			name:     "only BOM",
			input:    []byte{0xEF, 0xBB, 0xBF},
			expected: "",
		},
		{
			name:     "partial BOM kept",
			input:    []byte{0xEF, 0xBB, 'a'},
			expected: string([]byte{0xEF, 0xBB, 'a'}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := io.ReadAll(stripBOM(bytes.NewReader(tt.input)))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(result) != tt.expected {
				t.Errorf("got %q, want %q", string(result), tt.expected)
			}
		})
	}
}

func TestUTF8Sanitizer(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected string
	}{
		{"valid ASCII", []byte("hello,world"), "hello,world"},
		{"valid multibyte", []byte("Peña,Córdoba"), "Peña,Córdoba"},
		{"invalid byte replaced", []byte{'h', 'e', 0x80, 'l', 'o'}, "he?lo"},
		{"latin1 accent replaced", []byte{'P', 'e', 0xF1, 'a'}, "Pe?a"},
		{"truncated sequence at EOF", []byte{'a', 0xE2, 0x82}, "a??"},
		{"empty input", []byte{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := io.ReadAll(NewUTF8Sanitizer(bytes.NewReader(tt.input)))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(result) != tt.expected {
				t.Errorf("got %q, want %q", string(result), tt.expected)
			}
		})
	}
}

func TestUTF8Sanitizer_SplitReads(t *testing.T) {
	input := strings.Repeat("año,€uro,", 50)

	// One byte at a time from the source splits every multi-byte rune.
	s := NewUTF8Sanitizer(iotest.OneByteReader(strings.NewReader(input)))

	// And a tiny destination buffer forces the pending path.
	var out bytes.Buffer
	buf := make([]byte, 2)
	for {
		n, err := s.Read(buf)
		out.Write(buf[:n])
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if out.String() != input {
		t.Errorf("got %q, want %q", out.String(), input)
	}
}

func TestCountingReader(t *testing.T) {
	input := strings.Repeat("x", 1000)
	reader := NewCountingReader(strings.NewReader(input), int64(len(input)))

	buf := make([]byte, 100)
	totalRead := 0
	for {
		n, err := reader.Read(buf)
		totalRead += n
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if totalRead == 500 && reader.Percent() != 50 {
			t.Errorf("Percent at half = %d, want 50", reader.Percent())
		}
	}

	if totalRead != len(input) {
		t.Errorf("total read = %d, want %d", totalRead, len(input))
	}
	if reader.BytesRead() != int64(len(input)) {
		t.Errorf("BytesRead = %d, want %d", reader.BytesRead(), len(input))
	}
	if reader.Percent() != 100 {
		t.Errorf("Percent = %d, want 100", reader.Percent())
	}
}

func TestCountingReader_UnknownTotal(t *testing.T) {
	reader := NewCountingReader(strings.NewReader("abc"), 0)
	if _, err := io.ReadAll(reader); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reader.Percent() != 0 {
		t.Errorf("Percent = %d, want 0", reader.Percent())
	}
}

func TestWrap(t *testing.T) {
	input := append([]byte{0xEF, 0xBB, 0xBF}, []byte{'h', 'e', 0x80, 'l', 'o'}...)

	reader := Wrap(bytes.NewReader(input), int64(len(input)))
	result, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if string(result) != "he?lo" {
		t.Errorf("got %q, want %q", string(result), "he?lo")
	}
	if reader.BytesRead() == 0 {
		t.Error("BytesRead should be > 0")
	}
}

func TestHasBOM(t *testing.T) {
	if !HasBOM([]byte{0xEF, 0xBB, 0xBF, 'a'}) {
		t.Error("HasBOM = false, want true")
	}
	if HasBOM([]byte("abc")) {
		t.Error("HasBOM = true, want false")
	}
}
