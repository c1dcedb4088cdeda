package csvio

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestReader_HeaderAndRecords(t *testing.T) {
	input := "\xEF\xBB\xBFCuit,RazonSocial\n30711884562,ACME SA\n30500000001,\"Uno, Dos\"\n"

	rd := NewReader(strings.NewReader(input), int64(len(input)), ReaderOptions{})
	header, err := rd.Header()
	if err != nil {
		t.Fatalf("Header() error = %v", err)
	}
	if !reflect.DeepEqual(header, []string{"Cuit", "RazonSocial"}) {
		t.Errorf("Header() = %q", header)
	}

	var got []Record
	for {
		rec, err := rd.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		got = append(got, rec)
	}

	if len(got) != 2 {
		t.Fatalf("got %d records, want 2", len(got))
	}
	if got[0].Line != 2 || got[1].Line != 3 {
		t.Errorf("lines = %d,%d, want 2,3", got[0].Line, got[1].Line)
	}
	if got[1].Fields[1] != "Uno, Dos" {
		t.Errorf("quoted field = %q, want %q", got[1].Fields[1], "Uno, Dos")
	}
	if rd.Records() != 2 {
		t.Errorf("Records() = %d, want 2", rd.Records())
	}
	if rd.Percent() != 100 {
		t.Errorf("Percent() = %d, want 100", rd.Percent())
	}
}

func TestReader_RaggedRowsAreNotErrors(t *testing.T) {
	input := "a,b,c\n1,2\n1,2,3,4\n"
	rd := NewReader(strings.NewReader(input), 0, ReaderOptions{})

	rows, skipped, err := rd.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if skipped != 0 {
		t.Errorf("skipped = %d, want 0", skipped)
	}
	if len(rows[0]) != 2 || len(rows[1]) != 4 {
		t.Errorf("row lengths = %d,%d, want 2,4", len(rows[0]), len(rows[1]))
	}
}

func TestReader_ParseErrorDoesNotEndStream(t *testing.T) {
	input := "a,b\n1,2\n3,x\"y\n5,6\n"
	rd := NewReader(strings.NewReader(input), 0, ReaderOptions{Strict: true})

	var lines []int
	var failed []int
	for {
		rec, err := rd.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		lines = append(lines, rec.Line)
		if rec.Err != nil {
			failed = append(failed, rec.Line)
		}
	}

	if !reflect.DeepEqual(lines, []int{2, 3, 4}) {
		t.Errorf("lines = %v, want [2 3 4]", lines)
	}
	if !reflect.DeepEqual(failed, []int{3}) {
		t.Errorf("failed = %v, want [3]", failed)
	}
}

func TestReader_LazyQuotesByDefault(t *testing.T) {
	input := "a,b\n3,x\"y\n"
	rd := NewReader(strings.NewReader(input), 0, ReaderOptions{})

	rec, err := rd.Next()
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if rec.Err != nil {
		t.Fatalf("record error = %v", rec.Err)
	}
	if rec.Fields[1] != `x"y` {
		t.Errorf("field = %q, want %q", rec.Fields[1], `x"y`)
	}
}

func TestReader_TrimSpace(t *testing.T) {
	rd := NewReader(strings.NewReader(" a , b \n 1 ,2\n"), 0, ReaderOptions{TrimSpace: true})
	header, _ := rd.Header()
	rec, _ := rd.Next()

	if !reflect.DeepEqual(header, []string{"a", "b"}) {
		t.Errorf("header = %q", header)
	}
	if !reflect.DeepEqual(rec.Fields, []string{"1", "2"}) {
		t.Errorf("fields = %q", rec.Fields)
	}
}

func TestReader_EmptyInput(t *testing.T) {
	rd := NewReader(strings.NewReader(""), 0, ReaderOptions{})
	if _, err := rd.Header(); !errors.Is(err, ErrEmptyFile) {
		t.Errorf("Header() error = %v, want ErrEmptyFile", err)
	}
	if _, err := rd.Next(); !errors.Is(err, ErrEmptyFile) {
		t.Errorf("Next() error = %v, want ErrEmptyFile", err)
	}
}

func TestWriter_QuotesOnlyWhenNeeded(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	rows := [][]string{
		{"Cuit", "RazonSocial"},
		{"30711884562", "ACME SA"},
		{"30500000001", "Uno, Dos"},
		{"30500000002", `Say "hi"`},
	}
	for _, r := range rows {
		if err := w.Write(r); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	want := "Cuit,RazonSocial\n30711884562,ACME SA\n30500000001,\"Uno, Dos\"\n30500000002,\"Say \"\"hi\"\"\"\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
	if w.Written() != 4 {
		t.Errorf("Written() = %d, want 4", w.Written())
	}
}

func TestOpenAndCreate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.csv")

	w, err := Create(path)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	_ = w.Write([]string{"a", "b"})
	_ = w.Write([]string{"1", "2"})
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	rd, err := Open(path, ReaderOptions{})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer rd.Close()

	rows, _, err := rd.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if !reflect.DeepEqual(rows, [][]string{{"1", "2"}}) {
		t.Errorf("rows = %q", rows)
	}

	if _, err := Open(filepath.Join(dir, "missing.csv"), ReaderOptions{}); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Open(missing) error = %v, want ErrNotExist", err)
	}
}

func TestEachLine(t *testing.T) {
	input := "\xEF\xBB\xBFh1,h2\r\nx,y\r\n\nlast"

	var got []string
	err := EachLine(strings.NewReader(input), func(n int, line string) error {
		got = append(got, line)
		return nil
	})
	if err != nil {
		t.Fatalf("EachLine() error = %v", err)
	}

	want := []string{"h1,h2", "x,y", "", "last"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestEachLine_Stop(t *testing.T) {
	count := 0
	err := EachLine(strings.NewReader("1\n2\n3\n"), func(n int, _ string) error {
		count++
		if n == 2 {
			return ErrStop
		}
		return nil
	})
	if err != nil {
		t.Fatalf("EachLine() error = %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
}

func TestReadList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "files.txt")
	content := "# inputs\na.csv\n\n  b.csv  \n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := ReadList(path)
	if err != nil {
		t.Fatalf("ReadList() error = %v", err)
	}
	if !reflect.DeepEqual(got, []string{"a.csv", "b.csv"}) {
		t.Errorf("got %q", got)
	}
}
