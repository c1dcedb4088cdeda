package ops

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/JonMunkholm/csvtools/internal/csvio"
)

// SanitizeResult reports what SanitizeCSV changed.
type SanitizeResult struct {
	BOMRemoved   bool
	LinesIn      int
	LinesOut     int
	EmptyRemoved int
	BytesIn      int64
	BytesOut     int64
}

// DataRows returns the data lines left in the output.
func (r SanitizeResult) DataRows() int {
	if r.LinesOut == 0 {
		return 0
	}
	return r.LinesOut - 1
}

// IsBlankLine reports whether line holds nothing but whitespace and commas,
// which bulk importers reject as a record of empty fields.
func IsBlankLine(line string) bool {
	return strings.Trim(line, ", \t\r\v\f") == ""
}

// SanitizeCSV prepares in for bulk import: a leading UTF-8 BOM is removed,
// blank lines are dropped, CRLF becomes LF and the last line is terminated.
// The content of the remaining lines is not touched.
func SanitizeCSV(ctx context.Context, in, out string) (SanitizeResult, error) {
	var res SanitizeResult

	f, err := os.Open(in)
	if err != nil {
		return res, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()
	if info, err := f.Stat(); err == nil {
		res.BytesIn = info.Size()
	}

	br := bufio.NewReader(f)
	if head, _ := br.Peek(3); csvio.HasBOM(head) {
		res.BOMRemoved = true
	}

	w, err := csvio.CreateLines(out)
	if err != nil {
		return res, fmt.Errorf("create output: %w", err)
	}

	var size int64
	err = csvio.EachLine(br, func(n int, line string) error {
		if err := cancelled(ctx, n); err != nil {
			return err
		}
		res.LinesIn = n
		if IsBlankLine(line) {
			res.EmptyRemoved++
			return nil
		}
		size += int64(len(line)) + 1
		return w.WriteLine(line)
	})
	res.LinesOut = w.Lines()
	res.BytesOut = size
	return res, errors.Join(err, w.Close())
}
