package ops

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/csvtools/internal/csvio"
)

// HeaderCleanResult reports what CleanHeaders did.
type HeaderCleanResult struct {
	Lines   int // lines read, header included
	Removed int // repeated header lines dropped
}

// CleanHeaders copies in to out, keeping the first line and dropping every
// later line that is byte-identical to it. Concatenated exports often carry
// one header per original file.
func CleanHeaders(ctx context.Context, in, out string) (HeaderCleanResult, error) {
	var res HeaderCleanResult

	w, err := csvio.CreateLines(out)
	if err != nil {
		return res, fmt.Errorf("create output: %w", err)
	}

	var header string
	err = csvio.EachFileLine(in, func(n int, line string) error {
		if err := cancelled(ctx, n); err != nil {
			return err
		}
		res.Lines = n
		if n == 1 {
			header = line
			return w.WriteLine(line)
		}
		if line == header {
			res.Removed++
			return nil
		}
		return w.WriteLine(line)
	})
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	return res, err
}

// DuplicateHeaderLines returns the line numbers, after the first, of every
// line identical to line 1.
func DuplicateHeaderLines(in string) ([]int, error) {
	var (
		header string
		lines  []int
	)
	err := csvio.EachFileLine(in, func(n int, line string) error {
		if n == 1 {
			header = line
			return nil
		}
		if line == header {
			lines = append(lines, n)
		}
		return nil
	})
	return lines, err
}
