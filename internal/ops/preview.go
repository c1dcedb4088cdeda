package ops

import (
	"io"

	"github.com/JonMunkholm/csvtools/internal/csvio"
)

// DefaultPreviewRows is the row count head and tail show when none is given.
const DefaultPreviewRows = 10

// Head writes the header line and up to n data lines of path to w and
// returns the number of data lines written.
func Head(path string, n int, w io.Writer) (int, error) {
	lw := csvio.NewLineWriter(w)
	shown := 0
	err := csvio.EachFileLine(path, func(num int, line string) error {
		if num > 1 {
			if shown == n {
				return csvio.ErrStop
			}
			shown++
		}
		return lw.WriteLine(line)
	})
	if cerr := lw.Close(); err == nil {
		err = cerr
	}
	return shown, err
}

// Tail writes the header line and the last n data lines of path to w and
// returns the number of data lines written. Memory use is bounded by n.
func Tail(path string, n int, w io.Writer) (int, error) {
	n = max(n, 0)
	var (
		header  string
		hasHead bool
		ring    = make([]string, n)
		total   int
	)
	err := csvio.EachFileLine(path, func(num int, line string) error {
		if num == 1 {
			header, hasHead = line, true
			return nil
		}
		if n > 0 {
			ring[total%n] = line
		}
		total++
		return nil
	})
	if err != nil {
		return 0, err
	}

	lw := csvio.NewLineWriter(w)
	if hasHead {
		if err := lw.WriteLine(header); err != nil {
			return 0, err
		}
	}
	shown := min(total, n)
	for i := total - shown; i < total; i++ {
		if err := lw.WriteLine(ring[i%n]); err != nil {
			return 0, err
		}
	}
	return shown, lw.Close()
}

// CompareResult reports how two files differ in their first lines.
type CompareResult struct {
	HeaderMatch bool
	// Differences holds the 1-based line numbers of differing data lines.
	Differences []int
}

// Compare compares the header and the first n data lines of a and b.
// A line missing from one file compares as an empty line.
func Compare(a, b string, n int) (CompareResult, error) {
	var res CompareResult

	left, err := firstLines(a, n+1)
	if err != nil {
		return res, err
	}
	right, err := firstLines(b, n+1)
	if err != nil {
		return res, err
	}

	line := func(lines []string, i int) string {
		if i < len(lines) {
			return lines[i]
		}
		return ""
	}

	res.HeaderMatch = line(left, 0) == line(right, 0)
	for i := 1; i <= n; i++ {
		if line(left, i) != line(right, i) {
			res.Differences = append(res.Differences, i+1)
		}
	}
	return res, nil
}

func firstLines(path string, n int) ([]string, error) {
	lines := make([]string, 0, n)
	err := csvio.EachFileLine(path, func(_ int, line string) error {
		if len(lines) == n {
			return csvio.ErrStop
		}
		lines = append(lines, line)
		return nil
	})
	return lines, err
}
