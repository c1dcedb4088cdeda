// Package ops implements the file-level CSV transforms that need no schema
// model: header cleanup, filtering, counting, merging, deduplication,
// splitting, date rewriting and byte-level sanitizing.
//
// Operations stream their input. The exceptions are Dedup, DedupKeys, Merge
// with deduplication and CountUnique, which hold one entry per distinct row
// or key in memory.
package ops

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/JonMunkholm/csvtools/internal/csvio"
)

// checkInterval is how many records pass between context checks.
const checkInterval = 1000

func cancelled(ctx context.Context, n int) error {
	if n%checkInterval != 0 {
		return nil
	}
	return ctx.Err()
}

// columnIndex finds column in header, comparing trimmed names.
func columnIndex(header []string, column string) (int, error) {
	for i, h := range header {
		if strings.TrimSpace(h) == column {
			return i, nil
		}
	}
	return -1, fmt.Errorf("column %q not found in header", column)
}

// openWithHeader opens in and reads its header.
func openWithHeader(in string, opts csvio.ReaderOptions) (*csvio.Reader, []string, error) {
	rd, err := csvio.Open(in, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("open input: %w", err)
	}
	header, err := rd.Header()
	if err != nil {
		rd.Close()
		return nil, nil, fmt.Errorf("%s: %w", in, err)
	}
	return rd, header, nil
}

// createWithHeader creates out and writes header as its first record.
func createWithHeader(out string, header []string) (*csvio.Writer, error) {
	w, err := csvio.Create(out)
	if err != nil {
		return nil, fmt.Errorf("create output: %w", err)
	}
	if err := w.Write(header); err != nil {
		w.Close()
		return nil, err
	}
	return w, nil
}

func fileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
