package ops

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/csvtools/internal/csvio"
)

// FileCount is the data row count of one file.
type FileCount struct {
	Path string
	Rows int
}

// CountRows returns the data rows of path: physical lines minus the header.
func CountRows(path string) (int, error) {
	n, err := csvio.CountLines(path)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, nil
	}
	return n - 1, nil
}

// CountFiles counts every file in paths and returns the per-file counts and
// their total. It stops at the first file that cannot be read.
func CountFiles(ctx context.Context, paths []string) ([]FileCount, int, error) {
	counts := make([]FileCount, 0, len(paths))
	total := 0
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return counts, total, err
		}
		n, err := CountRows(p)
		if err != nil {
			return counts, total, err
		}
		counts = append(counts, FileCount{Path: p, Rows: n})
		total += n
	}
	return counts, total, nil
}

// CountUnique returns the number of distinct data lines across paths.
// The first line of each file is treated as its header and ignored.
func CountUnique(ctx context.Context, paths []string) (int, error) {
	seen := make(map[string]struct{})
	for _, p := range paths {
		err := csvio.EachFileLine(p, func(n int, line string) error {
			if err := cancelled(ctx, n); err != nil {
				return err
			}
			if n > 1 {
				seen[line] = struct{}{}
			}
			return nil
		})
		if err != nil {
			return len(seen), err
		}
	}
	return len(seen), nil
}

const (
	gib = 1 << 30

	// memoryFactor approximates in-memory size per byte of CSV for the
	// deduplicating operations.
	memoryFactor = 1.5

	// ExternalSortThreshold is the estimate above which an in-memory
	// deduplication should not be attempted.
	ExternalSortThreshold = 16 * gib
)

// FileSize is the size in bytes of one file.
type FileSize struct {
	Path  string
	Bytes int64
}

// MemoryEstimate is the result of EstimateMemory.
type MemoryEstimate struct {
	Files          []FileSize
	TotalBytes     int64
	EstimatedBytes int64
}

// NeedsExternalSort reports whether the estimate exceeds ExternalSortThreshold.
func (e MemoryEstimate) NeedsExternalSort() bool {
	return e.EstimatedBytes > ExternalSortThreshold
}

// GiB formats n bytes as gibibytes with two decimals.
func GiB(n int64) string {
	return fmt.Sprintf("%.2f GB", float64(n)/gib)
}

// EstimateMemory sums the sizes of paths and estimates the memory a full
// in-memory merge and deduplication of them would need.
func EstimateMemory(paths []string) (MemoryEstimate, error) {
	var est MemoryEstimate
	for _, p := range paths {
		size, err := fileSize(p)
		if err != nil {
			return est, err
		}
		est.Files = append(est.Files, FileSize{Path: p, Bytes: size})
		est.TotalBytes += size
	}
	est.EstimatedBytes = int64(float64(est.TotalBytes) * memoryFactor)
	return est, nil
}
