package ops

import (
	"context"
	"errors"
	"fmt"

	"github.com/JonMunkholm/csvtools/internal/csvio"
	"github.com/JonMunkholm/csvtools/internal/logging"
)

// MergeOptions tune Merge.
type MergeOptions struct {
	// Dedup drops data lines already written from any earlier file.
	Dedup bool
}

// MergeResult reports what Merge wrote.
type MergeResult struct {
	Files      int
	Written    int // data lines written
	Duplicates int // data lines dropped by Dedup
	// Mismatched lists files whose header differs from the first file's.
	Mismatched []string
}

// Merge concatenates paths into out line by line. Only the first file's
// header is written; the header lines of later files are dropped. Files whose
// header differs are still merged and reported in Mismatched.
func Merge(ctx context.Context, out string, paths []string, opts MergeOptions) (MergeResult, error) {
	var res MergeResult
	if len(paths) == 0 {
		return res, errors.New("merge needs at least one input file")
	}

	w, err := csvio.CreateLines(out)
	if err != nil {
		return res, fmt.Errorf("create output: %w", err)
	}

	logger := logging.FromContext(ctx)
	var (
		header string
		seen   map[string]struct{}
	)
	if opts.Dedup {
		seen = make(map[string]struct{})
	}

	for i, p := range paths {
		err = csvio.EachFileLine(p, func(n int, line string) error {
			if err := cancelled(ctx, n); err != nil {
				return err
			}
			if n == 1 {
				switch {
				case i == 0:
					header = line
					return w.WriteLine(line)
				case line != header:
					res.Mismatched = append(res.Mismatched, p)
					logger.Warn("header differs from first file", "file", p)
				}
				return nil
			}
			if seen != nil {
				if _, dup := seen[line]; dup {
					res.Duplicates++
					return nil
				}
				seen[line] = struct{}{}
			}
			res.Written++
			return w.WriteLine(line)
		})
		if err != nil {
			break
		}
		res.Files++
		logger.Debug("merged file", "file", p, "written", res.Written)
	}
	return res, errors.Join(err, w.Close())
}
