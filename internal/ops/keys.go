package ops

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/csvtools/internal/csvio"
	"github.com/JonMunkholm/csvtools/internal/scan"
	"github.com/JonMunkholm/csvtools/internal/schema"
)

// KeyDedupResult reports what DedupKeys did.
type KeyDedupResult struct {
	Processed  int
	Unique     int // records written, one per key
	Duplicates int // earlier records replaced by a later one with the same key
	Rejected   int // records without a usable key
}

// DedupKeys writes one record per composite key of m, keeping the last
// record seen for each key the way repeated PutItem calls would. Output
// follows the order in which each key first appeared.
//
// Key columns are located by header name. Records too short to reach them,
// records with an empty key value and records that fail to parse go to
// rejects when it is non-nil.
func DedupKeys(ctx context.Context, in, out string, m *schema.Model, rejects scan.RejectSink) (KeyDedupResult, error) {
	var res KeyDedupResult

	rd, header, err := openWithHeader(in, csvio.ReaderOptions{})
	if err != nil {
		return res, err
	}
	defer rd.Close()

	keyCols := m.KeyColumns()
	keyIdx := make([]int, len(keyCols))
	need := 0
	for i, col := range keyCols {
		idx, err := columnIndex(header, col)
		if err != nil {
			return res, fmt.Errorf("model %s: %w", m.Name(), err)
		}
		keyIdx[i] = idx
		need = max(need, idx+1)
	}

	reject := func(line int, reason string, fields []string) error {
		res.Rejected++
		if rejects == nil {
			return nil
		}
		return rejects.Reject(line, reason, fields)
	}

	var (
		order []string
		last  = make(map[string][]string)
		parts = make([]string, len(keyIdx))
		rows  RowResult
	)
	err = eachRecord(ctx, rd, &rows, func(rec csvio.Record) error {
		if len(rec.Fields) < need {
			ee := &schema.ExtractionError{Need: need, Have: len(rec.Fields)}
			return reject(rec.Line, ee.Error(), rec.Fields)
		}
		for i, idx := range keyIdx {
			v := strings.TrimSpace(rec.Fields[idx])
			if v == "" {
				return reject(rec.Line, fmt.Sprintf("key column %s is empty", keyCols[i]), rec.Fields)
			}
			parts[i] = v
		}
		key := strings.Join(parts, "\x1f")
		if _, ok := last[key]; ok {
			res.Duplicates++
		} else {
			order = append(order, key)
		}
		last[key] = rec.Fields
		return nil
	}, func(rec csvio.Record) error {
		return reject(rec.Line, rec.Err.Error(), nil)
	})
	res.Processed = rows.Processed
	if err != nil {
		return res, err
	}

	w, err := createWithHeader(out, header)
	if err != nil {
		return res, err
	}
	for _, key := range order {
		if err := w.Write(last[key]); err != nil {
			return res, errors.Join(err, w.Close())
		}
		res.Unique++
	}
	return res, w.Close()
}
