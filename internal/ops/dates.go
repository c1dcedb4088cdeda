package ops

// dates.go rewrites date columns into ISO layouts.
//
// Exports arrive with dates written by hand, by spreadsheets and by two
// different upstream systems, so several layouts are accepted:
//   - ISO with and without seconds, with 'T' or a space
//   - RFC 3339 with an offset (the offset is dropped, the wall clock kept)
//   - Day first: 31/12/2024, 31/12/2024 23:59[:59]
//   - Month first with AM/PM: 12/31/2024 11:59:59 PM
//   - Month first 24h, tried only when day first cannot parse
//
// Day-first wins for ambiguous values such as 01/02/2024.

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/JonMunkholm/csvtools/internal/csvio"
)

// ISODateTime is the layout ConvertDate writes.
const ISODateTime = "2006-01-02T15:04:05"

var dateTimeLayouts = []string{
	ISODateTime,
	"2006-01-02T15:04",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2/1/2006 15:04:05",
	"2/1/2006 15:04",
	"2/1/2006",
	"1/2/2006 3:04:05 PM",
	"1/2/2006 3:04 PM",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
}

// ParseDateTime tries every accepted layout in order.
func ParseDateTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

// ToISODateTime converts s to yyyy-MM-ddTHH:mm:ss.
func ToISODateTime(s string) (string, error) {
	t, err := ParseDateTime(s)
	if err != nil {
		return "", err
	}
	return t.Format(ISODateTime), nil
}

// DateResult reports what a date conversion did.
type DateResult struct {
	Processed int
	Converted int // fields rewritten
	Written   int // records written
	Failed    int // records excluded from the output
	ErrorLog  string
}

// ConvertDateErrorLog returns the path ConvertDate logs failures to for out.
func ConvertDateErrorLog(out string) string {
	return out + ".date_conversion_errors.log"
}

// ConvertDate rewrites column in every record of in to ISODateTime.
// Empty values pass through. Records whose value cannot be parsed, and
// records that fail to parse as CSV, are excluded from out and described in
// ConvertDateErrorLog(out). Fields are trimmed.
func ConvertDate(ctx context.Context, in, out, column string) (DateResult, error) {
	res := DateResult{ErrorLog: ConvertDateErrorLog(out)}

	rd, header, err := openWithHeader(in, csvio.ReaderOptions{TrimSpace: true})
	if err != nil {
		return res, err
	}
	defer rd.Close()

	idx, err := columnIndex(header, column)
	if err != nil {
		return res, err
	}

	w, err := createWithHeader(out, header)
	if err != nil {
		return res, err
	}
	log, err := csvio.CreateLines(res.ErrorLog)
	if err != nil {
		w.Close()
		return res, fmt.Errorf("create error log: %w", err)
	}
	for _, l := range []string{
		"# Date conversion error log",
		"# Input: " + in,
		"# Output: " + out,
		"# Column: " + column,
		"# Target layout: yyyy-MM-ddTHH:mm:ss",
		"# Format: [LINE n] KIND | details",
	} {
		if err := log.WriteLine(l); err != nil {
			w.Close()
			log.Close()
			return res, err
		}
	}

	var rows RowResult
	err = eachRecord(ctx, rd, &rows, func(rec csvio.Record) error {
		if idx >= len(rec.Fields) || rec.Fields[idx] == "" {
			res.Written++
			return w.Write(rec.Fields)
		}
		iso, err := ToISODateTime(rec.Fields[idx])
		if err != nil {
			res.Failed++
			return log.WriteLine(fmt.Sprintf("[LINE %d] DATE_CONVERSION_ERROR | Original=%q | %s",
				rec.Line, rec.Fields[idx], strings.Join(rec.Fields, ",")))
		}
		rec.Fields[idx] = iso
		res.Converted++
		res.Written++
		return w.Write(rec.Fields)
	}, func(rec csvio.Record) error {
		res.Failed++
		return log.WriteLine(fmt.Sprintf("[LINE %d] PARSE_ERROR | %v", rec.Line, rec.Err))
	})
	res.Processed = rows.Processed
	return res, errors.Join(err, w.Close(), log.Close())
}

// dayFirstDate is DD/MM/YYYY with both parts zero padded.
const dayFirstDate = "02/01/2006"

// DayFirstToISO converts an exact DD/MM/YYYY calendar date to YYYY-MM-DD.
// It reports false for anything else, including 31/02/2024.
func DayFirstToISO(s string) (string, bool) {
	if len(s) != len(dayFirstDate) || s[2] != '/' || s[5] != '/' {
		return "", false
	}
	t, err := time.Parse(dayFirstDate, s)
	if err != nil {
		return "", false
	}
	return t.Format("2006-01-02"), true
}

// ConvertDates rewrites every DD/MM/YYYY field of in, in any column, to
// YYYY-MM-DD. Other fields are copied unchanged. A record that fails to
// parse stops the conversion.
func ConvertDates(ctx context.Context, in, out string) (DateResult, error) {
	var res DateResult

	rd, header, err := openWithHeader(in, csvio.ReaderOptions{})
	if err != nil {
		return res, err
	}
	defer rd.Close()

	w, err := createWithHeader(out, header)
	if err != nil {
		return res, err
	}

	var rows RowResult
	err = eachRecord(ctx, rd, &rows, func(rec csvio.Record) error {
		for i, f := range rec.Fields {
			if iso, ok := DayFirstToISO(f); ok {
				rec.Fields[i] = iso
				res.Converted++
			}
		}
		res.Written++
		return w.Write(rec.Fields)
	}, func(rec csvio.Record) error {
		return fmt.Errorf("line %d: %w", rec.Line, rec.Err)
	})
	res.Processed = rows.Processed
	return res, errors.Join(err, w.Close())
}
