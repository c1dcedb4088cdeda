package schema

import (
	"regexp"
	"strings"
	"time"
)

// MaxNumberDigits is the precision limit of a DynamoDB Number.
const MaxNumberDigits = 38

var (
	// numberRegex is the Type N shape: no leading '+', no bare '.' and no whitespace.
	numberRegex = regexp.MustCompile(`^-?[0-9]+(\.[0-9]+)?([eE][-+]?[0-9]+)?$`)

	dateRegex = regexp.MustCompile(`^[0-9]{4}-[0-9]{2}-[0-9]{2}( [0-9]{2}:[0-9]{2}:[0-9]{2})?$`)
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04:05"
)

// ValidNumber reports whether s is accepted by DynamoDB as a Number.
// The check is strict: surrounding whitespace, thousands separators and a
// leading '+' are all rejected.
func ValidNumber(s string) bool {
	if !numberRegex.MatchString(s) {
		return false
	}
	return significantDigits(s) <= MaxNumberDigits
}

// significantDigits counts mantissa digits after dropping the sign, the
// decimal point and leading zeros.
func significantDigits(s string) int {
	mantissa := s
	if i := strings.IndexAny(s, "eE"); i >= 0 {
		mantissa = s[:i]
	}
	digits := strings.NewReplacer("-", "", ".", "").Replace(mantissa)
	return len(strings.TrimLeft(digits, "0"))
}

// ValidDate reports whether s has the digit shape yyyy-MM-dd or
// yyyy-MM-dd HH:mm:ss. Calendar ranges are not checked, so "2024-13-40" passes.
func ValidDate(s string) bool {
	return dateRegex.MatchString(s)
}

// ValidCalendarDate is ValidDate plus a calendar check: months 01-12, days
// within the month and a 24h clock.
func ValidCalendarDate(s string) bool {
	if !ValidDate(s) {
		return false
	}
	layout := dateLayout
	if len(s) > len(dateLayout) {
		layout = dateTimeLayout
	}
	_, err := time.Parse(layout, s)
	return err == nil
}
