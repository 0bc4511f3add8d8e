// Package dates holds the calendar-date conventions shared by validation and
// enrichment: dates are plain YYYY-MM-DD strings in UTC.
package dates

import (
	"fmt"
	"regexp"
	"time"
)

// Layout is the only accepted on-disk date format.
const Layout = "2006-01-02"

var calendarDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// IsCalendarDate reports whether s is an unambiguous YYYY-MM-DD date that
// exists on the calendar (2024-02-30 is rejected).
func IsCalendarDate(s string) bool {
	_, err := Parse(s)
	return err == nil
}

// Parse parses a YYYY-MM-DD string.
func Parse(s string) (time.Time, error) {
	if !calendarDatePattern.MatchString(s) {
		return time.Time{}, fmt.Errorf("invalid date %q: expected format YYYY-MM-DD", s)
	}
	t, err := time.Parse(Layout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// Format renders t as a UTC calendar date.
func Format(t time.Time) string {
	return t.UTC().Format(Layout)
}

// Resolve returns the date to stamp for a run: override when given (validated),
// otherwise the UTC date of now.
func Resolve(override string, now time.Time) (string, error) {
	if override == "" {
		return Format(now), nil
	}
	if _, err := Parse(override); err != nil {
		return "", err
	}
	return override, nil
}

// Before reports whether date a is strictly earlier than date b. Both must be
// valid calendar dates; ok is false otherwise.
func Before(a, b string) (before bool, ok bool) {
	ta, err := Parse(a)
	if err != nil {
		return false, false
	}
	tb, err := Parse(b)
	if err != nil {
		return false, false
	}
	return ta.Before(tb), true
}
