// Package progress derives habit views and progress statistics from the
// completion ledger. Every function is pure and takes the current time
// explicitly; "today" is the calendar day of now in now's location.
package progress

import (
	"errors"
	"strings"
	"time"
)

// KeyLayout is the fixed-width calendar-date key format. Keys sort
// lexicographically in chronological order.
const KeyLayout = "2006-01-02"

var ErrInvalidDate = errors.New("invalid date")

// Layouts without zone information are read in now's location, so a bare
// "2024-03-01" is always that calendar day.
var localLayouts = []string{
	KeyLayout,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006/01/02",
	"01/02/2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"Mon Jan 02 2006",
	"2 Jan 2006",
}

var zonedLayouts = []string{
	time.RFC3339Nano,
	time.RFC1123Z,
	time.RFC1123,
	"Mon Jan 02 2006 15:04:05 GMT-0700",
}

// DateKey formats the local year, month and day of t.
func DateKey(t time.Time) string {
	return t.Format(KeyLayout)
}

func Today(now time.Time) string {
	return DateKey(now)
}

// Normalize canonicalizes date-like input into a calendar-date key. Empty
// input means today. Unparseable input returns ErrInvalidDate.
func Normalize(input string, now time.Time) (string, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return Today(now), nil
	}
	loc := now.Location()
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return DateKey(t), nil
		}
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateKey(t.In(loc)), nil
		}
	}
	return "", ErrInvalidDate
}

// civil returns now's calendar day as midnight UTC.
func civil(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysAgo returns the key n calendar days before today.
func DaysAgo(now time.Time, n int) string {
	return DateKey(civil(now).AddDate(0, 0, -n))
}

// MonthRange returns the first and last day of the month containing now.
func MonthRange(now time.Time) (start, end string) {
	first := civil(now).AddDate(0, 0, 1-now.Day())
	last := first.AddDate(0, 1, -1)
	return DateKey(first), DateKey(last)
}
