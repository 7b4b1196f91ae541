// Package epochday converts between wall-clock time and the integer
// UTC-day counter used as the stable "today" key for card due dates
// (spec §3, glossary "Epoch day").
package epochday

import "time"

// Today returns the epoch-day number for UTC midnight of now.
func Today(now time.Time) int64 {
	return FromTime(now)
}

// FromTime truncates t to UTC midnight and returns its day count since
// 1970-01-01.
func FromTime(t time.Time) int64 {
	u := t.UTC()
	midnight := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	return midnight.Unix() / 86400
}

// ToTime returns the UTC midnight instant for the given epoch day.
func ToTime(day int64) time.Time {
	return time.Unix(day*86400, 0).UTC()
}
