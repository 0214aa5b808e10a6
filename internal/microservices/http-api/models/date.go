package models

import "time"

// DateLayout is the wire and form format of calendar dates.
const DateLayout = "2006-01-02"

// DateOf drops the clock part of t, keeping its calendar day in t's location.
// The result is midnight UTC so stored dates compare and sort consistently.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string into a DateOf value.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return DateOf(t), nil
}

// FormatDate renders an optional date, nil stays nil.
func FormatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(DateLayout)
	return &s
}
