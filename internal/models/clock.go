package models

import "time"

// DateLayout is the calendar-date format used for timelines and discounts.
const DateLayout = "2006-01-02"

// ParseClock parses a same-day "HH:MM" wall-clock time into minutes after midnight.
func ParseClock(s string) (int, bool) {
	if len(s) != 5 || s[2] != ':' {
		return 0, false
	}
	digit := func(b byte) (int, bool) { return int(b - '0'), b >= '0' && b <= '9' }

	h1, ok1 := digit(s[0])
	h2, ok2 := digit(s[1])
	m1, ok3 := digit(s[3])
	m2, ok4 := digit(s[4])
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return 0, false
	}
	h, m := h1*10+h2, m1*10+m2
	if h > 23 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}

// ParseDate parses a "YYYY-MM-DD" date.
func ParseDate(s string) (time.Time, bool) {
	t, err := time.Parse(DateLayout, s)
	return t, err == nil
}

// FormatDate renders t as "YYYY-MM-DD" in t's own location.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
