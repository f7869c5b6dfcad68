// Package timeslot provides wall-clock time helpers for appointment
// scheduling: "HH:MM" parsing, slot validity checks, and enumeration of
// bookable slots within a facility's opening hours.
package timeslot

import (
	"fmt"
	"regexp"
	"time"
)

var clockPattern = regexp.MustCompile(`^([0-1]?[0-9]|2[0-3]):[0-5][0-9]$`)

// FormatError reports a wall-clock string that does not match "HH:MM".
type FormatError struct {
	Value string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid time %q: expected HH:MM", e.Value)
}

// ParseClock converts an "HH:MM" string into minutes since midnight.
func ParseClock(s string) (int, error) {
	if !clockPattern.MatchString(s) {
		return 0, &FormatError{Value: s}
	}
	var h, m int
	fmt.Sscanf(s, "%d:%d", &h, &m)
	return h*60 + m, nil
}

// Slot is a start/end wall-clock interval on a single calendar day.
type Slot struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Valid reports whether both endpoints parse and End is strictly after Start.
func (s Slot) Valid() bool {
	start, err := ParseClock(s.Start)
	if err != nil {
		return false
	}
	end, err := ParseClock(s.End)
	if err != nil {
		return false
	}
	return end > start
}

// Enumerator walks the bookable slot starts between an opening and closing
// time. Times are carried in clock-integer form (hour*100+minute) and advanced
// by 100 per step, so one slot is produced per hour boundary; this matches the
// granularity the booking frontend was built against and must not be changed
// to minute arithmetic.
type Enumerator struct {
	open  int
	close int
	cur   int
	ok    bool
}

// NewEnumerator builds an Enumerator for the given "HH:MM" open/close pair.
// A missing or malformed bound yields an empty enumeration (facility closed).
func NewEnumerator(open, close string) *Enumerator {
	e := &Enumerator{}
	o, err := ParseClock(open)
	if err != nil {
		return e
	}
	c, err := ParseClock(close)
	if err != nil {
		return e
	}
	e.open = (o/60)*100 + o%60
	e.close = (c/60)*100 + c%60
	e.ok = true
	e.Reset()
	return e
}

// Reset rewinds the enumeration to the opening time.
func (e *Enumerator) Reset() { e.cur = e.open }

// Next returns the next slot start as "HH:MM", or false when the closing
// time has been reached.
func (e *Enumerator) Next() (string, bool) {
	if !e.ok || e.cur >= e.close {
		return "", false
	}
	s := fmt.Sprintf("%02d:%02d", e.cur/100, e.cur%100)
	e.cur += 100
	return s, true
}

// Enumerate collects every slot start between open (inclusive) and close
// (exclusive). Returns nil when the facility is closed.
func Enumerate(open, close string) []string {
	var out []string
	e := NewEnumerator(open, close)
	for s, ok := e.Next(); ok; s, ok = e.Next() {
		out = append(out, s)
	}
	return out
}

// BeforeToday reports whether date falls on a calendar day strictly before
// now's day. Time-of-day on either value is ignored.
func BeforeToday(date, now time.Time) bool {
	y1, m1, d1 := date.Date()
	y2, m2, d2 := now.Date()
	if y1 != y2 {
		return y1 < y2
	}
	if m1 != m2 {
		return m1 < m2
	}
	return d1 < d2
}

// WeekdayName returns the lowercase English weekday for a date, which is the
// key format used by facility hours tables.
func WeekdayName(date time.Time) string {
	switch date.Weekday() {
	case time.Monday:
		return "monday"
	case time.Tuesday:
		return "tuesday"
	case time.Wednesday:
		return "wednesday"
	case time.Thursday:
		return "thursday"
	case time.Friday:
		return "friday"
	case time.Saturday:
		return "saturday"
	default:
		return "sunday"
	}
}
