package engine

import (
	"strings"
	"time"
)

// isoDateLayout is the only literal date format accepted from callers.
const isoDateLayout = "2006-01-02"

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// Midnight normalizes t to midnight UTC. All calendar dates in the engine are
// timezone-naive and compared at this granularity.
func Midnight(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SameDay reports whether a and b fall on the same calendar date.
func SameDay(a, b time.Time) bool {
	return Midnight(a).Equal(Midnight(b))
}

// ParseDate turns a natural-language or literal date expression into a
// concrete calendar date, relative to today. Accepted inputs, in priority
// order: "today"/"tomorrow"/"yesterday", a bare weekday name, or an ISO
// YYYY-MM-DD date.
//
// A weekday name always resolves strictly after today: saying "tuesday" on a
// Tuesday means next week's Tuesday, never today. Scheduling references are
// forward-looking.
func ParseDate(expr string, today time.Time) (time.Time, error) {
	today = Midnight(today)
	normalized := strings.ToLower(strings.TrimSpace(expr))

	switch normalized {
	case "today":
		return today, nil
	case "tomorrow":
		return today.AddDate(0, 0, 1), nil
	case "yesterday":
		return today.AddDate(0, 0, -1), nil
	}

	if weekday, ok := weekdayNames[normalized]; ok {
		daysAhead := int(weekday-today.Weekday()+7) % 7
		if daysAhead == 0 {
			daysAhead = 7
		}
		return today.AddDate(0, 0, daysAhead), nil
	}

	if parsed, err := time.Parse(isoDateLayout, normalized); err == nil {
		return Midnight(parsed), nil
	}

	return time.Time{}, &ParseError{Expr: expr}
}
