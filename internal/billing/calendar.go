package billing

import (
	"strings"
	"time"
)

// dayAbbr holds the studio-facing weekday abbreviations, indexed by
// time.Weekday (Sunday = 0).
var dayAbbr = [7]string{"Dom", "Lun", "Mar", "Mie", "Jue", "Vie", "Sab"}

// HasDay reports whether w is part of the weekly class-day set.
func HasDay(days []time.Weekday, w time.Weekday) bool {
	for _, d := range days {
		if d == w {
			return true
		}
	}
	return false
}

// NextClassDayOnOrAfter returns the first class day on or after date. The
// date itself counts when its weekday is in the set. An empty set returns
// the date unchanged; callers handle the calendar-month fallback themselves.
// For any non-empty set a match exists within seven days.
func NextClassDayOnOrAfter(date time.Time, days []time.Weekday) time.Time {
	date = DateOf(date)
	if len(days) == 0 {
		return date
	}
	for i := 0; i < 7; i++ {
		candidate := date.AddDate(0, 0, i)
		if HasDay(days, candidate.Weekday()) {
			return candidate
		}
	}
	return date
}

// CountClassDays walks [from, to] inclusive and counts days whose weekday is
// in the set. Returns 0 when to precedes from or the set is empty.
func CountClassDays(from, to time.Time, days []time.Weekday) int {
	from, to = DateOf(from), DateOf(to)
	if len(days) == 0 || to.Before(from) {
		return 0
	}
	count := 0
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if HasDay(days, d.Weekday()) {
			count++
		}
	}
	return count
}

// DaysLabel renders the class-day set as a human list, e.g. "Mar, Jue".
// The week is listed Monday-first to match the studio's printed schedules.
func DaysLabel(days []time.Weekday) string {
	if len(days) == 0 {
		return ""
	}
	ordered := []time.Weekday{
		time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
		time.Friday, time.Saturday, time.Sunday,
	}
	labels := make([]string, 0, len(days))
	for _, w := range ordered {
		if HasDay(days, w) {
			labels = append(labels, dayAbbr[w])
		}
	}
	return strings.Join(labels, ", ")
}
