package billing

import (
	"fmt"
	"math"
	"time"
)

var monthAbbr = [13]string{"", "Ene", "Feb", "Mar", "Abr", "May", "Jun", "Jul", "Ago", "Sep", "Oct", "Nov", "Dic"}

// CycleSnapshot is the display projection of an open billing cycle. It is
// derived entirely from the two stored boundary dates; class progress is
// never persisted.
type CycleSnapshot struct {
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	StartLabel    string    `json:"start_label"`
	EndLabel      string    `json:"end_label"`
	TotalClasses  int       `json:"total_classes"`
	ClassesPassed int       `json:"classes_passed"`
	DaysLabel     string    `json:"days_label"`
}

// ClassesRemaining returns the unconsumed class count for the cycle.
func (s CycleSnapshot) ClassesRemaining() int {
	remaining := s.TotalClasses - s.ClassesPassed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// CycleInfo reconstructs the current cycle from its boundary dates.
//
// With a full course configuration the cycle start snaps to the first class
// day on or after the last payment and the end is re-derived from the
// per-cycle class count. Otherwise the boundaries are taken literally: the
// cycle runs from the last payment to the day before the next one falls due.
//
// Only ClassesPassed depends on today; the boundaries are stable for fixed
// inputs, so the projection may be recomputed on every read.
func CycleInfo(lastPayment, nextPayment time.Time, days []time.Weekday, classesPerCycle int, today time.Time) CycleSnapshot {
	lastPayment = DateOf(lastPayment)
	nextPayment = DateOf(nextPayment)
	today = DateOf(today)

	var start, end time.Time
	var total int

	if len(days) > 0 && classesPerCycle > 0 {
		start = NextClassDayOnOrAfter(lastPayment, days)
		end = PackageEndDate(start, days, classesPerCycle)
		total = classesPerCycle
	} else {
		start = lastPayment
		end = nextPayment.AddDate(0, 0, -1)
		if len(days) > 0 {
			total = CountClassDays(start, end, days)
		}
	}

	passed := classesPassed(start, end, days, total, today)
	if passed > total {
		passed = total
	}

	return CycleSnapshot{
		Start:         start,
		End:           end,
		StartLabel:    shortLabel(start),
		EndLabel:      shortLabel(end),
		TotalClasses:  total,
		ClassesPassed: passed,
		DaysLabel:     DaysLabel(days),
	}
}

func classesPassed(start, end time.Time, days []time.Weekday, total int, today time.Time) int {
	upTo := today
	if upTo.After(end) {
		upTo = end
	}
	if upTo.Before(start) {
		return 0
	}
	if len(days) > 0 {
		return CountClassDays(start, upTo, days)
	}

	// Without class days the cycle has no weekday structure; estimate by
	// the elapsed fraction of the cycle length.
	span := DaysBetween(start, end) + 1
	if span <= 0 || total <= 0 {
		return 0
	}
	elapsed := DaysBetween(start, upTo) + 1
	estimate := int(math.Round(float64(elapsed) / float64(span) * float64(total)))
	if estimate < 0 {
		return 0
	}
	if estimate > total {
		return total
	}
	return estimate
}

func shortLabel(t time.Time) string {
	return fmt.Sprintf("%02d %s", t.Day(), monthAbbr[int(t.Month())])
}
