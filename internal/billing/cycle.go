package billing

import "time"

// packageScanCap bounds the day-by-day walk in PackageEndDate. Real cycles
// span at most a few weeks; the cap only guards against absurd inputs.
const packageScanCap = 365

// PackageEndDate returns the date of the last class of a cycle that starts
// at start and spans classesPerCycle class occurrences. The start date is
// assumed to be a class day and counts as class number one.
//
// With an empty class-day set the walk has no weekday semantics, so the end
// is approximated at weekly cadence: (classesPerCycle-1) weeks after start.
func PackageEndDate(start time.Time, days []time.Weekday, classesPerCycle int) time.Time {
	start = DateOf(start)
	if classesPerCycle < 1 {
		classesPerCycle = 1
	}
	if len(days) == 0 {
		return start.AddDate(0, 0, (classesPerCycle-1)*7)
	}

	count := 0
	d := start
	for i := 0; i < packageScanCap; i++ {
		if HasDay(days, d.Weekday()) {
			count++
			if count == classesPerCycle {
				return d
			}
		}
		d = d.AddDate(0, 0, 1)
	}
	return d
}

// NextPaymentDateAfterCycle returns the first class day strictly after the
// cycle's last class. With no class days it degrades to the day after.
func NextPaymentDateAfterCycle(cycleEnd time.Time, days []time.Weekday) time.Time {
	next := DateOf(cycleEnd).AddDate(0, 0, 1)
	if len(days) == 0 {
		return next
	}
	return NextClassDayOnOrAfter(next, days)
}

// NextPaymentDate computes when the cycle opened at start falls due.
//
// The canonical path, used by well-configured courses, walks the class-day
// set to the classesPerCycle-th occurrence and then moves to the next class
// day strictly after it. Courses without class days fall back to plain
// calendar-month arithmetic; courses with class days but no per-cycle count
// add a month and snap forward to the next class day, a known rough
// approximation kept for parity with how such courses were historically
// billed.
func NextPaymentDate(start time.Time, days []time.Weekday, classesPerCycle int) time.Time {
	start = DateOf(start)
	if len(days) == 0 {
		return start.AddDate(0, 1, 0)
	}
	if classesPerCycle > 0 {
		end := PackageEndDate(start, days, classesPerCycle)
		return NextPaymentDateAfterCycle(end, days)
	}
	return NextClassDayOnOrAfter(start.AddDate(0, 1, 0), days)
}
