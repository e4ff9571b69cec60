package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackageEndDate(t *testing.T) {
	tests := []struct {
		name    string
		start   time.Time
		days    []time.Weekday
		classes int
		want    time.Time
	}{
		{
			// Tue/Thu, 8 classes from Tue Jan 7: the 8th class is Thu Jan 30.
			name:    "eight classes tue thu",
			start:   day(2025, time.January, 7),
			days:    tueThu,
			classes: 8,
			want:    day(2025, time.January, 30),
		},
		{
			// Saturdays only, 4-class package from Sat Jan 4 ends Sat Jan 25.
			name:    "four saturdays",
			start:   day(2025, time.January, 4),
			days:    []time.Weekday{time.Saturday},
			classes: 4,
			want:    day(2025, time.January, 25),
		},
		{
			name:    "single class cycle ends on start",
			start:   day(2025, time.January, 7),
			days:    tueThu,
			classes: 1,
			want:    day(2025, time.January, 7),
		},
		{
			// No weekday semantics: weekly cadence approximation.
			name:    "empty day set falls back to weeks",
			start:   day(2025, time.January, 7),
			days:    nil,
			classes: 4,
			want:    day(2025, time.January, 28),
		},
		{
			name:    "zero classes treated as one",
			start:   day(2025, time.January, 7),
			days:    tueThu,
			classes: 0,
			want:    day(2025, time.January, 7),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PackageEndDate(tt.start, tt.days, tt.classes))
		})
	}
}

// Walking from the start to the computed end inclusive always yields exactly
// the requested number of class days.
func TestPackageEndDateClassCount(t *testing.T) {
	sets := [][]time.Weekday{
		tueThu,
		{time.Saturday},
		{time.Monday, time.Wednesday, time.Friday},
	}
	for _, days := range sets {
		for n := 1; n <= 12; n++ {
			start := NextClassDayOnOrAfter(day(2025, time.February, 1), days)
			end := PackageEndDate(start, days, n)
			require.Equal(t, n, CountClassDays(start, end, days), "days=%v n=%d", days, n)
			require.True(t, HasDay(days, end.Weekday()))
		}
	}
}

func TestNextPaymentDateAfterCycle(t *testing.T) {
	// Cycle ends Sat Jan 25; next Saturday is Feb 1.
	assert.Equal(t, day(2025, time.February, 1),
		NextPaymentDateAfterCycle(day(2025, time.January, 25), []time.Weekday{time.Saturday}))
	// Cycle ends Thu Jan 30 on Tue/Thu; next class day is Tue Feb 4.
	assert.Equal(t, day(2025, time.February, 4),
		NextPaymentDateAfterCycle(day(2025, time.January, 30), tueThu))
	// Strictly after: the end date never repeats even though it is a class day.
	assert.Equal(t, day(2025, time.January, 9),
		NextPaymentDateAfterCycle(day(2025, time.January, 7), tueThu))
	// No class days: plain next day.
	assert.Equal(t, day(2025, time.January, 31),
		NextPaymentDateAfterCycle(day(2025, time.January, 30), nil))
}

func TestNextPaymentDate(t *testing.T) {
	tests := []struct {
		name    string
		start   time.Time
		days    []time.Weekday
		classes int
		want    time.Time
	}{
		{
			name:    "canonical monthly cycle",
			start:   day(2025, time.January, 7),
			days:    tueThu,
			classes: 8,
			want:    day(2025, time.February, 4),
		},
		{
			name:    "saturday package",
			start:   day(2025, time.January, 4),
			days:    []time.Weekday{time.Saturday},
			classes: 4,
			want:    day(2025, time.February, 1),
		},
		{
			name:  "no class days adds a calendar month",
			start: day(2025, time.January, 15),
			days:  nil,
			want:  day(2025, time.February, 15),
		},
		{
			// Month-then-snap approximation: Jan 7 + 1 month = Feb 7 (Fri),
			// next Tue/Thu class day is Tue Feb 11.
			name:  "class days without cycle count",
			start: day(2025, time.January, 7),
			days:  tueThu,
			want:  day(2025, time.February, 11),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextPaymentDate(tt.start, tt.days, tt.classes))
		})
	}
}
