package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

var tueThu = []time.Weekday{time.Tuesday, time.Thursday}

func TestNextClassDayOnOrAfter(t *testing.T) {
	tests := []struct {
		name string
		date time.Time
		days []time.Weekday
		want time.Time
	}{
		{name: "date itself is a class day", date: day(2025, time.January, 7), days: tueThu, want: day(2025, time.January, 7)},
		{name: "scans forward to thursday", date: day(2025, time.January, 8), days: tueThu, want: day(2025, time.January, 9)},
		{name: "weekend rolls to tuesday", date: day(2025, time.January, 10), days: tueThu, want: day(2025, time.January, 14)},
		{name: "saturday only", date: day(2025, time.January, 5), days: []time.Weekday{time.Saturday}, want: day(2025, time.January, 11)},
		{name: "empty set is identity", date: day(2025, time.January, 8), days: nil, want: day(2025, time.January, 8)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextClassDayOnOrAfter(tt.date, tt.days))
		})
	}
}

// For any non-empty set and any start date, the result lands on a weekday in
// the set and no earlier candidate exists between the date and the result.
func TestNextClassDayOnOrAfterClosure(t *testing.T) {
	sets := [][]time.Weekday{
		{time.Monday},
		{time.Saturday},
		tueThu,
		{time.Monday, time.Wednesday, time.Friday},
		{time.Sunday, time.Saturday},
	}
	base := day(2025, time.March, 1)
	for _, days := range sets {
		for offset := 0; offset < 14; offset++ {
			d := base.AddDate(0, 0, offset)
			got := NextClassDayOnOrAfter(d, days)
			require.True(t, HasDay(days, got.Weekday()), "result %v not in set %v", got, days)
			require.False(t, got.Before(d))
			require.LessOrEqual(t, DaysBetween(d, got), 6)
			for between := d; between.Before(got); between = between.AddDate(0, 0, 1) {
				require.False(t, HasDay(days, between.Weekday()), "skipped class day %v", between)
			}
		}
	}
}

func TestCountClassDays(t *testing.T) {
	// Jan 7 .. Jan 16 2025 holds Tue 7, Thu 9, Tue 14, Thu 16.
	assert.Equal(t, 4, CountClassDays(day(2025, time.January, 7), day(2025, time.January, 16), tueThu))
	assert.Equal(t, 0, CountClassDays(day(2025, time.January, 16), day(2025, time.January, 7), tueThu))
	assert.Equal(t, 0, CountClassDays(day(2025, time.January, 7), day(2025, time.January, 16), nil))
	assert.Equal(t, 1, CountClassDays(day(2025, time.January, 7), day(2025, time.January, 7), tueThu))
}

func TestDaysLabel(t *testing.T) {
	assert.Equal(t, "Mar, Jue", DaysLabel(tueThu))
	assert.Equal(t, "Sab", DaysLabel([]time.Weekday{time.Saturday}))
	assert.Equal(t, "Lun, Dom", DaysLabel([]time.Weekday{time.Sunday, time.Monday}))
	assert.Equal(t, "", DaysLabel(nil))
}

func TestDaysBetween(t *testing.T) {
	assert.Equal(t, 3, DaysBetween(day(2025, time.January, 7), day(2025, time.January, 10)))
	assert.Equal(t, -3, DaysBetween(day(2025, time.January, 10), day(2025, time.January, 7)))
	// Normalization discards clock drift.
	late := time.Date(2025, time.January, 7, 23, 50, 0, 0, time.UTC)
	early := time.Date(2025, time.January, 8, 0, 5, 0, 0, time.UTC)
	assert.Equal(t, 1, DaysBetween(late, early))
}
