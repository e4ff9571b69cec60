package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCycleInfoConfiguredCourse(t *testing.T) {
	lastPayment := day(2025, time.January, 7)
	nextPayment := day(2025, time.February, 4)

	snap := CycleInfo(lastPayment, nextPayment, tueThu, 8, day(2025, time.January, 7))
	assert.Equal(t, day(2025, time.January, 7), snap.Start)
	assert.Equal(t, day(2025, time.January, 30), snap.End)
	assert.Equal(t, 8, snap.TotalClasses)
	assert.Equal(t, 1, snap.ClassesPassed)
	assert.Equal(t, 7, snap.ClassesRemaining())
	assert.Equal(t, "07 Ene", snap.StartLabel)
	assert.Equal(t, "30 Ene", snap.EndLabel)
	assert.Equal(t, "Mar, Jue", snap.DaysLabel)
}

func TestCycleInfoStartSnapsToClassDay(t *testing.T) {
	// Payment on a Friday: the cycle starts the following Tuesday.
	snap := CycleInfo(day(2025, time.January, 10), day(2025, time.February, 6), tueThu, 8, day(2025, time.January, 10))
	assert.Equal(t, day(2025, time.January, 14), snap.Start)
	assert.Equal(t, 0, snap.ClassesPassed)
}

func TestCycleInfoIdempotent(t *testing.T) {
	lastPayment := day(2025, time.January, 7)
	nextPayment := day(2025, time.February, 4)
	today := day(2025, time.January, 20)

	first := CycleInfo(lastPayment, nextPayment, tueThu, 8, today)
	second := CycleInfo(lastPayment, nextPayment, tueThu, 8, today)
	assert.Equal(t, first, second)
}

// ClassesPassed never decreases as today advances and clamps at the total
// once the cycle is over; the boundaries never move.
func TestCycleInfoMonotonicProgress(t *testing.T) {
	lastPayment := day(2025, time.January, 7)
	nextPayment := day(2025, time.February, 4)

	prev := 0
	for offset := -3; offset < 40; offset++ {
		today := lastPayment.AddDate(0, 0, offset)
		snap := CycleInfo(lastPayment, nextPayment, tueThu, 8, today)
		require.Equal(t, day(2025, time.January, 7), snap.Start)
		require.Equal(t, day(2025, time.January, 30), snap.End)
		require.GreaterOrEqual(t, snap.ClassesPassed, prev, "today=%v", today)
		require.LessOrEqual(t, snap.ClassesPassed, snap.TotalClasses)
		prev = snap.ClassesPassed
	}
	assert.Equal(t, 8, prev)
}

func TestCycleInfoFallbackWithClassDays(t *testing.T) {
	// No per-cycle count: boundaries are taken literally and the total is
	// counted from matching weekdays in the window.
	lastPayment := day(2025, time.January, 7)
	nextPayment := day(2025, time.February, 4)

	snap := CycleInfo(lastPayment, nextPayment, tueThu, 0, day(2025, time.January, 16))
	assert.Equal(t, day(2025, time.January, 7), snap.Start)
	assert.Equal(t, day(2025, time.February, 3), snap.End)
	assert.Equal(t, 8, snap.TotalClasses)
	assert.Equal(t, 4, snap.ClassesPassed)
}

func TestCycleInfoFallbackWithoutClassDays(t *testing.T) {
	lastPayment := day(2025, time.January, 1)
	nextPayment := day(2025, time.February, 1)

	snap := CycleInfo(lastPayment, nextPayment, nil, 0, day(2025, time.January, 16))
	assert.Equal(t, day(2025, time.January, 1), snap.Start)
	assert.Equal(t, day(2025, time.January, 31), snap.End)
	assert.Equal(t, 0, snap.TotalClasses)
	assert.Equal(t, 0, snap.ClassesPassed)
	assert.Equal(t, "", snap.DaysLabel)
}

func TestFixedClock(t *testing.T) {
	c := FixedClock{Day: time.Date(2025, time.January, 7, 18, 30, 0, 0, time.UTC)}
	assert.Equal(t, day(2025, time.January, 7), c.Today())
}
