package billing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func money(v string) decimal.Decimal {
	d, _ := decimal.NewFromString(v)
	return d
}

func ptr(t time.Time) *time.Time { return &t }

func monthlyCourse() CourseTerms {
	return CourseTerms{PriceType: PriceMonthly, Price: money("40"), ClassDays: tueThu, ClassesPerCycle: 8}
}

func TestDaysUntilDue(t *testing.T) {
	today := day(2025, time.January, 20)
	assert.Equal(t, NeverDue, DaysUntilDue(nil, today))
	// Next payment Jan 21: cycle's last valid day is Jan 20, due today.
	assert.Equal(t, 0, DaysUntilDue(ptr(day(2025, time.January, 21)), today))
	assert.Equal(t, 4, DaysUntilDue(ptr(day(2025, time.January, 25)), today))
	assert.Equal(t, -6, DaysUntilDue(ptr(day(2025, time.January, 15)), today))
}

func TestClassifyMonthlyThresholds(t *testing.T) {
	today := day(2025, time.January, 20)
	tests := []struct {
		name     string
		next     time.Time
		code     StatusCode
		priority int
	}{
		{name: "due today", next: day(2025, time.January, 21), code: StatusDueToday, priority: 1},
		{name: "urgent lower bound", next: day(2025, time.January, 22), code: StatusUrgent, priority: 2},
		{name: "urgent upper bound", next: day(2025, time.January, 24), code: StatusUrgent, priority: 2},
		{name: "upcoming lower bound", next: day(2025, time.January, 25), code: StatusUpcoming, priority: 3},
		{name: "upcoming upper bound", next: day(2025, time.January, 28), code: StatusUpcoming, priority: 3},
		{name: "ok", next: day(2025, time.January, 29), code: StatusOK, priority: 5},
		{name: "overdue", next: day(2025, time.January, 20), code: StatusOverdue, priority: 1},
		{name: "still overdue at limit", next: day(2025, time.January, 11), code: StatusOverdue, priority: 1},
		{name: "auto inactive", next: day(2025, time.January, 10), code: StatusInactive, priority: 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := StudentState{Status: StatePaid, NextPaymentDate: ptr(tt.next)}
			got := Classify(st, monthlyCourse(), today, 10)
			assert.Equal(t, tt.code, got.Code)
			assert.Equal(t, tt.priority, got.Priority)
		})
	}
}

func TestClassifyOverdueLabels(t *testing.T) {
	today := day(2025, time.January, 20)
	st := StudentState{Status: StatePaid, NextPaymentDate: ptr(day(2025, time.January, 20))}
	assert.Equal(t, "Vencido hace 1 dia", Classify(st, monthlyCourse(), today, 10).Label)

	st.NextPaymentDate = ptr(day(2025, time.January, 17))
	assert.Equal(t, "Vencido hace 4 dias", Classify(st, monthlyCourse(), today, 10).Label)
}

func TestClassifyPartialDominates(t *testing.T) {
	// A stored partial outranks date-derived classification even when the
	// cycle is comfortably ahead.
	today := day(2025, time.January, 20)
	st := StudentState{
		Status:          StatePartial,
		NextPaymentDate: ptr(day(2025, time.February, 20)),
		AmountPaid:      money("20"),
	}
	got := Classify(st, monthlyCourse(), today, 10)
	assert.Equal(t, StatusPartial, got.Code)
	assert.Equal(t, 2, got.Priority)
	assert.Equal(t, "Abono $20.00 de $40.00", got.Label)
}

func TestClassifyNoOpenCycle(t *testing.T) {
	got := Classify(StudentState{Status: StatePending}, monthlyCourse(), day(2025, time.January, 20), 10)
	assert.Equal(t, StatusPending, got.Code)
	assert.Equal(t, "Sin cobro", got.Label)
	assert.Equal(t, 4, got.Priority)
}

func TestClassifyPerClass(t *testing.T) {
	course := CourseTerms{PriceType: PricePerClass, Price: money("8")}
	got := Classify(StudentState{Status: StatePaid}, course, day(2025, time.January, 20), 10)
	assert.Equal(t, StatusSingle, got.Code)
	assert.Equal(t, 5, got.Priority)
	assert.Equal(t, NeverDue, got.DaysUntilDue)
}

func TestClassifyProgram(t *testing.T) {
	course := CourseTerms{PriceType: PriceProgram, Price: money("300")}
	today := day(2025, time.January, 20)

	paid := Classify(StudentState{AmountPaid: money("300")}, course, today, 10)
	assert.Equal(t, StatusPaid, paid.Code)

	pending := Classify(StudentState{}, course, today, 10)
	assert.Equal(t, StatusPending, pending.Code)

	partial := Classify(StudentState{AmountPaid: money("100")}, course, today, 10)
	assert.Equal(t, StatusPartial, partial.Code)
	assert.Equal(t, "Abono $100.00 de $300.00", partial.Label)
	assert.Equal(t, 2, partial.Priority)
}

func TestClassifyPackage(t *testing.T) {
	course := CourseTerms{PriceType: PricePackage, Price: money("40"), ClassDays: []time.Weekday{time.Saturday}, ClassesPerCycle: 4}

	// Package bought Sat Jan 4, cycle ends Jan 25, due rolls to Feb 1.
	st := StudentState{
		Status:          StatePaid,
		LastPaymentDate: ptr(day(2025, time.January, 4)),
		NextPaymentDate: ptr(day(2025, time.February, 1)),
	}

	midCycle := Classify(st, course, day(2025, time.January, 12), 10)
	assert.Equal(t, StatusActivePackage, midCycle.Code)
	assert.Equal(t, 2, midCycle.ClassesRemaining)
	assert.Equal(t, 4, midCycle.Priority)

	lastClass := Classify(st, course, day(2025, time.January, 25), 10)
	assert.Equal(t, StatusActivePackage, lastClass.Code)
	assert.Equal(t, 0, lastClass.ClassesRemaining)
	assert.Equal(t, 2, lastClass.Priority, "nearly exhausted packages escalate")

	overdue := Classify(st, course, day(2025, time.February, 3), 10)
	assert.Equal(t, StatusOverdue, overdue.Code)
	assert.Equal(t, "Renovar paquete", overdue.Label)

	inactive := Classify(st, course, day(2025, time.February, 15), 10)
	assert.Equal(t, StatusInactive, inactive.Code)

	noCycle := Classify(StudentState{Status: StatePending}, course, day(2025, time.January, 12), 10)
	assert.Equal(t, StatusPending, noCycle.Code)
}

// Alert ordering: overdue and due-today sort before urgent, urgent before
// upcoming, upcoming before ok.
func TestStatusPriorityOrdering(t *testing.T) {
	today := day(2025, time.January, 20)
	course := monthlyCourse()

	status := func(next time.Time) Status {
		return Classify(StudentState{Status: StatePaid, NextPaymentDate: ptr(next)}, course, today, 10)
	}

	overdue := status(day(2025, time.January, 18))
	dueToday := status(day(2025, time.January, 21))
	urgent := status(day(2025, time.January, 23))
	upcoming := status(day(2025, time.January, 26))
	ok := status(day(2025, time.February, 15))

	assert.Equal(t, overdue.Priority, dueToday.Priority)
	assert.Less(t, dueToday.Priority, urgent.Priority)
	assert.Less(t, urgent.Priority, upcoming.Priority)
	assert.Less(t, upcoming.Priority, ok.Priority)
}
