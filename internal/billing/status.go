package billing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PriceType enumerates how a course is billed.
type PriceType string

const (
	// PriceMonthly bills a recurring cycle of classes per month.
	PriceMonthly PriceType = "mes"
	// PricePackage bills a fixed-size class package.
	PricePackage PriceType = "paquete"
	// PricePerClass bills each attended class, with no cycle tracking.
	PricePerClass PriceType = "clase"
	// PriceProgram bills a one-off program with a cumulative balance.
	PriceProgram PriceType = "programa"
)

// Valid reports whether t is a known price type.
func (t PriceType) Valid() bool {
	switch t {
	case PriceMonthly, PricePackage, PricePerClass, PriceProgram:
		return true
	}
	return false
}

// PaymentState is the stored per-student payment state for the open cycle.
type PaymentState string

const (
	StatePending PaymentState = "pending"
	StatePartial PaymentState = "partial"
	StatePaid    PaymentState = "paid"
)

// StatusCode identifies a classification bucket on the alert board.
type StatusCode string

const (
	StatusSingle        StatusCode = "single"
	StatusPaid          StatusCode = "paid"
	StatusPartial       StatusCode = "partial"
	StatusPending       StatusCode = "pending"
	StatusInactive      StatusCode = "inactive"
	StatusOverdue       StatusCode = "overdue"
	StatusDueToday      StatusCode = "due_today"
	StatusUrgent        StatusCode = "urgent"
	StatusUpcoming      StatusCode = "upcoming"
	StatusOK            StatusCode = "ok"
	StatusActivePackage StatusCode = "active_package"
)

// NeverDue is the sentinel returned by DaysUntilDue when no cycle is open.
const NeverDue = 1 << 30

// Status is the classifier output. Lower Priority sorts earlier on alert
// lists: overdue and due-today first, healthy and settled states last.
type Status struct {
	Code             StatusCode `json:"code"`
	Label            string     `json:"label"`
	Priority         int        `json:"priority"`
	DaysUntilDue     int        `json:"days_until_due"`
	ClassesRemaining int        `json:"classes_remaining,omitempty"`
}

// StudentState is the slice of a student record the classifier needs.
type StudentState struct {
	Status          PaymentState
	LastPaymentDate *time.Time
	NextPaymentDate *time.Time
	AmountPaid      decimal.Decimal
	Balance         decimal.Decimal
}

// CourseTerms is the slice of a course record the classifier needs.
type CourseTerms struct {
	PriceType       PriceType
	Price           decimal.Decimal
	ClassDays       []time.Weekday
	ClassesPerCycle int
}

// DaysUntilDue measures distance to the cycle's last valid day. The stored
// next payment date is the first day after the cycle, so the due day is the
// day before it. Negative values mean the cycle already lapsed.
func DaysUntilDue(nextPayment *time.Time, today time.Time) int {
	if nextPayment == nil {
		return NeverDue
	}
	due := DateOf(*nextPayment).AddDate(0, 0, -1)
	return DaysBetween(today, due)
}

// Classify maps a student's balance and due-date state to a status bucket.
//
// An explicitly stored partial payment always dominates date-derived
// classification: someone who owes part of the cycle is flagged as such even
// when the cycle itself is not yet due.
func Classify(st StudentState, course CourseTerms, today time.Time, autoInactiveDays int) Status {
	if autoInactiveDays <= 0 {
		autoInactiveDays = 10
	}
	today = DateOf(today)

	switch course.PriceType {
	case PricePerClass:
		return Status{Code: StatusSingle, Label: "Pago por clase", Priority: 5, DaysUntilDue: NeverDue}
	case PriceProgram:
		return classifyProgram(st, course)
	}

	if st.Status == StatePartial {
		return Status{
			Code:         StatusPartial,
			Label:        fmt.Sprintf("Abono $%s de $%s", st.AmountPaid.StringFixed(2), course.Price.StringFixed(2)),
			Priority:     2,
			DaysUntilDue: DaysUntilDue(st.NextPaymentDate, today),
		}
	}

	if st.NextPaymentDate == nil {
		return Status{Code: StatusPending, Label: "Sin cobro", Priority: 4, DaysUntilDue: NeverDue}
	}

	days := DaysUntilDue(st.NextPaymentDate, today)

	if course.PriceType == PricePackage {
		return classifyPackage(st, course, today, days, autoInactiveDays)
	}
	return classifyMonthly(days, autoInactiveDays)
}

func classifyProgram(st StudentState, course CourseTerms) Status {
	balance := course.Price.Sub(st.AmountPaid)
	switch {
	case balance.Sign() <= 0:
		return Status{Code: StatusPaid, Label: "Programa pagado", Priority: 5, DaysUntilDue: NeverDue}
	case st.AmountPaid.Sign() == 0:
		return Status{Code: StatusPending, Label: "Sin abonos", Priority: 4, DaysUntilDue: NeverDue}
	default:
		return Status{
			Code:         StatusPartial,
			Label:        fmt.Sprintf("Abono $%s de $%s", st.AmountPaid.StringFixed(2), course.Price.StringFixed(2)),
			Priority:     2,
			DaysUntilDue: NeverDue,
		}
	}
}

func classifyPackage(st StudentState, course CourseTerms, today time.Time, days, autoInactiveDays int) Status {
	// The date-derived count is the source of truth; no attendance counter
	// is consulted.
	remaining := course.ClassesPerCycle
	if st.LastPaymentDate != nil && st.NextPaymentDate != nil && len(course.ClassDays) > 0 && course.ClassesPerCycle > 0 {
		snap := CycleInfo(*st.LastPaymentDate, *st.NextPaymentDate, course.ClassDays, course.ClassesPerCycle, today)
		remaining = snap.ClassesRemaining()
	}

	switch {
	case days < -autoInactiveDays:
		return Status{Code: StatusInactive, Label: "Inactivo", Priority: 6, DaysUntilDue: days}
	case days < 0:
		return Status{Code: StatusOverdue, Label: "Renovar paquete", Priority: 1, DaysUntilDue: days}
	}

	priority := 4
	if remaining <= 1 {
		priority = 2
	}
	label := fmt.Sprintf("%d clases restantes", remaining)
	if remaining == 1 {
		label = "1 clase restante"
	}
	return Status{Code: StatusActivePackage, Label: label, Priority: priority, DaysUntilDue: days, ClassesRemaining: remaining}
}

func classifyMonthly(days, autoInactiveDays int) Status {
	switch {
	case days < -autoInactiveDays:
		return Status{Code: StatusInactive, Label: "Inactivo", Priority: 6, DaysUntilDue: days}
	case days < 0:
		return Status{Code: StatusOverdue, Label: overdueLabel(-days), Priority: 1, DaysUntilDue: days}
	case days == 0:
		return Status{Code: StatusDueToday, Label: "Vence hoy", Priority: 1, DaysUntilDue: days}
	case days <= 3:
		return Status{Code: StatusUrgent, Label: dueInLabel(days), Priority: 2, DaysUntilDue: days}
	case days <= 7:
		return Status{Code: StatusUpcoming, Label: dueInLabel(days), Priority: 3, DaysUntilDue: days}
	default:
		return Status{Code: StatusOK, Label: "Al dia", Priority: 5, DaysUntilDue: days}
	}
}

func overdueLabel(daysAgo int) string {
	if daysAgo == 1 {
		return "Vencido hace 1 dia"
	}
	return fmt.Sprintf("Vencido hace %d dias", daysAgo)
}

func dueInLabel(days int) string {
	if days == 1 {
		return "Vence en 1 dia"
	}
	return fmt.Sprintf("Vence en %d dias", days)
}
