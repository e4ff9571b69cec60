package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/studio-pos-api/internal/billing"
)

// Student is an enrolled dancer together with their open billing-cycle
// state. The cycle fields are all nil/zero until the first completing
// payment opens a cycle.
type Student struct {
	ID              string               `db:"id" json:"id"`
	FullName        string               `db:"full_name" json:"full_name"`
	Phone           string               `db:"phone" json:"phone"`
	Email           string               `db:"email" json:"email"`
	CourseID        string               `db:"course_id" json:"course_id"`
	EnrollmentDate  time.Time            `db:"enrollment_date" json:"enrollment_date"`
	LastPaymentDate *time.Time           `db:"last_payment_date" json:"last_payment_date,omitempty"`
	NextPaymentDate *time.Time           `db:"next_payment_date" json:"next_payment_date,omitempty"`
	AmountPaid      decimal.Decimal      `db:"amount_paid" json:"amount_paid"`
	Balance         decimal.Decimal      `db:"balance" json:"balance"`
	PaymentStatus   billing.PaymentState `db:"payment_status" json:"payment_status"`
	IsPaused        bool                 `db:"is_paused" json:"is_paused"`
	PauseDate       *time.Time           `db:"pause_date" json:"pause_date,omitempty"`
	Active          bool                 `db:"active" json:"active"`
	CreatedAt       time.Time            `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time            `db:"updated_at" json:"updated_at"`
}

// State projects the student into the classifier's input shape.
func (s *Student) State() billing.StudentState {
	return billing.StudentState{
		Status:          s.PaymentStatus,
		LastPaymentDate: s.LastPaymentDate,
		NextPaymentDate: s.NextPaymentDate,
		AmountPaid:      s.AmountPaid,
		Balance:         s.Balance,
	}
}

// ResetCycle returns the student to the pre-first-payment state.
func (s *Student) ResetCycle() {
	s.LastPaymentDate = nil
	s.NextPaymentDate = nil
	s.AmountPaid = decimal.Zero
	s.Balance = decimal.Zero
	s.PaymentStatus = billing.StatePending
	s.IsPaused = false
	s.PauseDate = nil
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search    string
	CourseID  string
	Status    string
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// StudentDetail contains student information with course context.
type StudentDetail struct {
	Student
	CourseName      string            `db:"course_name" json:"course_name"`
	CoursePriceType billing.PriceType `db:"course_price_type" json:"course_price_type"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
