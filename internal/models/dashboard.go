package models

import (
	"time"

	"github.com/noah-isme/studio-pos-api/internal/billing"
)

// StudentStatusEntry is one row on the front-desk status board: a student
// with their classified payment status and, when a cycle is open, its
// progress snapshot.
type StudentStatusEntry struct {
	StudentID       string                 `json:"student_id"`
	FullName        string                 `json:"full_name"`
	Phone           string                 `json:"phone"`
	CourseID        string                 `json:"course_id"`
	CourseName      string                 `json:"course_name"`
	PriceType       billing.PriceType      `json:"price_type"`
	IsPaused        bool                   `json:"is_paused"`
	NextPaymentDate *time.Time             `json:"next_payment_date,omitempty"`
	Status          billing.Status         `json:"status"`
	Cycle           *billing.CycleSnapshot `json:"cycle,omitempty"`
}

// BoardSummary aggregates the board into the alert counters shown at the
// top of the dashboard.
type BoardSummary struct {
	TotalActive int `json:"total_active"`
	Overdue     int `json:"overdue"`
	DueToday    int `json:"due_today"`
	Urgent      int `json:"urgent"`
	Upcoming    int `json:"upcoming"`
	Partial     int `json:"partial"`
	Pending     int `json:"pending"`
	Paused      int `json:"paused"`
}

// StatusBoard is the full dashboard payload, sorted most urgent first.
type StatusBoard struct {
	Summary     BoardSummary         `json:"summary"`
	Students    []StudentStatusEntry `json:"students"`
	GeneratedAt time.Time            `json:"generated_at"`
}
