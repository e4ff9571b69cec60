package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment methods accepted at the front desk.
const (
	PaymentMethodCash     = "efectivo"
	PaymentMethodTransfer = "transferencia"
	PaymentMethodCard     = "tarjeta"
)

// Payment types distinguish how an amount applies to the student's account.
const (
	PaymentTypeFull        = "full"
	PaymentTypeInstallment = "installment"
	PaymentTypeBalance     = "balance"
)

// Payment is an append-only record of money received. Voided payments stay
// on file but are excluded from every balance and cycle computation.
type Payment struct {
	ID                string          `db:"id" json:"id"`
	StudentID         string          `db:"student_id" json:"student_id"`
	Amount            decimal.Decimal `db:"amount" json:"amount"`
	PaymentDate       time.Time       `db:"payment_date" json:"payment_date"`
	Method            string          `db:"method" json:"method"`
	Type              string          `db:"type" json:"type"`
	Discounted        bool            `db:"discounted" json:"discounted"`
	DiscountReason    *string         `db:"discount_reason" json:"discount_reason,omitempty"`
	Voided            bool            `db:"voided" json:"voided"`
	VoidedReason      *string         `db:"voided_reason" json:"voided_reason,omitempty"`
	VoidedAt          *time.Time      `db:"voided_at" json:"voided_at,omitempty"`
	RegisterSessionID *string         `db:"register_session_id" json:"register_session_id,omitempty"`
	RecordedBy        *string         `db:"recorded_by" json:"recorded_by,omitempty"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
}

// PaymentFilter restricts payment history listings.
type PaymentFilter struct {
	StudentID     string
	IncludeVoided bool
	From          *time.Time
	To            *time.Time
	Page          int
	PageSize      int
}
