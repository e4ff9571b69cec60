package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Register session lifecycle states.
const (
	RegisterStatusOpen   = "open"
	RegisterStatusClosed = "closed"
)

// RegisterSession is one cash-drawer shift: opened with a float, fed by
// cash payments and drained by cash expenses, closed against a physical
// count.
type RegisterSession struct {
	ID           string           `db:"id" json:"id"`
	Status       string           `db:"status" json:"status"`
	OpenedBy     string           `db:"opened_by" json:"opened_by"`
	OpenedAt     time.Time        `db:"opened_at" json:"opened_at"`
	OpeningFloat decimal.Decimal  `db:"opening_float" json:"opening_float"`
	ClosedBy     *string          `db:"closed_by" json:"closed_by,omitempty"`
	ClosedAt     *time.Time       `db:"closed_at" json:"closed_at,omitempty"`
	CashIncome   decimal.Decimal  `db:"cash_income" json:"cash_income"`
	CashExpenses decimal.Decimal  `db:"cash_expenses" json:"cash_expenses"`
	Expected     *decimal.Decimal `db:"expected" json:"expected,omitempty"`
	Counted      *decimal.Decimal `db:"counted" json:"counted,omitempty"`
	Difference   *decimal.Decimal `db:"difference" json:"difference,omitempty"`
	Notes        string           `db:"notes" json:"notes"`
	CreatedAt    time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time        `db:"updated_at" json:"updated_at"`
}

// RegisterSummary is the live view of the open drawer before closing.
type RegisterSummary struct {
	Session      RegisterSession `json:"session"`
	CashIncome   decimal.Decimal `json:"cash_income"`
	CashExpenses decimal.Decimal `json:"cash_expenses"`
	Expected     decimal.Decimal `json:"expected"`
}
