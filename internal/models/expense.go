package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Expense categories used for reporting.
const (
	ExpenseCategoryRent        = "renta"
	ExpenseCategoryServices    = "servicios"
	ExpenseCategoryMaintenance = "mantenimiento"
	ExpenseCategorySupplies    = "insumos"
	ExpenseCategoryPayroll     = "nomina"
	ExpenseCategoryOther       = "otros"
)

// Expense is a studio outflow, attached to the open register session when
// paid from the drawer.
type Expense struct {
	ID                string          `db:"id" json:"id"`
	Concept           string          `db:"concept" json:"concept"`
	Category          string          `db:"category" json:"category"`
	Amount            decimal.Decimal `db:"amount" json:"amount"`
	Method            string          `db:"method" json:"method"`
	ExpenseDate       time.Time       `db:"expense_date" json:"expense_date"`
	RegisterSessionID *string         `db:"register_session_id" json:"register_session_id,omitempty"`
	RecordedBy        *string         `db:"recorded_by" json:"recorded_by,omitempty"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
}

// ExpenseFilter restricts expense listings.
type ExpenseFilter struct {
	Category string
	From     *time.Time
	To       *time.Time
	Page     int
	PageSize int
}
