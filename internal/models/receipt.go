package models

import "time"

// Receipt rendering states.
const (
	ReceiptStatusPending = "pending"
	ReceiptStatusReady   = "ready"
	ReceiptStatusFailed  = "failed"
)

// Receipt links a payment to its sequential folio and rendered PDF.
type Receipt struct {
	ID         string     `db:"id" json:"id"`
	PaymentID  string     `db:"payment_id" json:"payment_id"`
	Number     int64      `db:"number" json:"number"`
	Status     string     `db:"status" json:"status"`
	FilePath   *string    `db:"file_path" json:"file_path,omitempty"`
	Error      *string    `db:"error" json:"error,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	RenderedAt *time.Time `db:"rendered_at" json:"rendered_at,omitempty"`
}

// ReceiptLink is the signed download handed to the front desk.
type ReceiptLink struct {
	ReceiptID string    `json:"receipt_id"`
	Number    int64     `json:"number"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}
