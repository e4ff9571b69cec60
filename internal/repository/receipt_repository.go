package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/studio-pos-api/internal/models"
)

// ReceiptRepository manages receipt folios and rendering state.
type ReceiptRepository struct {
	db *sqlx.DB
}

// NewReceiptRepository constructs a ReceiptRepository.
func NewReceiptRepository(db *sqlx.DB) *ReceiptRepository {
	return &ReceiptRepository{db: db}
}

const receiptColumns = "id, payment_id, number, status, file_path, error, created_at, rendered_at"

// Create allocates the next folio and inserts the receipt in one
// transaction, so folios stay gapless under concurrent registrations.
func (r *ReceiptRepository) Create(ctx context.Context, receipt *models.Receipt) error {
	if receipt.ID == "" {
		receipt.ID = uuid.NewString()
	}
	if receipt.CreatedAt.IsZero() {
		receipt.CreatedAt = time.Now().UTC()
	}
	if receipt.Status == "" {
		receipt.Status = models.ReceiptStatusPending
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin receipt tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := tx.GetContext(ctx, &receipt.Number, "SELECT COALESCE(MAX(number), 0) + 1 FROM receipts"); err != nil {
		return fmt.Errorf("allocate receipt number: %w", err)
	}

	const query = `INSERT INTO receipts (id, payment_id, number, status, file_path, error, created_at, rendered_at)
        VALUES (:id, :payment_id, :number, :status, :file_path, :error, :created_at, :rendered_at)`
	if _, err := tx.NamedExecContext(ctx, query, receipt); err != nil {
		return fmt.Errorf("insert receipt: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit receipt tx: %w", err)
	}
	return nil
}

// FindByID fetches a receipt by ID.
func (r *ReceiptRepository) FindByID(ctx context.Context, id string) (*models.Receipt, error) {
	query := fmt.Sprintf("SELECT %s FROM receipts WHERE id = $1", receiptColumns)
	var receipt models.Receipt
	if err := r.db.GetContext(ctx, &receipt, query, id); err != nil {
		return nil, err
	}
	return &receipt, nil
}

// FindByPayment fetches the receipt issued for a payment.
func (r *ReceiptRepository) FindByPayment(ctx context.Context, paymentID string) (*models.Receipt, error) {
	query := fmt.Sprintf("SELECT %s FROM receipts WHERE payment_id = $1", receiptColumns)
	var receipt models.Receipt
	if err := r.db.GetContext(ctx, &receipt, query, paymentID); err != nil {
		return nil, err
	}
	return &receipt, nil
}

// MarkReady records the rendered file location.
func (r *ReceiptRepository) MarkReady(ctx context.Context, id, filePath string) error {
	const query = `UPDATE receipts SET status = $2, file_path = $3, error = NULL, rendered_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.ReceiptStatusReady, filePath, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark receipt ready: %w", err)
	}
	return nil
}

// MarkFailed records a rendering failure.
func (r *ReceiptRepository) MarkFailed(ctx context.Context, id, reason string) error {
	const query = `UPDATE receipts SET status = $2, error = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.ReceiptStatusFailed, reason); err != nil {
		return fmt.Errorf("mark receipt failed: %w", err)
	}
	return nil
}
