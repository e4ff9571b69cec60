package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/studio-pos-api/internal/models"
)

// PaymentRepository manages the append-only payment ledger.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository constructs a PaymentRepository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

const paymentColumns = "id, student_id, amount, payment_date, method, type, discounted, discount_reason, voided, voided_reason, voided_at, register_session_id, recorded_by, created_at"

const insertPaymentQuery = `INSERT INTO payments (id, student_id, amount, payment_date, method, type, discounted, discount_reason, voided, voided_reason, voided_at, register_session_id, recorded_by, created_at)
        VALUES (:id, :student_id, :amount, :payment_date, :method, :type, :discounted, :discount_reason, :voided, :voided_reason, :voided_at, :register_session_id, :recorded_by, :created_at)`

const updateStudentCycleQuery = `UPDATE students SET last_payment_date = :last_payment_date, next_payment_date = :next_payment_date,
        amount_paid = :amount_paid, balance = :balance, payment_status = :payment_status, is_paused = :is_paused,
        pause_date = :pause_date, updated_at = :updated_at WHERE id = :id`

// FindByID fetches a payment by ID.
func (r *PaymentRepository) FindByID(ctx context.Context, id string) (*models.Payment, error) {
	query := fmt.Sprintf("SELECT %s FROM payments WHERE id = $1", paymentColumns)
	var payment models.Payment
	if err := r.db.GetContext(ctx, &payment, query, id); err != nil {
		return nil, err
	}
	return &payment, nil
}

// ListByStudent returns a student's payments ordered by payment date
// descending. Voided payments are excluded unless requested.
func (r *PaymentRepository) ListByStudent(ctx context.Context, studentID string, includeVoided bool) ([]models.Payment, error) {
	query := fmt.Sprintf("SELECT %s FROM payments WHERE student_id = $1", paymentColumns)
	if !includeVoided {
		query += " AND voided = false"
	}
	query += " ORDER BY payment_date DESC, created_at DESC"

	var payments []models.Payment
	if err := r.db.SelectContext(ctx, &payments, query, studentID); err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return payments, nil
}

// SaveReconciliation persists the outcome of a payment registration: the
// new payment row and the student's updated cycle state land in one
// transaction so a partial write can never leave the ledger and the cycle
// out of step.
func (r *PaymentRepository) SaveReconciliation(ctx context.Context, student *models.Student, payment *models.Payment) error {
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = now
	}
	student.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reconciliation tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.NamedExecContext(ctx, insertPaymentQuery, payment); err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	if _, err := tx.NamedExecContext(ctx, updateStudentCycleQuery, student); err != nil {
		return fmt.Errorf("update student cycle: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reconciliation tx: %w", err)
	}
	return nil
}

// VoidAndReplay marks a payment voided and writes the replayed student
// state in the same transaction.
func (r *PaymentRepository) VoidAndReplay(ctx context.Context, paymentID, reason string, student *models.Student) error {
	now := time.Now().UTC()
	student.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin void tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const voidQuery = `UPDATE payments SET voided = true, voided_reason = $2, voided_at = $3 WHERE id = $1 AND voided = false`
	res, err := tx.ExecContext(ctx, voidQuery, paymentID, reason, now)
	if err != nil {
		return fmt.Errorf("void payment: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("payment %s already voided", paymentID)
	}

	if _, err := tx.NamedExecContext(ctx, updateStudentCycleQuery, student); err != nil {
		return fmt.Errorf("update student cycle: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit void tx: %w", err)
	}
	return nil
}

// SumCashSince totals non-voided cash payments registered at or after the
// given time. Used for register drawer reconciliation.
func (r *PaymentRepository) SumCashSince(ctx context.Context, since time.Time) (decimal.Decimal, error) {
	const query = `SELECT COALESCE(SUM(amount), 0) FROM payments WHERE method = $1 AND voided = false AND created_at >= $2`
	var total decimal.Decimal
	if err := r.db.GetContext(ctx, &total, query, models.PaymentMethodCash, since); err != nil {
		return decimal.Zero, fmt.Errorf("sum cash payments: %w", err)
	}
	return total, nil
}
