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

// RegisterRepository manages cash register sessions.
type RegisterRepository struct {
	db *sqlx.DB
}

// NewRegisterRepository constructs a RegisterRepository.
func NewRegisterRepository(db *sqlx.DB) *RegisterRepository {
	return &RegisterRepository{db: db}
}

const registerColumns = "id, status, opened_by, opened_at, opening_float, closed_by, closed_at, cash_income, cash_expenses, expected, counted, difference, notes, created_at, updated_at"

// FindOpen returns the currently open session, or sql.ErrNoRows.
func (r *RegisterRepository) FindOpen(ctx context.Context) (*models.RegisterSession, error) {
	query := fmt.Sprintf("SELECT %s FROM register_sessions WHERE status = $1 ORDER BY opened_at DESC LIMIT 1", registerColumns)
	var session models.RegisterSession
	if err := r.db.GetContext(ctx, &session, query, models.RegisterStatusOpen); err != nil {
		return nil, err
	}
	return &session, nil
}

// FindByID fetches a session by ID.
func (r *RegisterRepository) FindByID(ctx context.Context, id string) (*models.RegisterSession, error) {
	query := fmt.Sprintf("SELECT %s FROM register_sessions WHERE id = $1", registerColumns)
	var session models.RegisterSession
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		return nil, err
	}
	return &session, nil
}

// Create opens a new register session.
func (r *RegisterRepository) Create(ctx context.Context, session *models.RegisterSession) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now
	const query = `INSERT INTO register_sessions (id, status, opened_by, opened_at, opening_float, cash_income, cash_expenses, notes, created_at, updated_at)
        VALUES (:id, :status, :opened_by, :opened_at, :opening_float, :cash_income, :cash_expenses, :notes, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, session); err != nil {
		return fmt.Errorf("create register session: %w", err)
	}
	return nil
}

// Close persists the closing figures of a session.
func (r *RegisterRepository) Close(ctx context.Context, session *models.RegisterSession) error {
	session.UpdatedAt = time.Now().UTC()
	const query = `UPDATE register_sessions SET status = :status, closed_by = :closed_by, closed_at = :closed_at,
        cash_income = :cash_income, cash_expenses = :cash_expenses, expected = :expected, counted = :counted,
        difference = :difference, notes = :notes, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, session); err != nil {
		return fmt.Errorf("close register session: %w", err)
	}
	return nil
}

// List returns recent sessions, newest first.
func (r *RegisterRepository) List(ctx context.Context, limit int) ([]models.RegisterSession, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	query := fmt.Sprintf("SELECT %s FROM register_sessions ORDER BY opened_at DESC LIMIT %d", registerColumns, limit)
	var sessions []models.RegisterSession
	if err := r.db.SelectContext(ctx, &sessions, query); err != nil {
		return nil, fmt.Errorf("list register sessions: %w", err)
	}
	return sessions, nil
}

// SumCashExpensesSince totals cash expenses recorded at or after the given
// time.
func (r *RegisterRepository) SumCashExpensesSince(ctx context.Context, since time.Time) (decimal.Decimal, error) {
	const query = `SELECT COALESCE(SUM(amount), 0) FROM expenses WHERE method = $1 AND created_at >= $2`
	var total decimal.Decimal
	if err := r.db.GetContext(ctx, &total, query, models.PaymentMethodCash, since); err != nil {
		return decimal.Zero, fmt.Errorf("sum cash expenses: %w", err)
	}
	return total, nil
}
