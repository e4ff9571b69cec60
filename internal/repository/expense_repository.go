package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/studio-pos-api/internal/models"
)

// ExpenseRepository manages studio expense records.
type ExpenseRepository struct {
	db *sqlx.DB
}

// NewExpenseRepository constructs an ExpenseRepository.
func NewExpenseRepository(db *sqlx.DB) *ExpenseRepository {
	return &ExpenseRepository{db: db}
}

const expenseColumns = "id, concept, category, amount, method, expense_date, register_session_id, recorded_by, created_at"

// List returns expenses matching the provided filters.
func (r *ExpenseRepository) List(ctx context.Context, filter models.ExpenseFilter) ([]models.Expense, int, error) {
	base := "FROM expenses"
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.Category != "" {
		conditions = append(conditions, fmt.Sprintf("category = $%d", len(args)+1))
		args = append(args, filter.Category)
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("expense_date >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("expense_date <= $%d", len(args)+1))
		args = append(args, *filter.To)
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY expense_date DESC, created_at DESC LIMIT %d OFFSET %d", expenseColumns, base, size, offset)

	var expenses []models.Expense
	if err := r.db.SelectContext(ctx, &expenses, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list expenses: %w", err)
	}

	countQuery := "SELECT COUNT(*) " + base
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count expenses: %w", err)
	}
	return expenses, total, nil
}

// Create inserts a new expense.
func (r *ExpenseRepository) Create(ctx context.Context, expense *models.Expense) error {
	if expense.ID == "" {
		expense.ID = uuid.NewString()
	}
	if expense.CreatedAt.IsZero() {
		expense.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO expenses (id, concept, category, amount, method, expense_date, register_session_id, recorded_by, created_at)
        VALUES (:id, :concept, :category, :amount, :method, :expense_date, :register_session_id, :recorded_by, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, expense); err != nil {
		return fmt.Errorf("create expense: %w", err)
	}
	return nil
}

// Delete removes an expense record.
func (r *ExpenseRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM expenses WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	return nil
}
