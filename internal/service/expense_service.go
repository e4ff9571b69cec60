package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/studio-pos-api/internal/billing"
	"github.com/noah-isme/studio-pos-api/internal/models"
	appErrors "github.com/noah-isme/studio-pos-api/pkg/errors"
)

type expenseRepository interface {
	List(ctx context.Context, filter models.ExpenseFilter) ([]models.Expense, int, error)
	Create(ctx context.Context, expense *models.Expense) error
	Delete(ctx context.Context, id string) error
}

// CreateExpenseRequest describes an expense registration.
type CreateExpenseRequest struct {
	Concept     string          `json:"concept" validate:"required"`
	Category    string          `json:"category" validate:"required,oneof=renta servicios mantenimiento insumos nomina otros"`
	Amount      decimal.Decimal `json:"amount" validate:"required"`
	Method      string          `json:"method" validate:"required,oneof=efectivo transferencia tarjeta"`
	ExpenseDate *time.Time      `json:"expense_date,omitempty"`
	RecordedBy  string          `json:"-"`
}

// ExpenseService records studio outflows. Cash expenses attach to the
// open drawer session so closing can reconcile them.
type ExpenseService struct {
	repo      expenseRepository
	registers openRegisterReader
	clock     billing.Clock
	validator *validator.Validate
	logger    *zap.Logger
}

// NewExpenseService constructs ExpenseService.
func NewExpenseService(repo expenseRepository, registers openRegisterReader, clock billing.Clock, validate *validator.Validate, logger *zap.Logger) *ExpenseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExpenseService{repo: repo, registers: registers, clock: clock, validator: validate, logger: logger}
}

// List returns expenses with pagination metadata.
func (s *ExpenseService) List(ctx context.Context, filter models.ExpenseFilter) ([]models.Expense, *models.Pagination, error) {
	expenses, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list expenses")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return expenses, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Create records an expense.
func (s *ExpenseService) Create(ctx context.Context, req CreateExpenseRequest) (*models.Expense, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid expense payload")
	}
	if !req.Amount.IsPositive() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "amount must be greater than zero")
	}

	date := s.clock.Today()
	if req.ExpenseDate != nil {
		date = billing.DateOf(*req.ExpenseDate)
	}
	expense := &models.Expense{
		Concept:     req.Concept,
		Category:    req.Category,
		Amount:      req.Amount,
		Method:      req.Method,
		ExpenseDate: date,
	}
	if req.RecordedBy != "" {
		expense.RecordedBy = &req.RecordedBy
	}
	if req.Method == models.PaymentMethodCash && s.registers != nil {
		if session, err := s.registers.FindOpen(ctx); err == nil && session != nil {
			expense.RegisterSessionID = &session.ID
		}
	}

	if err := s.repo.Create(ctx, expense); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create expense")
	}
	s.logger.Info("expense recorded", zap.String("expense_id", expense.ID), zap.String("category", expense.Category))
	return expense, nil
}

// Delete removes an expense record.
func (s *ExpenseService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete expense")
	}
	return nil
}
