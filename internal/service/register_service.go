package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/studio-pos-api/internal/models"
	appErrors "github.com/noah-isme/studio-pos-api/pkg/errors"
)

type registerRepository interface {
	FindOpen(ctx context.Context) (*models.RegisterSession, error)
	FindByID(ctx context.Context, id string) (*models.RegisterSession, error)
	Create(ctx context.Context, session *models.RegisterSession) error
	Close(ctx context.Context, session *models.RegisterSession) error
	List(ctx context.Context, limit int) ([]models.RegisterSession, error)
	SumCashExpensesSince(ctx context.Context, since time.Time) (decimal.Decimal, error)
}

type cashSummer interface {
	SumCashSince(ctx context.Context, since time.Time) (decimal.Decimal, error)
}

// OpenRegisterRequest opens a drawer shift with a counted float.
type OpenRegisterRequest struct {
	OpeningFloat decimal.Decimal `json:"opening_float"`
	UserID       string          `json:"-"`
}

// CloseRegisterRequest closes the shift against a physical count.
type CloseRegisterRequest struct {
	Counted decimal.Decimal `json:"counted"`
	Notes   string          `json:"notes"`
	UserID  string          `json:"-"`
}

// RegisterService manages cash drawer sessions. At most one session is
// open at a time.
type RegisterService struct {
	repo      registerRepository
	payments  cashSummer
	audits    auditWriter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRegisterService constructs RegisterService.
func NewRegisterService(repo registerRepository, payments cashSummer, audits auditWriter, validate *validator.Validate, logger *zap.Logger) *RegisterService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegisterService{repo: repo, payments: payments, audits: audits, validator: validate, logger: logger}
}

// Open starts a new drawer session.
func (s *RegisterService) Open(ctx context.Context, req OpenRegisterRequest) (*models.RegisterSession, error) {
	if req.OpeningFloat.IsNegative() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "opening float cannot be negative")
	}
	if existing, err := s.repo.FindOpen(ctx); err == nil && existing != nil {
		return nil, appErrors.ErrRegisterOpen
	} else if err != nil && err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check open session")
	}

	session := &models.RegisterSession{
		Status:       models.RegisterStatusOpen,
		OpenedBy:     req.UserID,
		OpenedAt:     time.Now().UTC(),
		OpeningFloat: req.OpeningFloat,
		CashIncome:   decimal.Zero,
		CashExpenses: decimal.Zero,
	}
	if err := s.repo.Create(ctx, session); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open register")
	}

	s.audit(ctx, req.UserID, models.AuditActionRegisterOpen, session.ID)
	s.logger.Info("register opened", zap.String("session_id", session.ID), zap.String("opening_float", req.OpeningFloat.String()))
	return session, nil
}

// Current returns the open session with its live expected-cash figure.
func (s *RegisterService) Current(ctx context.Context) (*models.RegisterSummary, error) {
	session, err := s.repo.FindOpen(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.ErrRegisterClosed
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load open session")
	}
	return s.summarize(ctx, session)
}

// Close reconciles the drawer against a physical count and ends the shift.
func (s *RegisterService) Close(ctx context.Context, req CloseRegisterRequest) (*models.RegisterSession, error) {
	if req.Counted.IsNegative() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "counted amount cannot be negative")
	}
	session, err := s.repo.FindOpen(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.ErrRegisterClosed
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load open session")
	}

	summary, err := s.summarize(ctx, session)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	expected := summary.Expected
	difference := req.Counted.Sub(expected)

	session.Status = models.RegisterStatusClosed
	session.ClosedBy = &req.UserID
	session.ClosedAt = &now
	session.CashIncome = summary.CashIncome
	session.CashExpenses = summary.CashExpenses
	session.Expected = &expected
	session.Counted = &req.Counted
	session.Difference = &difference
	session.Notes = req.Notes

	if err := s.repo.Close(ctx, session); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to close register")
	}

	s.audit(ctx, req.UserID, models.AuditActionRegisterClose, session.ID)
	s.logger.Info("register closed",
		zap.String("session_id", session.ID),
		zap.String("expected", expected.String()),
		zap.String("counted", req.Counted.String()),
		zap.String("difference", difference.String()))
	return session, nil
}

// History returns recent drawer sessions, newest first.
func (s *RegisterService) History(ctx context.Context, limit int) ([]models.RegisterSession, error) {
	if limit <= 0 || limit > 100 {
		limit = 30
	}
	sessions, err := s.repo.List(ctx, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list register sessions")
	}
	return sessions, nil
}

func (s *RegisterService) summarize(ctx context.Context, session *models.RegisterSession) (*models.RegisterSummary, error) {
	income, err := s.payments.SumCashSince(ctx, session.OpenedAt)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sum cash income")
	}
	expenses, err := s.repo.SumCashExpensesSince(ctx, session.OpenedAt)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sum cash expenses")
	}
	return &models.RegisterSummary{
		Session:      *session,
		CashIncome:   income,
		CashExpenses: expenses,
		Expected:     session.OpeningFloat.Add(income).Sub(expenses),
	}, nil
}

func (s *RegisterService) audit(ctx context.Context, userID, action, sessionID string) {
	if s.audits == nil {
		return
	}
	entry := &models.AuditLog{Action: action, Resource: "register_sessions"}
	if userID != "" {
		entry.UserID = &userID
	}
	if sessionID != "" {
		entry.ResourceID = &sessionID
	}
	if err := s.audits.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to write audit log", zap.String("action", action), zap.Error(err))
	}
}
