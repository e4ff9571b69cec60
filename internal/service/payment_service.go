package service

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/studio-pos-api/internal/billing"
	"github.com/noah-isme/studio-pos-api/internal/models"
	appErrors "github.com/noah-isme/studio-pos-api/pkg/errors"
)

type paymentLedger interface {
	FindByID(ctx context.Context, id string) (*models.Payment, error)
	ListByStudent(ctx context.Context, studentID string, includeVoided bool) ([]models.Payment, error)
	SaveReconciliation(ctx context.Context, student *models.Student, payment *models.Payment) error
	VoidAndReplay(ctx context.Context, paymentID, reason string, student *models.Student) error
}

type studentStore interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	Update(ctx context.Context, student *models.Student) error
}

// courseLookup resolves billing terms for a course. Injected so the
// reconciler never reads shared mutable course state.
type courseLookup interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type openRegisterReader interface {
	FindOpen(ctx context.Context) (*models.RegisterSession, error)
}

type auditWriter interface {
	CreateAuditLog(ctx context.Context, entry *models.AuditLog) error
}

type cacheInvalidator interface {
	DeleteByPattern(ctx context.Context, pattern string) error
}

type reconcilerMetrics interface {
	PaymentRegistered()
	PaymentVoided()
	CycleRolled()
}

// RegisterPaymentRequest describes a payment registration.
type RegisterPaymentRequest struct {
	StudentID      string          `json:"student_id" validate:"required"`
	Amount         decimal.Decimal `json:"amount" validate:"required"`
	PaymentDate    *time.Time      `json:"payment_date,omitempty"`
	Method         string          `json:"method" validate:"required,oneof=efectivo transferencia tarjeta"`
	Discounted     bool            `json:"discounted"`
	DiscountReason *string         `json:"discount_reason,omitempty"`
	RecordedBy     string          `json:"-"`
}

// VoidPaymentRequest describes a void with its authorization PIN.
type VoidPaymentRequest struct {
	Reason string `json:"reason" validate:"required"`
	PIN    string `json:"pin" validate:"required"`
	UserID string `json:"-"`
}

// PauseResult reports how far a pause pushed the due date.
type PauseResult struct {
	NextPaymentDate time.Time `json:"next_payment_date"`
	DaysAdded       int       `json:"days_added"`
}

// PaymentService is the reconciliation engine: every payment, void, pause
// and resume flows through it, and it is the only writer of a student's
// cycle state.
type PaymentService struct {
	payments  paymentLedger
	students  studentStore
	courses   courseLookup
	registers openRegisterReader
	audits    auditWriter
	cache     cacheInvalidator
	metrics   reconcilerMetrics
	clock     billing.Clock
	voidPIN   string
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPaymentService constructs PaymentService.
func NewPaymentService(payments paymentLedger, students studentStore, courses courseLookup, registers openRegisterReader, audits auditWriter, cache cacheInvalidator, metrics reconcilerMetrics, clock billing.Clock, voidPIN string, validate *validator.Validate, logger *zap.Logger) *PaymentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentService{
		payments:  payments,
		students:  students,
		courses:   courses,
		registers: registers,
		audits:    audits,
		cache:     cache,
		metrics:   metrics,
		clock:     clock,
		voidPIN:   voidPIN,
		validator: validate,
		logger:    logger,
	}
}

// Register applies a payment to a student's account. Completing payments
// roll the billing cycle forward; partial payments only accumulate toward
// the cycle price and never move its dates.
func (s *PaymentService) Register(ctx context.Context, req RegisterPaymentRequest) (*models.Payment, *models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment payload")
	}
	if !req.Amount.IsPositive() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "amount must be greater than zero")
	}

	student, err := s.students.FindByID(ctx, req.StudentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if !student.Active {
		return nil, nil, appErrors.Clone(appErrors.ErrInvariant, "student is inactive")
	}
	course, err := s.courses.FindByID(ctx, student.CourseID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if !course.PriceType.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrInvariant, "course has an unknown price type")
	}

	payDate := s.clock.Today()
	if req.PaymentDate != nil {
		payDate = billing.DateOf(*req.PaymentDate)
	}
	discounted := req.Discounted || req.DiscountReason != nil

	wasInstallment := student.PaymentStatus == billing.StatePartial
	rolled := applyPayment(student, course, req.Amount, payDate, discounted)

	payment := &models.Payment{
		StudentID:      student.ID,
		Amount:         req.Amount,
		PaymentDate:    payDate,
		Method:         req.Method,
		Type:           paymentType(course.PriceType, student.PaymentStatus, wasInstallment),
		Discounted:     discounted,
		DiscountReason: req.DiscountReason,
	}
	if req.RecordedBy != "" {
		payment.RecordedBy = &req.RecordedBy
	}
	if req.Method == models.PaymentMethodCash && s.registers != nil {
		if session, err := s.registers.FindOpen(ctx); err == nil && session != nil {
			payment.RegisterSessionID = &session.ID
		}
	}

	if err := s.payments.SaveReconciliation(ctx, student, payment); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save payment")
	}

	s.audit(ctx, req.RecordedBy, models.AuditActionPaymentRegister, "payments", payment.ID)
	s.invalidateDashboard(ctx)
	if s.metrics != nil {
		s.metrics.PaymentRegistered()
		if rolled {
			s.metrics.CycleRolled()
		}
	}
	s.logger.Info("payment registered",
		zap.String("payment_id", payment.ID),
		zap.String("student_id", student.ID),
		zap.String("amount", req.Amount.String()),
		zap.Bool("cycle_rolled", rolled))
	return payment, student, nil
}

// Void cancels a payment and rebuilds the student's cycle state by
// replaying every surviving payment in chronological order through the
// same state machine Register uses.
func (s *PaymentService) Void(ctx context.Context, paymentID string, req VoidPaymentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid void payload")
	}
	if s.voidPIN != "" && req.PIN != s.voidPIN {
		return nil, appErrors.ErrInvalidPIN
	}

	payment, err := s.payments.FindByID(ctx, paymentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "payment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment")
	}
	if payment.Voided {
		return nil, appErrors.ErrAlreadyVoided
	}

	student, err := s.students.FindByID(ctx, payment.StudentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	course, err := s.courses.FindByID(ctx, student.CourseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	surviving, err := s.payments.ListByStudent(ctx, student.ID, false)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment history")
	}

	student.ResetCycle()
	replay := make([]models.Payment, 0, len(surviving))
	for _, p := range surviving {
		if p.ID != paymentID {
			replay = append(replay, p)
		}
	}
	sort.Slice(replay, func(i, j int) bool {
		if replay[i].PaymentDate.Equal(replay[j].PaymentDate) {
			return replay[i].CreatedAt.Before(replay[j].CreatedAt)
		}
		return replay[i].PaymentDate.Before(replay[j].PaymentDate)
	})
	for _, p := range replay {
		applyPayment(student, course, p.Amount, p.PaymentDate, p.Discounted)
	}

	if err := s.payments.VoidAndReplay(ctx, paymentID, req.Reason, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to void payment")
	}

	s.audit(ctx, req.UserID, models.AuditActionPaymentVoid, "payments", paymentID)
	s.invalidateDashboard(ctx)
	if s.metrics != nil {
		s.metrics.PaymentVoided()
	}
	s.logger.Info("payment voided",
		zap.String("payment_id", paymentID),
		zap.String("student_id", student.ID),
		zap.Int("replayed", len(replay)))
	return student, nil
}

// History returns a student's payment ledger, newest first.
func (s *PaymentService) History(ctx context.Context, studentID string, includeVoided bool) ([]models.Payment, error) {
	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	payments, err := s.payments.ListByStudent(ctx, studentID, includeVoided)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment history")
	}
	return payments, nil
}

// Pause pushes a student's due date past exactly one class occurrence.
func (s *PaymentService) Pause(ctx context.Context, studentID, userID string) (*PauseResult, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	course, err := s.courses.FindByID(ctx, student.CourseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if course.PriceType != billing.PriceMonthly && course.PriceType != billing.PricePackage {
		return nil, appErrors.Clone(appErrors.ErrInvariant, "only recurring courses can be paused")
	}
	if student.IsPaused {
		return nil, appErrors.Clone(appErrors.ErrInvariant, "student is already paused")
	}
	if student.NextPaymentDate == nil {
		return nil, appErrors.Clone(appErrors.ErrInvariant, "student has no open cycle to pause")
	}

	oldNext := billing.DateOf(*student.NextPaymentDate)
	newNext := billing.NextClassDayOnOrAfter(oldNext.AddDate(0, 0, 1), course.Weekdays())
	today := s.clock.Today()

	student.NextPaymentDate = &newNext
	student.IsPaused = true
	student.PauseDate = &today
	if err := s.students.Update(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to pause student")
	}

	s.audit(ctx, userID, models.AuditActionStudentPause, "students", student.ID)
	s.invalidateDashboard(ctx)
	return &PauseResult{NextPaymentDate: newNext, DaysAdded: billing.DaysBetween(oldNext, newNext)}, nil
}

// Unpause clears the pause flag. The extension granted by the pause stays.
func (s *PaymentService) Unpause(ctx context.Context, studentID, userID string) (*models.Student, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if !student.IsPaused {
		return nil, appErrors.Clone(appErrors.ErrInvariant, "student is not paused")
	}

	student.IsPaused = false
	student.PauseDate = nil
	if err := s.students.Update(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to unpause student")
	}

	s.audit(ctx, userID, models.AuditActionStudentUnpause, "students", student.ID)
	s.invalidateDashboard(ctx)
	return student, nil
}

func (s *PaymentService) audit(ctx context.Context, userID, action, resource, resourceID string) {
	if s.audits == nil {
		return
	}
	entry := &models.AuditLog{Action: action, Resource: resource}
	if userID != "" {
		entry.UserID = &userID
	}
	if resourceID != "" {
		entry.ResourceID = &resourceID
	}
	if err := s.audits.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to write audit log", zap.String("action", action), zap.Error(err))
	}
}

func (s *PaymentService) invalidateDashboard(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "dashboard:*"); err != nil {
		s.logger.Warn("failed to invalidate dashboard cache", zap.Error(err))
	}
}

// applyPayment folds one payment into the student's cycle state and
// reports whether the cycle rolled forward. Void replays the surviving
// ledger through this same function, so registration and reconstruction
// can never disagree.
func applyPayment(student *models.Student, course *models.Course, amount decimal.Decimal, payDate time.Time, discounted bool) bool {
	payDate = billing.DateOf(payDate)

	switch course.PriceType {
	case billing.PricePerClass:
		student.LastPaymentDate = &payDate
		student.PaymentStatus = billing.StatePaid
		return false
	case billing.PriceProgram:
		newPaid := student.AmountPaid.Add(amount)
		student.AmountPaid = newPaid
		student.LastPaymentDate = &payDate
		if newPaid.GreaterThanOrEqual(course.Price) {
			student.Balance = decimal.Zero
			student.PaymentStatus = billing.StatePaid
		} else {
			student.Balance = course.Price.Sub(newPaid)
			student.PaymentStatus = billing.StatePartial
		}
		return false
	}

	// A discounted payment closes the cycle at the discounted amount, so
	// it never lands in the partial branch.
	newPaid := student.AmountPaid.Add(amount)
	if !discounted && newPaid.LessThan(course.Price) {
		student.AmountPaid = newPaid
		student.Balance = course.Price.Sub(newPaid)
		student.PaymentStatus = billing.StatePartial
		return false
	}

	days := course.Weekdays()
	start := billing.NextClassDayOnOrAfter(payDate, days)
	if student.NextPaymentDate != nil {
		if next := billing.DateOf(*student.NextPaymentDate); next.After(payDate) {
			start = next
		}
	}

	var next time.Time
	if course.PriceType == billing.PricePackage {
		end := billing.PackageEndDate(start, days, course.ClassesPerCycle)
		next = billing.NextPaymentDateAfterCycle(end, days)
	} else {
		next = billing.NextPaymentDate(start, days, course.ClassesPerCycle)
	}

	student.LastPaymentDate = &start
	student.NextPaymentDate = &next
	student.AmountPaid = decimal.Zero
	student.Balance = decimal.Zero
	student.PaymentStatus = billing.StatePaid
	return true
}

func paymentType(priceType billing.PriceType, status billing.PaymentState, wasInstallment bool) string {
	if priceType == billing.PriceProgram && wasInstallment {
		return models.PaymentTypeBalance
	}
	if status == billing.StatePartial {
		return models.PaymentTypeInstallment
	}
	if wasInstallment {
		return models.PaymentTypeBalance
	}
	return models.PaymentTypeFull
}
