package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/studio-pos-api/internal/billing"
	"github.com/noah-isme/studio-pos-api/internal/models"
	appErrors "github.com/noah-isme/studio-pos-api/pkg/errors"
)

type courseRepository interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error)
	FindByID(ctx context.Context, id string) (*models.Course, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	Deactivate(ctx context.Context, id string) error
}

// CourseRequest describes course creation and updates.
type CourseRequest struct {
	Name               string          `json:"name" validate:"required"`
	PriceType          string          `json:"price_type" validate:"required,oneof=mes paquete clase programa"`
	Price              decimal.Decimal `json:"price" validate:"required"`
	ClassDays          []int64         `json:"class_days" validate:"omitempty,dive,min=0,max=6"`
	ClassesPerCycle    int             `json:"classes_per_cycle" validate:"omitempty,min=1"`
	AllowsInstallments bool            `json:"allows_installments"`
	InstallmentCount   int             `json:"installment_count" validate:"omitempty,min=2"`
}

// CourseService manages the course catalog that drives billing terms.
type CourseService struct {
	repo      courseRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService constructs CourseService.
func NewCourseService(repo courseRepository, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{repo: repo, validator: validate, logger: logger}
}

// List returns courses with pagination metadata.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, *models.Pagination, error) {
	courses, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return courses, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a course by ID.
func (s *CourseService) Get(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

// Create adds a course to the catalog.
func (s *CourseService) Create(ctx context.Context, req CourseRequest) (*models.Course, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	course := s.fromRequest(req)
	if err := s.repo.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}
	s.logger.Info("course created", zap.String("course_id", course.ID), zap.String("price_type", string(course.PriceType)))
	return course, nil
}

// Update modifies a course. Open cycles keep the dates they were computed
// with; the new terms apply from the next completing payment.
func (s *CourseService) Update(ctx context.Context, id string, req CourseRequest) (*models.Course, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	course := s.fromRequest(req)
	course.ID = existing.ID
	course.Active = existing.Active
	course.CreatedAt = existing.CreatedAt
	if err := s.repo.Update(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}
	return course, nil
}

// Deactivate retires a course from the catalog.
func (s *CourseService) Deactivate(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate course")
	}
	return nil
}

func (s *CourseService) validate(req CourseRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	if !req.Price.IsPositive() {
		return appErrors.Clone(appErrors.ErrValidation, "price must be greater than zero")
	}
	priceType := billing.PriceType(req.PriceType)
	if priceType == billing.PriceMonthly || priceType == billing.PricePackage {
		if req.ClassesPerCycle < 1 {
			return appErrors.Clone(appErrors.ErrValidation, "recurring courses need classes per cycle")
		}
		if len(req.ClassDays) == 0 {
			return appErrors.Clone(appErrors.ErrValidation, "recurring courses need class days")
		}
	}
	if req.AllowsInstallments && req.InstallmentCount < 2 {
		return appErrors.Clone(appErrors.ErrValidation, "installment plans need at least two installments")
	}
	return nil
}

func (s *CourseService) fromRequest(req CourseRequest) *models.Course {
	return &models.Course{
		Name:               req.Name,
		PriceType:          billing.PriceType(req.PriceType),
		Price:              req.Price,
		ClassDays:          pq.Int64Array(req.ClassDays),
		ClassesPerCycle:    req.ClassesPerCycle,
		AllowsInstallments: req.AllowsInstallments,
		InstallmentCount:   req.InstallmentCount,
		Active:             true,
	}
}
