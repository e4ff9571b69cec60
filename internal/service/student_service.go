package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/studio-pos-api/internal/billing"
	"github.com/noah-isme/studio-pos-api/internal/models"
	appErrors "github.com/noah-isme/studio-pos-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	FindDetail(ctx context.Context, id string) (*models.StudentDetail, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Deactivate(ctx context.Context, id string) error
}

// CreateStudentRequest describes student creation.
type CreateStudentRequest struct {
	FullName       string     `json:"full_name" validate:"required"`
	Phone          string     `json:"phone" validate:"required"`
	Email          string     `json:"email" validate:"omitempty,email"`
	CourseID       string     `json:"course_id" validate:"required"`
	EnrollmentDate *time.Time `json:"enrollment_date,omitempty"`
}

// UpdateStudentRequest describes editable student fields.
type UpdateStudentRequest struct {
	FullName string `json:"full_name" validate:"required"`
	Phone    string `json:"phone" validate:"required"`
	Email    string `json:"email" validate:"omitempty,email"`
	CourseID string `json:"course_id" validate:"required"`
}

// StudentProfile is the detail view: record plus classified status and
// cycle progress.
type StudentProfile struct {
	models.StudentDetail
	Status billing.Status         `json:"status"`
	Cycle  *billing.CycleSnapshot `json:"cycle,omitempty"`
}

// StudentService manages student records. Cycle state is owned by the
// payment reconciler; this service never touches it beyond display.
type StudentService struct {
	repo             studentRepository
	courses          courseLookup
	clock            billing.Clock
	autoInactiveDays int
	validator        *validator.Validate
	logger           *zap.Logger
}

// NewStudentService constructs StudentService.
func NewStudentService(repo studentRepository, courses courseLookup, clock billing.Clock, autoInactiveDays int, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, courses: courses, clock: clock, autoInactiveDays: autoInactiveDays, validator: validate, logger: logger}
}

// List returns students with pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, *models.Pagination, error) {
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return students, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a student's profile with classified status.
func (s *StudentService) Get(ctx context.Context, id string) (*StudentProfile, error) {
	detail, err := s.repo.FindDetail(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	course, err := s.courses.FindByID(ctx, detail.CourseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	today := s.clock.Today()
	profile := &StudentProfile{
		StudentDetail: *detail,
		Status:        billing.Classify(detail.State(), course.Terms(), today, s.autoInactiveDays),
	}
	if detail.LastPaymentDate != nil && detail.NextPaymentDate != nil && course.PriceType != billing.PricePerClass {
		cycle := billing.CycleInfo(*detail.LastPaymentDate, *detail.NextPaymentDate, course.Weekdays(), course.ClassesPerCycle, today)
		profile.Cycle = &cycle
	}
	return profile, nil
}

// Create enrolls a new student. They start with no open cycle; the first
// completing payment opens one.
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	course, err := s.courses.FindByID(ctx, req.CourseID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if !course.Active {
		return nil, appErrors.Clone(appErrors.ErrInvariant, "course is inactive")
	}

	enrolled := s.clock.Today()
	if req.EnrollmentDate != nil {
		enrolled = billing.DateOf(*req.EnrollmentDate)
	}
	student := &models.Student{
		FullName:       req.FullName,
		Phone:          req.Phone,
		Email:          req.Email,
		CourseID:       course.ID,
		EnrollmentDate: enrolled,
		PaymentStatus:  billing.StatePending,
		Active:         true,
	}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	s.logger.Info("student enrolled", zap.String("student_id", student.ID), zap.String("course_id", course.ID))
	return student, nil
}

// Update modifies contact details and course assignment. A course change
// keeps the open cycle's dates; the next completing payment re-anchors it
// on the new course's calendar.
func (s *StudentService) Update(ctx context.Context, id string, req UpdateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if req.CourseID != student.CourseID {
		course, err := s.courses.FindByID(ctx, req.CourseID)
		if err != nil {
			if err == sql.ErrNoRows {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
		}
		if !course.Active {
			return nil, appErrors.Clone(appErrors.ErrInvariant, "course is inactive")
		}
	}

	student.FullName = req.FullName
	student.Phone = req.Phone
	student.Email = req.Email
	student.CourseID = req.CourseID
	if err := s.repo.Update(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	return student, nil
}

// Deactivate retires a student from the active roster.
func (s *StudentService) Deactivate(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate student")
	}
	return nil
}
