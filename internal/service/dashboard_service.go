package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/studio-pos-api/internal/billing"
	"github.com/noah-isme/studio-pos-api/internal/models"
	appErrors "github.com/noah-isme/studio-pos-api/pkg/errors"
)

const boardCacheKey = "dashboard:board"

type boardStudentReader interface {
	ListActive(ctx context.Context) ([]models.StudentDetail, error)
}

type boardCourseReader interface {
	ListActive(ctx context.Context) ([]models.Course, error)
}

type boardCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

type boardMetrics interface {
	RecordCacheOperation(hit bool)
}

// DashboardServiceConfig tunes status board behaviour.
type DashboardServiceConfig struct {
	CacheTTL         time.Duration
	AutoInactiveDays int
}

// DashboardService builds the front-desk status board: every active
// student classified by payment urgency, most pressing first.
type DashboardService struct {
	students boardStudentReader
	courses  boardCourseReader
	cache    boardCache
	metrics  boardMetrics
	clock    billing.Clock
	config   DashboardServiceConfig
	logger   *zap.Logger
}

// NewDashboardService constructs DashboardService.
func NewDashboardService(students boardStudentReader, courses boardCourseReader, cache boardCache, metrics boardMetrics, clock billing.Clock, config DashboardServiceConfig, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.CacheTTL <= 0 {
		config.CacheTTL = time.Minute
	}
	return &DashboardService{
		students: students,
		courses:  courses,
		cache:    cache,
		metrics:  metrics,
		clock:    clock,
		config:   config,
		logger:   logger,
	}
}

// Board returns the status board, served from cache when fresh.
func (s *DashboardService) Board(ctx context.Context) (*models.StatusBoard, error) {
	if s.cache != nil {
		var cached models.StatusBoard
		err := s.cache.Get(ctx, boardCacheKey, &cached)
		if err == nil {
			if s.metrics != nil {
				s.metrics.RecordCacheOperation(true)
			}
			return &cached, nil
		}
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("dashboard cache read failed", zap.Error(err))
		}
		if s.metrics != nil {
			s.metrics.RecordCacheOperation(false)
		}
	}

	board, err := s.build(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, boardCacheKey, board, s.config.CacheTTL); err != nil {
			s.logger.Warn("dashboard cache write failed", zap.Error(err))
		}
	}
	return board, nil
}

func (s *DashboardService) build(ctx context.Context) (*models.StatusBoard, error) {
	courses, err := s.courses.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load courses")
	}
	byID := make(map[string]models.Course, len(courses))
	for _, c := range courses {
		byID[c.ID] = c
	}

	students, err := s.students.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}

	today := s.clock.Today()
	board := &models.StatusBoard{GeneratedAt: time.Now().UTC()}
	board.Students = make([]models.StudentStatusEntry, 0, len(students))

	for _, st := range students {
		course, ok := byID[st.CourseID]
		if !ok {
			s.logger.Warn("student references unknown course",
				zap.String("student_id", st.ID),
				zap.String("course_id", st.CourseID))
			continue
		}

		status := billing.Classify(st.State(), course.Terms(), today, s.config.AutoInactiveDays)
		entry := models.StudentStatusEntry{
			StudentID:       st.ID,
			FullName:        st.FullName,
			Phone:           st.Phone,
			CourseID:        course.ID,
			CourseName:      st.CourseName,
			PriceType:       course.PriceType,
			IsPaused:        st.IsPaused,
			NextPaymentDate: st.NextPaymentDate,
			Status:          status,
		}
		if st.LastPaymentDate != nil && st.NextPaymentDate != nil && course.PriceType != billing.PricePerClass {
			cycle := billing.CycleInfo(*st.LastPaymentDate, *st.NextPaymentDate, course.Weekdays(), course.ClassesPerCycle, today)
			entry.Cycle = &cycle
		}

		board.Students = append(board.Students, entry)
		s.count(&board.Summary, entry)
	}

	sort.SliceStable(board.Students, func(i, j int) bool {
		a, b := board.Students[i], board.Students[j]
		if a.Status.Priority != b.Status.Priority {
			return a.Status.Priority < b.Status.Priority
		}
		if a.Status.DaysUntilDue != b.Status.DaysUntilDue {
			return a.Status.DaysUntilDue < b.Status.DaysUntilDue
		}
		return strings.ToLower(a.FullName) < strings.ToLower(b.FullName)
	})

	return board, nil
}

func (s *DashboardService) count(summary *models.BoardSummary, entry models.StudentStatusEntry) {
	summary.TotalActive++
	if entry.IsPaused {
		summary.Paused++
	}
	switch entry.Status.Code {
	case billing.StatusOverdue, billing.StatusInactive:
		summary.Overdue++
	case billing.StatusDueToday:
		summary.DueToday++
	case billing.StatusUrgent:
		summary.Urgent++
	case billing.StatusUpcoming:
		summary.Upcoming++
	case billing.StatusPartial:
		summary.Partial++
	case billing.StatusPending:
		summary.Pending++
	}
}
