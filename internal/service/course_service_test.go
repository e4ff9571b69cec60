package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/studio-pos-api/internal/billing"
	"github.com/noah-isme/studio-pos-api/internal/models"
	appErrors "github.com/noah-isme/studio-pos-api/pkg/errors"
)

type mockCourseRepo struct {
	courses map[string]*models.Course
	created *models.Course
	updated *models.Course
}

func newMockCourseRepo() *mockCourseRepo {
	return &mockCourseRepo{courses: map[string]*models.Course{}}
}

func (m *mockCourseRepo) List(_ context.Context, _ models.CourseFilter) ([]models.Course, int, error) {
	out := make([]models.Course, 0, len(m.courses))
	for _, c := range m.courses {
		out = append(out, *c)
	}
	return out, len(out), nil
}

func (m *mockCourseRepo) FindByID(_ context.Context, id string) (*models.Course, error) {
	if c, ok := m.courses[id]; ok {
		copy := *c
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCourseRepo) Create(_ context.Context, course *models.Course) error {
	course.ID = "c-new"
	m.created = course
	stored := *course
	m.courses[course.ID] = &stored
	return nil
}

func (m *mockCourseRepo) Update(_ context.Context, course *models.Course) error {
	m.updated = course
	stored := *course
	m.courses[course.ID] = &stored
	return nil
}

func (m *mockCourseRepo) Deactivate(_ context.Context, id string) error {
	m.courses[id].Active = false
	return nil
}

func monthlyCourseRequest() CourseRequest {
	return CourseRequest{
		Name:            "Salsa Adultos",
		PriceType:       "mes",
		Price:           decimal.NewFromInt(40),
		ClassDays:       []int64{2, 4},
		ClassesPerCycle: 8,
	}
}

func TestCourseCreateMonthly(t *testing.T) {
	repo := newMockCourseRepo()
	svc := NewCourseService(repo, nil, nil)

	course, err := svc.Create(context.Background(), monthlyCourseRequest())
	require.NoError(t, err)
	assert.Equal(t, billing.PriceMonthly, course.PriceType)
	assert.True(t, course.Active)
	assert.EqualValues(t, []int64{2, 4}, []int64(course.ClassDays))
}

func TestCourseCreateValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*CourseRequest)
	}{
		{"zero price", func(r *CourseRequest) { r.Price = decimal.Zero }},
		{"recurring without class days", func(r *CourseRequest) { r.ClassDays = nil }},
		{"recurring without cycle size", func(r *CourseRequest) { r.ClassesPerCycle = 0 }},
		{"unknown price type", func(r *CourseRequest) { r.PriceType = "semanal" }},
		{"installments without count", func(r *CourseRequest) { r.AllowsInstallments = true; r.InstallmentCount = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := newMockCourseRepo()
			svc := NewCourseService(repo, nil, nil)
			req := monthlyCourseRequest()
			tc.mutate(&req)

			_, err := svc.Create(context.Background(), req)
			require.Error(t, err)
			assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
			assert.Nil(t, repo.created)
		})
	}
}

func TestCoursePerClassNeedsNoSchedule(t *testing.T) {
	repo := newMockCourseRepo()
	svc := NewCourseService(repo, nil, nil)

	course, err := svc.Create(context.Background(), CourseRequest{
		Name:      "Clase suelta",
		PriceType: "clase",
		Price:     decimal.NewFromInt(8),
	})
	require.NoError(t, err)
	assert.Equal(t, billing.PricePerClass, course.PriceType)
	assert.Empty(t, course.ClassDays)
}

func TestCourseUpdatePreservesIdentity(t *testing.T) {
	repo := newMockCourseRepo()
	created := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	repo.courses["c1"] = &models.Course{
		ID:        "c1",
		Name:      "Salsa Adultos",
		PriceType: billing.PriceMonthly,
		Price:     decimal.NewFromInt(40),
		Active:    true,
		CreatedAt: created,
	}
	svc := NewCourseService(repo, nil, nil)

	req := monthlyCourseRequest()
	req.Price = decimal.NewFromInt(45)
	course, err := svc.Update(context.Background(), "c1", req)
	require.NoError(t, err)
	assert.Equal(t, "c1", course.ID)
	assert.Equal(t, created, course.CreatedAt)
	assert.True(t, course.Active)
	assert.True(t, course.Price.Equal(decimal.NewFromInt(45)))
}

func TestCourseUpdateUnknownID(t *testing.T) {
	svc := NewCourseService(newMockCourseRepo(), nil, nil)

	_, err := svc.Update(context.Background(), "missing", monthlyCourseRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestCourseDeactivate(t *testing.T) {
	repo := newMockCourseRepo()
	repo.courses["c1"] = &models.Course{ID: "c1", Active: true}
	svc := NewCourseService(repo, nil, nil)

	require.NoError(t, svc.Deactivate(context.Background(), "c1"))
	assert.False(t, repo.courses["c1"].Active)
}
