package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/studio-pos-api/internal/billing"
	"github.com/noah-isme/studio-pos-api/internal/middleware"
	"github.com/noah-isme/studio-pos-api/internal/models"
	"github.com/noah-isme/studio-pos-api/internal/service"
)

type fakeLedger struct {
	payments []models.Payment
	saved    *models.Payment
}

func (f *fakeLedger) FindByID(_ context.Context, id string) (*models.Payment, error) {
	for i := range f.payments {
		if f.payments[i].ID == id {
			p := f.payments[i]
			return &p, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeLedger) ListByStudent(_ context.Context, studentID string, includeVoided bool) ([]models.Payment, error) {
	var out []models.Payment
	for _, p := range f.payments {
		if p.StudentID == studentID && (includeVoided || !p.Voided) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeLedger) SaveReconciliation(_ context.Context, _ *models.Student, payment *models.Payment) error {
	f.saved = payment
	f.payments = append(f.payments, *payment)
	return nil
}

func (f *fakeLedger) VoidAndReplay(_ context.Context, paymentID, _ string, _ *models.Student) error {
	for i := range f.payments {
		if f.payments[i].ID == paymentID {
			f.payments[i].Voided = true
		}
	}
	return nil
}

type fakeStudents struct {
	student *models.Student
}

func (f *fakeStudents) FindByID(_ context.Context, id string) (*models.Student, error) {
	if f.student == nil || f.student.ID != id {
		return nil, sql.ErrNoRows
	}
	copy := *f.student
	return &copy, nil
}

func (f *fakeStudents) Update(_ context.Context, student *models.Student) error {
	f.student = student
	return nil
}

type fakeCourses struct {
	course *models.Course
}

func (f *fakeCourses) FindByID(_ context.Context, id string) (*models.Course, error) {
	if f.course == nil || f.course.ID != id {
		return nil, sql.ErrNoRows
	}
	copy := *f.course
	return &copy, nil
}

func newPaymentTestHandler(t *testing.T, ledger *fakeLedger, students *fakeStudents, courses *fakeCourses) *PaymentHandler {
	t.Helper()
	svc := service.NewPaymentService(
		ledger, students, courses, nil, nil, nil, nil,
		billing.FixedClock{Day: time.Date(2025, 1, 7, 10, 0, 0, 0, time.UTC)},
		"1234", nil, nil,
	)
	return NewPaymentHandler(svc, nil)
}

func performJSON(t *testing.T, h gin.HandlerFunc, method, target string, payload interface{}, params gin.Params) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)

	var body *bytes.Buffer
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewBuffer(raw)
	} else {
		body = bytes.NewBuffer(nil)
	}

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(method, target, body)
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = params
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "user-1", Role: models.RoleCashier})

	h(c)
	return rec
}

func TestPaymentHandlerRegisterRollsCycle(t *testing.T) {
	students := &fakeStudents{student: &models.Student{
		ID:            "s1",
		FullName:      "Maria Lopez",
		CourseID:      "c1",
		PaymentStatus: billing.StatePending,
		Active:        true,
	}}
	courses := &fakeCourses{course: &models.Course{
		ID:              "c1",
		Name:            "Salsa Adultos",
		PriceType:       billing.PriceMonthly,
		Price:           decimal.NewFromInt(40),
		ClassDays:       pq.Int64Array{2, 4},
		ClassesPerCycle: 8,
		Active:          true,
	}}
	ledger := &fakeLedger{}
	handler := newPaymentTestHandler(t, ledger, students, courses)

	rec := performJSON(t, handler.Register, http.MethodPost, "/payments", gin.H{
		"student_id": "s1",
		"amount":     "40",
		"method":     "efectivo",
	}, nil)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.NotNil(t, ledger.saved)
	assert.Equal(t, "user-1", *ledger.saved.RecordedBy)

	var envelope struct {
		Data struct {
			Student models.Student `json:"student"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Data.Student.NextPaymentDate)
	assert.Equal(t, time.Date(2025, 2, 4, 0, 0, 0, 0, time.UTC), *envelope.Data.Student.NextPaymentDate)
	assert.Equal(t, billing.StatePaid, envelope.Data.Student.PaymentStatus)
}

func TestPaymentHandlerRegisterRejectsBadPayload(t *testing.T) {
	handler := newPaymentTestHandler(t, &fakeLedger{}, &fakeStudents{}, &fakeCourses{})

	rec := performJSON(t, handler.Register, http.MethodPost, "/payments", gin.H{
		"student_id": "s1",
		"amount":     "not-a-number",
	}, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPaymentHandlerVoidWrongPIN(t *testing.T) {
	ledger := &fakeLedger{payments: []models.Payment{{ID: "p1", StudentID: "s1"}}}
	students := &fakeStudents{student: &models.Student{ID: "s1", CourseID: "c1", Active: true}}
	courses := &fakeCourses{course: &models.Course{ID: "c1", PriceType: billing.PriceMonthly, Price: decimal.NewFromInt(40), Active: true}}
	handler := newPaymentTestHandler(t, ledger, students, courses)

	rec := performJSON(t, handler.Void, http.MethodPost, "/payments/p1/void", gin.H{
		"reason": "typo",
		"pin":    "9999",
	}, gin.Params{{Key: "id", Value: "p1"}})

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestPaymentHandlerHistoryExcludesVoidedByDefault(t *testing.T) {
	ledger := &fakeLedger{payments: []models.Payment{
		{ID: "p1", StudentID: "s1", Amount: decimal.NewFromInt(40)},
		{ID: "p2", StudentID: "s1", Amount: decimal.NewFromInt(40), Voided: true},
	}}
	students := &fakeStudents{student: &models.Student{ID: "s1", CourseID: "c1", Active: true}}
	handler := newPaymentTestHandler(t, ledger, students, &fakeCourses{})

	rec := performJSON(t, handler.History, http.MethodGet, "/students/s1/payments", nil, gin.Params{{Key: "id", Value: "s1"}})

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Data []models.Payment `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 1)
	assert.Equal(t, "p1", envelope.Data[0].ID)
}
