package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/studio-pos-api/internal/models"
)

func newPaymentMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func paymentRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "student_id", "amount", "payment_date", "method", "type", "discounted", "discount_reason", "voided", "voided_reason", "voided_at", "register_session_id", "recorded_by", "created_at"})
}

func TestPaymentRepositoryListByStudent(t *testing.T) {
	db, mock, cleanup := newPaymentMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	rows := paymentRows().
		AddRow("p1", "s1", "100.00", time.Now(), models.PaymentMethodCash, models.PaymentTypeFull, false, nil, false, nil, nil, nil, "u1", time.Now())
	mock.ExpectQuery(`SELECT .+ FROM payments WHERE student_id = \$1 AND voided = false ORDER BY payment_date DESC`).
		WithArgs("s1").
		WillReturnRows(rows)

	payments, err := repo.ListByStudent(context.Background(), "s1", false)
	require.NoError(t, err)
	assert.Len(t, payments, 1)
	assert.True(t, payments[0].Amount.Equal(decimal.RequireFromString("100.00")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepositoryListByStudentIncludesVoided(t *testing.T) {
	db, mock, cleanup := newPaymentMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	reason := "duplicate charge"
	voidedAt := time.Now()
	rows := paymentRows().
		AddRow("p1", "s1", "100.00", time.Now(), models.PaymentMethodCash, models.PaymentTypeFull, false, nil, true, &reason, &voidedAt, nil, "u1", time.Now())
	mock.ExpectQuery(`SELECT .+ FROM payments WHERE student_id = \$1 ORDER BY payment_date DESC`).
		WithArgs("s1").
		WillReturnRows(rows)

	payments, err := repo.ListByStudent(context.Background(), "s1", true)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.True(t, payments[0].Voided)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepositorySaveReconciliation(t *testing.T) {
	db, mock, cleanup := newPaymentMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO payments").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE students SET last_payment_date").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	recordedBy := "u1"
	student := &models.Student{ID: "s1", PaymentStatus: "paid"}
	payment := &models.Payment{StudentID: "s1", Amount: decimal.NewFromInt(100), PaymentDate: time.Now(), Method: models.PaymentMethodCash, Type: models.PaymentTypeFull, RecordedBy: &recordedBy}
	err := repo.SaveReconciliation(context.Background(), student, payment)
	require.NoError(t, err)
	assert.NotEmpty(t, payment.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepositorySaveReconciliationRollsBack(t *testing.T) {
	db, mock, cleanup := newPaymentMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO payments").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE students SET last_payment_date").
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	student := &models.Student{ID: "s1"}
	payment := &models.Payment{StudentID: "s1", Amount: decimal.NewFromInt(100), PaymentDate: time.Now()}
	err := repo.SaveReconciliation(context.Background(), student, payment)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepositoryVoidAndReplay(t *testing.T) {
	db, mock, cleanup := newPaymentMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE payments SET voided = true`).
		WithArgs("p1", "wrong amount", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE students SET last_payment_date").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.VoidAndReplay(context.Background(), "p1", "wrong amount", &models.Student{ID: "s1"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepositoryVoidAlreadyVoided(t *testing.T) {
	db, mock, cleanup := newPaymentMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE payments SET voided = true`).
		WithArgs("p1", "dup", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.VoidAndReplay(context.Background(), "p1", "dup", &models.Student{ID: "s1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already voided")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepositorySumCashSince(t *testing.T) {
	db, mock, cleanup := newPaymentMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	since := time.Date(2025, time.January, 20, 8, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT COALESCE\(SUM\(amount\), 0\) FROM payments`).
		WithArgs(models.PaymentMethodCash, since).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow("350.50"))

	total, err := repo.SumCashSince(context.Background(), since)
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.RequireFromString("350.50")))
	assert.NoError(t, mock.ExpectationsWereMet())
}
