package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/studio-pos-api/internal/models"
	appErrors "github.com/noah-isme/studio-pos-api/pkg/errors"
)

type mockRegisterRepo struct {
	open     *models.RegisterSession
	created  *models.RegisterSession
	closed   *models.RegisterSession
	sessions []models.RegisterSession
	expenses decimal.Decimal
}

func (m *mockRegisterRepo) FindOpen(ctx context.Context) (*models.RegisterSession, error) {
	if m.open == nil {
		return nil, sql.ErrNoRows
	}
	return m.open, nil
}

func (m *mockRegisterRepo) FindByID(ctx context.Context, id string) (*models.RegisterSession, error) {
	return nil, sql.ErrNoRows
}

func (m *mockRegisterRepo) Create(ctx context.Context, session *models.RegisterSession) error {
	if session.ID == "" {
		session.ID = "reg-new"
	}
	m.created = session
	m.open = session
	return nil
}

func (m *mockRegisterRepo) Close(ctx context.Context, session *models.RegisterSession) error {
	m.closed = session
	m.open = nil
	return nil
}

func (m *mockRegisterRepo) List(ctx context.Context, limit int) ([]models.RegisterSession, error) {
	return m.sessions, nil
}

func (m *mockRegisterRepo) SumCashExpensesSince(ctx context.Context, since time.Time) (decimal.Decimal, error) {
	return m.expenses, nil
}

type mockCashSummer struct {
	income decimal.Decimal
}

func (m *mockCashSummer) SumCashSince(ctx context.Context, since time.Time) (decimal.Decimal, error) {
	return m.income, nil
}

func TestRegisterOpenAndSingleSessionInvariant(t *testing.T) {
	repo := &mockRegisterRepo{}
	svc := NewRegisterService(repo, &mockCashSummer{}, nil, nil, nil)

	session, err := svc.Open(context.Background(), OpenRegisterRequest{OpeningFloat: money("50"), UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, models.RegisterStatusOpen, session.Status)
	assert.Equal(t, "u1", session.OpenedBy)

	_, err = svc.Open(context.Background(), OpenRegisterRequest{OpeningFloat: money("50"), UserID: "u1"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrRegisterOpen.Code, appErr.Code)
}

func TestRegisterOpenRejectsNegativeFloat(t *testing.T) {
	svc := NewRegisterService(&mockRegisterRepo{}, &mockCashSummer{}, nil, nil, nil)

	_, err := svc.Open(context.Background(), OpenRegisterRequest{OpeningFloat: money("-1")})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestRegisterCurrentComputesExpected(t *testing.T) {
	repo := &mockRegisterRepo{
		open: &models.RegisterSession{
			ID:           "reg-1",
			Status:       models.RegisterStatusOpen,
			OpenedAt:     time.Now().UTC().Add(-2 * time.Hour),
			OpeningFloat: money("50"),
		},
		expenses: money("30"),
	}
	svc := NewRegisterService(repo, &mockCashSummer{income: money("200")}, nil, nil, nil)

	summary, err := svc.Current(context.Background())
	require.NoError(t, err)
	assert.True(t, summary.CashIncome.Equal(money("200")))
	assert.True(t, summary.CashExpenses.Equal(money("30")))
	assert.True(t, summary.Expected.Equal(money("220")))
}

func TestRegisterCloseReconcilesDrawer(t *testing.T) {
	repo := &mockRegisterRepo{
		open: &models.RegisterSession{
			ID:           "reg-1",
			Status:       models.RegisterStatusOpen,
			OpenedAt:     time.Now().UTC().Add(-8 * time.Hour),
			OpeningFloat: money("50"),
		},
		expenses: money("30"),
	}
	svc := NewRegisterService(repo, &mockCashSummer{income: money("200")}, nil, nil, nil)

	session, err := svc.Close(context.Background(), CloseRegisterRequest{Counted: money("215"), Notes: "faltante menor", UserID: "u1"})
	require.NoError(t, err)

	assert.Equal(t, models.RegisterStatusClosed, session.Status)
	require.NotNil(t, session.Expected)
	require.NotNil(t, session.Difference)
	assert.True(t, session.Expected.Equal(money("220")))
	assert.True(t, session.Difference.Equal(money("-5")))
	assert.Equal(t, "faltante menor", session.Notes)
	require.NotNil(t, repo.closed)
}

func TestRegisterCloseWithoutOpenSession(t *testing.T) {
	svc := NewRegisterService(&mockRegisterRepo{}, &mockCashSummer{}, nil, nil, nil)

	_, err := svc.Close(context.Background(), CloseRegisterRequest{Counted: money("100")})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrRegisterClosed.Code, appErr.Code)
}
