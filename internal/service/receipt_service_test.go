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
	"github.com/noah-isme/studio-pos-api/pkg/jobs"
	"github.com/noah-isme/studio-pos-api/pkg/storage"
)

type mockReceiptRepo struct {
	receipts map[string]*models.Receipt
	nextNum  int64
}

func newMockReceiptRepo() *mockReceiptRepo {
	return &mockReceiptRepo{receipts: map[string]*models.Receipt{}}
}

func (m *mockReceiptRepo) Create(_ context.Context, receipt *models.Receipt) error {
	m.nextNum++
	receipt.ID = receipt.PaymentID + "-receipt"
	receipt.Number = m.nextNum
	receipt.Status = models.ReceiptStatusPending
	receipt.CreatedAt = time.Now().UTC()
	stored := *receipt
	m.receipts[receipt.ID] = &stored
	return nil
}

func (m *mockReceiptRepo) FindByID(_ context.Context, id string) (*models.Receipt, error) {
	if r, ok := m.receipts[id]; ok {
		copy := *r
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockReceiptRepo) FindByPayment(_ context.Context, paymentID string) (*models.Receipt, error) {
	for _, r := range m.receipts {
		if r.PaymentID == paymentID {
			copy := *r
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockReceiptRepo) MarkReady(_ context.Context, id, filePath string) error {
	r := m.receipts[id]
	r.Status = models.ReceiptStatusReady
	r.FilePath = &filePath
	now := time.Now().UTC()
	r.RenderedAt = &now
	return nil
}

func (m *mockReceiptRepo) MarkFailed(_ context.Context, id, reason string) error {
	r := m.receipts[id]
	r.Status = models.ReceiptStatusFailed
	r.Error = &reason
	return nil
}

type mockReceiptPayments struct {
	payment *models.Payment
}

func (m *mockReceiptPayments) FindByID(_ context.Context, id string) (*models.Payment, error) {
	if m.payment == nil || m.payment.ID != id {
		return nil, sql.ErrNoRows
	}
	copy := *m.payment
	return &copy, nil
}

type mockReceiptStudents struct {
	detail *models.StudentDetail
}

func (m *mockReceiptStudents) FindDetail(_ context.Context, id string) (*models.StudentDetail, error) {
	if m.detail == nil || m.detail.ID != id {
		return nil, sql.ErrNoRows
	}
	copy := *m.detail
	return &copy, nil
}

type memReceiptStorage struct {
	files map[string][]byte
}

func (m *memReceiptStorage) Save(filename string, data []byte) (string, error) {
	if m.files == nil {
		m.files = map[string][]byte{}
	}
	m.files[filename] = data
	return filename, nil
}

func (m *memReceiptStorage) Path(filename string) string {
	return "/receipts/" + filename
}

type recordingQueue struct {
	jobs []jobs.Job
}

func (q *recordingQueue) Enqueue(job jobs.Job) error {
	q.jobs = append(q.jobs, job)
	return nil
}

func receiptFixture() (*mockReceiptRepo, *mockReceiptPayments, *mockReceiptStudents) {
	repo := newMockReceiptRepo()
	payments := &mockReceiptPayments{payment: &models.Payment{
		ID:          "p1",
		StudentID:   "s1",
		Amount:      decimal.NewFromInt(40),
		PaymentDate: time.Date(2025, 1, 7, 0, 0, 0, 0, time.UTC),
		Method:      "efectivo",
		Type:        models.PaymentTypeFull,
	}}
	students := &mockReceiptStudents{detail: &models.StudentDetail{
		Student:    models.Student{ID: "s1", FullName: "Maria Lopez"},
		CourseName: "Salsa Adultos",
	}}
	return repo, payments, students
}

func newReceiptTestService(repo *mockReceiptRepo, payments *mockReceiptPayments, students *mockReceiptStudents, store *memReceiptStorage) *ReceiptService {
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	return NewReceiptService(repo, payments, students, nil, store, signer, nil, nil, ReceiptServiceConfig{
		StudioName:    "Academia Danza Viva",
		StudioAddress: "Calle 10 # 4-20",
	}, nil)
}

func TestReceiptIssueAllocatesSequentialFolios(t *testing.T) {
	repo, payments, students := receiptFixture()
	svc := newReceiptTestService(repo, payments, students, &memReceiptStorage{})
	queue := &recordingQueue{}
	svc.AttachQueue(queue)

	first, err := svc.Issue(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.Number)
	assert.Equal(t, models.ReceiptStatusPending, first.Status)
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, "receipt.render", queue.jobs[0].Type)

	// A second issue for the same payment must not burn a folio.
	again, err := svc.Issue(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, first.Number, again.Number)
	assert.Len(t, queue.jobs, 1)
}

func TestReceiptIssueRejectsVoidedPayment(t *testing.T) {
	repo, payments, students := receiptFixture()
	payments.payment.Voided = true
	svc := newReceiptTestService(repo, payments, students, &memReceiptStorage{})

	_, err := svc.Issue(context.Background(), "p1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvariant.Code, appErrors.FromError(err).Code)
}

func TestReceiptRenderStoresPDFAndMarksReady(t *testing.T) {
	repo, payments, students := receiptFixture()
	store := &memReceiptStorage{}
	svc := newReceiptTestService(repo, payments, students, store)

	receipt, err := svc.Issue(context.Background(), "p1")
	require.NoError(t, err)

	err = svc.Render(context.Background(), jobs.Job{ID: receipt.ID, Type: "receipt.render", Payload: receipt.ID})
	require.NoError(t, err)

	stored := repo.receipts[receipt.ID]
	assert.Equal(t, models.ReceiptStatusReady, stored.Status)
	require.NotNil(t, stored.FilePath)
	assert.Equal(t, "receipt-000001.pdf", *stored.FilePath)
	assert.NotEmpty(t, store.files["receipt-000001.pdf"])
}

func TestReceiptLinkRequiresRenderedFile(t *testing.T) {
	repo, payments, students := receiptFixture()
	svc := newReceiptTestService(repo, payments, students, &memReceiptStorage{})

	receipt, err := svc.Issue(context.Background(), "p1")
	require.NoError(t, err)

	_, err = svc.Link(context.Background(), receipt.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestReceiptLinkResolveRoundTrip(t *testing.T) {
	repo, payments, students := receiptFixture()
	store := &memReceiptStorage{}
	svc := newReceiptTestService(repo, payments, students, store)

	receipt, err := svc.Issue(context.Background(), "p1")
	require.NoError(t, err)
	require.NoError(t, svc.Render(context.Background(), jobs.Job{Payload: receipt.ID}))

	link, err := svc.Link(context.Background(), receipt.ID)
	require.NoError(t, err)
	assert.Equal(t, receipt.ID, link.ReceiptID)
	assert.NotEmpty(t, link.URL)

	path, err := svc.Resolve(context.Background(), link.URL)
	require.NoError(t, err)
	assert.Equal(t, "/receipts/receipt-000001.pdf", path)
}

func TestReceiptResolveRejectsForgedToken(t *testing.T) {
	repo, payments, students := receiptFixture()
	svc := newReceiptTestService(repo, payments, students, &memReceiptStorage{})

	_, err := svc.Resolve(context.Background(), "not-a-token")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}
