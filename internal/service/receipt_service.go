package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/studio-pos-api/internal/models"
	appErrors "github.com/noah-isme/studio-pos-api/pkg/errors"
	"github.com/noah-isme/studio-pos-api/pkg/export"
	"github.com/noah-isme/studio-pos-api/pkg/jobs"
)

type receiptRepository interface {
	Create(ctx context.Context, receipt *models.Receipt) error
	FindByID(ctx context.Context, id string) (*models.Receipt, error)
	FindByPayment(ctx context.Context, paymentID string) (*models.Receipt, error)
	MarkReady(ctx context.Context, id, filePath string) error
	MarkFailed(ctx context.Context, id, reason string) error
}

type receiptPaymentReader interface {
	FindByID(ctx context.Context, id string) (*models.Payment, error)
}

type receiptStudentReader interface {
	FindDetail(ctx context.Context, id string) (*models.StudentDetail, error)
}

type receiptUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type receiptStorage interface {
	Save(filename string, data []byte) (string, error)
	Path(filename string) string
}

type receiptSigner interface {
	Generate(resourceID, relPath string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (resourceID, relPath string, expiresAt time.Time, err error)
}

type receiptMetrics interface {
	ReceiptRendered(outcome string)
}

type receiptEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// ReceiptServiceConfig carries the studio letterhead.
type ReceiptServiceConfig struct {
	StudioName    string
	StudioAddress string
}

// ReceiptService issues sequential-folio receipts for payments and
// renders them to PDF off the request path.
type ReceiptService struct {
	repo     receiptRepository
	payments receiptPaymentReader
	students receiptStudentReader
	users    receiptUserReader
	storage  receiptStorage
	signer   receiptSigner
	renderer *export.ReceiptRenderer
	queue    receiptEnqueuer
	metrics  receiptMetrics
	config   ReceiptServiceConfig
	logger   *zap.Logger
}

// NewReceiptService constructs ReceiptService.
func NewReceiptService(repo receiptRepository, payments receiptPaymentReader, students receiptStudentReader, users receiptUserReader, storage receiptStorage, signer receiptSigner, renderer *export.ReceiptRenderer, metrics receiptMetrics, config ReceiptServiceConfig, logger *zap.Logger) *ReceiptService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if renderer == nil {
		renderer = export.NewReceiptRenderer()
	}
	return &ReceiptService{
		repo:     repo,
		payments: payments,
		students: students,
		users:    users,
		storage:  storage,
		signer:   signer,
		renderer: renderer,
		metrics:  metrics,
		config:   config,
		logger:   logger,
	}
}

// AttachQueue wires the rendering queue. Kept separate from the
// constructor because the queue's handler needs the service.
func (s *ReceiptService) AttachQueue(queue receiptEnqueuer) {
	s.queue = queue
}

// Issue allocates the next folio for a payment and queues PDF rendering.
// Issuing twice for the same payment returns the existing receipt.
func (s *ReceiptService) Issue(ctx context.Context, paymentID string) (*models.Receipt, error) {
	if existing, err := s.repo.FindByPayment(ctx, paymentID); err == nil {
		return existing, nil
	} else if err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing receipt")
	}

	payment, err := s.payments.FindByID(ctx, paymentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "payment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment")
	}
	if payment.Voided {
		return nil, appErrors.Clone(appErrors.ErrInvariant, "cannot issue a receipt for a voided payment")
	}

	receipt := &models.Receipt{PaymentID: payment.ID}
	if err := s.repo.Create(ctx, receipt); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create receipt")
	}

	if s.queue != nil {
		if err := s.queue.Enqueue(jobs.Job{ID: receipt.ID, Type: "receipt.render", Payload: receipt.ID}); err != nil {
			s.logger.Warn("failed to enqueue receipt rendering", zap.String("receipt_id", receipt.ID), zap.Error(err))
		}
	}
	return receipt, nil
}

// Render is the queue handler: it builds the PDF for a pending receipt
// and stores it.
func (s *ReceiptService) Render(ctx context.Context, job jobs.Job) error {
	receiptID, ok := job.Payload.(string)
	if !ok {
		return fmt.Errorf("unexpected payload type %T", job.Payload)
	}

	receipt, err := s.repo.FindByID(ctx, receiptID)
	if err != nil {
		return fmt.Errorf("load receipt %s: %w", receiptID, err)
	}
	if receipt.Status == models.ReceiptStatusReady {
		return nil
	}

	data, err := s.receiptData(ctx, receipt)
	if err != nil {
		s.fail(ctx, receipt.ID, err)
		return err
	}

	pdf, err := s.renderer.Render(*data)
	if err != nil {
		s.fail(ctx, receipt.ID, err)
		return fmt.Errorf("render receipt %s: %w", receipt.ID, err)
	}

	filename := fmt.Sprintf("receipt-%06d.pdf", receipt.Number)
	if _, err := s.storage.Save(filename, pdf); err != nil {
		s.fail(ctx, receipt.ID, err)
		return fmt.Errorf("store receipt %s: %w", receipt.ID, err)
	}
	if err := s.repo.MarkReady(ctx, receipt.ID, filename); err != nil {
		return fmt.Errorf("mark receipt ready %s: %w", receipt.ID, err)
	}

	if s.metrics != nil {
		s.metrics.ReceiptRendered("ready")
	}
	s.logger.Info("receipt rendered", zap.String("receipt_id", receipt.ID), zap.Int64("number", receipt.Number))
	return nil
}

// Link returns a signed, expiring download URL for a rendered receipt.
func (s *ReceiptService) Link(ctx context.Context, receiptID string) (*models.ReceiptLink, error) {
	receipt, err := s.repo.FindByID(ctx, receiptID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "receipt not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load receipt")
	}
	if receipt.Status != models.ReceiptStatusReady || receipt.FilePath == nil {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "receipt is not rendered yet")
	}

	token, expiresAt, err := s.signer.Generate(receipt.ID, *receipt.FilePath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign receipt link")
	}
	return &models.ReceiptLink{
		ReceiptID: receipt.ID,
		Number:    receipt.Number,
		URL:       token,
		ExpiresAt: expiresAt,
	}, nil
}

// Resolve validates a signed token and returns the stored file path.
func (s *ReceiptService) Resolve(ctx context.Context, token string) (string, error) {
	receiptID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid download token")
	}
	receipt, err := s.repo.FindByID(ctx, receiptID)
	if err != nil {
		return "", appErrors.Clone(appErrors.ErrNotFound, "receipt not found")
	}
	if receipt.FilePath == nil || *receipt.FilePath != relPath {
		return "", appErrors.Clone(appErrors.ErrUnauthorized, "token does not match receipt")
	}
	return s.storage.Path(relPath), nil
}

func (s *ReceiptService) receiptData(ctx context.Context, receipt *models.Receipt) (*export.ReceiptData, error) {
	payment, err := s.payments.FindByID(ctx, receipt.PaymentID)
	if err != nil {
		return nil, fmt.Errorf("load payment %s: %w", receipt.PaymentID, err)
	}
	student, err := s.students.FindDetail(ctx, payment.StudentID)
	if err != nil {
		return nil, fmt.Errorf("load student %s: %w", payment.StudentID, err)
	}

	data := &export.ReceiptData{
		StudioName:    s.config.StudioName,
		StudioAddress: s.config.StudioAddress,
		Number:        receipt.Number,
		IssuedAt:      receipt.CreatedAt,
		StudentName:   student.FullName,
		CourseName:    student.CourseName,
		Concept:       paymentConcept(payment),
		Amount:        payment.Amount,
		Method:        payment.Method,
		Balance:       student.Balance,
		NextDueDate:   student.NextPaymentDate,
	}
	if payment.RecordedBy != nil && s.users != nil {
		if user, err := s.users.FindByID(ctx, *payment.RecordedBy); err == nil {
			data.CashierName = user.FullName
		}
	}
	return data, nil
}

func (s *ReceiptService) fail(ctx context.Context, receiptID string, cause error) {
	if err := s.repo.MarkFailed(ctx, receiptID, cause.Error()); err != nil {
		s.logger.Warn("failed to mark receipt failed", zap.String("receipt_id", receiptID), zap.Error(err))
	}
	if s.metrics != nil {
		s.metrics.ReceiptRendered("failed")
	}
}

func paymentConcept(payment *models.Payment) string {
	switch payment.Type {
	case models.PaymentTypeInstallment:
		return "Abono"
	case models.PaymentTypeBalance:
		return "Pago de saldo"
	default:
		if payment.Discounted {
			return "Pago con descuento"
		}
		return "Pago de mensualidad o paquete"
	}
}
