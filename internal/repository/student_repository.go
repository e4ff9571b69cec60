package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/studio-pos-api/internal/models"
)

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

const studentSelect = `SELECT s.id, s.full_name, s.phone, s.email, s.course_id, s.enrollment_date,
        s.last_payment_date, s.next_payment_date, s.amount_paid, s.balance, s.payment_status,
        s.is_paused, s.pause_date, s.active, s.created_at, s.updated_at,
        c.name AS course_name, c.price_type AS course_price_type`

// List returns students matching the provided filters, with course context.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	base := "FROM students s JOIN courses c ON c.id = s.course_id"
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("s.course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("s.payment_status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("s.active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(s.full_name) LIKE $%d OR s.phone LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	sortBy := filter.SortBy
	allowedSorts := map[string]string{
		"full_name":         "s.full_name",
		"next_payment_date": "s.next_payment_date",
		"enrollment_date":   "s.enrollment_date",
		"created_at":        "s.created_at",
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "s.created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("%s %s ORDER BY %s %s LIMIT %d OFFSET %d", studentSelect, base, column, order, size, offset)

	var students []models.StudentDetail
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := "SELECT COUNT(s.id) " + base
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// ListActive returns every active student with course context. Used by the
// status board, which classifies all of them in one pass.
func (r *StudentRepository) ListActive(ctx context.Context) ([]models.StudentDetail, error) {
	query := studentSelect + " FROM students s JOIN courses c ON c.id = s.course_id WHERE s.active = true"
	var students []models.StudentDetail
	if err := r.db.SelectContext(ctx, &students, query); err != nil {
		return nil, fmt.Errorf("list active students: %w", err)
	}
	return students, nil
}

// FindByID fetches a student by ID.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	const query = `SELECT id, full_name, phone, email, course_id, enrollment_date, last_payment_date,
        next_payment_date, amount_paid, balance, payment_status, is_paused, pause_date, active, created_at, updated_at
        FROM students WHERE id = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindDetail fetches a student with course context.
func (r *StudentRepository) FindDetail(ctx context.Context, id string) (*models.StudentDetail, error) {
	query := studentSelect + " FROM students s JOIN courses c ON c.id = s.course_id WHERE s.id = $1"
	var detail models.StudentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Create inserts a new student record.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now
	const query = `INSERT INTO students (id, full_name, phone, email, course_id, enrollment_date, last_payment_date,
        next_payment_date, amount_paid, balance, payment_status, is_paused, pause_date, active, created_at, updated_at)
        VALUES (:id, :full_name, :phone, :email, :course_id, :enrollment_date, :last_payment_date,
        :next_payment_date, :amount_paid, :balance, :payment_status, :is_paused, :pause_date, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Update modifies an existing student, including cycle state.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET full_name = :full_name, phone = :phone, email = :email, course_id = :course_id,
        last_payment_date = :last_payment_date, next_payment_date = :next_payment_date, amount_paid = :amount_paid,
        balance = :balance, payment_status = :payment_status, is_paused = :is_paused, pause_date = :pause_date,
        active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}

// Deactivate marks a student as inactive.
func (r *StudentRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE students SET active = false, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate student: %w", err)
	}
	return nil
}
