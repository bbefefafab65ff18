package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campushq/admissions-api/internal/models"
)

// EnrollmentRepository handles persistence of enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// CountByYear returns the number of enrollments in the admission year. Used to
// seed the run-scoped enrollment number sequence once per settlement run.
func (r *EnrollmentRepository) CountByYear(ctx context.Context, year int) (int, error) {
	const query = `SELECT COUNT(*) FROM enrollments WHERE admission_year = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, year); err != nil {
		return 0, fmt.Errorf("count enrollments by year: %w", err)
	}
	return count, nil
}

// CountByCourseYear returns the number of enrollments for a course in the
// admission year. Seeds the run-scoped roll number sequence.
func (r *EnrollmentRepository) CountByCourseYear(ctx context.Context, courseID string, year int) (int, error) {
	const query = `SELECT COUNT(*) FROM enrollments WHERE course_id = $1 AND admission_year = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, courseID, year); err != nil {
		return 0, fmt.Errorf("count enrollments by course and year: %w", err)
	}
	return count, nil
}

// Create persists a new enrollment record.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if enrollment.AdmittedAt.IsZero() {
		enrollment.AdmittedAt = now
	}
	if enrollment.CreatedAt.IsZero() {
		enrollment.CreatedAt = now
	}
	if enrollment.Status == "" {
		enrollment.Status = models.EnrollmentStatusActive
	}
	if enrollment.CurrentSemester == 0 {
		enrollment.CurrentSemester = 1
	}
	const query = `INSERT INTO enrollments (id, student_id, course_id, enrollment_no, roll_no,
        admission_year, current_semester, status, admitted_at, created_at)
        VALUES (:id, :student_id, :course_id, :enrollment_no, :roll_no,
        :admission_year, :current_semester, :status, :admitted_at, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// FindByID returns an enrollment by its ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	const query = `SELECT id, student_id, course_id, enrollment_no, roll_no, admission_year,
        current_semester, status, admitted_at, created_at FROM enrollments WHERE id = $1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// UpdateSemester advances the current semester for an enrollment.
func (r *EnrollmentRepository) UpdateSemester(ctx context.Context, id string, semester int) error {
	const query = `UPDATE enrollments SET current_semester = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, semester); err != nil {
		return fmt.Errorf("update enrollment semester: %w", err)
	}
	return nil
}

// UpdateStatus updates the lifecycle status for an enrollment.
func (r *EnrollmentRepository) UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus) error {
	const query = `UPDATE enrollments SET status = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status); err != nil {
		return fmt.Errorf("update enrollment status: %w", err)
	}
	return nil
}

// List returns enrollments filtered by the provided criteria.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	base := `FROM enrollments e
JOIN users u ON u.id = e.student_id
JOIN courses c ON c.id = e.course_id`
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("e.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("e.course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.AdmissionYear > 0 {
		conditions = append(conditions, fmt.Sprintf("e.admission_year = $%d", len(args)+1))
		args = append(args, filter.AdmissionYear)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("e.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"admitted_at":   "e.admitted_at",
		"enrollment_no": "e.enrollment_no",
		"student_name":  "u.full_name",
	}
	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "admitted_at"
	}
	orderBy := allowedSorts[sortBy]
	if orderBy == "" {
		orderBy = "e.admitted_at"
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

	query := fmt.Sprintf(`SELECT e.id, e.student_id, e.course_id, e.enrollment_no, e.roll_no,
        e.admission_year, e.current_semester, e.status, e.admitted_at, e.created_at,
        u.full_name AS student_name, c.name AS course_name, c.code AS course_code
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base+clause, orderBy, order, size, offset)

	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return enrollments, total, nil
}
