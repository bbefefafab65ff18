package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campushq/admissions-api/internal/models"
)

// ApplicationRepository handles persistence of admission applications.
type ApplicationRepository struct {
	db *sqlx.DB
}

// NewApplicationRepository constructs the repository.
func NewApplicationRepository(db *sqlx.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

// ListPendingEligible returns pending applications for a course and admission
// year at or above the eligibility threshold, ordered by percentage descending
// with earlier submissions winning ties. The PENDING filter is a documented
// precondition of the ranking engine: settled applications never re-enter a run.
func (r *ApplicationRepository) ListPendingEligible(ctx context.Context, courseID string, year int, minPercentage float64) ([]models.ApplicationDetail, error) {
	const query = `SELECT a.id, a.applicant_id, a.course_id, a.program_type, a.previous_qualification,
        a.previous_marks, a.percentage, a.gender, a.hostel_required, a.status, a.merit_rank,
        a.admission_year, a.applied_at,
        u.full_name AS applicant_name, u.email AS applicant_email,
        c.name AS course_name, c.code AS course_code
        FROM applications a
        JOIN users u ON u.id = a.applicant_id
        JOIN courses c ON c.id = a.course_id
        WHERE a.course_id = $1 AND a.admission_year = $2 AND a.status = $3 AND a.percentage >= $4
        ORDER BY a.percentage DESC, a.applied_at ASC`
	var applications []models.ApplicationDetail
	if err := r.db.SelectContext(ctx, &applications, query, courseID, year, models.ApplicationStatusPending, minPercentage); err != nil {
		return nil, fmt.Errorf("list eligible applications: %w", err)
	}
	return applications, nil
}

// UpdateOutcome stamps an application with its merit rank and final status.
func (r *ApplicationRepository) UpdateOutcome(ctx context.Context, id string, rank int, status models.ApplicationStatus) error {
	const query = `UPDATE applications SET merit_rank = $2, status = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, rank, status); err != nil {
		return fmt.Errorf("update application outcome: %w", err)
	}
	return nil
}

// ListMerit returns settled applications (selected or rejected, rank assigned)
// ordered by rank ascending.
func (r *ApplicationRepository) ListMerit(ctx context.Context, query models.MeritListQuery) ([]models.MeritListItem, error) {
	sb := strings.Builder{}
	sb.WriteString(`SELECT a.id, a.applicant_id, a.course_id, a.percentage, a.status, a.merit_rank, a.admission_year,
        u.full_name AS applicant_name, u.email AS applicant_email,
        c.name AS course_name, c.code AS course_code
        FROM applications a
        JOIN users u ON u.id = a.applicant_id
        JOIN courses c ON c.id = a.course_id
        WHERE a.status IN ($1, $2) AND a.merit_rank IS NOT NULL`)
	args := []interface{}{models.ApplicationStatusSelected, models.ApplicationStatusRejected}
	if query.CourseID != "" {
		args = append(args, query.CourseID)
		fmt.Fprintf(&sb, " AND a.course_id = $%d", len(args))
	}
	if query.AdmissionYear > 0 {
		args = append(args, query.AdmissionYear)
		fmt.Fprintf(&sb, " AND a.admission_year = $%d", len(args))
	}
	sb.WriteString(" ORDER BY a.merit_rank ASC")

	var items []models.MeritListItem
	if err := r.db.SelectContext(ctx, &items, sb.String(), args...); err != nil {
		return nil, fmt.Errorf("list merit applications: %w", err)
	}
	return items, nil
}

// ExistsOpen checks whether the applicant already has a non-terminal
// application for the course.
func (r *ApplicationRepository) ExistsOpen(ctx context.Context, applicantID, courseID string) (bool, error) {
	const query = `SELECT 1 FROM applications WHERE applicant_id = $1 AND course_id = $2 AND status IN ($3, $4, $5) LIMIT 1`
	var exists int
	err := r.db.GetContext(ctx, &exists, query, applicantID, courseID,
		models.ApplicationStatusPending, models.ApplicationStatusSelected, models.ApplicationStatusEnrolled)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check open application: %w", err)
	}
	return true, nil
}

// Create persists a new application.
func (r *ApplicationRepository) Create(ctx context.Context, application *models.Application) error {
	if application.ID == "" {
		application.ID = uuid.NewString()
	}
	if application.AppliedAt.IsZero() {
		application.AppliedAt = time.Now().UTC()
	}
	if application.Status == "" {
		application.Status = models.ApplicationStatusPending
	}
	if application.AdmissionYear == 0 {
		application.AdmissionYear = time.Now().UTC().Year()
	}
	const query = `INSERT INTO applications (id, applicant_id, course_id, program_type, previous_qualification,
        previous_marks, percentage, gender, hostel_required, status, admission_year, applied_at)
        VALUES (:id, :applicant_id, :course_id, :program_type, :previous_qualification,
        :previous_marks, :percentage, :gender, :hostel_required, :status, :admission_year, :applied_at)`
	if _, err := r.db.NamedExecContext(ctx, query, application); err != nil {
		return fmt.Errorf("create application: %w", err)
	}
	return nil
}

// FindByID returns an application by its ID.
func (r *ApplicationRepository) FindByID(ctx context.Context, id string) (*models.Application, error) {
	const query = `SELECT id, applicant_id, course_id, program_type, previous_qualification, previous_marks,
        percentage, gender, hostel_required, status, merit_rank, admission_year, applied_at
        FROM applications WHERE id = $1`
	var application models.Application
	if err := r.db.GetContext(ctx, &application, query, id); err != nil {
		return nil, err
	}
	return &application, nil
}

// List returns applications filtered by the provided criteria.
func (r *ApplicationRepository) List(ctx context.Context, filter models.ApplicationFilter) ([]models.ApplicationDetail, int, error) {
	base := `FROM applications a
JOIN users u ON u.id = a.applicant_id
JOIN courses c ON c.id = a.course_id`
	var conditions []string
	var args []interface{}

	if filter.ApplicantID != "" {
		conditions = append(conditions, fmt.Sprintf("a.applicant_id = $%d", len(args)+1))
		args = append(args, filter.ApplicantID)
	}
	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("a.course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("a.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.ProgramType != "" {
		conditions = append(conditions, fmt.Sprintf("a.program_type = $%d", len(args)+1))
		args = append(args, filter.ProgramType)
	}
	if filter.AdmissionYear > 0 {
		conditions = append(conditions, fmt.Sprintf("a.admission_year = $%d", len(args)+1))
		args = append(args, filter.AdmissionYear)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
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

	query := fmt.Sprintf(`SELECT a.id, a.applicant_id, a.course_id, a.program_type, a.previous_qualification,
        a.previous_marks, a.percentage, a.gender, a.hostel_required, a.status, a.merit_rank,
        a.admission_year, a.applied_at,
        u.full_name AS applicant_name, u.email AS applicant_email,
        c.name AS course_name, c.code AS course_code
        %s ORDER BY a.applied_at DESC LIMIT %d OFFSET %d`, base+clause, size, offset)

	var applications []models.ApplicationDetail
	if err := r.db.SelectContext(ctx, &applications, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list applications: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count applications: %w", err)
	}
	return applications, total, nil
}
