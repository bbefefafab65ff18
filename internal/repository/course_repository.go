package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campushq/admissions-api/internal/models"
	appErrors "github.com/campushq/admissions-api/pkg/errors"
)

// CourseRepository handles persistence of courses and their seat budgets.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// FindByID returns a course by its ID.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	const query = `SELECT id, name, code, department, program_type, duration_years, total_seats,
        available_seats, eligibility_percentage, fees_per_semester, active, created_at, updated_at
        FROM courses WHERE id = $1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// ReserveSeats decrements the available seat counter by n. The guard in the
// WHERE clause keeps the counter from ever going negative; zero affected rows
// means the reservation lost to the capacity invariant.
func (r *CourseRepository) ReserveSeats(ctx context.Context, id string, n int) error {
	const query = `UPDATE courses SET available_seats = available_seats - $2, updated_at = $3
        WHERE id = $1 AND available_seats >= $2`
	result, err := r.db.ExecContext(ctx, query, id, n, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("reserve seats: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("reserve seats rows affected: %w", err)
	}
	if affected == 0 {
		return appErrors.Clone(appErrors.ErrInsufficientCapacity, fmt.Sprintf("cannot reserve %d seats", n))
	}
	return nil
}

// Create persists a new course.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if course.CreatedAt.IsZero() {
		course.CreatedAt = now
	}
	course.UpdatedAt = now
	const query = `INSERT INTO courses (id, name, code, department, program_type, duration_years,
        total_seats, available_seats, eligibility_percentage, fees_per_semester, active, created_at, updated_at)
        VALUES (:id, :name, :code, :department, :program_type, :duration_years,
        :total_seats, :available_seats, :eligibility_percentage, :fees_per_semester, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// Update persists mutable course attributes.
func (r *CourseRepository) Update(ctx context.Context, course *models.Course) error {
	course.UpdatedAt = time.Now().UTC()
	const query = `UPDATE courses SET name = :name, department = :department, duration_years = :duration_years,
        total_seats = :total_seats, available_seats = :available_seats,
        eligibility_percentage = :eligibility_percentage, fees_per_semester = :fees_per_semester,
        active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("update course: %w", err)
	}
	return nil
}

// Deactivate soft-deletes a course. Courses are never hard-deleted once
// referenced by applications or enrollments.
func (r *CourseRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE courses SET active = false, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate course: %w", err)
	}
	return nil
}

// List returns courses filtered by the provided criteria.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	base := "FROM courses"
	var conditions []string
	var args []interface{}

	if filter.Department != "" {
		conditions = append(conditions, fmt.Sprintf("department = $%d", len(args)+1))
		args = append(args, filter.Department)
	}
	if filter.ProgramType != "" {
		conditions = append(conditions, fmt.Sprintf("program_type = $%d", len(args)+1))
		args = append(args, filter.ProgramType)
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR code ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
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

	query := fmt.Sprintf(`SELECT id, name, code, department, program_type, duration_years, total_seats,
        available_seats, eligibility_percentage, fees_per_semester, active, created_at, updated_at
        %s ORDER BY name ASC LIMIT %d OFFSET %d`, base+clause, size, offset)

	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}
	return courses, total, nil
}
