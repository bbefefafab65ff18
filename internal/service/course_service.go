package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campushq/admissions-api/internal/models"
	appErrors "github.com/campushq/admissions-api/pkg/errors"
)

type courseRepository interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	Deactivate(ctx context.Context, id string) error
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error)
}

// CreateCourseRequest describes course creation.
type CreateCourseRequest struct {
	Name                  string             `json:"name" validate:"required"`
	Code                  string             `json:"code" validate:"required,alphanum,uppercase"`
	Department            string             `json:"department" validate:"required"`
	ProgramType           models.ProgramType `json:"program_type" validate:"required,oneof=UG PG"`
	DurationYears         int                `json:"duration_years" validate:"required,min=1,max=8"`
	TotalSeats            int                `json:"total_seats" validate:"required,min=1"`
	EligibilityPercentage float64            `json:"eligibility_percentage" validate:"gte=0,lte=100"`
	FeesPerSemester       float64            `json:"fees_per_semester" validate:"gte=0"`
}

// UpdateCourseRequest describes mutable course attributes.
type UpdateCourseRequest struct {
	Name                  string  `json:"name" validate:"required"`
	Department            string  `json:"department" validate:"required"`
	DurationYears         int     `json:"duration_years" validate:"required,min=1,max=8"`
	EligibilityPercentage float64 `json:"eligibility_percentage" validate:"gte=0,lte=100"`
	FeesPerSemester       float64 `json:"fees_per_semester" validate:"gte=0"`
	Active                *bool   `json:"active"`
}

// CourseService orchestrates the course catalog.
type CourseService struct {
	repo      courseRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService constructs CourseService.
func NewCourseService(repo courseRepository, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{repo: repo, validator: validate, logger: logger}
}

// Create registers a new course with a full seat budget.
func (s *CourseService) Create(ctx context.Context, req CreateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	course := &models.Course{
		Name:                  req.Name,
		Code:                  req.Code,
		Department:            req.Department,
		ProgramType:           req.ProgramType,
		DurationYears:         req.DurationYears,
		TotalSeats:            req.TotalSeats,
		AvailableSeats:        req.TotalSeats,
		EligibilityPercentage: req.EligibilityPercentage,
		FeesPerSemester:       req.FeesPerSemester,
		Active:                true,
	}
	if err := s.repo.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}
	return course, nil
}

// Get returns a course by ID.
func (s *CourseService) Get(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

// Update applies admin edits to a course. Seat counters are owned by the
// settlement engine and are not editable here.
func (s *CourseService) Update(ctx context.Context, id string, req UpdateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	course, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	course.Name = req.Name
	course.Department = req.Department
	course.DurationYears = req.DurationYears
	course.EligibilityPercentage = req.EligibilityPercentage
	course.FeesPerSemester = req.FeesPerSemester
	if req.Active != nil {
		course.Active = *req.Active
	}
	if err := s.repo.Update(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}
	return course, nil
}

// Deactivate soft-deletes a course.
func (s *CourseService) Deactivate(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate course")
	}
	return nil
}

// List returns courses with pagination metadata.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, *models.Pagination, error) {
	courses, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return courses, pagination, nil
}
