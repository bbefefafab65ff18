package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campushq/admissions-api/internal/models"
	appErrors "github.com/campushq/admissions-api/pkg/errors"
)

type applicationRepository interface {
	Create(ctx context.Context, application *models.Application) error
	FindByID(ctx context.Context, id string) (*models.Application, error)
	ExistsOpen(ctx context.Context, applicantID, courseID string) (bool, error)
	List(ctx context.Context, filter models.ApplicationFilter) ([]models.ApplicationDetail, int, error)
}

type courseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

// SubmitApplicationRequest describes an application submission.
type SubmitApplicationRequest struct {
	CourseID              string             `json:"course_id" validate:"required"`
	ProgramType           models.ProgramType `json:"program_type" validate:"required,oneof=UG PG"`
	PreviousQualification string             `json:"previous_qualification"`
	PreviousMarks         float64            `json:"previous_marks" validate:"gte=0"`
	Percentage            float64            `json:"percentage" validate:"required,gte=0,lte=100"`
	Gender                models.Gender      `json:"gender" validate:"required,oneof=MALE FEMALE OTHER"`
	HostelRequired        bool               `json:"hostel_required"`
}

// ApplicationService orchestrates application submission and listing.
type ApplicationService struct {
	repo      applicationRepository
	courses   courseReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewApplicationService constructs ApplicationService.
func NewApplicationService(repo applicationRepository, courses courseReader, validate *validator.Validate, logger *zap.Logger) *ApplicationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ApplicationService{repo: repo, courses: courses, validator: validate, logger: logger}
}

// Submit registers a new application after eligibility and duplicate checks.
func (s *ApplicationService) Submit(ctx context.Context, applicantID string, req SubmitApplicationRequest) (*models.Application, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid application payload")
	}

	course, err := s.courses.FindByID(ctx, req.CourseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if !course.Active {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "course is not accepting applications")
	}
	if course.AvailableSeats <= 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "no seats available for this course")
	}
	if req.Percentage < course.EligibilityPercentage {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("minimum %.0f%% required for this course", course.EligibilityPercentage))
	}

	exists, err := s.repo.ExistsOpen(ctx, applicantID, req.CourseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate application")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "already applied for this course")
	}

	application := &models.Application{
		ApplicantID:           applicantID,
		CourseID:              req.CourseID,
		ProgramType:           req.ProgramType,
		PreviousQualification: req.PreviousQualification,
		PreviousMarks:         req.PreviousMarks,
		Percentage:            req.Percentage,
		Gender:                req.Gender,
		HostelRequired:        req.HostelRequired,
		Status:                models.ApplicationStatusPending,
	}
	if err := s.repo.Create(ctx, application); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create application")
	}
	return application, nil
}

// ListMine returns the applicant's own applications.
func (s *ApplicationService) ListMine(ctx context.Context, applicantID string) ([]models.ApplicationDetail, error) {
	applications, _, err := s.repo.List(ctx, models.ApplicationFilter{ApplicantID: applicantID, PageSize: 100})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list applications")
	}
	return applications, nil
}

// List returns applications with pagination metadata.
func (s *ApplicationService) List(ctx context.Context, filter models.ApplicationFilter) ([]models.ApplicationDetail, *models.Pagination, error) {
	applications, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list applications")
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
	return applications, pagination, nil
}
