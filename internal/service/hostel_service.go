package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campushq/admissions-api/internal/models"
	appErrors "github.com/campushq/admissions-api/pkg/errors"
)

type hostelRepository interface {
	Create(ctx context.Context, hostel *models.Hostel) error
	List(ctx context.Context) ([]models.Hostel, error)
	FindAllocationByStudent(ctx context.Context, studentID string) (*models.HostelAllocation, error)
	Vacate(ctx context.Context, allocationID string) error
}

// CreateHostelRequest describes hostel registration.
type CreateHostelRequest struct {
	Name            string              `json:"name" validate:"required"`
	Code            string              `json:"code" validate:"required,alphanum,uppercase"`
	Gender          models.HostelGender `json:"gender" validate:"required,oneof=MALE FEMALE CO_ED"`
	TotalRooms      int                 `json:"total_rooms" validate:"required,min=1"`
	CapacityPerRoom int                 `json:"capacity_per_room" validate:"required,min=1"`
	FeePerSemester  float64             `json:"fee_per_semester" validate:"gte=0"`
}

// HostelService manages the hostel inventory and allocation lookups. Room
// allocation during admission is driven by the settlement engine.
type HostelService struct {
	repo      hostelRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewHostelService constructs HostelService.
func NewHostelService(repo hostelRepository, validate *validator.Validate, logger *zap.Logger) *HostelService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HostelService{repo: repo, validator: validate, logger: logger}
}

// Create registers a hostel with all rooms available.
func (s *HostelService) Create(ctx context.Context, req CreateHostelRequest) (*models.Hostel, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid hostel payload")
	}
	hostel := &models.Hostel{
		Name:            req.Name,
		Code:            req.Code,
		Gender:          req.Gender,
		TotalRooms:      req.TotalRooms,
		AvailableRooms:  req.TotalRooms,
		CapacityPerRoom: req.CapacityPerRoom,
		FeePerSemester:  req.FeePerSemester,
		Active:          true,
	}
	if err := s.repo.Create(ctx, hostel); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create hostel")
	}
	return hostel, nil
}

// List returns all hostels.
func (s *HostelService) List(ctx context.Context) ([]models.Hostel, error) {
	hostels, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list hostels")
	}
	return hostels, nil
}

// MyAllocation returns the student's current room allocation, if any.
func (s *HostelService) MyAllocation(ctx context.Context, studentID string) (*models.HostelAllocation, error) {
	allocation, err := s.repo.FindAllocationByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load allocation")
	}
	if allocation == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no active hostel allocation")
	}
	return allocation, nil
}

// Vacate releases a student's room back to the hostel pool.
func (s *HostelService) Vacate(ctx context.Context, studentID string) error {
	allocation, err := s.repo.FindAllocationByStudent(ctx, studentID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load allocation")
	}
	if allocation == nil {
		return appErrors.Clone(appErrors.ErrNotFound, "no active hostel allocation")
	}
	if err := s.repo.Vacate(ctx, allocation.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to vacate allocation")
	}
	return nil
}
