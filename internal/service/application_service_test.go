package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushq/admissions-api/internal/models"
	appErrors "github.com/campushq/admissions-api/pkg/errors"
)

type mockApplicationRepo struct {
	created *models.Application
	open    map[string]bool
	details []models.ApplicationDetail
}

func (m *mockApplicationRepo) Create(ctx context.Context, application *models.Application) error {
	application.ID = "new-app"
	m.created = application
	return nil
}

func (m *mockApplicationRepo) FindByID(ctx context.Context, id string) (*models.Application, error) {
	return nil, sql.ErrNoRows
}

func (m *mockApplicationRepo) ExistsOpen(ctx context.Context, applicantID, courseID string) (bool, error) {
	return m.open[applicantID+courseID], nil
}

func (m *mockApplicationRepo) List(ctx context.Context, filter models.ApplicationFilter) ([]models.ApplicationDetail, int, error) {
	return m.details, len(m.details), nil
}

type mockCourseReader struct {
	courses map[string]*models.Course
}

func (m *mockCourseReader) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if course, ok := m.courses[id]; ok {
		return course, nil
	}
	return nil, sql.ErrNoRows
}

func validSubmitRequest() SubmitApplicationRequest {
	return SubmitApplicationRequest{
		CourseID:       "course-1",
		ProgramType:    models.ProgramUndergraduate,
		Percentage:     88,
		Gender:         models.GenderFemale,
		HostelRequired: true,
	}
}

func newApplicationFixture(course *models.Course) (*ApplicationService, *mockApplicationRepo) {
	repo := &mockApplicationRepo{open: map[string]bool{}}
	courses := &mockCourseReader{courses: map[string]*models.Course{}}
	if course != nil {
		courses.courses[course.ID] = course
	}
	return NewApplicationService(repo, courses, nil, nil), repo
}

func openCourse() *models.Course {
	return &models.Course{
		ID:                    "course-1",
		Name:                  "Computer Science",
		Code:                  "CS",
		TotalSeats:            60,
		AvailableSeats:        60,
		EligibilityPercentage: 60,
		Active:                true,
	}
}

func TestSubmitApplication(t *testing.T) {
	svc, repo := newApplicationFixture(openCourse())

	application, err := svc.Submit(context.Background(), "user-1", validSubmitRequest())
	require.NoError(t, err)
	assert.Equal(t, "user-1", application.ApplicantID)
	assert.Equal(t, models.ApplicationStatusPending, application.Status)
	assert.True(t, application.HostelRequired)
	require.NotNil(t, repo.created)
}

func TestSubmitApplicationCourseNotFound(t *testing.T) {
	svc, _ := newApplicationFixture(nil)

	_, err := svc.Submit(context.Background(), "user-1", validSubmitRequest())
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", appErrors.FromError(err).Code)
}

func TestSubmitApplicationInactiveCourse(t *testing.T) {
	course := openCourse()
	course.Active = false
	svc, _ := newApplicationFixture(course)

	_, err := svc.Submit(context.Background(), "user-1", validSubmitRequest())
	require.Error(t, err)
	assert.Equal(t, "PRECONDITION_FAILED", appErrors.FromError(err).Code)
}

func TestSubmitApplicationNoSeats(t *testing.T) {
	course := openCourse()
	course.AvailableSeats = 0
	svc, _ := newApplicationFixture(course)

	_, err := svc.Submit(context.Background(), "user-1", validSubmitRequest())
	require.Error(t, err)
	assert.Equal(t, "PRECONDITION_FAILED", appErrors.FromError(err).Code)
}

func TestSubmitApplicationBelowThreshold(t *testing.T) {
	course := openCourse()
	course.EligibilityPercentage = 90
	svc, _ := newApplicationFixture(course)

	_, err := svc.Submit(context.Background(), "user-1", validSubmitRequest())
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
	assert.Contains(t, appErr.Message, "minimum 90%")
}

func TestSubmitApplicationDuplicate(t *testing.T) {
	svc, repo := newApplicationFixture(openCourse())
	repo.open["user-1course-1"] = true

	_, err := svc.Submit(context.Background(), "user-1", validSubmitRequest())
	require.Error(t, err)
	assert.Equal(t, "CONFLICT", appErrors.FromError(err).Code)
}

func TestSubmitApplicationInvalidPayload(t *testing.T) {
	svc, _ := newApplicationFixture(openCourse())

	req := validSubmitRequest()
	req.Percentage = 120
	_, err := svc.Submit(context.Background(), "user-1", req)
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_ERROR", appErrors.FromError(err).Code)
}

func TestListApplicationsPagination(t *testing.T) {
	svc, repo := newApplicationFixture(openCourse())
	repo.details = []models.ApplicationDetail{
		{Application: models.Application{ID: "app-1"}},
		{Application: models.Application{ID: "app-2"}},
	}

	applications, pagination, err := svc.List(context.Background(), models.ApplicationFilter{})
	require.NoError(t, err)
	assert.Len(t, applications, 2)
	require.NotNil(t, pagination)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 20, pagination.PageSize)
	assert.Equal(t, 2, pagination.TotalCount)
}
