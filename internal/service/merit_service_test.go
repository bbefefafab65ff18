package service

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushq/admissions-api/internal/models"
	appErrors "github.com/campushq/admissions-api/pkg/errors"
)

type mockMeritApplicationStore struct {
	mu       sync.Mutex
	pending  []models.ApplicationDetail
	outcomes map[string]models.ApplicationStatus
	ranks    map[string]int
	merit    []models.MeritListItem
}

func (m *mockMeritApplicationStore) ListPendingEligible(ctx context.Context, courseID string, year int, minPercentage float64) ([]models.ApplicationDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pending := make([]models.ApplicationDetail, len(m.pending))
	copy(pending, m.pending)
	return pending, nil
}

// UpdateOutcome drains the application from the pending pool, mirroring the
// status filter real queries apply.
func (m *mockMeritApplicationStore) UpdateOutcome(ctx context.Context, id string, rank int, status models.ApplicationStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.outcomes == nil {
		m.outcomes = make(map[string]models.ApplicationStatus)
		m.ranks = make(map[string]int)
	}
	m.outcomes[id] = status
	m.ranks[id] = rank
	remaining := m.pending[:0]
	for _, app := range m.pending {
		if app.ID != id {
			remaining = append(remaining, app)
		}
	}
	m.pending = remaining
	return nil
}

func (m *mockMeritApplicationStore) ListMerit(ctx context.Context, query models.MeritListQuery) ([]models.MeritListItem, error) {
	return m.merit, nil
}

type mockMeritCourseStore struct {
	mu       sync.Mutex
	course   *models.Course
	reserved []int
}

func (m *mockMeritCourseStore) FindByID(ctx context.Context, id string) (*models.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.course == nil || m.course.ID != id {
		return nil, sql.ErrNoRows
	}
	course := *m.course
	return &course, nil
}

func (m *mockMeritCourseStore) ReserveSeats(ctx context.Context, id string, n int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.course.AvailableSeats < n {
		return appErrors.Clone(appErrors.ErrInsufficientCapacity, "insufficient seat capacity")
	}
	m.course.AvailableSeats -= n
	m.reserved = append(m.reserved, n)
	return nil
}

type mockMeritEnrollmentStore struct {
	yearCount   int
	courseCount int
	created     []models.Enrollment
}

func (m *mockMeritEnrollmentStore) CountByYear(ctx context.Context, year int) (int, error) {
	return m.yearCount + len(m.created), nil
}

func (m *mockMeritEnrollmentStore) CountByCourseYear(ctx context.Context, courseID string, year int) (int, error) {
	return m.courseCount + len(m.created), nil
}

func (m *mockMeritEnrollmentStore) Create(ctx context.Context, enrollment *models.Enrollment) error {
	m.created = append(m.created, *enrollment)
	return nil
}

type mockRoleUpdater struct {
	promoted map[string]models.UserRole
}

func (m *mockRoleUpdater) UpdateRole(ctx context.Context, id string, role models.UserRole) error {
	if m.promoted == nil {
		m.promoted = make(map[string]models.UserRole)
	}
	m.promoted[id] = role
	return nil
}

type mockHostelAllocator struct {
	full        bool
	allocations []string
	genders     []models.Gender
}

func (m *mockHostelAllocator) AllocateRoom(ctx context.Context, studentID string, gender models.Gender) (*models.HostelAllocation, error) {
	if m.full {
		return nil, nil
	}
	m.allocations = append(m.allocations, studentID)
	m.genders = append(m.genders, gender)
	return &models.HostelAllocation{
		ID:         fmt.Sprintf("alloc-%d", len(m.allocations)),
		StudentID:  studentID,
		RoomNumber: fmt.Sprintf("BH-%d", len(m.allocations)),
		Status:     models.AllocationStatusAllocated,
	}, nil
}

type mockNotificationSink struct {
	notifications []models.Notification
}

func (m *mockNotificationSink) Create(ctx context.Context, notification *models.Notification) error {
	m.notifications = append(m.notifications, *notification)
	return nil
}

func pendingApplication(id, applicant string, percentage float64, appliedAt time.Time, hostel bool) models.ApplicationDetail {
	return models.ApplicationDetail{
		Application: models.Application{
			ID:             id,
			ApplicantID:    applicant,
			CourseID:       "course-1",
			Percentage:     percentage,
			Gender:         models.GenderFemale,
			HostelRequired: hostel,
			Status:         models.ApplicationStatusPending,
			AppliedAt:      appliedAt,
		},
		ApplicantName:  "Applicant " + applicant,
		ApplicantEmail: applicant + "@example.com",
		CourseName:     "Computer Science",
		CourseCode:     "CS",
	}
}

func newMeritFixture(seats int, pending []models.ApplicationDetail) (*MeritService, *mockMeritApplicationStore, *mockMeritCourseStore, *mockMeritEnrollmentStore, *mockRoleUpdater, *mockHostelAllocator, *mockNotificationSink) {
	applications := &mockMeritApplicationStore{pending: pending}
	courses := &mockMeritCourseStore{course: &models.Course{
		ID:                    "course-1",
		Name:                  "Computer Science",
		Code:                  "CS",
		TotalSeats:            seats,
		AvailableSeats:        seats,
		EligibilityPercentage: 50,
		Active:                true,
	}}
	enrollments := &mockMeritEnrollmentStore{}
	users := &mockRoleUpdater{}
	hostels := &mockHostelAllocator{}
	notifications := &mockNotificationSink{}

	svc := NewMeritService(applications, courses, enrollments, users, hostels, notifications,
		nil, nil, nil, nil, true)
	return svc, applications, courses, enrollments, users, hostels, notifications
}

func TestGenerateMeritListSelectsTopCandidatesWithinSeatBudget(t *testing.T) {
	base := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	pending := []models.ApplicationDetail{
		pendingApplication("app-low", "u-low", 65, base, false),
		pendingApplication("app-top", "u-top", 92, base.Add(time.Hour), true),
		pendingApplication("app-mid", "u-mid", 78, base.Add(2*time.Hour), false),
	}
	svc, applications, courses, enrollments, users, _, notifications := newMeritFixture(2, pending)

	summary, err := svc.GenerateMeritList(context.Background(), GenerateMeritListRequest{CourseID: "course-1", AdmissionYear: 2026})
	require.NoError(t, err)

	assert.Equal(t, 3, summary.TotalApplications)
	assert.Equal(t, 2, summary.Selected)
	assert.Equal(t, 1, summary.Rejected)
	assert.Equal(t, "Computer Science", summary.Course)

	require.Len(t, summary.MeritList, 3)
	assert.Equal(t, "app-top", summary.MeritList[0].ApplicationID)
	assert.Equal(t, "app-mid", summary.MeritList[1].ApplicationID)
	assert.Equal(t, "app-low", summary.MeritList[2].ApplicationID)
	assert.Equal(t, 1, summary.MeritList[0].Rank)
	assert.Equal(t, 3, summary.MeritList[2].Rank)

	assert.Equal(t, models.ApplicationStatusSelected, applications.outcomes["app-top"])
	assert.Equal(t, models.ApplicationStatusSelected, applications.outcomes["app-mid"])
	assert.Equal(t, models.ApplicationStatusRejected, applications.outcomes["app-low"])

	// Only selected candidates are promoted and enrolled.
	assert.Equal(t, models.RoleStudent, users.promoted["u-top"])
	assert.Equal(t, models.RoleStudent, users.promoted["u-mid"])
	assert.NotContains(t, users.promoted, "u-low")
	require.Len(t, enrollments.created, 2)

	// Seats are decremented once by the run total.
	assert.Equal(t, []int{2}, courses.reserved)
	assert.Equal(t, 0, courses.course.AvailableSeats)

	// Every candidate gets an outcome notification.
	require.Len(t, notifications.notifications, 3)
}

func TestGenerateMeritListBreaksTiesByEarlierSubmission(t *testing.T) {
	base := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	pending := []models.ApplicationDetail{
		pendingApplication("app-late", "u-late", 80, base.Add(time.Hour), false),
		pendingApplication("app-early", "u-early", 80, base, false),
	}
	svc, _, _, _, _, _, _ := newMeritFixture(1, pending)

	summary, err := svc.GenerateMeritList(context.Background(), GenerateMeritListRequest{CourseID: "course-1", AdmissionYear: 2026})
	require.NoError(t, err)

	assert.Equal(t, "app-early", summary.MeritList[0].ApplicationID)
	assert.Equal(t, models.ApplicationStatusSelected, summary.MeritList[0].Status)
	assert.Equal(t, "app-late", summary.MeritList[1].ApplicationID)
	assert.Equal(t, models.ApplicationStatusRejected, summary.MeritList[1].Status)
}

func TestGenerateMeritListEmptyPoolMutatesNothing(t *testing.T) {
	svc, applications, courses, enrollments, _, _, notifications := newMeritFixture(5, nil)

	_, err := svc.GenerateMeritList(context.Background(), GenerateMeritListRequest{CourseID: "course-1", AdmissionYear: 2026})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, "NO_ELIGIBLE_APPLICATIONS", appErr.Code)

	assert.Empty(t, applications.outcomes)
	assert.Empty(t, courses.reserved)
	assert.Equal(t, 5, courses.course.AvailableSeats)
	assert.Empty(t, enrollments.created)
	assert.Empty(t, notifications.notifications)
}

func TestGenerateMeritListCourseNotFound(t *testing.T) {
	svc, _, _, _, _, _, _ := newMeritFixture(5, nil)

	_, err := svc.GenerateMeritList(context.Background(), GenerateMeritListRequest{CourseID: "missing", AdmissionYear: 2026})
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", appErrors.FromError(err).Code)
}

func TestGenerateMeritListIssuesSequentialIdentifiers(t *testing.T) {
	base := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	pending := []models.ApplicationDetail{
		pendingApplication("app-1", "u-1", 90, base, false),
		pendingApplication("app-2", "u-2", 85, base, false),
		pendingApplication("app-3", "u-3", 80, base, false),
	}
	svc, _, _, enrollments, _, _, _ := newMeritFixture(3, pending)
	enrollments.yearCount = 12
	enrollments.courseCount = 4

	summary, err := svc.GenerateMeritList(context.Background(), GenerateMeritListRequest{CourseID: "course-1", AdmissionYear: 2026})
	require.NoError(t, err)
	require.Len(t, enrollments.created, 3)

	// Counters continue from the existing enrollment counts. The count
	// helpers grow as enrollments are created, but the sequence is seeded
	// once at run start, so identifiers stay contiguous.
	assert.Equal(t, "202600013", enrollments.created[0].EnrollmentNo)
	assert.Equal(t, "202600014", enrollments.created[1].EnrollmentNo)
	assert.Equal(t, "202600015", enrollments.created[2].EnrollmentNo)
	assert.Equal(t, "2026CS005", enrollments.created[0].RollNo)
	assert.Equal(t, "2026CS006", enrollments.created[1].RollNo)
	assert.Equal(t, "2026CS007", enrollments.created[2].RollNo)

	seen := make(map[string]bool)
	for _, e := range enrollments.created {
		assert.False(t, seen[e.EnrollmentNo])
		seen[e.EnrollmentNo] = true
		assert.Equal(t, 1, e.CurrentSemester)
		assert.Equal(t, models.EnrollmentStatusActive, e.Status)
	}
	assert.Equal(t, summary.MeritList[0].EnrollmentNo, enrollments.created[0].EnrollmentNo)
}

func TestGenerateMeritListHostelAllocation(t *testing.T) {
	base := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	pending := []models.ApplicationDetail{
		pendingApplication("app-hostel", "u-hostel", 95, base, true),
		pendingApplication("app-day", "u-day", 90, base, false),
	}
	svc, _, _, _, _, hostels, _ := newMeritFixture(2, pending)

	_, err := svc.GenerateMeritList(context.Background(), GenerateMeritListRequest{CourseID: "course-1", AdmissionYear: 2026})
	require.NoError(t, err)

	require.Len(t, hostels.allocations, 1)
	assert.Equal(t, "u-hostel", hostels.allocations[0])
	assert.Equal(t, models.GenderFemale, hostels.genders[0])
}

func TestGenerateMeritListHostelFullStillAdmits(t *testing.T) {
	base := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	pending := []models.ApplicationDetail{
		pendingApplication("app-hostel", "u-hostel", 95, base, true),
	}
	svc, applications, _, enrollments, _, hostels, notifications := newMeritFixture(1, pending)
	hostels.full = true

	summary, err := svc.GenerateMeritList(context.Background(), GenerateMeritListRequest{CourseID: "course-1", AdmissionYear: 2026})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Selected)
	assert.Equal(t, models.ApplicationStatusSelected, applications.outcomes["app-hostel"])
	require.Len(t, enrollments.created, 1)
	require.Len(t, notifications.notifications, 1)
	assert.Equal(t, models.NotificationSuccess, notifications.notifications[0].Kind)
}

func TestGenerateMeritListHostelsDisabled(t *testing.T) {
	base := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	pending := []models.ApplicationDetail{
		pendingApplication("app-hostel", "u-hostel", 95, base, true),
	}
	applications := &mockMeritApplicationStore{pending: pending}
	courses := &mockMeritCourseStore{course: &models.Course{
		ID: "course-1", Name: "Computer Science", Code: "CS",
		TotalSeats: 1, AvailableSeats: 1, EligibilityPercentage: 50, Active: true,
	}}
	hostels := &mockHostelAllocator{}
	svc := NewMeritService(applications, courses, &mockMeritEnrollmentStore{}, &mockRoleUpdater{},
		hostels, &mockNotificationSink{}, nil, nil, nil, nil, false)

	_, err := svc.GenerateMeritList(context.Background(), GenerateMeritListRequest{CourseID: "course-1", AdmissionYear: 2026})
	require.NoError(t, err)
	assert.Empty(t, hostels.allocations)
}

func TestGenerateMeritListRerunWithNoPendingApplications(t *testing.T) {
	base := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	pending := []models.ApplicationDetail{
		pendingApplication("app-1", "u-1", 90, base, false),
	}
	svc, applications, courses, _, _, _, _ := newMeritFixture(3, pending)

	_, err := svc.GenerateMeritList(context.Background(), GenerateMeritListRequest{CourseID: "course-1", AdmissionYear: 2026})
	require.NoError(t, err)
	assert.Equal(t, 2, courses.course.AvailableSeats)
	require.Len(t, applications.outcomes, 1)

	// Everything settled in the first run; the pending pool is empty now.
	_, err = svc.GenerateMeritList(context.Background(), GenerateMeritListRequest{CourseID: "course-1", AdmissionYear: 2026})
	require.Error(t, err)
	assert.Equal(t, "NO_ELIGIBLE_APPLICATIONS", appErrors.FromError(err).Code)
	assert.Equal(t, 2, courses.course.AvailableSeats)
}

func TestGenerateMeritListValidatesRequest(t *testing.T) {
	svc, _, _, _, _, _, _ := newMeritFixture(1, nil)

	_, err := svc.GenerateMeritList(context.Background(), GenerateMeritListRequest{})
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_ERROR", appErrors.FromError(err).Code)

	_, err = svc.GenerateMeritList(context.Background(), GenerateMeritListRequest{CourseID: "course-1", AdmissionYear: 1800})
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_ERROR", appErrors.FromError(err).Code)
}

func TestGenerateMeritListConcurrentRunsDoNotOverAdmit(t *testing.T) {
	base := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	pending := []models.ApplicationDetail{
		pendingApplication("app-1", "u-1", 90, base, false),
		pendingApplication("app-2", "u-2", 85, base, false),
	}
	svc, _, courses, _, _, _, _ := newMeritFixture(2, pending)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.GenerateMeritList(context.Background(), GenerateMeritListRequest{CourseID: "course-1", AdmissionYear: 2026})
		}(i)
	}
	wg.Wait()

	// One run settles both candidates, the other sees nothing pending. The
	// per-course lock serialises them so seats never go negative.
	assert.GreaterOrEqual(t, courses.course.AvailableSeats, 0)
	var succeeded int
	for _, err := range errs {
		if err == nil {
			succeeded++
		}
	}
	assert.Equal(t, 1, succeeded)
}

func TestRankApplicationsIsStable(t *testing.T) {
	base := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	input := []models.ApplicationDetail{
		pendingApplication("a", "u-a", 70, base.Add(2*time.Hour), false),
		pendingApplication("b", "u-b", 90, base, false),
		pendingApplication("c", "u-c", 70, base.Add(time.Hour), false),
	}

	first := rankApplications(input)
	second := rankApplications(input)
	assert.Equal(t, first, second)
	assert.Equal(t, "b", first[0].ID)
	assert.Equal(t, "c", first[1].ID)
	assert.Equal(t, "a", first[2].ID)

	// Input slice is left untouched.
	assert.Equal(t, "a", input[0].ID)
}

func TestGetMeritListPassesQueryThrough(t *testing.T) {
	svc, applications, _, _, _, _, _ := newMeritFixture(1, nil)
	applications.merit = []models.MeritListItem{
		{Rank: 1, ApplicationID: "app-1", ApplicantName: "Alice", Status: models.ApplicationStatusSelected},
	}

	items, err := svc.GetMeritList(context.Background(), models.MeritListQuery{CourseID: "course-1", AdmissionYear: 2026})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "app-1", items[0].ApplicationID)
}

func TestMeritCacheKey(t *testing.T) {
	assert.Equal(t, "merit:all:all", meritCacheKey(models.MeritListQuery{}))
	assert.Equal(t, "merit:course-1:2026", meritCacheKey(models.MeritListQuery{CourseID: "course-1", AdmissionYear: 2026}))
	assert.Equal(t, "merit:all:2026", meritCacheKey(models.MeritListQuery{AdmissionYear: 2026}))
}
