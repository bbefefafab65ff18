package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campushq/admissions-api/internal/models"
	appErrors "github.com/campushq/admissions-api/pkg/errors"
)

type meritApplicationStore interface {
	ListPendingEligible(ctx context.Context, courseID string, year int, minPercentage float64) ([]models.ApplicationDetail, error)
	UpdateOutcome(ctx context.Context, id string, rank int, status models.ApplicationStatus) error
	ListMerit(ctx context.Context, query models.MeritListQuery) ([]models.MeritListItem, error)
}

type meritCourseStore interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	ReserveSeats(ctx context.Context, id string, n int) error
}

type meritEnrollmentStore interface {
	CountByYear(ctx context.Context, year int) (int, error)
	CountByCourseYear(ctx context.Context, courseID string, year int) (int, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
}

type roleUpdater interface {
	UpdateRole(ctx context.Context, id string, role models.UserRole) error
}

type hostelAllocator interface {
	AllocateRoom(ctx context.Context, studentID string, gender models.Gender) (*models.HostelAllocation, error)
}

type notificationSink interface {
	Create(ctx context.Context, notification *models.Notification) error
}

// GenerateMeritListRequest triggers one settlement run for a course.
type GenerateMeritListRequest struct {
	CourseID      string `json:"course_id" validate:"required"`
	AdmissionYear int    `json:"admission_year" validate:"omitempty,min=2000,max=2200"`
}

// MeritService is the admissions settlement engine. One run ranks a course's
// pending eligible applications, decides outcomes against the seat budget and
// provisions enrollment, hostel and notification records for every selected
// candidate.
type MeritService struct {
	applications  meritApplicationStore
	courses       meritCourseStore
	enrollments   meritEnrollmentStore
	users         roleUpdater
	hostels       hostelAllocator
	notifications notificationSink
	cache         *CacheService
	metrics       *MetricsService
	validator     *validator.Validate
	logger        *zap.Logger

	hostelsEnabled bool

	// Per-course run locks. Two concurrent runs for the same course would
	// both read the same available_seats and over-admit; the whole run
	// executes under its course's mutex. Runs for different courses share
	// no state and proceed in parallel.
	locks sync.Map
}

// NewMeritService constructs the settlement engine.
func NewMeritService(
	applications meritApplicationStore,
	courses meritCourseStore,
	enrollments meritEnrollmentStore,
	users roleUpdater,
	hostels hostelAllocator,
	notifications notificationSink,
	cache *CacheService,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	hostelsEnabled bool,
) *MeritService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MeritService{
		applications:   applications,
		courses:        courses,
		enrollments:    enrollments,
		users:          users,
		hostels:        hostels,
		notifications:  notifications,
		cache:          cache,
		metrics:        metrics,
		validator:      validate,
		logger:         logger,
		hostelsEnabled: hostelsEnabled,
	}
}

// rankApplications orders candidates by declared percentage descending,
// breaking ties by earlier submission. The sort is stable so identical inputs
// always produce identical rankings.
func rankApplications(applications []models.ApplicationDetail) []models.ApplicationDetail {
	ranked := make([]models.ApplicationDetail, len(applications))
	copy(ranked, applications)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Percentage != ranked[j].Percentage {
			return ranked[i].Percentage > ranked[j].Percentage
		}
		return ranked[i].AppliedAt.Before(ranked[j].AppliedAt)
	})
	return ranked
}

// admissionSequence issues enrollment and roll numbers for one settlement run.
// Both counters are seeded once at run start and advanced in memory only; a
// fresh count query per candidate could observe the same value twice.
type admissionSequence struct {
	year       int
	global     int
	perCourse  int
	courseCode string
}

func (s *admissionSequence) next() (enrollmentNo, rollNo string) {
	s.global++
	s.perCourse++
	enrollmentNo = fmt.Sprintf("%d%05d", s.year, s.global)
	rollNo = fmt.Sprintf("%d%s%03d", s.year, s.courseCode, s.perCourse)
	return enrollmentNo, rollNo
}

func (s *MeritService) courseLock(courseID string) *sync.Mutex {
	lock, _ := s.locks.LoadOrStore(courseID, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

// GenerateMeritList executes one settlement run for a course and admission
// year. Already-settled applications are excluded by the PENDING filter, which
// is what makes re-running a course safe. Failures mid-loop are fatal for the
// run and leave earlier candidates committed; there is no compensation.
func (s *MeritService) GenerateMeritList(ctx context.Context, req GenerateMeritListRequest) (*models.MeritListSummary, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid merit list payload")
	}
	year := req.AdmissionYear
	if year == 0 {
		year = time.Now().UTC().Year()
	}

	lock := s.courseLock(req.CourseID)
	lock.Lock()
	defer lock.Unlock()

	start := time.Now()

	course, err := s.courses.FindByID(ctx, req.CourseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	applications, err := s.applications.ListPendingEligible(ctx, course.ID, year, course.EligibilityPercentage)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load applications")
	}
	if len(applications) == 0 {
		return nil, appErrors.ErrNoEligibleApplicants
	}

	ranked := rankApplications(applications)
	selectedCount := len(ranked)
	if course.AvailableSeats < selectedCount {
		selectedCount = course.AvailableSeats
	}

	globalCount, err := s.enrollments.CountByYear(ctx, year)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to seed enrollment sequence")
	}
	courseCount, err := s.enrollments.CountByCourseYear(ctx, course.ID, year)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to seed roll sequence")
	}
	sequence := &admissionSequence{year: year, global: globalCount, perCourse: courseCount, courseCode: course.Code}

	meritList := make([]models.MeritListEntry, 0, len(ranked))
	for i, application := range ranked {
		rank := i + 1
		entry, err := s.settleCandidate(ctx, course, application, rank, rank <= selectedCount, sequence)
		if err != nil {
			s.observeSettlement("error", 0, 0, time.Since(start))
			s.logger.Error("settlement run interrupted",
				zap.String("course_id", course.ID),
				zap.Int("admission_year", year),
				zap.Int("rank", rank),
				zap.Int("committed", len(meritList)),
				zap.Error(err))
			return nil, err
		}
		meritList = append(meritList, *entry)
	}

	if selectedCount > 0 {
		if err := s.courses.ReserveSeats(ctx, course.ID, selectedCount); err != nil {
			s.observeSettlement("error", 0, 0, time.Since(start))
			return nil, err
		}
	}

	if s.cache.Enabled() {
		_ = s.cache.Invalidate(ctx, fmt.Sprintf("merit:%s:*", course.ID))
		_ = s.cache.Invalidate(ctx, "merit:all:*")
	}

	rejected := len(ranked) - selectedCount
	s.observeSettlement("success", selectedCount, rejected, time.Since(start))
	s.logger.Info("merit list generated",
		zap.String("course_id", course.ID),
		zap.String("course", course.Name),
		zap.Int("admission_year", year),
		zap.Int("total_applications", len(ranked)),
		zap.Int("selected", selectedCount),
		zap.Int("rejected", rejected))

	return &models.MeritListSummary{
		Message:           "Merit list generated successfully",
		Course:            course.Name,
		AdmissionYear:     year,
		TotalApplications: len(ranked),
		Selected:          selectedCount,
		Rejected:          rejected,
		MeritList:         meritList,
		GeneratedAt:       time.Now().UTC(),
	}, nil
}

// settleCandidate stamps one candidate's outcome and, for selected candidates,
// provisions every downstream record: role promotion, identifiers, enrollment,
// optional hostel room and the outcome notification.
func (s *MeritService) settleCandidate(ctx context.Context, course *models.Course, application models.ApplicationDetail, rank int, selected bool, sequence *admissionSequence) (*models.MeritListEntry, error) {
	status := models.ApplicationStatusRejected
	if selected {
		status = models.ApplicationStatusSelected
	}
	if err := s.applications.UpdateOutcome(ctx, application.ID, rank, status); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stamp application outcome")
	}

	entry := &models.MeritListEntry{
		Rank:          rank,
		ApplicationID: application.ID,
		Student: models.UserInfo{
			ID:       application.ApplicantID,
			Email:    application.ApplicantEmail,
			FullName: application.ApplicantName,
		},
		Percentage: application.Percentage,
		Status:     status,
	}

	if !selected {
		s.notify(ctx, application.ApplicantID, "Application Status",
			fmt.Sprintf("Unfortunately, you were not selected for %s this time.", course.Name),
			models.NotificationInfo)
		return entry, nil
	}

	if err := s.users.UpdateRole(ctx, application.ApplicantID, models.RoleStudent); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to promote applicant")
	}

	enrollmentNo, rollNo := sequence.next()
	enrollment := &models.Enrollment{
		StudentID:       application.ApplicantID,
		CourseID:        course.ID,
		EnrollmentNo:    enrollmentNo,
		RollNo:          rollNo,
		AdmissionYear:   sequence.year,
		CurrentSemester: 1,
		Status:          models.EnrollmentStatusActive,
	}
	if err := s.enrollments.Create(ctx, enrollment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}
	entry.EnrollmentNo = enrollmentNo

	if application.HostelRequired && s.hostelsEnabled && s.hostels != nil {
		allocation, err := s.hostels.AllocateRoom(ctx, application.ApplicantID, application.Gender)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to allocate hostel room")
		}
		if allocation == nil {
			// All hostels full: the candidate stays admitted without housing.
			s.logger.Warn("no hostel capacity for admitted candidate",
				zap.String("student_id", application.ApplicantID),
				zap.String("course_id", course.ID))
		}
	}

	s.notify(ctx, application.ApplicantID, "Congratulations! You are selected",
		fmt.Sprintf("You have been selected for %s. Your enrollment number is %s.", course.Name, enrollmentNo),
		models.NotificationSuccess)
	return entry, nil
}

func (s *MeritService) notify(ctx context.Context, userID, title, message string, kind models.NotificationKind) {
	if s.notifications == nil {
		return
	}
	notification := &models.Notification{
		UserID:  &userID,
		Title:   title,
		Message: message,
		Kind:    kind,
	}
	if err := s.notifications.Create(ctx, notification); err != nil {
		s.logger.Warn("failed to create notification", zap.String("user_id", userID), zap.Error(err))
	}
}

func (s *MeritService) observeSettlement(outcome string, selected, rejected int, duration time.Duration) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveSettlementRun(outcome, selected, rejected, duration)
}

// GetMeritList returns previously settled applications ordered by rank,
// serving from cache when possible.
func (s *MeritService) GetMeritList(ctx context.Context, query models.MeritListQuery) ([]models.MeritListItem, error) {
	key := meritCacheKey(query)
	var cached []models.MeritListItem
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return cached, nil
	}

	items, err := s.applications.ListMerit(ctx, query)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load merit list")
	}

	if s.cache.Enabled() {
		_ = s.cache.Set(ctx, key, items, 0)
	}
	return items, nil
}

func meritCacheKey(query models.MeritListQuery) string {
	course := query.CourseID
	if course == "" {
		course = "all"
	}
	year := "all"
	if query.AdmissionYear > 0 {
		year = fmt.Sprintf("%d", query.AdmissionYear)
	}
	return fmt.Sprintf("merit:%s:%s", course, year)
}
