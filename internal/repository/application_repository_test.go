package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/campushq/admissions-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestApplicationRepositoryListPendingEligible(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	appliedAt := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"id", "applicant_id", "course_id", "program_type", "previous_qualification",
		"previous_marks", "percentage", "gender", "hostel_required", "status", "merit_rank",
		"admission_year", "applied_at", "applicant_name", "applicant_email", "course_name", "course_code",
	}).AddRow("app-1", "user-1", "course-1", "UG", "HSC", 450.0, 92.5, "FEMALE", true,
		models.ApplicationStatusPending, nil, 2026, appliedAt, "Alice", "alice@example.com", "Computer Science", "CS")

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY a.percentage DESC, a.applied_at ASC")).
		WithArgs("course-1", 2026, models.ApplicationStatusPending, 50.0).
		WillReturnRows(rows)

	applications, err := repo.ListPendingEligible(context.Background(), "course-1", 2026, 50.0)
	require.NoError(t, err)
	require.Len(t, applications, 1)
	require.Equal(t, "app-1", applications[0].ID)
	require.Equal(t, "Alice", applications[0].ApplicantName)
	require.Equal(t, "CS", applications[0].CourseCode)
	require.True(t, applications[0].HostelRequired)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryUpdateOutcome(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE applications SET merit_rank = $2, status = $3 WHERE id = $1")).
		WithArgs("app-1", 3, models.ApplicationStatusSelected).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateOutcome(context.Background(), "app-1", 3, models.ApplicationStatusSelected)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryListMeritAppliesFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	rows := sqlmock.NewRows([]string{
		"id", "applicant_id", "course_id", "percentage", "status", "merit_rank", "admission_year",
		"applicant_name", "applicant_email", "course_name", "course_code",
	}).AddRow("app-1", "user-1", "course-1", 92.5, models.ApplicationStatusSelected, 1, 2026,
		"Alice", "alice@example.com", "Computer Science", "CS")

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY a.merit_rank ASC")).
		WithArgs(models.ApplicationStatusSelected, models.ApplicationStatusRejected, "course-1", 2026).
		WillReturnRows(rows)

	items, err := repo.ListMerit(context.Background(), models.MeritListQuery{CourseID: "course-1", AdmissionYear: 2026})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, 1, items[0].Rank)
	require.Equal(t, models.ApplicationStatusSelected, items[0].Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryExistsOpen(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM applications")).
		WithArgs("user-1", "course-1", models.ApplicationStatusPending, models.ApplicationStatusSelected, models.ApplicationStatusEnrolled).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	exists, err := repo.ExistsOpen(context.Background(), "user-1", "course-1")
	require.NoError(t, err)
	require.True(t, exists)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM applications")).
		WithArgs("user-2", "course-1", models.ApplicationStatusPending, models.ApplicationStatusSelected, models.ApplicationStatusEnrolled).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	exists, err = repo.ExistsOpen(context.Background(), "user-2", "course-1")
	require.NoError(t, err)
	require.False(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationRepositoryCreateDefaults(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewApplicationRepository(db)

	mock.ExpectExec("INSERT INTO applications").
		WillReturnResult(sqlmock.NewResult(0, 1))

	application := &models.Application{
		ApplicantID: "user-1",
		CourseID:    "course-1",
		ProgramType: models.ProgramUndergraduate,
		Percentage:  88,
		Gender:      models.GenderMale,
	}
	err := repo.Create(context.Background(), application)
	require.NoError(t, err)
	require.NotEmpty(t, application.ID)
	require.Equal(t, models.ApplicationStatusPending, application.Status)
	require.Equal(t, time.Now().UTC().Year(), application.AdmissionYear)
	require.False(t, application.AppliedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}
