package service

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushq/admissions-api/internal/models"
	appErrors "github.com/campushq/admissions-api/pkg/errors"
)

type mockMeritReader struct {
	items []models.MeritListItem
}

func (m *mockMeritReader) GetMeritList(ctx context.Context, query models.MeritListQuery) ([]models.MeritListItem, error) {
	return m.items, nil
}

func settledItems() []models.MeritListItem {
	return []models.MeritListItem{
		{Rank: 1, ApplicationID: "app-1", ApplicantName: "Alice", ApplicantEmail: "alice@example.com",
			CourseName: "Computer Science", CourseCode: "CS", Percentage: 92.5,
			Status: models.ApplicationStatusSelected, AdmissionYear: 2026},
		{Rank: 2, ApplicationID: "app-2", ApplicantName: "Bob", ApplicantEmail: "bob@example.com",
			CourseName: "Computer Science", CourseCode: "CS", Percentage: 78,
			Status: models.ApplicationStatusRejected, AdmissionYear: 2026},
	}
}

func TestExportMeritListCSV(t *testing.T) {
	svc := NewExportService(&mockMeritReader{items: settledItems()}, nil)

	payload, contentType, err := svc.ExportMeritList(context.Background(), models.MeritListQuery{}, "csv")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", contentType)
	assert.Contains(t, string(payload), "Rank,Applicant,Email,Course,Percentage,Status,Year")
	assert.Contains(t, string(payload), "1,Alice,alice@example.com,Computer Science (CS),92.50,SELECTED,2026")
	assert.Contains(t, string(payload), "2,Bob,bob@example.com,Computer Science (CS),78.00,REJECTED,2026")
}

func TestExportMeritListPDF(t *testing.T) {
	svc := NewExportService(&mockMeritReader{items: settledItems()}, nil)

	payload, contentType, err := svc.ExportMeritList(context.Background(), models.MeritListQuery{}, "pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", contentType)
	assert.True(t, bytes.HasPrefix(payload, []byte("%PDF")))
}

func TestExportMeritListEmpty(t *testing.T) {
	svc := NewExportService(&mockMeritReader{}, nil)

	_, _, err := svc.ExportMeritList(context.Background(), models.MeritListQuery{}, "csv")
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", appErrors.FromError(err).Code)
}

func TestExportMeritListUnsupportedFormat(t *testing.T) {
	svc := NewExportService(&mockMeritReader{items: settledItems()}, nil)

	_, _, err := svc.ExportMeritList(context.Background(), models.MeritListQuery{}, "xlsx")
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_ERROR", appErrors.FromError(err).Code)
}
