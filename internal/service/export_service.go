package service

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/campushq/admissions-api/internal/models"
	appErrors "github.com/campushq/admissions-api/pkg/errors"
	"github.com/campushq/admissions-api/pkg/export"
)

type meritListReader interface {
	GetMeritList(ctx context.Context, query models.MeritListQuery) ([]models.MeritListItem, error)
}

// ExportService renders merit lists as downloadable CSV or PDF documents.
type ExportService struct {
	merit  meritListReader
	csv    *export.CSVExporter
	pdf    *export.PDFExporter
	logger *zap.Logger
}

// NewExportService constructs ExportService.
func NewExportService(merit meritListReader, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		merit:  merit,
		csv:    export.NewCSVExporter(),
		pdf:    export.NewPDFExporter(),
		logger: logger,
	}
}

var meritExportHeaders = []string{"Rank", "Applicant", "Email", "Course", "Percentage", "Status", "Year"}

// ExportMeritList renders the merit list in the requested format. Supported
// formats are "csv" and "pdf".
func (s *ExportService) ExportMeritList(ctx context.Context, query models.MeritListQuery, format string) ([]byte, string, error) {
	items, err := s.merit.GetMeritList(ctx, query)
	if err != nil {
		return nil, "", err
	}
	if len(items) == 0 {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "no merit list entries to export")
	}

	dataset := export.Dataset{Headers: meritExportHeaders, Rows: make([][]string, 0, len(items))}
	for _, item := range items {
		dataset.Rows = append(dataset.Rows, []string{
			strconv.Itoa(item.Rank),
			item.ApplicantName,
			item.ApplicantEmail,
			fmt.Sprintf("%s (%s)", item.CourseName, item.CourseCode),
			fmt.Sprintf("%.2f", item.Percentage),
			string(item.Status),
			strconv.Itoa(item.AdmissionYear),
		})
	}

	switch format {
	case "csv":
		payload, err := s.csv.Render(dataset)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return payload, "text/csv", nil
	case "pdf":
		payload, err := s.pdf.Render(dataset, "Merit List")
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return payload, "application/pdf", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
}
