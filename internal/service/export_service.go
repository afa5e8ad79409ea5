package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/bsorms/bsorms-api/internal/models"
	appErrors "github.com/bsorms/bsorms-api/pkg/errors"
	"github.com/bsorms/bsorms-api/pkg/export"
)

// ExportFormat selects the rendered file type.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportFile is a rendered export ready to stream to the client.
type ExportFile struct {
	FileName    string
	ContentType string
	Content     []byte
}

var exportHeaders = []string{
	"Report Name", "Report Type", "Barangay", "Status", "Submitted By", "Submitted Date", "Comments",
}

// ExportService renders report listings as downloadable files.
type ExportService struct {
	repo    reportStore
	audit   auditRecorder
	csv     *export.CSVExporter
	pdf     *export.PDFExporter
	maxRows int
	logger  *zap.Logger
	now     func() time.Time
}

// NewExportService creates an instance of ExportService.
func NewExportService(repo reportStore, audit auditRecorder, maxRows int, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxRows <= 0 {
		maxRows = 1000
	}
	return &ExportService{
		repo:    repo,
		audit:   audit,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		maxRows: maxRows,
		logger:  logger,
		now:     time.Now,
	}
}

// Reports renders the filtered report listing in the requested format and
// records the export in the audit trail.
func (s *ExportService) Reports(ctx context.Context, actor models.Actor, filter models.ReportFilter, format ExportFormat) (*ExportFile, error) {
	if !actor.IsStaff() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only MLGOO staff may export reports")
	}
	if format != ExportFormatCSV && format != ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	filter.Page = 1
	filter.Limit = s.maxRows
	reports, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load reports")
	}
	if total > s.maxRows {
		s.logger.Sugar().Warnw("export truncated", "total", total, "max_rows", s.maxRows)
	}

	data := export.Dataset{Headers: exportHeaders, Rows: make([]map[string]string, 0, len(reports))}
	for _, report := range reports {
		row := map[string]string{
			"Report Name":    report.ReportName,
			"Report Type":    report.ReportType,
			"Status":         string(report.Status),
			"Submitted Date": report.SubmittedDate.Format("2006-01-02"),
			"Comments":       report.Comments,
		}
		if report.BarangayName != nil {
			row["Barangay"] = *report.BarangayName
		}
		if report.SubmittedBy != nil {
			row["Submitted By"] = *report.SubmittedBy
		}
		data.Rows = append(data.Rows, row)
	}

	stamp := s.now().Format("2006-01-02")
	file := &ExportFile{}
	switch format {
	case ExportFormatCSV:
		content, err := s.csv.Render(data)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		file.FileName = "reports_" + stamp + ".csv"
		file.ContentType = "text/csv"
		file.Content = content
	case ExportFormatPDF:
		content, err := s.pdf.Render(data, "Barangay Reports "+stamp)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		file.FileName = "reports_" + stamp + ".pdf"
		file.ContentType = "application/pdf"
		file.Content = content
	}

	if err := s.audit.Create(ctx, &models.LogEntry{
		Action:  models.LogActionExportReports,
		UserID:  &actor.UserID,
		Details: fmt.Sprintf("Exported %s of %d report(s)", string(format), len(reports)),
	}); err != nil {
		s.logger.Sugar().Warnw("failed to record export", "error", err)
	}
	return file, nil
}
