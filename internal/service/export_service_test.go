package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bsorms/bsorms-api/internal/models"
	appErrors "github.com/bsorms/bsorms-api/pkg/errors"
)

func newExportServiceForTest(t *testing.T) (*ExportService, *reportStoreStub, *auditStub) {
	t.Helper()
	store := newReportStoreStub()
	audit := &auditStub{}
	svc := NewExportService(store, audit, 100, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2025, 3, 15, 9, 0, 0, 0, time.UTC) }
	return svc, store, audit
}

func TestExportServiceCSV(t *testing.T) {
	svc, store, audit := newExportServiceForTest(t)
	seedReport(store, models.ReportStatusApproved)

	file, err := svc.Reports(context.Background(), staffActor(), models.ReportFilter{}, ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "reports_2025-03-15.csv", file.FileName)
	assert.Equal(t, "text/csv", file.ContentType)

	content := string(file.Content)
	assert.True(t, strings.HasPrefix(content, "Report Name,"))
	assert.Contains(t, content, "KP Settlement Summary")

	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.LogActionExportReports, audit.entries[0].Action)
}

func TestExportServicePDF(t *testing.T) {
	svc, store, _ := newExportServiceForTest(t)
	seedReport(store, models.ReportStatusApproved)

	file, err := svc.Reports(context.Background(), staffActor(), models.ReportFilter{}, ExportFormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.NotEmpty(t, file.Content)
}

func TestExportServiceStaffOnly(t *testing.T) {
	svc, _, _ := newExportServiceForTest(t)

	_, err := svc.Reports(context.Background(), secretaryActor(7), models.ReportFilter{}, ExportFormatCSV)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestExportServiceUnknownFormat(t *testing.T) {
	svc, _, _ := newExportServiceForTest(t)

	_, err := svc.Reports(context.Background(), staffActor(), models.ReportFilter{}, "xlsx")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
