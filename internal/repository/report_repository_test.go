package repository

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bsorms/bsorms-api/internal/models"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

var reportRowColumns = []string{
	"id", "report_type", "report_name", "status", "submitted_date", "barangay_id",
	"barangay_name", "submitted_by_id", "submitted_by", "file_name", "file_size",
	"comments", "attachments", "updated_at",
}

func addReportRow(rows *sqlmock.Rows, id string) *sqlmock.Rows {
	now := time.Now()
	attachments, _ := json.Marshal(models.AttachmentList{
		{URL: "https://cdn.example/kp.pdf", PublicID: "blob-1", FileName: "2025-03-10_KP_kp.pdf", FileSize: 2048},
	})
	return rows.AddRow(id, "KP", "KP Settlement Summary", "PENDING", now, int64(7),
		"Poblacion", "sec-1", "Maria Santos", "2025-03-10_KP_kp.pdf", int64(2048),
		"", attachments, now)
}

func TestReportList(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	rows := addReportRow(sqlmock.NewRows(reportRowColumns), "r-1")
	mock.ExpectQuery(`SELECT r\.id, .+ FROM reports r`).
		WithArgs("%blotter%", "KP").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM reports r")).
		WithArgs("%blotter%", "KP").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	reports, total, err := repo.List(context.Background(), models.ReportFilter{Search: "blotter", ReportType: "KP"})
	require.NoError(t, err)
	assert.Len(t, reports, 1)
	assert.Equal(t, 1, total)
	require.NotNil(t, reports[0].BarangayName)
	assert.Equal(t, "Poblacion", *reports[0].BarangayName)
	require.Len(t, reports[0].Attachments, 1)
	assert.Equal(t, "blob-1", reports[0].Attachments[0].PublicID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportGetByID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	rows := addReportRow(sqlmock.NewRows(reportRowColumns), "r-1")
	mock.ExpectQuery(`SELECT r\.id, .+ WHERE r\.id = \$1 LIMIT 1`).
		WithArgs("r-1").
		WillReturnRows(rows)

	report, err := repo.GetByID(context.Background(), "r-1")
	require.NoError(t, err)
	assert.Equal(t, "r-1", report.ID)
	assert.Equal(t, models.ReportStatusPending, report.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportCreateAssignsID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	mock.ExpectExec("INSERT INTO reports").WillReturnResult(sqlmock.NewResult(1, 1))

	report := &models.Report{
		ReportType:    "KP",
		ReportName:    "KP Settlement Summary",
		Status:        models.ReportStatusPending,
		BarangayID:    7,
		SubmittedByID: "sec-1",
		Attachments: models.AttachmentList{
			{URL: "https://cdn.example/kp.pdf", PublicID: "blob-1", FileName: "kp.pdf"},
		},
	}
	require.NoError(t, repo.Create(context.Background(), report))
	assert.NotEmpty(t, report.ID)
	assert.False(t, report.SubmittedDate.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportUpdateStatus(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	comments := "resubmit with dates"
	mock.ExpectExec(regexp.QuoteMeta("UPDATE reports SET status = $2, comments = COALESCE($3, comments), updated_at = $4 WHERE id = $1")).
		WithArgs("r-1", "REJECTED", comments, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateStatus(context.Background(), "r-1", models.ReportStatusRejected, &comments))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportDelete(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM reports WHERE id = $1")).
		WithArgs("r-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "r-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportListBySubmitter(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	rows := addReportRow(sqlmock.NewRows(reportRowColumns), "r-1")
	mock.ExpectQuery(`WHERE r\.submitted_by_id = \$1`).
		WithArgs("sec-1").
		WillReturnRows(rows)

	reports, err := repo.ListBySubmitter(context.Background(), "sec-1")
	require.NoError(t, err)
	assert.Len(t, reports, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}
