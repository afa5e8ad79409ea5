package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/bsorms/bsorms-api/internal/models"
)

const reportColumns = `r.id, r.report_type, r.report_name, r.status, r.submitted_date, r.barangay_id, b.name AS barangay_name, r.submitted_by_id, u.first_name || ' ' || u.last_name AS submitted_by, r.file_name, r.file_size, r.comments, r.attachments, r.updated_at`

const reportBase = `FROM reports r
LEFT JOIN barangays b ON b.id = r.barangay_id
LEFT JOIN users u ON u.id = r.submitted_by_id`

// ReportRepository persists report submissions.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository constructs the repository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// List returns a page of reports newest-first plus the total count.
// Page fetch and count run as two independent reads.
func (r *ReportRepository) List(ctx context.Context, filter models.ReportFilter) ([]models.Report, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}

	if filter.Search != "" {
		where = append(where, fmt.Sprintf("(r.report_name ILIKE $%d OR r.comments ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}
	if filter.ReportType != "" {
		where = append(where, fmt.Sprintf("r.report_type = $%d", len(args)+1))
		args = append(args, filter.ReportType)
	}
	if filter.Status != nil {
		where = append(where, fmt.Sprintf("r.status = $%d", len(args)+1))
		args = append(args, string(*filter.Status))
	}
	if filter.BarangayID != nil {
		where = append(where, fmt.Sprintf("r.barangay_id = $%d", len(args)+1))
		args = append(args, *filter.BarangayID)
	}
	if filter.Year != nil {
		where = append(where, fmt.Sprintf("EXTRACT(YEAR FROM r.submitted_date) = $%d", len(args)+1))
		args = append(args, *filter.Year)
	}
	whereClause := strings.Join(where, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit < 1 {
		limit = 10
	}
	offset := (page - 1) * limit

	query := fmt.Sprintf("SELECT %s %s WHERE %s ORDER BY r.submitted_date DESC LIMIT %d OFFSET %d",
		reportColumns, reportBase, whereClause, limit, offset)
	var reports []models.Report
	if err := r.db.SelectContext(ctx, &reports, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list reports: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", reportBase, whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count reports: %w", err)
	}
	return reports, total, nil
}

// GetByID returns a report with resolved display fields.
func (r *ReportRepository) GetByID(ctx context.Context, id string) (*models.Report, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE r.id = $1 LIMIT 1", reportColumns, reportBase)
	var report models.Report
	if err := r.db.GetContext(ctx, &report, query, id); err != nil {
		return nil, err
	}
	return &report, nil
}

// Create inserts a new report row.
func (r *ReportRepository) Create(ctx context.Context, report *models.Report) error {
	if report.ID == "" {
		report.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if report.SubmittedDate.IsZero() {
		report.SubmittedDate = now
	}
	report.UpdatedAt = now
	const query = `INSERT INTO reports (id, report_type, report_name, status, submitted_date, barangay_id, submitted_by_id, file_name, file_size, comments, attachments, updated_at)
VALUES (:id, :report_type, :report_name, :status, :submitted_date, :barangay_id, :submitted_by_id, :file_name, :file_size, :comments, :attachments, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, report); err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	return nil
}

// Update persists submitter-editable fields.
func (r *ReportRepository) Update(ctx context.Context, report *models.Report) error {
	report.UpdatedAt = time.Now().UTC()
	const query = `UPDATE reports SET report_name = :report_name, comments = :comments, attachments = :attachments, file_name = :file_name, file_size = :file_size, updated_at = :updated_at
WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, report); err != nil {
		return fmt.Errorf("update report: %w", err)
	}
	return nil
}

// UpdateStatus persists a review decision. Comments replace the stored
// value only when non-nil.
func (r *ReportRepository) UpdateStatus(ctx context.Context, id string, status models.ReportStatus, comments *string) error {
	const query = `UPDATE reports SET status = $2, comments = COALESCE($3, comments), updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, string(status), comments, time.Now().UTC()); err != nil {
		return fmt.Errorf("update report status: %w", err)
	}
	return nil
}

// Delete removes a report row.
func (r *ReportRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM reports WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	return nil
}

// ListBySubmitter returns every report submitted by the user. Used for
// attachment cleanup before an account delete cascades.
func (r *ReportRepository) ListBySubmitter(ctx context.Context, userID string) ([]models.Report, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE r.submitted_by_id = $1 ORDER BY r.submitted_date DESC", reportColumns, reportBase)
	var reports []models.Report
	if err := r.db.SelectContext(ctx, &reports, query, userID); err != nil {
		return nil, fmt.Errorf("list reports by submitter: %w", err)
	}
	return reports, nil
}
