package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/bsorms/bsorms-api/internal/models"
	appErrors "github.com/bsorms/bsorms-api/pkg/errors"
	"github.com/bsorms/bsorms-api/pkg/media"
)

type reportStore interface {
	List(ctx context.Context, filter models.ReportFilter) ([]models.Report, int, error)
	GetByID(ctx context.Context, id string) (*models.Report, error)
	Create(ctx context.Context, report *models.Report) error
	Update(ctx context.Context, report *models.Report) error
	UpdateStatus(ctx context.Context, id string, status models.ReportStatus, comments *string) error
	Delete(ctx context.Context, id string) error
}

type reportTypeCatalog interface {
	ListReportTypes(ctx context.Context) ([]models.ReportType, error)
}

// notificationDispatch is the narrow write surface other workflows use to
// fan out notifications.
type notificationDispatch interface {
	Create(ctx context.Context, notification *models.Notification) error
}

// auditRecorder is the narrow write surface for appending audit entries.
type auditRecorder interface {
	Create(ctx context.Context, entry *models.LogEntry) error
}

// attachmentRemover deletes blobs from the external media store.
type attachmentRemover interface {
	DeleteMany(ctx context.Context, publicIDs []string) []media.DeleteResult
}

// AttachmentInput is a client-supplied reference to an already-uploaded blob.
type AttachmentInput struct {
	URL         string `json:"url"`
	PublicID    string `json:"public_id"`
	FileName    string `json:"file_name"`
	FileSize    int64  `json:"file_size"`
	ContentType string `json:"content_type"`
}

// CreateReportRequest is the payload for submitting a report.
type CreateReportRequest struct {
	ReportType  string            `json:"report_type" validate:"required"`
	ReportName  string            `json:"report_name" validate:"required"`
	Comments    string            `json:"comments" validate:"max=500"`
	Attachments []AttachmentInput `json:"attachments"`
}

// UpdateReportRequest is the payload for editing a pending report.
// A nil Attachments slice keeps the stored list; a non-nil slice replaces it.
type UpdateReportRequest struct {
	ReportName  *string           `json:"report_name"`
	Comments    *string           `json:"comments"`
	Attachments []AttachmentInput `json:"attachments"`
}

// UpdateReportStatusRequest is the staff review decision payload.
type UpdateReportStatusRequest struct {
	Status   string  `json:"status" validate:"required"`
	Comments *string `json:"comments"`
}

// ReportService is the report workflow engine: it creates, lists, mutates,
// and transitions report submissions and emits the notification and audit
// side effects of each transition.
type ReportService struct {
	repo          reportStore
	taxonomy      reportTypeCatalog
	notifications notificationDispatch
	audit         auditRecorder
	attachments   attachmentRemover
	validator     *validator.Validate
	logger        *zap.Logger
	metrics       *MetricsService
	now           func() time.Time
}

// NewReportService constructs the report service.
func NewReportService(repo reportStore, taxonomy reportTypeCatalog, notifications notificationDispatch, audit auditRecorder, attachments attachmentRemover, validate *validator.Validate, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ReportService{
		repo:          repo,
		taxonomy:      taxonomy,
		notifications: notifications,
		audit:         audit,
		attachments:   attachments,
		validator:     validate,
		logger:        logger,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// WithMetrics attaches workflow counters. Safe to skip in tests.
func (s *ReportService) WithMetrics(m *MetricsService) *ReportService {
	s.metrics = m
	return s
}

// List returns a page of reports. Secretary callers are forcibly scoped to
// their own barangay regardless of the requested filter.
func (s *ReportService) List(ctx context.Context, actor models.Actor, filter models.ReportFilter) ([]models.Report, *models.Pagination, error) {
	if actor.IsSecretary() {
		if actor.BarangayID == nil {
			return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "secretary account has no barangay assignment")
		}
		filter.BarangayID = actor.BarangayID
	}
	reports, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reports")
	}
	return reports, models.NewPagination(filter.Page, filter.Limit, total), nil
}

// ListByBarangay lists reports pre-scoped to one barangay. Secretaries may
// only request their own.
func (s *ReportService) ListByBarangay(ctx context.Context, actor models.Actor, barangayID int64, filter models.ReportFilter) ([]models.Report, *models.Pagination, error) {
	if actor.IsSecretary() && (actor.BarangayID == nil || *actor.BarangayID != barangayID) {
		return nil, nil, appErrors.ErrForbidden
	}
	filter.BarangayID = &barangayID
	reports, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reports")
	}
	return reports, models.NewPagination(filter.Page, filter.Limit, total), nil
}

// Get returns one report, enforcing barangay scoping for secretaries.
func (s *ReportService) Get(ctx context.Context, actor models.Actor, id string) (*models.Report, error) {
	report, err := s.loadReport(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.IsSecretary() && (actor.BarangayID == nil || *actor.BarangayID != report.BarangayID) {
		return nil, appErrors.ErrForbidden
	}
	return report, nil
}

// Create validates and persists a new PENDING report and appends the
// submission audit entry.
func (s *ReportService) Create(ctx context.Context, actor models.Actor, req CreateReportRequest) (*models.Report, error) {
	if !actor.IsSecretary() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only barangay secretaries may submit reports")
	}
	if actor.BarangayID == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "submitting account has no barangay assignment")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid report payload")
	}
	if len(req.Attachments) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "at least one attachment is required")
	}
	for i, att := range req.Attachments {
		if att.URL == "" || att.PublicID == "" || att.FileName == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("attachment %d is missing its storage url, public id, or file name", i+1))
		}
	}

	reportType, err := s.resolveReportType(ctx, req.ReportType)
	if err != nil {
		return nil, err
	}

	now := s.now()
	attachments := make(models.AttachmentList, 0, len(req.Attachments))
	for _, att := range req.Attachments {
		attachments = append(attachments, models.Attachment{
			URL:         att.URL,
			PublicID:    att.PublicID,
			FileName:    canonicalFileName(att.FileName, reportType.ShortCode, now),
			FileSize:    att.FileSize,
			ContentType: att.ContentType,
		})
	}

	report := &models.Report{
		ReportType:    reportType.ShortCode,
		ReportName:    req.ReportName,
		Status:        models.ReportStatusPending,
		SubmittedDate: now,
		BarangayID:    *actor.BarangayID,
		SubmittedByID: actor.UserID,
		FileName:      attachments[0].FileName,
		FileSize:      attachments.TotalSize(),
		Comments:      req.Comments,
		Attachments:   attachments,
	}
	if err := s.repo.Create(ctx, report); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create report")
	}
	s.metrics.RecordReportSubmitted()

	if err := s.audit.Create(ctx, &models.LogEntry{
		Action:  models.LogActionReportSubmitted,
		UserID:  &actor.UserID,
		Details: fmt.Sprintf("Submitted report %q (%s)", report.ReportName, report.ReportType),
	}); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "report saved but the audit entry failed")
	}

	created, err := s.repo.GetByID(ctx, report.ID)
	if err != nil {
		// the row exists; fall back to the in-memory copy without joins
		return report, nil
	}
	return created, nil
}

// Update edits a pending report. Only the original submitter may edit, and
// only while the report is still PENDING.
func (s *ReportService) Update(ctx context.Context, actor models.Actor, id string, req UpdateReportRequest) (*models.Report, error) {
	report, err := s.loadReport(ctx, id)
	if err != nil {
		return nil, err
	}
	if report.SubmittedByID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the submitting secretary may edit this report")
	}
	if report.Status != models.ReportStatusPending {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only pending reports may be edited")
	}

	if req.ReportName != nil {
		if *req.ReportName == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "report name may not be empty")
		}
		report.ReportName = *req.ReportName
	}
	if req.Comments != nil {
		if utf8.RuneCountInString(*req.Comments) > 500 {
			return nil, appErrors.Clone(appErrors.ErrValidation, "comments may not exceed 500 characters")
		}
		report.Comments = *req.Comments
	}
	if req.Attachments != nil {
		if len(req.Attachments) == 0 {
			return nil, appErrors.Clone(appErrors.ErrValidation, "at least one attachment is required")
		}
		replacement := make(models.AttachmentList, 0, len(req.Attachments))
		for i, att := range req.Attachments {
			if att.URL == "" || att.PublicID == "" {
				return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("attachment %d is missing its storage url or public id", i+1))
			}
			replacement = append(replacement, models.Attachment{
				URL:         att.URL,
				PublicID:    att.PublicID,
				FileName:    canonicalFileName(att.FileName, report.ReportType, s.now()),
				FileSize:    att.FileSize,
				ContentType: att.ContentType,
			})
		}
		report.Attachments = replacement
		report.FileName = replacement[0].FileName
		report.FileSize = replacement.TotalSize()
	}

	if err := s.repo.Update(ctx, report); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update report")
	}
	if err := s.audit.Create(ctx, &models.LogEntry{
		Action:  models.LogActionReportUpdated,
		UserID:  &actor.UserID,
		Details: fmt.Sprintf("Updated report %q", report.ReportName),
	}); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "report updated but the audit entry failed")
	}
	return report, nil
}

// UpdateStatus applies a staff review decision. The report row is written
// first and is the source of truth; the notification and audit writes
// follow and their failures surface without rolling the decision back.
func (s *ReportService) UpdateStatus(ctx context.Context, actor models.Actor, id string, req UpdateReportStatusRequest) (*models.Report, error) {
	if !actor.IsStaff() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only MLGOO staff may review reports")
	}
	status := models.ReportStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	if !models.ValidReportStatus(status) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "status must be one of PENDING, APPROVED, REJECTED")
	}

	report, err := s.loadReport(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateStatus(ctx, id, status, req.Comments); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update report status")
	}
	report.Status = status
	if req.Comments != nil {
		report.Comments = *req.Comments
	}
	s.metrics.RecordReportDecision(string(status))

	if notification := statusNotification(report); notification != nil {
		if err := s.notifications.Create(ctx, notification); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "report status saved but the submitter notification failed")
		}
	}

	if err := s.audit.Create(ctx, &models.LogEntry{
		Action:  models.ReportStatusLogAction(status),
		UserID:  &actor.UserID,
		Details: fmt.Sprintf("Report %q marked %s", report.ReportName, status),
	}); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "report status saved but the audit entry failed")
	}
	return report, nil
}

// Delete removes a report. Secretaries may delete only their own pending
// submissions; staff may delete any report. Remote attachment deletion is
// best-effort and never blocks the row delete.
func (s *ReportService) Delete(ctx context.Context, actor models.Actor, id string) error {
	report, err := s.loadReport(ctx, id)
	if err != nil {
		return err
	}
	if actor.IsSecretary() {
		if report.SubmittedByID != actor.UserID {
			return appErrors.Clone(appErrors.ErrForbidden, "only the submitting secretary may delete this report")
		}
		if report.Status != models.ReportStatusPending {
			return appErrors.Clone(appErrors.ErrForbidden, "decided reports may only be deleted by MLGOO staff")
		}
	}

	if ids := report.Attachments.PublicIDs(); len(ids) > 0 && s.attachments != nil {
		for _, result := range s.attachments.DeleteMany(ctx, ids) {
			if result.Err != nil {
				s.logger.Sugar().Warnw("attachment cleanup failed",
					"report_id", report.ID, "public_id", result.PublicID, "error", result.Err)
			}
		}
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete report")
	}
	if err := s.audit.Create(ctx, &models.LogEntry{
		Action:  models.LogActionDeleteReport,
		UserID:  &actor.UserID,
		Details: fmt.Sprintf("Deleted report %q (%s)", report.ReportName, report.Status),
	}); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "report deleted but the audit entry failed")
	}
	return nil
}

func (s *ReportService) loadReport(ctx context.Context, id string) (*models.Report, error) {
	report, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report")
	}
	return report, nil
}

// resolveReportType resolves a client reference against the catalog:
// numeric id first, then short code, then full name.
func (s *ReportService) resolveReportType(ctx context.Context, ref string) (*models.ReportType, error) {
	types, err := s.taxonomy.ListReportTypes(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report types")
	}

	ref = strings.TrimSpace(ref)
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		for i := range types {
			if types[i].ID == id {
				return &types[i], nil
			}
		}
	}
	for i := range types {
		if strings.EqualFold(types[i].ShortCode, ref) {
			return &types[i], nil
		}
	}
	for i := range types {
		if strings.EqualFold(types[i].Name, ref) {
			return &types[i], nil
		}
	}

	codes := make([]string, 0, len(types))
	for _, t := range types {
		codes = append(codes, t.ShortCode)
	}
	sort.Strings(codes)
	return nil, appErrors.Clone(appErrors.ErrValidation,
		fmt.Sprintf("unknown report type %q; available types: %s", ref, strings.Join(codes, ", ")))
}

// statusNotification builds the templated submitter notification for a
// decision. A revert to PENDING produces none.
func statusNotification(report *models.Report) *models.Notification {
	switch report.Status {
	case models.ReportStatusApproved:
		return &models.Notification{
			Title:    "Report Approved",
			Message:  fmt.Sprintf("Your report %q has been approved.", report.ReportName),
			Type:     models.NotificationTypeSuccess,
			Priority: models.NotificationPriorityNormal,
			SentTo:   []string{report.SubmittedByID},
		}
	case models.ReportStatusRejected:
		message := fmt.Sprintf("Your report %q needs revision.", report.ReportName)
		if report.Comments != "" {
			message += " Reviewer comments: " + report.Comments
		}
		return &models.Notification{
			Title:    "Report Needs Revision",
			Message:  message,
			Type:     models.NotificationTypeAlert,
			Priority: models.NotificationPriorityHigh,
			SentTo:   []string{report.SubmittedByID},
		}
	default:
		return nil
	}
}

var canonicalNamePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}_[^_]+_`)

// canonicalFileName normalises an attachment name to
// {ISO-date}_{shortCode}_{base}{ext} unless it already carries the pattern.
func canonicalFileName(name, shortCode string, now time.Time) string {
	base := filepath.Base(name)
	if canonicalNamePattern.MatchString(base) {
		return base
	}
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	return fmt.Sprintf("%s_%s_%s%s", now.Format("2006-01-02"), shortCode, stem, ext)
}
