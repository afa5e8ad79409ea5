package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/bsorms/bsorms-api/internal/models"
	appErrors "github.com/bsorms/bsorms-api/pkg/errors"
)

type logStore interface {
	Query(ctx context.Context, filter models.LogFilter) ([]models.LogEntry, int, []string, error)
	Create(ctx context.Context, entry *models.LogEntry) error
	DeleteRange(ctx context.Context, start, endExclusive time.Time) (int64, error)
}

// LogQueryResult bundles a page of the audit trail with its metadata.
type LogQueryResult struct {
	Entries    []models.LogEntry
	Pagination *models.Pagination
	Actions    []string
}

// LogService queries and prunes the audit trail.
type LogService struct {
	repo   logStore
	logger *zap.Logger
}

// NewLogService constructs the service.
func NewLogService(repo logStore, logger *zap.Logger) *LogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogService{repo: repo, logger: logger}
}

// Query returns matching entries newest-first. Secretary callers are
// forcibly scoped to their own entries.
func (s *LogService) Query(ctx context.Context, actor models.Actor, filter models.LogFilter) (*LogQueryResult, error) {
	if actor.IsSecretary() {
		filter.UserID = &actor.UserID
	}
	entries, total, actions, err := s.repo.Query(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to query logs")
	}
	return &LogQueryResult{
		Entries:    entries,
		Pagination: models.NewPagination(filter.Page, filter.Limit, total),
		Actions:    actions,
	}, nil
}

// BulkRemove deletes every entry with timestamp in [start, end+1day) and
// appends one entry describing the deletion. That trailing entry is written
// after the delete, so it survives the sweep it documents.
func (s *LogService) BulkRemove(ctx context.Context, actor models.Actor, startDate, endDate string) (int64, error) {
	if !actor.IsStaff() {
		return 0, appErrors.Clone(appErrors.ErrForbidden, "only MLGOO staff may remove logs")
	}
	start, err := time.Parse("2006-01-02", startDate)
	if err != nil {
		return 0, appErrors.Clone(appErrors.ErrValidation, "startDate must be a date in YYYY-MM-DD format")
	}
	end, err := time.Parse("2006-01-02", endDate)
	if err != nil {
		return 0, appErrors.Clone(appErrors.ErrValidation, "endDate must be a date in YYYY-MM-DD format")
	}
	if end.Before(start) {
		return 0, appErrors.Clone(appErrors.ErrValidation, "endDate must not precede startDate")
	}

	deleted, err := s.repo.DeleteRange(ctx, start, end.AddDate(0, 0, 1))
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove logs")
	}

	if err := s.repo.Create(ctx, &models.LogEntry{
		Action:  models.LogActionDeleteLogs,
		UserID:  &actor.UserID,
		Details: fmt.Sprintf("Removed %d log entries between %s and %s", deleted, startDate, endDate),
	}); err != nil {
		return deleted, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "logs removed but the audit entry failed")
	}
	return deleted, nil
}
