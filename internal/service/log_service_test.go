package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bsorms/bsorms-api/internal/models"
	appErrors "github.com/bsorms/bsorms-api/pkg/errors"
)

type logStoreStub struct {
	entries    []models.LogEntry
	lastFilter models.LogFilter
}

func (s *logStoreStub) Query(ctx context.Context, filter models.LogFilter) ([]models.LogEntry, int, []string, error) {
	s.lastFilter = filter
	actionSet := map[string]struct{}{}
	for _, e := range s.entries {
		actionSet[e.Action] = struct{}{}
	}
	actions := make([]string, 0, len(actionSet))
	for a := range actionSet {
		actions = append(actions, a)
	}
	return s.entries, len(s.entries), actions, nil
}

func (s *logStoreStub) Create(ctx context.Context, entry *models.LogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	s.entries = append(s.entries, *entry)
	return nil
}

func (s *logStoreStub) DeleteRange(ctx context.Context, start, endExclusive time.Time) (int64, error) {
	var kept []models.LogEntry
	var removed int64
	for _, e := range s.entries {
		if !e.Timestamp.Before(start) && e.Timestamp.Before(endExclusive) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	s.entries = kept
	return removed, nil
}

func seedLog(store *logStoreStub, action string, at time.Time) {
	store.entries = append(store.entries, models.LogEntry{
		ID:        uuid.NewString(),
		Action:    action,
		Timestamp: at,
		Details:   action,
	})
}

func TestLogServiceQueryScopesSecretaries(t *testing.T) {
	store := &logStoreStub{}
	svc := NewLogService(store, zap.NewNop())

	_, err := svc.Query(context.Background(), models.Actor{UserID: "sec-1", Role: models.RoleSecretary}, models.LogFilter{})
	require.NoError(t, err)
	require.NotNil(t, store.lastFilter.UserID)
	assert.Equal(t, "sec-1", *store.lastFilter.UserID)

	_, err = svc.Query(context.Background(), staffActor(), models.LogFilter{})
	require.NoError(t, err)
	assert.Nil(t, store.lastFilter.UserID)
}

func TestLogServiceBulkRemove(t *testing.T) {
	store := &logStoreStub{}
	svc := NewLogService(store, zap.NewNop())

	seedLog(store, "LOGIN", time.Date(2025, 2, 28, 23, 59, 0, 0, time.UTC))
	seedLog(store, "REPORT_SUBMITTED", time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	seedLog(store, "REPORT_APPROVED", time.Date(2025, 3, 5, 12, 0, 0, 0, time.UTC))
	// end date is inclusive through the whole day
	seedLog(store, "LOGIN", time.Date(2025, 3, 7, 23, 30, 0, 0, time.UTC))
	seedLog(store, "LOGIN", time.Date(2025, 3, 8, 0, 1, 0, 0, time.UTC))

	removed, err := svc.BulkRemove(context.Background(), staffActor(), "2025-03-01", "2025-03-07")
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)

	require.Len(t, store.entries, 3)
	last := store.entries[len(store.entries)-1]
	assert.Equal(t, models.LogActionDeleteLogs, last.Action)
	assert.Contains(t, last.Details, "Removed 3 log entries between 2025-03-01 and 2025-03-07")
}

func TestLogServiceBulkRemoveValidation(t *testing.T) {
	store := &logStoreStub{}
	svc := NewLogService(store, zap.NewNop())

	_, err := svc.BulkRemove(context.Background(), staffActor(), "03/01/2025", "2025-03-07")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.BulkRemove(context.Background(), staffActor(), "2025-03-07", "2025-03-01")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.BulkRemove(context.Background(), models.Actor{UserID: "sec-1", Role: models.RoleSecretary}, "2025-03-01", "2025-03-07")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestLogServiceBulkRemoveSingleDay(t *testing.T) {
	store := &logStoreStub{}
	svc := NewLogService(store, zap.NewNop())

	seedLog(store, "LOGIN", time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC))
	seedLog(store, "LOGIN", time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC))

	removed, err := svc.BulkRemove(context.Background(), staffActor(), "2025-03-03", "2025-03-03")
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
}
