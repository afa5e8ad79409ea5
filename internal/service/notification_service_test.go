package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bsorms/bsorms-api/internal/models"
	appErrors "github.com/bsorms/bsorms-api/pkg/errors"
)

type notificationStoreStub struct {
	notifications map[string]*models.Notification
	markCalls     int
}

func newNotificationStoreStub() *notificationStoreStub {
	return &notificationStoreStub{notifications: map[string]*models.Notification{}}
}

func (s *notificationStoreStub) ListAll(ctx context.Context) ([]models.Notification, error) {
	var out []models.Notification
	for _, n := range s.notifications {
		out = append(out, *n)
	}
	return out, nil
}

func (s *notificationStoreStub) ListForRecipient(ctx context.Context, userID string) ([]models.Notification, error) {
	var out []models.Notification
	for _, n := range s.notifications {
		for _, id := range n.SentTo {
			if id == userID {
				out = append(out, *n)
				break
			}
		}
	}
	return out, nil
}

func (s *notificationStoreStub) GetByID(ctx context.Context, id string) (*models.Notification, error) {
	n, ok := s.notifications[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *n
	return &clone, nil
}

func (s *notificationStoreStub) Create(ctx context.Context, notification *models.Notification) error {
	if notification.ID == "" {
		notification.ID = uuid.NewString()
	}
	if notification.DateSent.IsZero() {
		notification.DateSent = time.Now().UTC()
	}
	clone := *notification
	s.notifications[notification.ID] = &clone
	return nil
}

func (s *notificationStoreStub) MarkRead(ctx context.Context, id, userID string) error {
	s.markCalls++
	n, ok := s.notifications[id]
	if !ok {
		return sql.ErrNoRows
	}
	for _, existing := range n.ReadBy {
		if existing == userID {
			return nil
		}
	}
	n.ReadBy = append(n.ReadBy, userID)
	return nil
}

func (s *notificationStoreStub) Delete(ctx context.Context, id string) error {
	if _, ok := s.notifications[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.notifications, id)
	return nil
}

type directoryStub struct {
	users       []models.User
	secretaries []models.Recipient
}

func (d directoryStub) FindByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	var out []models.User
	for _, u := range d.users {
		for _, id := range ids {
			if u.ID == id {
				out = append(out, u)
				break
			}
		}
	}
	return out, nil
}

func (d directoryStub) ListActiveSecretaries(ctx context.Context) ([]models.Recipient, error) {
	return d.secretaries, nil
}

func newNotificationServiceForTest(t *testing.T) (*NotificationService, *notificationStoreStub, *auditStub) {
	t.Helper()
	store := newNotificationStoreStub()
	audit := &auditStub{}
	directory := directoryStub{users: []models.User{
		{ID: "sec-1", Email: "sec1@example.com"},
		{ID: "sec-2", Email: "sec2@example.com"},
	}}
	svc := NewNotificationService(store, directory, audit, nil, zap.NewNop())
	return svc, store, audit
}

func seedNotification(store *notificationStoreStub, sentTo ...string) *models.Notification {
	n := &models.Notification{
		ID:       uuid.NewString(),
		Title:    "Quarterly Submission Reminder",
		Message:  "BFD reports are due on the 15th.",
		Type:     models.NotificationTypeReminder,
		Priority: models.NotificationPriorityMedium,
		DateSent: time.Date(2025, 3, 1, 6, 0, 0, 0, time.UTC),
		SentTo:   sentTo,
	}
	store.notifications[n.ID] = n
	return n
}

func TestNotificationServiceCreate(t *testing.T) {
	svc, store, audit := newNotificationServiceForTest(t)

	n, err := svc.Create(context.Background(), staffActor(), CreateNotificationRequest{
		Title:    "Heads up",
		Message:  "New submission guidelines posted.",
		Type:     "info",
		Priority: "normal",
		UserIDs:  []string{"sec-1", "sec-2", "ghost"},
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"sec-1", "sec-2"}, []string(n.SentTo))
	assert.Contains(t, store.notifications, n.ID)

	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.LogActionCreateNotification, audit.entries[0].Action)
}

func TestNotificationServiceCreateValidation(t *testing.T) {
	svc, _, _ := newNotificationServiceForTest(t)

	_, err := svc.Create(context.Background(), staffActor(), CreateNotificationRequest{
		Title:    "Heads up",
		Message:  "body",
		Type:     "info",
		Priority: "normal",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Create(context.Background(), staffActor(), CreateNotificationRequest{
		Title:    "Heads up",
		Message:  "body",
		Type:     "shout",
		Priority: "normal",
		UserIDs:  []string{"sec-1"},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestNotificationServiceListForSecretary(t *testing.T) {
	svc, store, _ := newNotificationServiceForTest(t)
	n := seedNotification(store, "sec-1")
	n.ReadBy = append(n.ReadBy, "sec-1")
	seedNotification(store, "sec-2")

	result, err := svc.ListForActor(context.Background(), models.Actor{UserID: "sec-1", Role: models.RoleSecretary})
	require.NoError(t, err)
	views, ok := result.([]models.NotificationView)
	require.True(t, ok)
	require.Len(t, views, 1)
	assert.True(t, views[0].IsRead)
}

func TestNotificationServiceListForStaff(t *testing.T) {
	svc, store, _ := newNotificationServiceForTest(t)
	seedNotification(store, "sec-1")
	seedNotification(store, "sec-2")

	result, err := svc.ListForActor(context.Background(), staffActor())
	require.NoError(t, err)
	notifications, ok := result.([]models.Notification)
	require.True(t, ok)
	assert.Len(t, notifications, 2)
}

func TestNotificationServiceMarkReadIdempotent(t *testing.T) {
	svc, store, _ := newNotificationServiceForTest(t)
	n := seedNotification(store, "sec-1")
	actor := models.Actor{UserID: "sec-1", Role: models.RoleSecretary}

	view, err := svc.MarkRead(context.Background(), actor, n.ID)
	require.NoError(t, err)
	assert.True(t, view.IsRead)
	assert.Equal(t, 1, store.markCalls)

	view, err = svc.MarkRead(context.Background(), actor, n.ID)
	require.NoError(t, err)
	assert.True(t, view.IsRead)
	assert.Equal(t, 1, store.markCalls, "second call should not hit the store")
}

func TestNotificationServiceMarkReadMissing(t *testing.T) {
	svc, _, _ := newNotificationServiceForTest(t)

	_, err := svc.MarkRead(context.Background(), staffActor(), "nope")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestNotificationServiceDelete(t *testing.T) {
	svc, store, audit := newNotificationServiceForTest(t)
	n := seedNotification(store, "sec-1")

	require.NoError(t, svc.Delete(context.Background(), staffActor(), n.ID))
	assert.NotContains(t, store.notifications, n.ID)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.LogActionDeleteNotification, audit.entries[0].Action)
	assert.Contains(t, audit.entries[0].Details, "Quarterly Submission Reminder")
}
