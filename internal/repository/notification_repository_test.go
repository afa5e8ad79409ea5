package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bsorms/bsorms-api/internal/models"
)

var notificationRowColumns = []string{"id", "title", "message", "type", "priority", "date_sent", "sent_to", "read_by"}

func TestNotificationListForRecipient(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	rows := sqlmock.NewRows(notificationRowColumns).
		AddRow("n-1", "Reminder", "BFD due soon", "reminder", "medium", time.Now(), "{sec-1,sec-2}", "{sec-2}")
	mock.ExpectQuery(regexp.QuoteMeta("WHERE $1 = ANY(sent_to) ORDER BY date_sent DESC")).
		WithArgs("sec-1").
		WillReturnRows(rows)

	notifications, err := repo.ListForRecipient(context.Background(), "sec-1")
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Equal(t, []string{"sec-1", "sec-2"}, []string(notifications[0].SentTo))
	assert.False(t, notifications[0].ReadByUser("sec-1"))
	assert.True(t, notifications[0].ReadByUser("sec-2"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationCreateDefaults(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	mock.ExpectExec("INSERT INTO notifications").WillReturnResult(sqlmock.NewResult(1, 1))

	notification := &models.Notification{
		Title:    "Heads up",
		Message:  "New guidelines posted.",
		Type:     models.NotificationTypeInfo,
		Priority: models.NotificationPriorityNormal,
		SentTo:   []string{"sec-1"},
	}
	require.NoError(t, repo.Create(context.Background(), notification))
	assert.NotEmpty(t, notification.ID)
	assert.False(t, notification.DateSent.IsZero())
	assert.NotNil(t, notification.ReadBy)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationMarkReadGuard(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE notifications SET read_by = array_append(read_by, $2) WHERE id = $1 AND NOT ($2 = ANY(read_by))")).
		WithArgs("n-1", "sec-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkRead(context.Background(), "n-1", "sec-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationDelete(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM notifications WHERE id = $1")).
		WithArgs("n-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "n-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
