package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/bsorms/bsorms-api/internal/models"
)

const notificationColumns = `id, title, message, type, priority, date_sent, sent_to, read_by`

// NotificationRepository persists notifications. Recipient and read sets
// are stored as text arrays on the row, not per-recipient child rows.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository constructs the repository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// ListAll returns every notification, newest first. This is the staff
// broadcast-sender view.
func (r *NotificationRepository) ListAll(ctx context.Context) ([]models.Notification, error) {
	query := fmt.Sprintf("SELECT %s FROM notifications ORDER BY date_sent DESC", notificationColumns)
	var notifications []models.Notification
	if err := r.db.SelectContext(ctx, &notifications, query); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return notifications, nil
}

// ListForRecipient returns notifications addressed to the user, newest first.
func (r *NotificationRepository) ListForRecipient(ctx context.Context, userID string) ([]models.Notification, error) {
	query := fmt.Sprintf("SELECT %s FROM notifications WHERE $1 = ANY(sent_to) ORDER BY date_sent DESC", notificationColumns)
	var notifications []models.Notification
	if err := r.db.SelectContext(ctx, &notifications, query, userID); err != nil {
		return nil, fmt.Errorf("list notifications for recipient: %w", err)
	}
	return notifications, nil
}

// GetByID returns a notification by identifier.
func (r *NotificationRepository) GetByID(ctx context.Context, id string) (*models.Notification, error) {
	query := fmt.Sprintf("SELECT %s FROM notifications WHERE id = $1 LIMIT 1", notificationColumns)
	var notification models.Notification
	if err := r.db.GetContext(ctx, &notification, query, id); err != nil {
		return nil, err
	}
	return &notification, nil
}

// Create inserts a new notification row.
func (r *NotificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	if notification.ID == "" {
		notification.ID = uuid.NewString()
	}
	if notification.DateSent.IsZero() {
		notification.DateSent = time.Now().UTC()
	}
	if notification.ReadBy == nil {
		notification.ReadBy = []string{}
	}
	const query = `INSERT INTO notifications (id, title, message, type, priority, date_sent, sent_to, read_by)
VALUES (:id, :title, :message, :type, :priority, :date_sent, :sent_to, :read_by)`
	if _, err := r.db.NamedExecContext(ctx, query, notification); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// MarkRead adds the user to read_by. The guard keeps the write idempotent:
// a second call matches zero rows and leaves the membership unchanged.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID string) error {
	const query = `UPDATE notifications SET read_by = array_append(read_by, $2) WHERE id = $1 AND NOT ($2 = ANY(read_by))`
	if _, err := r.db.ExecContext(ctx, query, id, userID); err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return nil
}

// Delete removes a notification row.
func (r *NotificationRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM notifications WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	return nil
}
