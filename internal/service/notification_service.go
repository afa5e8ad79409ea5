package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/bsorms/bsorms-api/internal/models"
	appErrors "github.com/bsorms/bsorms-api/pkg/errors"
)

type notificationStore interface {
	ListAll(ctx context.Context) ([]models.Notification, error)
	ListForRecipient(ctx context.Context, userID string) ([]models.Notification, error)
	GetByID(ctx context.Context, id string) (*models.Notification, error)
	Create(ctx context.Context, notification *models.Notification) error
	MarkRead(ctx context.Context, id, userID string) error
	Delete(ctx context.Context, id string) error
}

type recipientDirectory interface {
	FindByIDs(ctx context.Context, ids []string) ([]models.User, error)
	ListActiveSecretaries(ctx context.Context) ([]models.Recipient, error)
}

// CreateNotificationRequest is the staff compose payload.
type CreateNotificationRequest struct {
	Title    string   `json:"title" validate:"required"`
	Message  string   `json:"message" validate:"required"`
	Type     string   `json:"type" validate:"required"`
	Priority string   `json:"priority" validate:"required"`
	UserIDs  []string `json:"user_ids"`
}

// NotificationService manages notification fan-out and read state.
type NotificationService struct {
	repo      notificationStore
	users     recipientDirectory
	audit     auditRecorder
	validator *validator.Validate
	logger    *zap.Logger
	metrics   *MetricsService
}

// NewNotificationService constructs the service.
func NewNotificationService(repo notificationStore, users recipientDirectory, audit auditRecorder, validate *validator.Validate, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &NotificationService{repo: repo, users: users, audit: audit, validator: validate, logger: logger}
}

// WithMetrics attaches dispatch counters. Safe to skip in tests.
func (s *NotificationService) WithMetrics(m *MetricsService) *NotificationService {
	s.metrics = m
	return s
}

// ListForActor returns the role-shaped notification view. Staff see the
// full broadcast corpus with recipient and read membership; secretaries see
// only notifications addressed to them, collapsed to an is_read flag.
func (s *NotificationService) ListForActor(ctx context.Context, actor models.Actor) (interface{}, error) {
	if actor.IsStaff() {
		notifications, err := s.repo.ListAll(ctx)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
		}
		return notifications, nil
	}

	notifications, err := s.repo.ListForRecipient(ctx, actor.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	views := make([]models.NotificationView, 0, len(notifications))
	for i := range notifications {
		views = append(views, notifications[i].ViewFor(actor.UserID))
	}
	return views, nil
}

// MarkRead marks one notification read for the caller. The operation is
// idempotent: an already-read notification returns success untouched. No
// recipient-membership check is made beyond existence.
func (s *NotificationService) MarkRead(ctx context.Context, actor models.Actor, id string) (*models.NotificationView, error) {
	notification, err := s.loadNotification(ctx, id)
	if err != nil {
		return nil, err
	}
	if !notification.ReadByUser(actor.UserID) {
		if err := s.repo.MarkRead(ctx, id, actor.UserID); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notification read")
		}
		notification.ReadBy = append(notification.ReadBy, actor.UserID)
	}
	view := notification.ViewFor(actor.UserID)
	return &view, nil
}

// Create persists a staff-composed notification addressed to the resolved
// recipient set and appends the audit entry.
func (s *NotificationService) Create(ctx context.Context, actor models.Actor, req CreateNotificationRequest) (*models.Notification, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid notification payload")
	}
	if len(req.UserIDs) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "recipient user id list must be a non-empty array")
	}
	notificationType := models.NotificationType(req.Type)
	if !models.ValidNotificationType(notificationType) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown notification type")
	}
	priority := models.NotificationPriority(req.Priority)
	if !models.ValidNotificationPriority(priority) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown notification priority")
	}

	recipients, err := s.users.FindByIDs(ctx, req.UserIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve recipients")
	}
	if len(recipients) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no recipients matched the given user ids")
	}
	sentTo := make([]string, 0, len(recipients))
	for _, user := range recipients {
		sentTo = append(sentTo, user.ID)
	}

	notification := &models.Notification{
		Title:    req.Title,
		Message:  req.Message,
		Type:     notificationType,
		Priority: priority,
		SentTo:   sentTo,
	}
	if err := s.repo.Create(ctx, notification); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create notification")
	}
	s.metrics.RecordNotificationDispatched()

	if err := s.audit.Create(ctx, &models.LogEntry{
		Action:  models.LogActionCreateNotification,
		UserID:  &actor.UserID,
		Details: fmt.Sprintf("Sent notification %q to %d recipient(s)", notification.Title, len(sentTo)),
	}); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "notification saved but the audit entry failed")
	}
	return notification, nil
}

// Delete hard-deletes a notification and records the deleted title.
func (s *NotificationService) Delete(ctx context.Context, actor models.Actor, id string) error {
	notification, err := s.loadNotification(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete notification")
	}
	if err := s.audit.Create(ctx, &models.LogEntry{
		Action:  models.LogActionDeleteNotification,
		UserID:  &actor.UserID,
		Details: fmt.Sprintf("Deleted notification %q", notification.Title),
	}); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "notification deleted but the audit entry failed")
	}
	return nil
}

// Recipients returns the eligible compose targets: active, approved
// barangay secretaries sorted by last name.
func (s *NotificationService) Recipients(ctx context.Context) ([]models.Recipient, error) {
	recipients, err := s.users.ListActiveSecretaries(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list recipients")
	}
	return recipients, nil
}

func (s *NotificationService) loadNotification(ctx context.Context, id string) (*models.Notification, error) {
	notification, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "notification not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load notification")
	}
	return notification, nil
}
