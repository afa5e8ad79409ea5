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

type userAdminStore interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	UpdateStatus(ctx context.Context, id string, creation models.CreationStatus, active *models.ActiveStatus) error
	Delete(ctx context.Context, id string) error
}

type submitterReports interface {
	ListBySubmitter(ctx context.Context, userID string) ([]models.Report, error)
}

// UserStatusAction names the staff decisions on an account.
type UserStatusAction string

const (
	UserActionApprove    UserStatusAction = "approve"
	UserActionReject     UserStatusAction = "reject"
	UserActionActivate   UserStatusAction = "activate"
	UserActionDeactivate UserStatusAction = "deactivate"
)

// UpdateUserStatusRequest carries a staff account decision.
type UpdateUserStatusRequest struct {
	Action UserStatusAction `json:"action" validate:"required,oneof=approve reject activate deactivate"`
}

// UserService handles staff administration of accounts.
type UserService struct {
	repo          userAdminStore
	reports       submitterReports
	attachments   attachmentRemover
	notifications notificationDispatch
	audit         auditRecorder
	mailer        mailSender
	validator     *validator.Validate
	logger        *zap.Logger
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userAdminStore, reports submitterReports, attachments attachmentRemover, notifications notificationDispatch, audit auditRecorder, mailer mailSender, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{
		repo:          repo,
		reports:       reports,
		attachments:   attachments,
		notifications: notifications,
		audit:         audit,
		mailer:        mailer,
		validator:     validate,
		logger:        logger,
	}
}

// List returns paginated users and pagination metadata.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}
	return users, models.NewPagination(filter.Page, filter.Limit, total), nil
}

// UpdateStatus applies a staff decision to an account, notifies the user,
// sends a best-effort status email, and records the action.
func (s *UserService) UpdateStatus(ctx context.Context, actor models.Actor, id string, req UpdateUserStatusRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}
	user, err := s.loadUser(ctx, id)
	if err != nil {
		return nil, err
	}

	creation := user.CreationStatus
	active := user.ActiveStatus
	var logAction, mailSubject, mailBody string

	switch req.Action {
	case UserActionApprove:
		creation = models.CreationApproved
		activated := models.ActiveStatusActive
		active = &activated
		logAction = models.LogActionUserApproved
		mailSubject = "Account approved"
		mailBody = "Your account has been approved. You may now sign in."
	case UserActionReject:
		creation = models.CreationRejected
		active = nil
		logAction = models.LogActionUserRejected
		mailSubject = "Account signup rejected"
		mailBody = "Your account signup was rejected. Contact the MLGOO office for details."
	case UserActionActivate:
		if user.CreationStatus != models.CreationApproved {
			return nil, appErrors.Clone(appErrors.ErrValidation, "only approved accounts may be activated")
		}
		activated := models.ActiveStatusActive
		active = &activated
		logAction = models.LogActionUserActivated
		mailSubject = "Account reactivated"
		mailBody = "Your account has been reactivated."
	case UserActionDeactivate:
		if user.CreationStatus != models.CreationApproved {
			return nil, appErrors.Clone(appErrors.ErrValidation, "only approved accounts may be deactivated")
		}
		deactivated := models.ActiveStatusDeactivated
		active = &deactivated
		logAction = models.LogActionUserDeactivated
		mailSubject = "Account deactivated"
		mailBody = "Your account has been deactivated. Contact the MLGOO office for details."
	}

	if err := s.repo.UpdateStatus(ctx, id, creation, active); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update account status")
	}
	user.CreationStatus = creation
	user.ActiveStatus = active

	if err := s.notifications.Create(ctx, &models.Notification{
		Title:    mailSubject,
		Message:  mailBody,
		Type:     models.NotificationTypeSystem,
		Priority: models.NotificationPriorityNormal,
		SentTo:   []string{user.ID},
	}); err != nil {
		s.logger.Sugar().Warnw("failed to create status notification", "user_id", user.ID, "error", err)
	}

	if s.mailer != nil && s.mailer.Configured() {
		if err := s.mailer.Send([]string{user.Email}, mailSubject, mailBody); err != nil {
			s.logger.Sugar().Warnw("failed to send status email", "user_id", user.ID, "error", err)
		}
	}

	if err := s.audit.Create(ctx, &models.LogEntry{
		Action:  logAction,
		UserID:  &actor.UserID,
		Details: fmt.Sprintf("Account %s (%s): %s", user.FullName(), user.Email, req.Action),
	}); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "status saved but the audit entry failed")
	}
	return user, nil
}

// Delete removes an account. Attachments of the user's reports are deleted
// from the external store best-effort first; the row delete then cascades
// to the reports themselves.
func (s *UserService) Delete(ctx context.Context, actor models.Actor, id string) error {
	user, err := s.loadUser(ctx, id)
	if err != nil {
		return err
	}

	reports, err := s.reports.ListBySubmitter(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list owned reports")
	}
	var publicIDs []string
	for _, report := range reports {
		publicIDs = append(publicIDs, report.Attachments.PublicIDs()...)
	}
	if user.IDImagePublicID != nil && *user.IDImagePublicID != "" {
		publicIDs = append(publicIDs, *user.IDImagePublicID)
	}
	if len(publicIDs) > 0 && s.attachments != nil {
		for _, result := range s.attachments.DeleteMany(ctx, publicIDs) {
			if result.Err != nil {
				s.logger.Sugar().Warnw("attachment cleanup failed",
					"user_id", id, "public_id", result.PublicID, "error", result.Err)
			}
		}
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete account")
	}
	if err := s.audit.Create(ctx, &models.LogEntry{
		Action:  models.LogActionDeleteUser,
		UserID:  &actor.UserID,
		Details: fmt.Sprintf("Deleted account %s (%s) and %d report(s)", user.FullName(), user.Email, len(reports)),
	}); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "account deleted but the audit entry failed")
	}
	return nil
}

func (s *UserService) loadUser(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}
