package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bsorms/bsorms-api/internal/models"
	appErrors "github.com/bsorms/bsorms-api/pkg/errors"
)

type userAdminStoreStub struct {
	*userStoreStub
	deleted []string
}

func (s *userAdminStoreStub) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	var out []models.User
	for _, u := range s.users {
		out = append(out, *u)
	}
	return out, len(out), nil
}

func (s *userAdminStoreStub) UpdateStatus(ctx context.Context, id string, creation models.CreationStatus, active *models.ActiveStatus) error {
	u, ok := s.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.CreationStatus = creation
	u.ActiveStatus = active
	return nil
}

func (s *userAdminStoreStub) Delete(ctx context.Context, id string) error {
	if _, ok := s.users[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.users, id)
	s.deleted = append(s.deleted, id)
	return nil
}

func newUserServiceForTest(t *testing.T) (*UserService, *userAdminStoreStub, *reportStoreStub, *dispatchStub, *auditStub, *removerStub, *mailerStub) {
	t.Helper()
	users := &userAdminStoreStub{userStoreStub: newUserStoreStub()}
	reports := newReportStoreStub()
	dispatch := &dispatchStub{}
	audit := &auditStub{}
	remover := &removerStub{}
	mail := &mailerStub{configured: true}
	svc := NewUserService(users, reports, remover, dispatch, audit, mail, nil, zap.NewNop())
	return svc, users, reports, dispatch, audit, remover, mail
}

func TestUserServiceApprove(t *testing.T) {
	svc, users, _, dispatch, audit, _, mail := newUserServiceForTest(t)
	account := seedAccount(users.userStoreStub, "sec@example.com", models.RoleSecretary, models.CreationPending, nil)

	updated, err := svc.UpdateStatus(context.Background(), staffActor(), account.ID, UpdateUserStatusRequest{Action: UserActionApprove})
	require.NoError(t, err)
	assert.Equal(t, models.CreationApproved, updated.CreationStatus)
	require.NotNil(t, updated.ActiveStatus)
	assert.Equal(t, models.ActiveStatusActive, *updated.ActiveStatus)

	require.Len(t, dispatch.sent, 1)
	assert.Equal(t, models.NotificationTypeSystem, dispatch.sent[0].Type)
	assert.Equal(t, []string{account.ID}, []string(dispatch.sent[0].SentTo))

	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.LogActionUserApproved, audit.entries[0].Action)
	assert.Len(t, mail.sent, 1)
}

func TestUserServiceReject(t *testing.T) {
	svc, users, _, _, audit, _, _ := newUserServiceForTest(t)
	account := seedAccount(users.userStoreStub, "sec@example.com", models.RoleSecretary, models.CreationPending, nil)

	updated, err := svc.UpdateStatus(context.Background(), staffActor(), account.ID, UpdateUserStatusRequest{Action: UserActionReject})
	require.NoError(t, err)
	assert.Equal(t, models.CreationRejected, updated.CreationStatus)
	assert.Nil(t, updated.ActiveStatus)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.LogActionUserRejected, audit.entries[0].Action)
}

func TestUserServiceDeactivateNeedsApproval(t *testing.T) {
	svc, users, _, _, _, _, _ := newUserServiceForTest(t)
	account := seedAccount(users.userStoreStub, "sec@example.com", models.RoleSecretary, models.CreationPending, nil)

	_, err := svc.UpdateStatus(context.Background(), staffActor(), account.ID, UpdateUserStatusRequest{Action: UserActionDeactivate})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUserServiceDeactivateAndReactivate(t *testing.T) {
	svc, users, _, _, _, _, _ := newUserServiceForTest(t)
	active := models.ActiveStatusActive
	account := seedAccount(users.userStoreStub, "sec@example.com", models.RoleSecretary, models.CreationApproved, &active)

	updated, err := svc.UpdateStatus(context.Background(), staffActor(), account.ID, UpdateUserStatusRequest{Action: UserActionDeactivate})
	require.NoError(t, err)
	require.NotNil(t, updated.ActiveStatus)
	assert.Equal(t, models.ActiveStatusDeactivated, *updated.ActiveStatus)

	updated, err = svc.UpdateStatus(context.Background(), staffActor(), account.ID, UpdateUserStatusRequest{Action: UserActionActivate})
	require.NoError(t, err)
	require.NotNil(t, updated.ActiveStatus)
	assert.Equal(t, models.ActiveStatusActive, *updated.ActiveStatus)
}

func TestUserServiceUpdateStatusUnknownAction(t *testing.T) {
	svc, users, _, _, _, _, _ := newUserServiceForTest(t)
	account := seedAccount(users.userStoreStub, "sec@example.com", models.RoleSecretary, models.CreationPending, nil)

	_, err := svc.UpdateStatus(context.Background(), staffActor(), account.ID, UpdateUserStatusRequest{Action: "banish"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUserServiceDeleteCleansUpAttachments(t *testing.T) {
	svc, users, reports, _, audit, remover, _ := newUserServiceForTest(t)
	active := models.ActiveStatusActive
	account := seedAccount(users.userStoreStub, "sec@example.com", models.RoleSecretary, models.CreationApproved, &active)

	idImage := "id-blob"
	users.users[account.ID].IDImagePublicID = &idImage

	report := seedReport(reports, models.ReportStatusApproved)
	report.SubmittedByID = account.ID
	reports.reports[report.ID] = report

	require.NoError(t, svc.Delete(context.Background(), staffActor(), account.ID))
	assert.NotContains(t, users.users, account.ID)
	assert.ElementsMatch(t, []string{"blob-1", "id-blob"}, remover.deleted)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.LogActionDeleteUser, audit.entries[0].Action)
	assert.Contains(t, audit.entries[0].Details, "1 report(s)")
}

func TestUserServiceDeleteMissing(t *testing.T) {
	svc, _, _, _, _, _, _ := newUserServiceForTest(t)

	err := svc.Delete(context.Background(), staffActor(), "ghost")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
