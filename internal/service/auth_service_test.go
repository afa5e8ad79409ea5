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
	"golang.org/x/crypto/bcrypt"

	"github.com/bsorms/bsorms-api/internal/models"
	appErrors "github.com/bsorms/bsorms-api/pkg/errors"
)

type userStoreStub struct {
	users map[string]*models.User
}

func newUserStoreStub() *userStoreStub {
	return &userStoreStub{users: map[string]*models.User{}}
}

func (s *userStoreStub) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range s.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *userStoreStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *u
	return &clone, nil
}

func (s *userStoreStub) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	clone := *user
	s.users[user.ID] = &clone
	return nil
}

func (s *userStoreStub) CountByRole(ctx context.Context, role models.UserRole) (int, error) {
	count := 0
	for _, u := range s.users {
		if u.Role == role {
			count++
		}
	}
	return count, nil
}

func (s *userStoreStub) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	u, ok := s.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.PasswordHash = passwordHash
	return nil
}

type otpStoreStub struct {
	codes    map[string]string
	verified map[string]bool
}

func newOTPStoreStub() *otpStoreStub {
	return &otpStoreStub{codes: map[string]string{}, verified: map[string]bool{}}
}

func (s *otpStoreStub) SaveCode(ctx context.Context, email, code string) error {
	s.codes[email] = code
	return nil
}

func (s *otpStoreStub) ConsumeCode(ctx context.Context, email, code string) (bool, error) {
	stored, ok := s.codes[email]
	if !ok || stored != code {
		return false, nil
	}
	delete(s.codes, email)
	return true, nil
}

func (s *otpStoreStub) MarkVerified(ctx context.Context, email string) error {
	s.verified[email] = true
	return nil
}

func (s *otpStoreStub) IsVerified(ctx context.Context, email string) (bool, error) {
	return s.verified[email], nil
}

func (s *otpStoreStub) ClearVerified(ctx context.Context, email string) error {
	delete(s.verified, email)
	return nil
}

type barangayCatalogStub struct {
	barangays map[int64]models.Barangay
}

func (s barangayCatalogStub) FindBarangay(ctx context.Context, id int64) (*models.Barangay, error) {
	b, ok := s.barangays[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &b, nil
}

type mailerStub struct {
	configured bool
	sent       []string
}

func (m *mailerStub) Configured() bool { return m.configured }

func (m *mailerStub) Send(to []string, subject, body string) error {
	m.sent = append(m.sent, subject)
	return nil
}

func newAuthServiceForTest(t *testing.T) (*AuthService, *userStoreStub, *otpStoreStub, *mailerStub) {
	t.Helper()
	users := newUserStoreStub()
	otp := newOTPStoreStub()
	mail := &mailerStub{configured: true}
	catalog := barangayCatalogStub{barangays: map[int64]models.Barangay{7: {ID: 7, Name: "Poblacion"}}}
	svc := NewAuthService(users, otp, catalog, mail, &auditStub{}, nil, zap.NewNop(), AuthConfig{
		Secret:     "test-secret",
		Expiration: time.Hour,
		Issuer:     "bsorms-test",
		OTPDigits:  6,
	})
	return svc, users, otp, mail
}

func seedAccount(users *userStoreStub, email string, role models.UserRole, creation models.CreationStatus, active *models.ActiveStatus) *models.User {
	hash, _ := bcrypt.GenerateFromPassword([]byte("s3cretpass"), bcrypt.MinCost)
	u := &models.User{
		ID:             uuid.NewString(),
		Email:          email,
		PasswordHash:   string(hash),
		FirstName:      "Maria",
		LastName:       "Santos",
		Role:           role,
		CreationStatus: creation,
		ActiveStatus:   active,
	}
	users.users[u.ID] = u
	return u
}

func TestAuthServiceSignupRequiresVerifiedEmail(t *testing.T) {
	svc, _, _, _ := newAuthServiceForTest(t)

	_, err := svc.Signup(context.Background(), SignupRequest{
		Email:     "new@example.com",
		Password:  "s3cretpass",
		FirstName: "Juan",
		LastName:  "Reyes",
		Role:      models.RoleStaff,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceFirstStaffAutoApproved(t *testing.T) {
	svc, users, otp, _ := newAuthServiceForTest(t)
	otp.verified["first@example.com"] = true
	otp.verified["second@example.com"] = true

	first, err := svc.Signup(context.Background(), SignupRequest{
		Email:     "first@example.com",
		Password:  "s3cretpass",
		FirstName: "Ana",
		LastName:  "Cruz",
		Role:      models.RoleStaff,
	})
	require.NoError(t, err)
	assert.Equal(t, models.CreationApproved, first.CreationStatus)
	require.NotNil(t, first.ActiveStatus)
	assert.Equal(t, models.ActiveStatusActive, *first.ActiveStatus)
	assert.False(t, otp.verified["first@example.com"], "verified flag should be consumed")

	second, err := svc.Signup(context.Background(), SignupRequest{
		Email:     "second@example.com",
		Password:  "s3cretpass",
		FirstName: "Ben",
		LastName:  "Lopez",
		Role:      models.RoleStaff,
	})
	require.NoError(t, err)
	assert.Equal(t, models.CreationPending, second.CreationStatus)
	assert.Nil(t, second.ActiveStatus)
	assert.Len(t, users.users, 2)
}

func TestAuthServiceSecretaryNeedsBarangay(t *testing.T) {
	svc, _, otp, _ := newAuthServiceForTest(t)
	otp.verified["sec@example.com"] = true

	_, err := svc.Signup(context.Background(), SignupRequest{
		Email:     "sec@example.com",
		Password:  "s3cretpass",
		FirstName: "Liza",
		LastName:  "Garcia",
		Role:      models.RoleSecretary,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	unknown := int64(404)
	_, err = svc.Signup(context.Background(), SignupRequest{
		Email:      "sec@example.com",
		Password:   "s3cretpass",
		FirstName:  "Liza",
		LastName:   "Garcia",
		Role:       models.RoleSecretary,
		BarangayID: &unknown,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	known := int64(7)
	user, err := svc.Signup(context.Background(), SignupRequest{
		Email:      "sec@example.com",
		Password:   "s3cretpass",
		FirstName:  "Liza",
		LastName:   "Garcia",
		Role:       models.RoleSecretary,
		BarangayID: &known,
	})
	require.NoError(t, err)
	assert.Equal(t, models.CreationPending, user.CreationStatus)
}

func TestAuthServiceLoginLifecycleGates(t *testing.T) {
	svc, users, _, _ := newAuthServiceForTest(t)
	active := models.ActiveStatusActive
	deactivated := models.ActiveStatusDeactivated

	seedAccount(users, "pending@example.com", models.RoleSecretary, models.CreationPending, nil)
	seedAccount(users, "rejected@example.com", models.RoleSecretary, models.CreationRejected, nil)
	seedAccount(users, "inactive@example.com", models.RoleSecretary, models.CreationApproved, &deactivated)
	seedAccount(users, "ok@example.com", models.RoleStaff, models.CreationApproved, &active)

	cases := []struct {
		email string
		code  string
	}{
		{"pending@example.com", appErrors.ErrAccountPending.Code},
		{"rejected@example.com", appErrors.ErrAccountRejected.Code},
		{"inactive@example.com", appErrors.ErrAccountInactive.Code},
	}
	for _, tc := range cases {
		_, err := svc.Login(context.Background(), models.LoginRequest{Email: tc.email, Password: "s3cretpass"})
		require.Error(t, err, tc.email)
		assert.Equal(t, tc.code, appErrors.FromError(err).Code, tc.email)
	}

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "ok@example.com", Password: "s3cretpass"})
	require.NoError(t, err)
	require.NotEmpty(t, resp.AccessToken)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, models.RoleStaff, claims.Role)
	assert.Equal(t, "ok@example.com", claims.Email)
}

func TestAuthServiceLoginBadPassword(t *testing.T) {
	svc, users, _, _ := newAuthServiceForTest(t)
	active := models.ActiveStatusActive
	seedAccount(users, "ok@example.com", models.RoleStaff, models.CreationApproved, &active)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "ok@example.com", Password: "wrong-pass"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)

	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "ghost@example.com", Password: "s3cretpass"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceOTPFlow(t *testing.T) {
	svc, _, otp, mail := newAuthServiceForTest(t)

	require.NoError(t, svc.RequestOTP(context.Background(), "User@Example.com"))
	code, ok := otp.codes["user@example.com"]
	require.True(t, ok)
	require.Len(t, code, 6)
	assert.Len(t, mail.sent, 1)

	require.Error(t, svc.VerifyOTP(context.Background(), "user@example.com", "000000x"))
	require.NoError(t, svc.VerifyOTP(context.Background(), "user@example.com", code))
	assert.True(t, otp.verified["user@example.com"])
}

func TestAuthServicePasswordReset(t *testing.T) {
	svc, users, otp, _ := newAuthServiceForTest(t)
	active := models.ActiveStatusActive
	account := seedAccount(users, "ok@example.com", models.RoleStaff, models.CreationApproved, &active)

	// unknown email must not error to avoid leaking registrations
	require.NoError(t, svc.ForgotPassword(context.Background(), "ghost@example.com"))
	assert.Empty(t, otp.codes["ghost@example.com"])

	require.NoError(t, svc.ForgotPassword(context.Background(), "ok@example.com"))
	code := otp.codes["ok@example.com"]
	require.NotEmpty(t, code)

	require.NoError(t, svc.ResetPassword(context.Background(), ResetPasswordRequest{
		Email:       "ok@example.com",
		Code:        code,
		NewPassword: "brandnewpass",
	}))
	stored := users.users[account.ID]
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("brandnewpass")))
}
