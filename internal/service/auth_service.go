package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/bsorms/bsorms-api/internal/models"
	appErrors "github.com/bsorms/bsorms-api/pkg/errors"
)

type authUserStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	CountByRole(ctx context.Context, role models.UserRole) (int, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}

type otpCodeStore interface {
	SaveCode(ctx context.Context, email, code string) error
	ConsumeCode(ctx context.Context, email, code string) (bool, error)
	MarkVerified(ctx context.Context, email string) error
	IsVerified(ctx context.Context, email string) (bool, error)
	ClearVerified(ctx context.Context, email string) error
}

type barangayCatalog interface {
	FindBarangay(ctx context.Context, id int64) (*models.Barangay, error)
}

// mailSender is the narrow outbound email surface. Deliveries on side
// paths are best-effort; callers log failures and keep going.
type mailSender interface {
	Configured() bool
	Send(to []string, subject, body string) error
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
	OTPDigits  int
}

// SignupRequest carries a new account registration.
type SignupRequest struct {
	Email           string          `json:"email" validate:"required,email"`
	Password        string          `json:"password" validate:"required,min=8"`
	FirstName       string          `json:"first_name" validate:"required"`
	LastName        string          `json:"last_name" validate:"required"`
	DateOfBirth     string          `json:"date_of_birth"`
	Role            models.UserRole `json:"role" validate:"required,oneof=MLGOO_STAFF BARANGAY_SECRETARY"`
	BarangayID      *int64          `json:"barangay_id"`
	ValidIDTypeID   *int64          `json:"valid_id_type_id"`
	IDImageURL      *string         `json:"id_image_url"`
	IDImagePublicID *string         `json:"id_image_public_id"`
}

// ResetPasswordRequest completes an OTP-verified password reset.
type ResetPasswordRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Code        string `json:"code" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

// AuthService provides signup, OTP, and login use cases.
type AuthService struct {
	repo      authUserStore
	otp       otpCodeStore
	barangays barangayCatalog
	mailer    mailSender
	audit     auditRecorder
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(repo authUserStore, otp otpCodeStore, barangays barangayCatalog, mailer mailSender, audit auditRecorder, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.OTPDigits <= 0 {
		config.OTPDigits = 6
	}
	return &AuthService{repo: repo, otp: otp, barangays: barangays, mailer: mailer, audit: audit, validator: validate, logger: logger, config: config}
}

// RequestOTP issues a verification code to the email.
func (s *AuthService) RequestOTP(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return appErrors.Clone(appErrors.ErrValidation, "email is required")
	}
	code, err := s.generateCode()
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate verification code")
	}
	if err := s.otp.SaveCode(ctx, email, code); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store verification code")
	}
	if err := s.sendMail(email, "Your verification code",
		fmt.Sprintf("Your one-time verification code is %s. It expires shortly.", code)); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to send verification code")
	}
	return nil
}

// VerifyOTP consumes the code and flags the email as verified for signup
// or password reset.
func (s *AuthService) VerifyOTP(ctx context.Context, email, code string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	ok, err := s.otp.ConsumeCode(ctx, email, code)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify code")
	}
	if !ok {
		return appErrors.Clone(appErrors.ErrValidation, "invalid or expired verification code")
	}
	if err := s.otp.MarkVerified(ctx, email); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record verification")
	}
	return nil
}

// Signup registers a new account after email verification. The first
// MLGOO staff account is auto-approved and activated; every other account
// starts PENDING.
func (s *AuthService) Signup(ctx context.Context, req SignupRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid signup payload")
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	verified, err := s.otp.IsVerified(ctx, email)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email verification")
	}
	if !verified {
		return nil, appErrors.Clone(appErrors.ErrValidation, "email has not been verified")
	}

	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email uniqueness")
	}

	var dateOfBirth *time.Time
	if req.DateOfBirth != "" {
		parsed, err := time.Parse("2006-01-02", req.DateOfBirth)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "date_of_birth must be a date in YYYY-MM-DD format")
		}
		dateOfBirth = &parsed
	}

	if req.Role == models.RoleSecretary {
		if req.BarangayID == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "barangay_id is required for barangay secretaries")
		}
		if _, err := s.barangays.FindBarangay(ctx, *req.BarangayID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrValidation, "unknown barangay")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check barangay")
		}
	}

	creation := models.CreationPending
	var active *models.ActiveStatus
	if req.Role == models.RoleStaff {
		staffCount, err := s.repo.CountByRole(ctx, models.RoleStaff)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count staff accounts")
		}
		if staffCount == 0 {
			creation = models.CreationApproved
			activated := models.ActiveStatusActive
			active = &activated
		}
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		Email:           email,
		PasswordHash:    string(passwordHash),
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		DateOfBirth:     dateOfBirth,
		Role:            req.Role,
		CreationStatus:  creation,
		ActiveStatus:    active,
		BarangayID:      req.BarangayID,
		ValidIDTypeID:   req.ValidIDTypeID,
		IDImageURL:      req.IDImageURL,
		IDImagePublicID: req.IDImagePublicID,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create account")
	}

	if err := s.otp.ClearVerified(ctx, email); err != nil {
		s.logger.Sugar().Warnw("failed to clear verified flag", "email", email, "error", err)
	}
	return user, nil
}

// Login authenticates a user and issues an access token.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	user, err := s.repo.FindByEmail(ctx, strings.ToLower(req.Email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrInvalidCredentials
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.ErrInvalidCredentials
	}

	switch user.CreationStatus {
	case models.CreationPending:
		return nil, appErrors.ErrAccountPending
	case models.CreationRejected:
		return nil, appErrors.ErrAccountRejected
	}
	if user.ActiveStatus != nil && *user.ActiveStatus == models.ActiveStatusDeactivated {
		return nil, appErrors.ErrAccountInactive
	}

	now := time.Now().UTC()
	expiresAt := now.Add(s.config.Expiration)
	claims := &models.JWTClaims{
		UserID:     user.ID,
		Role:       user.Role,
		Email:      user.Email,
		BarangayID: user.BarangayID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.Secret))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign access token")
	}

	if err := s.audit.Create(ctx, &models.LogEntry{
		Action:  models.LogActionLogin,
		UserID:  &user.ID,
		Details: fmt.Sprintf("%s signed in", user.FullName()),
	}); err != nil {
		s.logger.Sugar().Warnw("failed to record login", "user_id", user.ID, "error", err)
	}

	return &models.LoginResponse{
		AccessToken: token,
		ExpiresIn:   int64(s.config.Expiration.Seconds()),
		IssuedAt:    now,
		User: models.UserInfo{
			ID:           user.ID,
			Email:        user.Email,
			FirstName:    user.FirstName,
			LastName:     user.LastName,
			Role:         user.Role,
			BarangayID:   user.BarangayID,
			BarangayName: user.BarangayName,
		},
	}, nil
}

// ValidateToken parses and verifies an access token.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	claims := &models.JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	})
	if err != nil || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired token")
	}
	return claims, nil
}

// ForgotPassword issues a reset code when the account exists. The response
// is identical either way so the endpoint does not leak registrations.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return appErrors.Clone(appErrors.ErrValidation, "email is required")
	}
	if _, err := s.repo.FindByEmail(ctx, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}

	code, err := s.generateCode()
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate reset code")
	}
	if err := s.otp.SaveCode(ctx, email, code); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store reset code")
	}
	if err := s.sendMail(email, "Password reset code",
		fmt.Sprintf("Your password reset code is %s. It expires shortly.", code)); err != nil {
		s.logger.Sugar().Warnw("failed to send reset code", "email", email, "error", err)
	}
	return nil
}

// ResetPassword consumes the reset code and replaces the password hash.
func (s *AuthService) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reset payload")
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	ok, err := s.otp.ConsumeCode(ctx, email, req.Code)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify code")
	}
	if !ok {
		return appErrors.Clone(appErrors.ErrValidation, "invalid or expired reset code")
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "account not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	if err := s.repo.UpdatePassword(ctx, user.ID, string(passwordHash)); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update password")
	}
	return nil
}

func (s *AuthService) generateCode() (string, error) {
	limit := big.NewInt(1)
	for i := 0; i < s.config.OTPDigits; i++ {
		limit.Mul(limit, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", s.config.OTPDigits, n), nil
}

func (s *AuthService) sendMail(to, subject, body string) error {
	if s.mailer == nil || !s.mailer.Configured() {
		s.logger.Sugar().Infow("mailer not configured; skipping delivery", "to", to, "subject", subject)
		return nil
	}
	return s.mailer.Send([]string{to}, subject, body)
}
