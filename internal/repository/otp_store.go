package repository

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// OTPStore keeps one-time passcodes and verified-email flags in Redis.
// Codes expire on their own; a successful verify consumes the code and
// leaves a short-lived verified marker that signup/reset then checks.
type OTPStore struct {
	client      *redis.Client
	ttl         time.Duration
	verifiedTTL time.Duration
}

// NewOTPStore constructs the store.
func NewOTPStore(client *redis.Client, ttl, verifiedTTL time.Duration) *OTPStore {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if verifiedTTL <= 0 {
		verifiedTTL = 30 * time.Minute
	}
	return &OTPStore{client: client, ttl: ttl, verifiedTTL: verifiedTTL}
}

func codeKey(email string) string {
	return "otp:code:" + email
}

func verifiedKey(email string) string {
	return "otp:verified:" + email
}

// SaveCode stores the code under the email with the configured TTL,
// replacing any earlier unexpired code.
func (s *OTPStore) SaveCode(ctx context.Context, email, code string) error {
	if err := s.client.Set(ctx, codeKey(email), code, s.ttl).Err(); err != nil {
		return fmt.Errorf("save otp code: %w", err)
	}
	return nil
}

// ConsumeCode checks the code and deletes it on match. It returns false for
// a missing, expired, or mismatched code.
func (s *OTPStore) ConsumeCode(ctx context.Context, email, code string) (bool, error) {
	stored, err := s.client.Get(ctx, codeKey(email)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("load otp code: %w", err)
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(code)) != 1 {
		return false, nil
	}
	if err := s.client.Del(ctx, codeKey(email)).Err(); err != nil {
		return false, fmt.Errorf("consume otp code: %w", err)
	}
	return true, nil
}

// MarkVerified flags the email as verified for the verified TTL window.
func (s *OTPStore) MarkVerified(ctx context.Context, email string) error {
	if err := s.client.Set(ctx, verifiedKey(email), "1", s.verifiedTTL).Err(); err != nil {
		return fmt.Errorf("mark email verified: %w", err)
	}
	return nil
}

// IsVerified reports whether the email holds an unexpired verified flag.
func (s *OTPStore) IsVerified(ctx context.Context, email string) (bool, error) {
	if err := s.client.Get(ctx, verifiedKey(email)).Err(); err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("check email verified: %w", err)
	}
	return true, nil
}

// ClearVerified drops the verified flag once signup has completed.
func (s *OTPStore) ClearVerified(ctx context.Context, email string) error {
	if err := s.client.Del(ctx, verifiedKey(email)).Err(); err != nil {
		return fmt.Errorf("clear email verified: %w", err)
	}
	return nil
}
