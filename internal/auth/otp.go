package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"time"

	redislib "github.com/redis/go-redis/v9"

	pkgerrors "github.com/tecbunny/tecbunny-backend/pkg/errors"
	"github.com/tecbunny/tecbunny-backend/pkg/security"
)

const (
	otpDigits      = 6
	otpTTL         = 5 * time.Minute
	otpMaxAttempts = 5

	otpPurposeLogin    = "login"
	otpPurposeAttempts = "login:attempts"
)

type otpStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	OTPKey(purpose, subject string) string
}

// issueOTP generates a fresh passcode and stores only its digest.
// Re-issuing overwrites the previous code and resets the clock, not the
// attempt counter.
func issueOTP(ctx context.Context, store otpStore, subject string) (string, error) {
	code, err := security.GenerateOTP(otpDigits)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate passcode")
	}
	if err := store.Set(ctx, store.OTPKey(otpPurposeLogin, subject), digestOTP(code), otpTTL); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store passcode")
	}
	return code, nil
}

// verifyOTP burns one attempt and compares digests in constant time.
// The stored code is deleted on success so it can never be replayed.
func verifyOTP(ctx context.Context, store otpStore, subject, code string) error {
	attemptsKey := store.OTPKey(otpPurposeAttempts, subject)
	attempts, err := store.IncrWithTTL(ctx, attemptsKey, otpTTL)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count passcode attempts")
	}
	if attempts > otpMaxAttempts {
		return pkgerrors.New(pkgerrors.CodeRateLimit, "too many passcode attempts")
	}

	key := store.OTPKey(otpPurposeLogin, subject)
	stored, err := store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return pkgerrors.New(pkgerrors.CodeUnauthorized, "passcode expired")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load passcode")
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(digestOTP(code))) != 1 {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid passcode")
	}

	if err := store.Del(ctx, key, attemptsKey); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear passcode")
	}
	return nil
}

func digestOTP(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}
