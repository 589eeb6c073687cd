package services

import (
	"context"
	"fmt"
	"time"

	"github.com/prudhvinik1/medsync/internal/repositories"
	"github.com/prudhvinik1/medsync/internal/xerrors"
)

const (
	DefaultRegistrationLimit = 3
	DefaultResendLimit       = 5
	DefaultRateLimitWindow   = time.Hour
)

type RateLimitConfig struct {
	RegistrationLimit int
	ResendLimit       int
	Window            time.Duration
}

// RateLimiter counts recent rows in the stores; it keeps no state of its own.
// The count and the insert that follows are not atomic, so a burst of
// concurrent requests for one email can overshoot the limit by the number in
// flight.
type RateLimiter struct {
	accounts repositories.AccountRepository
	tokens   repositories.VerificationTokenRepository
	cfg      RateLimitConfig
	now      func() time.Time
}

func NewRateLimiter(
	accounts repositories.AccountRepository,
	tokens repositories.VerificationTokenRepository,
	cfg RateLimitConfig,
) *RateLimiter {
	if cfg.RegistrationLimit <= 0 {
		cfg.RegistrationLimit = DefaultRegistrationLimit
	}
	if cfg.ResendLimit <= 0 {
		cfg.ResendLimit = DefaultResendLimit
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultRateLimitWindow
	}
	return &RateLimiter{
		accounts: accounts,
		tokens:   tokens,
		cfg:      cfg,
		now:      time.Now,
	}
}

// CheckRegistration counts accounts created for email in the window, soft-deleted ones included.
func (l *RateLimiter) CheckRegistration(ctx context.Context, email string) error {
	count, err := l.accounts.CountCreatedSince(ctx, email, l.now().Add(-l.cfg.Window))
	if err != nil {
		return fmt.Errorf("failed to check registration rate: %w", err)
	}
	if count >= int64(l.cfg.RegistrationLimit) {
		return xerrors.ErrSpamDetected
	}
	return nil
}

// CheckResend counts verification tokens issued for email in the window.
func (l *RateLimiter) CheckResend(ctx context.Context, email string) error {
	count, err := l.tokens.CountIssuedSince(ctx, email, l.now().Add(-l.cfg.Window))
	if err != nil {
		return fmt.Errorf("failed to check resend rate: %w", err)
	}
	if count >= int64(l.cfg.ResendLimit) {
		return xerrors.ErrResendLimitExceeded
	}
	return nil
}
