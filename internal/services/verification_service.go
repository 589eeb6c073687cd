package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prudhvinik1/medsync/internal/metrics"
	"github.com/prudhvinik1/medsync/internal/models"
	"github.com/prudhvinik1/medsync/internal/notify"
	"github.com/prudhvinik1/medsync/internal/repositories"
	"github.com/prudhvinik1/medsync/internal/utils"
	"github.com/prudhvinik1/medsync/internal/xerrors"
	"go.uber.org/zap"
)

const DefaultTokenExpiry = 24 * time.Hour

// VerificationService drives the Unverified -> Verified transition. At most one
// token per account is valid: every issuance purges the earlier ones.
type VerificationService struct {
	tx          repositories.Transactor
	accounts    repositories.AccountRepository
	tokens      repositories.VerificationTokenRepository
	limiter     *RateLimiter
	dispatcher  notify.Dispatcher
	tokenExpiry time.Duration
	logger      *zap.Logger

	now           func() time.Time
	generateToken func() (string, error)
}

func NewVerificationService(
	tx repositories.Transactor,
	accounts repositories.AccountRepository,
	tokens repositories.VerificationTokenRepository,
	limiter *RateLimiter,
	dispatcher notify.Dispatcher,
	tokenExpiry time.Duration,
	logger *zap.Logger,
) *VerificationService {
	if tokenExpiry <= 0 {
		tokenExpiry = DefaultTokenExpiry
	}
	return &VerificationService{
		tx:            tx,
		accounts:      accounts,
		tokens:        tokens,
		limiter:       limiter,
		dispatcher:    dispatcher,
		tokenExpiry:   tokenExpiry,
		logger:        logger,
		now:           time.Now,
		generateToken: utils.GenerateVerificationToken,
	}
}

// IssueToken replaces every token the account holds with a fresh one and hands
// the link to the dispatcher once the token is committed.
func (s *VerificationService) IssueToken(ctx context.Context, account *models.Account) error {
	var token string
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.limiter.CheckResend(ctx, account.Email); err != nil {
			return err
		}
		if err := s.tokens.DeleteAllForAccount(ctx, account.ID); err != nil {
			return err
		}

		value, err := s.generateToken()
		if err != nil {
			return err
		}

		vt := &models.VerificationToken{
			Token:      value,
			AccountID:  account.ID,
			ExpiryDate: s.now().Add(s.tokenExpiry),
		}
		if err := s.tokens.Create(ctx, vt); err != nil {
			return fmt.Errorf("failed to store verification token: %w", err)
		}
		token = vt.Token
		return nil
	})
	if err != nil {
		return err
	}

	metrics.TokensIssued.Inc()
	s.dispatcher.Dispatch(account.Email, token)
	return nil
}

// Verify consumes token. Checks run in a fixed order: existence, used, expiry,
// then the owning account's state.
func (s *VerificationService) Verify(ctx context.Context, token string) error {
	err := s.verify(ctx, strings.TrimSpace(token))
	metrics.Verifications.WithLabelValues(metrics.Outcome(err)).Inc()
	return err
}

func (s *VerificationService) verify(ctx context.Context, token string) error {
	if token == "" {
		return xerrors.ErrInvalidToken
	}

	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		vt, err := s.tokens.GetByToken(ctx, token)
		if errors.Is(err, repositories.ErrNotFound) {
			return xerrors.ErrInvalidToken
		}
		if err != nil {
			return err
		}
		if vt.Used {
			return xerrors.ErrTokenAlreadyUsed
		}
		if vt.Expired(s.now()) {
			return xerrors.ErrTokenExpired
		}

		account, err := s.accounts.GetByID(ctx, vt.AccountID)
		if errors.Is(err, repositories.ErrNotFound) {
			return xerrors.ErrInvalidToken
		}
		if err != nil {
			return err
		}
		if account.EmailVerified {
			return xerrors.ErrAlreadyVerified
		}
		if account.Deleted {
			return xerrors.ErrUserDeleted
		}

		account.EmailVerified = true
		// Doctors and pharmacists stay pending until approved out of band.
		if account.Role == models.RolePatient {
			account.Approved = true
		}
		if err := s.accounts.Save(ctx, account); err != nil {
			return translate(err)
		}

		if err := s.tokens.MarkUsed(ctx, vt); err != nil {
			if errors.Is(err, repositories.ErrVersionConflict) {
				return xerrors.ErrTokenAlreadyUsed
			}
			return err
		}
		// The consumed token stays behind as used so a replay reports
		// TokenAlreadyUsed rather than InvalidToken.
		if err := s.tokens.DeleteAllForAccountExcept(ctx, account.ID, vt.ID); err != nil {
			return err
		}

		s.logger.Info("email verified",
			zap.String("account_id", account.ID.String()),
			zap.Bool("approved", account.Approved),
		)
		return nil
	})
}

// Resend issues a new token for email. Unknown and deleted accounts get the
// same nil result as a successful send so callers cannot probe for accounts.
func (s *VerificationService) Resend(ctx context.Context, email string) error {
	account, err := s.accounts.GetByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, repositories.ErrNotFound) {
		s.logger.Debug("verification resend for unknown email")
		return nil
	}
	if err != nil {
		return err
	}
	if account.Deleted {
		return nil
	}
	if account.EmailVerified {
		return xerrors.ErrAlreadyVerified
	}
	return s.IssueToken(ctx, account)
}

// ApproveAccount is the manual approval hook for roles that are not approved on
// verification. Approving an approved account is a no-op.
func (s *VerificationService) ApproveAccount(ctx context.Context, accountID uuid.UUID) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		account, err := s.accounts.GetByID(ctx, accountID)
		if err != nil {
			return translate(err)
		}
		if account.Deleted {
			return xerrors.ErrUserDeleted
		}
		if !account.EmailVerified {
			return xerrors.ErrEmailNotVerified
		}
		if account.Approved {
			return nil
		}
		if err := s.accounts.Approve(ctx, account.ID); err != nil {
			return translate(err)
		}

		s.logger.Info("account approved", zap.String("account_id", account.ID.String()))
		return nil
	})
}
