package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/prudhvinik1/medsync/internal/metrics"
	"github.com/prudhvinik1/medsync/internal/models"
	"github.com/prudhvinik1/medsync/internal/repositories"
	"github.com/prudhvinik1/medsync/internal/xerrors"
	"go.uber.org/zap"
)

type RegistrationService struct {
	tx       repositories.Transactor
	accounts repositories.AccountRepository
	limiter  *RateLimiter
	hasher   PasswordHasher
	issuer   TokenIssuer
	logger   *zap.Logger
}

type RegisterRequest struct {
	Name            string
	Email           string
	Password        string
	ConfirmPassword string
	Role            models.Role
	TermsAccepted   bool
}

func NewRegistrationService(
	tx repositories.Transactor,
	accounts repositories.AccountRepository,
	limiter *RateLimiter,
	hasher PasswordHasher,
	issuer TokenIssuer,
	logger *zap.Logger,
) *RegistrationService {
	return &RegistrationService{
		tx:       tx,
		accounts: accounts,
		limiter:  limiter,
		hasher:   hasher,
		issuer:   issuer,
		logger:   logger,
	}
}

// Register creates an unverified, unapproved account and starts email
// verification. A failure to issue the verification token is logged only: the
// account exists and the caller can ask for a resend.
func (s *RegistrationService) Register(ctx context.Context, req RegisterRequest) (*models.Account, error) {
	account, err := s.register(ctx, req)
	metrics.Registrations.WithLabelValues(string(req.Role), metrics.Outcome(err)).Inc()
	if err != nil {
		return nil, err
	}

	s.logger.Info("account registered",
		zap.String("account_id", account.ID.String()),
		zap.String("role", string(account.Role)),
	)

	if err := s.issuer.IssueToken(ctx, account); err != nil {
		s.logger.Warn("failed to issue verification token after registration",
			zap.String("account_id", account.ID.String()),
			zap.Error(err),
		)
	}
	return account, nil
}

func (s *RegistrationService) register(ctx context.Context, req RegisterRequest) (*models.Account, error) {
	if req.Password != req.ConfirmPassword {
		return nil, xerrors.ErrPasswordMismatch
	}
	if req.Role == models.RoleAdmin {
		return nil, xerrors.ErrAdminRegistrationDisabled
	}
	if !req.TermsAccepted {
		return nil, xerrors.ErrTermsNotAccepted
	}
	if !req.Role.Valid() {
		return nil, xerrors.ErrInvalidRole
	}

	email := strings.TrimSpace(req.Email)

	var account *models.Account
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.limiter.CheckRegistration(ctx, email); err != nil {
			return err
		}

		exists, err := s.accounts.ExistsByEmail(ctx, email)
		if err != nil {
			return err
		}
		if exists {
			return xerrors.ErrEmailExists
		}

		hashedPassword, err := s.hasher.Hash(req.Password)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}

		account = &models.Account{
			Email:        email,
			PasswordHash: hashedPassword,
			Name:         strings.TrimSpace(req.Name),
			Role:         req.Role,
		}
		if err := s.accounts.Create(ctx, account); err != nil {
			if errors.Is(err, repositories.ErrDuplicate) {
				return xerrors.ErrDuplicateEntry
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}
