package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/prudhvinik1/medsync/internal/metrics"
	"github.com/prudhvinik1/medsync/internal/models"
	"github.com/prudhvinik1/medsync/internal/repositories"
	"github.com/prudhvinik1/medsync/internal/xerrors"
	"go.uber.org/zap"
)

const DefaultSessionTTL = 24 * time.Hour

// SessionService authenticates credentials and issues stateless session
// tokens. There is no server-side revocation.
type SessionService struct {
	accounts repositories.AccountRepository
	hasher   PasswordHasher
	signer   SessionSigner
	ttl      time.Duration
	logger   *zap.Logger

	dummyOnce sync.Once
	dummyHash string
}

type LoginResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	Email     string      `json:"email"`
	Name      string      `json:"name"`
	Role      models.Role `json:"role"`
}

func NewSessionService(
	accounts repositories.AccountRepository,
	hasher PasswordHasher,
	signer SessionSigner,
	ttl time.Duration,
	logger *zap.Logger,
) *SessionService {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionService{
		accounts: accounts,
		hasher:   hasher,
		signer:   signer,
		ttl:      ttl,
		logger:   logger,
	}
}

func (s *SessionService) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	resp, err := s.login(ctx, strings.TrimSpace(email), password)
	metrics.Logins.WithLabelValues(metrics.Outcome(err)).Inc()
	return resp, err
}

func (s *SessionService) login(ctx context.Context, email, password string) (*LoginResponse, error) {
	account, err := s.accounts.GetByEmail(ctx, email)
	if errors.Is(err, repositories.ErrNotFound) {
		// Burn a comparison so unknown emails cost the same as wrong passwords.
		s.hasher.Matches(password, s.placeholderHash())
		return nil, xerrors.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	if account.Deleted || !s.hasher.Matches(password, account.PasswordHash) {
		return nil, xerrors.ErrInvalidCredentials
	}
	if !account.EmailVerified {
		return nil, xerrors.ErrEmailNotVerified
	}
	if !account.Approved {
		return nil, xerrors.ErrAccountPending
	}

	token, expiresAt, err := s.signer.Issue(account.Email, map[string]string{
		"role": string(account.Role),
		"name": account.Name,
	}, s.ttl)
	if err != nil {
		return nil, fmt.Errorf("failed to issue session token: %w", err)
	}

	return &LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		Email:     account.Email,
		Name:      account.Name,
		Role:      account.Role,
	}, nil
}

// Authenticate resolves a session token to its live account. Any failure is
// reported as ErrUnauthorized.
func (s *SessionService) Authenticate(ctx context.Context, token string) (*models.Account, error) {
	claims, err := s.signer.Verify(token)
	if err != nil {
		return nil, xerrors.ErrUnauthorized
	}

	account, err := s.accounts.GetByEmail(ctx, claims.Subject)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, xerrors.ErrUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account.Deleted {
		return nil, xerrors.ErrUnauthorized
	}
	return account, nil
}

func (s *SessionService) placeholderHash() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash("medsync-placeholder-password")
		if err != nil {
			s.logger.Warn("failed to build placeholder hash", zap.Error(err))
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}
