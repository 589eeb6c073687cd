package services

import (
	"context"
	"time"

	"github.com/prudhvinik1/medsync/internal/models"
	"github.com/prudhvinik1/medsync/internal/utils"
)

type PasswordHasher interface {
	Hash(password string) (string, error)
	Matches(password, hashedPassword string) bool
}

type SessionSigner interface {
	Issue(subject string, claims map[string]string, ttl time.Duration) (token string, expiresAt time.Time, err error)
	Verify(token string) (*utils.SessionClaims, error)
}

// TokenIssuer starts the verification flow for a freshly created account.
type TokenIssuer interface {
	IssueToken(ctx context.Context, account *models.Account) error
}
