package services

import (
	"context"
	"testing"
	"time"

	"github.com/prudhvinik1/medsync/internal/models"
	"github.com/prudhvinik1/medsync/internal/notify"
	"github.com/prudhvinik1/medsync/internal/utils"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const testPassword = "Secret#123"

type testEnv struct {
	clock        *fakeClock
	store        *memStore
	sender       *recordingSender
	signer       *utils.JWTSigner
	limiter      *RateLimiter
	verification *VerificationService
	registration *RegistrationService
	sessions     *SessionService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := zap.NewNop()
	clock := newFakeClock()
	store := newMemStore(clock)
	sender := &recordingSender{}
	hasher := utils.NewBcryptHasher(bcrypt.MinCost)
	signer := utils.NewJWTSigner("test-secret")

	limiter := NewRateLimiter(memAccounts{store}, memTokens{store}, RateLimitConfig{})
	limiter.now = clock.Now

	verification := NewVerificationService(store, memAccounts{store}, memTokens{store}, limiter,
		notify.NewSyncDispatcher(sender, logger), 24*time.Hour, logger)
	verification.now = clock.Now

	return &testEnv{
		clock:        clock,
		store:        store,
		sender:       sender,
		signer:       signer,
		limiter:      limiter,
		verification: verification,
		registration: NewRegistrationService(store, memAccounts{store}, limiter, hasher, verification, logger),
		sessions:     NewSessionService(memAccounts{store}, hasher, signer, 24*time.Hour, logger),
	}
}

func registerRequest(email string, role models.Role) RegisterRequest {
	return RegisterRequest{
		Name:            "Jane Doe",
		Email:           email,
		Password:        testPassword,
		ConfirmPassword: testPassword,
		Role:            role,
		TermsAccepted:   true,
	}
}

// mustRegister registers an account and returns it with the token that was mailed.
func (e *testEnv) mustRegister(t *testing.T, email string, role models.Role) (*models.Account, string) {
	t.Helper()

	account, err := e.registration.Register(context.Background(), registerRequest(email, role))
	require.NoError(t, err)

	link := e.sender.last()
	require.Equal(t, email, link.email)
	return account, link.token
}
