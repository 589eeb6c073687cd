package services

import (
	"context"
	"errors"
	"testing"

	"github.com/prudhvinik1/medsync/internal/models"
	"github.com/prudhvinik1/medsync/internal/xerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister_CreatesUnverifiedAccount(t *testing.T) {
	env := newTestEnv(t)

	account, token := env.mustRegister(t, "jane@example.com", models.RolePatient)

	stored := env.store.account(account.ID)
	assert.False(t, stored.EmailVerified)
	assert.False(t, stored.Approved)
	assert.False(t, stored.Deleted)
	assert.Equal(t, models.RolePatient, stored.Role)
	assert.NotEqual(t, testPassword, stored.PasswordHash, "Password must be stored hashed")

	assert.NotEmpty(t, token)
	assert.Equal(t, 1, env.store.activeTokens(account.ID))
}

func TestRegister_ValidationOrder(t *testing.T) {
	tests := []struct {
		name   string
		modify func(r *RegisterRequest)
		want   error
	}{
		{
			name: "password mismatch wins over everything",
			modify: func(r *RegisterRequest) {
				r.ConfirmPassword = "other"
				r.Role = models.RoleAdmin
				r.TermsAccepted = false
			},
			want: xerrors.ErrPasswordMismatch,
		},
		{
			name: "admin wins over terms",
			modify: func(r *RegisterRequest) {
				r.Role = models.RoleAdmin
				r.TermsAccepted = false
			},
			want: xerrors.ErrAdminRegistrationDisabled,
		},
		{
			name:   "admin with otherwise valid input",
			modify: func(r *RegisterRequest) { r.Role = models.RoleAdmin },
			want:   xerrors.ErrAdminRegistrationDisabled,
		},
		{
			name:   "terms not accepted",
			modify: func(r *RegisterRequest) { r.TermsAccepted = false },
			want:   xerrors.ErrTermsNotAccepted,
		},
		{
			name:   "unknown role",
			modify: func(r *RegisterRequest) { r.Role = "NURSE" },
			want:   xerrors.ErrInvalidRole,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			req := registerRequest("jane@example.com", models.RolePatient)
			tt.modify(&req)

			account, err := env.registration.Register(context.Background(), req)

			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, account)
			assert.Zero(t, env.store.accountCount("jane@example.com"), "No account should be created")
			assert.Zero(t, env.sender.count())
		})
	}
}

func TestRegister_EmailExists(t *testing.T) {
	env := newTestEnv(t)
	env.mustRegister(t, "jane@example.com", models.RolePatient)

	_, err := env.registration.Register(context.Background(), registerRequest("jane@example.com", models.RoleDoctor))

	assert.ErrorIs(t, err, xerrors.ErrEmailExists)
	assert.Equal(t, 1, env.store.accountCount("jane@example.com"))
}

func TestRegister_SoftDeletedEmailCanRegisterAgain(t *testing.T) {
	env := newTestEnv(t)
	first, _ := env.mustRegister(t, "jane@example.com", models.RolePatient)
	env.store.softDelete(first.ID)

	second, _ := env.mustRegister(t, "jane@example.com", models.RolePatient)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, 2, env.store.accountCount("jane@example.com"))
}

func TestRegister_SpamDetectedCountsDeletedAccounts(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < DefaultRegistrationLimit; i++ {
		account, _ := env.mustRegister(t, "spam@example.com", models.RolePatient)
		env.store.softDelete(account.ID)
	}

	_, err := env.registration.Register(context.Background(), registerRequest("spam@example.com", models.RolePatient))
	assert.ErrorIs(t, err, xerrors.ErrSpamDetected)

	// The window rolls
	env.clock.Advance(DefaultRateLimitWindow + 1)
	_, err = env.registration.Register(context.Background(), registerRequest("spam@example.com", models.RolePatient))
	assert.NoError(t, err)
}

func TestRegister_UniqueViolationBecomesDuplicateEntry(t *testing.T) {
	env := newTestEnv(t)
	env.mustRegister(t, "race@example.com", models.RolePatient)

	// The existence check misses the concurrent insert
	env.store.hideExisting = true
	_, err := env.registration.Register(context.Background(), registerRequest("race@example.com", models.RolePatient))

	assert.ErrorIs(t, err, xerrors.ErrDuplicateEntry)
	assert.Equal(t, 1, env.store.accountCount("race@example.com"))
}

func TestRegister_TokenFailureDoesNotFailRegistration(t *testing.T) {
	env := newTestEnv(t)
	env.store.createTokenErr = errors.New("token store down")

	account, err := env.registration.Register(context.Background(), registerRequest("jane@example.com", models.RolePatient))

	require.NoError(t, err)
	assert.Equal(t, 1, env.store.accountCount("jane@example.com"))
	assert.Zero(t, env.store.activeTokens(account.ID))
	assert.Zero(t, env.sender.count())
}

func TestRegister_NotificationFailureIsNotSurfaced(t *testing.T) {
	env := newTestEnv(t)
	env.sender.fails = true

	account, err := env.registration.Register(context.Background(), registerRequest("jane@example.com", models.RolePatient))

	require.NoError(t, err)
	assert.Equal(t, 1, env.store.activeTokens(account.ID), "The token exists and can be resent")
}
