package handlers

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/prudhvinik1/medsync/internal/models"
	"github.com/prudhvinik1/medsync/internal/services"
	"go.uber.org/zap"
)

type Registrar interface {
	Register(ctx context.Context, req services.RegisterRequest) (*models.Account, error)
}

type Verifier interface {
	Verify(ctx context.Context, token string) error
	Resend(ctx context.Context, email string) error
}

type SessionManager interface {
	Login(ctx context.Context, email, password string) (*services.LoginResponse, error)
	Authenticate(ctx context.Context, token string) (*models.Account, error)
}

type ProfileManager interface {
	GetProfile(ctx context.Context, accountID uuid.UUID) (*models.ProfileView, error)
	UpdateProfile(ctx context.Context, accountID uuid.UUID, update services.ProfileUpdate) (*models.ProfileView, error)
}

type Handler struct {
	registration  Registrar
	verification  Verifier
	sessions      SessionManager
	profiles      ProfileManager
	secureCookies bool
	logger        *zap.Logger
	now           func() time.Time
}

func NewHandler(
	registration Registrar,
	verification Verifier,
	sessions SessionManager,
	profiles ProfileManager,
	secureCookies bool,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		registration:  registration,
		verification:  verification,
		sessions:      sessions,
		profiles:      profiles,
		secureCookies: secureCookies,
		logger:        logger,
		now:           time.Now,
	}
}
