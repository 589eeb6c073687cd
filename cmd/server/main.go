package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prudhvinik1/medsync/internal/config"
	"github.com/prudhvinik1/medsync/internal/database"
	"github.com/prudhvinik1/medsync/internal/handlers"
	"github.com/prudhvinik1/medsync/internal/notify"
	"github.com/prudhvinik1/medsync/internal/repositories"
	"github.com/prudhvinik1/medsync/internal/services"
	"github.com/prudhvinik1/medsync/internal/storage"
	"github.com/prudhvinik1/medsync/internal/utils"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server exited with error", zap.Error(err))
	}
	logger.Info("server stopped gracefully")
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsDevelopment() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database connections
	postgresPool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return fmt.Errorf("failed to create postgres pool: %w", err)
	}
	defer postgresPool.Close()

	if err := database.Migrate(ctx, postgresPool); err != nil {
		return err
	}

	redisClient, err := database.NewRedisClient(ctx, cfg.RedisURL, logger)
	if err != nil {
		return fmt.Errorf("failed to create redis client: %w", err)
	}
	defer redisClient.Close()

	objectStore, err := storage.NewMinioStore(ctx, cfg.Storage, logger)
	if err != nil {
		return err
	}

	// Stores
	tx := repositories.NewPostgresTransactor(postgresPool)
	accountRepo := repositories.NewPostgresAccountRepository(postgresPool)
	tokenRepo := repositories.NewPostgresVerificationTokenRepository(postgresPool)
	documentRepo := repositories.NewPostgresDocumentRepository(postgresPool)

	// Notifications
	mailer := notify.NewSMTPMailer(cfg.SMTP, cfg.FrontendURL, cfg.VerificationTokenExpiry)
	var (
		dispatcher notify.Dispatcher
		queue      *notify.RedisQueue
	)
	switch cfg.Notify.Mode {
	case "redis":
		queue = notify.NewRedisQueue(redisClient, cfg.Notify.Queue, mailer, logger)
		dispatcher = queue
	case "async":
		async := notify.NewAsyncDispatcher(mailer, cfg.Notify.Workers, 256, logger)
		defer async.Close()
		dispatcher = async
	default:
		dispatcher = notify.NewSyncDispatcher(mailer, logger)
	}

	// Services
	hasher := utils.NewBcryptHasher(utils.BcryptCost)
	signer := utils.NewJWTSigner(cfg.JWTSecret)
	limiter := services.NewRateLimiter(accountRepo, tokenRepo, services.RateLimitConfig{
		RegistrationLimit: cfg.RegistrationSpamLimit,
		ResendLimit:       cfg.VerificationResendLimit,
		Window:            cfg.RateLimitWindow,
	})
	verificationService := services.NewVerificationService(tx, accountRepo, tokenRepo, limiter, dispatcher, cfg.VerificationTokenExpiry, logger)
	registrationService := services.NewRegistrationService(tx, accountRepo, limiter, hasher, verificationService, logger)
	sessionService := services.NewSessionService(accountRepo, hasher, signer, cfg.JWTExpiry, logger)
	profileService := services.NewProfileService(tx, accountRepo, documentRepo, objectStore, logger)

	handler := handlers.NewHandler(
		registrationService,
		verificationService,
		sessionService,
		profileService,
		!cfg.IsDevelopment(),
		logger,
	)
	router := handlers.NewRouter(handler, handlers.RouterOptions{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		FilesBaseURL:   objectStore.PublicURL(),
		HealthCheck: func(ctx context.Context) error {
			if err := postgresPool.Ping(ctx); err != nil {
				return err
			}
			return redisClient.Ping(ctx).Err()
		},
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting server", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	if queue != nil {
		g.Go(func() error {
			return queue.Consume(gctx)
		})
	}

	// graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
