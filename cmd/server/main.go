package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"trailhead/backend/internal/config"
	"trailhead/backend/internal/httpserver"
	"trailhead/backend/internal/infrastructure/mailer"
	"trailhead/backend/internal/infrastructure/password"
	"trailhead/backend/internal/infrastructure/postgres"
	"trailhead/backend/internal/infrastructure/token"
	"trailhead/backend/internal/logging"
	authusecase "trailhead/backend/internal/usecase/auth"
	tourusecase "trailhead/backend/internal/usecase/tour"
	userusecase "trailhead/backend/internal/usecase/user"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := logging.Init(cfg.LogLevel, cfg.LogDev)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	sugar := logger.Sugar()

	rootCtx := context.Background()
	db, err := postgres.New(rootCtx, cfg.DatabaseURL)
	if err != nil {
		sugar.Fatalw("failed to connect to database", "err", err)
	}
	defer db.Close()
	if err := db.Migrate(rootCtx); err != nil {
		sugar.Fatalw("failed to run database migrations", "err", err)
	}

	tokenManager := token.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiry, cfg.JWTIssuer)
	hasher := password.NewBcryptHasher(cfg.BcryptCost)
	notifier := mailer.NewSMTPMailer(mailer.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	})

	identities := postgres.NewIdentityRepository(db.Pool)
	authService := authusecase.NewService(identities, tokenManager, hasher, notifier, cfg.ResetTokenTTL, sugar)
	userService := userusecase.NewService(identities, hasher)
	tourService := tourusecase.NewService(postgres.NewTourRepository(db.Pool))

	server := httpserver.NewServer(cfg, authService, userService, tourService, sugar)
	sugar.Infow("http server listening", "addr", server.Addr())

	go func() {
		if err := server.Start(); err != nil {
			if errors.Is(err, http.ErrServerClosed) {
				sugar.Infow("http server closed")
				return
			}
			sugar.Fatalw("server error", "err", err)
		}
	}()

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		sugar.Errorw("graceful shutdown failed", "err", err)
	} else {
		sugar.Infow("graceful shutdown completed")
	}
}
