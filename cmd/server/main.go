package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anonto42/quill/internal/middleware"
	"github.com/anonto42/quill/internal/repositories"
	"github.com/anonto42/quill/internal/router"
	"github.com/anonto42/quill/internal/services"
	"github.com/anonto42/quill/pkg/config"
	"github.com/anonto42/quill/pkg/firebase"
	"github.com/anonto42/quill/validators"
	"github.com/labstack/echo/v4"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize storage
	db, err := config.InitDB(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize storage: %w", err)
	}
	defer db.CloseDB()

	// Seeding runs before the server accepts requests, so its stores need not
	// share the lock of the ones built by the router.
	if cfg.SeedSampleData {
		stores := repositories.NewStores(db.Backend, repositories.WithLogger(logger))
		backup := services.NewBackup(stores, repositories.SystemClock, logger)
		if _, err := backup.EnsureSampleData(ctx); err != nil {
			logger.Warn("sample data not written", "error", err)
		}
	}

	auth, verifier, err := authMiddleware(ctx, cfg, logger)
	if err != nil {
		return err
	}

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.Validator = validators.NewValidator()

	config.SetupMiddleware(e, logger)
	router.SetupRoutes(e, db.Backend, auth, logger)
	if verifier != nil && cfg.AuthMode == config.AuthJWT {
		router.SetupAuthRoutes(e, verifier, cfg.JWTSecret)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.Port, "env", cfg.Env, "storage", cfg.StorageDriver, "auth", cfg.AuthMode)
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// authMiddleware picks the guard for /api/v1. In jwt mode a Firebase
// verifier is still returned when credentials are present, so clients can
// exchange Firebase ID tokens for local ones.
func authMiddleware(ctx context.Context, cfg *config.Config, logger *slog.Logger) (echo.MiddlewareFunc, middleware.TokenVerifier, error) {
	if cfg.AuthMode == config.AuthFirebase {
		app, err := firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath)
		if err != nil {
			return nil, nil, fmt.Errorf("initialize firebase: %w", err)
		}
		return middleware.FirebaseAuthMiddleware(app.AuthClient), app.AuthClient, nil
	}

	guard := middleware.JWTAuthMiddleware(cfg.JWTSecret)
	if _, err := os.Stat(cfg.FirebaseCredentialsPath); err != nil {
		return guard, nil, nil
	}
	app, err := firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath)
	if err != nil {
		logger.Warn("firebase token exchange disabled", "error", err)
		return guard, nil, nil
	}
	return guard, app.AuthClient, nil
}
