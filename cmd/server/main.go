package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/amirasaad/tripledger/infra/initializer"
	"github.com/amirasaad/tripledger/pkg/app"
	"github.com/amirasaad/tripledger/pkg/config"
	"github.com/amirasaad/tripledger/webapi"
	log "github.com/charmbracelet/log"
)

const shutdownTimeout = 10 * time.Second

// @title Trip Ledger API
// @version 1.0.0
// @description Purchase reconciliation ledger for the travel storefront.
// @license.name MIT
// @host localhost:3000
// @BasePath /
//
// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Enter your Bearer token in the format: Bearer {token}
//
// @securityDefinitions.apikey InternalToken
// @in header
// @name X-Internal-Token
// @description Shared token held by the checkout and payment services.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, ".env"); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, envFile string) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return fmt.Errorf("failed to load application configuration: %w", err)
	}

	deps, err := initializer.InitializeDependencies(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	logger := deps.Logger

	a := app.New(deps, cfg)
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("Failed to release resources", "error", err)
		}
	}()

	fiberApp := webapi.SetupApp(a)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("Shutting down server")
		if err := fiberApp.ShutdownWithContext(shutdownCtx); err != nil {
			logger.Error("Server shutdown failed", "error", err)
		}
	}()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info("Starting server",
		slog.String("env", cfg.Env),
		slog.String("address", addr),
		slog.String("scheme", cfg.Server.Scheme),
	)
	return fiberApp.Listen(addr)
}
