package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/taskhub/marketplace/internal/config"
	"github.com/taskhub/marketplace/internal/infra"
	"github.com/taskhub/marketplace/internal/logging"
	"github.com/taskhub/marketplace/internal/routes"
	"github.com/taskhub/marketplace/internal/server"
	"github.com/taskhub/marketplace/internal/stripeconnect"
	"github.com/taskhub/marketplace/internal/wallet"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.IsDev())
	slog.SetDefault(logger)

	ctx := context.Background()

	var db *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		db, err = infra.NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("connect postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := infra.Migrate(ctx, db); err != nil {
			logger.Error("migrate", "error", err)
			os.Exit(1)
		}
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory stores")
	}

	var cache *redis.Client
	if cfg.RedisURL != "" {
		cache, err = infra.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error("connect redis", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := cache.Close(); err != nil {
				logger.Warn("close redis", "error", err)
			}
		}()
	} else {
		logger.Warn("REDIS_URL not set, idempotency replay, rate limiting and caching are disabled")
	}

	var stripe wallet.BalanceFetcher
	if cfg.StripeAPIKey != "" {
		stripe = stripeconnect.NewClient(cfg.StripeBaseURL, cfg.StripeAPIKey)
	}

	srv, err := server.New(cfg, db, cache, stripe, logger)
	if err != nil {
		logger.Error("build server", "error", err)
		os.Exit(1)
	}

	if cfg.AdminEmail != "" {
		if err := bootstrapStaff(ctx, srv.Services(), cfg.AdminEmail, cfg.AdminPassword); err != nil {
			logger.Error("bootstrap staff account", "error", err)
			os.Exit(1)
		}
		logger.Info("staff account ready", "email", cfg.AdminEmail)
	}

	srvErrCh := make(chan error, 1)
	go func() {
		srvErrCh <- srv.Listen()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-srvErrCh:
		if err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server exited cleanly")
}

func bootstrapStaff(ctx context.Context, svc routes.Services, email, password string) error {
	user, err := svc.Identity.EnsureStaff(ctx, email, password)
	if err != nil {
		return err
	}
	if _, err := svc.Wallets.Create(ctx, user.ID); err != nil && !errors.Is(err, wallet.ErrWalletExists) {
		return err
	}
	return nil
}
