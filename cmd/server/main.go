package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hongminglow/citizen-portal/internal/config"
	"github.com/hongminglow/citizen-portal/internal/seed"
	"github.com/hongminglow/citizen-portal/internal/server"
	"github.com/hongminglow/citizen-portal/internal/storage/backend"
)

func main() {
	loadLocalEnv()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	ctx := context.Background()
	store, err := backend.Open(ctx, cfg)
	if err != nil {
		logger.Error("init database", "driver", cfg.DatabaseDriver, "err", err)
		os.Exit(1)
	}
	defer store.Close()

	svc := server.NewServices(cfg, store)

	if cfg.SeedOnStart {
		f, err := seed.Load(cfg.SeedFile)
		if err != nil {
			logger.Error("load seed", "err", err)
			os.Exit(1)
		}
		res, err := seed.NewSeeder(store, svc.Graph, svc.Registrar, logger).Apply(ctx, f)
		if err != nil {
			logger.Error("apply seed", "err", err)
			os.Exit(1)
		}
		logger.Info("seed applied", "roles", res.Roles, "permissions", res.Permissions, "users", res.Users)
	}

	srv := server.New(cfg, store, svc, logger)

	go func() {
		logger.Info("citizen portal listening", "addr", cfg.HTTPAddress(), "driver", cfg.DatabaseDriver)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "err", err)
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Error("graceful shutdown error", "err", err)
	}
}

func loadLocalEnv() {
	if !config.LoadDotEnv() {
		slog.Info("no .env file found; relying on existing environment")
	}
}
