// Command seed creates the reference roles, permissions and bootstrap accounts.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

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

	file := flag.String("file", cfg.SeedFile, "seed YAML file; the embedded default is used when empty")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))

	f, err := seed.Load(*file)
	if err != nil {
		logger.Error("load seed", "err", err)
		os.Exit(1)
	}

	ctx := context.Background()
	store, err := backend.Open(ctx, cfg)
	if err != nil {
		logger.Error("init database", "driver", cfg.DatabaseDriver, "err", err)
		os.Exit(1)
	}
	defer store.Close()

	svc := server.NewServices(cfg, store)
	res, err := seed.NewSeeder(store, svc.Graph, svc.Registrar, logger).Apply(ctx, f)
	if err != nil {
		logger.Error("apply seed", "err", err)
		store.Close()
		os.Exit(1)
	}
	logger.Info("seed complete", "roles", res.Roles, "permissions", res.Permissions, "users", res.Users)
}

func loadLocalEnv() {
	if !config.LoadDotEnv() {
		slog.Info("no .env file found; relying on existing environment")
	}
}
