package main

import (
	"context"
	"log/slog"
	"os"
	"strconv"

	"github.com/samirrijal/detour/internal/adapters/postgres"
	"github.com/samirrijal/detour/internal/pkg/config"
	"github.com/samirrijal/detour/internal/pkg/logging"
	"github.com/samirrijal/detour/migrations"
)

func main() {
	if len(os.Args) < 2 {
		slog.Error("usage: migrate <up|down [steps]>")
		os.Exit(2)
	}

	cfg, err := config.Load("detour-migrate")
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx := context.Background()
	db, err := postgres.New(ctx, cfg.Database.DSN(), 2)
	if err != nil {
		slog.Error("database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	var versions []string
	switch os.Args[1] {
	case "up":
		versions, err = postgres.Migrate(ctx, db, migrations.FS)
	case "down":
		steps := 1
		if len(os.Args) > 2 {
			if steps, err = strconv.Atoi(os.Args[2]); err != nil || steps < 1 {
				slog.Error("steps must be a positive integer", "value", os.Args[2])
				os.Exit(2)
			}
		}
		versions, err = postgres.Rollback(ctx, db, migrations.FS, steps)
	default:
		slog.Error("unknown command", "command", os.Args[1])
		os.Exit(2)
	}

	for _, v := range versions {
		slog.Info("migration applied", "direction", os.Args[1], "version", v)
	}
	if err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}
	if len(versions) == 0 {
		slog.Info("nothing to do")
	}
}
