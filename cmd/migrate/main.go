package main

import (
	"context"
	"log"
	"log/slog"
	"time"

	"todo_backend/internal/app/di"
	authadapters "todo_backend/internal/feature/auth/adapters"
	"todo_backend/internal/platform/config"
	"todo_backend/internal/platform/db"
	"todo_backend/internal/platform/logger"
)

// migrate creates or updates the schema and prunes redeemed reset tokens that have expired.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config: ", err)
	}
	logger.Setup(cfg.Log.Level, cfg.Log.Format)

	gdb, err := db.OpenDB(db.ParseURL(cfg.Database.URL, cfg.Database.Timeout))
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = db.Close(gdb) }()

	if err := db.Migrate(gdb, di.Models()...); err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	n, err := authadapters.NewResetTokenPostgres(gdb).DeleteExpired(ctx)
	if err != nil {
		log.Fatal(err)
	}
	slog.Info("migrate ok", "pruned_reset_tokens", n)
}
