package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"todo_backend/internal/app/di"
	"todo_backend/internal/app/router"
	"todo_backend/internal/platform/config"
	"todo_backend/internal/platform/db"
	"todo_backend/internal/platform/logger"
	"todo_backend/internal/platform/metrics"
	infraredis "todo_backend/internal/platform/redis"
)

const shutdownGracePeriod = 10 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	appLogger := logger.Setup(cfg.Log.Level, cfg.Log.Format)

	// db
	gdb, err := db.OpenDB(db.ParseURL(cfg.Database.URL, cfg.Database.Timeout))
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(gdb); err != nil {
			slog.Error("failed to close database", "error", err)
		}
	}()
	if cfg.Database.Migrate {
		if err := db.Migrate(gdb, di.Models()...); err != nil {
			return err
		}
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}

	// Redis
	var rdb *redisv9.Client
	if tmp, err := infraredis.NewRedisClient(context.Background(), infraredis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}); err != nil {
		slog.Warn("Redis unavailable. Redeemed reset tokens are stored in the database.", "error", err)
	} else {
		rdb = tmp
		defer func() {
			if err := rdb.Close(); err != nil {
				slog.Error("failed to close Redis client", "error", err)
			}
		}()
	}

	container, err := di.NewContainer(cfg, gdb, rdb)
	if err != nil {
		return err
	}

	// ルータ生成
	engine := router.NewRouter(container.AuthHandler, container.TodoHandler, router.Deps{
		Verifier: container.Tokens,
		Store:    sqlDB,
		Metrics:  metrics.New(),
		Logger:   appLogger,
	})

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", server.Addr)
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		slog.Info("shutdown signal received", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("graceful server shutdown failed", "error", err)
			_ = server.Close()
		}
	}
	return nil
}
