package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"go.uber.org/zap"

	"queryhub/internal/cache"
	"queryhub/internal/config"
	"queryhub/internal/notifier"
	"queryhub/internal/openai_client"
	"queryhub/internal/repository"
	"queryhub/internal/server"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err) // Should not happen in development
	}
	defer func() {
		_ = logger.Sync() // Flushes buffer, if any
	}()

	httpLog := logrus.New()

	// Load configuration
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "configs/config.yml"
	}
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	// Database connection
	db, err := repository.NewPostgresDB(cfg.Database.URL, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations
	repository.MigrateDB(db, logger)

	// Context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Response cache; an unreachable Redis degrades the pipeline to
	// store-only mode, so a failed ping is only a warning.
	cacheTTL := time.Duration(cfg.Redis.CacheTTLMinutes) * time.Minute
	respCache := cache.NewRedis(cfg.Redis.Host, cfg.Redis.Port, cacheTTL, logger)
	defer respCache.Close()
	if err := respCache.Ping(ctx); err != nil {
		logger.Warn("Redis unreachable, responses will not be cached", zap.Error(err))
	}

	// Completion provider client
	completionTimeout := time.Duration(cfg.OpenAI.TimeoutSeconds) * time.Second
	completer := openai_client.NewClient(cfg.OpenAI.BaseURL, cfg.OpenAI.APIKey, completionTimeout, logger)

	// Optional Telegram notifications
	ntf, err := notifier.New(cfg, logger)
	if err != nil {
		logger.Warn("Failed to initialize Telegram notifier, continuing without it", zap.Error(err))
		ntf = nil
	}

	// Initialize and run the server
	srv := server.NewServer(db, cfg, respCache, completer, ntf, httpLog, logger)
	go srv.Run(cfg.Server.Port)

	<-ctx.Done()
	logger.Info("Application stopped.")
}
