package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/benvon/todomvc-api/internal/cache"
	"github.com/benvon/todomvc-api/internal/config"
	"github.com/benvon/todomvc-api/internal/database"
	"github.com/benvon/todomvc-api/internal/handlers"
	"github.com/benvon/todomvc-api/internal/logger"
	"github.com/benvon/todomvc-api/internal/queue"
	"github.com/benvon/todomvc-api/internal/telemetry"
	"github.com/benvon/todomvc-api/internal/workers"
	"go.uber.org/zap"
)

const rabbitMQMaxRetries = 10

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	debugMode := cfg.WorkerDebugMode || *debugFlag

	zapLogger, err := logger.New(telemetry.WorkerServiceName, debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		_ = logger.Sync(zapLogger)
	}()

	zapLogger.Info("starting_worker",
		zap.Bool("debug_mode", debugMode),
		zap.Int("prefetch", cfg.RabbitMQPrefetch),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.OTELEnabled && cfg.OTELEndpoint != "" {
		tp, err := telemetry.InitTracer(ctx, telemetry.WorkerServiceName, handlers.Version, cfg.OTELEndpoint)
		if err != nil {
			zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := telemetry.Shutdown(shutdownCtx, tp); err != nil {
					zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
				}
			}()
		}
	}

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			zapLogger.Warn("failed_to_close_database_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_database")

	redisClient, err := cache.NewRedis(cfg.RedisURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_redis", zap.Error(err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			zapLogger.Warn("failed_to_close_redis_connection", zap.Error(err))
		}
	}()

	eventQueue, err := queue.ConnectWithRetry(ctx, cfg.RabbitMQURL, zapLogger, rabbitMQMaxRetries)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_rabbitmq", zap.Error(err))
	}
	defer func() {
		if err := eventQueue.Close(); err != nil {
			zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_rabbitmq")

	refresher := workers.NewCountsRefresher(
		database.NewTodoRepository(db),
		cache.NewCountsCache(redisClient.Client(), cfg.CountsCacheTTL),
		eventQueue,
		zapLogger,
	)

	// Warm the cache so the first /counts request after a deploy is a hit
	if err := refresher.Refresh(ctx); err != nil {
		zapLogger.Warn("initial_counts_refresh_failed", zap.Error(err))
	}

	// The API only reads the cache, so keep it warm across TTL expiry
	go func() {
		ticker := time.NewTicker(cfg.CountsCacheTTL / 2)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := refresher.Refresh(ctx); err != nil {
					zapLogger.Warn("periodic_counts_refresh_failed", zap.Error(err))
				}
			}
		}
	}()

	messages, errs, err := eventQueue.Consume(ctx, cfg.RabbitMQPrefetch)
	if err != nil {
		zapLogger.Fatal("failed_to_start_consuming_messages", zap.Error(err))
	}

	zapLogger.Info("worker_started")
	refresher.Run(ctx, messages, errs)
	zapLogger.Info("worker_stopped")
}
