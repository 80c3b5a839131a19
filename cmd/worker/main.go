package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/oneany574/eduflow-calendar-hub/internal/config"
	"github.com/oneany574/eduflow-calendar-hub/internal/logging"
	"github.com/oneany574/eduflow-calendar-hub/internal/queue"
	"github.com/oneany574/eduflow-calendar-hub/internal/store"
	"github.com/oneany574/eduflow-calendar-hub/internal/worker"
)

// Worker consumes session events from redis and keeps the summary cache current.
func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.QueueBackend != "redis" {
		logger.Fatal("worker needs QUEUE_BACKEND=redis; the memory backend runs its worker inside the api", zap.String("queue", cfg.QueueBackend))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer func() { _ = redisClient.Close() }()

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	if !redisClient.Healthy(pingCtx) {
		logger.Warn("redis not reachable, will keep retrying", zap.String("addr", cfg.RedisAddr))
	}
	cancel()

	q := queue.NewRedisQueue(redisClient.Client, cfg.QueueKey)
	cache := store.NewSummaryCache(redisClient.Client, store.DefaultPrefix, store.DefaultSummaryTTL)

	logger.Info("worker started, waiting for messages", zap.String("key", cfg.QueueKey))
	if err := worker.NewProcessor(cache, logger).Run(ctx, q); err != nil {
		logger.Fatal("worker failed", zap.Error(err))
	}
	logger.Info("worker stopped")
}
