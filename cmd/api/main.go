package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/oneany574/eduflow-calendar-hub/internal/attendance"
	"github.com/oneany574/eduflow-calendar-hub/internal/config"
	"github.com/oneany574/eduflow-calendar-hub/internal/handler"
	"github.com/oneany574/eduflow-calendar-hub/internal/httpmiddleware"
	"github.com/oneany574/eduflow-calendar-hub/internal/logging"
	"github.com/oneany574/eduflow-calendar-hub/internal/queue"
	"github.com/oneany574/eduflow-calendar-hub/internal/session"
	"github.com/oneany574/eduflow-calendar-hub/internal/store"
	"github.com/oneany574/eduflow-calendar-hub/internal/validation"
	"github.com/oneany574/eduflow-calendar-hub/internal/worker"
)

func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	// Set Gin mode based on environment
	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg, logger); err != nil {
		logger.Fatal("http server failed", zap.Error(err))
	}
}

func runHTTP(cfg config.App, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		redisClient *store.Redis
		q           queue.Queue
		dashboard   handler.Dashboard
	)
	switch cfg.QueueBackend {
	case "redis":
		redisClient = store.NewRedis(cfg.RedisAddr)
		defer func() { _ = redisClient.Close() }()
		if !redisClient.Healthy(ctx) {
			logger.Warn("redis not reachable, events will be dropped until it is", zap.String("addr", cfg.RedisAddr))
		}
		q = queue.NewRedisQueue(redisClient.Client, cfg.QueueKey)
		dashboard = store.NewSummaryCache(redisClient.Client, store.DefaultPrefix, store.DefaultSummaryTTL)
	case "memory":
		// No separate worker can read an in-process queue, so run one here.
		mem := queue.NewInMemory(256)
		q = mem
		cache := worker.NewMemoryCache()
		dashboard = cache
		go func() {
			p := worker.NewProcessor(cache, logger.Named("worker"))
			if err := p.Run(ctx, mem); err != nil {
				logger.Error("in-process worker stopped", zap.Error(err))
			}
		}()
	}

	var events queue.Publisher = queue.Discard{}
	if q != nil {
		events = q
	}

	repo := session.NewRepository()
	book := attendance.NewBook(attendance.DefaultRoster, repo.StudentCount)
	svc := session.NewService(repo, book, validation.New(), events, logger.Named("session"))

	clock := cfg.Clock()
	if cfg.SeedDemo {
		seeded := session.Seed(repo, clock.Today())
		logger.Info("seeded demo sessions", zap.Int("count", len(seeded)), zap.Stringer("reference", clock.Today()))
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(httpmiddleware.CORS(cfg.CORSOrigins))
	r.Use(httpmiddleware.SecurityHeaders())
	r.Use(httpmiddleware.NewSimpleTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).GinMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	var health handler.Checker
	if redisClient != nil {
		health = redisClient
	}
	handler.New(svc, clock, cfg.WeekStart, health, dashboard, logger.Named("http")).Register(r)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("port", cfg.HTTPPort), zap.String("queue", cfg.QueueBackend), zap.Stringer("week_start", cfg.WeekStart))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server forced shutdown", zap.Error(err))
	}

	logger.Info("server exited")
	return nil
}
