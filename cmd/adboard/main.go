package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/radiusdt/adboard/internal/cache"
	"github.com/radiusdt/adboard/internal/config"
	"github.com/radiusdt/adboard/internal/database"
	"github.com/radiusdt/adboard/internal/httpserver"
	"github.com/radiusdt/adboard/internal/insights"
	"github.com/radiusdt/adboard/internal/mapping"
	"github.com/radiusdt/adboard/internal/metrics"
	"github.com/radiusdt/adboard/internal/middleware"
	"github.com/radiusdt/adboard/internal/pipeline"
	"github.com/radiusdt/adboard/internal/report"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	// Optional .env for local development; real deployments set env vars.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg)
	defer logger.Sync()

	logger.Info("starting adboard",
		zap.String("env", cfg.Server.Env),
		zap.String("addr", cfg.Server.Addr),
		zap.Int("accounts", len(cfg.Insights.AccountIDs)),
	)

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.NewMetrics("adboard")
	}

	// Memoization backing: Redis when configured and reachable, in-memory
	// otherwise.
	var store cache.Store
	var redisDB *database.RedisDB
	if cfg.Redis.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		redisDB, err = database.NewRedisDB(ctx, cfg.Redis, logger)
		cancel()
		if err != nil {
			logger.Warn("Redis not available, using in-memory cache", zap.Error(err))
			redisDB = nil
		} else {
			defer redisDB.Close()
			store = cache.NewRedisStore(redisDB.Client)
		}
	}
	if store == nil {
		store = cache.NewMemoryStore()
	}
	memo := cache.NewMemoizer(store, cfg.Cache.TTL, logger)
	if m != nil {
		memo.SetRecorder(m)
	}

	// Mapping source is optional: without it sessions are built
	// unenriched and category views answer 409.
	var mappingSrc mapping.Fetcher
	if f := mapping.NewSheetsFetcher(cfg.Sheets, logger); f != nil {
		mappingSrc = f
	} else {
		logger.Warn("mapping spreadsheet not configured, category enrichment disabled")
	}

	builder := pipeline.NewBuilder(
		insights.NewClient(cfg.Insights, logger),
		report.NewParser(logger),
		mappingSrc,
		memo,
		cfg.Insights,
		logger,
		m,
	)
	manager := pipeline.NewManager(builder, logger)

	deps := &httpserver.Dependencies{
		Manager: manager,
		Redis:   redisDB,
		Config:  cfg,
		Logger:  logger,
		Metrics: m,
	}

	handler := httpserver.NewServer(deps)

	// Middleware chain: recovery outermost, then logging, rate limit, auth.
	handler = middleware.NewAuthMiddleware(cfg.Auth, logger).Handler(handler)
	handler = middleware.NewRateLimitMiddleware(cfg.RateLimit, logger).Handler(handler)
	handler = middleware.NewLoggingMiddleware(logger, m).Handler(handler)
	handler = middleware.NewRecoveryMiddleware(logger).Handler(handler)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: handler,
		// Session builds block on upstream report jobs, so write timeouts
		// are generous.
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}

func setupLogger(cfg *config.Config) *zap.Logger {
	var zapCfg zap.Config

	if cfg.IsDevelopment() || cfg.Log.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	switch cfg.Log.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}

	logger, err := zapCfg.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to create logger: %v", err))
	}

	return logger
}
