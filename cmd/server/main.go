package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"knit-tracker-backend/internal/analytics"
	"knit-tracker-backend/internal/cache"
	"knit-tracker-backend/internal/config"
	"knit-tracker-backend/internal/database"
	"knit-tracker-backend/internal/handlers"
	"knit-tracker-backend/internal/httpserver"
	"knit-tracker-backend/internal/lifecycle"
	"knit-tracker-backend/internal/logger"
	"knit-tracker-backend/internal/patterns"
	"knit-tracker-backend/internal/query"
	"knit-tracker-backend/internal/repository"
	"knit-tracker-backend/internal/storage"
)

// appStore is what every service needs from persistence. Both
// repository.Postgres and repository.Memory satisfy it.
type appStore interface {
	lifecycle.Store
	patterns.Store
	query.Store
	analytics.Store
	handlers.UserReader
	handlers.Pinger
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zlog := logger.New(cfg.Environment)
	defer func() { _ = zlog.Sync() }()

	// Set Gin mode
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	store, closeStore := openStore(ctx, cfg, zlog)
	defer closeStore()

	assets, err := openAssets(ctx, cfg)
	if err != nil {
		zlog.Fatal("failed to initialize asset storage", zap.Error(err))
	}

	analyticsCache := openCache(ctx, cfg, zlog)

	querySvc := query.NewService(store)
	h := httpserver.Handlers{
		Projects: handlers.NewProjectsHandler(
			lifecycle.NewManager(store, assets, analyticsCache, zlog), querySvc, zlog),
		Patterns: handlers.NewPatternsHandler(
			patterns.NewService(store, assets, analyticsCache, zlog), querySvc, zlog),
		Analytics: handlers.NewAnalyticsHandler(
			analytics.NewService(store, analyticsCache, zlog), zlog),
		Users: handlers.NewUsersHandler(store, zlog),
		Store: store,
	}
	router := httpserver.NewRouter(cfg, h, zlog)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zlog.Info("server starting", zap.String("port", cfg.Port), zap.String("environment", cfg.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zlog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("HTTP server shutdown error", zap.Error(err))
	}
}

func openStore(ctx context.Context, cfg *config.Config, zlog *zap.Logger) (appStore, func()) {
	if cfg.DatabaseURL == "" {
		if !cfg.IsDevelopment() {
			zlog.Fatal("DATABASE_URL is required outside development", zap.String("environment", cfg.Environment))
		}
		zlog.Warn("DATABASE_URL not set, using in-memory store; data will not survive a restart")
		return repository.NewMemory(), func() {}
	}

	pg, err := repository.OpenPostgres(cfg.DatabaseURL)
	if err != nil {
		zlog.Fatal("failed to connect to database", zap.Error(err))
	}

	if err := database.NewMigrator(pg.DB(), zlog).Run(ctx); err != nil {
		zlog.Fatal("migration failed", zap.Error(err))
	}
	zlog.Info("migrations completed")

	return pg, func() {
		if err := pg.Close(); err != nil {
			zlog.Warn("failed to close database", zap.Error(err))
		}
	}
}

func openAssets(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	var backend storage.Store
	switch cfg.StorageBackend {
	case config.StorageSupabase:
		backend = storage.NewSupabaseStore(cfg.SupabaseURL, cfg.SupabaseServiceKey, cfg.SupabaseStorageBucket)
	case config.StorageS3:
		s3Store, err := storage.NewS3Store(ctx, storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		})
		if err != nil {
			return nil, err
		}
		backend = s3Store
	default:
		return storage.Nop{}, nil
	}
	return storage.NewRetrying(backend, cfg.AssetDeleteAttempts), nil
}

func openCache(ctx context.Context, cfg *config.Config, zlog *zap.Logger) cache.AnalyticsCache {
	if cfg.RedisAddr == "" {
		return cache.Nop{}
	}

	rdb := cache.NewRedisClient(cache.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		zlog.Warn("redis unreachable, analytics will be recomputed until it recovers",
			zap.String("addr", cfg.RedisAddr),
			zap.Error(err),
		)
	}
	return cache.NewRedisAnalytics(rdb, cfg.AnalyticsCacheTTL, zlog)
}
