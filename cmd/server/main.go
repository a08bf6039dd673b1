package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/crm/backend/internal/domain/identity"
	"github.com/crm/backend/internal/infrastructure/auth"
	"github.com/crm/backend/internal/infrastructure/cache"
	"github.com/crm/backend/internal/infrastructure/config"
	"github.com/crm/backend/internal/infrastructure/logger"
	"github.com/crm/backend/internal/infrastructure/persistence"
	"github.com/crm/backend/internal/infrastructure/scheduler"
	"github.com/crm/backend/internal/infrastructure/telemetry"
	"github.com/crm/backend/internal/server"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

//	@title			CRM Backend API
//	@version		1.0
//	@description	Lead and client management with hierarchy-scoped visibility

//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log := logger.New(cfg.Log, cfg.App.Env)
	defer func() {
		_ = log.Sync()
	}()

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	// Telemetry providers are inert unless enabled
	tp, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	mp, err := telemetry.NewMeterProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	lp, err := telemetry.NewLoggerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	level, err := zapcore.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	log = lp.Bridge(log, level)
	meter := mp.Meter("crm-backend")

	profiler, err := telemetry.NewProfiler(cfg.Profiling, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	if cfg.Profiling.SpanProfiles && profiler.IsEnabled() {
		tp.EnableSpanProfiles()
	}

	log.Info("Starting CRM Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	// Create GORM logger backed by zap
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh),
		logger.WithBoundValues(cfg.Telemetry.DBLogFullSQL),
	)

	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully", zap.String("driver", cfg.Database.Driver))

	if cfg.Database.AutoMigrate {
		if err := db.AutoMigrate(); err != nil {
			log.Fatal("Failed to migrate database", zap.Error(err))
		}
	}
	if err := persistence.NewGormRoleRepository(db.DB, persistence.NewGormRawExecutor(db.DB)).SeedRoles(ctx); err != nil {
		log.Fatal("Failed to seed roles", zap.Error(err))
	}

	if err := telemetry.RegisterDBTracing(db.DB, cfg.Telemetry, cfg.Database.Driver, log); err != nil {
		log.Warn("Database tracing unavailable", zap.Error(err))
	}
	if _, err := telemetry.RegisterDBMetrics(db.DB, meter, cfg.Telemetry.DBSlowQueryThresh, log); err != nil {
		log.Warn("Database metrics unavailable", zap.Error(err))
	}

	queryCache, closeCache, err := cache.NewFromConfig(ctx, cfg.Cache, cfg.Redis,
		cache.WithLogger(log),
		cache.WithMeter(meter),
		cache.WithInMemoryFallback(cfg.App.Env != "production"),
	)
	if err != nil {
		log.Fatal("Failed to initialize query cache", zap.Error(err))
	}
	defer func() {
		if err := closeCache(); err != nil {
			log.Error("Error closing query cache", zap.Error(err))
		}
	}()

	refreshStore, tokenRepo, closeStore := newRefreshStore(cfg, db, log)
	defer closeStore()

	engine, err := server.New(server.Options{
		Config:       cfg,
		Logger:       log,
		DB:           db.DB,
		Health:       db,
		Cache:        queryCache,
		RefreshStore: refreshStore,
		Meter:        meter,
		Version:      version,
	})
	if err != nil {
		log.Fatal("Failed to build HTTP server", zap.Error(err))
	}

	// Expired refresh tokens only accumulate in the database store
	var cleanup *scheduler.TokenCleanupScheduler
	if tokenRepo != nil {
		cleanupCfg := scheduler.DefaultTokenCleanupConfig()
		cleanupCfg.Interval = cfg.Auth.TokenCleanupInterval
		cleanup = scheduler.NewTokenCleanupScheduler(tokenRepo, cleanupCfg, log)
		if err := cleanup.Start(ctx); err != nil {
			log.Error("Failed to start token cleanup", zap.Error(err))
		}
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if cleanup != nil {
		_ = cleanup.Stop(shutdownCtx)
	}
	if err := profiler.Stop(); err != nil {
		log.Warn("Profiler shutdown failed", zap.Error(err))
	}
	for name, shutdown := range map[string]func(context.Context) error{
		"tracer": tp.Shutdown,
		"meter":  mp.Shutdown,
		"logger": lp.Shutdown,
	} {
		if err := shutdown(shutdownCtx); err != nil {
			log.Warn("Telemetry shutdown failed", zap.String("provider", name), zap.Error(err))
		}
	}

	log.Info("Server exited gracefully")
}

// newRefreshStore picks the refresh token store named by auth.refresh_store.
// The database repository is also returned so its expired rows can be purged.
func newRefreshStore(cfg *config.Config, db *persistence.Database, log *zap.Logger) (identity.RefreshTokenStore, *persistence.GormRefreshTokenRepository, func()) {
	noop := func() {}
	switch cfg.Auth.RefreshStore {
	case config.RefreshStoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			log.Fatal("Failed to connect to Redis refresh store", zap.Error(err))
		}
		log.Info("Refresh tokens stored in Redis", zap.String("addr", cfg.Redis.Addr()))
		return auth.NewRedisRefreshStore(client), nil, func() { _ = client.Close() }
	case config.RefreshStoreMemory:
		log.Warn("Refresh tokens stored in memory; sessions do not survive restarts")
		return auth.NewInMemoryRefreshStore(), nil, noop
	default:
		repo := persistence.NewGormRefreshTokenRepository(db.DB)
		return repo, repo, noop
	}
}
