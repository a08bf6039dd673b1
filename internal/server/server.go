// Package server assembles the CRM HTTP server from its infrastructure.
package server

import (
	"time"

	appcrm "github.com/crm/backend/internal/application/crm"
	appidentity "github.com/crm/backend/internal/application/identity"
	"github.com/crm/backend/internal/domain/access"
	"github.com/crm/backend/internal/domain/crm"
	"github.com/crm/backend/internal/domain/identity"
	"github.com/crm/backend/internal/infrastructure/auth"
	"github.com/crm/backend/internal/infrastructure/cache"
	"github.com/crm/backend/internal/infrastructure/config"
	"github.com/crm/backend/internal/infrastructure/logger"
	"github.com/crm/backend/internal/infrastructure/persistence"
	"github.com/crm/backend/internal/interfaces/http/handler"
	"github.com/crm/backend/internal/interfaces/http/middleware"
	"github.com/crm/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Options carries the process-wide dependencies the server is built from
type Options struct {
	Config *config.Config
	Logger *zap.Logger
	DB     *gorm.DB
	// Health is pinged by /health; usually the *persistence.Database
	Health handler.HealthChecker
	// Cache may be nil, which disables query caching
	Cache *cache.QueryCache
	// RefreshStore defaults to the database-backed store
	RefreshStore identity.RefreshTokenStore
	// Meter defaults to the global meter provider
	Meter   metric.Meter
	Version string
}

// New wires repositories, services and handlers into a gin engine
func New(opts Options) (*gin.Engine, error) {
	cfg := opts.Config
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	qc := opts.Cache
	if qc == nil {
		qc = cache.New(nil, cache.Options{Logger: log})
	}
	meter := opts.Meter
	if meter == nil {
		meter = otel.GetMeterProvider().Meter("crm-backend")
	}
	health := opts.Health
	if health == nil {
		health = &persistence.Database{DB: opts.DB}
	}
	refreshStore := opts.RefreshStore
	if refreshStore == nil {
		refreshStore = persistence.NewGormRefreshTokenRepository(opts.DB)
	}

	// Repositories; every read path goes through the query cache
	userRepo := cache.NewCachedUserRepository(persistence.NewGormUserRepository(opts.DB), qc)
	leadRepo := cache.NewCachedLeadRepository(persistence.NewGormLeadRepository(opts.DB), qc)
	clientRepo := cache.NewCachedClientRepository(persistence.NewGormClientRepository(opts.DB), qc)
	rawExec := cache.NewFlushingExecutor(persistence.NewGormRawExecutor(opts.DB), qc)
	roleRepo := cache.NewCachedRoleRepository(persistence.NewGormRoleRepository(opts.DB, rawExec), qc)
	resolver := cache.NewCachedHierarchyResolver(
		persistence.NewHierarchyResolver(opts.DB, cfg.Database.RecursiveQueries), qc)

	scoper := access.NewScoper(resolver, leadRepo)
	gate := access.NewGate(resolver, scoper, leadRepo, clientRepo)
	recorder := crm.NewActivityRecorder(persistence.NewGormActivityRepository(opts.DB))
	tx := persistence.NewTxManager(opts.DB)
	hasher := auth.NewPasswordHasher(auth.DefaultArgon2Params)
	jwtService := auth.NewJWTService(cfg.JWT)

	authService := appidentity.NewAuthService(userRepo, roleRepo, refreshStore, jwtService, hasher, log)
	userService := appidentity.NewUserService(userRepo, leadRepo, resolver, scoper, gate, hasher, recorder, tx, log)
	roleService := appidentity.NewRoleService(roleRepo, tx, log)
	leadService := appcrm.NewLeadService(leadRepo, clientRepo, scoper, gate,
		persistence.NewGormDuplicateChecker(opts.DB), recorder, tx, log)
	clientService := appcrm.NewClientService(clientRepo, leadRepo, scoper, gate, recorder, tx, log)

	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		return nil, err
	}

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsCfg.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsCfg.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}

	securityCfg := middleware.DefaultSecurityConfig()
	securityCfg.HSTSEnabled = cfg.App.Env == "production"

	engine.Use(
		middleware.RequestID(),
		logger.Recovery(log),
		logger.GinMiddleware(log),
		middleware.SecureWithConfig(securityCfg),
		middleware.CORSWithConfig(corsCfg),
		middleware.TracingWithConfig(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     cfg.Telemetry.Enabled,
		}),
		middleware.SpanErrorMarker(),
		middleware.HTTPMetrics(meter, log),
	)
	if cfg.HTTP.MaxBodySize > 0 {
		engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	}

	systemHandler := handler.NewSystemHandler(opts.Version, health)
	engine.GET("/health", systemHandler.Health)

	guards := router.Guards{
		Authenticate: []gin.HandlerFunc{
			middleware.JWTAuthMiddlewareWithConfig(middleware.JWTMiddlewareConfig{
				JWTService: jwtService,
				Logger:     log,
			}),
			middleware.TracingAttributeInjector(),
			middleware.ProfilingWithConfig(middleware.ProfilingConfig{Enabled: cfg.Profiling.Enabled}),
		},
		AdminOnly: middleware.RequireAdminWithConfig(middleware.PermissionConfig{Logger: log}),
	}
	if cfg.HTTP.AuthRateLimit > 0 {
		guards.AuthLimit = middleware.RateLimit(middleware.NewRateLimiter(cfg.HTTP.AuthRateLimit, time.Minute))
	}

	r := router.NewRouter(engine)
	router.Register(r, router.Handlers{
		System: systemHandler,
		Auth:   handler.NewAuthHandler(authService),
		User:   handler.NewUserHandler(userService),
		Lead:   handler.NewLeadHandler(leadService),
		Client: handler.NewClientHandler(clientService),
		Role:   handler.NewRoleHandler(roleService),
	}, guards)
	r.Setup()

	return engine, nil
}
