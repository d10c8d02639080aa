package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/SAP-F-2025/exam-session-service/internal/cache"
	"github.com/SAP-F-2025/exam-session-service/internal/config"
	"github.com/SAP-F-2025/exam-session-service/internal/events"
	"github.com/SAP-F-2025/exam-session-service/internal/handlers"
	"github.com/SAP-F-2025/exam-session-service/internal/ratelimit"
	"github.com/SAP-F-2025/exam-session-service/internal/repositories"
	"github.com/SAP-F-2025/exam-session-service/internal/services"
	"github.com/SAP-F-2025/exam-session-service/internal/utils"
	"github.com/SAP-F-2025/exam-session-service/internal/validator"
	"github.com/SAP-F-2025/exam-session-service/pkg"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	serviceName     = "exam-session-service"
	shutdownTimeout = 10 * time.Second
)

func NewLoggers(cfg *config.Config) (utils.Logger, *slog.Logger, *zap.Logger, error) {
	logger := utils.NewLogger(cfg.Environment)

	var (
		zapLogger *zap.Logger
		err       error
	)
	if cfg.IsProduction() {
		zapLogger, err = zap.NewProduction()
	} else {
		zapLogger, err = zap.NewDevelopment()
	}
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create zap logger: %w", err)
	}

	return logger, logger.Slog(), zapLogger.With(zap.String("service", serviceName)), nil
}

func NewDatabase(lc fx.Lifecycle, cfg *config.Config) (*gorm.DB, error) {
	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})
	return db, nil
}

// NewRedisClient returns nil when no component is configured to use redis.
func NewRedisClient(lc fx.Lifecycle, cfg *config.Config, logger *slog.Logger) (*redis.Client, error) {
	if !cfg.NeedsRedis() {
		logger.Info("Redis not configured for any component")
		return nil, nil
	}

	client, err := pkg.NewRedisClient(context.Background(), cfg)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return client, nil
}

func NewCache(cfg *config.Config, client *redis.Client, zapLogger *zap.Logger) cache.CacheService {
	if cfg.CacheStore == "redis" && client != nil {
		return cache.NewRedisCache(client, zapLogger, serviceName)
	}
	return cache.NewMemoryCache()
}

func NewEventPublisher(lc fx.Lifecycle, cfg *config.Config, logger *slog.Logger) (events.EventPublisher, error) {
	publisher, err := cfg.Events.CreateEventPublisher(logger)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return publisher.Close()
		},
	})
	return publisher, nil
}

func NewSessionService(
	cfg *config.Config,
	repo repositories.Repository,
	catalogCache cache.CacheService,
	publisher events.EventPublisher,
	v *validator.Validator,
	logger *slog.Logger,
) services.SessionService {
	serviceLogger := services.NewServiceLogger(logger, services.LogConfig{
		Service:     serviceName,
		Component:   "sessions",
		EnableDebug: !cfg.IsProduction(),
	})

	catalog := services.NewCatalogReader(repo)
	if cfg.Session.CatalogCacheTTL > 0 {
		catalog = services.NewCachedCatalogReader(catalog, catalogCache, cfg.Session.CatalogCacheTTL, serviceLogger)
	}

	return services.NewSessionService(
		repo,
		catalog,
		services.NewScoreEngine(services.NewScoreTable(repo.ScoreTable()), serviceLogger),
		services.NewStatisticsUpdater(repo),
		publisher,
		v,
		serviceLogger,
		services.SessionServiceConfig{HardExpiry: cfg.Session.HardExpiry},
	)
}

// NewRateLimiter returns nil when rate limiting is disabled.
func NewRateLimiter(cfg *config.Config, client *redis.Client, logger *slog.Logger) (*ratelimit.Limiter, error) {
	if !cfg.RateLimit.Enabled {
		return nil, nil
	}

	var store ratelimit.Store
	switch cfg.RateLimit.Store {
	case "redis":
		if client == nil {
			return nil, errors.New("redis rate limit store requires a redis client")
		}
		store = ratelimit.NewRedisStore(client)
	default:
		store = ratelimit.NewMemoryStore()
	}

	return ratelimit.NewLimiter(store, ratelimit.Policy{
		Requests: cfg.RateLimit.Requests,
		Window:   cfg.RateLimit.Window,
	}, logger)
}

func NewGinEngine(cfg *config.Config, logger utils.Logger) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(utils.RequestIDMiddleware())
	r.Use(utils.LoggerMiddleware(logger))
	r.Use(utils.ContextLogger(logger))

	allowAll := len(cfg.CORSOrigins) == 1 && cfg.CORSOrigins[0] == "*"
	corsConfig := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", utils.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", utils.RequestIDHeader, "Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		MaxAge:        12 * time.Hour,
	}
	if allowAll {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.CORSOrigins
		corsConfig.AllowCredentials = true
	}
	r.Use(cors.New(corsConfig))

	return r
}

// RegisterRoutesAndStartServer configures API routes and manages server lifecycle.
func RegisterRoutesAndStartServer(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	router *gin.Engine,
	cfg *config.Config,
	db *gorm.DB,
	sessionService services.SessionService,
	limiter *ratelimit.Limiter,
	logger utils.Logger,
) {
	handlers.NewHandlerManager(sessionService, handlers.RouterConfig{
		JWTSecret:      []byte(cfg.JWTSecret),
		AllowedOrigins: cfg.CORSOrigins,
		Limiter:        limiter,
		DBCheck: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}, logger).SetupRoutes(router)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("Exam session service starting", "port", cfg.Port, "environment", cfg.Environment)
			go func() {
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.LogError(err, "Server ListenAndServe failed")
					shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Server shutting down")
			shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	})
}
