package main

import (
	"github.com/SAP-F-2025/exam-session-service/internal/config"
	"github.com/SAP-F-2025/exam-session-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/exam-session-service/internal/validator"
	"github.com/SAP-F-2025/exam-session-service/pkg"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	fx.New(
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),

		// Core
		fx.Provide(
			config.LoadConfig,
			NewLoggers,
			NewDatabase,
			NewRedisClient,
			NewCache,
			validator.New,
		),

		// Domain
		fx.Provide(
			postgres.NewRepository,
			NewEventPublisher,
			NewSessionService,
		),

		// Transport
		fx.Provide(
			NewRateLimiter,
			NewGinEngine,
		),

		fx.Invoke(pkg.AutoMigrate),
		fx.Invoke(RegisterRoutesAndStartServer),
	).Run()
}
