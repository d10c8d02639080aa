package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/SAP-F-2025/exam-session-service/internal/ratelimit"
	"github.com/SAP-F-2025/exam-session-service/internal/services"
	"github.com/SAP-F-2025/exam-session-service/internal/utils"
	"github.com/gin-gonic/gin"
)

const serviceName = "exam-session-service"

// HealthCheckFunc reports whether a dependency is reachable.
type HealthCheckFunc func(ctx context.Context) error

type RouterConfig struct {
	JWTSecret      []byte
	AllowedOrigins []string
	// Limiter is optional; a nil limiter disables rate limiting.
	Limiter     *ratelimit.Limiter
	DBCheck     HealthCheckFunc
	HealthProbe time.Duration
}

type HandlerManager struct {
	sessionHandler *SessionHandler
	streamHandler  *AnswerStreamHandler
	config         RouterConfig
	logger         utils.Logger
}

func NewHandlerManager(sessionService services.SessionService, config RouterConfig, logger utils.Logger) *HandlerManager {
	if config.HealthProbe <= 0 {
		config.HealthProbe = 2 * time.Second
	}
	return &HandlerManager{
		sessionHandler: NewSessionHandler(sessionService, logger),
		streamHandler:  NewAnswerStreamHandler(sessionService, config.AllowedOrigins, logger),
		config:         config,
		logger:         logger,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", hm.healthCheck)

	v1 := router.Group("/api/v1")
	v1.Use(AuthMiddleware(hm.config.JWTSecret, hm.logger))
	if hm.config.Limiter != nil {
		v1.Use(RateLimitMiddleware(hm.config.Limiter, time.Now, hm.logger))
	}
	{
		sessions := v1.Group("/sessions")
		{
			sessions.POST("", hm.sessionHandler.StartSession)
			sessions.GET("", hm.sessionHandler.ListSessions)
			sessions.GET("/statistics", hm.sessionHandler.GetStatistics)
			sessions.GET("/:id", hm.sessionHandler.GetSession)
			sessions.PUT("/:id/answers", hm.sessionHandler.SubmitAnswers)
			sessions.POST("/:id/pause", hm.sessionHandler.PauseSession)
			sessions.POST("/:id/resume", hm.sessionHandler.ResumeSession)
			sessions.POST("/:id/submit", hm.sessionHandler.SubmitSession)
			sessions.GET("/:id/results", hm.sessionHandler.GetResults)

			// Real-time answer channel
			sessions.GET("/:id/stream", hm.streamHandler.Stream)
		}
	}
}

func (hm *HandlerManager) healthCheck(c *gin.Context) {
	if hm.config.DBCheck != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), hm.config.HealthProbe)
		defer cancel()
		if err := hm.config.DBCheck(ctx); err != nil {
			hm.logger.Warn("Health check failed", "dependency", "database", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"service":  serviceName,
				"database": err.Error(),
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": serviceName,
	})
}
