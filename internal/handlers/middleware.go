package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/SAP-F-2025/exam-session-service/internal/ratelimit"
	"github.com/SAP-F-2025/exam-session-service/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const kindUnauthorized = "unauthorized"

// Claims is the subset of the access token this service reads. Tokens are
// issued elsewhere; only the caller's user id is needed here.
type Claims struct {
	UserID uint `json:"user_id"`
	jwt.RegisteredClaims
}

var errMissingUserID = errors.New("token carries no user_id")

// ParseToken verifies an HMAC-signed token and returns the caller's user id.
func ParseToken(tokenString string, secret []byte) (uint, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return 0, err
	}
	if !token.Valid {
		return 0, jwt.ErrTokenInvalidClaims
	}
	if claims.UserID == 0 {
		return 0, errMissingUserID
	}
	return claims.UserID, nil
}

// AuthMiddleware resolves the bearer token into "user_id" on the gin context.
// Browsers cannot set headers on websocket upgrades, so the token may also be
// passed as the access_token query parameter.
func AuthMiddleware(secret []byte, logger utils.Logger) gin.HandlerFunc {
	base := NewBaseHandler(logger)
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			base.RespondWithError(c, http.StatusUnauthorized, kindUnauthorized, "Authorization header must be in the format: Bearer {token}", nil)
			c.Abort()
			return
		}

		userID, err := ParseToken(tokenString, secret)
		if err != nil {
			base.RespondWithError(c, http.StatusUnauthorized, kindUnauthorized, "Invalid or expired token", nil, err.Error())
			c.Abort()
			return
		}

		c.Set(userIDKey, userID)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			return ""
		}
		return strings.TrimSpace(parts[1])
	}
	return c.Query("access_token")
}

// RateLimitMiddleware applies limiter per authenticated user. It must run after AuthMiddleware.
func RateLimitMiddleware(limiter *ratelimit.Limiter, now func() time.Time, logger utils.Logger) gin.HandlerFunc {
	base := NewBaseHandler(logger)
	if now == nil {
		now = time.Now
	}
	return func(c *gin.Context) {
		userID := getUserID(c)
		if userID == 0 {
			c.Next()
			return
		}

		// Store failures are logged by the limiter and let the request through.
		decision, _ := limiter.Allow(c.Request.Context(), userID, now())

		c.Header("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))

		if !decision.Allowed {
			retryAfter := int(decision.RetryAfter.Round(time.Second) / time.Second)
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			base.RespondWithError(c, http.StatusTooManyRequests, "rate_limited", "Too many requests", nil, map[string]interface{}{
				"limit":       decision.Limit,
				"retry_after": retryAfter,
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
