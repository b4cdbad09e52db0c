package ratelimit

import (
	"net/http"
	"strconv"
	"strings"

	"lumacheckin/internal/shared/utils/response"
	"lumacheckin/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Middleware enforces the limit for the route's type. Clients are keyed by
// gin's ClientIP, which only honours forwarding headers from the engine's
// trusted proxies.
func Middleware(rateLimiter *RateLimiter) gin.HandlerFunc {
	log := logger.GetDefault()
	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		limitType := getRateLimitType(c.FullPath())

		result, err := rateLimiter.IsAllowed(c.Request.Context(), clientIP, limitType)
		if err != nil {
			// Redis trouble must not take check-in down with it
			log.WarnContext(c.Request.Context(), "Rate limit check failed",
				"ip", clientIP, "error", err.Error())
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetTime, 10))

		if !result.Allowed {
			log.LogRateLimitExceeded(c.Request.Context(), clientIP, c.Request.URL.Path)
			response.AbortWithError(c, http.StatusTooManyRequests, "Rate limit exceeded")
			return
		}

		c.Next()
	}
}

func getRateLimitType(path string) RateLimitType {
	switch {
	case strings.HasPrefix(path, "/health"),
		strings.HasPrefix(path, "/ping"),
		strings.HasPrefix(path, "/status"),
		strings.HasPrefix(path, "/metrics"):
		return RateLimitTypeHealth

	case strings.HasSuffix(path, "/checkin"):
		return RateLimitTypeCheckin

	case strings.HasPrefix(path, "/scan"),
		strings.HasPrefix(path, "/assets"):
		return RateLimitTypePage

	default:
		return RateLimitTypeDefault
	}
}
