package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"user-crud-service/internal/adapter/gin/response"
	grpcmiddleware "user-crud-service/internal/adapter/grpc/middleware"
	"user-crud-service/pkg/logger"
)

// RateLimiter returns a Gin middleware for rate limiting using the same
// Redis token bucket as the gRPC interceptor.
func RateLimiter(limiter *grpcmiddleware.RateLimiter, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Enabled() {
			c.Next()
			return
		}

		// The route template keeps every /users/:id in one bucket per client.
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		key := fmt.Sprintf("%s:%s:%s", c.Request.Method, route, c.ClientIP())

		allowed, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			logger.WithContext(c.Request.Context(), log).Warn("rate limiter unavailable, allowing request",
				zap.String("key", key), zap.Error(err))
		}
		if !allowed {
			cfg := limiter.Config()
			response.Abort(c, http.StatusTooManyRequests, "RateLimitExceeded",
				fmt.Sprintf("Rate limit exceeded: %.2f requests/second (burst capacity: %d)",
					cfg.RequestsPerSecond, cfg.BurstCapacity))
			return
		}

		c.Next()
	}
}
