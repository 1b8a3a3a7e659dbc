package middleware

import (
	_ "embed"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"events_api/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

//go:embed rate_limiter.lua
var luaScript string

var tokenBucket = redis.NewScript(luaScript)

// RateLimiterMiddleware implements a token bucket per client IP with Redis
// and a Lua script. The script is loaded lazily, so a Redis restart does not
// need a redeploy. When Redis is unreachable requests are let through.
func RateLimiterMiddleware(redisClient *redis.Client, cfg *config.RateLimitConfig) gin.HandlerFunc {
	retryAfter := time.Duration(float64(time.Second) / cfg.RefillRate)

	return func(c *gin.Context) {
		key := ClientRateLimiterKey(c.ClientIP())

		allowed, err := tokenBucket.Run(c.Request.Context(), redisClient, []string{key},
			cfg.Capacity,
			cfg.RefillRate,
			time.Now().UnixMilli(),
		).Int()
		if err != nil {
			logrus.WithError(err).Error("Failed to execute rate limiter Lua script")
			c.Next()
			return
		}

		if allowed == 0 {
			c.Header("Retry-After", strconv.Itoa(int(retryAfter.Seconds()+0.999)))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Rate limit exceeded",
				"message":     fmt.Sprintf("Maximum %d requests per burst, refilled at %.1f per second", cfg.Capacity, cfg.RefillRate),
				"retry_after": fmt.Sprintf("%.1f seconds", retryAfter.Seconds()),
			})
			return
		}

		c.Next()
	}
}

// ClientRateLimiterKey builds the bucket key for one client address.
func ClientRateLimiterKey(ip string) string {
	return fmt.Sprintf("rate_limiter:ip:%s", ip)
}
