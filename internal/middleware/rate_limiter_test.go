package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"events_api/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return mr, client
}

func setupTestRouter(redisClient *redis.Client, cfg *config.RateLimitConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	router.Use(RateLimiterMiddleware(redisClient, cfg))

	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "success"})
	})

	return router
}

func get(router *gin.Engine, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRateLimiter_AllowRequestsUnderLimit(t *testing.T) {
	_, client := setupTestRedis(t)
	router := setupTestRouter(client, &config.RateLimitConfig{Capacity: 5, RefillRate: 1})

	for i := 0; i < 5; i++ {
		w := get(router, "192.0.2.1:1234")
		assert.Equal(t, http.StatusOK, w.Code, "Request %d should succeed", i+1)
	}
}

func TestRateLimiter_DenyRequestsOverLimit(t *testing.T) {
	_, client := setupTestRedis(t)
	router := setupTestRouter(client, &config.RateLimitConfig{Capacity: 3, RefillRate: 0.5})

	for i := 0; i < 3; i++ {
		w := get(router, "192.0.2.1:1234")
		assert.Equal(t, http.StatusOK, w.Code, "Request %d should succeed", i+1)
	}

	w := get(router, "192.0.2.1:1234")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "Rate limit exceeded")
	assert.Equal(t, "2", w.Header().Get("Retry-After"))
}

func TestRateLimiter_TokenRefill(t *testing.T) {
	_, client := setupTestRedis(t)
	router := setupTestRouter(client, &config.RateLimitConfig{Capacity: 2, RefillRate: 10})

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, get(router, "192.0.2.1:1234").Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, get(router, "192.0.2.1:1234").Code)

	// 10 tokens per second refills one token in 100ms
	time.Sleep(250 * time.Millisecond)

	assert.Equal(t, http.StatusOK, get(router, "192.0.2.1:1234").Code, "Request should succeed after token refill")
}

func TestRateLimiter_DifferentClients(t *testing.T) {
	_, client := setupTestRedis(t)
	router := setupTestRouter(client, &config.RateLimitConfig{Capacity: 2, RefillRate: 0.1})

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, get(router, "192.0.2.1:1234").Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, get(router, "192.0.2.1:1234").Code)

	assert.Equal(t, http.StatusOK, get(router, "198.51.100.7:4321").Code,
		"a second client should not be affected by the first one's bucket")
}

func TestRateLimiter_BucketExpires(t *testing.T) {
	mr, client := setupTestRedis(t)
	router := setupTestRouter(client, &config.RateLimitConfig{Capacity: 4, RefillRate: 2})

	require.Equal(t, http.StatusOK, get(router, "192.0.2.1:1234").Code)

	key := ClientRateLimiterKey("192.0.2.1")
	require.True(t, mr.Exists(key))
	assert.Equal(t, 3*time.Second, mr.TTL(key))
}

func TestRateLimiter_RedisFailure_FailOpen(t *testing.T) {
	mr, client := setupTestRedis(t)
	router := setupTestRouter(client, &config.RateLimitConfig{Capacity: 1, RefillRate: 0.1})

	mr.Close()

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, get(router, "192.0.2.1:1234").Code)
	}
}

func TestClientRateLimiterKey(t *testing.T) {
	assert.Equal(t, "rate_limiter:ip:192.0.2.1", ClientRateLimiterKey("192.0.2.1"))
	assert.Equal(t, "rate_limiter:ip:::1", ClientRateLimiterKey("::1"))
}
