package handler

import (
	"net/http"

	"events_api/internal/apperr"
	"events_api/internal/config"
	"events_api/internal/event"
	"events_api/internal/middleware"
	"events_api/internal/observability"
	"events_api/internal/organization"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const welcomeMessage = "Welcome to the Organizations and Events API!"

// Dependencies is everything the router needs. Redis may be nil, which
// disables rate limiting.
type Dependencies struct {
	Organizations organization.ServiceInterface
	Events        event.ServiceInterface

	Metrics  *observability.Metrics
	Gatherer prometheus.Gatherer

	Redis     *redis.Client
	RateLimit *config.RateLimitConfig
}

// SetupHandler builds the engine with all routes and middleware.
func SetupHandler(deps Dependencies) *gin.Engine {
	apperr.UseJSONFieldNames()

	r := gin.Default()

	if deps.Metrics != nil {
		r.Use(middleware.PrometheusMiddleware(deps.Metrics))
	}

	setupRoutes(r, deps)
	return r
}

func setupRoutes(r *gin.Engine, deps Dependencies) {
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": welcomeMessage})
	})

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	var limits []gin.HandlerFunc
	if deps.Redis != nil && deps.RateLimit != nil {
		limits = append(limits, middleware.RateLimiterMiddleware(deps.Redis, deps.RateLimit))
	}

	organization.NewController(deps.Organizations).SetupRoutes(r, limits...)
	event.NewController(deps.Events).SetupRoutes(r, limits...)
}
