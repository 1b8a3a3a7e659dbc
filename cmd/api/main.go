package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"events_api/internal/cache"
	"events_api/internal/config"
	"events_api/internal/db"
	"events_api/internal/event"
	"events_api/internal/handler"
	"events_api/internal/logging"
	"events_api/internal/observability"
	"events_api/internal/organization"
	"events_api/internal/queue"
	"events_api/internal/task"
	"events_api/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	log := logging.Init("api", &cfg.Log)

	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	database, err := db.Init(&cfg.DB)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	defer func() {
		if err := database.Close(); err != nil {
			log.WithError(err).Error("Failed to close database connection")
		}
	}()

	if err := db.EnsureSchema(context.Background(), database); err != nil {
		log.WithError(err).Fatal("Failed to create schema")
	}

	metrics := observability.InitMetrics()
	if err := metrics.WatchDB(database, cfg.DB.Name); err != nil {
		log.WithError(err).Warn("Failed to register database stats collector")
	}
	log.Info("Metrics initialized")

	var rdb *redis.Client
	if cfg.Redis.Enabled() {
		rdb, err = cache.SetupRedis(&cfg.Redis)
		if err != nil {
			log.WithError(err).Fatal("Failed to connect to redis")
		}
		defer func() {
			if err := rdb.Close(); err != nil {
				log.WithError(err).Error("Failed to close redis connection")
			}
		}()
	}

	var registry task.Registry = task.NewMemoryRegistry()
	if cfg.Task.Registry == config.RegistryRedis {
		registry = cache.NewTaskRegistry(rdb)
	}

	executor := worker.NewExecutor(registry, cfg.Task.SimulatedLatency, metrics)

	var (
		dispatcher task.Dispatcher
		local      *worker.LocalDispatcher
	)
	switch cfg.Task.Dispatcher {
	case config.DispatcherRabbitMQ:
		conn, err := queue.SetupRabbitMQ(&cfg.RabbitMQ)
		if err != nil {
			log.WithError(err).Fatal("Failed to connect to RabbitMQ")
		}
		defer func() {
			if err := conn.Close(); err != nil {
				log.WithError(err).Error("Failed to close RabbitMQ connection")
			}
		}()

		dispatcher, err = worker.NewAMQPDispatcher(conn, cfg.Task.Queue, metrics)
		if err != nil {
			log.WithError(err).Fatal("Failed to set up task queue")
		}
	default:
		local = worker.NewLocalDispatcher(executor)
		dispatcher = local
	}

	tasks := task.NewService(registry, dispatcher, metrics)

	orgService := organization.NewService(organization.NewRepository(), database, tasks)
	eventService := event.NewService(event.NewRepository(), database, tasks)
	executor.Handle(organization.TaskKind, orgService.ExecuteCreate)
	executor.Handle(event.TaskKind, eventService.ExecuteCreate)

	r := handler.SetupHandler(handler.Dependencies{
		Organizations: orgService,
		Events:        eventService,
		Metrics:       metrics,
		Gatherer:      prometheus.DefaultGatherer,
		Redis:         rdb,
		RateLimit:     &cfg.RateLimit,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: r,
	}

	go func() {
		log.WithFields(logrus.Fields{
			"port":       cfg.AppPort,
			"registry":   cfg.Task.Registry,
			"dispatcher": cfg.Task.Dispatcher,
		}).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}

	if local != nil {
		log.Info("Waiting for in-process tasks to finish")
		local.Wait()
	}
	log.Info("Server stopped")
}
