package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"events_api/internal/cache"
	"events_api/internal/config"
	"events_api/internal/db"
	"events_api/internal/event"
	"events_api/internal/logging"
	"events_api/internal/observability"
	"events_api/internal/organization"
	"events_api/internal/queue"
	"events_api/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	log := logging.Init("worker", &cfg.Log)

	if cfg.Task.Dispatcher != config.DispatcherRabbitMQ {
		log.Fatal("The worker consumes the task queue, set TASK_DISPATCHER=rabbitmq")
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

	rdb, err := cache.SetupRedis(&cfg.Redis)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to redis")
	}
	defer rdb.Close()

	conn, err := queue.SetupRabbitMQ(&cfg.RabbitMQ)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to RabbitMQ")
	}

	ch, err := queue.CreateChannel(conn)
	if err != nil {
		log.WithError(err).Fatal("Failed to create RabbitMQ channel")
	}
	if _, err := queue.DeclareQueue(ch, cfg.Task.Queue); err != nil {
		log.WithError(err).Fatal("Failed to declare RabbitMQ queue")
	}
	if err := ch.Close(); err != nil {
		log.WithError(err).Fatal("Failed to close RabbitMQ channel")
	}

	metrics := observability.InitMetrics()
	if err := metrics.WatchDB(database, cfg.DB.Name); err != nil {
		log.WithError(err).Warn("Failed to register database stats collector")
	}
	log.Info("Metrics initialized")

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		log.Infof("Worker metrics server started on :%s", cfg.Worker.MetricsPort)
		if err := http.ListenAndServe(":"+cfg.Worker.MetricsPort, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Failed to start metrics server")
		}
	}()

	executor := worker.NewExecutor(cache.NewTaskRegistry(rdb), cfg.Task.SimulatedLatency, metrics)

	// the worker only executes creations, it never submits tasks
	orgService := organization.NewService(organization.NewRepository(), database, nil)
	eventService := event.NewService(event.NewRepository(), database, nil)
	executor.Handle(organization.TaskKind, orgService.ExecuteCreate)
	executor.Handle(event.TaskKind, eventService.ExecuteCreate)

	var wg sync.WaitGroup
	for i := 1; i <= cfg.Worker.Concurrency; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			if err := worker.StartWorker(conn, executor, cfg.Task.Queue, metrics, id); err != nil {
				log.WithError(err).Error("Worker exited")
			}
		}(i)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down workers...")

	// closing the connection ends every delivery loop after its current job
	if err := conn.Close(); err != nil {
		log.WithError(err).Error("Failed to close RabbitMQ connection")
	}
	wg.Wait()
	log.Info("Workers stopped")
}
