package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"events_api/internal/observability"
	"events_api/internal/task"

	"github.com/sirupsen/logrus"
)

// HandlerFunc performs one kind of deferred creation and returns the id of
// the created record.
type HandlerFunc func(ctx context.Context, payload []byte) (int, error)

// Executor runs jobs after the simulated latency and records the outcome in
// the task registry. Handler failures end up as Failed tasks; only registry
// failures are returned to the caller.
type Executor struct {
	registry task.Registry
	latency  time.Duration
	metrics  *observability.Metrics

	mu       sync.RWMutex
	handlers map[string]HandlerFunc
}

// NewExecutor creates an executor. latency stands in for slow validation or
// external calls and only makes the deferred path observably slower.
func NewExecutor(registry task.Registry, latency time.Duration, metrics *observability.Metrics) *Executor {
	return &Executor{
		registry: registry,
		latency:  latency,
		metrics:  metrics,
		handlers: make(map[string]HandlerFunc),
	}
}

// Handle registers fn for jobs of the given kind.
func (e *Executor) Handle(kind string, fn HandlerFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[kind] = fn
}

func (e *Executor) handler(kind string) (HandlerFunc, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	fn, ok := e.handlers[kind]
	return fn, ok
}

// Execute runs job to completion. It performs at most one registry update,
// and none when the task is unknown or already terminal. A non-nil error
// means the registry could not be read or written and the outcome was not
// recorded, so the job should be retried.
func (e *Executor) Execute(ctx context.Context, job task.Job, workerID int) error {
	log := logrus.WithFields(logrus.Fields{
		"task_id":   job.TaskID,
		"kind":      job.Kind,
		"worker_id": workerID,
	})

	if e.metrics != nil {
		e.metrics.TasksInFlight.Inc()
		defer e.metrics.TasksInFlight.Dec()
	}

	current, err := e.registry.Get(ctx, job.TaskID)
	if errors.Is(err, task.ErrNotFound) {
		log.Warn("Task not registered, dropping job")
		return nil
	}
	if err != nil {
		log.WithError(err).Error("Failed to load task")
		return fmt.Errorf("load task %s: %w", job.TaskID, err)
	}
	// a redelivered job whose task already finished must not write again
	if current.Status.Terminal() {
		log.WithField("status", current.Status).Warn("Task already finished, skipping")
		return nil
	}

	startTime := time.Now()
	log.Info("Processing task")

	if e.latency > 0 {
		time.Sleep(e.latency)
	}

	resultID, taskErr := e.run(ctx, job)

	if e.metrics != nil {
		e.metrics.TaskProcessingDuration.WithLabelValues(job.Kind).Observe(time.Since(startTime).Seconds())
	}

	var final task.Task
	if taskErr != nil {
		final = current.Fail(taskErr.Error(), time.Now().UTC())
	} else {
		final = current.Complete(resultID, time.Now().UTC())
	}

	if err := e.registry.Update(ctx, final); err != nil {
		if errors.Is(err, task.ErrTaskFinalized) || errors.Is(err, task.ErrNotFound) {
			log.WithError(err).Warn("Task changed while running, outcome discarded")
			return nil
		}
		log.WithError(err).Error("Failed to update task status")
		return fmt.Errorf("update task %s: %w", job.TaskID, err)
	}

	if e.metrics != nil {
		e.metrics.TasksProcessedTotal.WithLabelValues(job.Kind, string(final.Status)).Inc()
	}
	if taskErr != nil {
		log.WithError(taskErr).Warn("Task failed")
		return nil
	}
	log.WithField("result_id", resultID).Info("Task completed")
	return nil
}

func (e *Executor) run(ctx context.Context, job task.Job) (id int, err error) {
	fn, ok := e.handler(job.Kind)
	if !ok {
		return 0, fmt.Errorf("unknown task kind: %s", job.Kind)
	}

	defer func() {
		if r := recover(); r != nil {
			logrus.WithField("task_id", job.TaskID).Errorf("task panic: %v\n%s", r, debug.Stack())
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()

	return fn(ctx, job.Payload)
}
