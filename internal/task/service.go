package task

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"events_api/internal/observability"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Dispatcher schedules a job to run independently of the caller. It must
// return without waiting for the job to finish.
type Dispatcher interface {
	Dispatch(ctx context.Context, job Job) error
}

type ServiceInterface interface {
	Submit(ctx context.Context, kind string, payload any) (*Task, error)
	Status(ctx context.Context, id string) (*Task, error)
}

type Service struct {
	registry   Registry
	dispatcher Dispatcher
	metrics    *observability.Metrics
	newID      func() string
	now        func() time.Time
}

// NewService wires the registry and dispatcher. metrics may be nil.
func NewService(registry Registry, dispatcher Dispatcher, metrics *observability.Metrics) *Service {
	return &Service{
		registry:   registry,
		dispatcher: dispatcher,
		metrics:    metrics,
		newID:      uuid.NewString,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Submit registers a Processing task and only then dispatches the job, so a
// finisher can never observe a missing record. If dispatching fails the task
// is marked Failed and the error returned.
func (s *Service) Submit(ctx context.Context, kind string, payload any) (*Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", kind, err)
	}

	now := s.now()
	t := Task{
		ID:        s.newID(),
		Kind:      kind,
		Status:    StatusProcessing,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.registry.Put(ctx, t); err != nil {
		return nil, fmt.Errorf("register task: %w", err)
	}

	log := logrus.WithFields(logrus.Fields{"task_id": t.ID, "kind": kind})

	if err := s.dispatcher.Dispatch(ctx, Job{TaskID: t.ID, Kind: kind, Payload: body}); err != nil {
		if uerr := s.registry.Update(ctx, t.Fail(err.Error(), s.now())); uerr != nil {
			log.WithError(uerr).Error("Failed to mark undispatched task as failed")
		}
		return nil, fmt.Errorf("dispatch task: %w", err)
	}

	if s.metrics != nil {
		s.metrics.TasksCreatedTotal.WithLabelValues(kind).Inc()
	}
	log.Info("Task accepted")
	return &t, nil
}

func (s *Service) Status(ctx context.Context, id string) (*Task, error) {
	return s.registry.Get(ctx, id)
}
