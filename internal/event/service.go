package event

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"events_api/internal/apperr"
	"events_api/internal/pagination"
	"events_api/internal/task"
	"events_api/internal/utils"

	"github.com/gin-gonic/gin/binding"
)

type ServiceInterface interface {
	Create(ctx context.Context, in *Input) (*Event, error)
	CreateAsync(ctx context.Context, in *Input) (*task.Task, error)
	TaskStatus(ctx context.Context, taskID string) (*task.Task, error)
	Get(ctx context.Context, id int) (*Event, error)
	List(ctx context.Context, filter Filter, params pagination.Params) (*pagination.Page[*Event], error)
	Update(ctx context.Context, id int, in *Input) (*Event, error)
	Delete(ctx context.Context, id int) (*Event, error)
}

type Service struct {
	repo  RepositoryInterface
	db    *sql.DB
	tasks task.ServiceInterface
}

func NewService(repo RepositoryInterface, db *sql.DB, tasks task.ServiceInterface) *Service {
	return &Service{
		repo:  repo,
		db:    db,
		tasks: tasks,
	}
}

// inTx runs one repository write in its own transaction.
func (s *Service) inTx(ctx context.Context, fn func(tx *sql.Tx) (*Event, error)) (*Event, error) {
	var e *Event
	err := utils.WithTransaction(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		e, err = fn(tx)
		return err
	})
	return e, err
}

func (s *Service) Create(ctx context.Context, in *Input) (*Event, error) {
	return s.inTx(ctx, func(tx *sql.Tx) (*Event, error) {
		return s.repo.Create(ctx, tx, in)
	})
}

func (s *Service) CreateAsync(ctx context.Context, in *Input) (*task.Task, error) {
	return s.tasks.Submit(ctx, TaskKind, in)
}

// TaskStatus hides tasks of other kinds behind task.ErrNotFound.
func (s *Service) TaskStatus(ctx context.Context, taskID string) (*task.Task, error) {
	t, err := s.tasks.Status(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if t.Kind != TaskKind {
		return nil, task.ErrNotFound
	}
	return t, nil
}

// ExecuteCreate decodes a deferred creation payload and stores the event.
// The payload is validated again since it may come off a queue.
func (s *Service) ExecuteCreate(ctx context.Context, payload []byte) (int, error) {
	var in Input
	if err := json.Unmarshal(payload, &in); err != nil {
		return 0, fmt.Errorf("decode event payload: %w", err)
	}
	if err := binding.Validator.ValidateStruct(&in); err != nil {
		return 0, fmt.Errorf("%w: %v", apperr.ErrValidation, err)
	}

	e, err := s.Create(ctx, &in)
	if err != nil {
		return 0, err
	}
	return e.ID, nil
}

func (s *Service) Get(ctx context.Context, id int) (*Event, error) {
	return s.repo.GetByID(ctx, s.db, id)
}

func (s *Service) List(ctx context.Context, filter Filter, params pagination.Params) (*pagination.Page[*Event], error) {
	events, total, err := s.repo.List(ctx, s.db, filter, params.Offset(), params.Size)
	if err != nil {
		return nil, err
	}
	return pagination.NewPage(events, total, params)
}

func (s *Service) Update(ctx context.Context, id int, in *Input) (*Event, error) {
	return s.inTx(ctx, func(tx *sql.Tx) (*Event, error) {
		return s.repo.Update(ctx, tx, id, in)
	})
}

func (s *Service) Delete(ctx context.Context, id int) (*Event, error) {
	return s.inTx(ctx, func(tx *sql.Tx) (*Event, error) {
		return s.repo.Delete(ctx, tx, id)
	})
}
