package organization

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
	Create(ctx context.Context, in *Input) (*Organization, error)
	CreateAsync(ctx context.Context, in *Input) (*task.Task, error)
	TaskStatus(ctx context.Context, taskID string) (*task.Task, error)
	Get(ctx context.Context, id int) (*Organization, error)
	List(ctx context.Context, filter Filter, params pagination.Params) (*pagination.Page[*Organization], error)
	Update(ctx context.Context, id int, in *Input) (*Organization, error)
	Delete(ctx context.Context, id int) (*Organization, error)
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

func (s *Service) Create(ctx context.Context, in *Input) (*Organization, error) {
	var org *Organization
	err := utils.WithTransaction(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		org, err = s.repo.Create(ctx, tx, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return org, nil
}

// CreateAsync registers a deferred creation and returns the Processing task.
func (s *Service) CreateAsync(ctx context.Context, in *Input) (*task.Task, error) {
	return s.tasks.Submit(ctx, TaskKind, in)
}

// TaskStatus returns the task only if it is an organization creation.
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

// ExecuteCreate is the executor handler for TaskKind jobs.
func (s *Service) ExecuteCreate(ctx context.Context, payload []byte) (int, error) {
	var in Input
	if err := json.Unmarshal(payload, &in); err != nil {
		return 0, fmt.Errorf("decode organization payload: %w", err)
	}
	if err := binding.Validator.ValidateStruct(&in); err != nil {
		return 0, fmt.Errorf("%w: %v", apperr.ErrValidation, err)
	}

	org, err := s.Create(ctx, &in)
	if err != nil {
		return 0, err
	}
	return org.ID, nil
}

func (s *Service) Get(ctx context.Context, id int) (*Organization, error) {
	return s.repo.GetByID(ctx, s.db, id)
}

func (s *Service) List(ctx context.Context, filter Filter, params pagination.Params) (*pagination.Page[*Organization], error) {
	orgs, total, err := s.repo.List(ctx, s.db, filter, params.Offset(), params.Size)
	if err != nil {
		return nil, err
	}
	return pagination.NewPage(orgs, total, params)
}

func (s *Service) Update(ctx context.Context, id int, in *Input) (*Organization, error) {
	var org *Organization
	err := utils.WithTransaction(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		org, err = s.repo.Update(ctx, tx, id, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return org, nil
}

func (s *Service) Delete(ctx context.Context, id int) (*Organization, error) {
	var org *Organization
	err := utils.WithTransaction(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		org, err = s.repo.Delete(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return org, nil
}
