package task

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"events_api/internal/apperr"
)

var (
	ErrNotFound      = fmt.Errorf("task %w", apperr.ErrNotFound)
	ErrDuplicateTask = errors.New("task already registered")
	ErrTaskFinalized = errors.New("task already finished")
)

// Registry maps task ids to their current record. Implementations must be
// safe for concurrent use. There is no delete and no expiry: every record
// stays until the backing store is discarded.
type Registry interface {
	Put(ctx context.Context, t Task) error
	Get(ctx context.Context, id string) (*Task, error)
	Update(ctx context.Context, t Task) error
}

// MemoryRegistry keeps records in process memory; they are lost on restart.
type MemoryRegistry struct {
	mu    sync.RWMutex
	tasks map[string]Task
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{tasks: make(map[string]Task)}
}

func (r *MemoryRegistry) Put(_ context.Context, t Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[t.ID]; ok {
		return ErrDuplicateTask
	}
	r.tasks[t.ID] = t
	return nil
}

func (r *MemoryRegistry) Get(_ context.Context, id string) (*Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &t, nil
}

func (r *MemoryRegistry) Update(_ context.Context, t Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.tasks[t.ID]
	if !ok {
		return ErrNotFound
	}
	if current.Status.Terminal() {
		return ErrTaskFinalized
	}
	r.tasks[t.ID] = t
	return nil
}

// Len is the number of records held, terminal ones included.
func (r *MemoryRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tasks)
}
