package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"events_api/internal/task"

	"github.com/go-redis/redis/v8"
)

// TaskRegistry is a task.Registry stored in redis so that the API and
// separate worker processes share task state. Keys never expire.
type TaskRegistry struct {
	client *redis.Client
}

func NewTaskRegistry(client *redis.Client) *TaskRegistry {
	return &TaskRegistry{client: client}
}

// TaskKey builds the redis key for a single task.
func TaskKey(taskID string) string {
	return fmt.Sprintf("task:%s", taskID)
}

func (r *TaskRegistry) Put(ctx context.Context, t task.Task) error {
	data, err := json.Marshal(t)
	if err != nil {
		return err
	}
	ok, err := r.client.SetNX(ctx, TaskKey(t.ID), data, 0).Result()
	if err != nil {
		return err
	}
	if !ok {
		return task.ErrDuplicateTask
	}
	return nil
}

func (r *TaskRegistry) Get(ctx context.Context, id string) (*task.Task, error) {
	val, err := r.client.Get(ctx, TaskKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, task.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var t task.Task
	if err := json.Unmarshal(val, &t); err != nil {
		return nil, fmt.Errorf("decode task %s: %w", id, err)
	}
	return &t, nil
}

// Update overwrites a Processing record. The read-check-write runs under
// WATCH so two finishers cannot both succeed.
func (r *TaskRegistry) Update(ctx context.Context, t task.Task) error {
	data, err := json.Marshal(t)
	if err != nil {
		return err
	}
	key := TaskKey(t.ID)

	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		val, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return task.ErrNotFound
		}
		if err != nil {
			return err
		}

		var current task.Task
		if err := json.Unmarshal(val, &current); err != nil {
			return fmt.Errorf("decode task %s: %w", t.ID, err)
		}
		if current.Status.Terminal() {
			return task.ErrTaskFinalized
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		return err
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return task.ErrTaskFinalized
	}
	return err
}
