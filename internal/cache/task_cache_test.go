package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"events_api/internal/config"
	"events_api/internal/task"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func processing(id string) task.Task {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return task.Task{ID: id, Kind: "event.create", Status: task.StatusProcessing, CreatedAt: now, UpdatedAt: now}
}

func TestTaskRegistry_Lifecycle(t *testing.T) {
	mr, client := setupTestRedis(t)
	r := NewTaskRegistry(client)
	ctx := context.Background()

	rec := processing("t1")
	require.NoError(t, r.Put(ctx, rec))
	assert.True(t, mr.Exists("task:t1"))

	got, err := r.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, task.StatusProcessing, got.Status)
	assert.Equal(t, "event.create", got.Kind)

	require.NoError(t, r.Update(ctx, rec.Complete(9, time.Now().UTC())))

	got, err = r.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, task.StatusCompleted, got.Status)
	require.NotNil(t, got.ResultID)
	assert.Equal(t, 9, *got.ResultID)

	// no expiry is set
	assert.Equal(t, time.Duration(0), mr.TTL("task:t1"))
}

func TestTaskRegistry_Duplicate(t *testing.T) {
	_, client := setupTestRedis(t)
	r := NewTaskRegistry(client)
	ctx := context.Background()

	require.NoError(t, r.Put(ctx, processing("t1")))
	assert.ErrorIs(t, r.Put(ctx, processing("t1")), task.ErrDuplicateTask)
}

func TestTaskRegistry_NotFound(t *testing.T) {
	_, client := setupTestRedis(t)
	r := NewTaskRegistry(client)
	ctx := context.Background()

	_, err := r.Get(ctx, "missing")
	assert.ErrorIs(t, err, task.ErrNotFound)

	err = r.Update(ctx, processing("missing").Fail("x", time.Now()))
	assert.ErrorIs(t, err, task.ErrNotFound)
}

func TestTaskRegistry_TerminalIsImmutable(t *testing.T) {
	_, client := setupTestRedis(t)
	r := NewTaskRegistry(client)
	ctx := context.Background()

	rec := processing("t1")
	require.NoError(t, r.Put(ctx, rec))
	require.NoError(t, r.Update(ctx, rec.Fail("store unavailable", time.Now().UTC())))

	err := r.Update(ctx, rec.Complete(1, time.Now().UTC()))
	assert.ErrorIs(t, err, task.ErrTaskFinalized)

	first, err := r.Get(ctx, "t1")
	require.NoError(t, err)
	second, err := r.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, task.StatusFailed, first.Status)
}

func TestTaskRegistry_ConcurrentFinishersOnlyOneWins(t *testing.T) {
	_, client := setupTestRedis(t)
	r := NewTaskRegistry(client)
	ctx := context.Background()

	rec := processing("t1")
	require.NoError(t, r.Put(ctx, rec))

	var wg sync.WaitGroup
	results := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results <- r.Update(ctx, rec.Complete(i, time.Now().UTC()))
		}(i)
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, task.ErrTaskFinalized)
	}
	assert.Equal(t, 1, succeeded)
}

func TestSetupRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := SetupRedis(&config.RedisConfig{Host: mr.Host(), Port: mr.Port(), RedisDB: "0"})
	require.NoError(t, err)
	defer client.Close()

	_, err = SetupRedis(&config.RedisConfig{Host: mr.Host(), Port: mr.Port(), RedisDB: "zero"})
	assert.Error(t, err)
}
