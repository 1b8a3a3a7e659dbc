package task

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"events_api/internal/observability"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockDispatcher is a mock implementation of Dispatcher
type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Dispatch(ctx context.Context, job Job) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

type samplePayload struct {
	Name string `json:"name"`
}

func TestSubmit_RegistersBeforeDispatch(t *testing.T) {
	registry := NewMemoryRegistry()
	dispatcher := new(MockDispatcher)
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	svc := NewService(registry, dispatcher, metrics)
	svc.newID = func() string { return "t1" }

	dispatcher.On("Dispatch", mock.Anything, mock.AnythingOfType("task.Job")).
		Return(nil).
		Run(func(args mock.Arguments) {
			job := args.Get(1).(Job)
			rec, err := registry.Get(context.Background(), job.TaskID)
			require.NoError(t, err, "task must be registered before dispatch")
			assert.Equal(t, StatusProcessing, rec.Status)
		})

	got, err := svc.Submit(context.Background(), "organization.create", samplePayload{Name: "Acme"})
	require.NoError(t, err)

	assert.Equal(t, "t1", got.ID)
	assert.Equal(t, StatusProcessing, got.Status)
	assert.Equal(t, "organization.create", got.Kind)

	job := dispatcher.Calls[0].Arguments.Get(1).(Job)
	assert.Equal(t, "t1", job.TaskID)
	assert.Equal(t, "organization.create", job.Kind)
	var decoded samplePayload
	require.NoError(t, json.Unmarshal(job.Payload, &decoded))
	assert.Equal(t, "Acme", decoded.Name)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.TasksCreatedTotal.WithLabelValues("organization.create")))
	dispatcher.AssertExpectations(t)
}

func TestSubmit_DispatchFailureMarksFailed(t *testing.T) {
	registry := NewMemoryRegistry()
	dispatcher := new(MockDispatcher)
	svc := NewService(registry, dispatcher, nil)
	svc.newID = func() string { return "t1" }

	dispatcher.On("Dispatch", mock.Anything, mock.Anything).Return(errors.New("broker unavailable"))

	got, err := svc.Submit(context.Background(), "event.create", samplePayload{Name: "Launch"})

	assert.Nil(t, got)
	assert.ErrorContains(t, err, "broker unavailable")

	rec, err := registry.Get(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, rec.Status)
	require.NotNil(t, rec.Error)
	assert.Equal(t, "broker unavailable", *rec.Error)
}

func TestSubmit_DuplicateIDIsRejected(t *testing.T) {
	registry := NewMemoryRegistry()
	dispatcher := new(MockDispatcher)
	svc := NewService(registry, dispatcher, nil)
	svc.newID = func() string { return "same" }

	dispatcher.On("Dispatch", mock.Anything, mock.Anything).Return(nil).Once()

	_, err := svc.Submit(context.Background(), "event.create", samplePayload{})
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), "event.create", samplePayload{})
	assert.ErrorIs(t, err, ErrDuplicateTask)

	dispatcher.AssertNumberOfCalls(t, "Dispatch", 1)
}

func TestSubmit_GeneratesUniqueIDs(t *testing.T) {
	registry := NewMemoryRegistry()
	dispatcher := new(MockDispatcher)
	svc := NewService(registry, dispatcher, nil)
	dispatcher.On("Dispatch", mock.Anything, mock.Anything).Return(nil)

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		got, err := svc.Submit(context.Background(), "event.create", samplePayload{})
		require.NoError(t, err)
		assert.False(t, seen[got.ID], "id %s reused", got.ID)
		seen[got.ID] = true
	}
}

func TestSubmit_UnencodablePayload(t *testing.T) {
	dispatcher := new(MockDispatcher)
	svc := NewService(NewMemoryRegistry(), dispatcher, nil)

	_, err := svc.Submit(context.Background(), "event.create", make(chan int))

	assert.Error(t, err)
	dispatcher.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything)
}

func TestStatus(t *testing.T) {
	registry := NewMemoryRegistry()
	svc := NewService(registry, new(MockDispatcher), nil)
	require.NoError(t, registry.Put(context.Background(), newProcessing("t1")))

	got, err := svc.Status(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, got.Status)

	_, err = svc.Status(context.Background(), "t2")
	assert.ErrorIs(t, err, ErrNotFound)
}
