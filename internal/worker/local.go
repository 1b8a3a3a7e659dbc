package worker

import (
	"context"
	"sync"

	"events_api/internal/task"
)

// LocalDispatcher runs every job on its own goroutine inside the API
// process. Jobs are detached from the request context: once dispatched they
// run to completion, there is no cancellation.
type LocalDispatcher struct {
	executor *Executor
	wg       sync.WaitGroup
}

func NewLocalDispatcher(executor *Executor) *LocalDispatcher {
	return &LocalDispatcher{executor: executor}
}

func (d *LocalDispatcher) Dispatch(_ context.Context, job task.Job) error {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		// nothing to redeliver in process; Execute already logged the failure
		_ = d.executor.Execute(context.Background(), job, 0)
	}()
	return nil
}

// Wait blocks until every dispatched job has finished.
func (d *LocalDispatcher) Wait() {
	d.wg.Wait()
}
