package ocr

import (
	"context"
	"sync"
)

// Dispatcher hands a job to background processing and returns immediately.
type Dispatcher interface {
	Dispatch(ctx context.Context, job Job) error
}

// InProcessDispatcher runs each job on its own goroutine, detached from the
// request's cancellation.
type InProcessDispatcher struct {
	runner *Runner
	wg     sync.WaitGroup
}

func NewInProcessDispatcher(runner *Runner) *InProcessDispatcher {
	return &InProcessDispatcher{runner: runner}
}

func (d *InProcessDispatcher) Dispatch(ctx context.Context, job Job) error {
	detached := context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.runner.Run(detached, job)
	}()
	return nil
}

// Wait blocks until every dispatched job has finished.
func (d *InProcessDispatcher) Wait() {
	d.wg.Wait()
}
