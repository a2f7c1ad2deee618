package engine

import (
	"context"
	"time"
)

// #region run-handle

// Run is the handle for one in-flight or completed scoring pass.
type Run struct {
	id        string
	startedAt time.Time
	done      chan struct{}
	result    Result
}

func newRun(id string, startedAt time.Time) *Run {
	return &Run{id: id, startedAt: startedAt, done: make(chan struct{})}
}

// ID returns the run identifier.
func (r *Run) ID() string { return r.id }

// Done is closed once the result is available.
func (r *Run) Done() <-chan struct{} { return r.done }

// Result returns the result and true once the run has completed.
func (r *Run) Result() (Result, bool) {
	select {
	case <-r.done:
		return r.result.clone(), true
	default:
		return Result{}, false
	}
}

// Wait blocks until the run completes or ctx ends.
func (r *Run) Wait(ctx context.Context) (Result, error) {
	select {
	case <-r.done:
		return r.result.clone(), nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

func (r *Run) complete(res Result) {
	r.result = res
	close(r.done)
}

// #endregion run-handle
