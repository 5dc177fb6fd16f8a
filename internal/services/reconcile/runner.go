package reconcile

import (
	"context"
	"sync"
)

// Runner owns the lifecycle of a Reconciler loop.
type Runner struct {
	rec *Reconciler

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewRunner wraps rec.
func NewRunner(rec *Reconciler) *Runner {
	return &Runner{rec: rec}
}

// Start launches the loop. It is a no-op while the loop is running.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	r.cancel, r.done = cancel, done
	go func() {
		defer close(done)
		_ = r.rec.Run(ctx)
	}()
}

// Running reports whether the loop is running.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancel != nil
}

// Stop cancels the loop and waits for it to return.
func (r *Runner) Stop() {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel, r.done = nil, nil
	r.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}
