package scoring

import (
	"context"
	"sync"
)

// waiter is one queued admission request.
type waiter struct {
	ready   chan struct{}
	granted bool
}

// Gate bounds the number of concurrently executing predictions. Requests
// beyond the limit wait in a strict-FIFO queue. The queue is unbounded and
// the gate applies no timeout of its own; callers bring their own deadline
// via ctx. Invariant: at most limit requests are admitted at once.
type Gate struct {
	mu     sync.Mutex
	limit  int
	active int
	queue  []*waiter
}

// NewGate constructs a gate with the given concurrency limit K.
func NewGate(limit int) *Gate {
	if limit <= 0 {
		limit = defaultMaxConcurrent
	}
	return &Gate{limit: limit}
}

// Acquire blocks until a slot is free, preserving arrival order. It returns
// ctx.Err() if ctx is done before admission.
func (g *Gate) Acquire(ctx context.Context) error {
	g.mu.Lock()
	if g.active < g.limit && len(g.queue) == 0 {
		g.active++
		g.mu.Unlock()
		return nil
	}
	w := &waiter{ready: make(chan struct{})}
	g.queue = append(g.queue, w)
	g.mu.Unlock()

	select {
	case <-w.ready:
		return nil
	case <-ctx.Done():
	}
	// Canceled. Either remove ourselves from the queue or, if the slot was
	// already handed to us in the meantime, pass it straight on.
	g.mu.Lock()
	defer g.mu.Unlock()
	if w.granted {
		g.releaseLocked()
		return ctx.Err()
	}
	for i, qw := range g.queue {
		if qw == w {
			g.queue = append(g.queue[:i], g.queue[i+1:]...)
			break
		}
	}
	return ctx.Err()
}

// Release frees a slot, admitting the oldest queued waiter if any.
func (g *Gate) Release() {
	g.mu.Lock()
	g.releaseLocked()
	g.mu.Unlock()
}

func (g *Gate) releaseLocked() {
	if len(g.queue) > 0 {
		w := g.queue[0]
		g.queue = g.queue[1:]
		w.granted = true
		// slot handed over directly; active count is unchanged
		close(w.ready)
		return
	}
	g.active--
}

// Submit admits the task through the gate, runs it, then frees the slot.
func (g *Gate) Submit(ctx context.Context, task func() error) error {
	if err := g.Acquire(ctx); err != nil {
		return err
	}
	defer g.Release()
	return task()
}

// Stats reports the current number of admitted and queued requests.
func (g *Gate) Stats() (active, queued int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active, len(g.queue)
}
