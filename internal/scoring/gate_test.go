package scoring

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestGateConcurrencyBound(t *testing.T) {
	const limit = 2
	const tasks = 5
	g := NewGate(limit)

	var cur, max atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < tasks; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := g.Submit(context.Background(), func() error {
				n := cur.Add(1)
				for {
					m := max.Load()
					if n <= m || max.CompareAndSwap(m, n) {
						break
					}
				}
				time.Sleep(20 * time.Millisecond)
				cur.Add(-1)
				return nil
			})
			if err != nil {
				t.Errorf("submit: %v", err)
			}
		}()
	}
	wg.Wait()
	if got := max.Load(); got > limit {
		t.Fatalf("observed %d concurrent tasks, limit %d", got, limit)
	}
	active, queued := g.Stats()
	if active != 0 || queued != 0 {
		t.Fatalf("gate not drained: active=%d queued=%d", active, queued)
	}
}

func TestGateFIFOOrder(t *testing.T) {
	g := NewGate(1)
	if err := g.Acquire(context.Background()); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	const waiters = 4
	order := make(chan int, waiters)
	for i := 0; i < waiters; i++ {
		i := i
		go func() {
			if err := g.Acquire(context.Background()); err != nil {
				t.Errorf("acquire %d: %v", i, err)
				return
			}
			order <- i
			g.Release()
		}()
		// wait until this waiter is queued so arrival order is fixed
		deadline := time.Now().Add(time.Second)
		for {
			if _, queued := g.Stats(); queued == i+1 {
				break
			}
			if time.Now().After(deadline) {
				t.Fatalf("waiter %d never queued", i)
			}
			time.Sleep(time.Millisecond)
		}
	}

	g.Release()
	for i := 0; i < waiters; i++ {
		select {
		case got := <-order:
			if got != i {
				t.Fatalf("completion order: got %d want %d", got, i)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for waiter %d", i)
		}
	}
}

func TestGateCancelWhileQueued(t *testing.T) {
	g := NewGate(1)
	if err := g.Acquire(context.Background()); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- g.Acquire(ctx) }()
	deadline := time.Now().Add(time.Second)
	for {
		if _, queued := g.Stats(); queued == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("waiter never queued")
		}
		time.Sleep(time.Millisecond)
	}
	cancel()
	if err := <-errCh; err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if _, queued := g.Stats(); queued != 0 {
		t.Fatalf("canceled waiter still queued")
	}

	// the held slot is unaffected and the gate stays usable
	g.Release()
	if err := g.Acquire(context.Background()); err != nil {
		t.Fatalf("reacquire: %v", err)
	}
	g.Release()
}

// Five 100ms tasks through a gate of two: two run at once, the third starts
// around 100ms, the last finishes around 300ms.
func TestGateStaggeredAdmission(t *testing.T) {
	g := NewGate(2)
	start := time.Now()
	starts := make([]time.Duration, 5)
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = g.Submit(context.Background(), func() error {
				starts[i] = time.Since(start)
				time.Sleep(100 * time.Millisecond)
				return nil
			})
		}()
		// pin arrival order
		time.Sleep(5 * time.Millisecond)
	}
	wg.Wait()
	total := time.Since(start)

	if starts[2] < 80*time.Millisecond {
		t.Fatalf("third task started too early: %v", starts[2])
	}
	if total < 250*time.Millisecond {
		t.Fatalf("five tasks finished too fast for a gate of two: %v", total)
	}
	if total > time.Second {
		t.Fatalf("tasks took too long: %v", total)
	}
}
