package scoring

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"beautyd/internal/model"
	"beautyd/pkg/types"
)

// LoadFunc performs the actual (potentially slow and failure-prone) work of
// obtaining a predictor for a model. Injected so tests can probe call counts.
type LoadFunc func(ctx context.Context, mdl types.Model) (model.Predictor, error)

// Loader obtains predictors, retrying transient load failures with
// exponential backoff and jitter, throttling repeated attempts after
// exhausted retries, and caching the result indefinitely once loaded.
// It is the only component that mutates a handle's state.
type Loader struct {
	mu      sync.Mutex
	handles map[string]*handle

	registry map[string]types.Model
	load     LoadFunc

	maxRetries int
	baseDelay  time.Duration
	throttle   time.Duration

	// baseCtx scopes in-flight load attempts to the process, not to any one
	// caller: a caller timing out must not abort a load other callers await.
	baseCtx context.Context
	pub     EventPublisher
	log     zerolog.Logger
}

// NewLoader constructs a Loader over the given registry.
func NewLoader(reg []types.Model, load LoadFunc, cfg Config) *Loader {
	cfg = cfg.withDefaults()
	byID := make(map[string]types.Model, len(reg))
	for _, mdl := range reg {
		byID[mdl.ID] = mdl
	}
	return &Loader{
		handles:    make(map[string]*handle),
		registry:   byID,
		load:       load,
		maxRetries: cfg.MaxLoadRetries,
		baseDelay:  cfg.BaseBackoff,
		throttle:   cfg.LoadThrottle,
		baseCtx:    context.Background(),
		pub:        noopPublisher{},
		log:        zerolog.Nop(),
	}
}

// SetBaseContext scopes in-flight load attempts; canceling it aborts them.
func (l *Loader) SetBaseContext(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	l.baseCtx = ctx
}

// SetPublisher installs a lifecycle event publisher.
func (l *Loader) SetPublisher(p EventPublisher) {
	if p == nil {
		p = noopPublisher{}
	}
	l.pub = p
}

// SetLogger installs a structured logger.
func (l *Loader) SetLogger(lg zerolog.Logger) { l.log = lg }

// Get returns the predictor for name, loading it if necessary. Cache hits
// return immediately without I/O. If a load is already in flight, the call
// awaits that attempt instead of starting another. A handle that failed
// within the throttle window returns an error immediately without I/O.
func (l *Loader) Get(ctx context.Context, name string) (model.Predictor, error) {
	l.mu.Lock()
	h, ok := l.handles[name]
	if !ok {
		h = &handle{name: name, state: StateUnloaded}
		l.handles[name] = h
	}

	switch h.state {
	case StateLoaded:
		p := h.predictor
		l.mu.Unlock()
		return p, nil
	case StateFailed:
		if since := time.Since(h.lastAttempt); since < l.throttle {
			err := loadThrottledError{name: name, retryIn: l.throttle - since, cause: h.lastErr}
			l.mu.Unlock()
			return nil, err
		}
	}

	var pending chan struct{}
	if h.state == StateLoading {
		pending = h.pending
	} else {
		mdl, known := l.registry[name]
		if !known {
			l.mu.Unlock()
			return nil, ErrModelNotFound(name)
		}
		h.state = StateLoading
		h.lastAttempt = time.Now()
		h.pending = make(chan struct{})
		pending = h.pending
		// Detached so a caller deadline cannot kill the shared attempt.
		go l.runLoad(h, mdl)
	}
	l.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-pending:
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if h.state == StateLoaded {
		return h.predictor, nil
	}
	if h.lastErr != nil {
		return nil, h.lastErr
	}
	return nil, fmt.Errorf("load %s: handle in unexpected state %s", name, h.state)
}

// runLoad drives the single in-flight load attempt sequence for h.
func (l *Loader) runLoad(h *handle, mdl types.Model) {
	start := time.Now()
	l.log.Debug().Str("model", mdl.ID).Msg("load start")
	l.pub.Publish(Event{Name: "load_start", Model: mdl.ID, Fields: map[string]any{}})

	var (
		p   model.Predictor
		err error
	)
	for attempt := 1; ; attempt++ {
		p, err = l.load(l.baseCtx, mdl)
		if err == nil {
			break
		}
		l.log.Warn().Str("model", mdl.ID).Int("attempt", attempt).Err(err).Msg("load attempt failed")
		l.pub.Publish(Event{Name: "load_retry", Model: mdl.ID, Fields: map[string]any{"attempt": attempt, "error": err.Error()}})
		if attempt >= l.maxRetries {
			break
		}
		if !l.sleep(backoffDelay(l.baseDelay, attempt)) {
			err = fmt.Errorf("load %s aborted: %w", mdl.ID, l.baseCtx.Err())
			break
		}
	}

	l.mu.Lock()
	if err != nil {
		h.state = StateFailed
		h.lastErr = err
		h.predictor = nil
	} else {
		h.state = StateLoaded
		h.predictor = p
		h.lastErr = nil
	}
	close(h.pending)
	l.mu.Unlock()

	if err != nil {
		l.log.Error().Str("model", mdl.ID).Err(err).Msg("load failed")
		l.pub.Publish(Event{Name: "load_failed", Model: mdl.ID, Fields: map[string]any{"error": err.Error()}})
		return
	}
	l.log.Info().Str("model", mdl.ID).Dur("dur", time.Since(start)).Msg("load ready")
	l.pub.Publish(Event{Name: "load_ready", Model: mdl.ID, Fields: map[string]any{"dur_ms": int(time.Since(start) / time.Millisecond)}})
}

// sleep waits for d or until the base context is canceled; it reports
// whether the full delay elapsed.
func (l *Loader) sleep(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-l.baseCtx.Done():
		return false
	}
}

// backoffDelay computes base * 2^(attempt-1) * random(0.5, 1.0). The jitter
// keeps concurrent retry storms from synchronizing.
func backoffDelay(base time.Duration, attempt int) time.Duration {
	d := float64(base) * math.Pow(2, float64(attempt-1))
	return time.Duration(d * (0.5 + rand.Float64()*0.5))
}

// HandleStates snapshots every handle for /status.
func (l *Loader) HandleStates() []types.PredictorStatus {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]types.PredictorStatus, 0, len(l.handles))
	for _, h := range l.handles {
		ps := types.PredictorStatus{Name: h.name, State: string(h.state)}
		if !h.lastAttempt.IsZero() {
			ps.LastAttemptUnix = h.lastAttempt.Unix()
		}
		if h.lastErr != nil {
			ps.Error = h.lastErr.Error()
		}
		out = append(out, ps)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Loaded reports whether the named handle is in the Loaded state.
func (l *Loader) Loaded(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	h, ok := l.handles[name]
	return ok && h.state == StateLoaded
}
