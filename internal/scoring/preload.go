package scoring

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Preloader warms the loader cache ahead of real traffic. Trigger is
// fire-and-forget: the warm-up runs in the background and gives up silently
// after its timeout. A flag prevents overlapping runs, so calling Trigger
// repeatedly is safe and idempotent while a run is in flight.
type Preloader struct {
	loader  *Loader
	models  []string
	timeout time.Duration

	baseCtx    context.Context
	preloading atomic.Bool
	log        zerolog.Logger
	pub        EventPublisher
}

// NewPreloader constructs a Preloader warming the given model names.
func NewPreloader(loader *Loader, models []string, timeout time.Duration) *Preloader {
	if timeout <= 0 {
		timeout = defaultPreloadTimeout
	}
	return &Preloader{
		loader:  loader,
		models:  append([]string(nil), models...),
		timeout: timeout,
		baseCtx: context.Background(),
		log:     zerolog.Nop(),
		pub:     noopPublisher{},
	}
}

// SetBaseContext scopes warm-up runs; canceling it aborts them.
func (p *Preloader) SetBaseContext(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	p.baseCtx = ctx
}

// SetPublisher installs a lifecycle event publisher.
func (p *Preloader) SetPublisher(pub EventPublisher) {
	if pub == nil {
		pub = noopPublisher{}
	}
	p.pub = pub
}

// SetLogger installs a structured logger.
func (p *Preloader) SetLogger(lg zerolog.Logger) { p.log = lg }

// Trigger starts a background warm-up run without blocking the caller.
// It reports the run's job id and whether a new run was started; when a run
// is already in flight it returns ("", false).
func (p *Preloader) Trigger() (string, bool) {
	if !p.preloading.CompareAndSwap(false, true) {
		return "", false
	}
	jobID := uuid.NewString()
	go p.run(jobID)
	return jobID, true
}

// Running reports whether a warm-up run is currently in flight.
func (p *Preloader) Running() bool { return p.preloading.Load() }

func (p *Preloader) run(jobID string) {
	defer p.preloading.Store(false)
	ctx, cancel := context.WithTimeout(p.baseCtx, p.timeout)
	defer cancel()

	p.log.Info().Str("job", jobID).Strs("models", p.models).Msg("preload start")
	p.pub.Publish(Event{Name: "preload_start", Fields: map[string]any{"job": jobID}})

	var wg sync.WaitGroup
	for _, name := range p.models {
		wg.Add(1)
		go func(n string) {
			defer wg.Done()
			if _, err := p.loader.Get(ctx, n); err != nil {
				// best effort: a failed or timed-out warm-up is not an error
				p.log.Debug().Str("job", jobID).Str("model", n).Err(err).Msg("preload gave up")
			}
		}(name)
	}
	wg.Wait()

	p.log.Info().Str("job", jobID).Msg("preload done")
	p.pub.Publish(Event{Name: "preload_done", Fields: map[string]any{"job": jobID}})
}
