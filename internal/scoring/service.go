package scoring

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"beautyd/pkg/types"
)

// Service wires the admission gate, the resilient loader and the prediction
// executor into the scoring facade used by the HTTP layer.
type Service struct {
	gate   *Gate
	loader *Loader
	exec   *Executor
	pre    *Preloader

	cfg      Config
	registry []types.Model

	predictionsTotal atomic.Uint64
	degradedTotal    atomic.Uint64
	startTime        time.Time
	log              zerolog.Logger
}

// New constructs a Service over the given registry and load function.
func New(reg []types.Model, load LoadFunc, cfg Config) *Service {
	cfg = cfg.withDefaults()
	loader := NewLoader(reg, load, cfg)
	s := &Service{
		gate:      NewGate(cfg.MaxConcurrent),
		loader:    loader,
		exec:      NewExecutor(loader, cfg),
		pre:       NewPreloader(loader, []string{cfg.ModelA, cfg.ModelB}, cfg.PreloadTimeout),
		cfg:       cfg,
		registry:  append([]types.Model(nil), reg...),
		startTime: time.Now(),
		log:       zerolog.Nop(),
	}
	return s
}

// SetLogger installs a structured logger used across the scoring components.
func (s *Service) SetLogger(lg zerolog.Logger) {
	s.log = lg
	s.loader.SetLogger(lg)
	s.exec.SetLogger(lg)
	s.pre.SetLogger(lg)
}

// SetPublisher installs a lifecycle event publisher across the components.
func (s *Service) SetPublisher(p EventPublisher) {
	s.loader.SetPublisher(p)
	s.exec.SetPublisher(p)
	s.pre.SetPublisher(p)
}

// SetBaseContext scopes background work (loads, warm-ups) to the process;
// canceling it aborts them on shutdown.
func (s *Service) SetBaseContext(ctx context.Context) {
	s.loader.SetBaseContext(ctx)
	s.pre.SetBaseContext(ctx)
}

// Predict admits the request through the gate, possibly queueing it, then
// runs the ensemble. The only error it returns is ctx cancellation while
// still queued; once admitted the executor always produces a result.
func (s *Service) Predict(ctx context.Context, input string) (types.PredictionResult, error) {
	if err := s.gate.Acquire(ctx); err != nil {
		return types.PredictionResult{}, err
	}
	defer s.gate.Release()

	res := s.exec.Predict(ctx, input)
	s.predictionsTotal.Add(1)
	if res.Degraded {
		s.degradedTotal.Add(1)
	}
	return res, nil
}

// TriggerPreload starts a background warm-up; see Preloader.Trigger.
func (s *Service) TriggerPreload() (string, bool) { return s.pre.Trigger() }

// Ready reports whether both predictors are loaded. The daemon still serves
// degraded results before that point; readiness only gates traffic shifting.
func (s *Service) Ready() bool {
	return s.loader.Loaded(s.cfg.ModelA) && s.loader.Loaded(s.cfg.ModelB)
}

// Models returns a copy of the model registry.
func (s *Service) Models() []types.Model {
	out := make([]types.Model, len(s.registry))
	copy(out, s.registry)
	return out
}

// Status builds a detailed status response for /status.
func (s *Service) Status() types.StatusResponse {
	active, queued := s.gate.Stats()
	return types.StatusResponse{
		Predictors:       s.loader.HandleStates(),
		GateActive:       active,
		GateQueued:       queued,
		MaxConcurrent:    s.cfg.MaxConcurrent,
		PredictionsTotal: s.predictionsTotal.Load(),
		DegradedTotal:    s.degradedTotal.Load(),
		Simulate:         s.cfg.Simulate,
		UptimeSeconds:    int64(time.Since(s.startTime).Seconds()),
		ServerTimeUnix:   time.Now().Unix(),
	}
}
