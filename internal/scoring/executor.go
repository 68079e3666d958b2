package scoring

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"beautyd/internal/model"
	"beautyd/pkg/types"
)

// Origin values reported in PredictionResult.
const (
	OriginModel     = "model"
	OriginSimulated = "simulated"
)

// Executor runs both predictors against one input and combines their scores.
// Predict never fails: any stage that errors or overruns its timeout is
// absorbed into a simulated result with Degraded set.
type Executor struct {
	loader *Loader
	cfg    Config
	pub    EventPublisher
	log    zerolog.Logger
}

// NewExecutor constructs an Executor over the given loader.
func NewExecutor(loader *Loader, cfg Config) *Executor {
	return &Executor{loader: loader, cfg: cfg.withDefaults(), pub: noopPublisher{}, log: zerolog.Nop()}
}

// SetPublisher installs a lifecycle event publisher.
func (e *Executor) SetPublisher(p EventPublisher) {
	if p == nil {
		p = noopPublisher{}
	}
	e.pub = p
}

// SetLogger installs a structured logger.
func (e *Executor) SetLogger(lg zerolog.Logger) { e.log = lg }

// Predict scores input with both ensemble members. Stage order: load both
// predictors, preprocess the payload, invoke both models concurrently,
// combine. Each stage has a soft timeout; failure at any stage yields the
// simulated fallback rather than an error.
func (e *Executor) Predict(ctx context.Context, input string) types.PredictionResult {
	start := time.Now()

	pa, pb, err := e.loadBoth(ctx)
	if err != nil {
		e.log.Warn().Err(err).Msg("predictor load failed, serving simulated result")
		return e.simulated(start, "load", err)
	}

	in, err := e.preprocess(ctx, input)
	if err != nil {
		e.log.Warn().Err(err).Msg("preprocess failed, serving simulated result")
		return e.simulated(start, "preprocess", err)
	}

	scoreA, scoreB, err := e.invokeBoth(ctx, pa, pb, in)
	if err != nil {
		e.log.Warn().Err(err).Msg("prediction failed, serving simulated result")
		return e.simulated(start, "predict", err)
	}

	return types.PredictionResult{
		ScoreA:        scoreA,
		ScoreB:        scoreB,
		CombinedScore: round2((scoreA + scoreB) / 2),
		ElapsedMs:     time.Since(start).Milliseconds(),
		Degraded:      false,
		Origin:        OriginModel,
	}
}

// loadBoth obtains both predictors concurrently, bounded by LoadTimeout.
func (e *Executor) loadBoth(ctx context.Context) (model.Predictor, model.Predictor, error) {
	lctx, cancel := context.WithTimeout(ctx, e.cfg.LoadTimeout)
	defer cancel()

	type loaded struct {
		p   model.Predictor
		err error
	}
	chA := make(chan loaded, 1)
	chB := make(chan loaded, 1)
	go func() {
		p, err := e.loader.Get(lctx, e.cfg.ModelA)
		chA <- loaded{p, err}
	}()
	go func() {
		p, err := e.loader.Get(lctx, e.cfg.ModelB)
		chB <- loaded{p, err}
	}()
	a := <-chA
	b := <-chB
	if a.err != nil {
		return nil, nil, a.err
	}
	if b.err != nil {
		return nil, nil, b.err
	}
	return a.p, b.p, nil
}

// preprocess races payload decoding against PreprocessTimeout. A decode that
// overruns keeps going in its goroutine; the result is simply dropped.
func (e *Executor) preprocess(ctx context.Context, input string) (*model.Input, error) {
	pctx, cancel := context.WithTimeout(ctx, e.cfg.PreprocessTimeout)
	defer cancel()

	type prep struct {
		in  *model.Input
		err error
	}
	done := make(chan prep, 1)
	go func() {
		in, err := model.Preprocess(input)
		done <- prep{in, err}
	}()
	select {
	case r := <-done:
		return r.in, r.err
	case <-pctx.Done():
		return nil, pctx.Err()
	}
}

// invokeBoth runs both predictors concurrently; there is no ordering
// dependency between them.
func (e *Executor) invokeBoth(ctx context.Context, pa, pb model.Predictor, in *model.Input) (float64, float64, error) {
	ictx, cancel := context.WithTimeout(ctx, e.cfg.PredictTimeout)
	defer cancel()

	type scored struct {
		score float64
		err   error
	}
	chA := make(chan scored, 1)
	chB := make(chan scored, 1)
	go func() {
		s, err := pa.Predict(ictx, in)
		chA <- scored{s, err}
	}()
	go func() {
		s, err := pb.Predict(ictx, in)
		chB <- scored{s, err}
	}()
	a := <-chA
	b := <-chB
	if a.err != nil {
		return 0, 0, a.err
	}
	if b.err != nil {
		return 0, 0, b.err
	}
	return a.score, b.score, nil
}

// simulated builds the synthetic fallback: two independent pseudo-random
// scores uniform in [1.0, 5.0] and their mean. ElapsedMs reflects actual
// wall-clock time spent, not a synthetic value.
func (e *Executor) simulated(start time.Time, stage string, cause error) types.PredictionResult {
	scoreA := simScore()
	scoreB := simScore()
	fields := map[string]any{"stage": stage}
	if cause != nil {
		fields["error"] = cause.Error()
	}
	e.pub.Publish(Event{Name: "predict_degraded", Fields: fields})
	return types.PredictionResult{
		ScoreA:        scoreA,
		ScoreB:        scoreB,
		CombinedScore: round2((scoreA + scoreB) / 2),
		ElapsedMs:     time.Since(start).Milliseconds(),
		Degraded:      true,
		Origin:        OriginSimulated,
	}
}

// simScore draws a score uniformly from [1.0, 5.0], rounded to one decimal
// like the real predictors.
func simScore() float64 {
	return math.Round((1.0+rand.Float64()*4.0)*10) / 10
}

// round2 rounds to two decimal places.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
