package model

import (
	"context"
	"encoding/binary"
	"hash/fnv"
	"math"
	"time"

	"beautyd/pkg/types"
)

// simPredictor is the explicit simulation mode: a deterministic synthetic
// predictor used when no inference runtime is configured. The same image
// always yields the same score, which keeps demos and tests stable. This is
// distinct from the executor's failure fallback, which is random.
type simPredictor struct {
	modelID string
	delay   time.Duration
}

func (p *simPredictor) Predict(ctx context.Context, in *Input) (float64, error) {
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	h := fnv.New64a()
	h.Write([]byte(p.modelID))
	var buf [4]byte
	// sample a sparse stripe of pixels; hashing the full tensor buys nothing
	for i := 0; i < len(in.Pixels); i += 97 {
		binary.LittleEndian.PutUint32(buf[:], math.Float32bits(in.Pixels[i]))
		h.Write(buf[:])
	}
	score := 1.0 + float64(h.Sum64()%401)/100.0
	return clampScore(score), nil
}

// NewSimLoadFunc returns a load function producing simulated predictors.
// delay, when positive, is applied per prediction to mimic inference cost.
func NewSimLoadFunc(delay time.Duration) func(ctx context.Context, mdl types.Model) (Predictor, error) {
	return func(ctx context.Context, mdl types.Model) (Predictor, error) {
		return &simPredictor{modelID: mdl.ID, delay: delay}, nil
	}
}
