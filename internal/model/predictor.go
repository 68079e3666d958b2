package model

import "context"

// Predictor is an opaque scoring capability over a preprocessed image.
// Implementations must return scores within the 1.0-5.0 domain range.
type Predictor interface {
	Predict(ctx context.Context, in *Input) (float64, error)
}

// clampScore bounds a raw prediction to the 1.0-5.0 scale and rounds it to
// one decimal, matching what the trained models are expected to emit.
func clampScore(v float64) float64 {
	if v < 1.0 {
		v = 1.0
	}
	if v > 5.0 {
		v = 5.0
	}
	return float64(int(v*10+0.5)) / 10
}
