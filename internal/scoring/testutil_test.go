package scoring

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"sync/atomic"
	"testing"
	"time"

	"beautyd/internal/model"
	"beautyd/pkg/types"
)

// testRegistry returns the two ensemble members used throughout the tests.
func testRegistry() []types.Model {
	return []types.Model{
		{ID: "scut", Name: "scut", Dataset: "scut-fbp5500"},
		{ID: "mebeauty", Name: "mebeauty", Dataset: "mebeauty"},
	}
}

// testImageBase64 builds a small valid PNG payload.
func testImageBase64(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 16), G: uint8(y * 16), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

// stubPredictor returns a fixed score or error, after an optional delay.
type stubPredictor struct {
	score float64
	err   error
	delay time.Duration
}

func (p *stubPredictor) Predict(ctx context.Context, in *model.Input) (float64, error) {
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	return p.score, p.err
}

// countingLoadFunc wraps a LoadFunc with an atomic call counter.
type countingLoadFunc struct {
	calls atomic.Int64
	fn    LoadFunc
}

func (c *countingLoadFunc) load(ctx context.Context, mdl types.Model) (model.Predictor, error) {
	c.calls.Add(1)
	return c.fn(ctx, mdl)
}

// scoresLoadFunc yields stub predictors with fixed per-model scores.
func scoresLoadFunc(scores map[string]float64) LoadFunc {
	return func(ctx context.Context, mdl types.Model) (model.Predictor, error) {
		return &stubPredictor{score: scores[mdl.ID]}, nil
	}
}
