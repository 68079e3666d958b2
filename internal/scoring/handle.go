package scoring

import (
	"time"

	"beautyd/internal/model"
)

// State represents the lifecycle state of a predictor handle.
type State string

const (
	StateUnloaded State = "unloaded"
	StateLoading  State = "loading"
	StateLoaded   State = "loaded"
	StateFailed   State = "failed"
)

// handle wraps one named predictor resource. Exactly one handle exists per
// name; only the Loader mutates its fields, under the Loader's mutex. While
// state is Loading, pending is the channel closed when the in-flight attempt
// settles, so concurrent callers await it instead of starting another.
type handle struct {
	name        string
	state       State
	predictor   model.Predictor
	lastAttempt time.Time
	lastErr     error
	pending     chan struct{}
}
