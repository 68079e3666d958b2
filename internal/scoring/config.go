package scoring

import "time"

// Defaults applied when corresponding Config fields are unset.
const (
	defaultMaxConcurrent     = 10
	defaultLoadTimeout       = 15 * time.Second
	defaultPreprocessTimeout = 5 * time.Second
	defaultPredictTimeout    = 15 * time.Second
	defaultMaxLoadRetries    = 3
	defaultBaseBackoff       = 500 * time.Millisecond
	defaultLoadThrottle      = 5 * time.Minute
	defaultPreloadTimeout    = 10 * time.Second
)

// Config encapsulates all tunables for Service construction.
type Config struct {
	// MaxConcurrent is the admission gate limit K.
	MaxConcurrent int
	// LoadTimeout bounds the predictor-loading stage of one prediction.
	LoadTimeout time.Duration
	// PreprocessTimeout bounds the image preprocessing stage.
	PreprocessTimeout time.Duration
	// PredictTimeout bounds the concurrent model invocation stage.
	PredictTimeout time.Duration
	// MaxLoadRetries is the number of load attempts before a handle fails.
	MaxLoadRetries int
	// BaseBackoff seeds the exponential retry delay.
	BaseBackoff time.Duration
	// LoadThrottle is the cooldown after exhausted retries during which new
	// load attempts are skipped.
	LoadThrottle time.Duration
	// PreloadTimeout bounds the fire-and-forget warm-up run.
	PreloadTimeout time.Duration
	// ModelA and ModelB are the registry ids of the two ensemble members.
	ModelA string
	ModelB string
	// Simulate marks the deployment as running synthetic predictors; it is
	// surfaced in /status and does not change resilience behavior.
	Simulate bool
}

func (c Config) withDefaults() Config {
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = defaultMaxConcurrent
	}
	if c.LoadTimeout <= 0 {
		c.LoadTimeout = defaultLoadTimeout
	}
	if c.PreprocessTimeout <= 0 {
		c.PreprocessTimeout = defaultPreprocessTimeout
	}
	if c.PredictTimeout <= 0 {
		c.PredictTimeout = defaultPredictTimeout
	}
	if c.MaxLoadRetries <= 0 {
		c.MaxLoadRetries = defaultMaxLoadRetries
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = defaultBaseBackoff
	}
	if c.LoadThrottle <= 0 {
		c.LoadThrottle = defaultLoadThrottle
	}
	if c.PreloadTimeout <= 0 {
		c.PreloadTimeout = defaultPreloadTimeout
	}
	if c.ModelA == "" {
		c.ModelA = "scut"
	}
	if c.ModelB == "" {
		c.ModelB = "mebeauty"
	}
	return c
}
