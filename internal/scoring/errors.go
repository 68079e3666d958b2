package scoring

import "time"

// modelNotFoundError signals a predictor name absent from the registry.
type modelNotFoundError struct{ id string }

func (e modelNotFoundError) Error() string { return "model not found: " + e.id }

// ErrModelNotFound constructs a modelNotFoundError.
func ErrModelNotFound(id string) error { return modelNotFoundError{id: id} }

// IsModelNotFound reports whether the error indicates a missing model id.
func IsModelNotFound(err error) bool {
	_, ok := err.(modelNotFoundError)
	return ok
}

// loadThrottledError signals that a handle is in its post-failure cooldown
// and no load I/O was attempted.
type loadThrottledError struct {
	name    string
	retryIn time.Duration
	cause   error
}

func (e loadThrottledError) Error() string {
	msg := "load throttled: " + e.name + " (retry in " + e.retryIn.Truncate(time.Second).String() + ")"
	if e.cause != nil {
		msg += ": " + e.cause.Error()
	}
	return msg
}

func (e loadThrottledError) Unwrap() error { return e.cause }

// IsLoadThrottled reports whether err indicates a skipped load attempt
// inside the throttle window.
func IsLoadThrottled(err error) bool {
	_, ok := err.(loadThrottledError)
	return ok
}
