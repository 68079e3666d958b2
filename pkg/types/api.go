package types

// PredictRequest is the payload for POST /predict.
type PredictRequest struct {
	// Base64-encoded image payload, with or without a data-URL prefix.
	// example: data:image/jpeg;base64,/9j/4AAQSkZJRg...
	Input string `json:"input" example:"data:image/jpeg;base64,/9j/4AAQSkZJRg..."`
}

// PredictionResult is the outcome of one ensemble scoring pass.
// CombinedScore is always the mean of ScoreA and ScoreB rounded to two
// decimals. Degraded is true when any value is synthetic rather than
// computed by a real predictor.
type PredictionResult struct {
	// Score from the SCUT-FBP5500 predictor, 1.0-5.0.
	// example: 3.4
	ScoreA float64 `json:"scoreA" example:"3.4"`
	// Score from the MEBeauty predictor, 1.0-5.0.
	// example: 3.8
	ScoreB float64 `json:"scoreB" example:"3.8"`
	// Mean of the two scores, rounded to 2 decimals.
	// example: 3.6
	CombinedScore float64 `json:"combinedScore" example:"3.6"`
	// Wall-clock time spent producing this result, in milliseconds.
	// example: 412
	ElapsedMs int64 `json:"elapsedMs" example:"412"`
	// True when the scores are synthetic fallback values.
	// example: false
	Degraded bool `json:"degraded" example:"false"`
	// Where the scores came from: "model" or "simulated".
	// example: model
	Origin string `json:"origin" example:"model"`
}

// PredictResponse is returned by POST /predict on success.
type PredictResponse struct {
	// Always true for a 200 response, degraded or not.
	// example: true
	Success bool `json:"success" example:"true"`
	PredictionResult
}

// PreloadResponse is returned by GET /preload immediately, without waiting
// for the warm-up to complete.
type PreloadResponse struct {
	// Human-readable summary.
	// example: predictor warm-up started
	Message string `json:"message" example:"predictor warm-up started"`
	// "started" when a new warm-up run began, "already_running" otherwise.
	// example: started
	Status string `json:"status" example:"started"`
	// Identifier of the warm-up run, empty when one was already in flight.
	// example: 7f9c2ba4-1b7a-4f2e-9b5e-6d3c1a2b3c4d
	JobID string `json:"job_id,omitempty" example:"7f9c2ba4-1b7a-4f2e-9b5e-6d3c1a2b3c4d"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: input is required
	Error string `json:"error" example:"input is required"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}

// PredictorStatus summarizes one predictor handle for /status.
type PredictorStatus struct {
	// Predictor name (e.g., scut, mebeauty).
	// example: scut
	Name string `json:"name" example:"scut"`
	// Handle lifecycle state: unloaded, loading, loaded or failed.
	// example: loaded
	State string `json:"state" example:"loaded"`
	// Last load attempt (unix seconds, 0 when never attempted).
	// example: 1700000000
	LastAttemptUnix int64 `json:"last_attempt_unix" example:"1700000000"`
	// Last load error, if any.
	Error string `json:"error,omitempty"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Per-predictor handle states.
	Predictors []PredictorStatus `json:"predictors"`
	// Requests currently past the admission gate.
	// example: 3
	GateActive int `json:"gate_active" example:"3"`
	// Requests waiting in the FIFO admission queue.
	// example: 7
	GateQueued int `json:"gate_queued" example:"7"`
	// Configured concurrency limit K.
	// example: 10
	MaxConcurrent int `json:"max_concurrent" example:"10"`
	// Total predictions served since start.
	// example: 120
	PredictionsTotal uint64 `json:"predictions_total" example:"120"`
	// Predictions answered with a synthetic fallback.
	// example: 4
	DegradedTotal uint64 `json:"degraded_total" example:"4"`
	// True when the daemon runs with simulated predictors.
	// example: false
	Simulate bool `json:"simulate" example:"false"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
}
