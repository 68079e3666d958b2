package httpapi

import "time"

// maxBodyBytes controls the maximum allowed request body size for JSON
// endpoints. Defaults to 10 MiB; image payloads arrive base64-encoded.
var maxBodyBytes int64 = 10 << 20

// SetMaxBodyBytes allows configuring the maximum request body size.
func SetMaxBodyBytes(n int64) {
	if n <= 0 {
		maxBodyBytes = 10 << 20
		return
	}
	maxBodyBytes = n
}

// outerDeadline is the hard bound on one /predict request, including time
// spent queued at the admission gate.
var outerDeadline = 30 * time.Second

// SetOuterDeadline sets the hard per-request deadline (<=0 restores the default).
func SetOuterDeadline(d time.Duration) {
	if d <= 0 {
		outerDeadline = 30 * time.Second
		return
	}
	outerDeadline = d
}

// CORS configuration (opt-in). If disabled, no CORS middleware is added.
var (
	corsEnabled        bool
	corsAllowedOrigins []string
	corsAllowedMethods []string
	corsAllowedHeaders []string
)

// SetCORSOptions configures CORS behavior for the HTTP server.
func SetCORSOptions(enabled bool, origins, methods, headers []string) {
	corsEnabled = enabled
	corsAllowedOrigins = append([]string(nil), origins...)
	corsAllowedMethods = append([]string(nil), methods...)
	corsAllowedHeaders = append([]string(nil), headers...)
}
