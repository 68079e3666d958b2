package httpapi

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"beautyd/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Predict(ctx context.Context, input string) (types.PredictionResult, error)
	TriggerPreload() (jobID string, started bool)
	Status() types.StatusResponse
	Ready() bool
	Models() []types.Model
}

// NewMux builds the router with all endpoints and middleware.
func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   corsAllowedOrigins,
			AllowedMethods:   corsAllowedMethods,
			AllowedHeaders:   corsAllowedHeaders,
			AllowCredentials: true,
		}))
	}
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	r.Post("/predict", func(w http.ResponseWriter, r *http.Request) {
		handlePredict(svc, w, r)
	})

	r.Get("/preload", func(w http.ResponseWriter, r *http.Request) {
		jobID, started := svc.TriggerPreload()
		resp := types.PreloadResponse{
			Message: "predictor warm-up started",
			Status:  "started",
			JobID:   jobID,
		}
		if !started {
			resp.Message = "predictor warm-up already in progress"
			resp.Status = "already_running"
		}
		writeJSON(w, http.StatusOK, resp)
	})

	r.Get("/models", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"models": svc.Models()})
	})

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Status())
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("warming"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)

	return r
}

// handlePredict validates the request, then races the admission-gated
// prediction against the hard outer deadline. Queue wait counts against the
// deadline; losing the race yields a 500, not a degraded success. The
// underlying task is scoped to the server base context rather than the
// request, so a deadline miss does not abort a prediction that may still
// warm the cache.
func handlePredict(svc Service, w http.ResponseWriter, r *http.Request) {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req types.PredictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Input) == "" {
		writeJSONError(w, http.StatusBadRequest, "input is required")
		return
	}

	start := time.Now()
	lvl := requestLogLevel(r)
	rid := middleware.GetReqID(r.Context())
	if lvl >= LevelInfo {
		if zlog != nil {
			zlog.Info().Str("path", r.URL.Path).Str("request_id", rid).Msg("predict start")
		} else {
			log.Printf("predict start path=%s request_id=%s", r.URL.Path, rid)
		}
	}

	type outcome struct {
		res types.PredictionResult
		err error
	}
	resCh := make(chan outcome, 1)
	go func() {
		res, err := svc.Predict(serverBaseCtx, req.Input)
		resCh <- outcome{res, err}
	}()

	timer := time.NewTimer(outerDeadline)
	defer timer.Stop()
	select {
	case out := <-resCh:
		if out.err != nil {
			// only reachable on shutdown while queued
			writeJSONError(w, http.StatusInternalServerError, out.err.Error())
			logPredictEnd(lvl, rid, http.StatusInternalServerError, start, out.err)
			return
		}
		if out.res.Degraded {
			IncrementDegraded()
		}
		writeJSON(w, http.StatusOK, types.PredictResponse{Success: true, PredictionResult: out.res})
		logPredictEnd(lvl, rid, http.StatusOK, start, nil)
	case <-timer.C:
		IncrementPredictTimeout()
		writeJSONError(w, http.StatusInternalServerError, "prediction timed out")
		logPredictEnd(lvl, rid, http.StatusInternalServerError, start, context.DeadlineExceeded)
	case <-r.Context().Done():
		// client went away; nothing left to write
	}
}

func logPredictEnd(lvl LogLevel, rid string, status int, start time.Time, err error) {
	if lvl < LevelInfo {
		return
	}
	if zlog != nil {
		z := zlog.Info().Int("status", status).Dur("dur", time.Since(start)).Str("request_id", rid)
		if err != nil {
			z = z.Err(err)
		}
		z.Msg("predict end")
		return
	}
	log.Printf("predict end status=%d dur=%s err=%v", status, time.Since(start), err)
}

// writeJSON writes a JSON payload with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode response: %v", err)
	}
}
