package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"beautyd/pkg/types"
)

// runtimePredictor talks to an external inference runtime over HTTP. The
// runtime hosts the actual TFLite interpreters; this side only ships tensors
// and reads scores back, mirroring how the daemon treats predictors as
// opaque predict(input) -> score capabilities.
type runtimePredictor struct {
	client  *http.Client
	baseURL string
	modelID string
}

type loadRequest struct {
	Model string `json:"model"`
	Path  string `json:"path"`
}

type scoreRequest struct {
	Model  string    `json:"model"`
	Width  int       `json:"width"`
	Height int       `json:"height"`
	Pixels []float32 `json:"pixels"`
}

type scoreResponse struct {
	Score float64 `json:"score"`
	Error string  `json:"error,omitempty"`
}

func (p *runtimePredictor) Predict(ctx context.Context, in *Input) (float64, error) {
	body, err := json.Marshal(scoreRequest{Model: p.modelID, Width: in.Width, Height: in.Height, Pixels: in.Pixels})
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/score", bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := p.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("runtime score %s: status %d: %s", p.modelID, resp.StatusCode, strings.TrimSpace(string(b)))
	}
	var out scoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("runtime score %s: decode: %w", p.modelID, err)
	}
	if out.Error != "" {
		return 0, fmt.Errorf("runtime score %s: %s", p.modelID, out.Error)
	}
	return clampScore(out.Score), nil
}

// NewRuntimeLoadFunc returns a load function that asks the runtime at
// baseURL to load a model file and, on success, yields a Predictor bound to
// it. Loading is the failure-prone I/O the resilient loader retries.
func NewRuntimeLoadFunc(baseURL string, timeout time.Duration) func(ctx context.Context, mdl types.Model) (Predictor, error) {
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:    10,
		IdleConnTimeout: 90 * time.Second,
	}
	// Requests carry context deadlines; the client itself stays unbounded.
	client := &http.Client{Transport: tr, Timeout: 0}
	base := strings.TrimRight(baseURL, "/")

	return func(ctx context.Context, mdl types.Model) (Predictor, error) {
		if _, err := os.Stat(mdl.Path); err != nil {
			return nil, fmt.Errorf("model file %s: %w", mdl.ID, err)
		}
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		body, err := json.Marshal(loadRequest{Model: mdl.ID, Path: mdl.Path})
		if err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/load", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("runtime load %s: %w", mdl.ID, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return nil, fmt.Errorf("runtime load %s: status %d: %s", mdl.ID, resp.StatusCode, strings.TrimSpace(string(b)))
		}
		return &runtimePredictor{client: client, baseURL: base, modelID: mdl.ID}, nil
	}
}
