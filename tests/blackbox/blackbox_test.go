package blackbox

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"beautyd/internal/httpapi"
	"beautyd/internal/model"
	"beautyd/internal/scoring"
	"beautyd/pkg/types"
)

// startServer wires the full stack the way cmd/beautyd does in simulate
// mode and exposes it over a real listener.
func startServer(t *testing.T) *httptest.Server {
	t.Helper()
	registry := []types.Model{
		{ID: "scut", Name: "beauty_model_scut_resnet50.tflite", Dataset: "scut-fbp5500"},
		{ID: "mebeauty", Name: "beauty_model_mebeauty_resnet50.tflite", Dataset: "mebeauty"},
	}
	svc := scoring.New(registry, model.NewSimLoadFunc(10*time.Millisecond), scoring.Config{Simulate: true})
	srv := httptest.NewServer(httpapi.NewMux(svc))
	t.Cleanup(srv.Close)
	return srv
}

func testImage(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 8), G: uint8(y * 8), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	b, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, b
}

func postJSON(t *testing.T, url string, payload []byte) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	b, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, b
}

func TestBlackbox_Flow(t *testing.T) {
	srv := startServer(t)

	// /healthz
	resp, body := get(t, srv.URL+"/healthz")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/healthz %d %s", resp.StatusCode, body)
	}

	// /models
	resp, body = get(t, srv.URL+"/models")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/models %d %s", resp.StatusCode, body)
	}
	var modelsResp struct {
		Models []types.Model `json:"models"`
	}
	if err := json.Unmarshal(body, &modelsResp); err != nil {
		t.Fatalf("/models json: %v body=%s", err, body)
	}
	if len(modelsResp.Models) != 2 {
		t.Fatalf("expected 2 models, got %d", len(modelsResp.Models))
	}

	// /readyz is 503 until both predictors load
	resp, body = get(t, srv.URL+"/readyz")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("/readyz initial %d %s", resp.StatusCode, body)
	}

	// a successful prediction
	payload, _ := json.Marshal(types.PredictRequest{Input: testImage(t)})
	resp, body = postJSON(t, srv.URL+"/predict", payload)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/predict %d %s", resp.StatusCode, body)
	}
	var predResp types.PredictResponse
	if err := json.Unmarshal(body, &predResp); err != nil {
		t.Fatalf("/predict json: %v body=%s", err, body)
	}
	if !predResp.Success || predResp.Degraded {
		t.Fatalf("unexpected prediction: %+v", predResp)
	}
	for _, s := range []float64{predResp.ScoreA, predResp.ScoreB, predResp.CombinedScore} {
		if s < 1.0 || s > 5.0 {
			t.Fatalf("score %v outside [1,5]: %+v", s, predResp)
		}
	}

	// /readyz flips to 200 after the first prediction warmed both models
	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, _ = get(t, srv.URL+"/readyz")
		if resp.StatusCode == http.StatusOK {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("/readyz never became ready; last=%d", resp.StatusCode)
		}
		time.Sleep(25 * time.Millisecond)
	}

	// /status reflects the work done
	resp, body = get(t, srv.URL+"/status")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/status %d %s", resp.StatusCode, body)
	}
	var statusResp types.StatusResponse
	if err := json.Unmarshal(body, &statusResp); err != nil {
		t.Fatalf("/status json: %v body=%s", err, body)
	}
	if statusResp.PredictionsTotal != 1 || !statusResp.Simulate {
		t.Fatalf("unexpected status: %+v", statusResp)
	}
	if len(statusResp.Predictors) != 2 {
		t.Fatalf("expected 2 predictor states, got %+v", statusResp.Predictors)
	}
}

func TestBlackbox_Predict_EmptyInput_400(t *testing.T) {
	srv := startServer(t)
	resp, body := postJSON(t, srv.URL+"/predict", []byte(`{"input":""}`))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", resp.StatusCode, body)
	}
	var e types.ErrorResponse
	if err := json.Unmarshal(body, &e); err != nil {
		t.Fatalf("error json: %v body=%s", err, body)
	}
	if e.Error == "" {
		t.Fatalf("empty error body")
	}
}

func TestBlackbox_Predict_GarbageInput_Degrades(t *testing.T) {
	srv := startServer(t)
	resp, body := postJSON(t, srv.URL+"/predict", []byte(`{"input":"@@not-base64@@"}`))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("degraded prediction must still be 200, got %d body=%s", resp.StatusCode, body)
	}
	var predResp types.PredictResponse
	if err := json.Unmarshal(body, &predResp); err != nil {
		t.Fatalf("json: %v body=%s", err, body)
	}
	if !predResp.Degraded || predResp.Origin != "simulated" {
		t.Fatalf("expected degraded simulated result, got %+v", predResp)
	}
}

func TestBlackbox_Preload(t *testing.T) {
	srv := startServer(t)
	resp, body := get(t, srv.URL+"/preload")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/preload %d %s", resp.StatusCode, body)
	}
	var pre types.PreloadResponse
	if err := json.Unmarshal(body, &pre); err != nil {
		t.Fatalf("json: %v body=%s", err, body)
	}
	if pre.Status != "started" || pre.JobID == "" {
		t.Fatalf("unexpected preload response: %+v", pre)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, _ = get(t, srv.URL+"/readyz")
		if resp.StatusCode == http.StatusOK {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("preload never warmed the predictors; last=%d", resp.StatusCode)
		}
		time.Sleep(25 * time.Millisecond)
	}
}
