package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the daemon.
// Zero values mean "unspecified" and will be replaced by defaults in main.
type Config struct {
	Addr      string `json:"addr" yaml:"addr" toml:"addr"`
	ModelsDir string `json:"models_dir" yaml:"models_dir" toml:"models_dir"`
	// RuntimeURL points at the inference sidecar hosting the TFLite models.
	RuntimeURL string `json:"runtime_url" yaml:"runtime_url" toml:"runtime_url"`
	// Simulate switches to deterministic synthetic predictors (no runtime).
	Simulate bool `json:"simulate" yaml:"simulate" toml:"simulate"`
	// ScutModel and MebeautyModel select the two ensemble members by id.
	ScutModel     string `json:"scut_model" yaml:"scut_model" toml:"scut_model"`
	MebeautyModel string `json:"mebeauty_model" yaml:"mebeauty_model" toml:"mebeauty_model"`

	// Admission and resilience tunables.
	MaxConcurrent       int `json:"max_concurrent" yaml:"max_concurrent" toml:"max_concurrent"`
	OuterDeadlineMs     int `json:"outer_deadline_ms" yaml:"outer_deadline_ms" toml:"outer_deadline_ms"`
	LoadTimeoutMs       int `json:"load_timeout_ms" yaml:"load_timeout_ms" toml:"load_timeout_ms"`
	PreprocessTimeoutMs int `json:"preprocess_timeout_ms" yaml:"preprocess_timeout_ms" toml:"preprocess_timeout_ms"`
	PredictTimeoutMs    int `json:"predict_timeout_ms" yaml:"predict_timeout_ms" toml:"predict_timeout_ms"`
	MaxLoadRetries      int `json:"max_load_retries" yaml:"max_load_retries" toml:"max_load_retries"`
	BaseBackoffMs       int `json:"base_backoff_ms" yaml:"base_backoff_ms" toml:"base_backoff_ms"`
	LoadThrottleMs      int `json:"load_throttle_ms" yaml:"load_throttle_ms" toml:"load_throttle_ms"`
	PreloadTimeoutMs    int `json:"preload_timeout_ms" yaml:"preload_timeout_ms" toml:"preload_timeout_ms"`

	// HTTP surface.
	MaxBodyBytes   int64    `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
	CORSEnabled    bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	AllowedOrigins []string `json:"allowed_origins" yaml:"allowed_origins" toml:"allowed_origins"`
	LogLevel       string   `json:"log_level" yaml:"log_level" toml:"log_level"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}
