package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"beautyd/internal/config"
	"beautyd/internal/httpapi"
	"beautyd/internal/model"
	"beautyd/internal/registry"
	"beautyd/internal/scoring"
	"beautyd/pkg/types"
)

func main() {
	// .env is optional; real env vars win
	_ = godotenv.Load()
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "beautyd",
		Short:         "Admission-controlled ensemble scoring daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd())
	return root
}

func newServeCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP scoring daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			var cfg config.Config
			if configPath != "" {
				loaded, err := config.Load(configPath)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				cfg = loaded
			}
			applyEnvDefaults(&cfg)
			return runServe(cfg)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", envOr("BEAUTYD_CONFIG", ""), "Config file (.yaml/.json/.toml)")
	return cmd
}

// applyEnvDefaults fills unset config fields from the environment, then from
// built-in defaults. File values always win over the environment.
func applyEnvDefaults(cfg *config.Config) {
	if cfg.Addr == "" {
		cfg.Addr = envOr("BEAUTYD_ADDR", ":8080")
	}
	if cfg.ModelsDir == "" {
		cfg.ModelsDir = envOr("BEAUTYD_MODELS_DIR", "~/models/beauty")
	}
	if cfg.RuntimeURL == "" {
		cfg.RuntimeURL = envOr("BEAUTYD_RUNTIME_URL", "")
	}
	if !cfg.Simulate {
		cfg.Simulate = envOr("BEAUTYD_SIMULATE", "") == "1"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = envOr("BEAUTYD_LOG_LEVEL", "info")
	}
	if cfg.MaxConcurrent == 0 {
		cfg.MaxConcurrent = envInt("BEAUTYD_MAX_CONCURRENT", 0)
	}
	if cfg.OuterDeadlineMs == 0 {
		cfg.OuterDeadlineMs = envInt("BEAUTYD_OUTER_DEADLINE_MS", 0)
	}
	// With no runtime configured, simulation is the only viable mode.
	if cfg.RuntimeURL == "" {
		cfg.Simulate = true
	}
}

func runServe(cfg config.Config) error {
	logger := newLogger(cfg.LogLevel)

	reg, err := registry.LoadDir(cfg.ModelsDir)
	if err != nil || len(reg) == 0 {
		if !cfg.Simulate {
			return fmt.Errorf("load models from %s: %w", cfg.ModelsDir, err)
		}
		// simulation needs no files on disk
		logger.Warn().Str("dir", cfg.ModelsDir).Msg("no model files found, using synthetic registry")
		reg = []types.Model{
			{ID: "scut", Name: "SCUT-FBP5500 (simulated)", Dataset: "scut-fbp5500"},
			{ID: "mebeauty", Name: "MEBeauty (simulated)", Dataset: "mebeauty"},
		}
	}

	scfg := scoring.Config{
		MaxConcurrent:     cfg.MaxConcurrent,
		LoadTimeout:       ms(cfg.LoadTimeoutMs),
		PreprocessTimeout: ms(cfg.PreprocessTimeoutMs),
		PredictTimeout:    ms(cfg.PredictTimeoutMs),
		MaxLoadRetries:    cfg.MaxLoadRetries,
		BaseBackoff:       ms(cfg.BaseBackoffMs),
		LoadThrottle:      ms(cfg.LoadThrottleMs),
		PreloadTimeout:    ms(cfg.PreloadTimeoutMs),
		ModelA:            cfg.ScutModel,
		ModelB:            cfg.MebeautyModel,
		Simulate:          cfg.Simulate,
	}

	var load scoring.LoadFunc
	if cfg.Simulate {
		load = model.NewSimLoadFunc(50 * time.Millisecond)
	} else {
		load = model.NewRuntimeLoadFunc(cfg.RuntimeURL, ms(cfg.LoadTimeoutMs))
	}

	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()

	svc := scoring.New(reg, load, scfg)
	svc.SetLogger(logger)
	svc.SetBaseContext(baseCtx)

	httpapi.SetLogger(logger)
	httpapi.SetBaseContext(baseCtx)
	httpapi.SetOuterDeadline(ms(cfg.OuterDeadlineMs))
	httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	httpapi.SetCORSOptions(cfg.CORSEnabled, origins,
		[]string{http.MethodGet, http.MethodPost, http.MethodOptions},
		[]string{"Accept", "Content-Type", "X-Log-Level"})

	srv := &http.Server{Addr: cfg.Addr, Handler: httpapi.NewMux(svc)}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Addr).Bool("simulate", cfg.Simulate).Int("models", len(reg)).Msg("beautyd listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// warm the cache before first real traffic; best effort
	svc.TriggerPreload()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-stop:
	}

	cancelBase()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown error")
	}
	return nil
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(lvl).With().Timestamp().Logger()
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// ms converts a millisecond count to a Duration; 0 stays 0 so package
// defaults apply downstream.
func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }
