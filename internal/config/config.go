// Package config loads the pipeline configuration from YAML and applies
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the research pipeline.
type Config struct {
	Symbol    string          `yaml:"symbol"`
	Storage   Storage         `yaml:"storage"`
	Session   Session         `yaml:"session"`
	Aggregate AggregateConfig `yaml:"aggregate"`
	Winsor    WinsorConfig    `yaml:"winsor"`
	Denoise   DenoiseConfig   `yaml:"denoise"`
	Events    EventsConfig    `yaml:"events"`
	Model     ModelConfig     `yaml:"model"`
	Logging   Logging         `yaml:"logging"`
}

// Storage holds paths for data persistence.
type Storage struct {
	DataDir   string `yaml:"data_dir"`
	RunDBPath string `yaml:"run_db_path"`
}

// Session is the regular-trading-hours window, half-open [Open, Close).
type Session struct {
	Open  string `yaml:"open"`  // "HH:MM"
	Close string `yaml:"close"` // "HH:MM"
}

// AggregateConfig controls the NBBO aggregation stage.
type AggregateConfig struct {
	Venues        string `yaml:"venues"` // allowed venue tags, one byte each
	MaxFillGapMs  int64  `yaml:"max_ffill_gap_ms"`
	Workers       int    `yaml:"workers"`
	ProgressEvery int64  `yaml:"progress_every"`
}

// WinsorConfig controls the tail-quantile estimator and winsorization.
type WinsorConfig struct {
	QLow      float64 `yaml:"q_low"`
	QHigh     float64 `yaml:"q_high"`
	HeapLimit int     `yaml:"heap_limit"`
	Mode      string  `yaml:"mode"` // "clip" or "drop"
	Workers   int     `yaml:"workers"`
}

// DenoiseConfig controls the spike denoiser.
type DenoiseConfig struct {
	MidMax         float64 `yaml:"mid_max"`
	DeltaThreshold float64 `yaml:"delta_threshold"`
	MaxExamples    int     `yaml:"max_examples"`
}

// EventsConfig controls the labeled-event builder.
type EventsConfig struct {
	ThresholdNext float64 `yaml:"threshold_next"`
}

// ModelConfig controls histogram model fitting.
type ModelConfig struct {
	Alpha float64 `yaml:"alpha"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Default returns a Config populated with the documented defaults.
func Default() *Config {
	return &Config{
		Session: Session{Open: "09:30", Close: "16:00"},
		Aggregate: AggregateConfig{
			Venues:        "PTQZYJK",
			MaxFillGapMs:  250,
			Workers:       8,
			ProgressEvery: 5_000_000,
		},
		Winsor: WinsorConfig{
			QLow:      1e-5,
			QHigh:     1 - 1e-5,
			HeapLimit: 200_000,
			Mode:      "clip",
			Workers:   8,
		},
		Denoise: DenoiseConfig{
			MidMax:         1000,
			DeltaThreshold: 100,
			MaxExamples:    10,
		},
		Events: EventsConfig{ThresholdNext: 1.0},
		Model:  ModelConfig{Alpha: 1.0},
		Logging: Logging{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the YAML configuration file at the given path, parses it over
// the defaults, and then applies environment variable overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the stages cannot run with.
func (c *Config) Validate() error {
	if c.Storage.DataDir == "" {
		return fmt.Errorf("config: storage.data_dir is required")
	}
	if _, err := ParseClock(c.Session.Open); err != nil {
		return fmt.Errorf("config: session.open: %w", err)
	}
	if _, err := ParseClock(c.Session.Close); err != nil {
		return fmt.Errorf("config: session.close: %w", err)
	}
	if c.Winsor.Mode != "clip" && c.Winsor.Mode != "drop" {
		return fmt.Errorf("config: winsor.mode must be clip or drop, got %q", c.Winsor.Mode)
	}
	if c.Winsor.QLow <= 0 || c.Winsor.QHigh >= 1 || c.Winsor.QLow >= c.Winsor.QHigh {
		return fmt.Errorf("config: winsor quantiles out of range: %g, %g", c.Winsor.QLow, c.Winsor.QHigh)
	}
	return nil
}

// ParseClock converts an "HH:MM" string to milliseconds since midnight.
func ParseClock(s string) (int64, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("bad clock %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("bad clock %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("bad clock %q", s)
	}
	return int64(h*60+m) * 60_000, nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MICROLAB_DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("MICROLAB_RUN_DB"); v != "" {
		cfg.Storage.RunDBPath = v
	}
	if v := os.Getenv("MICROLAB_SYMBOL"); v != "" {
		cfg.Symbol = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}
