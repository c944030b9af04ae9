// Package config centralizes every tunable threshold of the optimization
// engine. All magic numbers from the improvement loop, memory scoring and
// discovery heuristics live here as named, documented defaults.
package config

import (
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/XiaoConstantine/adapt-go/pkg/errors"
)

// Config is the root configuration for the engine.
type Config struct {
	Trainer   TrainerConfig   `yaml:"trainer,omitempty" validate:"omitempty"`
	Memory    MemoryConfig    `yaml:"memory,omitempty" validate:"omitempty"`
	Discovery DiscoveryConfig `yaml:"discovery,omitempty" validate:"omitempty"`
	Logging   LoggingConfig   `yaml:"logging,omitempty" validate:"omitempty"`
}

// TrainerConfig tunes the improvement loop.
type TrainerConfig struct {
	// MaxCycles bounds the number of strategy applications per run.
	MaxCycles int `yaml:"max_cycles" validate:"min=1"`

	// ImprovementThreshold is the cumulative score gain over the initial
	// score at which a run stops early.
	ImprovementThreshold float64 `yaml:"improvement_threshold" validate:"min=0"`

	// MaxScore is the scorer's upper bound; reaching it ends the run.
	MaxScore float64 `yaml:"max_score" validate:"gt=0"`

	// FlatDelta is the absolute score gain below which a cycle counts as
	// flat for plateau bookkeeping.
	FlatDelta float64 `yaml:"flat_delta" validate:"min=0"`

	// ConsecutiveFlatLimit is the number of consecutive flat cycles that
	// ends the run.
	ConsecutiveFlatLimit int `yaml:"consecutive_flat_limit" validate:"min=1"`

	// DiscoveryThreshold is the count of distinct plateaued strategies
	// (held for the same number of non-improving cycles) that triggers
	// strategy discovery.
	DiscoveryThreshold int `yaml:"discovery_threshold" validate:"min=1"`

	// EnableDiscovery toggles the discovery engine for runs.
	EnableDiscovery bool `yaml:"enable_discovery"`
}

// MemoryConfig tunes outcome storage and recommendation scoring.
type MemoryConfig struct {
	// Path is the durable location of the outcome log.
	Path string `yaml:"path,omitempty"`

	// MaxScoreSpan normalizes score distance in the relevance term of the
	// recommendation composite.
	MaxScoreSpan float64 `yaml:"max_score_span" validate:"gt=0"`

	// RecentApplications is how many trailing outcomes the memory report
	// includes.
	RecentApplications int `yaml:"recent_applications" validate:"min=1"`
}

// DiscoveryConfig tunes pattern mining and strategy synthesis.
type DiscoveryConfig struct {
	// Path is the durable location of discovered strategy records.
	Path string `yaml:"path,omitempty"`

	// MinSampleSize is the minimum outcome history before discovery will
	// run at all.
	MinSampleSize int `yaml:"min_sample_size" validate:"min=1"`

	// PlateauThreshold is the number of trailing applications examined by
	// plateau detection.
	PlateauThreshold int `yaml:"plateau_threshold" validate:"min=1"`

	// MinImprovementPercent is the relative improvement below which an
	// application counts as non-improving.
	MinImprovementPercent float64 `yaml:"min_improvement_percent" validate:"min=0"`

	// TrendWindow is the number of recent outcomes compared against the
	// prior window when classifying a trend.
	TrendWindow int `yaml:"trend_window" validate:"min=1"`

	// TrendTolerance is the relative change treated as "stable".
	TrendTolerance float64 `yaml:"trend_tolerance" validate:"min=0"`

	// ScoreBucketWidth is the width of score-range buckets in breakdowns.
	ScoreBucketWidth float64 `yaml:"score_bucket_width" validate:"gt=0"`

	// MaxWorkers bounds the aggregation worker pool.
	MaxWorkers int `yaml:"max_workers" validate:"min=1"`
}

// LoggingConfig configures the engine logger.
type LoggingConfig struct {
	Level    string `yaml:"level,omitempty" validate:"omitempty,oneof=DEBUG INFO WARN ERROR FATAL"`
	FilePath string `yaml:"file_path,omitempty"`
}

// Default returns the configuration with all documented defaults applied.
func Default() Config {
	return Config{
		Trainer: TrainerConfig{
			MaxCycles:            5,
			ImprovementThreshold: 5.0,
			MaxScore:             10,
			FlatDelta:            0.5,
			ConsecutiveFlatLimit: 2,
			DiscoveryThreshold:   3,
			EnableDiscovery:      true,
		},
		Memory: MemoryConfig{
			MaxScoreSpan:       10,
			RecentApplications: 10,
		},
		Discovery: DiscoveryConfig{
			MinSampleSize:         5,
			PlateauThreshold:      3,
			MinImprovementPercent: 10,
			TrendWindow:           3,
			TrendTolerance:        0.10,
			ScoreBucketWidth:      2,
			MaxWorkers:            4,
		},
		Logging: LoggingConfig{
			Level: "INFO",
		},
	}
}

// Load reads a YAML config file and merges it over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.WithFields(
			errors.Wrap(err, errors.InvalidInput, "failed to read config file"),
			errors.Fields{"path": path},
		)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.WithFields(
			errors.Wrap(err, errors.InvalidInput, "failed to parse config file"),
			errors.Fields{"path": path},
		)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the configuration against its struct tags.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(err, errors.ValidationFailed, "invalid configuration")
	}
	return nil
}
