// Package config loads and validates the analysis pipeline configuration.
package config

import (
	"fmt"
	"math"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/clearframe/forensics-cli/internal/model"
)

// Config holds the full application configuration. It is loaded once at
// process start and treated as immutable for the process lifetime.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Fusion     FusionConfig     `yaml:"fusion" mapstructure:"fusion"`
	Escalation EscalationConfig `yaml:"escalation" mapstructure:"escalation"`
	Levels     LevelsConfig     `yaml:"levels" mapstructure:"levels"`
	Batch      BatchConfig      `yaml:"batch" mapstructure:"batch"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the run-history database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// FusionConfig holds per-level weights and decision thresholds.
type FusionConfig struct {
	Weights       map[string]float64 `yaml:"weights" mapstructure:"weights"`
	SuspiciousLow float64            `yaml:"suspicious_low" mapstructure:"suspicious_low"`
	DeepfakeLow   float64            `yaml:"deepfake_low" mapstructure:"deepfake_low"`
}

// EscalationConfig controls when the level state machine short-circuits.
type EscalationConfig struct {
	HighConfidenceFakeThreshold float64 `yaml:"high_confidence_fake_threshold" mapstructure:"high_confidence_fake_threshold"`
	MinimumSupport              int     `yaml:"minimum_support" mapstructure:"minimum_support"`
	MaxConsecutiveFailures      int     `yaml:"max_consecutive_failures" mapstructure:"max_consecutive_failures"`
}

// LevelsConfig holds per-level evaluator calibration.
type LevelsConfig struct {
	AnomalyThresholds  map[string]float64 `yaml:"anomaly_thresholds" mapstructure:"anomaly_thresholds"`
	SustainedRunFrames int                `yaml:"sustained_run_frames" mapstructure:"sustained_run_frames"`
	BlinkRateMin       float64            `yaml:"blink_rate_min" mapstructure:"blink_rate_min"`
	BlinkRateMax       float64            `yaml:"blink_rate_max" mapstructure:"blink_rate_max"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	MaxConcurrentVideos int `yaml:"max_concurrent_videos" mapstructure:"max_concurrent_videos"`
}

// ServerConfig configures the analysis HTTP server.
type ServerConfig struct {
	Port         int     `yaml:"port" mapstructure:"port"`
	RateLimitRPS float64 `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment and validates it.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("FORENSICS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_limit_rps", 10.0)
	v.SetDefault("batch.max_concurrent_videos", 4)
	v.SetDefault("fusion.weights", map[string]float64{
		"expression": 0.10,
		"blink":      0.15,
		"headpose":   0.15,
		"texture":    0.20,
		"color":      0.15,
		"lipsync":    0.25,
	})
	v.SetDefault("fusion.suspicious_low", 0.35)
	v.SetDefault("fusion.deepfake_low", 0.65)
	v.SetDefault("escalation.high_confidence_fake_threshold", 0.85)
	v.SetDefault("escalation.minimum_support", 10)
	v.SetDefault("escalation.max_consecutive_failures", 3)
	v.SetDefault("levels.anomaly_thresholds", map[string]float64{
		"expression": 0.6,
		"blink":      0.6,
		"headpose":   0.6,
		"texture":    0.6,
		"color":      0.6,
		"lipsync":    0.6,
	})
	v.SetDefault("levels.sustained_run_frames", 12)
	v.SetDefault("levels.blink_rate_min", 0.15)
	v.SetDefault("levels.blink_rate_max", 0.40)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// weightTolerance allows for floating-point drift when checking that the
// level weights sum to 1.
const weightTolerance = 1e-6

// Validate checks the fusion and escalation settings. It fails fast at
// construction so no video is ever processed under an invalid calibration.
func (c *Config) Validate() error {
	var errs []string

	var sum float64
	for name, w := range c.Fusion.Weights {
		if _, err := model.ParseLevel(name); err != nil {
			errs = append(errs, fmt.Sprintf("unknown level %q in weights", name))
			continue
		}
		if w < 0 {
			errs = append(errs, fmt.Sprintf("weight for %s must be >= 0", name))
		}
		sum += w
	}
	if len(c.Fusion.Weights) != model.NumLevels {
		errs = append(errs, fmt.Sprintf("weights must cover all %d levels, got %d", model.NumLevels, len(c.Fusion.Weights)))
	}
	if math.Abs(sum-1) > weightTolerance {
		errs = append(errs, fmt.Sprintf("weights must sum to 1, got %.6f", sum))
	}

	if c.Fusion.SuspiciousLow < 0 || c.Fusion.SuspiciousLow > 1 {
		errs = append(errs, "suspicious_low must be in [0,1]")
	}
	if c.Fusion.DeepfakeLow < 0 || c.Fusion.DeepfakeLow > 1 {
		errs = append(errs, "deepfake_low must be in [0,1]")
	}
	if c.Fusion.SuspiciousLow >= c.Fusion.DeepfakeLow {
		errs = append(errs, "suspicious_low must be < deepfake_low")
	}

	if c.Escalation.HighConfidenceFakeThreshold < 0 || c.Escalation.HighConfidenceFakeThreshold > 1 {
		errs = append(errs, "high_confidence_fake_threshold must be in [0,1]")
	}
	if c.Escalation.MinimumSupport < 1 {
		errs = append(errs, "minimum_support must be >= 1")
	}
	if c.Escalation.MaxConsecutiveFailures < 1 {
		errs = append(errs, "max_consecutive_failures must be >= 1")
	}

	for name, th := range c.Levels.AnomalyThresholds {
		if _, err := model.ParseLevel(name); err != nil {
			errs = append(errs, fmt.Sprintf("unknown level %q in anomaly_thresholds", name))
			continue
		}
		if th < 0 || th > 1 {
			errs = append(errs, fmt.Sprintf("anomaly threshold for %s must be in [0,1]", name))
		}
	}
	if c.Levels.SustainedRunFrames < 1 {
		errs = append(errs, "sustained_run_frames must be >= 1")
	}
	if c.Levels.BlinkRateMin < 0 || c.Levels.BlinkRateMax <= c.Levels.BlinkRateMin {
		errs = append(errs, "blink rate range must satisfy 0 <= min < max")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Weight returns the configured fusion weight for a level.
func (c *Config) Weight(l model.Level) float64 {
	return c.Fusion.Weights[l.String()]
}

// AnomalyThreshold returns the per-level anomaly threshold, defaulting to
// 0.6 when the level is not listed.
func (c *Config) AnomalyThreshold(l model.Level) float64 {
	if th, ok := c.Levels.AnomalyThresholds[l.String()]; ok {
		return th
	}
	return 0.6
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}

// Default returns a Config populated with the documented defaults. Used by
// tests and as the base for the HTTP server when no file is present.
func Default() *Config {
	return &Config{
		Store: StoreConfig{Driver: "sqlite"},
		Fusion: FusionConfig{
			Weights: map[string]float64{
				"expression": 0.10,
				"blink":      0.15,
				"headpose":   0.15,
				"texture":    0.20,
				"color":      0.15,
				"lipsync":    0.25,
			},
			SuspiciousLow: 0.35,
			DeepfakeLow:   0.65,
		},
		Escalation: EscalationConfig{
			HighConfidenceFakeThreshold: 0.85,
			MinimumSupport:              10,
			MaxConsecutiveFailures:      3,
		},
		Levels: LevelsConfig{
			AnomalyThresholds: map[string]float64{
				"expression": 0.6,
				"blink":      0.6,
				"headpose":   0.6,
				"texture":    0.6,
				"color":      0.6,
				"lipsync":    0.6,
			},
			SustainedRunFrames: 12,
			BlinkRateMin:       0.15,
			BlinkRateMax:       0.40,
		},
		Batch:  BatchConfig{MaxConcurrentVideos: 4},
		Server: ServerConfig{Port: 8080, RateLimitRPS: 10},
		Log:    LogConfig{Level: "info", Format: "json"},
	}
}
