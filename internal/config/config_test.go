package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
}

func TestValidate_WeightsMustSumToOne(t *testing.T) {
	cfg := Default()
	cfg.Fusion.Weights["texture"] = 0.5

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sum to 1")
}

func TestValidate_NegativeWeight(t *testing.T) {
	cfg := Default()
	cfg.Fusion.Weights["blink"] = -0.15
	cfg.Fusion.Weights["texture"] = 0.50

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be >= 0")
}

func TestValidate_UnknownLevelInWeights(t *testing.T) {
	cfg := Default()
	delete(cfg.Fusion.Weights, "color")
	cfg.Fusion.Weights["aura"] = 0.15

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown level "aura"`)
}

func TestValidate_ThresholdOutOfRange(t *testing.T) {
	cfg := Default()
	cfg.Escalation.HighConfidenceFakeThreshold = 1.5

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "high_confidence_fake_threshold")
}

func TestValidate_DecisionThresholdOrdering(t *testing.T) {
	cfg := Default()
	cfg.Fusion.SuspiciousLow = 0.7
	cfg.Fusion.DeepfakeLow = 0.65

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "suspicious_low must be < deepfake_low")
}

func TestValidate_MinimumSupport(t *testing.T) {
	cfg := Default()
	cfg.Escalation.MinimumSupport = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "minimum_support")
}

func TestValidate_BlinkRange(t *testing.T) {
	cfg := Default()
	cfg.Levels.BlinkRateMin = 0.5
	cfg.Levels.BlinkRateMax = 0.4

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blink rate range")
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, 0.85, cfg.Escalation.HighConfidenceFakeThreshold)
	assert.Equal(t, 10, cfg.Escalation.MinimumSupport)
	assert.Equal(t, 0.25, cfg.Fusion.Weights["lipsync"])
	assert.Equal(t, 0.35, cfg.Fusion.SuspiciousLow)
	assert.Equal(t, 0.65, cfg.Fusion.DeepfakeLow)
}
