package evaluator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearframe/forensics-cli/internal/config"
	"github.com/clearframe/forensics-cli/internal/model"
)

func testConfig() *config.Config {
	return config.Default()
}

func rec(l model.Level, frame int, ts float64, metrics map[string]float64) model.FrameFeatureRecord {
	return model.FrameFeatureRecord{FrameIndex: frame, Timestamp: ts, Level: l, Metrics: metrics}
}

func TestForLevel_AllLevels(t *testing.T) {
	cfg := testConfig()
	for _, l := range model.AllLevels() {
		ev, err := ForLevel(l, cfg)
		require.NoError(t, err)
		assert.Equal(t, l, ev.Level())
	}

	_, err := ForLevel(model.Level(9), cfg)
	assert.Error(t, err)
}

func TestAll_EscalationOrder(t *testing.T) {
	evs := All(testConfig())
	require.Len(t, evs, model.NumLevels)
	for i, ev := range evs {
		assert.Equal(t, model.Level(i+1), ev.Level())
	}
}

func TestEvaluate_EmptyInput_InsufficientEvidence(t *testing.T) {
	for _, ev := range All(testConfig()) {
		res, err := ev.Evaluate(nil)
		require.NoError(t, err, ev.Level().String())
		assert.Equal(t, model.LevelEvaluated, res.Status)
		assert.Equal(t, 0, res.Support, "empty input must not bias fusion via a zero score")
		assert.True(t, res.Inconclusive())
	}
}

func TestEvaluate_MismatchedLevelRejected(t *testing.T) {
	ev, _ := ForLevel(model.LevelBlink, testConfig())
	_, err := ev.Evaluate([]model.FrameFeatureRecord{
		rec(model.LevelTexture, 0, 0, map[string]float64{"EAR": 0.3}),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tagged texture")
}

// --- blink ---

func blinkRecords(ears []float64, dt float64) []model.FrameFeatureRecord {
	out := make([]model.FrameFeatureRecord, len(ears))
	for i, ear := range ears {
		out[i] = rec(model.LevelBlink, i, float64(i)*dt, map[string]float64{"EAR": ear})
	}
	return out
}

func TestBlink_NaturalCadence(t *testing.T) {
	// ~3 seconds of footage with one clean blink and natural EAR jitter.
	ears := []float64{
		0.30, 0.32, 0.28, 0.31, 0.29, 0.33, 0.30, 0.28, 0.32, 0.31,
		0.10, 0.08, 0.12, // blink: three closed samples
		0.29, 0.31, 0.30, 0.33, 0.28, 0.30, 0.32, 0.29, 0.31, 0.30,
		0.28, 0.33, 0.30, 0.31, 0.29, 0.32, 0.30,
	}
	ev, _ := ForLevel(model.LevelBlink, testConfig())
	res, err := ev.Evaluate(blinkRecords(ears, 0.1))
	require.NoError(t, err)

	assert.Equal(t, len(ears), res.Support)
	assert.False(t, res.Suspicious)
	assert.Less(t, res.Score, 0.5)
	assert.Equal(t, 1, res.Detail["blink_count"])
}

func TestBlink_FrozenEyes(t *testing.T) {
	// Constant EAR, no blinks at all over two seconds.
	ears := make([]float64, 20)
	for i := range ears {
		ears[i] = 0.30
	}
	ev, _ := ForLevel(model.LevelBlink, testConfig())
	res, err := ev.Evaluate(blinkRecords(ears, 0.1))
	require.NoError(t, err)

	assert.True(t, res.Suspicious)
	assert.Contains(t, res.Reasons, "low_blink_rate")
	assert.Contains(t, res.Reasons, "low_ear_variance")
	assert.Equal(t, 0, res.Detail["blink_count"])
}

func TestBlink_NonFiniteSamplesReduceSupport(t *testing.T) {
	records := blinkRecords([]float64{0.3, 0.31, 0.29, 0.3}, 0.1)
	records = append(records,
		rec(model.LevelBlink, 4, 0.4, map[string]float64{"EAR": math.NaN()}),
		rec(model.LevelBlink, 5, 0.5, map[string]float64{"EAR": math.Inf(1)}),
	)

	ev, _ := ForLevel(model.LevelBlink, testConfig())
	res, err := ev.Evaluate(records)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Support)
	assert.Equal(t, 2, res.Detail["dropped_frames"])
}

// --- expression ---

func TestExpression_VariedAffect(t *testing.T) {
	var records []model.FrameFeatureRecord
	for i := 0; i < 14; i++ {
		records = append(records, rec(model.LevelExpression, i, float64(i)*0.1, map[string]float64{
			"emotion":    float64(i % 7),
			"confidence": 0.8,
		}))
	}
	ev, _ := ForLevel(model.LevelExpression, testConfig())
	res, err := ev.Evaluate(records)
	require.NoError(t, err)
	assert.False(t, res.Suspicious)
	assert.Equal(t, 0.0, res.Score)
	assert.Equal(t, 7, res.Detail["distinct_emotions"])
}

func TestExpression_FlatAffect(t *testing.T) {
	var records []model.FrameFeatureRecord
	for i := 0; i < 10; i++ {
		records = append(records, rec(model.LevelExpression, i, float64(i)*0.1, map[string]float64{
			"emotion":    3,
			"confidence": 0.9,
		}))
	}
	ev, _ := ForLevel(model.LevelExpression, testConfig())
	res, err := ev.Evaluate(records)
	require.NoError(t, err)
	assert.True(t, res.Suspicious)
	assert.Contains(t, res.Reasons, "single_emotion")
	assert.Contains(t, res.Reasons, "frozen_expression")
}

// --- headpose ---

func headposeRecords(yaws, shifts []float64) []model.FrameFeatureRecord {
	records := make([]model.FrameFeatureRecord, len(yaws))
	for i := range yaws {
		records[i] = rec(model.LevelHeadpose, i, float64(i)*0.1, map[string]float64{
			"yaw":            yaws[i],
			"pitch":          0,
			"roll":           0,
			"landmark_shift": shifts[i],
		})
	}
	return records
}

func TestHeadpose_CoherentMotion(t *testing.T) {
	yaws := []float64{0, 0.02, 0.07, 0.08, 0.13, 0.14, 0.20, 0.21}
	// Observed landmark shift tracks the pose delta exactly (scaled).
	shifts := make([]float64, len(yaws))
	for i := 1; i < len(yaws); i++ {
		shifts[i] = (yaws[i] - yaws[i-1]) * 3
	}

	ev, _ := ForLevel(model.LevelHeadpose, testConfig())
	res, err := ev.Evaluate(headposeRecords(yaws, shifts))
	require.NoError(t, err)

	assert.False(t, res.Suspicious)
	assert.InDelta(t, 1.0, res.Detail["pose_correlation"].(float64), 1e-9)
	assert.Equal(t, 0.0, res.Score)
}

func TestHeadpose_DecoupledLandmarks(t *testing.T) {
	yaws := []float64{0, 0.02, 0.07, 0.08, 0.13, 0.14, 0.20, 0.21}
	// Landmarks frozen while the head turns: zero correlation.
	shifts := make([]float64, len(yaws))

	ev, _ := ForLevel(model.LevelHeadpose, testConfig())
	res, err := ev.Evaluate(headposeRecords(yaws, shifts))
	require.NoError(t, err)

	assert.True(t, res.Suspicious)
	assert.GreaterOrEqual(t, res.Score, 0.6)
}

func TestHeadpose_SingleSampleInsufficient(t *testing.T) {
	ev, _ := ForLevel(model.LevelHeadpose, testConfig())
	res, err := ev.Evaluate(headposeRecords([]float64{0.1}, []float64{0}))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Support)
}

func TestHeadpose_OrderIndependent(t *testing.T) {
	yaws := []float64{0, 0.02, 0.07, 0.08, 0.13, 0.14, 0.20, 0.21}
	shifts := make([]float64, len(yaws))
	for i := 1; i < len(yaws); i++ {
		shifts[i] = (yaws[i] - yaws[i-1]) * 3
	}
	records := headposeRecords(yaws, shifts)
	shuffled := []model.FrameFeatureRecord{
		records[5], records[0], records[7], records[2],
		records[1], records[6], records[3], records[4],
	}

	ev, _ := ForLevel(model.LevelHeadpose, testConfig())
	a, err := ev.Evaluate(records)
	require.NoError(t, err)
	b, err := ev.Evaluate(shuffled)
	require.NoError(t, err)

	assert.Equal(t, a.Score, b.Score)
	assert.Equal(t, a.Support, b.Support)
}

// --- texture ---

func textureRecords(scores []float64) []model.FrameFeatureRecord {
	out := make([]model.FrameFeatureRecord, len(scores))
	for i, s := range scores {
		out[i] = rec(model.LevelTexture, i, float64(i)*0.1, map[string]float64{"texture_score": s})
	}
	return out
}

func TestTexture_CleanFrames(t *testing.T) {
	scores := make([]float64, 20)
	for i := range scores {
		scores[i] = 0.1
	}
	ev, _ := ForLevel(model.LevelTexture, testConfig())
	res, err := ev.Evaluate(textureRecords(scores))
	require.NoError(t, err)
	assert.False(t, res.Suspicious)
	assert.InDelta(t, 0.05, res.Score, 1e-9)
}

func TestTexture_FlaggedClip(t *testing.T) {
	scores := make([]float64, 20)
	for i := range scores {
		scores[i] = 0.9
	}
	ev, _ := ForLevel(model.LevelTexture, testConfig())
	res, err := ev.Evaluate(textureRecords(scores))
	require.NoError(t, err)
	assert.True(t, res.Suspicious)
	assert.Contains(t, res.Reasons, "majority_frames_flagged")
	assert.Contains(t, res.Reasons, "sustained_artifact_run")
	assert.InDelta(t, 0.95, res.Score, 1e-9)
}

func TestTexture_SustainedRunFlagsEvenWithLowMean(t *testing.T) {
	// 12 consecutive frames above threshold inside a mostly clean clip.
	scores := make([]float64, 60)
	for i := range scores {
		scores[i] = 0.1
	}
	for i := 20; i < 32; i++ {
		scores[i] = 0.7
	}
	ev, _ := ForLevel(model.LevelTexture, testConfig())
	res, err := ev.Evaluate(textureRecords(scores))
	require.NoError(t, err)
	assert.True(t, res.Suspicious, "sustained run must flag even when averaging masks it")
	assert.Less(t, res.Score, 0.6)
	assert.Equal(t, 12, res.Detail["max_run"])
}

func TestTexture_LocalizedSpliceFlagged(t *testing.T) {
	// Eight blatant frames inside a clean clip: too short for a sustained
	// run, but the worst sliding window still clears the threshold.
	scores := make([]float64, 40)
	for i := range scores {
		scores[i] = 0.05
	}
	for i := 16; i < 24; i++ {
		scores[i] = 0.95
	}
	ev, _ := ForLevel(model.LevelTexture, testConfig())
	res, err := ev.Evaluate(textureRecords(scores))
	require.NoError(t, err)
	assert.True(t, res.Suspicious)
	assert.Contains(t, res.Reasons, "localized_artifact_window")
	assert.NotContains(t, res.Reasons, "sustained_artifact_run")
}

// --- color ---

func TestColor_ConsistentLighting(t *testing.T) {
	var records []model.FrameFeatureRecord
	for i := 0; i < 15; i++ {
		records = append(records, rec(model.LevelColor, i, float64(i)*0.1, map[string]float64{
			"hue_delta":  2.0,
			"sat_delta":  0.02,
			"luma_delta": 0.01,
		}))
	}
	ev, _ := ForLevel(model.LevelColor, testConfig())
	res, err := ev.Evaluate(records)
	require.NoError(t, err)
	assert.False(t, res.Suspicious)
	assert.Less(t, res.Score, 0.2)
}

func TestColor_BoundarySeam(t *testing.T) {
	var records []model.FrameFeatureRecord
	for i := 0; i < 15; i++ {
		records = append(records, rec(model.LevelColor, i, float64(i)*0.1, map[string]float64{
			"hue_delta":  28.0,
			"sat_delta":  0.05,
			"luma_delta": 0.22,
		}))
	}
	ev, _ := ForLevel(model.LevelColor, testConfig())
	res, err := ev.Evaluate(records)
	require.NoError(t, err)
	assert.True(t, res.Suspicious)
	assert.Contains(t, res.Reasons, "sustained_boundary_mismatch")
}

// --- lipsync ---

func lipsyncRecords(mar, energy []float64) []model.FrameFeatureRecord {
	out := make([]model.FrameFeatureRecord, len(mar))
	for i := range mar {
		out[i] = rec(model.LevelLipsync, i, float64(i)*0.2, map[string]float64{
			"MAR":            mar[i],
			"phoneme_energy": energy[i],
		})
	}
	return out
}

func TestLipsync_Synchronized(t *testing.T) {
	mar := []float64{0.1, 0.5, 0.2, 0.6, 0.15, 0.55, 0.25, 0.6}
	energy := make([]float64, len(mar))
	for i, m := range mar {
		energy[i] = m * 10
	}
	ev, _ := ForLevel(model.LevelLipsync, testConfig())
	res, err := ev.Evaluate(lipsyncRecords(mar, energy))
	require.NoError(t, err)
	assert.False(t, res.Suspicious)
	assert.Equal(t, 0.0, res.Score)
}

func TestLipsync_Inverted(t *testing.T) {
	mar := []float64{0.1, 0.5, 0.2, 0.6, 0.15, 0.55}
	energy := make([]float64, len(mar))
	for i, m := range mar {
		energy[i] = 1 - m
	}
	ev, _ := ForLevel(model.LevelLipsync, testConfig())
	res, err := ev.Evaluate(lipsyncRecords(mar, energy))
	require.NoError(t, err)
	assert.True(t, res.Suspicious)
	assert.Equal(t, 1.0, res.Score)
	assert.Contains(t, res.Reasons, "no_audio_visual_correlation")
}

func TestLipsync_StaticMouth(t *testing.T) {
	mar := []float64{0.3, 0.3, 0.3, 0.3, 0.3}
	energy := []float64{0.1, 0.9, 0.2, 0.8, 0.3}
	ev, _ := ForLevel(model.LevelLipsync, testConfig())
	res, err := ev.Evaluate(lipsyncRecords(mar, energy))
	require.NoError(t, err)
	assert.True(t, res.Suspicious)
	assert.Contains(t, res.Reasons, "static_mouth")
}
