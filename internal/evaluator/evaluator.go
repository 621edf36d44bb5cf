// Package evaluator wraps each detector's raw per-frame output into a
// standardized per-level score, confidence and suspicious flag.
package evaluator

import (
	"math"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/clearframe/forensics-cli/internal/config"
	"github.com/clearframe/forensics-cli/internal/model"
)

// Evaluator reduces a level's frame feature records into a LevelResult.
// Implementations are pure functions over their input: no side effects,
// deterministic for identical records.
type Evaluator interface {
	Level() model.Level
	Evaluate(records []model.FrameFeatureRecord) (model.LevelResult, error)
}

// ForLevel returns the evaluator for the given level.
func ForLevel(l model.Level, cfg *config.Config) (Evaluator, error) {
	switch l {
	case model.LevelExpression:
		return &ExpressionEvaluator{cfg: cfg}, nil
	case model.LevelBlink:
		return &BlinkEvaluator{cfg: cfg}, nil
	case model.LevelHeadpose:
		return &HeadposeEvaluator{cfg: cfg}, nil
	case model.LevelTexture:
		return &TextureEvaluator{cfg: cfg}, nil
	case model.LevelColor:
		return &ColorEvaluator{cfg: cfg}, nil
	case model.LevelLipsync:
		return &LipsyncEvaluator{cfg: cfg}, nil
	default:
		return nil, eris.Errorf("evaluator: no evaluator for level %d", int(l))
	}
}

// All returns evaluators for the six levels in escalation order.
func All(cfg *config.Config) []Evaluator {
	out := make([]Evaluator, 0, model.NumLevels)
	for _, l := range model.AllLevels() {
		ev, _ := ForLevel(l, cfg)
		out = append(out, ev)
	}
	return out
}

// insufficient returns the "no usable evidence" sentinel result. Support 0
// leaves the level out of fusion entirely rather than biasing the verdict
// toward genuine with a zero score.
func insufficient(l model.Level, reason string) model.LevelResult {
	return model.LevelResult{
		Level:   l,
		Status:  model.LevelEvaluated,
		Support: 0,
		Reasons: []string{reason},
		Detail:  map[string]any{"reason": reason},
	}
}

// checkLevel verifies that every record carries the expected level tag.
func checkLevel(l model.Level, records []model.FrameFeatureRecord) error {
	for i := range records {
		if records[i].Level != l {
			return eris.Errorf("evaluator: record %d tagged %s, want %s",
				records[i].FrameIndex, records[i].Level, l)
		}
	}
	return nil
}

// sortByFrame returns records ordered by frame index so run-length and
// correlation statistics are independent of extraction completion order.
func sortByFrame(records []model.FrameFeatureRecord) []model.FrameFeatureRecord {
	out := make([]model.FrameFeatureRecord, len(records))
	copy(out, records)
	sort.Slice(out, func(i, j int) bool { return out[i].FrameIndex < out[j].FrameIndex })
	return out
}

// series extracts one metric from ordered records, dropping frames where the
// metric is missing or non-finite. Dropped frames reduce support.
func series(records []model.FrameFeatureRecord, key string) []float64 {
	out := make([]float64, 0, len(records))
	for i := range records {
		v, ok := records[i].Metrics[key]
		if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out = append(out, v)
	}
	return out
}

// pairedSeries extracts two metrics from ordered records, keeping only
// frames where both are finite so the series stay aligned.
func pairedSeries(records []model.FrameFeatureRecord, keyA, keyB string) (a, b []float64) {
	for i := range records {
		va, okA := records[i].Metrics[keyA]
		vb, okB := records[i].Metrics[keyB]
		if !okA || !okB ||
			math.IsNaN(va) || math.IsInf(va, 0) ||
			math.IsNaN(vb) || math.IsInf(vb, 0) {
			continue
		}
		a = append(a, va)
		b = append(b, vb)
	}
	return a, b
}

// duration returns the time span covered by ordered records, in seconds.
func duration(records []model.FrameFeatureRecord) float64 {
	if len(records) < 2 {
		return 0
	}
	return records[len(records)-1].Timestamp - records[0].Timestamp
}
