package evaluator

import (
	"math"

	"github.com/clearframe/forensics-cli/internal/config"
	"github.com/clearframe/forensics-cli/internal/model"
	"github.com/clearframe/forensics-cli/internal/stats"
)

// Expression classifier emits seven emotion classes.
const emotionClasses = 7

// ExpressionEvaluator scores flat or frozen affect from the per-frame
// emotion classifier output: class index in "emotion", classifier
// confidence in "confidence".
type ExpressionEvaluator struct {
	cfg *config.Config
}

func (e *ExpressionEvaluator) Level() model.Level { return model.LevelExpression }

func (e *ExpressionEvaluator) Evaluate(records []model.FrameFeatureRecord) (model.LevelResult, error) {
	if err := checkLevel(e.Level(), records); err != nil {
		return model.LevelResult{}, err
	}
	ordered := sortByFrame(records)
	emotions, confidences := pairedSeries(ordered, "emotion", "confidence")
	if len(emotions) == 0 {
		return insufficient(e.Level(), "no finite emotion samples"), nil
	}

	freq := make(map[int]int)
	dominant := 0
	for _, v := range emotions {
		class := int(math.Round(v))
		freq[class]++
		if freq[class] > dominant {
			dominant = freq[class]
		}
	}

	diversity := float64(len(freq)) / emotionClasses
	dominantShare := float64(dominant) / float64(len(emotions))
	confSummary := stats.Aggregate(confidences, 0.5)

	var reasons []string

	// A single emotion across the whole clip is the classic flat-affect
	// signature; natural footage drifts through at least two or three.
	diversityAnomaly := stats.Clamp01(1 - diversity*emotionClasses/3)
	if len(freq) == 1 {
		reasons = append(reasons, "single_emotion")
	}

	frozenAnomaly := stats.Clamp01((dominantShare - 0.7) / 0.3)
	if dominantShare > 0.9 {
		reasons = append(reasons, "frozen_expression")
	}

	// Depressed classifier confidence across the clip correlates with
	// synthesized faces the expression model was not trained on.
	confidenceAnomaly := stats.Clamp01((0.5 - confSummary.Mean) / 0.5)
	if confSummary.Mean < 0.3 {
		reasons = append(reasons, "low_classifier_confidence")
	}

	score := stats.Clamp01(0.4*diversityAnomaly + 0.4*frozenAnomaly + 0.2*confidenceAnomaly)
	threshold := e.cfg.AnomalyThreshold(e.Level())

	return model.LevelResult{
		Level:      e.Level(),
		Status:     model.LevelEvaluated,
		Score:      score,
		Suspicious: score >= threshold,
		Support:    len(emotions),
		Reasons:    reasons,
		Detail: map[string]any{
			"distinct_emotions": len(freq),
			"dominant_share":    dominantShare,
			"mean_confidence":   confSummary.Mean,
			"dropped_frames":    len(records) - len(emotions),
		},
	}, nil
}
