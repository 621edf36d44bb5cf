package evaluator

import (
	"math"

	"github.com/clearframe/forensics-cli/internal/config"
	"github.com/clearframe/forensics-cli/internal/model"
	"github.com/clearframe/forensics-cli/internal/stats"
)

// LipsyncEvaluator scores audio-visual desynchronization from per-segment
// mouth aspect ratio ("MAR") and phoneme energy ("phoneme_energy"). On
// genuine footage the mouth opens when the audio carries speech energy, so
// the two series correlate positively; dubbed or generated mouths drift
// toward zero or negative correlation.
type LipsyncEvaluator struct {
	cfg *config.Config
}

func (e *LipsyncEvaluator) Level() model.Level { return model.LevelLipsync }

func (e *LipsyncEvaluator) Evaluate(records []model.FrameFeatureRecord) (model.LevelResult, error) {
	if err := checkLevel(e.Level(), records); err != nil {
		return model.LevelResult{}, err
	}
	ordered := sortByFrame(records)
	mar, energy := pairedSeries(ordered, "MAR", "phoneme_energy")
	if len(mar) < 2 {
		return insufficient(e.Level(), "fewer than two aligned audio-visual segments"), nil
	}

	corr := stats.Correlation(mar, energy)
	// Only positive correlation counts as synchronization; inverse
	// correlation is as damning as none.
	score := stats.Clamp01(1 - math.Max(0, corr))

	var reasons []string
	if corr <= 0 {
		reasons = append(reasons, "no_audio_visual_correlation")
	} else if corr < 0.3 {
		reasons = append(reasons, "weak_audio_visual_correlation")
	}

	marSummary := stats.Aggregate(mar, 0)
	if marSummary.Variance == 0 {
		reasons = append(reasons, "static_mouth")
	}

	threshold := e.cfg.AnomalyThreshold(e.Level())

	return model.LevelResult{
		Level:      e.Level(),
		Status:     model.LevelEvaluated,
		Score:      score,
		Suspicious: score >= threshold,
		Support:    len(mar),
		Reasons:    reasons,
		Detail: map[string]any{
			"correlation":      corr,
			"mar_variance":     marSummary.Variance,
			"dropped_segments": len(records) - len(mar),
		},
	}, nil
}
