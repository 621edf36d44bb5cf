package evaluator

import (
	"github.com/clearframe/forensics-cli/internal/config"
	"github.com/clearframe/forensics-cli/internal/model"
	"github.com/clearframe/forensics-cli/internal/stats"
)

// TextureEvaluator scores frequency-domain artifacts from the per-frame
// texture classifier probability in "texture_score" (1 = manipulated).
type TextureEvaluator struct {
	cfg *config.Config
}

func (e *TextureEvaluator) Level() model.Level { return model.LevelTexture }

func (e *TextureEvaluator) Evaluate(records []model.FrameFeatureRecord) (model.LevelResult, error) {
	if err := checkLevel(e.Level(), records); err != nil {
		return model.LevelResult{}, err
	}
	ordered := sortByFrame(records)
	scores := series(ordered, "texture_score")
	if len(scores) == 0 {
		return insufficient(e.Level(), "no finite texture scores"), nil
	}

	threshold := e.cfg.AnomalyThreshold(e.Level())
	summary := stats.Aggregate(scores, threshold)

	// Blend the average classifier probability with the fraction of frames
	// the classifier individually flags. The blend keeps a clip with a few
	// blatant frames from hiding behind a low average, and vice versa.
	score := stats.Clamp01(0.5*summary.Mean + 0.5*summary.Rate)

	// Worst sliding-window mean catches a short spliced segment that the
	// clip-wide average dilutes.
	var worstWindow float64
	for _, win := range stats.Sliding(scores, e.cfg.Levels.SustainedRunFrames, threshold) {
		if win.Mean > worstWindow {
			worstWindow = win.Mean
		}
	}

	var reasons []string
	if summary.Rate > 0.5 {
		reasons = append(reasons, "majority_frames_flagged")
	}
	sustained := summary.MaxRun >= e.cfg.Levels.SustainedRunFrames
	if sustained {
		reasons = append(reasons, "sustained_artifact_run")
	}
	if worstWindow >= threshold && !sustained && summary.Rate <= 0.5 {
		reasons = append(reasons, "localized_artifact_window")
	}

	return model.LevelResult{
		Level:      e.Level(),
		Status:     model.LevelEvaluated,
		Score:      score,
		Suspicious: score >= threshold || sustained || worstWindow >= threshold,
		Support:    len(scores),
		Reasons:    reasons,
		Detail: map[string]any{
			"mean_score":        summary.Mean,
			"flagged_ratio":     summary.Rate,
			"max_run":           summary.MaxRun,
			"max_score":         summary.Max,
			"worst_window_mean": worstWindow,
			"dropped_frames":    len(records) - len(scores),
		},
	}, nil
}
