package evaluator

import (
	"github.com/clearframe/forensics-cli/internal/config"
	"github.com/clearframe/forensics-cli/internal/model"
	"github.com/clearframe/forensics-cli/internal/stats"
)

// Per-channel deltas across the face boundary above which the blend seam
// becomes visible. Hue is in degrees, saturation and luma are normalized.
const (
	hueDeltaScale  = 30.0
	satDeltaScale  = 0.25
	lumaDeltaScale = 0.25
)

// ColorEvaluator scores face/background color and lighting inconsistency
// from the per-frame boundary deltas "hue_delta", "sat_delta", "luma_delta".
type ColorEvaluator struct {
	cfg *config.Config
}

func (e *ColorEvaluator) Level() model.Level { return model.LevelColor }

func (e *ColorEvaluator) Evaluate(records []model.FrameFeatureRecord) (model.LevelResult, error) {
	if err := checkLevel(e.Level(), records); err != nil {
		return model.LevelResult{}, err
	}
	ordered := sortByFrame(records)

	frames := make([]float64, 0, len(ordered))
	for i := range ordered {
		hue, okH := ordered[i].Metrics["hue_delta"]
		sat, okS := ordered[i].Metrics["sat_delta"]
		luma, okL := ordered[i].Metrics["luma_delta"]
		if !okH || !okS || !okL || !finite(hue) || !finite(sat) || !finite(luma) {
			continue
		}
		// Per-frame anomaly is the strongest normalized channel deviation;
		// a seam usually shows in one channel before the others.
		anomaly := stats.Clamp01(hue / hueDeltaScale)
		if s := stats.Clamp01(sat / satDeltaScale); s > anomaly {
			anomaly = s
		}
		if l := stats.Clamp01(luma / lumaDeltaScale); l > anomaly {
			anomaly = l
		}
		frames = append(frames, anomaly)
	}
	if len(frames) == 0 {
		return insufficient(e.Level(), "no finite color deltas"), nil
	}

	threshold := e.cfg.AnomalyThreshold(e.Level())
	summary := stats.Aggregate(frames, threshold)
	score := stats.Clamp01(0.7*summary.Mean + 0.3*summary.Rate)

	var reasons []string
	sustained := summary.MaxRun >= e.cfg.Levels.SustainedRunFrames
	if sustained {
		reasons = append(reasons, "sustained_boundary_mismatch")
	}
	if summary.Mean > 0.5 {
		reasons = append(reasons, "high_mean_boundary_delta")
	}

	return model.LevelResult{
		Level:      e.Level(),
		Status:     model.LevelEvaluated,
		Score:      score,
		Suspicious: score >= threshold || sustained,
		Support:    len(frames),
		Reasons:    reasons,
		Detail: map[string]any{
			"mean_anomaly":   summary.Mean,
			"max_anomaly":    summary.Max,
			"max_run":        summary.MaxRun,
			"dropped_frames": len(records) - len(frames),
		},
	}, nil
}
