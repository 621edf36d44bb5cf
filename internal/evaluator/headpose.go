package evaluator

import (
	"math"

	"github.com/clearframe/forensics-cli/internal/config"
	"github.com/clearframe/forensics-cli/internal/model"
	"github.com/clearframe/forensics-cli/internal/stats"
)

// Motion-speed variance bounds from pose-tracker calibration: below the
// floor the head is unnaturally rigid, above the ceiling the pose jitters
// the way frame-by-frame face swaps do.
const (
	speedVarianceFloor   = 1e-6
	speedVarianceCeiling = 0.01
)

// HeadposeEvaluator checks that observed facial landmark displacement is
// coherent with displacement implied by the head pose track. Metrics per
// frame: "yaw", "pitch", "roll" and "landmark_shift".
type HeadposeEvaluator struct {
	cfg *config.Config
}

func (e *HeadposeEvaluator) Level() model.Level { return model.LevelHeadpose }

func (e *HeadposeEvaluator) Evaluate(records []model.FrameFeatureRecord) (model.LevelResult, error) {
	if err := checkLevel(e.Level(), records); err != nil {
		return model.LevelResult{}, err
	}
	ordered := sortByFrame(records)

	poses := make([][3]float64, 0, len(ordered))
	shifts := make([]float64, 0, len(ordered))
	for i := range ordered {
		yaw, okY := ordered[i].Metrics["yaw"]
		pitch, okP := ordered[i].Metrics["pitch"]
		roll, okR := ordered[i].Metrics["roll"]
		shift, okS := ordered[i].Metrics["landmark_shift"]
		if !okY || !okP || !okR || !okS ||
			!finite(yaw) || !finite(pitch) || !finite(roll) || !finite(shift) {
			continue
		}
		poses = append(poses, [3]float64{yaw, pitch, roll})
		shifts = append(shifts, shift)
	}
	if len(poses) < 2 {
		return insufficient(e.Level(), "fewer than two finite pose samples"), nil
	}

	// Expected landmark displacement between consecutive frames is the
	// magnitude of the pose delta; on genuine footage the landmarks move
	// with the head, so the two series correlate strongly.
	expected := make([]float64, len(poses)-1)
	for i := 1; i < len(poses); i++ {
		dy := poses[i][0] - poses[i-1][0]
		dp := poses[i][1] - poses[i-1][1]
		dr := poses[i][2] - poses[i-1][2]
		expected[i-1] = math.Sqrt(dy*dy + dp*dp + dr*dr)
	}
	observed := shifts[1:]

	corr := stats.Correlation(expected, observed)
	score := stats.Clamp01(1 - math.Abs(corr))

	var reasons []string
	speedSummary := stats.Aggregate(expected, speedVarianceCeiling)
	if speedSummary.Variance < speedVarianceFloor {
		reasons = append(reasons, "too_smooth_motion")
	}
	if speedSummary.Variance > speedVarianceCeiling {
		reasons = append(reasons, "jittery_motion")
	}
	if len(reasons) > 0 {
		// Motion texture anomalies reinforce a weak correlation signal but
		// never fully determine the score on their own.
		score = stats.Clamp01(score + 0.2)
	}

	threshold := e.cfg.AnomalyThreshold(e.Level())

	return model.LevelResult{
		Level:      e.Level(),
		Status:     model.LevelEvaluated,
		Score:      score,
		Suspicious: score >= threshold,
		Support:    len(poses),
		Reasons:    reasons,
		Detail: map[string]any{
			"pose_correlation": corr,
			"speed_variance":   speedSummary.Variance,
			"mean_speed":       speedSummary.Mean,
			"dropped_frames":   len(records) - len(poses),
		},
	}, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
