package evaluator

import (
	"github.com/clearframe/forensics-cli/internal/config"
	"github.com/clearframe/forensics-cli/internal/model"
	"github.com/clearframe/forensics-cli/internal/stats"
)

// Eye-aspect-ratio calibration. A blink is a dip of the EAR below the close
// threshold sustained for at least two consecutive samples; early deepfake
// generators rarely reproduce natural blink cadence.
const (
	earCloseThreshold = 0.25
	blinkConsecMin    = 2
	earVarianceFloor  = 0.008 * 0.008
	earMeanLow        = 0.12
	earMeanHigh       = 0.38
)

// BlinkEvaluator scores blink cadence from per-frame EAR samples.
type BlinkEvaluator struct {
	cfg *config.Config
}

func (e *BlinkEvaluator) Level() model.Level { return model.LevelBlink }

func (e *BlinkEvaluator) Evaluate(records []model.FrameFeatureRecord) (model.LevelResult, error) {
	if err := checkLevel(e.Level(), records); err != nil {
		return model.LevelResult{}, err
	}
	ordered := sortByFrame(records)
	ears := series(ordered, "EAR")
	if len(ears) == 0 {
		return insufficient(e.Level(), "no finite EAR samples"), nil
	}

	blinks := countBlinks(ears)
	span := duration(ordered)

	var reasons []string
	var rateAnomaly float64
	blinkRate := 0.0
	if span > 0 {
		blinkRate = float64(blinks) / span
		rateAnomaly = stats.RangeDistance(blinkRate, e.cfg.Levels.BlinkRateMin, e.cfg.Levels.BlinkRateMax)
		if blinkRate < e.cfg.Levels.BlinkRateMin {
			reasons = append(reasons, "low_blink_rate")
		} else if blinkRate > e.cfg.Levels.BlinkRateMax {
			reasons = append(reasons, "high_blink_rate")
		}
	}

	summary := stats.Aggregate(ears, earCloseThreshold)

	// A frozen eye region shows almost no EAR variance even when the rate
	// happens to land inside the natural range.
	var varianceAnomaly float64
	if summary.Variance < earVarianceFloor {
		varianceAnomaly = 1 - summary.Variance/earVarianceFloor
		reasons = append(reasons, "low_ear_variance")
	}

	var meanAnomaly float64
	if summary.Mean < earMeanLow || summary.Mean > earMeanHigh {
		meanAnomaly = stats.RangeDistance(summary.Mean, earMeanLow, earMeanHigh)
		reasons = append(reasons, "abnormal_ear")
	}

	score := stats.Clamp01(0.6*rateAnomaly + 0.25*varianceAnomaly + 0.15*meanAnomaly)
	threshold := e.cfg.AnomalyThreshold(e.Level())

	return model.LevelResult{
		Level:      e.Level(),
		Status:     model.LevelEvaluated,
		Score:      score,
		Suspicious: score >= threshold || (span > 0 && blinks == 0 && len(ears) >= e.cfg.Levels.SustainedRunFrames),
		Support:    len(ears),
		Reasons:    reasons,
		Detail: map[string]any{
			"blink_count":    blinks,
			"blink_rate":     blinkRate,
			"mean_ear":       summary.Mean,
			"ear_variance":   summary.Variance,
			"span_seconds":   span,
			"rate_anomaly":   rateAnomaly,
			"dropped_frames": len(records) - len(ears),
		},
	}, nil
}

// countBlinks counts dips below the close threshold lasting at least
// blinkConsecMin consecutive samples.
func countBlinks(ears []float64) int {
	blinks := 0
	closed := 0
	for _, ear := range ears {
		if ear < earCloseThreshold {
			closed++
			continue
		}
		if closed >= blinkConsecMin {
			blinks++
		}
		closed = 0
	}
	if closed >= blinkConsecMin {
		blinks++
	}
	return blinks
}
