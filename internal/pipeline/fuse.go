package pipeline

import (
	"github.com/rotisserie/eris"

	"github.com/clearframe/forensics-cli/internal/config"
	"github.com/clearframe/forensics-cli/internal/model"
)

// Fuse combines evaluated level scores into a single fake probability.
// Only levels that ran and produced evidence (support > 0) participate;
// their configured weights are renormalized over that subset so a run that
// halted at level 1 and a run that exhausted all six produce probabilities
// on the same scale.
func Fuse(cfg *config.Config, results []model.LevelResult) (float64, error) {
	var weighted, total float64
	var n int
	var plain float64

	for _, res := range results {
		if res.Status != model.LevelEvaluated || res.Inconclusive() {
			continue
		}
		w := cfg.Weight(res.Level)
		weighted += w * res.Score
		total += w
		plain += res.Score
		n++
	}

	if n == 0 {
		return 0, eris.Wrap(ErrInsufficientEvidence, "fuse: no level with support")
	}
	if total == 0 {
		// Every contributing level carries weight zero. Falling back to a
		// plain average keeps the evidence instead of discarding it.
		return plain / float64(n), nil
	}
	return weighted / total, nil
}

// Decide maps a fused probability onto the three-way classification.
func Decide(cfg *config.Config, probability float64) model.Decision {
	switch {
	case probability < cfg.Fusion.SuspiciousLow:
		return model.DecisionGenuine
	case probability < cfg.Fusion.DeepfakeLow:
		return model.DecisionSuspicious
	default:
		return model.DecisionDeepfake
	}
}
