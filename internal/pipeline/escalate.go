package pipeline

import (
	"github.com/rotisserie/eris"

	"github.com/clearframe/forensics-cli/internal/config"
	"github.com/clearframe/forensics-cli/internal/model"
)

// Controller drives one run's escalation through the six levels. The rule
// is asymmetric: strong fake evidence halts early, genuine-looking evidence
// never does, because a sophisticated fake can pass the cheap levels while
// failing an expensive one. CONFIDENT_GENUINE exists in the reason enum for
// the reporting contract but the controller never emits it.
//
// A Controller belongs to a single run and is not safe for concurrent use.
type Controller struct {
	cfg      *config.Config
	state    model.EscalationState
	failures int
}

// NewController returns a controller positioned before level 1.
func NewController(cfg *config.Config) *Controller {
	return &Controller{cfg: cfg}
}

// Observe records one level's outcome and reports whether escalation should
// continue to the next level.
//
// A failed level counts toward the consecutive-failure cap; hitting the cap
// returns ErrPipelineFailed. An inconclusive level (support 0) neither
// halts nor counts as a failure, the run skips forward. A score at or above
// the high-confidence threshold with enough supporting frames halts with
// CONFIDENT_FAKE.
func (c *Controller) Observe(res model.LevelResult) (bool, error) {
	c.state.LevelsRun = append(c.state.LevelsRun, res.Level)

	if res.Status == model.LevelFailed {
		c.failures++
		if c.failures >= c.cfg.Escalation.MaxConsecutiveFailures {
			return false, eris.Wrapf(ErrPipelineFailed,
				"escalate: %d consecutive failures ending at level %s", c.failures, res.Level)
		}
		return true, nil
	}
	c.failures = 0

	if res.Inconclusive() {
		return true, nil
	}

	if res.Score >= c.cfg.Escalation.HighConfidenceFakeThreshold &&
		res.Support >= c.cfg.Escalation.MinimumSupport {
		c.state.Conclusive = true
		c.state.Reason = model.ReasonConfidentFake
		return false, nil
	}

	return true, nil
}

// State returns the escalation state. A run that walked past the last
// level without halting terminates conclusively with ALL_LEVELS_EXHAUSTED:
// the ladder has no deeper level left to consult.
func (c *Controller) State() model.EscalationState {
	state := c.state
	if !state.Conclusive && len(state.LevelsRun) == model.NumLevels {
		state.Conclusive = true
		state.Reason = model.ReasonAllLevelsExhausted
	}
	return state
}
