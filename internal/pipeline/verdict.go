package pipeline

import (
	"github.com/clearframe/forensics-cli/internal/config"
	"github.com/clearframe/forensics-cli/internal/model"
)

// BuildVerdict assembles the stable reporting contract from the per-level
// results and the final escalation state. The Levels slice always holds six
// entries in level order; slots escalation never reached are marked not_run
// so a report reads the same no matter where the run stopped.
func BuildVerdict(cfg *config.Config, videoID string, results map[model.Level]model.LevelResult, state model.EscalationState) (*model.Verdict, error) {
	levels := make([]model.LevelResult, 0, model.NumLevels)
	var flags []model.Level
	for _, l := range model.AllLevels() {
		res, ok := results[l]
		if !ok {
			res = model.LevelResult{Level: l, Status: model.LevelNotRun}
		}
		levels = append(levels, res)
		if res.Status == model.LevelEvaluated && res.Suspicious {
			flags = append(flags, l)
		}
	}

	probability, err := Fuse(cfg, levels)
	if err != nil {
		return nil, err
	}

	return &model.Verdict{
		VideoID:        videoID,
		Probability:    probability,
		Decision:       Decide(cfg, probability),
		TriggeredFlags: flags,
		Levels:         levels,
		Reason:         state.Reason,
	}, nil
}
