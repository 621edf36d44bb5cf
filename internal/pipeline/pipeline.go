// Package pipeline runs a video's extracted features through level
// evaluation, escalation, fusion and verdict assembly.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/clearframe/forensics-cli/internal/config"
	"github.com/clearframe/forensics-cli/internal/evaluator"
	"github.com/clearframe/forensics-cli/internal/model"
	"github.com/clearframe/forensics-cli/internal/store"
)

// Pipeline analyzes one video at a time. It is safe to share across
// goroutines: all per-run state lives in the Analyze call.
type Pipeline struct {
	cfg   *config.Config
	store store.Store
	evals []evaluator.Evaluator
}

// New builds a pipeline. A nil store disables run persistence, which the
// tests and the one-shot analyze path use.
func New(cfg *config.Config, st store.Store) *Pipeline {
	return &Pipeline{
		cfg:   cfg,
		store: st,
		evals: evaluator.All(cfg),
	}
}

// Analyze runs the full escalation ladder over a video's features and
// returns the verdict. The run and its per-level phases are persisted as
// they happen, so a crashed batch leaves an inspectable trail.
func (p *Pipeline) Analyze(ctx context.Context, features *model.VideoFeatures) (*model.Verdict, error) {
	runID := uuid.NewString()
	log := zap.L().With(zap.String("run_id", runID), zap.String("video_id", features.VideoID))

	p.createRun(ctx, runID, features.VideoID)
	p.setStatus(ctx, runID, model.RunStatusEvaluating, "")

	ctrl := NewController(p.cfg)
	results := make(map[model.Level]model.LevelResult, model.NumLevels)

	for _, ev := range p.evals {
		if err := ctx.Err(); err != nil {
			p.setStatus(ctx, runID, model.RunStatusFailed, err.Error())
			return nil, err
		}

		level := ev.Level()
		done := p.trackPhase(ctx, runID, level.String())

		var res model.LevelResult
		if cause, bad := features.LoadError(level); bad {
			// A malformed feature file fails this level the same way a bad
			// evaluation does, leaving the other levels in play.
			extractErr := &ExtractionError{Level: level, Err: eris.New(cause)}
			log.Warn("level features unusable",
				zap.String("level", level.String()), zap.String("cause", cause))
			res = model.LevelResult{
				Level:  level,
				Status: model.LevelFailed,
				Detail: map[string]any{"error": extractErr.Error()},
			}
			done(model.PhaseStatusFailed, nil, extractErr)
		} else if out, err := ev.Evaluate(features.ForLevel(level)); err != nil {
			extractErr := &ExtractionError{Level: level, Err: err}
			log.Warn("level evaluation failed",
				zap.String("level", level.String()), zap.Error(err))
			res = model.LevelResult{
				Level:  level,
				Status: model.LevelFailed,
				Detail: map[string]any{"error": extractErr.Error()},
			}
			done(model.PhaseStatusFailed, nil, extractErr)
		} else {
			res = out
			done(model.PhaseStatusComplete, map[string]any{
				"score":      res.Score,
				"support":    res.Support,
				"suspicious": res.Suspicious,
			}, nil)
		}
		results[level] = res

		cont, err := ctrl.Observe(res)
		if err != nil {
			p.setStatus(ctx, runID, model.RunStatusFailed, err.Error())
			log.Error("run aborted", zap.Error(err))
			return nil, err
		}
		if !cont {
			log.Info("escalation halted",
				zap.String("level", level.String()),
				zap.Float64("score", res.Score),
				zap.Int("support", res.Support))
			break
		}
	}

	p.setStatus(ctx, runID, model.RunStatusFusing, "")

	state := ctrl.State()
	verdict, err := BuildVerdict(p.cfg, features.VideoID, results, state)
	if err != nil {
		p.setStatus(ctx, runID, model.RunStatusFailed, err.Error())
		log.Warn("no verdict", zap.Error(err))
		return nil, err
	}

	p.saveVerdict(ctx, runID, verdict)
	p.setStatus(ctx, runID, model.RunStatusComplete, "")

	log.Info("verdict",
		zap.Float64("probability", verdict.Probability),
		zap.String("decision", string(verdict.Decision)),
		zap.String("reason", string(verdict.Reason)),
		zap.Int("levels_run", len(state.LevelsRun)))

	return verdict, nil
}

// trackPhase opens a phase row and returns the closure that completes it.
// Store errors degrade to log warnings; losing a phase row must not fail
// the analysis itself.
func (p *Pipeline) trackPhase(ctx context.Context, runID, name string) func(status string, meta map[string]any, err error) {
	start := time.Now()
	if p.store == nil {
		return func(string, map[string]any, error) {}
	}
	phase := &model.RunPhase{
		ID:        uuid.NewString(),
		RunID:     runID,
		Name:      name,
		Status:    model.PhaseStatusRunning,
		StartedAt: start.UTC(),
	}
	if err := p.store.CreatePhase(ctx, phase); err != nil {
		zap.L().Warn("create phase", zap.String("phase", name), zap.Error(err))
	}
	return func(status string, meta map[string]any, err error) {
		result := model.PhaseResult{
			Name:       name,
			Status:     status,
			DurationMS: time.Since(start).Milliseconds(),
			Metadata:   meta,
		}
		if err != nil {
			result.Error = err.Error()
		}
		if serr := p.store.CompletePhase(ctx, phase.ID, result); serr != nil {
			zap.L().Warn("complete phase", zap.String("phase", name), zap.Error(serr))
		}
	}
}

func (p *Pipeline) createRun(ctx context.Context, runID, videoID string) {
	if p.store == nil {
		return
	}
	now := time.Now().UTC()
	run := &model.Run{
		ID:        runID,
		VideoID:   videoID,
		Status:    model.RunStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := p.store.CreateRun(ctx, run); err != nil {
		zap.L().Warn("create run", zap.String("run_id", runID), zap.Error(err))
	}
}

func (p *Pipeline) setStatus(ctx context.Context, runID string, status model.RunStatus, errMsg string) {
	if p.store == nil {
		return
	}
	if err := p.store.UpdateRunStatus(ctx, runID, status, errMsg); err != nil {
		zap.L().Warn("update run status", zap.String("run_id", runID), zap.Error(err))
	}
}

func (p *Pipeline) saveVerdict(ctx context.Context, runID string, v *model.Verdict) {
	if p.store == nil {
		return
	}
	if err := p.store.SaveVerdict(ctx, runID, v); err != nil {
		zap.L().Warn("save verdict", zap.String("run_id", runID), zap.Error(err))
	}
}
