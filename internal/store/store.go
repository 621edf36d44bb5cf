// Package store persists analysis runs and their per-level phase history.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/clearframe/forensics-cli/internal/config"
	"github.com/clearframe/forensics-cli/internal/model"
)

// RunFilter narrows a run listing. Zero values mean "any".
type RunFilter struct {
	Status  model.RunStatus
	VideoID string
	Limit   int
}

// Store is the run-history persistence contract. Both backends keep the
// verdict as a JSON document; the relational columns exist for listing and
// filtering, not for querying inside verdicts.
type Store interface {
	Migrate(ctx context.Context) error
	CreateRun(ctx context.Context, run *model.Run) error
	UpdateRunStatus(ctx context.Context, id string, status model.RunStatus, errMsg string) error
	SaveVerdict(ctx context.Context, runID string, v *model.Verdict) error
	GetRun(ctx context.Context, id string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)
	CreatePhase(ctx context.Context, phase *model.RunPhase) error
	CompletePhase(ctx context.Context, phaseID string, result model.PhaseResult) error
	ListPhases(ctx context.Context, runID string) ([]model.PhaseRecord, error)
	Close() error
}

// Open returns the configured backend, migrated and ready.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	var (
		st  Store
		err error
	)
	switch cfg.Driver {
	case "sqlite", "":
		st, err = OpenSQLite(cfg.DatabaseURL)
	case "postgres":
		st, err = OpenPostgres(ctx, cfg.DatabaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}
