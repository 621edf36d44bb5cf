package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/clearframe/forensics-cli/internal/model"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	video_id TEXT NOT NULL,
	status TEXT NOT NULL,
	verdict JSONB,
	error TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_video ON runs(video_id);
CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);

CREATE TABLE IF NOT EXISTS run_phases (
	id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL REFERENCES runs(id),
	name TEXT NOT NULL,
	status TEXT NOT NULL,
	duration_ms BIGINT NOT NULL DEFAULT 0,
	error TEXT NOT NULL DEFAULT '',
	metadata JSONB,
	started_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_phases_run ON run_phases(run_id);
`

// Pool is the subset of pgxpool.Pool the store uses. Tests substitute a
// pgxmock pool through it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// Postgres is the shared run-history backend for multi-host batch work.
type Postgres struct {
	pool Pool
}

// NewPostgres wraps an existing pool.
func NewPostgres(pool Pool) *Postgres {
	return &Postgres{pool: pool}
}

// OpenPostgres connects and pings the database at the given URL.
func OpenPostgres(ctx context.Context, url string) (*Postgres, error) {
	if url == "" {
		return nil, eris.New("store: postgres driver requires database_url")
	}
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, eris.Wrap(err, "store: open postgres")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "store: ping postgres")
	}
	return &Postgres{pool: pool}, nil
}

func (s *Postgres) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresSchema); err != nil {
		return eris.Wrap(err, "store: migrate postgres")
	}
	return nil
}

func (s *Postgres) CreateRun(ctx context.Context, run *model.Run) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, video_id, status, error, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		run.ID, run.VideoID, string(run.Status), run.Error, run.CreatedAt, run.UpdatedAt)
	if err != nil {
		return eris.Wrapf(err, "store: create run %s", run.ID)
	}
	return nil
}

func (s *Postgres) UpdateRunStatus(ctx context.Context, id string, status model.RunStatus, errMsg string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, error = $2, updated_at = now() WHERE id = $3`,
		string(status), errMsg, id)
	if err != nil {
		return eris.Wrapf(err, "store: update run %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("store: run %s not found", id)
	}
	return nil
}

func (s *Postgres) SaveVerdict(ctx context.Context, runID string, v *model.Verdict) error {
	blob, err := json.Marshal(v)
	if err != nil {
		return eris.Wrapf(err, "store: marshal verdict for run %s", runID)
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET verdict = $1, updated_at = now() WHERE id = $2`,
		blob, runID)
	if err != nil {
		return eris.Wrapf(err, "store: save verdict for run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("store: run %s not found", runID)
	}
	return nil
}

func (s *Postgres) GetRun(ctx context.Context, id string) (*model.Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, video_id, status, verdict, error, created_at, updated_at
		 FROM runs WHERE id = $1`, id)
	return scanPgRun(row)
}

func (s *Postgres) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, video_id, status, verdict, error, created_at, updated_at FROM runs`
	var (
		clauses []string
		args    []any
	)
	if filter.Status != "" {
		clauses = append(clauses, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, string(filter.Status))
	}
	if filter.VideoID != "" {
		clauses = append(clauses, fmt.Sprintf("video_id = $%d", len(args)+1))
		args = append(args, filter.VideoID)
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC, id LIMIT $%d", len(args)+1)
	args = append(args, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "store: list runs")
	}
	defer rows.Close()

	var out []model.Run
	for rows.Next() {
		run, err := scanPgRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "store: list runs")
	}
	return out, nil
}

func (s *Postgres) CreatePhase(ctx context.Context, phase *model.RunPhase) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO run_phases (id, run_id, name, status, started_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		phase.ID, phase.RunID, phase.Name, phase.Status, phase.StartedAt)
	if err != nil {
		return eris.Wrapf(err, "store: create phase %s", phase.Name)
	}
	return nil
}

func (s *Postgres) CompletePhase(ctx context.Context, phaseID string, result model.PhaseResult) error {
	meta, err := marshalMeta(result.Metadata)
	if err != nil {
		return eris.Wrapf(err, "store: marshal metadata for phase %s", phaseID)
	}
	var metaArg any
	if meta != "" {
		metaArg = []byte(meta)
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE run_phases SET status = $1, duration_ms = $2, error = $3, metadata = $4 WHERE id = $5`,
		result.Status, result.DurationMS, result.Error, metaArg, phaseID)
	if err != nil {
		return eris.Wrapf(err, "store: complete phase %s", phaseID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("store: phase %s not found", phaseID)
	}
	return nil
}

func (s *Postgres) ListPhases(ctx context.Context, runID string) ([]model.PhaseRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, run_id, name, status, duration_ms, error, metadata, started_at
		 FROM run_phases WHERE run_id = $1 ORDER BY started_at, id`, runID)
	if err != nil {
		return nil, eris.Wrapf(err, "store: list phases for run %s", runID)
	}
	defer rows.Close()

	var out []model.PhaseRecord
	for rows.Next() {
		var (
			rec  model.PhaseRecord
			meta []byte
		)
		if err := rows.Scan(&rec.ID, &rec.RunID, &rec.Name, &rec.Status,
			&rec.DurationMS, &rec.Error, &meta, &rec.StartedAt); err != nil {
			return nil, eris.Wrap(err, "store: scan phase")
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &rec.Metadata); err != nil {
				return nil, eris.Wrapf(err, "store: decode metadata for phase %s", rec.ID)
			}
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "store: list phases")
	}
	return out, nil
}

func (s *Postgres) Close() error {
	s.pool.Close()
	return nil
}

func scanPgRun(row pgx.Row) (*model.Run, error) {
	var (
		run     model.Run
		status  string
		verdict []byte
	)
	err := row.Scan(&run.ID, &run.VideoID, &status, &verdict, &run.Error,
		&run.CreatedAt, &run.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrap(err, "store: run not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "store: scan run")
	}
	run.Status = model.RunStatus(status)
	if len(verdict) > 0 {
		var v model.Verdict
		if err := json.Unmarshal(verdict, &v); err != nil {
			return nil, eris.Wrapf(err, "store: decode verdict for run %s", run.ID)
		}
		run.Verdict = &v
	}
	return &run, nil
}
