package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/clearframe/forensics-cli/internal/model"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	video_id TEXT NOT NULL,
	status TEXT NOT NULL,
	verdict TEXT,
	error TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_video ON runs(video_id);
CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);

CREATE TABLE IF NOT EXISTS run_phases (
	id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL REFERENCES runs(id),
	name TEXT NOT NULL,
	status TEXT NOT NULL,
	duration_ms INTEGER NOT NULL DEFAULT 0,
	error TEXT NOT NULL DEFAULT '',
	metadata TEXT,
	started_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_phases_run ON run_phases(run_id);
`

// SQLite is the embedded run-history backend, used for local analysis where
// no shared database is available.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database file. An empty path falls back
// to forensics.db in the working directory.
func OpenSQLite(path string) (*SQLite, error) {
	if path == "" {
		path = "forensics.db"
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "store: open sqlite")
	}
	// modernc/sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY churn under concurrent batch workers.
	db.SetMaxOpenConns(1)
	return &SQLite{db: db}, nil
}

func (s *SQLite) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return eris.Wrap(err, "store: migrate sqlite")
	}
	return nil
}

func (s *SQLite) CreateRun(ctx context.Context, run *model.Run) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, video_id, status, error, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.VideoID, string(run.Status), run.Error, run.CreatedAt, run.UpdatedAt)
	if err != nil {
		return eris.Wrapf(err, "store: create run %s", run.ID)
	}
	return nil
}

func (s *SQLite) UpdateRunStatus(ctx context.Context, id string, status model.RunStatus, errMsg string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, error = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		string(status), errMsg, id)
	if err != nil {
		return eris.Wrapf(err, "store: update run %s", id)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return eris.Errorf("store: run %s not found", id)
	}
	return nil
}

func (s *SQLite) SaveVerdict(ctx context.Context, runID string, v *model.Verdict) error {
	blob, err := json.Marshal(v)
	if err != nil {
		return eris.Wrapf(err, "store: marshal verdict for run %s", runID)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET verdict = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		string(blob), runID)
	if err != nil {
		return eris.Wrapf(err, "store: save verdict for run %s", runID)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return eris.Errorf("store: run %s not found", runID)
	}
	return nil
}

func (s *SQLite) GetRun(ctx context.Context, id string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, video_id, status, verdict, error, created_at, updated_at
		 FROM runs WHERE id = ?`, id)
	return scanRun(row)
}

func (s *SQLite) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, video_id, status, verdict, error, created_at, updated_at FROM runs`
	var (
		clauses []string
		args    []any
	)
	if filter.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.VideoID != "" {
		clauses = append(clauses, "video_id = ?")
		args = append(args, filter.VideoID)
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query += " ORDER BY created_at DESC, id LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "store: list runs")
	}
	defer rows.Close()

	var out []model.Run
	for rows.Next() {
		run, err := scanRun(rows)
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

func (s *SQLite) CreatePhase(ctx context.Context, phase *model.RunPhase) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO run_phases (id, run_id, name, status, started_at)
		 VALUES (?, ?, ?, ?, ?)`,
		phase.ID, phase.RunID, phase.Name, phase.Status, phase.StartedAt)
	if err != nil {
		return eris.Wrapf(err, "store: create phase %s", phase.Name)
	}
	return nil
}

func (s *SQLite) CompletePhase(ctx context.Context, phaseID string, result model.PhaseResult) error {
	meta, err := marshalMeta(result.Metadata)
	if err != nil {
		return eris.Wrapf(err, "store: marshal metadata for phase %s", phaseID)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE run_phases SET status = ?, duration_ms = ?, error = ?, metadata = ? WHERE id = ?`,
		result.Status, result.DurationMS, result.Error, meta, phaseID)
	if err != nil {
		return eris.Wrapf(err, "store: complete phase %s", phaseID)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return eris.Errorf("store: phase %s not found", phaseID)
	}
	return nil
}

func (s *SQLite) ListPhases(ctx context.Context, runID string) ([]model.PhaseRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, name, status, duration_ms, error, metadata, started_at
		 FROM run_phases WHERE run_id = ? ORDER BY started_at, id`, runID)
	if err != nil {
		return nil, eris.Wrapf(err, "store: list phases for run %s", runID)
	}
	defer rows.Close()

	var out []model.PhaseRecord
	for rows.Next() {
		var (
			rec  model.PhaseRecord
			meta sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.RunID, &rec.Name, &rec.Status,
			&rec.DurationMS, &rec.Error, &meta, &rec.StartedAt); err != nil {
			return nil, eris.Wrap(err, "store: scan phase")
		}
		if meta.Valid && meta.String != "" {
			if err := json.Unmarshal([]byte(meta.String), &rec.Metadata); err != nil {
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

func (s *SQLite) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*model.Run, error) {
	var (
		run     model.Run
		status  string
		verdict sql.NullString
	)
	err := row.Scan(&run.ID, &run.VideoID, &status, &verdict, &run.Error,
		&run.CreatedAt, &run.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Wrap(err, "store: run not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "store: scan run")
	}
	run.Status = model.RunStatus(status)
	if verdict.Valid && verdict.String != "" {
		var v model.Verdict
		if err := json.Unmarshal([]byte(verdict.String), &v); err != nil {
			return nil, eris.Wrapf(err, "store: decode verdict for run %s", run.ID)
		}
		run.Verdict = &v
	}
	return &run, nil
}

func marshalMeta(meta map[string]any) (string, error) {
	if len(meta) == 0 {
		return "", nil
	}
	blob, err := json.Marshal(meta)
	if err != nil {
		return "", err
	}
	return string(blob), nil
}
