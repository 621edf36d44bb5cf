package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearframe/forensics-cli/internal/model"
)

func newMockPostgres(t *testing.T) (*Postgres, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgres(mock), mock
}

func TestPostgres_CreateRun(t *testing.T) {
	st, mock := newMockPostgres(t)

	run := testRun()
	mock.ExpectExec("INSERT INTO runs").
		WithArgs(run.ID, run.VideoID, string(run.Status), run.Error, run.CreatedAt, run.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, st.CreateRun(context.Background(), run))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_UpdateRunStatus_NotFound(t *testing.T) {
	st, mock := newMockPostgres(t)

	mock.ExpectExec("UPDATE runs SET status").
		WithArgs(string(model.RunStatusFailed), "boom", "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := st.UpdateRunStatus(context.Background(), "missing", model.RunStatusFailed, "boom")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetRun_DecodesVerdict(t *testing.T) {
	st, mock := newMockPostgres(t)

	now := time.Now().UTC()
	verdict := []byte(`{"video_id":"clip-001","probability":0.7,"decision":"DEEPFAKE","triggered_flags":[6],"level_results":null,"escalation_reason":"CONFIDENT_FAKE"}`)
	id := uuid.NewString()

	mock.ExpectQuery("SELECT id, video_id, status, verdict").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(
			[]string{"id", "video_id", "status", "verdict", "error", "created_at", "updated_at"}).
			AddRow(id, "clip-001", "complete", verdict, "", now, now))

	run, err := st.GetRun(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, run.Status)
	require.NotNil(t, run.Verdict)
	assert.Equal(t, model.DecisionDeepfake, run.Verdict.Decision)
	assert.Equal(t, model.ReasonConfidentFake, run.Verdict.Reason)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ListRuns(t *testing.T) {
	st, mock := newMockPostgres(t)

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT id, video_id, status, verdict").
		WithArgs(10).
		WillReturnRows(pgxmock.NewRows(
			[]string{"id", "video_id", "status", "verdict", "error", "created_at", "updated_at"}).
			AddRow("a", "clip-002", "complete", []byte(nil), "", now, now).
			AddRow("b", "clip-001", "failed", []byte(nil), "extraction stalled", now.Add(-time.Minute), now))

	runs, err := st.ListRuns(context.Background(), RunFilter{Limit: 10})
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "clip-002", runs[0].VideoID)
	assert.Equal(t, "extraction stalled", runs[1].Error)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_PhaseLifecycle(t *testing.T) {
	st, mock := newMockPostgres(t)
	ctx := context.Background()

	phase := &model.RunPhase{
		ID:        uuid.NewString(),
		RunID:     uuid.NewString(),
		Name:      "blink",
		Status:    model.PhaseStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	mock.ExpectExec("INSERT INTO run_phases").
		WithArgs(phase.ID, phase.RunID, phase.Name, phase.Status, phase.StartedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, st.CreatePhase(ctx, phase))

	mock.ExpectExec("UPDATE run_phases SET status").
		WithArgs(model.PhaseStatusComplete, int64(17), "", []byte(`{"support":12}`), phase.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, st.CompletePhase(ctx, phase.ID, model.PhaseResult{
		Name:       "blink",
		Status:     model.PhaseStatusComplete,
		DurationMS: 17,
		Metadata:   map[string]any{"support": 12},
	}))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Migrate(t *testing.T) {
	st, mock := newMockPostgres(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS runs").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, st.Migrate(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}
