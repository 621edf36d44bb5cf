package model

import "time"

// RunStatus tracks a run through the analysis lifecycle.
type RunStatus string

const (
	RunStatusQueued     RunStatus = "queued"
	RunStatusEvaluating RunStatus = "evaluating"
	RunStatusFusing     RunStatus = "fusing"
	RunStatusComplete   RunStatus = "complete"
	RunStatusFailed     RunStatus = "failed"
)

// Run is the persisted record of one video analysis.
type Run struct {
	ID        string    `json:"id"`
	VideoID   string    `json:"video_id"`
	Status    RunStatus `json:"status"`
	Verdict   *Verdict  `json:"verdict,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RunPhase is the persisted record of one level's evaluation within a run.
type RunPhase struct {
	ID        string    `json:"id"`
	RunID     string    `json:"run_id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

// PhaseResult summarizes a completed phase for persistence.
type PhaseResult struct {
	Name       string         `json:"name"`
	Status     string         `json:"status"`
	DurationMS int64          `json:"duration_ms"`
	Error      string         `json:"error,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

const (
	PhaseStatusRunning  = "running"
	PhaseStatusComplete = "complete"
	PhaseStatusFailed   = "failed"
	PhaseStatusSkipped  = "skipped"
)

// PhaseRecord is a persisted phase row with its completion result, as read
// back from the store for reporting.
type PhaseRecord struct {
	ID         string         `json:"id"`
	RunID      string         `json:"run_id"`
	Name       string         `json:"name"`
	Status     string         `json:"status"`
	DurationMS int64          `json:"duration_ms"`
	Error      string         `json:"error,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	StartedAt  time.Time      `json:"started_at"`
}
