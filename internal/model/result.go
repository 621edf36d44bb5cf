package model

// LevelStatus describes how a level's slot in the verdict was filled.
type LevelStatus string

const (
	// LevelEvaluated means the evaluator ran over the level's records.
	LevelEvaluated LevelStatus = "evaluated"
	// LevelNotRun means escalation stopped before the level was reached.
	LevelNotRun LevelStatus = "not_run"
	// LevelFailed means the evaluator returned an extraction error; the
	// error text is preserved in Detail for audit.
	LevelFailed LevelStatus = "failed"
)

// LevelResult is the standardized outcome of one level's evaluation.
// Score is a normalized anomaly strength in [0,1], monotonically increasing
// with evidence of manipulation, and is meaningful only when Support > 0.
type LevelResult struct {
	Level      Level          `json:"level_id"`
	Status     LevelStatus    `json:"status"`
	Score      float64        `json:"score"`
	Suspicious bool           `json:"suspicious"`
	Support    int            `json:"support"`
	Reasons    []string       `json:"reasons,omitempty"`
	Detail     map[string]any `json:"detail,omitempty"`
}

// Inconclusive reports whether the level produced no usable evidence.
func (r LevelResult) Inconclusive() bool {
	return r.Support == 0
}

// EscalationReason explains why the escalation state machine stopped.
type EscalationReason string

const (
	ReasonConfidentGenuine   EscalationReason = "CONFIDENT_GENUINE"
	ReasonConfidentFake      EscalationReason = "CONFIDENT_FAKE"
	ReasonAllLevelsExhausted EscalationReason = "ALL_LEVELS_EXHAUSTED"
)

// EscalationState tracks the progress of one analysis run through the six
// levels. It is owned by a single run and never shared.
type EscalationState struct {
	LevelsRun  []Level          `json:"levels_run"`
	Conclusive bool             `json:"conclusive"`
	Reason     EscalationReason `json:"reason,omitempty"`
}

// Decision is the final classification of a video.
type Decision string

const (
	DecisionGenuine    Decision = "GENUINE"
	DecisionSuspicious Decision = "SUSPICIOUS"
	DecisionDeepfake   Decision = "DEEPFAKE"
)

// Verdict is the stable output contract consumed by external reporting.
// Levels always holds six entries in level order 1..6, with slots escalation
// never reached marked not_run, so reports are reproducible regardless of
// where the run stopped.
type Verdict struct {
	VideoID        string           `json:"video_id"`
	Probability    float64          `json:"probability"`
	Decision       Decision         `json:"decision"`
	TriggeredFlags []Level          `json:"triggered_flags"`
	Levels         []LevelResult    `json:"level_results"`
	Reason         EscalationReason `json:"escalation_reason"`
}
