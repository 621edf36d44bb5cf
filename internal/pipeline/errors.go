package pipeline

import (
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/clearframe/forensics-cli/internal/model"
)

// Sentinel failures of an analysis run. Both leave the run without a
// verdict; callers branch on them with eris.Is.
var (
	// ErrInsufficientEvidence is raised when no level produced a single
	// usable frame, so fusion has nothing to weigh.
	ErrInsufficientEvidence = eris.New("INSUFFICIENT_EVIDENCE: no level produced usable evidence")

	// ErrPipelineFailed is raised when consecutive level evaluations fail,
	// which indicates a broken extraction pipeline rather than a property
	// of the video.
	ErrPipelineFailed = eris.New("PIPELINE_FAILED: consecutive level failures")
)

// ExtractionError wraps a level evaluation failure caused by malformed or
// missing upstream detector output. It fails the level, not the run; the
// run fails only when the consecutive-failure cap is hit.
type ExtractionError struct {
	Level model.Level
	Err   error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("EXTRACTION_ERROR: level %s: %v", e.Level, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}
