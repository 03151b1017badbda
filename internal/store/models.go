package store

import (
	"encoding/json"
	"time"
)

// RunStatus is the lifecycle state of a planning run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	// RunPartial marks a run that finished with at least one failed section
	// under the continue policy.
	RunPartial  RunStatus = "partial"
	RunFailed   RunStatus = "failed"
	RunRejected RunStatus = "rejected"
)

// IsTerminal reports whether the run has finished.
func (s RunStatus) IsTerminal() bool {
	return s != RunRunning && s != ""
}

// SectionStatus is the render state of a single section.
type SectionStatus string

const (
	SectionPending  SectionStatus = "pending"
	SectionRendered SectionStatus = "rendered"
	SectionFailed   SectionStatus = "failed"
	SectionSkipped  SectionStatus = "skipped"
)

// Run is a persisted planning run.
type Run struct {
	ID           string
	MetadataPath string
	Status       RunStatus
	StartedAt    time.Time
	FinishedAt   *time.Time
	SectionCount int
	FailedCount  int
	Error        string
}

// Duration returns how long the run took, or zero while it is still running.
func (r Run) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Section is a persisted section row. Tiles holds the visible tile list as
// JSON so the store stays independent of the planner's types.
type Section struct {
	RunID        string
	Sequence     int
	StartMs      int64
	EndMs        int64
	CorrectionMs int64
	Tiles        json.RawMessage
	Status       SectionStatus
	Error        string
	UpdatedAt    time.Time
}

// DurationMs returns the uncorrected section length.
func (s Section) DurationMs() int64 { return s.EndMs - s.StartMs }
