package pipeline

import (
	"time"
)

// StageRecord is the per-stage outcome of a run.
type StageRecord struct {
	Name         string
	Status       StageStatus
	Dependencies []string
	Degraded     bool
	StartedAt    time.Time
	FinishedAt   time.Time
	Failures     []*Failure
}

// Duration returns how long the stage ran.
func (r StageRecord) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// ExecutionResult is the outcome of one run.
//
// Every stage-level failure observed during the run is listed in Failures,
// including recoverable ones from stages that still reached Done.
type ExecutionResult struct {
	RunID      string
	Terminal   string
	StartedAt  time.Time
	FinishedAt time.Time
	State      Snapshot
	Output     Diff // terminal stage writes; nil unless the terminal stage is Done
	Stages     []StageRecord
	Order      []string // stages in the order they reached Done
	Failures   []*Failure
	Err        error
}

// Completed reports whether the terminal stage reached Done.
func (r *ExecutionResult) Completed() bool {
	rec, ok := r.Stage(r.Terminal)
	return ok && rec.Status == StatusDone
}

// Stage returns the record for a stage.
func (r *ExecutionResult) Stage(name string) (StageRecord, bool) {
	for _, rec := range r.Stages {
		if rec.Name == name {
			return rec, true
		}
	}
	return StageRecord{}, false
}

// Status returns the final status of a stage.
func (r *ExecutionResult) Status(name string) StageStatus {
	rec, _ := r.Stage(name)
	return rec.Status
}
