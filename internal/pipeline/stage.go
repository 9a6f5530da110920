package pipeline

import (
	"context"
)

// StageFunc is the unit of work of a stage. It receives a view holding only the
// fields the stage declared as reads and returns the fields it produces.
//
// A stage that recovered from a collaborator problem returns a complete diff
// together with a recoverable *Failure (or several joined with Degraded).
type StageFunc func(ctx context.Context, view Snapshot) (Diff, error)

// Stage is an immutable unit of the task graph.
type Stage struct {
	name   string
	reads  []Field
	writes []Field
	run    StageFunc
}

// NewStage declares a stage with its read-set and write-set.
func NewStage(name string, reads, writes []Field, run StageFunc) Stage {
	return Stage{
		name:   name,
		reads:  append([]Field(nil), reads...),
		writes: append([]Field(nil), writes...),
		run:    run,
	}
}

// Name returns the stage name.
func (s Stage) Name() string { return s.name }

// Reads returns a copy of the read-set.
func (s Stage) Reads() []Field { return append([]Field(nil), s.reads...) }

// Writes returns a copy of the write-set.
func (s Stage) Writes() []Field { return append([]Field(nil), s.writes...) }
