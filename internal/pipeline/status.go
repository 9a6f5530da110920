package pipeline

import "fmt"

// StageStatus is the per-run lifecycle state of a stage.
type StageStatus string

const (
	StatusPending StageStatus = "pending"
	StatusReady   StageStatus = "ready"
	StatusRunning StageStatus = "running"
	StatusDone    StageStatus = "done"
	StatusFailed  StageStatus = "failed"
	StatusSkipped StageStatus = "skipped"
)

// IsTerminal reports whether the status is final for the run.
func (s StageStatus) IsTerminal() bool {
	switch s {
	case StatusDone, StatusFailed, StatusSkipped:
		return true
	default:
		return false
	}
}

func isAllowedTransition(from, to StageStatus) bool {
	switch from {
	case StatusPending:
		return to == StatusReady || to == StatusSkipped
	case StatusReady:
		return to == StatusRunning || to == StatusSkipped
	case StatusRunning:
		return to == StatusDone || to == StatusFailed
	default:
		return false
	}
}

// transition validates and applies a status change. Callers hold the executor lock.
func transition(statuses []StageStatus, idx int, name string, to StageStatus) error {
	from := statuses[idx]
	if !isAllowedTransition(from, to) {
		return fmt.Errorf("disallowed transition for %q: %s -> %s", name, from, to)
	}
	statuses[idx] = to
	return nil
}
