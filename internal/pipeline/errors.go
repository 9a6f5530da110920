package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

// Build-time failures. Every GraphError matches ErrGraphFailure via errors.Is.
var (
	ErrGraphFailure  = errors.New("graph failure")
	ErrInvalidGraph  = errors.New("invalid task graph")
	ErrCycleFound    = errors.New("cycle detected")
	ErrWriteConflict = errors.New("overlapping write-sets")
)

// Run-time failure kinds.
var (
	// ErrCollaboratorFailure marks an LLM, market-data or search call that errored or returned nothing usable.
	ErrCollaboratorFailure = errors.New("collaborator failure")
	// ErrInsufficientData marks input too small to analyse (short or empty price history).
	ErrInsufficientData = errors.New("insufficient data")
	// ErrStageFailed marks a stage that produced no usable output.
	ErrStageFailed = errors.New("stage failed")
	// ErrTerminalUnreachable is returned when an upstream failure prevents the terminal stage from running.
	ErrTerminalUnreachable = errors.New("terminal stage unreachable")
)

// GraphError wraps deterministic graph validation failures.
type GraphError struct {
	Kind error
	Msg  string
}

func (e *GraphError) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Msg)
}

func (e *GraphError) Unwrap() error { return e.Kind }

// Is reports every graph error as a GraphFailure.
func (e *GraphError) Is(target error) bool { return target == ErrGraphFailure }

func invalidf(format string, args ...any) error {
	return &GraphError{Kind: ErrInvalidGraph, Msg: fmt.Sprintf(format, args...)}
}

func conflictf(format string, args ...any) error {
	return &GraphError{Kind: ErrWriteConflict, Msg: fmt.Sprintf(format, args...)}
}

func cycleError(path []string) error {
	msg := "cycle"
	if len(path) > 0 {
		msg = "cycle: " + strings.Join(path, " -> ")
	}
	return &GraphError{Kind: ErrCycleFound, Msg: msg}
}

// Failure is a stage-level failure captured during a run.
//
// Kind is one of ErrCollaboratorFailure, ErrInsufficientData or ErrStageFailed.
// Recoverable failures travel alongside a complete placeholder diff; the stage
// still reaches Done and the failure is reported on the ExecutionResult.
type Failure struct {
	Stage string
	Kind  error
	Err   error
}

func (f *Failure) Error() string {
	if f == nil {
		return ""
	}
	var sb strings.Builder
	if f.Stage != "" {
		sb.WriteString(f.Stage)
		sb.WriteString(": ")
	}
	sb.WriteString(f.Kind.Error())
	if f.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(f.Err.Error())
	}
	return sb.String()
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (f *Failure) Unwrap() []error {
	if f.Err == nil {
		return []error{f.Kind}
	}
	return []error{f.Kind, f.Err}
}

// Recoverable reports whether the failure allows the stage to complete with placeholder output.
func (f *Failure) Recoverable() bool {
	return errors.Is(f.Kind, ErrCollaboratorFailure) || errors.Is(f.Kind, ErrInsufficientData)
}

// CollaboratorFailure wraps a collaborator error.
func CollaboratorFailure(err error) *Failure {
	return &Failure{Kind: ErrCollaboratorFailure, Err: err}
}

// InsufficientData wraps an insufficient-data condition.
func InsufficientData(err error) *Failure {
	return &Failure{Kind: ErrInsufficientData, Err: err}
}

// Degraded joins recoverable failures gathered by a stage that fanned out over
// several collaborator calls. It returns nil when there are none.
func Degraded(failures ...*Failure) error {
	errs := make([]error, 0, len(failures))
	for _, f := range failures {
		if f != nil {
			errs = append(errs, f)
		}
	}
	return errors.Join(errs...)
}

// asFailures flattens err into stage failures, classifying unknown errors as ErrStageFailed.
func asFailures(stage string, err error) []*Failure {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		if _, isFailure := err.(*Failure); !isFailure {
			var out []*Failure
			for _, e := range joined.Unwrap() {
				out = append(out, asFailures(stage, e)...)
			}
			return out
		}
	}
	var f *Failure
	if errors.As(err, &f) {
		copied := *f
		if copied.Stage == "" {
			copied.Stage = stage
		}
		return []*Failure{&copied}
	}
	return []*Failure{{Stage: stage, Kind: ErrStageFailed, Err: err}}
}
