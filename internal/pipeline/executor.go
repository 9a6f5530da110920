package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
)

// Observer receives stage lifecycle events. Implementations must be safe for
// concurrent use; StageStarted is called from worker goroutines.
type Observer interface {
	StageStarted(name string)
	StageFinished(name string, status StageStatus)
}

// Executor runs a TaskGraph. It holds no per-run data and may run concurrently.
type Executor struct {
	graph       *TaskGraph
	logger      arbor.ILogger
	maxParallel int
	observer    Observer
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithMaxParallel bounds the number of stages running at once (0 = one per stage).
func WithMaxParallel(n int) ExecutorOption {
	return func(e *Executor) {
		e.maxParallel = n
	}
}

// WithObserver registers a lifecycle observer.
func WithObserver(o Observer) ExecutorOption {
	return func(e *Executor) {
		e.observer = o
	}
}

// NewExecutor creates an executor for a validated graph.
func NewExecutor(g *TaskGraph, logger arbor.ILogger, opts ...ExecutorOption) (*Executor, error) {
	if g == nil {
		return nil, fmt.Errorf("nil graph")
	}
	if logger == nil {
		return nil, fmt.Errorf("nil logger")
	}

	e := &Executor{graph: g, logger: logger}
	for _, opt := range opts {
		opt(e)
	}
	if e.maxParallel <= 0 || e.maxParallel > g.Len() {
		e.maxParallel = g.Len()
	}
	return e, nil
}

// Graph returns the executor's graph.
func (e *Executor) Graph() *TaskGraph { return e.graph }

// outcome is what a worker reports back for one stage
type outcome struct {
	idx       int
	diff      Diff
	err       error
	cancelled bool
	finished  time.Time
}

// run holds the mutable bookkeeping of a single execution
type run struct {
	e         *Executor
	ctx       context.Context
	id        string
	state     *state
	mu        sync.Mutex
	statuses  []StageStatus
	remaining []int
	records   []StageRecord
	order     []string
	failures  []*Failure
	done      chan outcome
	pool      *pool
	inflight  int
	logger    arbor.ILogger
}

// Run executes every reachable stage and returns the result.
//
// The error is nil when the terminal stage reaches Done, even if some stages
// recovered from collaborator problems; those appear in result.Failures.
// Otherwise the error wraps ErrTerminalUnreachable and the stage failures.
func (e *Executor) Run(ctx context.Context, inputs Diff) (*ExecutionResult, error) {
	if err := e.checkInputs(inputs); err != nil {
		return nil, err
	}

	g := e.graph
	n := g.Len()
	runID := uuid.New().String()

	r := &run{
		e:         e,
		ctx:       ctx,
		id:        runID,
		state:     newState(inputs),
		statuses:  make([]StageStatus, n),
		remaining: make([]int, n),
		records:   make([]StageRecord, n),
		done:      make(chan outcome, n),
		logger:    e.logger,
	}
	for i, s := range g.stages {
		r.statuses[i] = StatusPending
		r.remaining[i] = g.indeg[i]
		r.records[i] = StageRecord{Name: s.name, Dependencies: g.names(g.incoming[i])}
	}

	result := &ExecutionResult{
		RunID:     runID,
		Terminal:  g.Terminal(),
		StartedAt: time.Now(),
	}

	r.logger.Info().
		Str("run_id", runID).
		Int("stages", n).
		Int("max_parallel", e.maxParallel).
		Msg("Pipeline run started")

	r.pool = newPool(ctx, e.maxParallel, n, e.logger)
	r.pool.start()

	r.mu.Lock()
	r.scheduleReady()
	r.mu.Unlock()

	for r.inflight > 0 {
		o := <-r.done
		r.mu.Lock()
		r.inflight--
		r.handle(o)
		r.scheduleReady()
		r.mu.Unlock()
	}

	r.pool.stop()

	r.mu.Lock()
	r.skipUnreached()
	result.Stages = append([]StageRecord(nil), r.records...)
	result.Order = append([]string(nil), r.order...)
	result.Failures = append([]*Failure(nil), r.failures...)
	terminalDone := r.statuses[g.terminal] == StatusDone
	r.mu.Unlock()

	result.FinishedAt = time.Now()
	result.State = r.state.snapshot()

	if terminalDone {
		result.Output = make(Diff)
		for _, f := range g.stages[g.terminal].writes {
			if v, ok := result.State.Get(f); ok {
				result.Output[f] = v
			}
		}
	} else {
		errs := []error{fmt.Errorf("%w: %s", ErrTerminalUnreachable, result.Terminal)}
		if ctxErr := ctx.Err(); ctxErr != nil {
			errs = append(errs, ctxErr)
		}
		for _, f := range result.Failures {
			if !f.Recoverable() {
				errs = append(errs, f)
			}
		}
		result.Err = errors.Join(errs...)
	}

	if result.Err != nil {
		r.logger.Error().
			Err(result.Err).
			Str("run_id", runID).
			Int("failures", len(result.Failures)).
			Dur("duration", result.FinishedAt.Sub(result.StartedAt)).
			Msg("Pipeline run did not reach its terminal stage")
	} else {
		r.logger.Info().
			Str("run_id", runID).
			Int("failures", len(result.Failures)).
			Dur("duration", result.FinishedAt.Sub(result.StartedAt)).
			Msg("Pipeline run completed")
	}

	return result, result.Err
}

// checkInputs requires exactly the declared input fields.
func (e *Executor) checkInputs(inputs Diff) error {
	var missing, unknown []string
	declared := make(map[Field]bool, len(e.graph.inputs))
	for _, f := range e.graph.inputs {
		declared[f] = true
		if _, ok := inputs[f]; !ok {
			missing = append(missing, string(f))
		}
	}
	for f := range inputs {
		if !declared[f] {
			unknown = append(unknown, string(f))
		}
	}
	sort.Strings(unknown)
	if len(missing) > 0 {
		return fmt.Errorf("missing input fields: %s", strings.Join(missing, ", "))
	}
	if len(unknown) > 0 {
		return fmt.Errorf("undeclared input fields: %s", strings.Join(unknown, ", "))
	}
	return nil
}

// scheduleReady promotes Pending stages whose dependencies are all Done and
// submits them. Callers hold r.mu.
func (r *run) scheduleReady() {
	g := r.e.graph
	for _, i := range g.order {
		if r.statuses[i] != StatusPending || r.remaining[i] > 0 {
			continue
		}
		name := g.stages[i].name

		if r.ctx.Err() != nil {
			r.setStatus(i, StatusSkipped)
			r.logger.Warn().Str("run_id", r.id).Str("stage", name).Msg("Stage skipped - run cancelled")
			continue
		}

		r.setStatus(i, StatusReady)
		idx := i
		if err := r.pool.submit(func(ctx context.Context) { r.execute(ctx, idx) }); err != nil {
			r.setStatus(i, StatusSkipped)
			r.logger.Error().Err(err).Str("run_id", r.id).Str("stage", name).Msg("Failed to submit stage")
			continue
		}
		r.inflight++

		r.logger.Debug().
			Str("run_id", r.id).
			Str("stage", name).
			Strs("dependencies", r.records[i].Dependencies).
			Msg("Stage ready")
	}
}

// execute runs one stage on a worker goroutine
func (r *run) execute(ctx context.Context, idx int) {
	stage := r.e.graph.stages[idx]

	r.mu.Lock()
	if ctx.Err() != nil {
		r.mu.Unlock()
		r.done <- outcome{idx: idx, cancelled: true, finished: time.Now()}
		return
	}
	r.setStatus(idx, StatusRunning)
	r.records[idx].StartedAt = time.Now()
	r.mu.Unlock()

	if r.e.observer != nil {
		r.e.observer.StageStarted(stage.name)
	}
	r.logger.Debug().Str("run_id", r.id).Str("stage", stage.name).Msg("Stage running")

	view := r.state.view(stage.reads)
	diff, err := safeRun(ctx, stage, view)
	r.done <- outcome{idx: idx, diff: diff, err: err, finished: time.Now()}
}

// safeRun converts a panicking stage into a failure
func safeRun(ctx context.Context, stage Stage, view Snapshot) (diff Diff, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			diff = nil
			err = &Failure{
				Kind: ErrStageFailed,
				Err:  fmt.Errorf("panic: %v\n%s", rec, debug.Stack()),
			}
		}
	}()
	return stage.run(ctx, view)
}

// handle applies a worker outcome. Callers hold r.mu.
func (r *run) handle(o outcome) {
	g := r.e.graph
	stage := g.stages[o.idx]
	rec := &r.records[o.idx]

	if o.cancelled {
		r.setStatus(o.idx, StatusSkipped)
		r.propagateSkip(o.idx)
		r.logger.Warn().Str("run_id", r.id).Str("stage", stage.name).Msg("Stage skipped - run cancelled")
		r.notifyFinished(stage.name, StatusSkipped)
		return
	}

	rec.FinishedAt = o.finished
	failures := asFailures(stage.name, o.err)
	contractErr := checkDiff(stage, o.diff)

	usable := contractErr == nil
	for _, f := range failures {
		if !f.Recoverable() {
			usable = false
		}
	}

	if usable {
		if err := r.state.commit(o.diff); err != nil {
			contractErr = err
			usable = false
		}
	}

	if !usable {
		if contractErr != nil {
			failures = append(failures, &Failure{Stage: stage.name, Kind: ErrStageFailed, Err: contractErr})
		}
		rec.Failures = failures
		r.failures = append(r.failures, failures...)
		r.setStatus(o.idx, StatusFailed)

		r.logger.Error().
			Err(errors.Join(toErrors(failures)...)).
			Str("run_id", r.id).
			Str("stage", stage.name).
			Dur("duration", rec.Duration()).
			Msg("Stage failed")

		skipped := r.propagateSkip(o.idx)
		if len(skipped) > 0 {
			r.logger.Warn().
				Str("run_id", r.id).
				Str("stage", stage.name).
				Strs("skipped", skipped).
				Msg("Skipping dependents of failed stage")
		}
		r.notifyFinished(stage.name, StatusFailed)
		return
	}

	rec.Failures = failures
	rec.Degraded = len(failures) > 0
	r.failures = append(r.failures, failures...)
	r.setStatus(o.idx, StatusDone)
	r.order = append(r.order, stage.name)
	for _, d := range g.outgoing[o.idx] {
		r.remaining[d]--
	}

	if rec.Degraded {
		r.logger.Warn().
			Err(errors.Join(toErrors(failures)...)).
			Str("run_id", r.id).
			Str("stage", stage.name).
			Dur("duration", rec.Duration()).
			Msg("Stage completed with placeholder output")
	} else {
		r.logger.Info().
			Str("run_id", r.id).
			Str("stage", stage.name).
			Dur("duration", rec.Duration()).
			Msg("Stage completed")
	}
	r.notifyFinished(stage.name, StatusDone)
}

// propagateSkip marks every transitive dependent that has not started as Skipped.
func (r *run) propagateSkip(idx int) []string {
	g := r.e.graph
	visited := make([]bool, g.Len())
	queue := append([]int(nil), g.outgoing[idx]...)
	var skipped []string

	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		if visited[u] {
			continue
		}
		visited[u] = true

		if r.statuses[u] == StatusPending {
			r.setStatus(u, StatusSkipped)
			skipped = append(skipped, g.stages[u].name)
			r.notifyFinished(g.stages[u].name, StatusSkipped)
		}
		queue = append(queue, g.outgoing[u]...)
	}
	return skipped
}

// skipUnreached closes out stages that never became ready.
func (r *run) skipUnreached() {
	for i, st := range r.statuses {
		if st == StatusPending {
			r.setStatus(i, StatusSkipped)
		}
	}
}

func (r *run) setStatus(idx int, to StageStatus) {
	name := r.e.graph.stages[idx].name
	if err := transition(r.statuses, idx, name, to); err != nil {
		// Scheduler bug; keep the run going with the requested status
		r.logger.Error().Err(err).Str("run_id", r.id).Msg("Invalid stage transition")
		r.statuses[idx] = to
	}
	r.records[idx].Status = to
}

func (r *run) notifyFinished(name string, status StageStatus) {
	if r.e.observer != nil {
		r.e.observer.StageFinished(name, status)
	}
}

// checkDiff enforces the write-set contract: no undeclared fields and every
// declared field present.
func checkDiff(stage Stage, diff Diff) error {
	declared := make(map[Field]bool, len(stage.writes))
	for _, f := range stage.writes {
		declared[f] = true
	}
	var extra []string
	for f := range diff {
		if !declared[f] {
			extra = append(extra, string(f))
		}
	}
	if len(extra) > 0 {
		sort.Strings(extra)
		return fmt.Errorf("stage %q wrote undeclared fields: %s", stage.name, strings.Join(extra, ", "))
	}
	var missing []string
	for _, f := range stage.writes {
		if _, ok := diff[f]; !ok {
			missing = append(missing, string(f))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("stage %q did not write: %s", stage.name, strings.Join(missing, ", "))
	}
	return nil
}

func toErrors(failures []*Failure) []error {
	out := make([]error, len(failures))
	for i, f := range failures {
		out[i] = f
	}
	return out
}
