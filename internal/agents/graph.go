package agents

import (
	"fmt"

	"github.com/ternarybob/analyst/internal/models"
	"github.com/ternarybob/analyst/internal/pipeline"
)

// NewMemoStages returns the six memo stages in declaration order.
func NewMemoStages(deps Deps) []pipeline.Stage {
	return []pipeline.Stage{
		NewRouterStage(deps),
		NewFundamentalsStage(deps),
		NewNewsStage(deps),
		NewTechnicalsStage(deps),
		NewSynthesisStage(deps),
		NewCompileStage(deps),
	}
}

// NewMemoGraph builds the fixed research-memo topology:
//
//	router -> {fundamentals, news}
//	fundamentals -> technicals
//	{fundamentals, news, technicals} -> synthesis
//	synthesis -> compile (terminal)
//
// Edges are derived from the stages' read and write sets. Compile also reads
// the analyst reports directly, which adds redundant transitive edges without
// changing when it becomes ready.
//
// Parameters:
//   - deps: collaborators shared by every stage; LLM, Market and Search are required
//
// Returns:
//   - *pipeline.TaskGraph: the validated graph, reusable across runs
//   - error: missing collaborators, or a pipeline.ErrGraphFailure from validation
func NewMemoGraph(deps Deps) (*pipeline.TaskGraph, error) {
	if err := deps.validate(); err != nil {
		return nil, fmt.Errorf("failed to build memo graph: %w", err)
	}
	return pipeline.NewTaskGraph(Inputs(), NewMemoStages(deps), StageCompile)
}

// FinalReport extracts the compiled report from a run's terminal output.
func FinalReport(result *pipeline.ExecutionResult) (*models.Report, bool) {
	if result == nil || result.Output == nil {
		return nil, false
	}
	r, ok := result.Output[FieldFinalReport].(*models.Report)
	return r, ok && r != nil
}
