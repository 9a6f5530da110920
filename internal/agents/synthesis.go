package agents

import (
	"context"
	"fmt"

	"github.com/ternarybob/analyst/internal/pipeline"
)

// NewSynthesisStage builds the strategist. It waits for all three analyst
// reports and derives the risk assessment and strategy advice from one LLM
// response split on StrategyMarker.
func NewSynthesisStage(deps Deps) pipeline.Stage {
	deps = deps.withDefaults()

	return pipeline.NewStage(StageSynthesis,
		[]pipeline.Field{FieldQuery, FieldFundamentalData, FieldNewsAnalysis, FieldTechnicalReport},
		[]pipeline.Field{FieldRiskAssessment, FieldStrategyAdvice},
		func(ctx context.Context, view pipeline.Snapshot) (pipeline.Diff, error) {
			query, err := pipeline.MustLookup[string](view, FieldQuery)
			if err != nil {
				return nil, err
			}
			fundamentals, err := pipeline.MustLookup[string](view, FieldFundamentalData)
			if err != nil {
				return nil, err
			}
			news, err := pipeline.MustLookup[string](view, FieldNewsAnalysis)
			if err != nil {
				return nil, err
			}
			technicals, err := pipeline.MustLookup[string](view, FieldTechnicalReport)
			if err != nil {
				return nil, err
			}

			response, err := deps.LLM.GenerateWithSystem(ctx,
				fmt.Sprintf(synthesisSystem, deps.Language),
				synthesisUserPrompt(query, fundamentals, news, technicals))
			if err != nil {
				placeholder := unavailable("strategy and risk synthesis", err)
				return pipeline.Diff{
					FieldRiskAssessment: placeholder,
					FieldStrategyAdvice: placeholder,
				}, pipeline.CollaboratorFailure(fmt.Errorf("synthesis: %w", err))
			}

			risk, strategy := splitSynthesis(response)
			deps.Logger.Debug().
				Int("risk_len", len(risk)).
				Int("strategy_len", len(strategy)).
				Bool("split", risk != strategy).
				Msg("Strategy synthesis completed")

			return pipeline.Diff{
				FieldRiskAssessment: risk,
				FieldStrategyAdvice: strategy,
			}, nil
		})
}
