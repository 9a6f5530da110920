package agents

import (
	"context"
	"fmt"

	"github.com/ternarybob/analyst/internal/pipeline"
	"github.com/ternarybob/analyst/internal/services/search"
)

// NewNewsStage builds the news analyst: one web search per ticker, summarized
// by the LLM into catalysts, sentiment and non-financial risks.
func NewNewsStage(deps Deps) pipeline.Stage {
	deps = deps.withDefaults()

	return pipeline.NewStage(StageNews,
		[]pipeline.Field{FieldResearchPlan},
		[]pipeline.Field{FieldNewsAnalysis},
		func(ctx context.Context, view pipeline.Snapshot) (pipeline.Diff, error) {
			plan, err := pipeline.MustLookup[ResearchPlan](view, FieldResearchPlan)
			if err != nil {
				return nil, err
			}

			bodies := make([]string, 0, len(plan.Tickers))
			var failures []*pipeline.Failure

			for _, tp := range plan.Tickers {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
				symbol := tp.Ticker.String()

				results, err := deps.Search.Search(ctx, tp.NewsQuery, deps.MaxSearchResults)
				if err != nil {
					failures = append(failures, pipeline.CollaboratorFailure(fmt.Errorf("%s search for %s: %w", deps.Search.Name(), symbol, err)))
					bodies = append(bodies, unavailable("news for "+symbol, err))
					continue
				}

				analysis, err := deps.LLM.GenerateWithSystem(ctx,
					fmt.Sprintf(newsSystem, deps.Language),
					newsUserPrompt(search.FormatResults(tp.NewsQuery, results)))
				if err != nil {
					failures = append(failures, pipeline.CollaboratorFailure(fmt.Errorf("news analysis for %s: %w", symbol, err)))
					bodies = append(bodies, unavailable("news analysis for "+symbol, err))
					continue
				}

				deps.Logger.Debug().
					Str("ticker", symbol).
					Str("provider", deps.Search.Name()).
					Int("results", len(results)).
					Msg("News analysis completed")
				bodies = append(bodies, analysis)
			}

			diff := pipeline.Diff{FieldNewsAnalysis: joinTickers(plan.Symbols(), bodies)}
			return diff, pipeline.Degraded(failures...)
		})
}
