package agents

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ternarybob/analyst/internal/common"
	"github.com/ternarybob/analyst/internal/pipeline"
)

// newsQueryTemplate is the per-ticker web search query.
const newsQueryTemplate = "Recent news and market sentiment for %s relating to %s"

// NewsQuery builds the web search query for one ticker.
func NewsQuery(ticker common.Ticker, query string) string {
	return fmt.Sprintf(newsQueryTemplate, ticker.Code, query)
}

// NewRouterStage builds the entry stage. It validates the request, removes
// duplicate tickers and writes the research plan the analysts work from.
func NewRouterStage(deps Deps) pipeline.Stage {
	deps = deps.withDefaults()

	return pipeline.NewStage(StageRouter,
		[]pipeline.Field{FieldQuery, FieldTickers},
		[]pipeline.Field{FieldResearchPlan},
		func(ctx context.Context, view pipeline.Snapshot) (pipeline.Diff, error) {
			query, err := pipeline.MustLookup[string](view, FieldQuery)
			if err != nil {
				return nil, err
			}
			tickers, err := pipeline.MustLookup[[]common.Ticker](view, FieldTickers)
			if err != nil {
				return nil, err
			}

			query = strings.TrimSpace(query)
			if query == "" {
				return nil, errors.New("query is empty")
			}

			plan := ResearchPlan{Query: query, AsOf: deps.Now()}
			seen := make(map[string]bool, len(tickers))
			for _, t := range tickers {
				if t.Code == "" || seen[t.String()] {
					continue
				}
				seen[t.String()] = true
				plan.Tickers = append(plan.Tickers, TickerPlan{
					Ticker:    t,
					NewsQuery: NewsQuery(t, query),
				})
			}
			if len(plan.Tickers) == 0 {
				return nil, errors.New("no tickers to research")
			}

			deps.Logger.Info().
				Strs("tickers", plan.Symbols()).
				Str("query", query).
				Msg("Research plan created")

			return pipeline.Diff{FieldResearchPlan: plan}, nil
		})
}
