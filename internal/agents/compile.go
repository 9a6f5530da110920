package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/analyst/internal/models"
	"github.com/ternarybob/analyst/internal/pipeline"
	"github.com/ternarybob/analyst/internal/services/report"
)

// Report section titles, in memo order.
const (
	SectionExecutiveSummary = "Executive Summary & Strategy"
	SectionFundamentals     = "Fundamental Analysis"
	SectionTechnicals       = "Technical Analysis & Trading Parameters"
	SectionNews             = "News & Market Sentiment"
	SectionRisk             = "Risk Factors & Conclusion"
)

// SectionTitles lists the memo sections in order.
var SectionTitles = []string{
	SectionExecutiveSummary,
	SectionFundamentals,
	SectionTechnicals,
	SectionNews,
	SectionRisk,
}

// NewCompileStage builds the editor, the terminal stage. The LLM writes the
// executive summary; the remaining sections carry the upstream reports
// verbatim, placeholders included.
func NewCompileStage(deps Deps) pipeline.Stage {
	deps = deps.withDefaults()

	return pipeline.NewStage(StageCompile,
		[]pipeline.Field{
			FieldQuery, FieldResearchPlan,
			FieldFundamentalData, FieldNewsAnalysis, FieldTechnicalReport,
			FieldRiskAssessment, FieldStrategyAdvice,
		},
		[]pipeline.Field{FieldFinalReport},
		func(ctx context.Context, view pipeline.Snapshot) (pipeline.Diff, error) {
			texts := make(map[pipeline.Field]string, 6)
			for _, f := range []pipeline.Field{
				FieldQuery, FieldFundamentalData, FieldNewsAnalysis,
				FieldTechnicalReport, FieldRiskAssessment, FieldStrategyAdvice,
			} {
				v, err := pipeline.MustLookup[string](view, f)
				if err != nil {
					return nil, err
				}
				texts[f] = v
			}
			plan, err := pipeline.MustLookup[ResearchPlan](view, FieldResearchPlan)
			if err != nil {
				return nil, err
			}

			var failure *pipeline.Failure
			summary, err := deps.LLM.GenerateWithSystem(ctx,
				fmt.Sprintf(editorSystem, deps.Language),
				editorUserPrompt(texts[FieldQuery], texts[FieldFundamentalData], texts[FieldNewsAnalysis],
					texts[FieldTechnicalReport], texts[FieldStrategyAdvice]))
			if err != nil {
				failure = pipeline.CollaboratorFailure(fmt.Errorf("executive summary: %w", err))
				summary = texts[FieldStrategyAdvice]
				deps.Logger.Warn().Err(err).Msg("Executive summary unavailable, using strategy advice")
			}

			bodies := []string{
				summary,
				texts[FieldFundamentalData],
				texts[FieldTechnicalReport],
				texts[FieldNewsAnalysis],
				texts[FieldRiskAssessment],
			}

			r := &models.Report{
				Title:       "Research Memo: " + strings.Join(plan.Symbols(), ", "),
				Query:       plan.Query,
				Tickers:     plan.Symbols(),
				GeneratedAt: deps.Now().UTC(),
				Sections:    make([]models.ReportSection, len(SectionTitles)),
			}
			var unavailableSections []string
			for i, title := range SectionTitles {
				body := strings.TrimSpace(bodies[i])
				r.Sections[i] = models.ReportSection{
					Title:       title,
					Body:        body,
					Unavailable: IsPlaceholder(body),
				}
				if r.Sections[i].Unavailable {
					unavailableSections = append(unavailableSections, title)
				}
			}
			r.Markdown = report.BuildMarkdown(r)

			deps.Logger.Info().
				Str("title", r.Title).
				Int("sections", len(r.Sections)).
				Strs("unavailable", unavailableSections).
				Int("markdown_len", len(r.Markdown)).
				Msg("Research memo compiled")

			diff := pipeline.Diff{FieldFinalReport: r}
			if failure != nil {
				return diff, failure
			}
			return diff, nil
		})
}
