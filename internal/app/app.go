package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/analyst/internal/agents"
	"github.com/ternarybob/analyst/internal/common"
	"github.com/ternarybob/analyst/internal/eodhd"
	"github.com/ternarybob/analyst/internal/interfaces"
	"github.com/ternarybob/analyst/internal/models"
	"github.com/ternarybob/analyst/internal/pipeline"
	"github.com/ternarybob/analyst/internal/services/llm"
	"github.com/ternarybob/analyst/internal/services/marketdata"
	"github.com/ternarybob/analyst/internal/services/report"
	"github.com/ternarybob/analyst/internal/services/search"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	// Collaborators
	LLMFactory        *llm.ProviderFactory
	LLMService        interfaces.LLMService
	MarketDataService interfaces.MarketDataService
	SearchService     interfaces.SearchService
	ReportService     *report.Service

	// Pipeline, built once and reused across runs
	Graph    *pipeline.TaskGraph
	Executor *pipeline.Executor

	validate *validator.Validate
}

// Option overrides a collaborator before the pipeline is built
type Option func(*App)

// WithLLMService replaces the configured LLM provider
func WithLLMService(s interfaces.LLMService) Option {
	return func(a *App) { a.LLMService = s }
}

// WithMarketDataService replaces the EODHD-backed market data service
func WithMarketDataService(s interfaces.MarketDataService) Option {
	return func(a *App) { a.MarketDataService = s }
}

// WithSearchService replaces the configured web search provider
func WithSearchService(s interfaces.SearchService) Option {
	return func(a *App) { a.SearchService = s }
}

// RunRequest is one research request
type RunRequest struct {
	Query   string   `validate:"required"`
	Tickers []string `validate:"required,min=1,dive,required"`
}

// New initializes the collaborators and builds the memo pipeline
func New(cfg *common.Config, logger arbor.ILogger, opts ...Option) (*App, error) {
	app := &App{
		Config:   cfg,
		Logger:   logger,
		validate: validator.New(),
	}
	for _, opt := range opts {
		opt(app)
	}

	common.SetDefaultExchange(cfg.Markets.DefaultExchange)

	if err := app.initServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	if err := app.initPipeline(); err != nil {
		return nil, fmt.Errorf("failed to initialize pipeline: %w", err)
	}

	logger.Info().
		Str("model", app.LLMService.Model()).
		Str("search_provider", app.SearchService.Name()).
		Int("stages", app.Graph.Len()).
		Msg("Application initialization complete")

	return app, nil
}

// initServices creates every collaborator not supplied through an Option
func (a *App) initServices() error {
	cfg := a.Config

	a.LLMFactory = llm.NewProviderFactory(&cfg.Gemini, &cfg.Claude, &cfg.LLM, a.Logger)
	if a.LLMService == nil {
		a.LLMService = llm.NewService(a.LLMFactory, cfg.LLM.Model, a.Logger)
	}

	if a.MarketDataService == nil {
		apiKey, err := common.ResolveAPIKey("eodhd_api_key", cfg.EODHD.APIKey)
		if err != nil {
			// Runs still complete; market data sections carry placeholders.
			a.Logger.Warn().Err(err).Msg("EODHD API key not configured")
		}
		client := eodhd.NewClient(apiKey,
			eodhd.WithBaseURL(cfg.EODHD.BaseURL),
			eodhd.WithTimeout(common.ParseDurationOr(cfg.EODHD.Timeout, 30*time.Second)),
			eodhd.WithRateLimit(cfg.EODHD.RateLimit),
			eodhd.WithLogger(a.Logger),
		)
		a.MarketDataService = marketdata.NewService(client, cfg.EODHD.HistoryDays, a.Logger)
	}

	if a.SearchService == nil {
		svc, err := search.NewService(&cfg.Search, a.LLMFactory, a.Logger)
		if err != nil {
			return fmt.Errorf("failed to create search service: %w", err)
		}
		a.SearchService = svc
	}

	a.ReportService = report.NewService(a.Logger)
	return nil
}

// initPipeline builds the memo task graph and its executor
func (a *App) initPipeline() error {
	graph, err := agents.NewMemoGraph(agents.Deps{
		LLM:              a.LLMService,
		Market:           a.MarketDataService,
		Search:           a.SearchService,
		Logger:           a.Logger,
		MaxSearchResults: a.Config.Search.MaxResults,
		Language:         a.Config.Output.Language,
	})
	if err != nil {
		return err
	}

	executor, err := pipeline.NewExecutor(graph, a.Logger,
		pipeline.WithMaxParallel(a.Config.Pipeline.MaxParallel))
	if err != nil {
		return err
	}

	a.Graph = graph
	a.Executor = executor
	return nil
}

// Run executes the memo pipeline for one request. The report is nil when the
// compile stage did not complete; the result is nil only when the request is
// rejected before the run starts.
func (a *App) Run(ctx context.Context, req RunRequest) (*pipeline.ExecutionResult, *models.Report, error) {
	if err := a.validate.Struct(req); err != nil {
		return nil, nil, fmt.Errorf("invalid run request: %w", err)
	}

	tickers := common.ParseTickers(req.Tickers)
	if len(tickers) == 0 {
		return nil, nil, fmt.Errorf("invalid run request: no valid tickers in %q", strings.Join(req.Tickers, ","))
	}

	result, err := a.Executor.Run(ctx, agents.NewInputs(strings.TrimSpace(req.Query), tickers))

	memo, ok := agents.FinalReport(result)
	if ok {
		memo.RunID = result.RunID
		memo.Markdown = report.BuildMarkdown(memo)
	}

	if result != nil {
		a.Logger.Info().
			Str("run_id", result.RunID).
			Bool("completed", result.Completed()).
			Int("failures", len(result.Failures)).
			Dur("duration", result.FinishedAt.Sub(result.StartedAt)).
			Msg("Research run finished")
	}

	return result, memo, err
}

// Export writes the report in the configured formats. It does nothing when
// no output directory is configured.
func (a *App) Export(memo *models.Report) ([]string, error) {
	if memo == nil || a.Config.Output.Dir == "" {
		return nil, nil
	}
	return a.ReportService.Export(a.Config.Output.Dir, a.Config.Output.Formats, memo)
}

// Close releases provider clients
func (a *App) Close() error {
	if a.LLMFactory != nil {
		if err := a.LLMFactory.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close LLM provider factory")
		}
	}
	a.Logger.Debug().Msg("Application closed")
	return nil
}
