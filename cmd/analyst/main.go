package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/analyst/internal/app"
	"github.com/ternarybob/analyst/internal/common"
	"github.com/ternarybob/analyst/internal/pipeline"
)

// configPaths is a custom flag type that allows multiple -config flags
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	// Command-line flags
	configFiles  configPaths // Multiple -config flags supported
	query        = flag.String("query", "", "Research question to answer")
	queryQ       = flag.String("q", "", "Research question (shorthand)")
	tickers      = flag.String("tickers", "", "Comma-separated tickers, e.g. NASDAQ:AAPL,MSFT")
	tickersT     = flag.String("t", "", "Comma-separated tickers (shorthand)")
	model        = flag.String("model", "", "LLM model, optionally prefixed with claude/ or gemini/ (overrides config)")
	outputDir    = flag.String("output", "", "Directory for exported reports (overrides config)")
	outputDirO   = flag.String("o", "", "Directory for exported reports (shorthand)")
	formats      = flag.String("format", "", "Comma-separated export formats: md, html, pdf (overrides config)")
	showVersion  = flag.Bool("version", false, "Print version information")
	showVersionV = flag.Bool("v", false, "Print version information (shorthand)")
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func main() {
	if execPath, err := os.Executable(); err == nil {
		common.InstallCrashHandler(filepath.Join(filepath.Dir(execPath), "logs"))
	}
	defer common.RecoverWithCrashFile()

	flag.Parse()

	if *showVersion || *showVersionV {
		fmt.Printf("Analyst version %s\n", common.GetFullVersion())
		os.Exit(0)
	}

	finalQuery := firstNonEmpty(*query, *queryQ)
	finalTickers := splitList(firstNonEmpty(*tickers, *tickersT))
	if finalQuery == "" && flag.NArg() > 0 {
		finalQuery = strings.Join(flag.Args(), " ")
	}
	if finalQuery == "" || len(finalTickers) == 0 {
		fmt.Fprintln(os.Stderr, "usage: analyst -tickers NASDAQ:XYZ -query \"Is XYZ a buy?\" [-config analyst.toml] [-output dir -format md,html,pdf]")
		os.Exit(2)
	}

	// Startup sequence (REQUIRED ORDER):
	// 1. Load config (defaults -> file1 -> file2 -> ... -> env)
	// 2. Apply CLI overrides (highest priority)
	// 3. Initialize logger
	// 4. Print banner
	if len(configFiles) == 0 {
		if _, err := os.Stat("analyst.toml"); err == nil {
			configFiles = append(configFiles, "analyst.toml")
		}
	}

	config, err := common.LoadFromFiles(configFiles...)
	if err != nil {
		// Use temporary logger for startup errors
		tempLogger := arbor.NewLogger()
		tempLogger.Fatal().Strs("paths", configFiles).Err(err).Msg("Failed to load configuration files")
		os.Exit(1)
	}

	common.ApplyFlagOverrides(config, *model, firstNonEmpty(*outputDir, *outputDirO), splitList(*formats))

	if err := config.Validate(); err != nil {
		arbor.NewLogger().Fatal().Err(err).Msg("Invalid configuration")
		os.Exit(1)
	}

	logger := common.InitLogger(config)
	common.PrintBanner(common.GetVersion())

	logger.Debug().
		Strs("config_files", configFiles).
		Str("log_level", config.Logging.Level).
		Str("default_provider", string(config.LLM.DefaultProvider)).
		Str("search_provider", config.Search.Provider).
		Msg("Resolved configuration")

	application, err := app.New(config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize application")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, application, logger, app.RunRequest{Query: finalQuery, Tickers: finalTickers})
	stop()

	application.Close()
	os.Exit(code)
}

// run executes one research request and returns the process exit code
func run(ctx context.Context, application *app.App, logger arbor.ILogger, req app.RunRequest) int {
	result, memo, err := application.Run(ctx, req)
	if err != nil {
		switch {
		case errors.Is(err, context.Canceled):
			logger.Warn().Msg("Research run cancelled")
		case errors.Is(err, pipeline.ErrTerminalUnreachable):
			logger.Error().Err(err).Msg("Research memo could not be compiled")
		default:
			logger.Error().Err(err).Msg("Research run failed")
		}
	}
	if memo == nil {
		return 1
	}

	if result != nil {
		for _, f := range result.Failures {
			logger.Warn().Str("stage", f.Stage).Err(f).Msg("Stage completed with missing input")
		}
	}

	fmt.Println(memo.Markdown)

	paths, err := application.Export(memo)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to export report")
		return 1
	}
	if len(paths) > 0 {
		logger.Info().Strs("files", paths).Msg("Report written")
	}
	return 0
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
