package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string         `toml:"environment"` // "development" or "production"
	Logging     LoggingConfig  `toml:"logging"`
	Gemini      GeminiConfig   `toml:"gemini"`
	Claude      ClaudeConfig   `toml:"claude"`
	LLM         LLMConfig      `toml:"llm"`
	EODHD       EODHDConfig    `toml:"eodhd"`
	Search      SearchConfig   `toml:"search"`
	Pipeline    PipelineConfig `toml:"pipeline"`
	Output      OutputConfig   `toml:"output"`
	Markets     MarketsConfig  `toml:"markets"`
}

type LoggingConfig struct {
	Level      string   `toml:"level" validate:"oneof=trace debug info warn error"` // "debug", "info", "warn", "error"
	Output     []string `toml:"output" validate:"dive,oneof=stdout console file"`   // "stdout", "file"
	TimeFormat string   `toml:"time_format"`                                        // Time format for console output (default: "15:04:05")
}

// GeminiConfig contains Google Gemini API configuration
type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`                            // Google Gemini API key
	Model       string  `toml:"model"`                              // Model for AI operations (default: "gemini-3-flash-preview")
	Timeout     string  `toml:"timeout"`                            // Per-call timeout as duration string (default: "5m")
	Temperature float32 `toml:"temperature" validate:"gte=0,lte=2"` // Completion temperature (default: 0.2)
}

// ClaudeConfig contains Anthropic Claude API configuration
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`                            // Anthropic API key
	Model       string  `toml:"model"`                              // Model for AI operations (default: "claude-haiku-3-5-20241022")
	MaxTokens   int     `toml:"max_tokens" validate:"gt=0"`         // Maximum tokens in response (default: 8192)
	Timeout     string  `toml:"timeout"`                            // Per-call timeout as duration string (default: "5m")
	Temperature float32 `toml:"temperature" validate:"gte=0,lte=1"` // Completion temperature (default: 0.2)
}

// LLMProvider represents the AI provider type
type LLMProvider string

const (
	// LLMProviderGemini uses Google Gemini API
	LLMProviderGemini LLMProvider = "gemini"
	// LLMProviderClaude uses Anthropic Claude API
	LLMProviderClaude LLMProvider = "claude"
)

// LLMConfig contains provider-independent LLM settings
type LLMConfig struct {
	DefaultProvider LLMProvider `toml:"default_provider" validate:"oneof=gemini claude"` // "gemini" or "claude" (default: "gemini")
	Model           string      `toml:"model"`                                           // Optional model override, may carry a "claude/" or "gemini/" prefix
	MaxRetries      int         `toml:"max_retries" validate:"gte=0,lte=10"`             // Rate-limit retries inside one call (default: 0)
}

// EODHDConfig contains market data API configuration
type EODHDConfig struct {
	APIKey      string `toml:"api_key"`
	BaseURL     string `toml:"base_url" validate:"omitempty,url"`
	RateLimit   int    `toml:"rate_limit" validate:"gt=0"`     // Requests per second (default: 10)
	HistoryDays int    `toml:"history_days" validate:"gte=30"` // Calendar days of daily bars to fetch (default: 365)
	Timeout     string `toml:"timeout"`                        // HTTP timeout (default: "30s")
}

// SearchConfig contains web search configuration
type SearchConfig struct {
	Provider   string `toml:"provider" validate:"oneof=duckduckgo gemini"` // "duckduckgo" or "gemini" (default: "duckduckgo")
	MaxResults int    `toml:"max_results" validate:"gt=0,lte=25"`          // Results per query (default: 5)
	UserAgent  string `toml:"user_agent"`
	BaseURL    string `toml:"base_url" validate:"omitempty,url"`
	Timeout    string `toml:"timeout"` // HTTP timeout (default: "20s")
}

// PipelineConfig controls the stage executor
type PipelineConfig struct {
	MaxParallel int `toml:"max_parallel" validate:"gte=0"` // 0 = one worker per stage
}

// OutputConfig controls report export
type OutputConfig struct {
	Dir      string   `toml:"dir"`                                       // Directory for exported reports (empty = stdout only)
	Formats  []string `toml:"formats" validate:"dive,oneof=md html pdf"` // Any of "md", "html", "pdf"
	Language string   `toml:"language" validate:"required"`              // Language the analysts write in (default: "English")
}

// MarketsConfig contains market defaults
type MarketsConfig struct {
	DefaultExchange string `toml:"default_exchange"` // Exchange used for bare tickers (default: "NASDAQ")
}

// NewDefaultConfig creates a configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout"},
			TimeFormat: "15:04:05",
		},
		Gemini: GeminiConfig{
			Model:       "gemini-3-flash-preview",
			Timeout:     "5m",
			Temperature: 0.2,
		},
		Claude: ClaudeConfig{
			Model:       "claude-haiku-3-5-20241022",
			MaxTokens:   8192,
			Timeout:     "5m",
			Temperature: 0.2,
		},
		LLM: LLMConfig{
			DefaultProvider: LLMProviderGemini,
		},
		EODHD: EODHDConfig{
			BaseURL:     "https://eodhd.com/api",
			RateLimit:   10,
			HistoryDays: 365,
			Timeout:     "30s",
		},
		Search: SearchConfig{
			Provider:   "duckduckgo",
			MaxResults: 5,
			UserAgent:  "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			BaseURL:    "https://html.duckduckgo.com/html/",
			Timeout:    "20s",
		},
		Output: OutputConfig{
			Formats:  []string{"md"},
			Language: "English",
		},
		Markets: MarketsConfig{
			DefaultExchange: "NASDAQ",
		},
	}
}

// LoadFromFiles loads configuration with priority: default -> file1 -> file2 -> ... -> env.
// CLI overrides are applied afterwards by the caller.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		// Unmarshal merges into the existing values
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("ANALYST_ENV"); env != "" {
		config.Environment = env
	}

	// Logging
	if level := os.Getenv("ANALYST_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("ANALYST_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	// LLM
	if provider := os.Getenv("ANALYST_LLM_DEFAULT_PROVIDER"); provider != "" {
		config.LLM.DefaultProvider = LLMProvider(strings.ToLower(provider))
	}
	if model := os.Getenv("ANALYST_LLM_MODEL"); model != "" {
		config.LLM.Model = model
	}
	if retries := os.Getenv("ANALYST_LLM_MAX_RETRIES"); retries != "" {
		if r, err := strconv.Atoi(retries); err == nil {
			config.LLM.MaxRetries = r
		}
	}
	if model := os.Getenv("ANALYST_GEMINI_MODEL"); model != "" {
		config.Gemini.Model = model
	}
	if model := os.Getenv("ANALYST_CLAUDE_MODEL"); model != "" {
		config.Claude.Model = model
	}

	// Market data
	if baseURL := os.Getenv("ANALYST_EODHD_BASE_URL"); baseURL != "" {
		config.EODHD.BaseURL = baseURL
	}
	if days := os.Getenv("ANALYST_EODHD_HISTORY_DAYS"); days != "" {
		if d, err := strconv.Atoi(days); err == nil {
			config.EODHD.HistoryDays = d
		}
	}

	// Search
	if provider := os.Getenv("ANALYST_SEARCH_PROVIDER"); provider != "" {
		config.Search.Provider = strings.ToLower(provider)
	}
	if maxResults := os.Getenv("ANALYST_SEARCH_MAX_RESULTS"); maxResults != "" {
		if m, err := strconv.Atoi(maxResults); err == nil {
			config.Search.MaxResults = m
		}
	}

	// Pipeline and output
	if parallel := os.Getenv("ANALYST_PIPELINE_MAX_PARALLEL"); parallel != "" {
		if p, err := strconv.Atoi(parallel); err == nil {
			config.Pipeline.MaxParallel = p
		}
	}
	if dir := os.Getenv("ANALYST_OUTPUT_DIR"); dir != "" {
		config.Output.Dir = dir
	}
	if language := os.Getenv("ANALYST_OUTPUT_LANGUAGE"); language != "" {
		config.Output.Language = language
	}
	if exchange := os.Getenv("ANALYST_DEFAULT_EXCHANGE"); exchange != "" {
		config.Markets.DefaultExchange = exchange
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, model, outputDir string, formats []string) {
	if model != "" {
		config.LLM.Model = model
	}
	if outputDir != "" {
		config.Output.Dir = outputDir
	}
	if len(formats) > 0 {
		config.Output.Formats = formats
	}
}

// Validate checks the configuration against its struct constraints
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	for _, d := range []struct{ name, value string }{
		{"gemini.timeout", c.Gemini.Timeout},
		{"claude.timeout", c.Claude.Timeout},
		{"eodhd.timeout", c.EODHD.Timeout},
		{"search.timeout", c.Search.Timeout},
	} {
		if d.value == "" {
			continue
		}
		if _, err := time.ParseDuration(d.value); err != nil {
			return fmt.Errorf("invalid configuration: %s: %w", d.name, err)
		}
	}
	return nil
}

// ParseDurationOr parses a duration string, returning fallback when empty or invalid
func ParseDurationOr(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

// ResolveAPIKey resolves an API key by name with environment variable priority.
// Resolution order: environment variables -> config fallback -> error
func ResolveAPIKey(name string, configFallback string) (string, error) {
	keyToEnvMapping := map[string][]string{
		"gemini_api_key":    {"ANALYST_GEMINI_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY"},
		"anthropic_api_key": {"ANALYST_CLAUDE_API_KEY", "ANTHROPIC_API_KEY"},
		"eodhd_api_key":     {"ANALYST_EODHD_API_KEY", "EODHD_API_KEY"},
	}

	if envVarNames, ok := keyToEnvMapping[name]; ok {
		for _, envVarName := range envVarNames {
			if envValue := os.Getenv(envVarName); envValue != "" {
				return envValue, nil
			}
		}
	}

	if configFallback != "" {
		return configFallback, nil
	}

	return "", fmt.Errorf("API key '%s' not found in environment or config", name)
}
