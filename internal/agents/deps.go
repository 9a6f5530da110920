package agents

import (
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/analyst/internal/interfaces"
	"github.com/ternarybob/arbor"
)

// Placeholder prefixes substituted for output a stage could not produce.
const (
	UnavailablePrefix = "[DATA UNAVAILABLE]"
	SkippedPrefix     = "[SKIPPED]"
)

// SkippedTechnicals is the technicals note for a ticker without enough price history.
const SkippedTechnicals = SkippedPrefix + " insufficient K-line data (requires >= 30 data points)"

// DefaultMaxSearchResults is used when Deps.MaxSearchResults is not set.
const DefaultMaxSearchResults = 5

// Deps are the collaborators shared by the memo stages.
type Deps struct {
	LLM              interfaces.LLMService
	Market           interfaces.MarketDataService
	Search           interfaces.SearchService
	Logger           arbor.ILogger
	MaxSearchResults int
	Language         string           // language the analysts write in; empty means English
	Now              func() time.Time // defaults to time.Now
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = arbor.NewLogger()
	}
	if d.MaxSearchResults <= 0 {
		d.MaxSearchResults = DefaultMaxSearchResults
	}
	if d.Language == "" {
		d.Language = "English"
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

func (d Deps) validate() error {
	var missing []string
	if d.LLM == nil {
		missing = append(missing, "LLM")
	}
	if d.Market == nil {
		missing = append(missing, "Market")
	}
	if d.Search == nil {
		missing = append(missing, "Search")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing collaborators: %s", strings.Join(missing, ", "))
	}
	return nil
}

// unavailable renders the placeholder for a section that could not be produced.
func unavailable(what string, err error) string {
	if err == nil {
		return fmt.Sprintf("%s %s", UnavailablePrefix, what)
	}
	return fmt.Sprintf("%s %s: %v", UnavailablePrefix, what, err)
}

// IsPlaceholder reports whether every per-ticker body of a section is
// placeholder output.
func IsPlaceholder(text string) bool {
	found := false
	for _, part := range strings.Split(text, "\n\n") {
		part = strings.TrimSpace(part)
		if part == "" || strings.HasPrefix(part, "### ") {
			continue
		}
		if !strings.HasPrefix(part, UnavailablePrefix) && !strings.HasPrefix(part, SkippedPrefix) {
			return false
		}
		found = true
	}
	return found
}

// joinTickers merges per-ticker bodies. A single ticker is returned bare.
func joinTickers(symbols, bodies []string) string {
	if len(bodies) == 1 {
		return bodies[0]
	}
	var sb strings.Builder
	for i, body := range bodies {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "### %s\n\n%s", symbols[i], strings.TrimSpace(body))
	}
	return sb.String()
}
