package report

import (
	"fmt"
	"strings"

	"github.com/ternarybob/analyst/internal/models"
)

// BuildMarkdown renders the report header and sections as a markdown document.
func BuildMarkdown(r *models.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", r.Title)
	if r.Query != "" {
		fmt.Fprintf(&b, "**Query:** %s  \n", r.Query)
	}
	if len(r.Tickers) > 0 {
		fmt.Fprintf(&b, "**Tickers:** %s  \n", strings.Join(r.Tickers, ", "))
	}
	if !r.GeneratedAt.IsZero() {
		fmt.Fprintf(&b, "**Generated:** %s  \n", r.GeneratedAt.UTC().Format("2006-01-02 15:04 MST"))
	}
	if r.RunID != "" {
		fmt.Fprintf(&b, "**Run:** `%s`\n", r.RunID)
	}

	for _, s := range r.Sections {
		fmt.Fprintf(&b, "\n## %s\n\n", s.Title)
		body := strings.TrimSpace(s.Body)
		if body == "" {
			body = "_No content._"
		}
		b.WriteString(body)
		b.WriteString("\n")
	}

	return b.String()
}
