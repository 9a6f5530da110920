// Package report renders compiled research memos as markdown, HTML and PDF
// and writes them to disk.
package report

import (
	"bytes"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/ternarybob/analyst/internal/interfaces"
	"github.com/ternarybob/analyst/internal/models"
	"github.com/ternarybob/arbor"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// Export formats
const (
	FormatMarkdown = "md"
	FormatHTML     = "html"
	FormatPDF      = "pdf"
)

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body { font-family: -apple-system, "Segoe UI", Arial, sans-serif; max-width: 860px; margin: 2rem auto; padding: 0 1rem; color: #222; line-height: 1.5; }
table { border-collapse: collapse; margin: 1rem 0; }
th, td { border: 1px solid #ccc; padding: 4px 8px; text-align: left; }
th { background: #eee; }
code, pre { background: #f5f5f5; }
h2 { border-bottom: 1px solid #ddd; padding-bottom: 4px; }
</style>
</head>
<body>
%s</body>
</html>
`

// Service implements interfaces.ReportRenderer
type Service struct {
	logger arbor.ILogger
	md     goldmark.Markdown
}

var _ interfaces.ReportRenderer = (*Service)(nil)

// NewService creates a report renderer
func NewService(logger arbor.ILogger) *Service {
	return &Service{
		logger: logger,
		md: goldmark.New(
			goldmark.WithExtensions(extension.Table, extension.Strikethrough, extension.Linkify),
		),
	}
}

// markdownOf returns the report's compiled markdown, building it when absent.
func markdownOf(r *models.Report) string {
	if r.Markdown != "" {
		return r.Markdown
	}
	return BuildMarkdown(r)
}

// RenderHTML converts the report to a standalone HTML document
func (s *Service) RenderHTML(r *models.Report) ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("nil report")
	}

	var body bytes.Buffer
	if err := s.md.Convert([]byte(markdownOf(r)), &body); err != nil {
		return nil, fmt.Errorf("failed to render HTML: %w", err)
	}

	out := fmt.Sprintf(htmlTemplate, html.EscapeString(r.Title), body.String())
	s.logger.Debug().Str("run_id", r.RunID).Int("html_size", len(out)).Msg("HTML report rendered")
	return []byte(out), nil
}

// RenderPDF converts the report to an A4 PDF
func (s *Service) RenderPDF(r *models.Report) ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("nil report")
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(r.Title, true)
	pdf.SetCreator("analyst", true)
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Arial", "I", 7)
		pdf.CellFormat(0, 5, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()
	pdf.SetFont("Arial", "", 9)

	source := []byte(markdownOf(r))
	doc := s.md.Parser().Parse(text.NewReader(source))

	renderer := &pdfRenderer{
		pdf:       pdf,
		source:    source,
		translate: pdf.UnicodeTranslatorFromDescriptor(""),
		font:      "Arial",
		size:      9,
	}
	if err := renderer.render(doc); err != nil {
		s.logger.Error().Err(err).Str("run_id", r.RunID).Msg("Failed to generate PDF")
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		s.logger.Error().Err(err).Str("run_id", r.RunID).Msg("Failed to generate PDF output")
		return nil, fmt.Errorf("failed to generate PDF output: %w", err)
	}

	s.logger.Debug().Str("run_id", r.RunID).Int("pdf_size", buf.Len()).Msg("PDF report rendered")
	return buf.Bytes(), nil
}

// Export writes the report to dir in each requested format and returns the
// written paths. Unknown formats are rejected before anything is written.
func (s *Service) Export(dir string, formats []string, r *models.Report) ([]string, error) {
	if r == nil {
		return nil, fmt.Errorf("nil report")
	}
	for _, f := range formats {
		switch f {
		case FormatMarkdown, FormatHTML, FormatPDF:
		default:
			return nil, fmt.Errorf("unsupported export format %q", f)
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	base := FileBase(r)
	paths := make([]string, 0, len(formats))
	for _, f := range formats {
		var data []byte
		var err error
		switch f {
		case FormatMarkdown:
			data = []byte(markdownOf(r))
		case FormatHTML:
			data, err = s.RenderHTML(r)
		case FormatPDF:
			data, err = s.RenderPDF(r)
		}
		if err != nil {
			return paths, err
		}

		path := filepath.Join(dir, base+"."+f)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return paths, fmt.Errorf("failed to write %s: %w", path, err)
		}
		s.logger.Info().Str("path", path).Str("format", f).Msg("Report exported")
		paths = append(paths, path)
	}
	return paths, nil
}

var unsafeName = regexp.MustCompile(`[^a-z0-9]+`)

// FileBase names export files after the tickers and generation time,
// e.g. "nasdaq-xyz-20261019-143000".
func FileBase(r *models.Report) string {
	name := strings.ToLower(strings.Join(r.Tickers, "-"))
	name = strings.Trim(unsafeName.ReplaceAllString(name, "-"), "-")
	if name == "" {
		name = "report"
	}
	if !r.GeneratedAt.IsZero() {
		name += "-" + r.GeneratedAt.UTC().Format("20060102-150405")
	}
	return name
}
