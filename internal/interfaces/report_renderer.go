package interfaces

import "github.com/ternarybob/analyst/internal/models"

// ReportRenderer converts a compiled report into export formats
type ReportRenderer interface {
	// RenderHTML converts the report markdown to a standalone HTML document
	RenderHTML(report *models.Report) ([]byte, error)

	// RenderPDF converts the report markdown to a PDF document
	RenderPDF(report *models.Report) ([]byte, error)
}
