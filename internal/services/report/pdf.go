package report

import (
	"strconv"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/yuin/goldmark/ast"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

const (
	pageWidth  = 180.0 // A4 width minus 15mm margins
	lineHeight = 5.0
)

// pdfRenderer walks a goldmark AST and draws it with fpdf core fonts.
type pdfRenderer struct {
	pdf       *fpdf.Fpdf
	source    []byte
	translate func(string) string
	font      string
	size      float64
	bold      bool
	italic    bool
	listLevel int
	ordinals  []int
}

func (r *pdfRenderer) render(node ast.Node) error {
	if err := ast.Walk(node, r.walk); err != nil {
		return err
	}
	return r.pdf.Error()
}

func (r *pdfRenderer) updateFont() {
	style := ""
	if r.bold {
		style += "B"
	}
	if r.italic {
		style += "I"
	}
	r.pdf.SetFont(r.font, style, r.size)
}

func (r *pdfRenderer) write(s string) {
	r.pdf.Write(lineHeight, r.translate(s))
}

func (r *pdfRenderer) walk(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch node := n.(type) {
	case *ast.Heading:
		r.heading(node, entering)
	case *ast.Paragraph:
		if !entering {
			if r.listLevel == 0 {
				r.pdf.Ln(lineHeight + 2)
			}
		}
	case *ast.TextBlock:
	case *ast.Text:
		if entering {
			r.write(string(node.Segment.Value(r.source)))
			if node.HardLineBreak() {
				r.pdf.Ln(lineHeight)
			} else if node.SoftLineBreak() {
				r.write(" ")
			}
		}
	case *ast.String:
		if entering {
			r.write(string(node.Value))
		}
	case *ast.Emphasis:
		if node.Level == 2 {
			r.bold = entering
		} else {
			r.italic = entering
		}
		r.updateFont()
	case *ast.CodeSpan:
		if entering {
			r.pdf.SetFont("Courier", "", r.size)
			r.write(string(node.Text(r.source)))
			r.updateFont()
		}
		return ast.WalkSkipChildren, nil
	case *ast.FencedCodeBlock:
		if entering {
			r.codeBlock(node.Lines())
		}
		return ast.WalkSkipChildren, nil
	case *ast.CodeBlock:
		if entering {
			r.codeBlock(node.Lines())
		}
		return ast.WalkSkipChildren, nil
	case *ast.Link:
		if entering {
			r.pdf.SetTextColor(20, 70, 160)
		} else {
			r.pdf.SetTextColor(0, 0, 0)
		}
	case *ast.AutoLink:
		if entering {
			r.pdf.SetTextColor(20, 70, 160)
			r.write(string(node.URL(r.source)))
			r.pdf.SetTextColor(0, 0, 0)
		}
		return ast.WalkSkipChildren, nil
	case *ast.List:
		r.list(node, entering)
	case *ast.ListItem:
		if entering {
			r.listItem()
		}
	case *ast.ThematicBreak:
		if entering {
			r.pdf.Ln(2)
			r.pdf.Line(15, r.pdf.GetY(), 15+pageWidth, r.pdf.GetY())
			r.pdf.Ln(2)
		}
	case *extast.Table:
		if entering {
			r.table(node)
		}
		return ast.WalkSkipChildren, nil
	}
	return ast.WalkContinue, nil
}

func (r *pdfRenderer) heading(n *ast.Heading, entering bool) {
	if !entering {
		r.pdf.Ln(lineHeight + 2)
		r.updateFont()
		return
	}

	size := 10.0
	switch n.Level {
	case 1:
		size = 15
	case 2:
		size = 12
	case 3:
		size = 11
	}
	r.pdf.Ln(3)
	r.pdf.SetFont(r.font, "B", size)
}

func (r *pdfRenderer) codeBlock(lines *text.Segments) {
	r.pdf.Ln(2)
	r.pdf.SetFont("Courier", "", 8)
	r.pdf.SetFillColor(245, 245, 245)
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		txt := strings.TrimRight(string(line.Value(r.source)), "\n")
		r.pdf.MultiCell(0, 4, r.translate(txt), "", "L", true)
	}
	r.pdf.SetFillColor(255, 255, 255)
	r.updateFont()
	r.pdf.Ln(2)
}

func (r *pdfRenderer) list(n *ast.List, entering bool) {
	if entering {
		r.listLevel++
		start := 0
		if n.IsOrdered() {
			start = n.Start
		}
		r.ordinals = append(r.ordinals, start)
		return
	}

	r.listLevel--
	r.ordinals = r.ordinals[:len(r.ordinals)-1]
	if r.listLevel == 0 {
		r.pdf.Ln(lineHeight + 2)
	}
}

func (r *pdfRenderer) listItem() {
	r.pdf.Ln(lineHeight)
	r.pdf.SetX(15 + float64(r.listLevel)*5)

	last := len(r.ordinals) - 1
	if last >= 0 && r.ordinals[last] > 0 {
		r.write(strconv.Itoa(r.ordinals[last]) + ". ")
		r.ordinals[last]++
		return
	}
	r.write("- ")
}

func (r *pdfRenderer) table(n *extast.Table) {
	var rows [][]string
	for row := n.FirstChild(); row != nil; row = row.NextSibling() {
		var cells []string
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			cells = append(cells, r.translate(strings.TrimSpace(string(cell.Text(r.source)))))
		}
		rows = append(rows, cells)
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return
	}

	const fontSize, cellHeight = 8.0, 5.0
	cols := len(rows[0])
	widths := r.columnWidths(rows, cols, fontSize)

	r.pdf.Ln(2)
	for i, row := range rows {
		if i == 0 {
			r.pdf.SetFont(r.font, "B", fontSize)
			r.pdf.SetFillColor(230, 230, 230)
		} else {
			r.pdf.SetFont(r.font, "", fontSize)
		}
		for j := 0; j < cols; j++ {
			cell := ""
			if j < len(row) {
				cell = fitText(r.pdf, row[j], widths[j]-2)
			}
			r.pdf.CellFormat(widths[j], cellHeight, cell, "1", 0, "L", i == 0, 0, "")
		}
		r.pdf.Ln(cellHeight)
	}
	r.pdf.SetFillColor(255, 255, 255)
	r.updateFont()
	r.pdf.Ln(3)
}

// columnWidths sizes columns to their widest cell, scaled to fit the page.
func (r *pdfRenderer) columnWidths(rows [][]string, cols int, fontSize float64) []float64 {
	widths := make([]float64, cols)
	r.pdf.SetFont(r.font, "B", fontSize)
	for _, row := range rows {
		for j := 0; j < cols && j < len(row); j++ {
			if w := r.pdf.GetStringWidth(row[j]) + 4; w > widths[j] {
				widths[j] = w
			}
		}
	}

	total := 0.0
	for j := range widths {
		if widths[j] < 12 {
			widths[j] = 12
		}
		total += widths[j]
	}
	if total > pageWidth {
		scale := pageWidth / total
		for j := range widths {
			widths[j] *= scale
		}
	}
	return widths
}

// fitText truncates s with an ellipsis so it fits within width.
func fitText(pdf *fpdf.Fpdf, s string, width float64) string {
	if pdf.GetStringWidth(s) <= width {
		return s
	}
	for len(s) > 0 && pdf.GetStringWidth(s+"...") > width {
		s = s[:len(s)-1]
	}
	return s + "..."
}
