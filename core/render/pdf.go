package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/gaurav-prasanna/mdbatch/core"
	"github.com/jung-kurt/gofpdf"
)

// headingSizes maps heading level to font size in points.
var headingSizes = map[int]float64{1: 18, 2: 15, 3: 13, 4: 12, 5: 11, 6: 10}

// PDFEncoder lays out the document outline as a simple A4 PDF.
// Images are listed by reference, not embedded.
type PDFEncoder struct{}

// NewPDFEncoder creates a PDFEncoder.
func NewPDFEncoder() *PDFEncoder {
	return &PDFEncoder{}
}

// Encode renders doc into PDF bytes.
func (e *PDFEncoder) Encode(doc core.Document) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	if doc.Meta.Title != "" {
		pdf.SetFont("Helvetica", "B", 18)
		pdf.MultiCell(0, 8, tr(doc.Meta.Title), "", "L", false)
		pdf.Ln(4)
	}
	if doc.Meta.URL != "" {
		pdf.SetFont("Helvetica", "I", 9)
		pdf.SetTextColor(100, 100, 100)
		pdf.MultiCell(0, 5, tr("Source: "+doc.Meta.URL), "", "L", false)
		pdf.SetTextColor(0, 0, 0)
		pdf.Ln(6)
	}

	outline := ParseOutline(doc.Markdown)
	for _, block := range outline.Blocks {
		writeBlock(pdf, block, tr)
	}

	if len(outline.Images) > 0 {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "B", 11)
		pdf.MultiCell(0, 6, "Images", "", "L", false)
		pdf.SetFont("Helvetica", "", 9)
		for _, img := range outline.Images {
			pdf.MultiCell(0, 4.5, tr(img.Text+" - "+img.Href), "", "L", false)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("writing PDF: %w", err)
	}
	return buf.Bytes(), nil
}

// Extension returns the file extension for PDF output.
func (e *PDFEncoder) Extension() string {
	return ".pdf"
}

func writeBlock(pdf *gofpdf.Fpdf, block Block, tr func(string) string) {
	switch block.Kind {
	case BlockHeading:
		size, ok := headingSizes[block.Level]
		if !ok {
			size = 10
		}
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "B", size)
		pdf.MultiCell(0, size*0.6, tr(block.Text), "", "L", false)
		pdf.Ln(2)
	case BlockListItem:
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, 5, tr("- "+block.Text), "", "L", false)
	case BlockQuote:
		pdf.SetFont("Helvetica", "I", 10)
		pdf.SetLeftMargin(18)
		pdf.SetX(18)
		pdf.MultiCell(0, 5, tr(block.Text), "", "L", false)
		pdf.SetLeftMargin(10)
		pdf.Ln(2)
	case BlockCode:
		pdf.Ln(2)
		pdf.SetFont("Courier", "", 9)
		pdf.SetFillColor(245, 245, 245)
		for _, line := range strings.Split(block.Text, "\n") {
			pdf.MultiCell(0, 4.5, tr(line), "", "L", true)
		}
		pdf.Ln(2)
	default:
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, 5, tr(block.Text), "", "L", false)
		pdf.Ln(2)
	}
}
