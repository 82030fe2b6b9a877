package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// Branding contract for the table header: dark navy fill, light gold
// text.
const (
	headerFillR, headerFillG, headerFillB = 1, 1, 50
	headerTextR, headerTextG, headerTextB = 238, 212, 132
)

// Column widths in mm, summing to the printable width of an A4 page
// with 10mm side margins.
var columnWidths = []float64{22, 60, 28, 32, 18, 15, 15}

// PDFExporter renders transcripts into paginated PDF documents.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render lays out the transcript: centered title, student info block,
// the record table, and the aggregate summary after the table. Every
// page carries the draft disclaimer and a "Page X of Y" marker.
func (e *PDFExporter) Render(doc Transcript) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.SetAutoPageBreak(true, 28)
	pdf.AliasNbPages("")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-24)
		pdf.SetTextColor(0, 0, 0)
		pdf.SetFont("Arial", "I", 8)
		pdf.MultiCell(0, 4, Disclaimer, "", "L", false)
		pdf.SetFont("Arial", "", 8)
		pdf.CellFormat(0, 4, fmt.Sprintf("Page %d of {nb}", pdf.PageNo()), "", 0, "R", false, 0, "")
	})

	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 10, doc.Title, "", 1, "C", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Arial", "", 10)
	for _, line := range doc.InfoLines {
		pdf.CellFormat(0, 6, line, "", 1, "L", false, 0, "")
	}
	pdf.Ln(3)

	e.renderHeader(pdf)

	pdf.SetFont("Arial", "", 9)
	pdf.SetTextColor(0, 0, 0)
	for _, row := range doc.Rows {
		cells := doc.cells(row)
		for i, value := range cells {
			pdf.CellFormat(columnWidths[i], 7, value, "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	pdf.Ln(4)
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(0, 7, fmt.Sprintf("CGPA: %s", doc.CGPA), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 7, fmt.Sprintf("Credit completed: %s", doc.CreditCompleted), "", 1, "L", false, 0, "")
	if doc.PreparedBy != "" {
		pdf.SetFont("Arial", "", 9)
		pdf.CellFormat(0, 6, fmt.Sprintf("Prepared by: %s", doc.PreparedBy), "", 1, "L", false, 0, "")
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *PDFExporter) renderHeader(pdf *gofpdf.Fpdf) {
	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(headerFillR, headerFillG, headerFillB)
	pdf.SetTextColor(headerTextR, headerTextG, headerTextB)
	for i, header := range TranscriptColumns {
		pdf.CellFormat(columnWidths[i], 8, header, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)
}
