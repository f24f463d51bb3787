package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// PDFHeader carries the facility letterhead printed above the table.
type PDFHeader struct {
	Title    string
	Subtitle string
	Facility string
	Printed  time.Time
}

// PDFExporter renders datasets into a tabular attendance sheet.
type PDFExporter struct {
	Landscape bool
}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{Landscape: true}
}

// Render creates a PDF document with the header block and table body.
func (e *PDFExporter) Render(data Dataset, header PDFHeader) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	orientation, usable := "P", 190.0
	if e.Landscape {
		orientation, usable = "L", 277.0
	}
	pdf := gofpdf.New(orientation, "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(10, 15, 10)
	pdf.SetAutoPageBreak(true, 15)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Arial", "I", 8)
		pdf.CellFormat(0, 8, fmt.Sprintf("%d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AliasNbPages("")
	pdf.AddPage()

	if header.Facility != "" {
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(0, 7, tr(header.Facility), "", 1, "L", false, 0, "")
	}
	if header.Title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, tr(strings.ToUpper(header.Title)), "", 1, "C", false, 0, "")
	}
	if header.Subtitle != "" {
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 6, tr(header.Subtitle), "", 1, "C", false, 0, "")
	}
	if !header.Printed.IsZero() {
		pdf.SetFont("Arial", "", 8)
		pdf.CellFormat(0, 5, tr("Generado: "+header.Printed.Format("02/01/2006 15:04")), "", 1, "R", false, 0, "")
	}
	pdf.Ln(3)

	colWidth := usable / float64(len(data.Headers))
	printHeaders := func() {
		pdf.SetFont("Arial", "B", 9)
		pdf.SetFillColor(230, 230, 230)
		for _, h := range data.Headers {
			pdf.CellFormat(colWidth, 8, tr(h), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 8)
	}
	printHeaders()

	_, pageHeight := pdf.GetPageSize()
	for _, row := range data.Rows {
		if pdf.GetY()+7 > pageHeight-15 {
			pdf.AddPage()
			printHeaders()
		}
		for _, h := range data.Headers {
			pdf.CellFormat(colWidth, 7, tr(truncate(row[h], 48)), "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}
	if len(data.Rows) == 0 {
		pdf.SetFont("Arial", "I", 9)
		pdf.CellFormat(usable, 8, tr("Sin registros"), "1", 1, "C", false, 0, "")
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func truncate(value string, max int) string {
	runes := []rune(value)
	if len(runes) <= max {
		return value
	}
	return string(runes[:max-1]) + "…"
}
