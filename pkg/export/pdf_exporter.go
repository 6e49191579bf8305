package export

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"github.com/jung-kurt/gofpdf"
)

const (
	pdfMargin       = 10.0
	pdfRowHeight    = 6.0
	pdfLandscapeMin = 6
	pdfMinColWidth  = 14.0
)

// PDFExporter lays a dataset out as a bordered table. Wide tables switch to
// landscape and the header row repeats on every page.
type PDFExporter struct{}

func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

func (e *PDFExporter) Render(data Dataset, title string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf: %w", errNoColumns)
	}

	orientation := "P"
	if len(data.Headers) > pdfLandscapeMin {
		orientation = "L"
	}
	pdf := gofpdf.New(orientation, "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AliasNbPages("")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageWidth, _ := pdf.GetPageSize()
	widths := columnWidths(data, pageWidth-2*pdfMargin)

	pdf.SetHeaderFunc(func() {
		if pdf.PageNo() == 1 && title != "" {
			pdf.SetFont("Arial", "B", 13)
			pdf.CellFormat(0, 9, tr(title), "", 1, "L", false, 0, "")
			pdf.Ln(2)
		}
		pdf.SetFont("Arial", "B", 8)
		pdf.SetFillColor(230, 230, 230)
		for i, header := range data.Headers {
			pdf.CellFormat(widths[i], pdfRowHeight+1, tr(header), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 8)
	})
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Arial", "I", 7)
		pdf.CellFormat(0, 5, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "R", false, 0, "")
	})

	pdf.AddPage()
	for i := range data.Rows {
		for col, cell := range data.Record(i) {
			pdf.CellFormat(widths[col], pdfRowHeight, tr(fit(pdf, cell, widths[col])), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf output: %w", err)
	}
	return buf.Bytes(), nil
}

// columnWidths shares the usable width in proportion to the longest cell
// of each column, with a floor so short columns stay readable.
func columnWidths(data Dataset, usable float64) []float64 {
	weights := make([]float64, len(data.Headers))
	total := 0.0
	for col, header := range data.Headers {
		longest := utf8.RuneCountInString(header)
		for _, row := range data.Rows {
			if n := utf8.RuneCountInString(row[header]); n > longest {
				longest = n
			}
		}
		if longest > 40 {
			longest = 40
		}
		weights[col] = float64(longest) + 2
		total += weights[col]
	}

	widths := make([]float64, len(weights))
	for col, w := range weights {
		widths[col] = usable * w / total
		if widths[col] < pdfMinColWidth {
			widths[col] = pdfMinColWidth
		}
	}
	return widths
}

// fit truncates text that would overflow its cell.
func fit(pdf *gofpdf.Fpdf, text string, width float64) string {
	if pdf.GetStringWidth(text) <= width-2 {
		return text
	}
	runes := []rune(text)
	for len(runes) > 0 && pdf.GetStringWidth(string(runes)+"...") > width-2 {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}
