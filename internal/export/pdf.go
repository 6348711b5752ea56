package export

import (
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/phpdave11/gofpdf"
)

// ToPDF writes a landscape A4 table report.
func ToPDF(t Table, path string) error {
	if len(t.Rows) == 0 {
		return ErrEmpty
	}
	cols := t.Cols()

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetTitle(t.Label, true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, tr(t.Label))
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 9)
	pdf.Cell(0, 6, tr(fmt.Sprintf("Exportado %s · %d registros", time.Now().Format("02/01/2006 15:04"), len(t.Rows))))
	pdf.Ln(10)

	pageW, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	w := (pageW - left - right) / float64(len(cols))

	header := func() {
		pdf.SetFont("Helvetica", "B", 9)
		pdf.SetFillColor(0x44, 0x72, 0xC4)
		pdf.SetTextColor(255, 255, 255)
		for _, c := range cols {
			pdf.CellFormat(w, 7, clip(pdf, tr(c.Label), w), "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 8)
		pdf.SetTextColor(0, 0, 0)
	}
	header()

	_, pageH := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	for _, row := range t.Rows {
		if pdf.GetY()+6 > pageH-bottom {
			pdf.AddPage()
			header()
		}
		for _, c := range cols {
			pdf.CellFormat(w, 6, clip(pdf, tr(t.Cell(row, c)), w), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	if err := pdf.OutputFileAndClose(path); err != nil {
		return errors.Wrap(err, "write pdf")
	}
	return nil
}

// clip shortens s until it fits in width w at the current font. s must
// already be translated to the font's single-byte encoding.
func clip(pdf *gofpdf.Fpdf, s string, w float64) string {
	for len(s) > 0 && pdf.GetStringWidth(s) > w-2 {
		s = s[:len(s)-1]
	}
	return s
}
