package receipt

import (
	"io"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/Shreyas-sv10/Shop2/internal/view"
)

// The core PDF fonts have no rupee glyph.
var pdfCurrency = strings.NewReplacer(view.CurrencySymbol, "Rs. ")

// PDFRenderer prints an A5 bill using the core Helvetica font.
type PDFRenderer struct{}

func (PDFRenderer) ContentType() string { return "application/pdf" }

func (PDFRenderer) Render(w io.Writer, bill view.BillView) error {
	footer, err := FooterText(bill.FooterMarkdown)
	if err != nil {
		return err
	}

	pdf := gofpdf.New("P", "mm", "A5", "")
	pdf.SetTitle(bill.Heading, true)
	pdf.SetCreationDate(bill.IssuedAt)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	text := func(s string) string { return tr(pdfCurrency.Replace(s)) }

	pdf.AddPage()
	width, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	content := width - left - right

	if bill.Store.Name != "" {
		pdf.SetFont("Helvetica", "B", 14)
		pdf.CellFormat(content, 8, text(bill.Store.Name), "", 1, "C", false, 0, "")
	}
	if bill.Store.Address != "" {
		pdf.SetFont("Helvetica", "", 9)
		pdf.CellFormat(content, 5, text(bill.Store.Address), "", 1, "C", false, 0, "")
	}
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(content, 7, text(bill.Heading), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	if bill.Phone != "" {
		pdf.CellFormat(content, 6, text("Phone: "+bill.Phone), "", 1, "L", false, 0, "")
	}
	pdf.CellFormat(content, 6, text(bill.DateLine), "B", 1, "L", false, 0, "")
	pdf.Ln(1)

	for _, line := range bill.Lines {
		pdf.CellFormat(content*0.7, 6, text(line.Name+" ("+line.DisplayQuantity+")"), "", 0, "L", false, 0, "")
		pdf.CellFormat(content*0.3, 6, text(line.Amount), "", 1, "R", false, 0, "")
	}

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(content, 8, text(bill.TotalLine), "T", 1, "R", false, 0, "")

	if len(footer) > 0 {
		pdf.Ln(3)
		pdf.SetFont("Helvetica", "I", 9)
		for _, line := range footer {
			pdf.MultiCell(content, 5, text(line), "", "C", false)
		}
	}

	return pdf.Output(w)
}
