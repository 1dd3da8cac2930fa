package quotation

import (
	"fmt"
	"io"

	"github.com/phpdave11/gofpdf"
	"github.com/shopspring/decimal"
)

var pdfColumns = []struct {
	title string
	width float64
	align string
}{
	{"#", 10, "C"},
	{"Product", 90, "L"},
	{"Qty", 25, "R"},
	{"Price", 30, "R"},
	{"Total", 35, "R"},
}

// RenderPDF writes q as an A4 document to w. shopName may be empty.
func RenderPDF(w io.Writer, q Quotation, shopName string) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Quotation "+q.QuotationNumber, true)
	pdf.SetMargins(10, 12, 10)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, "Quotation", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	if shopName != "" {
		pdf.CellFormat(0, 6, tr(shopName), "", 1, "L", false, 0, "")
	}
	pdf.CellFormat(0, 6, tr("Number: "+q.QuotationNumber), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, "Date: "+q.QuotationDate, "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(235, 235, 235)
	for _, c := range pdfColumns {
		pdf.CellFormat(c.width, 7, c.title, "1", 0, c.align, true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	for i, l := range q.Products {
		cells := []string{
			fmt.Sprint(i + 1),
			tr(l.Name),
			l.Quantity.String(),
			money(l.Price),
			money(l.Total()),
		}
		for j, c := range pdfColumns {
			pdf.CellFormat(c.width, 7, cells[j], "1", 0, c.align, false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(3)

	t := q.Totals().Rounded()
	summary := []struct {
		label string
		value decimal.Decimal
	}{
		{"Subtotal", t.Subtotal},
		{"Discount", t.DiscountAmount},
		{"Tax", t.TaxAmount},
		{"Total", t.GrandTotal},
	}
	for i, row := range summary {
		if i == len(summary)-1 {
			pdf.SetFont("Helvetica", "B", 11)
		}
		pdf.CellFormat(155, 7, row.label, "", 0, "R", false, 0, "")
		pdf.CellFormat(35, 7, money(row.value), "", 1, "R", false, 0, "")
	}

	if q.QuotationTerms != "" {
		pdf.Ln(6)
		pdf.SetFont("Helvetica", "I", 9)
		pdf.MultiCell(0, 5, tr("Terms: "+q.QuotationTerms), "", "L", false)
	}
	return pdf.Output(w)
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}
