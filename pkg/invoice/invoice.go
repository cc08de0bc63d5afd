// Package invoice renders order bills as PDF, one page per order.
package invoice

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

// Document is one order bill. Amounts are printed as stored, never recomputed.
type Document struct {
	OrderNumber  string
	CustomerName string
	Date         time.Time
	Status       string
	Lines        []Line
	Total        decimal.Decimal
}

type Line struct {
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
	TaxAmount   decimal.Decimal
	Total       decimal.Decimal
}

var ErrNoDocuments = errors.New("no documents to render")

var columns = []struct {
	title string
	width float64
	align string
}{
	{"Product", 80, "L"},
	{"Qty", 20, "C"},
	{"Unit Price", 30, "R"},
	{"Tax", 25, "R"},
	{"Total", 35, "R"},
}

// Render writes a PDF with one page per document.
func Render(w io.Writer, storeName string, docs []Document) error {
	if len(docs) == 0 {
		return ErrNoDocuments
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(storeName+" invoices", true)
	pdf.SetCreator(storeName, true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	for _, doc := range docs {
		renderPage(pdf, tr, storeName, doc)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to write invoice pdf: %w", err)
	}
	return nil
}

func renderPage(pdf *fpdf.Fpdf, tr func(string) string, storeName string, doc Document) {
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(0, 12, tr(storeName), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(0, 7, tr("Order Number: "+doc.OrderNumber), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 7, tr("Customer: "+doc.CustomerName), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 7, "Order Date: "+doc.Date.Format("2006-01-02 15:04"), "", 1, "L", false, 0, "")
	if doc.Status != "" {
		pdf.CellFormat(0, 7, "Status: "+doc.Status, "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetFillColor(230, 230, 230)
	for _, c := range columns {
		pdf.CellFormat(c.width, 8, c.title, "1", 0, c.align, true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 11)
	for _, l := range doc.Lines {
		cells := []string{
			tr(l.ProductName),
			fmt.Sprintf("%d", l.Quantity),
			l.UnitPrice.StringFixed(2),
			l.TaxAmount.StringFixed(2),
			l.Total.StringFixed(2),
		}
		for i, c := range columns {
			pdf.CellFormat(c.width, 8, cells[i], "1", 0, c.align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 10, "Grand Total: "+doc.Total.StringFixed(2), "", 1, "R", false, 0, "")
}
