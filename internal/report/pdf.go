// Package report renders daily sales and the inventory into PDF and
// spreadsheet documents, and reads inventory spreadsheets back.
package report

import (
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"

	"inventario/pkg/domain"
)

// DailySalesPDF writes the sales of one day as an A4 PDF: a title, the day's
// totals and one table row per sale.
func DailySalesPDF(w io.Writer, day domain.DailySales) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Ventas del "+day.Date.String(), true)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, tr("Registro de ventas diarias"), "", 1, "C", false, 0, "")
	pdf.Ln(5)

	pdf.SetFont("Arial", "", 12)
	pdf.CellFormat(0, 8, tr("Fecha: "+day.Date.String()), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 8, fmt.Sprintf("Unidades vendidas: %d", day.Units), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 8, tr("Total del día: $"+day.Total.StringFixed(2)), "", 1, "L", false, 0, "")
	pdf.Ln(5)

	if day.Empty() {
		pdf.CellFormat(0, 10, tr("Sin ventas registradas."), "", 1, "L", false, 0, "")
		return output(pdf, w)
	}

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(20, 10, "ID", "1", 0, "C", false, 0, "")
	pdf.CellFormat(70, 10, "Producto", "1", 0, "C", false, 0, "")
	pdf.CellFormat(25, 10, "Cantidad", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 10, "Precio", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 10, "Total", "1", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "", 12)
	for _, r := range day.Records {
		pdf.CellFormat(20, 10, fmt.Sprintf("%d", r.ProductID), "1", 0, "C", false, 0, "")
		pdf.CellFormat(70, 10, tr(r.Name), "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, 10, fmt.Sprintf("%d", r.Quantity), "1", 0, "C", false, 0, "")
		pdf.CellFormat(35, 10, "$"+r.UnitPrice().StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 10, "$"+r.Total.StringFixed(2), "1", 1, "R", false, 0, "")
	}
	return output(pdf, w)
}

func output(pdf *gofpdf.Fpdf, w io.Writer) error {
	if err := pdf.Output(w); err != nil {
		return &domain.IOError{Op: "render pdf", Err: err}
	}
	return nil
}
