package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"inventario/pkg/domain"
)

// Sheet names used by the exported workbooks.
const (
	InventorySheet = "Inventario"
	SalesSheet     = "Ventas"
)

// headerSearchRows bounds how far down ImportInventoryXLSX looks for the header row.
const headerSearchRows = 10

// ExportInventoryXLSX writes products to a single-sheet workbook using the
// persisted column names as header.
func ExportInventoryXLSX(w io.Writer, products []domain.Product) error {
	rows := make([][]any, 0, len(products))
	for _, p := range products {
		rows = append(rows, []any{
			p.ID,
			p.Name,
			p.WholesalePrice.InexactFloat64(),
			p.Stock,
			p.IncrementPercent.InexactFloat64(),
			p.SalePrice.InexactFloat64(),
		})
	}
	return writeWorkbook(w, InventorySheet, domain.InventoryColumns, rows)
}

// ExportSalesXLSX writes ledger records to a single-sheet workbook.
func ExportSalesXLSX(w io.Writer, records []domain.SaleRecord) error {
	rows := make([][]any, 0, len(records))
	for _, r := range records {
		rows = append(rows, []any{
			r.Date.String(),
			r.ProductID,
			r.Name,
			r.Quantity,
			r.Total.InexactFloat64(),
		})
	}
	return writeWorkbook(w, SalesSheet, domain.SalesColumns, rows)
}

func writeWorkbook(w io.Writer, sheet string, header []string, rows [][]any) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return &domain.IOError{Op: "build workbook", Err: err}
	}
	head := make([]any, len(header))
	for i, h := range header {
		head[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &head); err != nil {
		return &domain.IOError{Op: "build workbook", Err: err}
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return &domain.IOError{Op: "build workbook", Err: err}
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return &domain.IOError{Op: "build workbook", Err: err}
		}
	}
	if err := f.Write(w); err != nil {
		return &domain.IOError{Op: "write workbook", Err: err}
	}
	return nil
}

// InventoryRow holds the trimmed cells of one imported inventory row.
// Increment is empty when the sheet has no porcentaje_incremento column.
type InventoryRow struct {
	ID        string
	Name      string
	Price     string
	Stock     string
	Increment string
}

// RowParser validates an imported row and prices the product.
type RowParser func(InventoryRow) (domain.Product, error)

// ImportInventoryXLSX reads products from the first sheet of a workbook. The
// header row is the first row, within the top rows, that has an id_producto
// cell; title rows above it are skipped. Every data row goes through parse.
func ImportInventoryXLSX(r io.Reader, parse RowParser) ([]domain.Product, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, &domain.IOError{Op: "open workbook", Err: err}
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, domain.ValidationError{Field: "workbook", Reason: "no sheets"}
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, &domain.IOError{Op: "read sheet", Path: sheets[0], Err: err}
	}

	headerRow, cols := findHeader(rows)
	if headerRow < 0 {
		return nil, domain.ValidationError{Field: "workbook", Reason: "header row with id_producto not found"}
	}
	for _, required := range []string{"id_producto", "nombre", "precio", "stock"} {
		if _, ok := cols[required]; !ok {
			return nil, domain.ValidationError{Field: "workbook", Value: required, Reason: "missing column"}
		}
	}

	var products []domain.Product
	for i := headerRow + 1; i < len(rows); i++ {
		row := rows[i]
		get := func(col string) string {
			j, ok := cols[col]
			if !ok || j >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[j])
		}
		if get("id_producto") == "" && get("nombre") == "" {
			continue
		}
		p, err := parse(InventoryRow{
			ID:        get("id_producto"),
			Name:      get("nombre"),
			Price:     get("precio"),
			Stock:     get("stock"),
			Increment: get("porcentaje_incremento"),
		})
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", sheets[0], i+1, err)
		}
		products = append(products, p)
	}
	return products, nil
}

func findHeader(rows [][]string) (int, map[string]int) {
	for i := 0; i < len(rows) && i < headerSearchRows; i++ {
		cols := make(map[string]int, len(rows[i]))
		for j, c := range rows[i] {
			cols[strings.ToLower(strings.TrimSpace(c))] = j
		}
		if _, ok := cols["id_producto"]; ok {
			return i, cols
		}
	}
	return -1, nil
}
