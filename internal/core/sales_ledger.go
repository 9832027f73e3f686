package core

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"inventario/pkg/domain"
)

// SalesLedger owns the append-only sales table.
type SalesLedger struct {
	tables domain.TableStore
}

// NewSalesLedger binds the ledger to a table backend.
func NewSalesLedger(tables domain.TableStore) *SalesLedger {
	return &SalesLedger{tables: tables}
}

// Load returns every record in table order, creating an empty table on first access.
func (l *SalesLedger) Load(ctx context.Context) ([]domain.SaleRecord, error) {
	t, err := l.table(ctx)
	if err != nil {
		return nil, err
	}
	return salesFromTable(t)
}

// Append adds records after the existing rows. Existing rows are written back
// untouched.
func (l *SalesLedger) Append(ctx context.Context, records ...domain.SaleRecord) error {
	for _, r := range records {
		if err := validateSale(r); err != nil {
			return err
		}
	}
	t, err := l.table(ctx)
	if err != nil {
		return err
	}
	return l.tables.WriteTables(ctx, appendSales(t, records))
}

// TotalsForDate returns the records of a single day with their summed totals.
// A day without sales yields an empty DailySales, not an error.
func (l *SalesLedger) TotalsForDate(ctx context.Context, date domain.Date) (domain.DailySales, error) {
	records, err := l.Load(ctx)
	if err != nil {
		return domain.DailySales{}, err
	}
	return dailyTotals(records, date), nil
}

// table reads the raw sales table, writing an empty one when it does not exist yet.
func (l *SalesLedger) table(ctx context.Context) (domain.Table, error) {
	t, err := l.tables.ReadTable(ctx, domain.TableSales)
	if errors.Is(err, domain.ErrTableNotFound) {
		t = emptySalesTable()
		if err := l.tables.WriteTables(ctx, t); err != nil {
			return domain.Table{}, err
		}
		return t, nil
	}
	return t, err
}

// readOrEmpty is table without the first-access write, used when the caller
// persists the result itself.
func (l *SalesLedger) readOrEmpty(ctx context.Context) (domain.Table, error) {
	t, err := l.tables.ReadTable(ctx, domain.TableSales)
	if errors.Is(err, domain.ErrTableNotFound) {
		return emptySalesTable(), nil
	}
	return t, err
}

func emptySalesTable() domain.Table {
	return domain.Table{Name: domain.TableSales, Columns: append([]string(nil), domain.SalesColumns...), Rows: [][]string{}}
}

func validateSale(r domain.SaleRecord) error {
	if r.Quantity <= 0 {
		return domain.ValidationError{Field: "cantidad", Value: formatInt(r.Quantity), Reason: "must be positive"}
	}
	if r.Date.IsZero() {
		return domain.ValidationError{Field: "fecha", Reason: "date required"}
	}
	return nil
}

func salesFromTable(t domain.Table) ([]domain.SaleRecord, error) {
	if len(t.Columns) == 0 {
		return []domain.SaleRecord{}, nil
	}
	idx, err := columnIndex(t, domain.SalesColumns...)
	if err != nil {
		return nil, err
	}
	records := make([]domain.SaleRecord, 0, len(t.Rows))
	for i, row := range t.Rows {
		if blankRow(row) {
			continue
		}
		var r domain.SaleRecord
		if r.Date, err = domain.ParseDate(cell(row, idx["fecha"])); err != nil {
			return nil, rowError(t.Name, i, domain.ValidationError{Field: "fecha", Value: cell(row, idx["fecha"]), Reason: "expected YYYY-MM-DD"})
		}
		if r.ProductID, err = parseInt("id_producto", cell(row, idx["id_producto"])); err != nil {
			return nil, rowError(t.Name, i, err)
		}
		r.Name = cell(row, idx["nombre"])
		if r.Quantity, err = parseInt("cantidad", cell(row, idx["cantidad"])); err != nil {
			return nil, rowError(t.Name, i, err)
		}
		if r.Total, err = parseDecimal("total", cell(row, idx["total"])); err != nil {
			return nil, rowError(t.Name, i, err)
		}
		records = append(records, r)
	}
	return records, nil
}

// appendSales returns a copy of t with records added in SalesColumns order.
// A table read back without columns gets the canonical header.
func appendSales(t domain.Table, records []domain.SaleRecord) domain.Table {
	out := t.Clone()
	if len(out.Columns) == 0 {
		out.Columns = append([]string(nil), domain.SalesColumns...)
	}
	for _, r := range records {
		row := make([]string, len(out.Columns))
		set := func(col, v string) {
			if i := out.Index(col); i >= 0 {
				row[i] = v
			}
		}
		set("fecha", r.Date.String())
		set("id_producto", formatInt(r.ProductID))
		set("nombre", r.Name)
		set("cantidad", formatInt(r.Quantity))
		set("total", formatDecimal(r.Total))
		out.Rows = append(out.Rows, row)
	}
	return out
}

func dailyTotals(records []domain.SaleRecord, date domain.Date) domain.DailySales {
	day := domain.DailySales{Date: date, Records: []domain.SaleRecord{}, Total: decimal.Zero}
	for _, r := range records {
		if r.Date != date {
			continue
		}
		day.Records = append(day.Records, r)
		day.Total = day.Total.Add(r.Total)
		day.Units += r.Quantity
	}
	return day
}
