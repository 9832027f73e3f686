package core

import (
	"context"
	"errors"
	"testing"

	"inventario/pkg/domain"
)

func salesSeed(rows ...[]string) domain.Table {
	return domain.Table{Name: domain.TableSales, Columns: append([]string(nil), domain.SalesColumns...), Rows: rows}
}

func TestSalesLedgerLoadCreatesEmptyTable(t *testing.T) {
	s := newTestStores(t)
	ctx := context.Background()
	records, err := s.ledger.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected no records, got %d", len(records))
	}
	tbl, err := s.tables.ReadTable(ctx, domain.TableSales)
	if err != nil {
		t.Fatalf("sales table not created: %v", err)
	}
	if len(tbl.Columns) != len(domain.SalesColumns) || len(tbl.Rows) != 0 {
		t.Fatalf("unexpected empty sales table: %+v", tbl)
	}
}

func TestSalesLedgerAppendKeepsExistingRows(t *testing.T) {
	s := newTestStores(t, salesSeed([]string{"2024-03-14", "1", "Arroz viejo", "2", "260"}))
	ctx := context.Background()
	day, _ := domain.ParseDate("2024-03-15")
	if err := s.ledger.Append(ctx, domain.SaleRecord{Date: day, ProductID: 2, Name: "Yerba", Quantity: 1, Total: dec("140")}); err != nil {
		t.Fatalf("append: %v", err)
	}
	records, err := s.ledger.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Name != "Arroz viejo" || records[1].Name != "Yerba" {
		t.Fatalf("unexpected order: %+v", records)
	}
}

func TestSalesLedgerAppendValidates(t *testing.T) {
	s := newTestStores(t)
	ctx := context.Background()
	day, _ := domain.ParseDate("2024-03-15")
	cases := []domain.SaleRecord{
		{Date: day, ProductID: 1, Quantity: 0, Total: dec("0")},
		{ProductID: 1, Quantity: 1, Total: dec("10")},
	}
	for _, r := range cases {
		if err := s.ledger.Append(ctx, r); !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("expected validation error for %+v, got %v", r, err)
		}
	}
	if s.tables.Writes() != 0 {
		t.Fatalf("expected no writes, got %d", s.tables.Writes())
	}
}

func TestSalesLedgerTotalsForDate(t *testing.T) {
	s := newTestStores(t, salesSeed(
		[]string{"2024-03-14", "1", "Arroz", "2", "260"},
		[]string{"2024-03-15", "1", "Arroz", "1", "130"},
		[]string{"2024-03-15", "2", "Yerba", "3", "420.50"},
	))
	ctx := context.Background()
	day, _ := domain.ParseDate("2024-03-15")
	totals, err := s.ledger.TotalsForDate(ctx, day)
	if err != nil {
		t.Fatalf("totals: %v", err)
	}
	if len(totals.Records) != 2 || totals.Units != 4 {
		t.Fatalf("unexpected totals: %+v", totals)
	}
	mustEqualDecimal(t, "daily total", dec("550.50"), totals.Total)

	lines := totals.Lines()
	if lines[0] != "Arroz: 1 unidades x $130.00 = $130.00" {
		t.Fatalf("unexpected line: %q", lines[0])
	}

	empty, _ := domain.ParseDate("2024-01-01")
	none, err := s.ledger.TotalsForDate(ctx, empty)
	if err != nil {
		t.Fatalf("totals for empty day: %v", err)
	}
	if !none.Empty() || !none.Total.IsZero() {
		t.Fatalf("expected empty day, got %+v", none)
	}
}

func TestSalesLedgerRejectsBadDate(t *testing.T) {
	s := newTestStores(t, salesSeed([]string{"15/03/2024", "1", "Arroz", "1", "130"}))
	if _, err := s.ledger.Load(context.Background()); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
