package core

import (
	"context"
	"errors"
	"strings"
	"testing"

	"inventario/pkg/domain"
)

func newTestTransaction(t *testing.T, s testStores) *SaleTransaction {
	t.Helper()
	tx := NewSaleTransaction(s.tables, s.inventory, s.ledger, NewDefaultRulesEngine(), fixedClock(saleDay))
	tx.newID = func() string { return "receipt-1" }
	return tx
}

func TestSaleTransactionCommit(t *testing.T) {
	s := newTestStores(t, sampleInventory())
	tx := newTestTransaction(t, s)
	ctx := context.Background()

	receipt, err := tx.Commit(ctx, domain.NewCart(
		domain.CartLine{ProductID: 2, Quantity: 2},
		domain.CartLine{ProductID: 1, Quantity: 3},
	))
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if receipt.ID != "receipt-1" || receipt.Date.String() != "2024-03-15" {
		t.Fatalf("unexpected receipt header: %+v", receipt)
	}
	mustEqualDecimal(t, "grand total", dec("670"), receipt.GrandTotal)
	if len(receipt.Lines) != 2 || receipt.Lines[0].ProductID != 2 {
		t.Fatalf("receipt must follow cart order: %+v", receipt.Lines)
	}
	if !strings.Contains(receipt.Details(), "Yerba Mate: 2 unidades x $140.00 = $280.00") {
		t.Fatalf("unexpected details: %s", receipt.Details())
	}

	products, _ := s.inventory.Load(ctx)
	if products[0].Stock != 7 || products[1].Stock != 4 || products[2].Stock != 0 {
		t.Fatalf("unexpected stock after sale: %+v", products)
	}

	records, _ := s.ledger.Load(ctx)
	if len(records) != 2 {
		t.Fatalf("expected 2 ledger rows, got %d", len(records))
	}
	if records[0].ProductID != 2 || records[0].Quantity != 2 || records[0].Name != "Yerba Mate" {
		t.Fatalf("unexpected first record: %+v", records[0])
	}
	mustEqualDecimal(t, "line total", dec("390"), records[1].Total)
	if s.tables.Writes() != 1 {
		t.Fatalf("expected one combined write, got %d", s.tables.Writes())
	}
}

func TestSaleTransactionNameSnapshot(t *testing.T) {
	s := newTestStores(t, sampleInventory())
	tx := newTestTransaction(t, s)
	ctx := context.Background()
	if _, err := tx.Commit(ctx, domain.NewCart(domain.CartLine{ProductID: 1, Quantity: 1})); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if _, err := s.inventory.Edit(ctx, 1, domain.ProductEdit{Name: "Arroz integral", WholesalePrice: dec("100"), Stock: 9, IncrementPercent: dec("30")}); err != nil {
		t.Fatalf("edit: %v", err)
	}
	records, _ := s.ledger.Load(ctx)
	if records[0].Name != "Arroz" {
		t.Fatalf("ledger name must not follow renames, got %q", records[0].Name)
	}
}

func TestSaleTransactionUnknownProductWritesNothing(t *testing.T) {
	s := newTestStores(t, sampleInventory())
	tx := newTestTransaction(t, s)
	_, err := tx.Commit(context.Background(), domain.NewCart(
		domain.CartLine{ProductID: 1, Quantity: 1},
		domain.CartLine{ProductID: 99, Quantity: 1},
	))
	var nf domain.NotFoundError
	if !errors.As(err, &nf) || nf.ID != "99" {
		t.Fatalf("expected product 99 not found, got %v", err)
	}
	if s.tables.Writes() != 0 {
		t.Fatalf("expected no writes, got %d", s.tables.Writes())
	}
}

func TestSaleTransactionBlocksOverselling(t *testing.T) {
	s := newTestStores(t, sampleInventory())
	tx := newTestTransaction(t, s)
	_, err := tx.Commit(context.Background(), domain.NewCart(domain.CartLine{ProductID: 2, Quantity: 7}))
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	var rv domain.RuleViolationError
	if !errors.As(err, &rv) || !strings.Contains(err.Error(), "stock insuficiente (6 disponibles, 7 solicitadas)") {
		t.Fatalf("expected stock rule violation, got %v", err)
	}
	if s.tables.Writes() != 0 {
		t.Fatalf("expected no writes, got %d", s.tables.Writes())
	}
}

func TestSaleTransactionRejectsBadCart(t *testing.T) {
	s := newTestStores(t, sampleInventory())
	tx := newTestTransaction(t, s)
	ctx := context.Background()
	carts := map[string]domain.Cart{
		"empty":    domain.NewCart(),
		"zero":     domain.NewCart(domain.CartLine{ProductID: 1, Quantity: 0}),
		"negative": domain.NewCart(domain.CartLine{ProductID: 1, Quantity: -2}),
	}
	for name, cart := range carts {
		if _, err := tx.Commit(ctx, cart); !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("%s cart: expected validation error, got %v", name, err)
		}
	}
	if s.tables.Writes() != 0 {
		t.Fatalf("expected no writes, got %d", s.tables.Writes())
	}
}

func TestSaleTransactionLowStockWarning(t *testing.T) {
	s := newTestStores(t, sampleInventory())
	tx := newTestTransaction(t, s)
	receipt, err := tx.Commit(context.Background(), domain.NewCart(domain.CartLine{ProductID: 1, Quantity: 6}))
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if len(receipt.Warnings) != 1 || receipt.Warnings[0].Message != "Arroz: quedan 4 unidades" {
		t.Fatalf("expected low stock warning, got %+v", receipt.Warnings)
	}
}

func TestSaleTransactionWithoutRules(t *testing.T) {
	s := newTestStores(t, sampleInventory())
	tx := NewSaleTransaction(s.tables, s.inventory, s.ledger, nil, nil)
	receipt, err := tx.Commit(context.Background(), domain.NewCart(domain.CartLine{ProductID: 1, Quantity: 1}))
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if receipt.ID == "" {
		t.Fatalf("expected generated receipt id")
	}
}
