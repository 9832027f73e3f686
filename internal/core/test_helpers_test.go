package core

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"inventario/internal/infra/persistence/memory"
	"inventario/pkg/domain"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func fixedClock(t time.Time) ClockFunc {
	return func() time.Time { return t }
}

var saleDay = time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC)

type testStores struct {
	tables    *memory.Store
	config    *ConfigStore
	inventory *InventoryStore
	ledger    *SalesLedger
}

func newTestStores(t *testing.T, seed ...domain.Table) testStores {
	t.Helper()
	tables := memory.NewStore(seed...)
	config := NewConfigStore(tables)
	return testStores{
		tables:    tables,
		config:    config,
		inventory: NewInventoryStore(tables, config),
		ledger:    NewSalesLedger(tables),
	}
}

func inventorySeed(rows ...[]string) domain.Table {
	return domain.Table{Name: domain.TableInventory, Columns: append([]string(nil), domain.InventoryColumns...), Rows: rows}
}

func configSeed(rows ...[]string) domain.Table {
	return domain.Table{Name: domain.TableConfig, Columns: append([]string(nil), domain.ConfigColumns...), Rows: rows}
}

func sampleInventory() domain.Table {
	return inventorySeed(
		[]string{"1", "Arroz", "100", "10", "30", "130"},
		[]string{"2", "Yerba Mate", "101", "6", "30", "140"},
		[]string{"3", "Azucar", "50", "0", "20", "60"},
	)
}

func mustEqualDecimal(t *testing.T, field string, want, got decimal.Decimal) {
	t.Helper()
	if !want.Equal(got) {
		t.Fatalf("expected %s %s, got %s", field, want, got)
	}
}
