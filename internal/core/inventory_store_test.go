package core

import (
	"context"
	"errors"
	"testing"

	"inventario/pkg/domain"
)

func TestInventoryStoreLoadMissingTable(t *testing.T) {
	s := newTestStores(t)
	products, err := s.inventory.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if products == nil || len(products) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", products)
	}
	if s.tables.Writes() != 0 {
		t.Fatalf("loading a missing inventory must not write, got %d writes", s.tables.Writes())
	}
}

func TestInventoryStoreRecomputesSalePrice(t *testing.T) {
	s := newTestStores(t, inventorySeed([]string{"7", "Fideos", "101", "4", "30", "1"}))
	products, err := s.inventory.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	mustEqualDecimal(t, "sale price", dec("140"), products[0].SalePrice)
}

func TestInventoryStoreHeaderDrivenLoadBackfillsMarkup(t *testing.T) {
	legacy := domain.Table{
		Name:    domain.TableInventory,
		Columns: []string{"id_producto", "nombre", "precio", "stock"},
		Rows:    [][]string{{"1", "Yerba", "55", "3.0"}},
	}
	s := newTestStores(t, legacy, configSeed([]string{domain.ParamIncrementPercentage, "50"}))
	products, err := s.inventory.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(products) != 1 {
		t.Fatalf("expected 1 product, got %d", len(products))
	}
	p := products[0]
	if p.Stock != 3 {
		t.Fatalf("expected integral decimal stock to load as 3, got %d", p.Stock)
	}
	mustEqualDecimal(t, "markup", dec("50"), p.IncrementPercent)
	mustEqualDecimal(t, "sale price", dec("90"), p.SalePrice)
}

func TestInventoryStoreBackfillsEmptyMarkupCell(t *testing.T) {
	s := newTestStores(t, inventorySeed(
		[]string{"1", "Arroz", "100", "10", "", ""},
		[]string{"2", "Sal", "20", "1", "100", ""},
	))
	products, err := s.inventory.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	mustEqualDecimal(t, "backfilled markup", dec("30"), products[0].IncrementPercent)
	mustEqualDecimal(t, "explicit markup", dec("100"), products[1].IncrementPercent)
	mustEqualDecimal(t, "sale price", dec("40"), products[1].SalePrice)
}

func TestInventoryStoreRejectsFractionalStock(t *testing.T) {
	s := newTestStores(t, inventorySeed([]string{"1", "Arroz", "100", "2.5", "30", ""}))
	if _, err := s.inventory.Load(context.Background()); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestInventoryStoreMissingColumnIsIOError(t *testing.T) {
	broken := domain.Table{Name: domain.TableInventory, Columns: []string{"id_producto", "nombre"}, Rows: [][]string{{"1", "x"}}}
	s := newTestStores(t, broken)
	if _, err := s.inventory.Load(context.Background()); !errors.Is(err, domain.ErrIO) {
		t.Fatalf("expected io error, got %v", err)
	}
}

func TestInventoryStoreAddThenFind(t *testing.T) {
	s := newTestStores(t)
	ctx := context.Background()
	added, err := s.inventory.Add(ctx, domain.Product{ID: 9, Name: "Cafe", WholesalePrice: dec("100"), Stock: 5, IncrementPercent: dec("30")})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	mustEqualDecimal(t, "sale price", dec("130"), added.SalePrice)

	found, err := s.inventory.FindByID(ctx, 9)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if found.Name != "Cafe" || found.Stock != 5 {
		t.Fatalf("unexpected product: %+v", found)
	}
	mustEqualDecimal(t, "sale price", dec("130"), found.SalePrice)

	tbl, _ := s.tables.ReadTable(ctx, domain.TableInventory)
	want := []string{"9", "Cafe", "100", "5", "30", "130"}
	for i, c := range want {
		if tbl.Rows[0][i] != c {
			t.Fatalf("column %s: expected %q, got %q", domain.InventoryColumns[i], c, tbl.Rows[0][i])
		}
	}
}

func TestInventoryStoreAddRejectsDuplicateID(t *testing.T) {
	s := newTestStores(t, sampleInventory())
	_, err := s.inventory.Add(context.Background(), domain.Product{ID: 1, Name: "Otro", WholesalePrice: dec("1"), Stock: 1})
	var ve domain.ValidationError
	if !errors.As(err, &ve) || ve.Field != "id_producto" {
		t.Fatalf("expected id_producto validation error, got %v", err)
	}
}

func TestInventoryStoreAddRejectsNegativeStock(t *testing.T) {
	s := newTestStores(t)
	_, err := s.inventory.Add(context.Background(), domain.Product{ID: 1, Name: "x", WholesalePrice: dec("1"), Stock: -1})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestInventoryStoreFindMissing(t *testing.T) {
	s := newTestStores(t, sampleInventory())
	_, err := s.inventory.FindByID(context.Background(), 99)
	var nf domain.NotFoundError
	if !errors.As(err, &nf) || nf.Entity != domain.EntityProduct || nf.ID != "99" {
		t.Fatalf("expected product 99 not found, got %v", err)
	}
}

func TestInventoryStoreFilterByName(t *testing.T) {
	s := newTestStores(t, sampleInventory())
	ctx := context.Background()
	cases := []struct {
		query string
		want  []int64
	}{
		{"", []int64{1, 2, 3}},
		{"AR", []int64{1, 3}},
		{"mate", []int64{2}},
		{"pan", nil},
		{" ", []int64{2}},
		{"arroz ", nil},
	}
	for _, tc := range cases {
		got, err := s.inventory.FilterByName(ctx, tc.query)
		if err != nil {
			t.Fatalf("filter %q: %v", tc.query, err)
		}
		if len(got) != len(tc.want) {
			t.Fatalf("filter %q: expected %d products, got %d", tc.query, len(tc.want), len(got))
		}
		for i, id := range tc.want {
			if got[i].ID != id {
				t.Fatalf("filter %q: expected id %d at %d, got %d", tc.query, id, i, got[i].ID)
			}
		}
	}
}

func TestInventoryStoreEdit(t *testing.T) {
	s := newTestStores(t, sampleInventory())
	ctx := context.Background()
	edited, err := s.inventory.Edit(ctx, 2, domain.ProductEdit{Name: "Yerba", WholesalePrice: dec("200"), Stock: 8, IncrementPercent: dec("10")})
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if edited.ID != 2 || edited.Name != "Yerba" || edited.Stock != 8 {
		t.Fatalf("unexpected edit result: %+v", edited)
	}
	mustEqualDecimal(t, "sale price", dec("220"), edited.SalePrice)

	products, _ := s.inventory.Load(ctx)
	if products[1].Name != "Yerba" || products[0].Name != "Arroz" {
		t.Fatalf("edit must keep row order, got %+v", products)
	}

	if _, err := s.inventory.Edit(ctx, 42, domain.ProductEdit{Name: "x"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestInventoryStoreUpsert(t *testing.T) {
	s := newTestStores(t, sampleInventory())
	ctx := context.Background()
	before := s.tables.Writes()
	added, updated, err := s.inventory.Upsert(ctx, []domain.Product{
		{ID: 1, Name: "Arroz largo", WholesalePrice: dec("120"), Stock: 3, IncrementPercent: dec("30")},
		{ID: 4, Name: "Harina", WholesalePrice: dec("40"), Stock: 9, IncrementPercent: dec("25")},
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if added != 1 || updated != 1 {
		t.Fatalf("expected 1 added and 1 updated, got %d/%d", added, updated)
	}
	if s.tables.Writes() != before+1 {
		t.Fatalf("expected a single write, got %d", s.tables.Writes()-before)
	}
	products, _ := s.inventory.Load(ctx)
	if len(products) != 4 || products[0].Name != "Arroz largo" || products[3].ID != 4 {
		t.Fatalf("unexpected inventory after upsert: %+v", products)
	}
	mustEqualDecimal(t, "sale price", dec("50"), products[3].SalePrice)
}
