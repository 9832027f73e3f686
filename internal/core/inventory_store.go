package core

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"inventario/pkg/domain"
)

// InventoryStore owns the product table. Every read recomputes sale prices, so
// the persisted precio_venta column is informational only.
type InventoryStore struct {
	tables domain.TableStore
	config *ConfigStore
}

// NewInventoryStore binds the store to a table backend. config supplies the
// markup for rows that lack one.
func NewInventoryStore(tables domain.TableStore, config *ConfigStore) *InventoryStore {
	return &InventoryStore{tables: tables, config: config}
}

// Load returns the products in table order. A missing table yields an empty slice.
func (s *InventoryStore) Load(ctx context.Context) ([]domain.Product, error) {
	t, err := s.tables.ReadTable(ctx, domain.TableInventory)
	if errors.Is(err, domain.ErrTableNotFound) {
		return []domain.Product{}, nil
	}
	if err != nil {
		return nil, err
	}
	return productsFromTable(t, func() (decimal.Decimal, error) {
		return s.config.Get(ctx, domain.ParamIncrementPercentage)
	})
}

// Save overwrites the table with products, writing the derived sale price too.
func (s *InventoryStore) Save(ctx context.Context, products []domain.Product) error {
	return s.tables.WriteTables(ctx, productsTable(products))
}

// FindByID returns the first product with id.
func (s *InventoryStore) FindByID(ctx context.Context, id int64) (domain.Product, error) {
	products, err := s.Load(ctx)
	if err != nil {
		return domain.Product{}, err
	}
	i, ok := findProduct(products, id)
	if !ok {
		return domain.Product{}, productNotFound(id)
	}
	return products[i], nil
}

// FilterByName returns products whose name contains query, ignoring case.
// An empty query returns every product.
func (s *InventoryStore) FilterByName(ctx context.Context, query string) ([]domain.Product, error) {
	products, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	return filterProducts(products, query), nil
}

// Add appends p after pricing it. Ids must be unique.
func (s *InventoryStore) Add(ctx context.Context, p domain.Product) (domain.Product, error) {
	products, err := s.Load(ctx)
	if err != nil {
		return domain.Product{}, err
	}
	if err := validateProduct(p); err != nil {
		return domain.Product{}, err
	}
	if _, dup := findProduct(products, p.ID); dup {
		return domain.Product{}, domain.ValidationError{Field: "id_producto", Value: formatInt(p.ID), Reason: "id already in use"}
	}
	p = p.Priced()
	if err := s.Save(ctx, append(products, p)); err != nil {
		return domain.Product{}, err
	}
	return p, nil
}

// Edit replaces the mutable fields of product id and reprices it.
func (s *InventoryStore) Edit(ctx context.Context, id int64, edit domain.ProductEdit) (domain.Product, error) {
	products, err := s.Load(ctx)
	if err != nil {
		return domain.Product{}, err
	}
	i, ok := findProduct(products, id)
	if !ok {
		return domain.Product{}, productNotFound(id)
	}
	updated := edit.Apply(products[i])
	if err := validateProduct(updated); err != nil {
		return domain.Product{}, err
	}
	products[i] = updated
	if err := s.Save(ctx, products); err != nil {
		return domain.Product{}, err
	}
	return updated, nil
}

// Upsert adds unknown ids and edits known ones in a single write.
func (s *InventoryStore) Upsert(ctx context.Context, incoming []domain.Product) (added, updated int, err error) {
	products, err := s.Load(ctx)
	if err != nil {
		return 0, 0, err
	}
	for _, p := range incoming {
		if err := validateProduct(p); err != nil {
			return 0, 0, err
		}
		if i, ok := findProduct(products, p.ID); ok {
			products[i] = p.Priced()
			updated++
			continue
		}
		products = append(products, p.Priced())
		added++
	}
	if err := s.Save(ctx, products); err != nil {
		return 0, 0, err
	}
	return added, updated, nil
}

func productNotFound(id int64) error {
	return domain.NotFoundError{Entity: domain.EntityProduct, ID: strconv.FormatInt(id, 10)}
}

func validateProduct(p domain.Product) error {
	if p.Stock < 0 {
		return domain.ValidationError{Field: "stock", Value: formatInt(p.Stock), Reason: "must not be negative"}
	}
	if p.WholesalePrice.IsNegative() {
		return domain.ValidationError{Field: "precio", Value: formatDecimal(p.WholesalePrice), Reason: "must not be negative"}
	}
	return nil
}

func findProduct(products []domain.Product, id int64) (int, bool) {
	for i, p := range products {
		if p.ID == id {
			return i, true
		}
	}
	return -1, false
}

func filterProducts(products []domain.Product, query string) []domain.Product {
	q := strings.ToLower(query)
	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if q == "" || strings.Contains(strings.ToLower(p.Name), q) {
			out = append(out, p)
		}
	}
	return out
}

// productsFromTable decodes rows by header name. fallback is consulted at most
// once, and only when a row has no markup.
func productsFromTable(t domain.Table, fallback func() (decimal.Decimal, error)) ([]domain.Product, error) {
	idx, err := columnIndex(t, "id_producto", "nombre", "precio", "stock")
	if err != nil {
		return nil, err
	}
	incCol := t.Index("porcentaje_incremento")
	var (
		defaultInc decimal.Decimal
		haveDef    bool
	)
	products := make([]domain.Product, 0, len(t.Rows))
	for i, row := range t.Rows {
		if blankRow(row) {
			continue
		}
		var p domain.Product
		if p.ID, err = parseInt("id_producto", cell(row, idx["id_producto"])); err != nil {
			return nil, rowError(t.Name, i, err)
		}
		p.Name = cell(row, idx["nombre"])
		if p.WholesalePrice, err = parseDecimal("precio", cell(row, idx["precio"])); err != nil {
			return nil, rowError(t.Name, i, err)
		}
		if p.Stock, err = parseInt("stock", cell(row, idx["stock"])); err != nil {
			return nil, rowError(t.Name, i, err)
		}
		if raw := strings.TrimSpace(cell(row, incCol)); raw != "" {
			if p.IncrementPercent, err = parseDecimal("porcentaje_incremento", raw); err != nil {
				return nil, rowError(t.Name, i, err)
			}
		} else {
			if !haveDef {
				if defaultInc, err = fallback(); err != nil {
					return nil, err
				}
				haveDef = true
			}
			p.IncrementPercent = defaultInc
		}
		products = append(products, p.Priced())
	}
	return products, nil
}

func productsTable(products []domain.Product) domain.Table {
	t := domain.Table{Name: domain.TableInventory, Columns: append([]string(nil), domain.InventoryColumns...)}
	t.Rows = make([][]string, 0, len(products))
	for _, p := range products {
		p = p.Priced()
		t.Rows = append(t.Rows, []string{
			formatInt(p.ID),
			p.Name,
			formatDecimal(p.WholesalePrice),
			formatInt(p.Stock),
			formatDecimal(p.IncrementPercent),
			formatDecimal(p.SalePrice),
		})
	}
	return t
}
