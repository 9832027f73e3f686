package core

import (
	"strings"

	"github.com/shopspring/decimal"

	"inventario/pkg/domain"
)

// ProductForm is the raw text a shell collects for a product.
type ProductForm struct {
	ID        string
	Name      string
	Price     string
	Stock     string
	Increment string
}

// Parse converts the form into a priced product. An empty Increment takes
// defaultIncrement.
func (f ProductForm) Parse(defaultIncrement decimal.Decimal) (domain.Product, error) {
	var (
		p   domain.Product
		err error
	)
	if p.ID, err = parseInt("id_producto", f.ID); err != nil {
		return domain.Product{}, err
	}
	p.Name = strings.TrimSpace(f.Name)
	if p.Name == "" {
		return domain.Product{}, domain.ValidationError{Field: "nombre", Reason: "value required"}
	}
	if p.WholesalePrice, err = parseDecimal("precio", f.Price); err != nil {
		return domain.Product{}, err
	}
	if p.Stock, err = parseInt("stock", f.Stock); err != nil {
		return domain.Product{}, err
	}
	p.IncrementPercent = defaultIncrement
	if strings.TrimSpace(f.Increment) != "" {
		if p.IncrementPercent, err = parseDecimal("porcentaje_incremento", f.Increment); err != nil {
			return domain.Product{}, err
		}
	}
	if err := validateProduct(p); err != nil {
		return domain.Product{}, err
	}
	return p.Priced(), nil
}

// ParseEdit converts the form into an edit of current. Empty fields keep the
// current value; the id field is ignored.
func (f ProductForm) ParseEdit(current domain.Product) (domain.ProductEdit, error) {
	edit := domain.ProductEdit{
		Name:             current.Name,
		WholesalePrice:   current.WholesalePrice,
		Stock:            current.Stock,
		IncrementPercent: current.IncrementPercent,
	}
	var err error
	if s := strings.TrimSpace(f.Name); s != "" {
		edit.Name = s
	}
	if strings.TrimSpace(f.Price) != "" {
		if edit.WholesalePrice, err = parseDecimal("precio", f.Price); err != nil {
			return domain.ProductEdit{}, err
		}
	}
	if strings.TrimSpace(f.Stock) != "" {
		if edit.Stock, err = parseInt("stock", f.Stock); err != nil {
			return domain.ProductEdit{}, err
		}
	}
	if strings.TrimSpace(f.Increment) != "" {
		if edit.IncrementPercent, err = parseDecimal("porcentaje_incremento", f.Increment); err != nil {
			return domain.ProductEdit{}, err
		}
	}
	return edit, nil
}

// ParseProductID reads a product id typed by the user.
func ParseProductID(raw string) (int64, error) {
	return parseInt("id_producto", raw)
}

// ParseQuantity reads a positive quantity typed by the user.
func ParseQuantity(raw string) (int64, error) {
	q, err := parseInt("cantidad", raw)
	if err != nil {
		return 0, err
	}
	if q <= 0 {
		return 0, domain.ValidationError{Field: "cantidad", Value: raw, Reason: "must be positive"}
	}
	return q, nil
}
