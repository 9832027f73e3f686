package core

import (
	"errors"
	"testing"

	"inventario/pkg/domain"
)

func TestProductFormParse(t *testing.T) {
	p, err := ProductForm{ID: "12", Name: " Galletas ", Price: "45.5", Stock: "8", Increment: ""}.Parse(dec("30"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if p.ID != 12 || p.Name != "Galletas" || p.Stock != 8 {
		t.Fatalf("unexpected product: %+v", p)
	}
	mustEqualDecimal(t, "markup", dec("30"), p.IncrementPercent)
	mustEqualDecimal(t, "sale price", dec("60"), p.SalePrice)
}

func TestProductFormParseErrors(t *testing.T) {
	cases := []struct {
		name  string
		form  ProductForm
		field string
	}{
		{"id", ProductForm{ID: "x", Name: "a", Price: "1", Stock: "1"}, "id_producto"},
		{"name", ProductForm{ID: "1", Name: " ", Price: "1", Stock: "1"}, "nombre"},
		{"price", ProductForm{ID: "1", Name: "a", Price: "uno", Stock: "1"}, "precio"},
		{"stock", ProductForm{ID: "1", Name: "a", Price: "1", Stock: "1.5"}, "stock"},
		{"negative stock", ProductForm{ID: "1", Name: "a", Price: "1", Stock: "-1"}, "stock"},
		{"increment", ProductForm{ID: "1", Name: "a", Price: "1", Stock: "1", Increment: "%"}, "porcentaje_incremento"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.form.Parse(dec("30"))
			var ve domain.ValidationError
			if !errors.As(err, &ve) || ve.Field != tc.field {
				t.Fatalf("expected validation error on %s, got %v", tc.field, err)
			}
		})
	}
}

func TestProductFormParseEditKeepsBlankFields(t *testing.T) {
	current := domain.Product{ID: 1, Name: "Arroz", WholesalePrice: dec("100"), Stock: 10, IncrementPercent: dec("30")}
	edit, err := ProductForm{Stock: "4"}.ParseEdit(current)
	if err != nil {
		t.Fatalf("parse edit: %v", err)
	}
	if edit.Name != "Arroz" || edit.Stock != 4 {
		t.Fatalf("unexpected edit: %+v", edit)
	}
	mustEqualDecimal(t, "price", dec("100"), edit.WholesalePrice)

	if _, err := (ProductForm{Price: "caro"}).ParseEdit(current); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestParseQuantity(t *testing.T) {
	if q, err := ParseQuantity("3"); err != nil || q != 3 {
		t.Fatalf("expected 3, got %d (%v)", q, err)
	}
	for _, raw := range []string{"0", "-1", "dos", ""} {
		if _, err := ParseQuantity(raw); !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("%q: expected validation error, got %v", raw, err)
		}
	}
	if id, err := ParseProductID("7.0"); err != nil || id != 7 {
		t.Fatalf("expected id 7, got %d (%v)", id, err)
	}
}
