package domain

import "github.com/shopspring/decimal"

var (
	ten     = decimal.NewFromInt(10)
	hundred = decimal.NewFromInt(100)
)

// RoundUpToTen rounds x up to the next multiple of ten: ceil(x/10)*10.
// Multiples of ten are returned unchanged.
func RoundUpToTen(x decimal.Decimal) decimal.Decimal {
	return x.Div(ten).Ceil().Mul(ten)
}

// SalePrice applies the markup percentage to the wholesale price and rounds the
// result up to the next multiple of ten.
func SalePrice(wholesale, incrementPercent decimal.Decimal) decimal.Decimal {
	factor := decimal.NewFromInt(1).Add(incrementPercent.Div(hundred))
	return RoundUpToTen(wholesale.Mul(factor))
}

// Priced returns a copy of p whose SalePrice is recomputed from its wholesale
// price and markup.
func (p Product) Priced() Product {
	p.SalePrice = SalePrice(p.WholesalePrice, p.IncrementPercent)
	return p
}

// LineTotal is the amount charged for quantity units of p.
func (p Product) LineTotal(quantity int64) decimal.Decimal {
	return p.SalePrice.Mul(decimal.NewFromInt(quantity))
}
