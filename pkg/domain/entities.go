// Package domain defines the persistent records, value types and rule
// evaluation primitives used by inventario.
package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// EntityType identifies the kind of record referenced by errors, changes and violations.
type EntityType string

// Supported entity type identifiers.
const (
	// EntityProduct identifies a row of the inventory table.
	EntityProduct EntityType = "product"
	// EntitySale identifies a row of the sales ledger.
	EntitySale EntityType = "sale"
	// EntityConfig identifies a configuration parameter.
	EntityConfig EntityType = "config"
	// EntityTable identifies a whole persisted table.
	EntityTable EntityType = "table"
)

// ParamIncrementPercentage is the configuration parameter holding the default markup.
const ParamIncrementPercentage = "porcentaje_incremento"

// DefaultIncrementPercentage is materialised on first load of the config table.
var DefaultIncrementPercentage = decimal.NewFromInt(30)

// Product is a row of the inventory table. SalePrice is derived from
// WholesalePrice and IncrementPercent and is recomputed whenever a product is
// loaded, added or edited.
type Product struct {
	ID               int64
	Name             string
	WholesalePrice   decimal.Decimal
	Stock            int64
	IncrementPercent decimal.Decimal
	SalePrice        decimal.Decimal
}

// ProductEdit carries the mutable product fields. The product id never changes.
type ProductEdit struct {
	Name             string
	WholesalePrice   decimal.Decimal
	Stock            int64
	IncrementPercent decimal.Decimal
}

// Apply returns a copy of p with the edit applied and the sale price recomputed.
func (e ProductEdit) Apply(p Product) Product {
	p.Name = e.Name
	p.WholesalePrice = e.WholesalePrice
	p.Stock = e.Stock
	p.IncrementPercent = e.IncrementPercent
	return p.Priced()
}

// SaleRecord is an immutable row of the sales ledger. Name is a snapshot of the
// product name at sale time and does not follow later renames.
type SaleRecord struct {
	Date      Date
	ProductID int64
	Name      string
	Quantity  int64
	Total     decimal.Decimal
}

// UnitPrice derives the per-unit price from the recorded total.
func (r SaleRecord) UnitPrice() decimal.Decimal {
	if r.Quantity == 0 {
		return decimal.Zero
	}
	return r.Total.Div(decimal.NewFromInt(r.Quantity))
}

// ConfigEntry is a row of the config table.
type ConfigEntry struct {
	Parameter string
	Value     decimal.Decimal
}

// CartLine is a pending (product, quantity) selection.
type CartLine struct {
	ProductID int64
	Quantity  int64
}

// Cart is the transient, ordered selection of products waiting to be sold.
// It is never persisted.
type Cart struct {
	lines []CartLine
}

// NewCart builds a cart from the given lines, keeping the first occurrence of each product.
func NewCart(lines ...CartLine) Cart {
	var c Cart
	for _, l := range lines {
		c.Add(l.ProductID, l.Quantity)
	}
	return c
}

// Add appends a selection. A product that is already in the cart is left
// untouched and Add reports false.
func (c *Cart) Add(productID, quantity int64) bool {
	if _, ok := c.Quantity(productID); ok {
		return false
	}
	c.lines = append(c.lines, CartLine{ProductID: productID, Quantity: quantity})
	return true
}

// Quantity returns the selected quantity for a product.
func (c Cart) Quantity(productID int64) (int64, bool) {
	for _, l := range c.lines {
		if l.ProductID == productID {
			return l.Quantity, true
		}
	}
	return 0, false
}

// Lines returns the selections in insertion order.
func (c Cart) Lines() []CartLine {
	return append([]CartLine(nil), c.lines...)
}

// Len returns the number of distinct products in the cart.
func (c Cart) Len() int { return len(c.lines) }

// Clear empties the cart after a successful sale.
func (c *Cart) Clear() { c.lines = nil }

// ReceiptLine describes one sold product on a receipt.
type ReceiptLine struct {
	ProductID int64
	Name      string
	Quantity  int64
	UnitPrice decimal.Decimal
	Total     decimal.Decimal
}

func (l ReceiptLine) String() string {
	return formatSaleLine(l.Name, l.Quantity, l.UnitPrice, l.Total)
}

// Receipt summarises a committed sale for display.
type Receipt struct {
	ID         string
	Date       Date
	Lines      []ReceiptLine
	GrandTotal decimal.Decimal
	// Warnings holds non-blocking rule violations raised by the sale.
	Warnings []Violation
}

// Details renders the receipt the way the sales screen shows it.
func (r Receipt) Details() string {
	lines := make([]string, 0, len(r.Lines))
	for _, l := range r.Lines {
		lines = append(lines, l.String())
	}
	return fmt.Sprintf("Detalles de la venta:\n%s\n\nTotal a Pagar: $%s", strings.Join(lines, "\n"), r.GrandTotal.StringFixed(2))
}

// Units returns the number of items sold on the receipt.
func (r Receipt) Units() int64 {
	var n int64
	for _, l := range r.Lines {
		n += l.Quantity
	}
	return n
}

// DailySales aggregates the ledger rows of a single day.
type DailySales struct {
	Date    Date
	Records []SaleRecord
	Total   decimal.Decimal
	Units   int64
}

// Empty reports whether no sales were recorded on the day.
func (d DailySales) Empty() bool { return len(d.Records) == 0 }

// Lines renders one description per sale record.
func (d DailySales) Lines() []string {
	out := make([]string, 0, len(d.Records))
	for _, r := range d.Records {
		out = append(out, formatSaleLine(r.Name, r.Quantity, r.UnitPrice(), r.Total))
	}
	return out
}

func formatSaleLine(name string, quantity int64, unit, total decimal.Decimal) string {
	return fmt.Sprintf("%s: %d unidades x $%s = $%s", name, quantity, unit.StringFixed(2), total.StringFixed(2))
}

// Severity classifies rule violations.
type Severity string

// Rule evaluation severities determine commit behavior.
const (
	// SeverityBlock blocks the commit.
	SeverityBlock Severity = "block"
	// SeverityWarn is reported on the receipt but allows the commit.
	SeverityWarn Severity = "warn"
)

// Action enumerates the mutations captured in a Change.
type Action string

// Change actions.
const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Change records a mutation staged inside a sale before it is persisted.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID string
}

// Result aggregates rule violations.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// Warnings returns the non-blocking violations.
func (r Result) Warnings() []Violation {
	var out []Violation
	for _, v := range r.Violations {
		if v.Severity != SeverityBlock {
			out = append(out, v)
		}
	}
	return out
}
