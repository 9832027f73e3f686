package core

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"inventario/pkg/domain"
)

// SaleTransaction turns a cart into a stock decrement plus ledger rows.
//
// The cart is applied to a working copy of the inventory; nothing is written
// until every line resolved and the rules passed. Both tables are then handed
// to a single TableStore.WriteTables call, which either replaces both or puts
// back what it already replaced. Only a crash between the csv driver's renames
// can leave the inventory updated without its ledger rows.
type SaleTransaction struct {
	tables    domain.TableStore
	inventory *InventoryStore
	ledger    *SalesLedger
	rules     *domain.RulesEngine
	clock     Clock
	newID     func() string
}

// NewSaleTransaction wires a transaction over the given stores. A nil engine
// disables rule evaluation; a nil clock uses the system time.
func NewSaleTransaction(tables domain.TableStore, inventory *InventoryStore, ledger *SalesLedger, rules *domain.RulesEngine, clock Clock) *SaleTransaction {
	if clock == nil {
		clock = ClockFunc(time.Now)
	}
	return &SaleTransaction{
		tables:    tables,
		inventory: inventory,
		ledger:    ledger,
		rules:     rules,
		clock:     clock,
		newID:     uuid.NewString,
	}
}

// Commit sells every line of cart, in cart order, dated today.
func (t *SaleTransaction) Commit(ctx context.Context, cart domain.Cart) (domain.Receipt, error) {
	if cart.Len() == 0 {
		return domain.Receipt{}, domain.ValidationError{Field: "cart", Reason: "no products selected"}
	}
	products, err := t.inventory.Load(ctx)
	if err != nil {
		return domain.Receipt{}, err
	}
	salesTable, err := t.ledger.readOrEmpty(ctx)
	if err != nil {
		return domain.Receipt{}, err
	}
	if _, err := salesFromTable(salesTable); err != nil {
		return domain.Receipt{}, err
	}

	today := domain.DateOf(t.clock.Now())
	working := append([]domain.Product(nil), products...)
	receipt := domain.Receipt{Date: today, GrandTotal: decimal.Zero}
	var (
		records []domain.SaleRecord
		changes []domain.Change
	)
	for _, line := range cart.Lines() {
		if line.Quantity <= 0 {
			return domain.Receipt{}, domain.ValidationError{Field: "cantidad", Value: formatInt(line.Quantity), Reason: "must be positive"}
		}
		i, ok := findProduct(working, line.ProductID)
		if !ok {
			return domain.Receipt{}, productNotFound(line.ProductID)
		}
		before := working[i]
		total := before.LineTotal(line.Quantity)
		working[i].Stock -= line.Quantity

		record := domain.SaleRecord{Date: today, ProductID: before.ID, Name: before.Name, Quantity: line.Quantity, Total: total}
		records = append(records, record)
		changes = append(changes,
			domain.Change{Entity: domain.EntityProduct, Action: domain.ActionUpdate, Before: before, After: working[i]},
			domain.Change{Entity: domain.EntitySale, Action: domain.ActionCreate, After: record},
		)
		receipt.Lines = append(receipt.Lines, domain.ReceiptLine{
			ProductID: before.ID,
			Name:      before.Name,
			Quantity:  line.Quantity,
			UnitPrice: before.SalePrice,
			Total:     total,
		})
		receipt.GrandTotal = receipt.GrandTotal.Add(total)
	}

	if t.rules != nil {
		res, err := t.rules.Evaluate(ctx, productView{products: working}, changes)
		if err != nil {
			return domain.Receipt{}, err
		}
		if res.HasBlocking() {
			return domain.Receipt{}, domain.RuleViolationError{Result: res}
		}
		receipt.Warnings = res.Warnings()
	}

	if err := t.tables.WriteTables(ctx, productsTable(working), appendSales(salesTable, records)); err != nil {
		return domain.Receipt{}, err
	}
	receipt.ID = t.newID()
	return receipt, nil
}
