package core

import (
	"context"
	"fmt"
	"strconv"

	"inventario/pkg/domain"
)

// DefaultLowStockThreshold is the stock level at or below which a sale raises a warning.
const DefaultLowStockThreshold = 5

// NewDefaultRulesEngine returns the rules applied to every sale: stock must not
// go negative (blocking) and low stock is reported (warning).
func NewDefaultRulesEngine() *domain.RulesEngine {
	return domain.NewRulesEngine(NonNegativeStockRule(), LowStockRule(DefaultLowStockThreshold))
}

type nonNegativeStockRule struct{}

// NonNegativeStockRule blocks sales that would take a product below zero units.
func NonNegativeStockRule() domain.Rule { return nonNegativeStockRule{} }

func (nonNegativeStockRule) Name() string { return "non_negative_stock" }

func (r nonNegativeStockRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	var res domain.Result
	for _, ch := range productUpdates(changes) {
		if ch.after.Stock >= 0 {
			continue
		}
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     r.Name(),
			Severity: domain.SeverityBlock,
			Message:  fmt.Sprintf("%s: stock insuficiente (%d disponibles, %d solicitadas)", ch.before.Name, ch.before.Stock, ch.before.Stock-ch.after.Stock),
			Entity:   domain.EntityProduct,
			EntityID: strconv.FormatInt(ch.after.ID, 10),
		})
	}
	return res, nil
}

type lowStockRule struct {
	threshold int64
}

// LowStockRule warns when a sale takes a product to threshold units or fewer.
func LowStockRule(threshold int64) domain.Rule { return lowStockRule{threshold: threshold} }

func (lowStockRule) Name() string { return "low_stock" }

func (r lowStockRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	var res domain.Result
	for _, ch := range productUpdates(changes) {
		if ch.after.Stock < 0 || ch.after.Stock > r.threshold || ch.before.Stock <= r.threshold {
			continue
		}
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     r.Name(),
			Severity: domain.SeverityWarn,
			Message:  fmt.Sprintf("%s: quedan %d unidades", ch.after.Name, ch.after.Stock),
			Entity:   domain.EntityProduct,
			EntityID: strconv.FormatInt(ch.after.ID, 10),
		})
	}
	return res, nil
}

type productChange struct {
	before, after domain.Product
}

func productUpdates(changes []domain.Change) []productChange {
	var out []productChange
	for _, ch := range changes {
		if ch.Entity != domain.EntityProduct || ch.Action != domain.ActionUpdate {
			continue
		}
		before, ok1 := ch.Before.(domain.Product)
		after, ok2 := ch.After.(domain.Product)
		if ok1 && ok2 {
			out = append(out, productChange{before: before, after: after})
		}
	}
	return out
}

// productView exposes the staged inventory of a sale to rules.
type productView struct {
	products []domain.Product
}

func (v productView) ListProducts() []domain.Product {
	return append([]domain.Product(nil), v.products...)
}

func (v productView) FindProduct(id int64) (domain.Product, bool) {
	i, ok := findProduct(v.products, id)
	if !ok {
		return domain.Product{}, false
	}
	return v.products[i], true
}
