package domain

import (
	"context"
	"errors"
	"testing"
)

type stubRule struct {
	name string
	res  Result
	err  error
}

func (r stubRule) Name() string { return r.name }
func (r stubRule) Evaluate(context.Context, RuleView, []Change) (Result, error) {
	return r.res, r.err
}

type emptyView struct{}

func (emptyView) ListProducts() []Product           { return nil }
func (emptyView) FindProduct(int64) (Product, bool) { return Product{}, false }

func TestRulesEngineMergesResults(t *testing.T) {
	engine := NewRulesEngine(stubRule{name: "a", res: Result{Violations: []Violation{{Rule: "a", Severity: SeverityWarn}}}})
	engine.Register(stubRule{name: "b", res: Result{Violations: []Violation{{Rule: "b", Severity: SeverityBlock}}}})
	res, err := engine.Evaluate(context.Background(), emptyView{}, nil)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(res.Violations) != 2 || !res.HasBlocking() || len(engine.Rules()) != 2 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestRulesEngineStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	engine := NewRulesEngine(stubRule{name: "x", err: boom})
	if _, err := engine.Evaluate(context.Background(), emptyView{}, nil); !errors.Is(err, boom) {
		t.Fatalf("expected rule error, got %v", err)
	}
}
