package core

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"inventario/pkg/domain"
)

func TestConfigStoreMaterialisesDefaultOnFirstLoad(t *testing.T) {
	s := newTestStores(t)
	ctx := context.Background()

	v, err := s.config.Get(ctx, domain.ParamIncrementPercentage)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	mustEqualDecimal(t, "default markup", dec("30"), v)

	tbl, err := s.tables.ReadTable(ctx, domain.TableConfig)
	if err != nil {
		t.Fatalf("config table not persisted: %v", err)
	}
	if len(tbl.Rows) != 1 || tbl.Rows[0][0] != domain.ParamIncrementPercentage || tbl.Rows[0][1] != "30" {
		t.Fatalf("unexpected persisted config: %+v", tbl.Rows)
	}
}

func TestConfigStoreGetNeverDefaults(t *testing.T) {
	s := newTestStores(t, configSeed([]string{"otro", "1"}))
	_, err := s.config.Get(context.Background(), domain.ParamIncrementPercentage)
	var nf domain.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if nf.Entity != domain.EntityConfig || nf.ID != domain.ParamIncrementPercentage {
		t.Fatalf("unexpected not found detail: %+v", nf)
	}
}

func TestConfigStoreSetThenGet(t *testing.T) {
	s := newTestStores(t)
	ctx := context.Background()
	if err := s.config.Set(ctx, domain.ParamIncrementPercentage, dec("45.5")); err != nil {
		t.Fatalf("set: %v", err)
	}
	v, err := s.config.Get(ctx, domain.ParamIncrementPercentage)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	mustEqualDecimal(t, "markup", dec("45.5"), v)
}

func TestConfigStoreSaveSortsParameters(t *testing.T) {
	s := newTestStores(t)
	ctx := context.Background()
	if err := s.config.Save(ctx, map[string]decimal.Decimal{"zeta": dec("1"), "alfa": dec("2")}); err != nil {
		t.Fatalf("save: %v", err)
	}
	tbl, _ := s.tables.ReadTable(ctx, domain.TableConfig)
	if tbl.Rows[0][0] != "alfa" || tbl.Rows[1][0] != "zeta" {
		t.Fatalf("expected sorted rows, got %+v", tbl.Rows)
	}
}

func TestConfigStoreSetFromInputRejectsText(t *testing.T) {
	s := newTestStores(t)
	_, err := s.config.SetFromInput(context.Background(), domain.ParamIncrementPercentage, "treinta")
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if s.tables.Writes() != 0 {
		t.Fatalf("expected no writes on invalid input, got %d", s.tables.Writes())
	}
}

func TestConfigStoreSetRequiresName(t *testing.T) {
	s := newTestStores(t)
	if err := s.config.Set(context.Background(), "", dec("1")); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestConfigStoreRejectsCorruptValue(t *testing.T) {
	s := newTestStores(t, configSeed([]string{domain.ParamIncrementPercentage, "abc"}))
	if _, err := s.config.Load(context.Background()); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
