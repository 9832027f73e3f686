package core

import (
	"context"
	"errors"
	"sort"

	"github.com/shopspring/decimal"

	"inventario/pkg/domain"
)

// ConfigStore owns the config table: parameter name to numeric value.
type ConfigStore struct {
	tables domain.TableStore
}

// NewConfigStore binds the store to a table backend.
func NewConfigStore(tables domain.TableStore) *ConfigStore {
	return &ConfigStore{tables: tables}
}

// DefaultConfig is written on the first Load when no config table exists.
func DefaultConfig() map[string]decimal.Decimal {
	return map[string]decimal.Decimal{domain.ParamIncrementPercentage: domain.DefaultIncrementPercentage}
}

// Load returns every parameter. A missing table is created with DefaultConfig.
func (c *ConfigStore) Load(ctx context.Context) (map[string]decimal.Decimal, error) {
	t, err := c.tables.ReadTable(ctx, domain.TableConfig)
	if errors.Is(err, domain.ErrTableNotFound) {
		defaults := DefaultConfig()
		if err := c.Save(ctx, defaults); err != nil {
			return nil, err
		}
		return defaults, nil
	}
	if err != nil {
		return nil, err
	}
	return configFromTable(t)
}

// Save overwrites the table with values, one row per parameter sorted by name.
func (c *ConfigStore) Save(ctx context.Context, values map[string]decimal.Decimal) error {
	return c.tables.WriteTables(ctx, configTable(values))
}

// Get returns a single parameter. It never falls back to a default: an absent
// parameter is a NotFoundError. A missing table is still materialised by Load.
func (c *ConfigStore) Get(ctx context.Context, parameter string) (decimal.Decimal, error) {
	values, err := c.Load(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	v, ok := values[parameter]
	if !ok {
		return decimal.Zero, domain.NotFoundError{Entity: domain.EntityConfig, ID: parameter}
	}
	return v, nil
}

// Set inserts or updates a parameter.
func (c *ConfigStore) Set(ctx context.Context, parameter string, value decimal.Decimal) error {
	if parameter == "" {
		return domain.ValidationError{Field: "parametro", Reason: "parameter name required"}
	}
	values, err := c.Load(ctx)
	if err != nil {
		return err
	}
	values[parameter] = value
	return c.Save(ctx, values)
}

// SetFromInput parses user text before calling Set. Nothing is written when
// the text is not numeric.
func (c *ConfigStore) SetFromInput(ctx context.Context, parameter, raw string) (decimal.Decimal, error) {
	v, err := parseDecimal(parameter, raw)
	if err != nil {
		return decimal.Zero, err
	}
	if err := c.Set(ctx, parameter, v); err != nil {
		return decimal.Zero, err
	}
	return v, nil
}

func configFromTable(t domain.Table) (map[string]decimal.Decimal, error) {
	idx, err := columnIndex(t, domain.ConfigColumns...)
	if err != nil {
		return nil, err
	}
	out := make(map[string]decimal.Decimal, len(t.Rows))
	for i, row := range t.Rows {
		if blankRow(row) {
			continue
		}
		name := cell(row, idx["parametro"])
		v, err := parseDecimal(name, cell(row, idx["valor"]))
		if err != nil {
			return nil, rowError(t.Name, i, err)
		}
		out[name] = v
	}
	return out, nil
}

func configTable(values map[string]decimal.Decimal) domain.Table {
	names := make([]string, 0, len(values))
	for k := range values {
		names = append(names, k)
	}
	sort.Strings(names)
	t := domain.Table{Name: domain.TableConfig, Columns: append([]string(nil), domain.ConfigColumns...)}
	for _, k := range names {
		t.Rows = append(t.Rows, []string{k, formatDecimal(values[k])})
	}
	return t
}
