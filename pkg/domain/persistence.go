package domain

import (
	"context"
	"errors"
)

// Persisted table names. With the csv driver each table is stored as <name>.csv.
const (
	TableInventory = "inventario"
	TableSales     = "sales"
	TableConfig    = "config"
)

// Column order is part of the persisted format.
var (
	InventoryColumns = []string{"id_producto", "nombre", "precio", "stock", "porcentaje_incremento", "precio_venta"}
	SalesColumns     = []string{"fecha", "id_producto", "nombre", "cantidad", "total"}
	ConfigColumns    = []string{"parametro", "valor"}
)

// ErrTableNotFound is returned by TableStore.ReadTable when the table has never been written.
var ErrTableNotFound = errors.New("table not found")

// Table is a named set of rows of string cells with an ordered header.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]string
}

// Index returns the position of column, or -1 when the table lacks it.
func (t Table) Index(column string) int {
	for i, c := range t.Columns {
		if c == column {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy of the table.
func (t Table) Clone() Table {
	out := Table{Name: t.Name, Columns: append([]string(nil), t.Columns...)}
	if t.Rows != nil {
		out.Rows = make([][]string, len(t.Rows))
		for i, r := range t.Rows {
			out.Rows[i] = append([]string(nil), r...)
		}
	}
	return out
}

// TableStore is the persistence abstraction over the flat tables. Each write
// replaces the named tables wholesale.
type TableStore interface {
	// ReadTable returns the named table or an error wrapping ErrTableNotFound.
	ReadTable(ctx context.Context, name string) (Table, error)
	// WriteTables replaces every given table. Drivers apply the set as a unit
	// as far as their medium allows.
	WriteTables(ctx context.Context, tables ...Table) error
	// Driver names the backing implementation.
	Driver() string
}
