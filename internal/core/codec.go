package core

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"inventario/pkg/domain"
)

// parseDecimal reads a numeric cell. Integers and decimals are both accepted.
func parseDecimal(field, raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, domain.ValidationError{Field: field, Value: raw, Reason: "value required"}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, domain.ValidationError{Field: field, Value: raw, Reason: "not a number"}
	}
	return d, nil
}

// parseInt reads an integer cell. Integral decimals such as "5.0" are
// accepted because spreadsheet tools write whole numbers that way.
func parseInt(field, raw string) (int64, error) {
	s := strings.TrimSpace(raw)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	d, err := parseDecimal(field, raw)
	if err != nil {
		return 0, err
	}
	if !d.IsInteger() {
		return 0, domain.ValidationError{Field: field, Value: raw, Reason: "not an integer"}
	}
	return d.IntPart(), nil
}

func formatDecimal(d decimal.Decimal) string { return d.String() }

func formatInt(n int64) string { return strconv.FormatInt(n, 10) }

// columnIndex resolves every named column of t, failing on the first missing one.
func columnIndex(t domain.Table, columns ...string) (map[string]int, error) {
	idx := make(map[string]int, len(columns))
	for _, c := range columns {
		i := t.Index(c)
		if i < 0 {
			return nil, &domain.IOError{Op: "decode table", Path: t.Name, Err: fmt.Errorf("missing column %q", c)}
		}
		idx[c] = i
	}
	return idx, nil
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// rowError prefixes a cell error with its table position (1-based, header excluded).
func rowError(table string, row int, err error) error {
	return fmt.Errorf("%s row %d: %w", table, row+1, err)
}
