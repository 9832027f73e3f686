package csvfile

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"inventario/pkg/domain"
)

const utf8BOM = "\ufeff"

// Encode writes t as CSV: one header row followed by the data rows.
func Encode(w io.Writer, t domain.Table) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(t.Columns); err != nil {
		return err
	}
	for _, row := range t.Rows {
		record := make([]string, len(t.Columns))
		copy(record, row)
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// EncodeBytes renders t as CSV bytes.
func EncodeBytes(t domain.Table) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := Encode(buf, t); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode reads a CSV table. Short rows are padded to the header width; an
// empty input yields a table without columns. A leading UTF-8 byte order mark
// (as written by spreadsheet programs) is ignored.
func Decode(name string, r io.Reader) (domain.Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	t := domain.Table{Name: name}
	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return t, nil
	}
	if err != nil {
		return domain.Table{}, err
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	t.Columns = header
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return domain.Table{}, err
		}
		row := make([]string, len(header))
		copy(row, record)
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}
