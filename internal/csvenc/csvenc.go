// Package csvenc serializes row tables to CSV text: RFC 4180 quoting via
// encoding/csv, spreadsheet-formula neutralization applied per field before
// quoting, and a UTF-8 BOM so spreadsheet applications pick the right
// encoding.
package csvenc

import (
	"encoding/csv"
	"fmt"
	"strings"
)

// BOM is the UTF-8 byte-order-mark every generated file starts with.
const BOM = "\xef\xbb\xbf"

// Encode renders a header and rows as one CSV string. Every row must have
// exactly len(header) fields; a mismatch is a programming defect in the row
// builder, not a data problem, and is reported as an error.
func Encode(header []string, rows [][]string) (string, error) {
	if len(header) == 0 {
		return "", fmt.Errorf("empty header")
	}

	var b strings.Builder
	b.WriteString(BOM)

	w := csv.NewWriter(&b)
	if err := w.Write(header); err != nil {
		return "", fmt.Errorf("write header: %w", err)
	}
	for i, row := range rows {
		if len(row) != len(header) {
			return "", fmt.Errorf("row %d has %d fields, header has %d", i, len(row), len(header))
		}
		sanitized := make([]string, len(row))
		for j, field := range row {
			sanitized[j] = Sanitize(field)
		}
		if err := w.Write(sanitized); err != nil {
			return "", fmt.Errorf("write row %d: %w", i, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush: %w", err)
	}

	return b.String(), nil
}

// Sanitize neutralizes CSV injection: a field starting with a formula
// trigger character gets a leading apostrophe so spreadsheet applications
// treat it as literal text. Quoting happens after this, in the writer.
func Sanitize(field string) string {
	if field == "" {
		return field
	}
	switch field[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + field
	}
	return field
}
