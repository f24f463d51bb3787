package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrNoHeaders is returned when a dataset has no columns to render.
var ErrNoHeaders = errors.New("export dataset has no headers")

const utf8BOM = "\ufeff"

// Dataset is tabular export content. Rows are keyed by header text.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
}

// Len reports the number of data rows.
func (d Dataset) Len() int {
	return len(d.Rows)
}

// record returns row i in header order.
func (d Dataset) record(i int) []string {
	out := make([]string, len(d.Headers))
	for j, h := range d.Headers {
		out[j] = d.Rows[i][h]
	}
	return out
}

// CSVExporter writes datasets as CSV for spreadsheet users.
type CSVExporter struct {
	// ExcelBOM prefixes output with a UTF-8 byte order mark so accented
	// names survive a double click open in Excel.
	ExcelBOM bool
	Comma    rune
	// EscapeFormulas prefixes cells starting with = + - @ with a quote so
	// names typed at the door are never evaluated as formulas.
	EscapeFormulas bool
}

// NewCSVExporter returns the exporter used for attendance reports.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{ExcelBOM: true, Comma: ',', EscapeFormulas: true}
}

// Render produces CSV encoded bytes for the dataset.
func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	var buf bytes.Buffer
	if err := e.Write(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write streams the dataset to w.
func (e *CSVExporter) Write(w io.Writer, data Dataset) error {
	if len(data.Headers) == 0 {
		return ErrNoHeaders
	}
	if e.ExcelBOM {
		if _, err := io.WriteString(w, utf8BOM); err != nil {
			return fmt.Errorf("write csv bom: %w", err)
		}
	}
	writer := csv.NewWriter(w)
	if e.Comma != 0 {
		writer.Comma = e.Comma
	}
	if err := writer.Write(data.Headers); err != nil {
		return fmt.Errorf("write csv headers: %w", err)
	}
	for i := range data.Rows {
		record := data.record(i)
		if e.EscapeFormulas {
			for j, cell := range record {
				record[j] = escapeFormula(cell)
			}
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write csv row %d: %w", i+1, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func escapeFormula(cell string) string {
	if len(cell) < 2 {
		return cell
	}
	if strings.ContainsRune("=+-@\t\r", rune(cell[0])) {
		return "'" + cell
	}
	return cell
}
