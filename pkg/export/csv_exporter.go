package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// Dataset is a rendered table: ordered headers plus one cell map per
// row. The schedule export builds one from the adapted sheet; cells
// missing from a row render empty.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
}

// record projects a row onto the header order.
func (d Dataset) record(row map[string]string) []string {
	cells := make([]string, len(d.Headers))
	for i, header := range d.Headers {
		cells[i] = row[header]
	}
	return cells
}

// CSVExporter renders the timetable handout as RFC 4180 CSV, headers
// first. Cells containing commas (id lists) come out quoted.
type CSVExporter struct{}

func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render encodes the dataset as CSV bytes.
func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("csv requires at least one header")
	}

	records := make([][]string, 0, len(data.Rows)+1)
	records = append(records, data.Headers)
	for _, row := range data.Rows {
		records = append(records, data.record(row))
	}

	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.WriteAll(records); err != nil {
		return nil, fmt.Errorf("write csv: %w", err)
	}
	return buf.Bytes(), nil
}
