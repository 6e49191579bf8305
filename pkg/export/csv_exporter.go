package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
)

var errNoColumns = errors.New("dataset has no columns")

// Dataset is a table keyed by header. Cells missing from a row render empty.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
}

// Record returns row i as a slice aligned with Headers.
func (d Dataset) Record(i int) []string {
	record := make([]string, len(d.Headers))
	for col, header := range d.Headers {
		record[col] = d.Rows[i][header]
	}
	return record
}

// CSVExporter writes RFC 4180 CSV with a header line.
type CSVExporter struct{}

func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render buffers the whole document.
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
		return fmt.Errorf("csv: %w", errNoColumns)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(data.Headers); err != nil {
		return fmt.Errorf("csv header: %w", err)
	}
	for i := range data.Rows {
		if err := cw.Write(data.Record(i)); err != nil {
			return fmt.Errorf("csv row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
