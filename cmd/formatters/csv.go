package formatters

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/airframesio/databricks-mcp/cmd/warehouse"
)

// CSVFormatter handles CSV format output. Columns keep result order, the
// header is always written and records end with LF.
type CSVFormatter struct{}

// NewCSVFormatter creates a new CSV formatter
func NewCSVFormatter() *CSVFormatter {
	return &CSVFormatter{}
}

// Format converts a result to CSV format
func (f *CSVFormatter) Format(result *warehouse.QueryResult) ([]byte, error) {
	var buffer bytes.Buffer
	if err := WriteCSV(&buffer, result); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

// Extension returns the file extension for CSV files
func (f *CSVFormatter) Extension() string {
	return ".csv"
}

// MIMEType returns the MIME type for CSV
func (f *CSVFormatter) MIMEType() string {
	return "text/csv"
}

// WriteCSV streams result to w as CSV
func WriteCSV(w io.Writer, result *warehouse.QueryResult) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(result.ColumnNames()); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	record := make([]string, len(result.Columns))
	for _, row := range result.Rows {
		for i := range record {
			record[i] = EncodeValue(row[i])
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("CSV writer error: %w", err)
	}
	return nil
}
