package formatters

import (
	"bytes"
	"encoding/json"

	"github.com/airframesio/databricks-mcp/cmd/warehouse"
)

// JSONLFormatter handles JSONL (JSON Lines) format output
type JSONLFormatter struct{}

// NewJSONLFormatter creates a new JSONL formatter
func NewJSONLFormatter() *JSONLFormatter {
	return &JSONLFormatter{}
}

// Format converts a result to JSONL format (one JSON object per row)
func (f *JSONLFormatter) Format(result *warehouse.QueryResult) ([]byte, error) {
	var buffer bytes.Buffer

	for _, row := range result.Rows {
		record := make(map[string]any, len(result.Columns))
		for i, col := range result.Columns {
			record[col.Name] = jsonValue(row[i])
		}

		jsonData, err := json.Marshal(record)
		if err != nil {
			return nil, err
		}

		buffer.Write(jsonData)
		buffer.WriteByte('\n')
	}

	return buffer.Bytes(), nil
}

// Extension returns the file extension for JSONL files
func (f *JSONLFormatter) Extension() string {
	return ".jsonl"
}

// MIMEType returns the MIME type for JSONL
func (f *JSONLFormatter) MIMEType() string {
	return "application/x-ndjson"
}
