package formatters

import (
	"bytes"
	"fmt"

	"github.com/airframesio/databricks-mcp/cmd/warehouse"
	"github.com/parquet-go/parquet-go"
)

const parquetSchemaName = "warehouse_export"

// ParquetFormatter handles Parquet format output
type ParquetFormatter struct {
	compression string
}

// NewParquetFormatter creates a new Parquet formatter
func NewParquetFormatter() *ParquetFormatter {
	return &ParquetFormatter{
		compression: "snappy", // Default Parquet compression
	}
}

// NewParquetFormatterWithCompression creates a Parquet formatter with specified compression
func NewParquetFormatterWithCompression(compression string) *ParquetFormatter {
	return &ParquetFormatter{
		compression: compression,
	}
}

// parquetKind is the physical type chosen for one column
type parquetKind int

const (
	kindString parquetKind = iota
	kindBool
	kindInt64
	kindDouble
)

// Format converts a result to Parquet format
func (f *ParquetFormatter) Format(result *warehouse.QueryResult) ([]byte, error) {
	if len(result.Columns) == 0 {
		return []byte{}, nil
	}

	var buffer bytes.Buffer

	schema, kinds := buildSchema(result)

	var codec parquet.WriterOption
	switch f.compression {
	case "zstd":
		codec = parquet.Compression(&parquet.Zstd)
	case "gzip":
		codec = parquet.Compression(&parquet.Gzip)
	case "lz4":
		codec = parquet.Compression(&parquet.Lz4Raw)
	case "none":
		codec = parquet.Compression(&parquet.Uncompressed)
	default:
		// Default to Snappy (standard for Parquet)
		codec = parquet.Compression(&parquet.Snappy)
	}
	writer := parquet.NewGenericWriter[map[string]any](&buffer, schema, codec)

	records := make([]map[string]any, len(result.Rows))
	for i, row := range result.Rows {
		record := make(map[string]any, len(result.Columns))
		for j, col := range result.Columns {
			record[col.Name] = coerce(row[j], kinds[j])
		}
		records[i] = record
	}

	if _, err := writer.Write(records); err != nil {
		writer.Close()
		return nil, fmt.Errorf("failed to write parquet rows: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close parquet writer: %w", err)
	}

	return buffer.Bytes(), nil
}

// buildSchema picks each column's type from its first non-nil value.
// Columns that are entirely NULL become strings.
func buildSchema(result *warehouse.QueryResult) (*parquet.Schema, []parquetKind) {
	kinds := make([]parquetKind, len(result.Columns))
	fields := make(parquet.Group)

	for j, col := range result.Columns {
		kind := kindString
		for _, row := range result.Rows {
			if row[j] != nil {
				kind = kindOf(row[j])
				break
			}
		}
		kinds[j] = kind

		var field parquet.Node
		switch kind {
		case kindBool:
			field = parquet.Optional(parquet.Leaf(parquet.BooleanType))
		case kindInt64:
			field = parquet.Optional(parquet.Leaf(parquet.Int64Type))
		case kindDouble:
			field = parquet.Optional(parquet.Leaf(parquet.DoubleType))
		default:
			field = parquet.Optional(parquet.String())
		}
		fields[col.Name] = field
	}

	return parquet.NewSchema(parquetSchemaName, fields), kinds
}

func kindOf(v any) parquetKind {
	switch v.(type) {
	case bool:
		return kindBool
	case int, int8, int16, int32, int64, uint8, uint16, uint32:
		return kindInt64
	case float32, float64:
		return kindDouble
	default:
		return kindString
	}
}

// coerce converts v to the Go type matching kind. Values that do not fit
// the column's kind fall back to their text form only for string columns;
// otherwise they are written as NULL.
func coerce(v any, kind parquetKind) any {
	if v == nil {
		return nil
	}
	switch kind {
	case kindBool:
		if b, ok := v.(bool); ok {
			return b
		}
	case kindInt64:
		switch n := v.(type) {
		case int:
			return int64(n)
		case int8:
			return int64(n)
		case int16:
			return int64(n)
		case int32:
			return int64(n)
		case int64:
			return n
		case uint8:
			return int64(n)
		case uint16:
			return int64(n)
		case uint32:
			return int64(n)
		}
	case kindDouble:
		switch n := v.(type) {
		case float32:
			return float64(n)
		case float64:
			return n
		}
	default:
		return EncodeValue(v)
	}
	return nil
}

// Extension returns the file extension for Parquet files
func (f *ParquetFormatter) Extension() string {
	return ".parquet"
}

// MIMEType returns the MIME type for Parquet
func (f *ParquetFormatter) MIMEType() string {
	return "application/vnd.apache.parquet"
}
