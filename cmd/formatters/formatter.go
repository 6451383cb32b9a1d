package formatters

import (
	"errors"
	"fmt"

	"github.com/airframesio/databricks-mcp/cmd/warehouse"
)

// Format type constants
const (
	FormatCSV     = "csv"
	FormatJSONL   = "jsonl"
	FormatParquet = "parquet"
)

// ErrUnsupportedFormat is returned when an unknown output format is requested
var ErrUnsupportedFormat = errors.New("unsupported output format")

// Formatter defines the interface for output format handlers
type Formatter interface {
	// Format converts a query result to the target format
	Format(result *warehouse.QueryResult) ([]byte, error)

	// Extension returns the file extension for this format (e.g., ".jsonl", ".csv", ".parquet")
	Extension() string

	// MIMEType returns the MIME type for this format
	MIMEType() string
}

// GetFormatter returns the formatter for the given format string
func GetFormatter(format string) (Formatter, error) {
	return GetFormatterWithCompression(format, "")
}

// GetFormatterWithCompression returns the formatter with compression settings.
// For Parquet, this enables internal compression. For other formats, compression parameter is ignored.
func GetFormatterWithCompression(format string, compression string) (Formatter, error) {
	switch format {
	case FormatJSONL:
		return NewJSONLFormatter(), nil
	case FormatCSV:
		return NewCSVFormatter(), nil
	case FormatParquet:
		if compression == "" {
			return NewParquetFormatter(), nil
		}
		return NewParquetFormatterWithCompression(compression), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}
