package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/airframesio/databricks-mcp/cmd/formatters"
	"github.com/airframesio/databricks-mcp/cmd/tools"
	"github.com/airframesio/databricks-mcp/cmd/warehouse"
	"github.com/spf13/cobra"
)

var (
	queryLimit     int
	queryOut       string
	queryOutFormat string
)

var queryCmd = &cobra.Command{
	Use:   "query <sql>",
	Short: "Execute a SQL statement",
	Long: `Execute a SQL statement against the warehouse and print at most --limit rows.
With --out the rows are also written to a CSV, JSONL or Parquet file.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runQuery(cmd, args[0])
	},
}

func init() {
	queryCmd.Flags().IntVar(&queryLimit, "limit", tools.DefaultLimit, "maximum rows to return")
	queryCmd.Flags().StringVar(&queryOut, "out", "", "write the rows to this file")
	queryCmd.Flags().StringVar(&queryOutFormat, "out-format", "", "file format: csv, jsonl, parquet (default from --out extension)")
}

func runQuery(cmd *cobra.Command, query string) (err error) {
	defer recoverPanic(&err)

	if queryOut != "" {
		if _, err := formatters.GetFormatter(outputFormatFor(queryOut, queryOutFormat)); err != nil {
			return &warehouse.ConfigurationError{Err: err}
		}
	}

	ctx, stop := commandContext()
	defer stop()

	sess, err := newCommandSession()
	if err != nil {
		return err
	}
	defer sess.Close()

	resp, err := sess.service.ExecuteQuery(ctx, tools.ExecuteQueryParams{
		Query: query,
		Limit: tools.IntPtr(queryLimit),
	})
	if err != nil {
		return err
	}

	if queryOut != "" {
		size, err := exportQueryResult(resp, queryOut, queryOutFormat)
		if err != nil {
			return err
		}
		logger.Info(fmt.Sprintf("💾 Wrote %d rows to %s (%d bytes)", resp.RowCount, queryOut, size))
	}

	out := cmd.OutOrStdout()
	if sess.config.OutputFormat == "json" {
		return writeJSON(out, resp)
	}
	renderQuery(out, resp)
	return nil
}

// outputFormatFor picks the file format from an explicit flag or the file
// extension, defaulting to CSV.
func outputFormatFor(path, format string) string {
	if format != "" {
		return strings.ToLower(format)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".ndjson":
		return formatters.FormatJSONL
	case ".parquet":
		return formatters.FormatParquet
	default:
		return formatters.FormatCSV
	}
}

func exportQueryResult(resp *tools.QueryResponse, path, format string) (int64, error) {
	formatter, err := formatters.GetFormatter(outputFormatFor(path, format))
	if err != nil {
		return 0, &warehouse.ConfigurationError{Err: err}
	}
	data, err := formatter.Format(resp.Result)
	if err != nil {
		return 0, &formatters.IOError{Op: "encode", Path: path, Err: err}
	}
	return formatters.WriteFile(path, data)
}
