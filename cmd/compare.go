package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/airframesio/databricks-mcp/cmd/comparator"
	"github.com/airframesio/databricks-mcp/cmd/tools"
	"github.com/airframesio/databricks-mcp/cmd/warehouse"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	compareCatalog1 string
	compareSchema1  string
	compareCatalog2 string
	compareSchema2  string
	compareQuick    bool
	compareNoOrder  bool
	compareExport   bool
)

var compareCmd = &cobra.Command{
	Use:   "compare <table1> <table2>",
	Short: "Compare the contents of two tables",
	Long: `Compare two tables. By default both tables are exported to CSV snapshots
and a unified diff is printed. With --quick only row counts and column lists
are compared and no data is fetched.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCompare(cmd, args[0], args[1])
	},
}

func init() {
	compareCmd.Flags().StringVar(&compareCatalog1, "catalog1", "", "catalog of the first table")
	compareCmd.Flags().StringVar(&compareSchema1, "schema1", "", "schema of the first table")
	compareCmd.Flags().StringVar(&compareCatalog2, "catalog2", "", "catalog of the second table")
	compareCmd.Flags().StringVar(&compareSchema2, "schema2", "", "schema of the second table")
	compareCmd.Flags().BoolVar(&compareQuick, "quick", false, "compare row counts and columns only")
	compareCmd.Flags().Int("diff-lines", tools.DefaultDiffLines, "lines of context around each change")
	compareCmd.Flags().String("engine", "builtin", "diff engine: builtin, exec")
	compareCmd.Flags().Int("max-diff-lines", comparator.DefaultMaxDiffLines, "maximum diff lines to print (0 = all)")
	compareCmd.Flags().Int("fetch-limit", comparator.DefaultFetchLimit, "maximum rows fetched per table (0 = all)")
	compareCmd.Flags().BoolVar(&compareNoOrder, "no-order", false, "keep the warehouse's row order instead of sorting")
	compareCmd.Flags().Bool("sample", false, "diff progressively larger head samples before the full files")
	compareCmd.Flags().Bool("keep-snapshots", true, "keep the CSV snapshots after the diff")
	compareCmd.Flags().String("snapshot-compression", "none", "compress kept snapshots: none, gzip, zstd, lz4")
	compareCmd.Flags().BoolVar(&compareExport, "export", false, "upload snapshots and the result to S3")

	bindFlags(compareCmd, map[string]string{
		"compare.diff_lines":     "diff-lines",
		"compare.engine":         "engine",
		"compare.max_diff_lines": "max-diff-lines",
		"compare.fetch_limit":    "fetch-limit",
		"compare.sample":         "sample",
		"snapshot.keep":          "keep-snapshots",
		"snapshot.compression":   "snapshot-compression",
	}, false)
}

func runCompare(cmd *cobra.Command, table1, table2 string) (err error) {
	defer recoverPanic(&err)

	if compareNoOrder {
		viper.Set("compare.order_rows", false)
	}

	config, err := loadConfig()
	if err != nil {
		return err
	}
	if compareExport && !compareQuick {
		if err := config.ValidateExport(); err != nil {
			return &warehouse.ConfigurationError{Err: err}
		}
	}
	config.logConfig()

	sess, err := openSession(config, logger)
	if err != nil {
		return err
	}
	defer sess.Close()

	ctx, stop := commandContext()
	defer stop()

	out := cmd.OutOrStdout()

	if compareQuick {
		resp, err := sess.service.QuickCompareTables(ctx, tools.QuickCompareParams{
			Table1:   table1,
			Table2:   table2,
			Catalog1: compareCatalog1,
			Schema1:  compareSchema1,
			Catalog2: compareCatalog2,
			Schema2:  compareSchema2,
		})
		if err != nil {
			return err
		}
		if config.OutputFormat == "json" {
			return writeJSON(out, resp)
		}
		renderQuickCompare(out, resp)
		return nil
	}

	params := tools.CompareParams{
		Table1:    table1,
		Table2:    table2,
		Catalog1:  compareCatalog1,
		Schema1:   compareSchema1,
		Catalog2:  compareCatalog2,
		Schema2:   compareSchema2,
		DiffLines: tools.IntPtr(config.Compare.DiffLines),
	}

	var resp *tools.CompareResponse
	compare := func(ctx context.Context, observe comparator.Observer) error {
		sess.comparator.SetObserver(observe)
		var err error
		resp, err = sess.service.CompareTables(ctx, params)
		return err
	}

	if showProgress(config) {
		err = runWithProgress(ctx, fmt.Sprintf("Comparing %s with %s", table1, table2), compare)
	} else {
		err = compare(ctx, logObserver)
	}
	if err != nil {
		return err
	}

	if compareExport {
		if err := exportComparison(ctx, config, resp); err != nil {
			return err
		}
	}

	if config.OutputFormat == "json" {
		return writeJSON(out, resp)
	}
	renderCompare(out, resp, isTerminal(os.Stdout))
	if resp.Result != nil && resp.Result.Left.Retained {
		logger.Info(fmt.Sprintf("💾 Snapshots: %s (%s), %s (%s)",
			resp.CSVPath1, formatBytes(resp.FileSize1), resp.CSVPath2, formatBytes(resp.FileSize2)))
	}
	return nil
}

// showProgress enables the spinner only for interactive table output
func showProgress(config *Config) bool {
	return isTerminal(os.Stderr) && !config.Verbose && config.OutputFormat != "json"
}

// logObserver reports comparison phases through the logger when the
// progress view is disabled.
func logObserver(ev comparator.Event) {
	switch ev.Phase {
	case comparator.PhaseFetching, comparator.PhaseComparing:
		logger.Info(fmt.Sprintf("⏳ %s", ev.Message), "run_id", ev.RunID)
	case comparator.PhaseDone:
		logger.Info("✅ Comparison complete", "run_id", ev.RunID)
	}
}

func exportComparison(ctx context.Context, config *Config, resp *tools.CompareResponse) error {
	exporter, err := NewExporter(config.S3)
	if err != nil {
		return &warehouse.ConfigurationError{Err: err}
	}

	keys, err := exporter.Export(ctx, resp)
	if err != nil {
		return err
	}
	for _, key := range keys {
		logger.Info(fmt.Sprintf("☁️  Uploaded s3://%s/%s", config.S3.Bucket, key))
	}
	return nil
}
