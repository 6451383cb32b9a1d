package cmd

import (
	"github.com/airframesio/databricks-mcp/cmd/tools"
	"github.com/spf13/cobra"
)

var (
	infoCatalog string
	infoSchema  string
)

var infoCmd = &cobra.Command{
	Use:   "info <table>",
	Short: "Show a table's columns and row count",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInfo(cmd, args[0])
	},
}

func init() {
	// Local flags shadow the global --catalog/--schema for this table only
	infoCmd.Flags().StringVar(&infoCatalog, "catalog", "", "catalog of the table")
	infoCmd.Flags().StringVar(&infoSchema, "schema", "", "schema of the table")
}

func runInfo(cmd *cobra.Command, table string) (err error) {
	defer recoverPanic(&err)

	ctx, stop := commandContext()
	defer stop()

	sess, err := newCommandSession()
	if err != nil {
		return err
	}
	defer sess.Close()

	resp, err := sess.service.GetTableInfo(ctx, tools.TableInfoParams{
		TableName: table,
		Catalog:   infoCatalog,
		Schema:    infoSchema,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if sess.config.OutputFormat == "json" {
		return writeJSON(out, resp)
	}
	renderTableInfo(out, resp)
	return nil
}
