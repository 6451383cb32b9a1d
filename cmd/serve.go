package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/airframesio/databricks-mcp/cmd/tools"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
)

const (
	serverName         = "DatabricksOperations"
	serverInstructions = "Provides tools to execute Databricks queries and compare table data."
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server on stdio",
	Long: `Run a Model Context Protocol server on stdin/stdout exposing execute_query,
get_table_info, compare_tables and quick_compare_tables. Logs go to stderr.`,
	Args: cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		return runServe()
	},
}

func runServe() (err error) {
	defer recoverPanic(&err)

	sess, err := newCommandSession()
	if err != nil {
		return err
	}
	defer sess.Close()

	ctx, stop := commandContext()
	defer stop()

	s := newMCPServer(sess.service, logger)
	stdio := server.NewStdioServer(s)
	stdio.SetErrorLogger(slog.NewLogLogger(logger.Handler(), slog.LevelError))

	logger.Info(fmt.Sprintf("🚀 %s %s listening on stdio", serverName, Version))
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// toolHandlers adapts the service operations to MCP tool calls
type toolHandlers struct {
	service *tools.Service
	logger  *slog.Logger
}

func newMCPServer(service *tools.Service, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer(
		serverName,
		Version,
		server.WithToolCapabilities(false),
		server.WithInstructions(serverInstructions),
	)

	h := &toolHandlers{service: service, logger: log}

	s.AddTool(mcp.NewTool(tools.OpExecuteQuery,
		mcp.WithDescription("Execute a SQL query on the Databricks warehouse and return the rows."),
		mcp.WithString("query", mcp.Required(), mcp.Description("SQL statement to execute")),
		mcp.WithNumber("limit", mcp.Description(fmt.Sprintf("Maximum rows to return (default %d)", tools.DefaultLimit))),
	), h.executeQuery)

	s.AddTool(mcp.NewTool(tools.OpGetTableInfo,
		mcp.WithDescription("Get the columns and row count of a table."),
		mcp.WithString("table_name", mcp.Required(), mcp.Description("Table name")),
		mcp.WithString("catalog", mcp.Description("Catalog name (defaults to the configured catalog)")),
		mcp.WithString("schema", mcp.Description("Schema name (defaults to the configured schema)")),
	), h.getTableInfo)

	s.AddTool(mcp.NewTool(tools.OpCompareTables,
		append(tablePairOptions("Compare the full contents of two tables and return a unified diff."),
			mcp.WithNumber("diff_lines", mcp.Description(fmt.Sprintf("Lines of context around each change (default %d)", tools.DefaultDiffLines))),
		)...,
	), h.compareTables)

	s.AddTool(mcp.NewTool(tools.OpQuickCompareTables,
		tablePairOptions("Compare row counts and column lists of two tables without fetching data.")...,
	), h.quickCompareTables)

	return s
}

func tablePairOptions(description string) []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithDescription(description),
		mcp.WithString("table1", mcp.Required(), mcp.Description("First table name")),
		mcp.WithString("table2", mcp.Required(), mcp.Description("Second table name")),
		mcp.WithString("catalog1", mcp.Description("Catalog of the first table")),
		mcp.WithString("schema1", mcp.Description("Schema of the first table")),
		mcp.WithString("catalog2", mcp.Description("Catalog of the second table")),
		mcp.WithString("schema2", mcp.Description("Schema of the second table")),
	}
}

// optionalInt distinguishes an absent argument from an explicit zero. null
// and values that are not integers count as absent.
func optionalInt(req mcp.CallToolRequest, key string) *int {
	if v, ok := req.GetArguments()[key]; !ok || v == nil {
		return nil
	}
	n, err := req.RequireInt(key)
	if err != nil {
		return nil
	}
	return tools.IntPtr(n)
}

// toolResult encodes a successful response as JSON text
func toolResult(v any) (*mcp.CallToolResult, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tool result: %w", err)
	}
	return mcp.NewToolResultText(string(body)), nil
}

type toolFailure struct {
	Success   bool            `json:"success"`
	Error     string          `json:"error"`
	ErrorKind tools.ErrorKind `json:"error_kind"`
}

// toolError reports a failed operation to the agent. Operation failures are
// tool results, not protocol errors.
func (h *toolHandlers) toolError(op string, err error) (*mcp.CallToolResult, error) {
	kind := tools.Classify(err)
	h.logger.Error(fmt.Sprintf("❌ %s failed: %v", op, err), "error_kind", string(kind))

	body, _ := json.Marshal(toolFailure{Success: false, Error: err.Error(), ErrorKind: kind})
	return mcp.NewToolResultError(string(body)), nil
}

func (h *toolHandlers) executeQuery(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resp, err := h.service.ExecuteQuery(ctx, tools.ExecuteQueryParams{
		Query: req.GetString("query", ""),
		Limit: optionalInt(req, "limit"),
	})
	if err != nil {
		return h.toolError(tools.OpExecuteQuery, err)
	}
	return toolResult(resp)
}

func (h *toolHandlers) getTableInfo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resp, err := h.service.GetTableInfo(ctx, tools.TableInfoParams{
		TableName: req.GetString("table_name", ""),
		Catalog:   req.GetString("catalog", ""),
		Schema:    req.GetString("schema", ""),
	})
	if err != nil {
		return h.toolError(tools.OpGetTableInfo, err)
	}
	return toolResult(resp)
}

func (h *toolHandlers) compareTables(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resp, err := h.service.CompareTables(ctx, tools.CompareParams{
		Table1:    req.GetString("table1", ""),
		Table2:    req.GetString("table2", ""),
		Catalog1:  req.GetString("catalog1", ""),
		Schema1:   req.GetString("schema1", ""),
		Catalog2:  req.GetString("catalog2", ""),
		Schema2:   req.GetString("schema2", ""),
		DiffLines: optionalInt(req, "diff_lines"),
	})
	if err != nil {
		return h.toolError(tools.OpCompareTables, err)
	}
	return toolResult(resp)
}

func (h *toolHandlers) quickCompareTables(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resp, err := h.service.QuickCompareTables(ctx, tools.QuickCompareParams{
		Table1:   req.GetString("table1", ""),
		Table2:   req.GetString("table2", ""),
		Catalog1: req.GetString("catalog1", ""),
		Schema1:  req.GetString("schema1", ""),
		Catalog2: req.GetString("catalog2", ""),
		Schema2:  req.GetString("schema2", ""),
	})
	if err != nil {
		return h.toolError(tools.OpQuickCompareTables, err)
	}
	return toolResult(resp)
}
