package tools

import (
	"github.com/airframesio/databricks-mcp/cmd/comparator"
	"github.com/airframesio/databricks-mcp/cmd/warehouse"
)

const (
	DefaultLimit     = 1000
	DefaultDiffLines = 10
)

// Operation names as exposed to agents.
const (
	OpExecuteQuery       = "execute_query"
	OpGetTableInfo       = "get_table_info"
	OpCompareTables      = "compare_tables"
	OpQuickCompareTables = "quick_compare_tables"
)

// ExecuteQueryParams are the execute_query arguments. A nil Limit means DefaultLimit.
type ExecuteQueryParams struct {
	Query string `json:"query"`
	Limit *int   `json:"limit,omitempty"`
}

// TableInfoParams are the get_table_info arguments.
type TableInfoParams struct {
	TableName string `json:"table_name"`
	Catalog   string `json:"catalog,omitempty"`
	Schema    string `json:"schema,omitempty"`
}

// CompareParams are the compare_tables arguments. A nil DiffLines means DefaultDiffLines.
type CompareParams struct {
	Table1    string `json:"table1"`
	Table2    string `json:"table2"`
	Catalog1  string `json:"catalog1,omitempty"`
	Schema1   string `json:"schema1,omitempty"`
	Catalog2  string `json:"catalog2,omitempty"`
	Schema2   string `json:"schema2,omitempty"`
	DiffLines *int   `json:"diff_lines,omitempty"`
}

// QuickCompareParams are the quick_compare_tables arguments.
type QuickCompareParams struct {
	Table1   string `json:"table1"`
	Table2   string `json:"table2"`
	Catalog1 string `json:"catalog1,omitempty"`
	Schema1  string `json:"schema1,omitempty"`
	Catalog2 string `json:"catalog2,omitempty"`
	Schema2  string `json:"schema2,omitempty"`
}

func (p CompareParams) identities() (warehouse.TableIdentity, warehouse.TableIdentity) {
	return warehouse.TableIdentity{Catalog: p.Catalog1, Schema: p.Schema1, Name: p.Table1},
		warehouse.TableIdentity{Catalog: p.Catalog2, Schema: p.Schema2, Name: p.Table2}
}

func (p QuickCompareParams) identities() (warehouse.TableIdentity, warehouse.TableIdentity) {
	return warehouse.TableIdentity{Catalog: p.Catalog1, Schema: p.Schema1, Name: p.Table1},
		warehouse.TableIdentity{Catalog: p.Catalog2, Schema: p.Schema2, Name: p.Table2}
}

// QueryResponse is returned by execute_query.
type QueryResponse struct {
	Success   bool             `json:"success"`
	Query     string           `json:"query"`
	RowCount  int              `json:"row_count"`
	Columns   []string         `json:"columns"`
	Data      []map[string]any `json:"data"`
	Truncated bool             `json:"truncated"`

	// Result keeps the typed rows for renderers and exporters.
	Result *warehouse.QueryResult `json:"-"`
}

// TableInfoResponse is returned by get_table_info.
type TableInfoResponse struct {
	TableName string                       `json:"table_name"`
	Columns   []warehouse.ColumnDescriptor `json:"columns"`
	RowCount  int64                        `json:"row_count"`
}

func newTableInfoResponse(info *warehouse.TableInfo) TableInfoResponse {
	columns := info.Columns
	if columns == nil {
		columns = []warehouse.ColumnDescriptor{}
	}
	return TableInfoResponse{
		TableName: info.Table.FullName(),
		Columns:   columns,
		RowCount:  info.RowCount,
	}
}

// CompareResponse is returned by compare_tables.
type CompareResponse struct {
	Success        bool   `json:"success"`
	RunID          string `json:"run_id"`
	Table1         string `json:"table1"`
	Table2         string `json:"table2"`
	CSVPath1       string `json:"csv_path1"`
	CSVPath2       string `json:"csv_path2"`
	FileSize1      int64  `json:"file_size1"`
	FileSize2      int64  `json:"file_size2"`
	DiffOutput     string `json:"diff_output"`
	FilesIdentical bool   `json:"files_identical"`
	DiffCommand    string `json:"diff_command"`
	Hunks          int    `json:"hunks"`
	Truncated      bool   `json:"truncated"`
	TotalDiffLines int    `json:"total_diff_lines"`
	ContextLines   int    `json:"context_lines"`
	FetchLimit     int    `json:"fetch_limit"`
	Partial1       bool   `json:"partial1"`
	Partial2       bool   `json:"partial2"`
	SampleSize     int    `json:"sample_size,omitempty"`

	Result *comparator.FullResult `json:"-"`
}

// IdenticalOutput is the diff_output reported when the files do not differ.
const IdenticalOutput = "Files are identical"

func newCompareResponse(r *comparator.FullResult) CompareResponse {
	output := r.DiffText
	switch {
	case r.Identical && output == "":
		output = IdenticalOutput
	case r.Truncated:
		output += "\n" + r.TruncationNote()
	}

	return CompareResponse{
		Success:        true,
		RunID:          r.RunID,
		Table1:         r.Left.Table.FullName(),
		Table2:         r.Right.Table.FullName(),
		CSVPath1:       r.Left.Path,
		CSVPath2:       r.Right.Path,
		FileSize1:      r.Left.Size,
		FileSize2:      r.Right.Size,
		DiffOutput:     output,
		FilesIdentical: r.Identical,
		DiffCommand:    r.Command,
		Hunks:          r.Hunks,
		Truncated:      r.Truncated,
		TotalDiffLines: r.TotalDiffLines,
		ContextLines:   r.ContextLines,
		FetchLimit:     r.FetchLimit,
		Partial1:       r.Left.Partial,
		Partial2:       r.Right.Partial,
		SampleSize:     r.SampleSize,
		Result:         r,
	}
}

// QuickCompareResponse is returned by quick_compare_tables.
type QuickCompareResponse struct {
	Success                bool                      `json:"success"`
	Table1Info             TableInfoResponse         `json:"table1_info"`
	Table2Info             TableInfoResponse         `json:"table2_info"`
	RowCountDifference     int64                     `json:"row_count_difference"`
	ColumnCountDifference  int                       `json:"column_count_difference"`
	ColumnsMatch           bool                      `json:"columns_match"`
	RowCountsMatch         bool                      `json:"row_counts_match"`
	ColumnsMissingInTable1 []string                  `json:"columns_missing_in_table1"`
	ColumnsMissingInTable2 []string                  `json:"columns_missing_in_table2"`
	TypeMismatches         []comparator.TypeMismatch `json:"type_mismatches"`
}

func newQuickCompareResponse(r *comparator.QuickResult) QuickCompareResponse {
	return QuickCompareResponse{
		Success:                true,
		Table1Info:             newTableInfoResponse(r.Table1),
		Table2Info:             newTableInfoResponse(r.Table2),
		RowCountDifference:     r.RowCountDifference,
		ColumnCountDifference:  r.ColumnCountDifference,
		ColumnsMatch:           r.SchemasMatch,
		RowCountsMatch:         r.RowCountsMatch,
		ColumnsMissingInTable1: r.ColumnsMissingInTable1,
		ColumnsMissingInTable2: r.ColumnsMissingInTable2,
		TypeMismatches:         r.TypeMismatches,
	}
}
