package warehouse

// ColumnDescriptor describes one result column.
type ColumnDescriptor struct {
	Name     string `json:"col_name"`
	DataType string `json:"data_type"`
}

// QueryResult is the materialized outcome of one statement. Every row holds
// exactly len(Columns) values in column order.
type QueryResult struct {
	Statement string
	Columns   []ColumnDescriptor
	Rows      [][]any
	// Truncated is set when rows were dropped client-side to honour the limit.
	Truncated bool
}

// ColumnNames returns the column names in result order.
func (r *QueryResult) ColumnNames() []string {
	names := make([]string, len(r.Columns))
	for i, col := range r.Columns {
		names[i] = col.Name
	}
	return names
}

// RowCount returns the number of rows held by the result.
func (r *QueryResult) RowCount() int {
	return len(r.Rows)
}

// Records returns each row as a column-name keyed map.
func (r *QueryResult) Records() []map[string]any {
	records := make([]map[string]any, len(r.Rows))
	for i, row := range r.Rows {
		record := make(map[string]any, len(r.Columns))
		for j, col := range r.Columns {
			record[col.Name] = row[j]
		}
		records[i] = record
	}
	return records
}

// TableInfo is the metadata captured by Describe.
type TableInfo struct {
	Table    TableIdentity
	Columns  []ColumnDescriptor
	RowCount int64
}
