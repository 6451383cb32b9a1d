package tools

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/airframesio/databricks-mcp/cmd/comparator"
	"github.com/airframesio/databricks-mcp/cmd/formatters"
	"github.com/airframesio/databricks-mcp/cmd/warehouse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newMockService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := newTestLogger()
	client := warehouse.NewClientFromDB(db, warehouse.NewDatabricksDialect(), warehouse.Defaults{}, logger)

	opts := comparator.DefaultOptions()
	opts.TempDir = t.TempDir()
	cmp := comparator.New(client, comparator.NewBuiltinDiff(), opts, logger)

	return NewService(client, cmp, RetryPolicy{}, logger), mock
}

func expectTable(mock sqlmock.Sqlmock, name string, count int64, rows [][]string) {
	qualified := fmt.Sprintf("`main`.`default`.`%s`", name)

	mock.ExpectQuery(regexp.QuoteMeta("DESCRIBE TABLE " + qualified)).
		WillReturnRows(sqlmock.NewRows([]string{"col_name", "data_type", "comment"}).
			AddRow("id", "int", nil).
			AddRow("name", "string", nil))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) AS row_count FROM " + qualified)).
		WillReturnRows(sqlmock.NewRows([]string{"row_count"}).AddRow(count))

	if rows == nil {
		return
	}
	data := sqlmock.NewRows([]string{"id", "name"})
	for _, r := range rows {
		data.AddRow(r[0], r[1])
	}
	mock.ExpectQuery(regexp.QuoteMeta("SELECT `id`, `name` FROM " + qualified + " ORDER BY 1, 2 LIMIT 1000000")).
		WillReturnRows(data)
}

func TestExecuteQuery(t *testing.T) {
	ctx := context.Background()

	t.Run("DefaultLimit", func(t *testing.T) {
		svc, mock := newMockService(t)
		mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM test_table LIMIT 1000")).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(1, "test").AddRow(2, "example"))

		resp, err := svc.ExecuteQuery(ctx, ExecuteQueryParams{Query: "SELECT * FROM test_table"})
		require.NoError(t, err)

		assert.True(t, resp.Success)
		assert.Equal(t, "SELECT * FROM test_table LIMIT 1000", resp.Query)
		assert.Equal(t, 2, resp.RowCount)
		assert.Equal(t, []string{"id", "name"}, resp.Columns)
		assert.Equal(t, "example", resp.Data[1]["name"])
	})

	t.Run("NeverExceedsLimit", func(t *testing.T) {
		svc, mock := newMockService(t)
		rows := sqlmock.NewRows([]string{"database"})
		for i := 0; i < 6; i++ {
			rows.AddRow(fmt.Sprintf("db%d", i))
		}
		mock.ExpectQuery("SHOW DATABASES").WillReturnRows(rows)

		resp, err := svc.ExecuteQuery(ctx, ExecuteQueryParams{Query: "SHOW DATABASES", Limit: IntPtr(4)})
		require.NoError(t, err)
		assert.Equal(t, 4, resp.RowCount)
		assert.True(t, resp.Truncated)
	})

	t.Run("InvalidLimit", func(t *testing.T) {
		svc, _ := newMockService(t)
		_, err := svc.ExecuteQuery(ctx, ExecuteQueryParams{Query: "SELECT 1", Limit: IntPtr(0)})

		require.ErrorIs(t, err, ErrInvalidLimit)
		assert.Equal(t, KindInvalidInput, Classify(err))
	})

	t.Run("InvalidSQL", func(t *testing.T) {
		svc, mock := newMockService(t)
		mock.ExpectQuery("SELEC").
			WillReturnError(errors.New("[PARSE_SYNTAX_ERROR] Syntax error at or near 'SELEC'"))

		_, err := svc.ExecuteQuery(ctx, ExecuteQueryParams{Query: "SELEC 1"})

		var queryErr *warehouse.QueryError
		require.ErrorAs(t, err, &queryErr)
		assert.Contains(t, err.Error(), "PARSE_SYNTAX_ERROR")
		assert.Equal(t, ExitQuery, ExitCode(err))
	})

	t.Run("EmptyQuery", func(t *testing.T) {
		svc, _ := newMockService(t)
		_, err := svc.ExecuteQuery(ctx, ExecuteQueryParams{Query: "  "})
		require.ErrorIs(t, err, ErrMissingArgument)
	})
}

func TestGetTableInfo(t *testing.T) {
	ctx := context.Background()

	t.Run("Found", func(t *testing.T) {
		svc, mock := newMockService(t)
		expectTable(mock, "orders", 1000, nil)

		resp, err := svc.GetTableInfo(ctx, TableInfoParams{TableName: "orders"})
		require.NoError(t, err)

		assert.Equal(t, "main.default.orders", resp.TableName)
		assert.Equal(t, int64(1000), resp.RowCount)
		assert.Equal(t, []warehouse.ColumnDescriptor{{Name: "id", DataType: "int"}, {Name: "name", DataType: "string"}}, resp.Columns)
	})

	t.Run("GhostTable", func(t *testing.T) {
		svc, mock := newMockService(t)
		mock.ExpectQuery("DESCRIBE TABLE").
			WillReturnError(errors.New("[TABLE_OR_VIEW_NOT_FOUND] The table or view cannot be found"))

		_, err := svc.GetTableInfo(ctx, TableInfoParams{TableName: "ghost_table"})

		var notFound *warehouse.TableNotFoundError
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, "main.default.ghost_table", notFound.Table)
		assert.Equal(t, ExitTableNotFound, ExitCode(err))
	})
}

func TestCompareTables(t *testing.T) {
	ctx := context.Background()

	t.Run("OneChangedRow", func(t *testing.T) {
		svc, mock := newMockService(t)
		expectTable(mock, "t1", 2, [][]string{{"1", "a"}, {"2", "b"}})
		expectTable(mock, "t2", 2, [][]string{{"1", "a"}, {"2", "c"}})

		resp, err := svc.CompareTables(ctx, CompareParams{Table1: "t1", Table2: "t2"})
		require.NoError(t, err)

		assert.False(t, resp.FilesIdentical)
		assert.Equal(t, 1, resp.Hunks)
		assert.Equal(t, DefaultDiffLines, resp.ContextLines)
		assert.Contains(t, resp.DiffOutput, "-2,b\n+2,c\n")
		assert.Equal(t, "main.default.t1", resp.Table1)
		assert.FileExists(t, resp.CSVPath1)

		info, err := os.Stat(resp.CSVPath2)
		require.NoError(t, err)
		assert.Equal(t, info.Size(), resp.FileSize2)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("SameTable", func(t *testing.T) {
		svc, mock := newMockService(t)
		rows := [][]string{{"1", "a"}, {"2", "b"}}
		expectTable(mock, "t1", 2, rows)
		expectTable(mock, "t1", 2, rows)

		resp, err := svc.CompareTables(ctx, CompareParams{Table1: "t1", Table2: "t1", DiffLines: IntPtr(0)})
		require.NoError(t, err)

		assert.True(t, resp.FilesIdentical)
		assert.Zero(t, resp.Hunks)
		assert.Equal(t, IdenticalOutput, resp.DiffOutput)
	})

	t.Run("NegativeDiffLines", func(t *testing.T) {
		svc, _ := newMockService(t)
		_, err := svc.CompareTables(ctx, CompareParams{Table1: "a", Table2: "b", DiffLines: IntPtr(-1)})
		require.ErrorIs(t, err, ErrInvalidDiffLines)
	})

	t.Run("MissingTable2", func(t *testing.T) {
		svc, _ := newMockService(t)
		_, err := svc.CompareTables(ctx, CompareParams{Table1: "a"})
		require.ErrorIs(t, err, ErrMissingArgument)
	})
}

func TestQuickCompareTables(t *testing.T) {
	svc, mock := newMockService(t)
	expectTable(mock, "small", 100, nil)
	expectTable(mock, "large", 150, nil)

	resp, err := svc.QuickCompareTables(context.Background(), QuickCompareParams{Table1: "small", Table2: "large"})
	require.NoError(t, err)

	assert.True(t, resp.ColumnsMatch)
	assert.False(t, resp.RowCountsMatch)
	assert.Equal(t, int64(-50), resp.RowCountDifference)
	assert.Equal(t, "main.default.large", resp.Table2Info.TableName)
	assert.Empty(t, resp.ColumnsMissingInTable1)
	require.NoError(t, mock.ExpectationsWereMet())
}

// flakyWarehouse fails Execute with the queued errors before succeeding.
type flakyWarehouse struct {
	errs  []error
	calls int
}

func (w *flakyWarehouse) Resolve(id warehouse.TableIdentity) warehouse.TableIdentity {
	return warehouse.Resolve(id, warehouse.Defaults{})
}

func (w *flakyWarehouse) Describe(context.Context, warehouse.TableIdentity) (*warehouse.TableInfo, error) {
	return nil, errors.New("not used")
}

func (w *flakyWarehouse) FetchTable(context.Context, warehouse.TableIdentity, []warehouse.ColumnDescriptor, int, bool) (*warehouse.QueryResult, error) {
	return nil, errors.New("not used")
}

func (w *flakyWarehouse) Execute(_ context.Context, query string, _ int) (*warehouse.QueryResult, error) {
	w.calls++
	if len(w.errs) > 0 {
		err := w.errs[0]
		w.errs = w.errs[1:]
		return nil, err
	}
	return &warehouse.QueryResult{Statement: query, Columns: []warehouse.ColumnDescriptor{{Name: "x"}}, Rows: [][]any{{1}}}, nil
}

func TestRetryPolicy(t *testing.T) {
	ctx := context.Background()
	connErr := &warehouse.ConnectionError{Host: "h", Err: errors.New("connection refused")}

	t.Run("RetriesConnectionErrors", func(t *testing.T) {
		wh := &flakyWarehouse{errs: []error{connErr, connErr}}
		svc := NewService(wh, nil, RetryPolicy{Attempts: 2}, newTestLogger())

		resp, err := svc.ExecuteQuery(ctx, ExecuteQueryParams{Query: "SELECT 1"})
		require.NoError(t, err)
		assert.Equal(t, 1, resp.RowCount)
		assert.Equal(t, 3, wh.calls)
	})

	t.Run("GivesUpAfterAttempts", func(t *testing.T) {
		wh := &flakyWarehouse{errs: []error{connErr, connErr}}
		svc := NewService(wh, nil, RetryPolicy{Attempts: 1}, newTestLogger())

		_, err := svc.ExecuteQuery(ctx, ExecuteQueryParams{Query: "SELECT 1"})
		assert.Equal(t, ExitConnection, ExitCode(err))
		assert.Equal(t, 2, wh.calls)
	})

	t.Run("NoRetryByDefault", func(t *testing.T) {
		wh := &flakyWarehouse{errs: []error{connErr}}
		svc := NewService(wh, nil, RetryPolicy{}, newTestLogger())

		_, err := svc.ExecuteQuery(ctx, ExecuteQueryParams{Query: "SELECT 1"})
		require.Error(t, err)
		assert.Equal(t, 1, wh.calls)
	})

	t.Run("QueryErrorsAreNotRetried", func(t *testing.T) {
		wh := &flakyWarehouse{errs: []error{&warehouse.QueryError{Statement: "SELECT 1", Err: errors.New("bad")}}}
		svc := NewService(wh, nil, RetryPolicy{Attempts: 3}, newTestLogger())

		_, err := svc.ExecuteQuery(ctx, ExecuteQueryParams{Query: "SELECT 1"})
		require.Error(t, err)
		assert.Equal(t, 1, wh.calls)
	})
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"configuration", &warehouse.ConfigurationError{Missing: []string{warehouse.EnvAccessToken}}, ExitConfiguration},
		{"connection", &warehouse.ConnectionError{Host: "h", Err: errors.New("x")}, ExitConnection},
		{"query", &warehouse.QueryError{Err: errors.New("x")}, ExitQuery},
		{"not found", &warehouse.TableNotFoundError{Table: "main.default.t"}, ExitTableNotFound},
		{"io", &formatters.IOError{Op: "write", Path: "/x", Err: errors.New("x")}, ExitIO},
		{"diff tool", &comparator.DiffToolError{Command: "diff", ExitCode: 2}, ExitDiffTool},
		{"wrapped not found", fmt.Errorf("compare: %w", &warehouse.TableNotFoundError{Table: "t"}), ExitTableNotFound},
		{"interrupted", context.Canceled, ExitInterrupted},
		{"invalid input", ErrInvalidLimit, ExitConfiguration},
		{"unexpected", errors.New("boom"), ExitUnexpected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}
