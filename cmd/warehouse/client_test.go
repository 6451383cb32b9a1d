package warehouse

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newMockClient(t *testing.T, dialect Dialect) (*Client, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewClientFromDB(db, dialect, Defaults{}, newTestLogger()), mock
}

func TestNewClientRejectsMissingConfig(t *testing.T) {
	_, err := NewClient(Config{HTTPPath: "/sql"}, newTestLogger())

	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, []string{EnvServerHostname, EnvAccessToken}, cfgErr.Missing)
}

func TestNewClientRejectsUnknownDriver(t *testing.T) {
	_, err := NewClient(Config{
		Driver:         "oracle",
		ServerHostname: "h",
		HTTPPath:       "/p",
		AccessToken:    "t",
	}, newTestLogger())

	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Error(), "oracle")
}

func TestExecute(t *testing.T) {
	ctx := context.Background()

	t.Run("ServerSideLimit", func(t *testing.T) {
		client, mock := newMockClient(t, NewDatabricksDialect())
		mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name FROM t LIMIT 2")).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
				AddRow(1, "a").
				AddRow(2, []byte("b")))

		result, err := client.Execute(ctx, "SELECT id, name FROM t;", 2)
		require.NoError(t, err)

		assert.Equal(t, "SELECT id, name FROM t LIMIT 2", result.Statement)
		assert.Equal(t, []string{"id", "name"}, result.ColumnNames())
		require.Len(t, result.Rows, 2)
		assert.Equal(t, "b", result.Rows[1][1], "byte slices are normalized to strings")
		assert.False(t, result.Truncated)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("ClientSideTruncation", func(t *testing.T) {
		client, mock := newMockClient(t, NewDatabricksDialect())
		rows := sqlmock.NewRows([]string{"tableName"})
		for _, name := range []string{"a", "b", "c", "d", "e"} {
			rows.AddRow(name)
		}
		mock.ExpectQuery(regexp.QuoteMeta("SHOW TABLES")).WillReturnRows(rows)

		result, err := client.Execute(ctx, "SHOW TABLES", 3)
		require.NoError(t, err)

		assert.Len(t, result.Rows, 3)
		assert.True(t, result.Truncated)
		assert.Equal(t, "a", result.Rows[0][0], "server order is preserved")
		assert.Equal(t, "c", result.Rows[2][0])
	})

	t.Run("LimitNeverExceeded", func(t *testing.T) {
		for _, limit := range []int{1, 2, 7, 10} {
			client, mock := newMockClient(t, NewDatabricksDialect())
			rows := sqlmock.NewRows([]string{"n"})
			for i := 0; i < 8; i++ {
				rows.AddRow(i)
			}
			// the mock ignores the LIMIT clause and returns every row
			mock.ExpectQuery("SELECT n FROM numbers").WillReturnRows(rows)

			result, err := client.Execute(ctx, "SELECT n FROM numbers", limit)
			require.NoError(t, err)
			assert.LessOrEqual(t, len(result.Rows), limit)
		}
	})

	t.Run("QueryErrorCarriesWarehouseText", func(t *testing.T) {
		client, mock := newMockClient(t, NewDatabricksDialect())
		warehouseMsg := "[PARSE_SYNTAX_ERROR] Syntax error at or near 'SELEC'. SQLSTATE: 42601"
		mock.ExpectQuery("SELEC").WillReturnError(errors.New(warehouseMsg))

		_, err := client.Execute(ctx, "SELEC * FROM t", 10)

		var queryErr *QueryError
		require.ErrorAs(t, err, &queryErr)
		assert.Equal(t, warehouseMsg, err.Error())
		assert.Equal(t, "SELEC * FROM t", queryErr.Statement)
	})

	t.Run("ConnectionFailure", func(t *testing.T) {
		client, mock := newMockClient(t, NewDatabricksDialect())
		mock.ExpectQuery("SELECT 1").
			WillReturnError(errors.New("dial tcp 10.0.0.1:443: connect: connection refused"))

		_, err := client.Execute(ctx, "SELECT 1", 10)

		var connErr *ConnectionError
		require.ErrorAs(t, err, &connErr)
	})

	t.Run("EmptyQuery", func(t *testing.T) {
		client, _ := newMockClient(t, NewDatabricksDialect())
		_, err := client.Execute(ctx, "   ", 10)
		require.ErrorIs(t, err, ErrEmptyQuery)
	})

	t.Run("ClosedClient", func(t *testing.T) {
		client, mock := newMockClient(t, NewDatabricksDialect())
		mock.ExpectClose()
		require.NoError(t, client.Close())

		_, err := client.Execute(ctx, "SELECT 1", 1)
		require.ErrorIs(t, err, ErrClientClosed)
	})
}

func TestDescribeDatabricks(t *testing.T) {
	ctx := context.Background()

	t.Run("ColumnsStopAtPartitionSection", func(t *testing.T) {
		client, mock := newMockClient(t, NewDatabricksDialect())
		mock.ExpectQuery(regexp.QuoteMeta("DESCRIBE TABLE `main`.`default`.`orders`")).
			WillReturnRows(sqlmock.NewRows([]string{"col_name", "data_type", "comment"}).
				AddRow("id", "bigint", nil).
				AddRow("region", "string", "sales region").
				AddRow("", "", "").
				AddRow("# Partition Information", "", "").
				AddRow("# col_name", "data_type", "comment").
				AddRow("region", "string", nil))
		mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) AS row_count FROM `main`.`default`.`orders`")).
			WillReturnRows(sqlmock.NewRows([]string{"row_count"}).AddRow(int64(42)))

		info, err := client.Describe(ctx, TableIdentity{Name: "orders"})
		require.NoError(t, err)

		assert.Equal(t, "main.default.orders", info.Table.FullName())
		assert.Equal(t, []ColumnDescriptor{
			{Name: "id", DataType: "bigint"},
			{Name: "region", DataType: "string"},
		}, info.Columns)
		assert.Equal(t, int64(42), info.RowCount)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("TableNotFoundUsesResolvedName", func(t *testing.T) {
		client, mock := newMockClient(t, NewDatabricksDialect())
		mock.ExpectQuery("DESCRIBE TABLE").
			WillReturnError(errors.New("[TABLE_OR_VIEW_NOT_FOUND] The table or view `main`.`default`.`ghost_table` cannot be found."))

		_, err := client.Describe(ctx, TableIdentity{Name: "ghost_table"})

		var notFound *TableNotFoundError
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, "main.default.ghost_table", notFound.Table)
		assert.Contains(t, err.Error(), "main.default.ghost_table")
	})

	t.Run("BacktickInNameIsEscaped", func(t *testing.T) {
		d := NewDatabricksDialect()
		got := d.QualifiedName(TableIdentity{Catalog: "main", Schema: "default", Name: "we`ird"})
		assert.Equal(t, "`main`.`default`.`we``ird`", got)
	})

	t.Run("MissingName", func(t *testing.T) {
		client, _ := newMockClient(t, NewDatabricksDialect())
		_, err := client.Describe(ctx, TableIdentity{})
		require.ErrorIs(t, err, ErrTableNameRequired)
	})
}

func TestDescribePostgres(t *testing.T) {
	ctx := context.Background()

	t.Run("InformationSchema", func(t *testing.T) {
		client, mock := newMockClient(t, NewPostgresDialect())
		mock.ExpectQuery("FROM information_schema.columns").
			WithArgs("main", "public", "orders").
			WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type"}).
				AddRow("id", "integer").
				AddRow("note", "text"))
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) AS row_count FROM "public"."orders"`)).
			WillReturnRows(sqlmock.NewRows([]string{"row_count"}).AddRow(int64(100)))

		info, err := client.Describe(ctx, TableIdentity{Schema: "public", Name: "orders"})
		require.NoError(t, err)
		assert.Len(t, info.Columns, 2)
		assert.Equal(t, int64(100), info.RowCount)
	})

	t.Run("NoColumnsMeansNotFound", func(t *testing.T) {
		client, mock := newMockClient(t, NewPostgresDialect())
		mock.ExpectQuery("FROM information_schema.columns").
			WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type"}))

		_, err := client.Describe(ctx, TableIdentity{Name: "ghost_table"})

		var notFound *TableNotFoundError
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, "main.default.ghost_table", notFound.Table)
	})

	t.Run("UndefinedTableCode", func(t *testing.T) {
		client, mock := newMockClient(t, NewPostgresDialect())
		mock.ExpectQuery("FROM information_schema.columns").
			WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type"}).AddRow("id", "integer"))
		mock.ExpectQuery("SELECT COUNT").
			WillReturnError(&pq.Error{Code: "42P01", Message: `relation "default.ghost" does not exist`})

		_, err := client.Describe(ctx, TableIdentity{Name: "ghost"})

		var notFound *TableNotFoundError
		require.ErrorAs(t, err, &notFound)
	})

	t.Run("ConnectionClassCode", func(t *testing.T) {
		d := NewPostgresDialect()
		assert.True(t, d.IsConnectionError(&pq.Error{Code: "08006"}))
		assert.False(t, d.IsConnectionError(&pq.Error{Code: "42601"}))
	})
}

func TestFetchTable(t *testing.T) {
	ctx := context.Background()
	client, mock := newMockClient(t, NewDatabricksDialect())

	columns := []ColumnDescriptor{{Name: "id", DataType: "int"}, {Name: "name", DataType: "string"}}
	mock.ExpectQuery(regexp.QuoteMeta("SELECT `id`, `name` FROM `main`.`default`.`t` ORDER BY 1, 2 LIMIT 500")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(1, "a"))

	result, err := client.FetchTable(ctx, TableIdentity{Name: "t"}, columns, 500, true)
	require.NoError(t, err)
	assert.Len(t, result.Rows, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFetchTableSkipsUnorderableColumns(t *testing.T) {
	ctx := context.Background()

	t.Run("MapColumn", func(t *testing.T) {
		client, mock := newMockClient(t, NewDatabricksDialect())
		columns := []ColumnDescriptor{
			{Name: "id", DataType: "int"},
			{Name: "m", DataType: "map<string,int>"},
			{Name: "name", DataType: "string"},
		}
		mock.ExpectQuery(regexp.QuoteMeta("SELECT `id`, `m`, `name` FROM `main`.`default`.`t` ORDER BY 1, 3 LIMIT 10")).
			WillReturnRows(sqlmock.NewRows([]string{"id", "m", "name"}).AddRow(1, `{"a":1}`, "a"))

		result, err := client.FetchTable(ctx, TableIdentity{Name: "t"}, columns, 10, true)
		require.NoError(t, err)
		assert.Len(t, result.Rows, 1)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("NoOrderableColumns", func(t *testing.T) {
		client, mock := newMockClient(t, NewDatabricksDialect())
		columns := []ColumnDescriptor{{Name: "v", DataType: "variant"}}
		mock.ExpectQuery(regexp.QuoteMeta("SELECT `v` FROM `main`.`default`.`t` LIMIT 10")).
			WillReturnRows(sqlmock.NewRows([]string{"v"}).AddRow("1"))

		_, err := client.FetchTable(ctx, TableIdentity{Name: "t"}, columns, 10, true)
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestOrderable(t *testing.T) {
	databricks := NewDatabricksDialect()
	for _, typ := range []string{"int", "string", "array<int>", "struct<a:int,b:string>", "timestamp", "decimal(10,2)"} {
		assert.True(t, databricks.Orderable(typ), typ)
	}
	for _, typ := range []string{"map<string,int>", "MAP<STRING,INT>", "variant", "array<map<string,int>>", "struct<a:int,b:map<string,int>>"} {
		assert.False(t, databricks.Orderable(typ), typ)
	}

	postgres := NewPostgresDialect()
	assert.True(t, postgres.Orderable("jsonb"))
	assert.True(t, postgres.Orderable("integer"))
	assert.False(t, postgres.Orderable("json"))
	assert.False(t, postgres.Orderable("point"))
}

func TestGetDialect(t *testing.T) {
	for _, name := range []string{"", "databricks", "DATABRICKS"} {
		d, err := GetDialect(name)
		require.NoError(t, err)
		assert.Equal(t, DriverDatabricks, d.Name())
	}

	d, err := GetDialect("postgresql")
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, d.Name())

	_, err = GetDialect("mysql")
	require.ErrorIs(t, err, ErrUnsupportedDriver)
}
