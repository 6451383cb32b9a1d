package warehouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	dbsql "github.com/databricks/databricks-sql-go"
	dbsqlerr "github.com/databricks/databricks-sql-go/errors"
)

const (
	databricksDefaultPort = 443
	sqlStateTableNotFound = "42P01"
)

// DatabricksDialect talks to a Databricks SQL warehouse through the
// official database/sql connector.
type DatabricksDialect struct{}

// NewDatabricksDialect creates a new Databricks dialect
func NewDatabricksDialect() *DatabricksDialect {
	return &DatabricksDialect{}
}

func (d *DatabricksDialect) Name() string {
	return DriverDatabricks
}

func (d *DatabricksDialect) Open(cfg Config) (*sql.DB, error) {
	port := cfg.Port
	if port == 0 {
		port = databricksDefaultPort
	}

	defaults := cfg.Defaults()
	connector, err := dbsql.NewConnector(
		dbsql.WithServerHostname(cfg.host()),
		dbsql.WithPort(port),
		dbsql.WithHTTPPath(cfg.HTTPPath),
		dbsql.WithAccessToken(cfg.AccessToken),
		dbsql.WithInitialNamespace(defaults.Catalog, defaults.Schema),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create databricks connector: %w", err)
	}

	return sql.OpenDB(connector), nil
}

// QuoteIdentifier wraps name in backticks, doubling embedded backticks
func (d *DatabricksDialect) QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (d *DatabricksDialect) QualifiedName(id TableIdentity) string {
	return d.QuoteIdentifier(id.Catalog) + "." + d.QuoteIdentifier(id.Schema) + "." + d.QuoteIdentifier(id.Name)
}

// DescribeTable runs DESCRIBE TABLE and keeps the leading column rows. The
// output continues with "# Partition Information" and similar sections after
// a blank row; those are not columns.
func (d *DatabricksDialect) DescribeTable(ctx context.Context, db queryer, id TableIdentity) ([]ColumnDescriptor, error) {
	rows, err := db.QueryContext(ctx, "DESCRIBE TABLE "+d.QualifiedName(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	if len(names) < 2 {
		return nil, fmt.Errorf("unexpected DESCRIBE TABLE output: %d columns", len(names))
	}

	values := make([]sql.NullString, len(names))
	ptrs := make([]any, len(names))
	for i := range values {
		ptrs[i] = &values[i]
	}

	columns := make([]ColumnDescriptor, 0)
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		name := strings.TrimSpace(values[0].String)
		if name == "" || strings.HasPrefix(name, "#") {
			break
		}
		columns = append(columns, ColumnDescriptor{
			Name:     name,
			DataType: strings.TrimSpace(values[1].String),
		})
	}

	return columns, rows.Err()
}

// Orderable rejects MAP and VARIANT, including when nested in an ARRAY or
// STRUCT.
func (d *DatabricksDialect) Orderable(dataType string) bool {
	t := strings.ToLower(strings.TrimSpace(dataType))
	if t == "map" || strings.HasPrefix(t, "map<") || strings.Contains(t, "<map<") ||
		strings.Contains(t, ":map<") || strings.Contains(t, " map<") {
		return false
	}
	return !strings.Contains(t, "variant")
}

func (d *DatabricksDialect) IsTableNotFound(err error) bool {
	var execErr dbsqlerr.DBExecutionError
	if errors.As(err, &execErr) && execErr.SqlState() == sqlStateTableNotFound {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "TABLE_OR_VIEW_NOT_FOUND") ||
		strings.Contains(msg, "SCHEMA_NOT_FOUND") ||
		strings.Contains(msg, "NO_SUCH_CATALOG_EXCEPTION")
}

func (d *DatabricksDialect) IsConnectionError(err error) bool {
	return errors.Is(err, dbsqlerr.RequestError)
}
