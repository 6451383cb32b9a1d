package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// queryer is the subset of *sql.DB the dialects need.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Dialect captures what differs between warehouse backends.
type Dialect interface {
	// Name returns the driver name (databricks, postgres)
	Name() string

	// Open builds a database handle without connecting
	Open(cfg Config) (*sql.DB, error)

	// QuoteIdentifier quotes a single identifier part
	QuoteIdentifier(name string) string

	// QualifiedName renders a resolved identity for use in SQL text
	QualifiedName(id TableIdentity) string

	// DescribeTable returns the ordered column list, or an empty list when the
	// table does not exist and the backend does not raise an error for it
	DescribeTable(ctx context.Context, db queryer, id TableIdentity) ([]ColumnDescriptor, error)

	// Orderable reports whether a column of the described type may appear in
	// an ORDER BY clause
	Orderable(dataType string) bool

	// IsTableNotFound reports whether err means the table does not exist
	IsTableNotFound(err error) bool

	// IsConnectionError reports whether err is a transport failure
	IsConnectionError(err error) bool
}

// GetDialect returns the dialect for the given driver name
func GetDialect(driver string) (Dialect, error) {
	switch strings.ToLower(driver) {
	case "", DriverDatabricks:
		return NewDatabricksDialect(), nil
	case DriverPostgres, "postgresql":
		return NewPostgresDialect(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDriver, driver)
	}
}
