package warehouse

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/lib/pq"
)

const (
	postgresDefaultUser    = "postgres"
	postgresDefaultSSLMode = "require"
)

// PostgresDialect maps the warehouse settings onto a PostgreSQL server:
// the HTTP path names the database ("/analytics"), the access token is the
// password, and the catalog must equal the database name.
type PostgresDialect struct{}

// NewPostgresDialect creates a new PostgreSQL dialect
func NewPostgresDialect() *PostgresDialect {
	return &PostgresDialect{}
}

func (d *PostgresDialect) Name() string {
	return DriverPostgres
}

func (d *PostgresDialect) Open(cfg Config) (*sql.DB, error) {
	user := cfg.User
	if user == "" {
		user = postgresDefaultUser
	}
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = postgresDefaultSSLMode
	}

	host := cfg.host()
	if cfg.Port > 0 {
		host = net.JoinHostPort(host, strconv.Itoa(cfg.Port))
	}

	// lib/pq handles password escaping through the URL form
	dsn := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(user, cfg.AccessToken),
		Host:     host,
		Path:     cfg.HTTPPath,
		RawQuery: url.Values{"sslmode": []string{sslMode}}.Encode(),
	}

	return sql.Open("postgres", dsn.String())
}

func (d *PostgresDialect) QuoteIdentifier(name string) string {
	return pq.QuoteIdentifier(name)
}

// QualifiedName uses schema.table; the catalog is checked by DescribeTable.
func (d *PostgresDialect) QualifiedName(id TableIdentity) string {
	return pq.QuoteIdentifier(id.Schema) + "." + pq.QuoteIdentifier(id.Name)
}

func (d *PostgresDialect) DescribeTable(ctx context.Context, db queryer, id TableIdentity) ([]ColumnDescriptor, error) {
	query := `
		SELECT column_name, data_type
		FROM information_schema.columns
		WHERE table_catalog = $1 AND table_schema = $2 AND table_name = $3
		ORDER BY ordinal_position
	`

	rows, err := db.QueryContext(ctx, query, id.Catalog, id.Schema, id.Name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns := make([]ColumnDescriptor, 0)
	for rows.Next() {
		var col ColumnDescriptor
		if err := rows.Scan(&col.Name, &col.DataType); err != nil {
			return nil, err
		}
		columns = append(columns, col)
	}

	return columns, rows.Err()
}

// Orderable rejects the built-in types without a default btree operator class.
func (d *PostgresDialect) Orderable(dataType string) bool {
	switch strings.ToLower(strings.TrimSpace(dataType)) {
	case "json", "xml", "point", "line", "lseg", "box", "path", "polygon", "circle":
		return false
	}
	return true
}

func (d *PostgresDialect) IsTableNotFound(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// undefined_table, invalid_schema_name
		return pqErr.Code == "42P01" || pqErr.Code == "3F000"
	}
	return false
}

func (d *PostgresDialect) IsConnectionError(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// connection_exception class, plus invalid_password / invalid_authorization_specification
		return pqErr.Code.Class() == "08" || pqErr.Code == "28P01" || pqErr.Code == "28000"
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return strings.Contains(err.Error(), "dial tcp")
}
