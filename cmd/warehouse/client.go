package warehouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

const queryLogLength = 100

// Client owns the single warehouse connection for the process. The
// connection is opened on first use and reused until Close. A Client must
// not be used by concurrent operations; callers that need concurrency open
// one Client each.
type Client struct {
	dialect  Dialect
	defaults Defaults
	host     string
	timeout  time.Duration
	logger   *slog.Logger
	open     func() (*sql.DB, error)
	db       *sql.DB
	closed   bool
}

// NewClient validates cfg and prepares a client. It does not connect.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	dialect, err := GetDialect(cfg.Driver)
	if err != nil {
		return nil, &ConfigurationError{Reason: err.Error()}
	}

	return &Client{
		dialect:  dialect,
		defaults: cfg.Defaults(),
		host:     cfg.host(),
		timeout:  cfg.QueryTimeout,
		logger:   logger,
		open: func() (*sql.DB, error) {
			return dialect.Open(cfg)
		},
	}, nil
}

// NewClientFromDB wraps an already opened handle.
func NewClientFromDB(db *sql.DB, dialect Dialect, defaults Defaults, logger *slog.Logger) *Client {
	return &Client{
		dialect:  dialect,
		defaults: defaults.normalize(),
		host:     dialect.Name(),
		logger:   logger,
		db:       db,
	}
}

// Defaults returns the namespace defaults applied by Resolve.
func (c *Client) Defaults() Defaults {
	return c.defaults
}

// Dialect returns the backend dialect in use.
func (c *Client) Dialect() Dialect {
	return c.dialect
}

// Resolve applies the client's configured defaults to id.
func (c *Client) Resolve(id TableIdentity) TableIdentity {
	return Resolve(id, c.defaults)
}

// Close releases the connection. The client cannot be reused afterwards.
func (c *Client) Close() error {
	c.closed = true
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	return err
}

func (c *Client) conn(ctx context.Context) (*sql.DB, error) {
	if c.closed {
		return nil, ErrClientClosed
	}
	if c.db != nil {
		return c.db, nil
	}

	c.logger.Debug(fmt.Sprintf("🔌 Connecting to %s warehouse at %s", c.dialect.Name(), c.host))

	db, err := c.open()
	if err != nil {
		return nil, &ConnectionError{Host: c.host, Err: err}
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &ConnectionError{Host: c.host, Err: err}
	}

	c.db = db
	c.logger.Debug("✅ Connected")
	return db, nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout > 0 {
		return context.WithTimeout(ctx, c.timeout)
	}
	return context.WithCancel(ctx)
}

// Execute runs query and returns at most limit rows (limit <= 0 means no
// limit). SELECT/WITH statements get a server-side LIMIT when they do not
// carry one; rows past the limit are always dropped client-side.
func (c *Client) Execute(ctx context.Context, query string, limit int) (*QueryResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	statement := ApplyLimit(query, limit)
	result, err := c.query(ctx, statement, limit)
	if err != nil {
		return nil, c.classify(statement, err)
	}
	return result, nil
}

// Describe resolves id and returns its columns and row count.
func (c *Client) Describe(ctx context.Context, id TableIdentity) (*TableInfo, error) {
	resolved := c.Resolve(id)
	if resolved.Name == "" {
		return nil, ErrTableNameRequired
	}

	db, err := c.conn(ctx)
	if err != nil {
		return nil, err
	}

	qctx, cancel := c.withTimeout(ctx)
	defer cancel()

	c.logger.Debug(fmt.Sprintf("🔍 Describing %s", resolved.FullName()))
	columns, err := c.dialect.DescribeTable(qctx, db, resolved)
	if err != nil {
		return nil, c.classifyTable(resolved, "DESCRIBE "+resolved.FullName(), err)
	}
	if len(columns) == 0 {
		return nil, &TableNotFoundError{Table: resolved.FullName()}
	}

	count, err := c.CountRows(ctx, resolved)
	if err != nil {
		return nil, err
	}

	return &TableInfo{
		Table:    resolved,
		Columns:  columns,
		RowCount: count,
	}, nil
}

// CountRows returns SELECT COUNT(*) for the resolved table.
func (c *Client) CountRows(ctx context.Context, id TableIdentity) (int64, error) {
	resolved := c.Resolve(id)

	db, err := c.conn(ctx)
	if err != nil {
		return 0, err
	}

	qctx, cancel := c.withTimeout(ctx)
	defer cancel()

	statement := "SELECT COUNT(*) AS row_count FROM " + c.dialect.QualifiedName(resolved)
	var count int64
	if err := db.QueryRowContext(qctx, statement).Scan(&count); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrUnexpectedRowCount
		}
		return 0, c.classifyTable(resolved, statement, err)
	}

	return count, nil
}

// FetchTable reads the table's rows in column order. When ordered is set the
// rows are sorted by every orderable column so the result does not depend on
// scan order. limit <= 0 fetches everything.
func (c *Client) FetchTable(ctx context.Context, id TableIdentity, columns []ColumnDescriptor, limit int, ordered bool) (*QueryResult, error) {
	resolved := c.Resolve(id)

	selectList := "*"
	if len(columns) > 0 {
		quoted := make([]string, len(columns))
		for i, col := range columns {
			quoted[i] = c.dialect.QuoteIdentifier(col.Name)
		}
		selectList = strings.Join(quoted, ", ")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", selectList, c.dialect.QualifiedName(resolved))
	if ordered {
		var positions []string
		for i, col := range columns {
			if !c.dialect.Orderable(col.DataType) {
				c.logger.Debug(fmt.Sprintf("Column %s (%s) left out of ORDER BY", col.Name, col.DataType))
				continue
			}
			positions = append(positions, strconv.Itoa(i+1))
		}
		if len(positions) > 0 {
			fmt.Fprintf(&b, " ORDER BY %s", strings.Join(positions, ", "))
		}
	}
	if limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", limit)
	}

	statement := b.String()
	result, err := c.query(ctx, statement, limit)
	if err != nil {
		return nil, c.classifyTable(resolved, statement, err)
	}
	return result, nil
}

func (c *Client) query(ctx context.Context, statement string, limit int) (*QueryResult, error) {
	db, err := c.conn(ctx)
	if err != nil {
		return nil, err
	}

	qctx, cancel := c.withTimeout(ctx)
	defer cancel()

	c.logger.Debug(fmt.Sprintf("📝 Executing query: %s", truncateForLog(statement)))
	start := time.Now()

	rows, err := db.QueryContext(qctx, statement)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result, err := scanRows(rows, limit)
	if err != nil {
		return nil, err
	}
	result.Statement = statement

	c.logger.Debug(fmt.Sprintf("✅ Query returned %d rows in %s", len(result.Rows), time.Since(start).Round(time.Millisecond)))
	return result, nil
}

func scanRows(rows *sql.Rows, limit int) (*QueryResult, error) {
	names, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	result := &QueryResult{
		Columns: make([]ColumnDescriptor, len(names)),
		Rows:    make([][]any, 0),
	}
	for i, name := range names {
		result.Columns[i] = ColumnDescriptor{Name: name}
	}
	if types, err := rows.ColumnTypes(); err == nil && len(types) == len(names) {
		for i, t := range types {
			result.Columns[i].DataType = strings.ToLower(t.DatabaseTypeName())
		}
	}

	values := make([]any, len(names))
	ptrs := make([]any, len(names))
	for i := range values {
		ptrs[i] = &values[i]
	}

	for rows.Next() {
		if limit > 0 && len(result.Rows) == limit {
			result.Truncated = true
			break
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make([]any, len(values))
		for i, v := range values {
			row[i] = normalizeValue(v)
		}
		result.Rows = append(result.Rows, row)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func normalizeValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

// classify maps a driver error onto the adapter's error taxonomy.
func (c *Client) classify(statement string, err error) error {
	var connErr *ConnectionError
	var queryErr *QueryError
	switch {
	case errors.As(err, &connErr), errors.As(err, &queryErr):
		return err
	case errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, ErrClientClosed):
		return err
	case c.dialect.IsConnectionError(err) || isConnectionError(err):
		return &ConnectionError{Host: c.host, Err: err}
	default:
		return &QueryError{Statement: statement, Err: err}
	}
}

func (c *Client) classifyTable(id TableIdentity, statement string, err error) error {
	if c.dialect.IsTableNotFound(err) {
		return &TableNotFoundError{Table: id.FullName(), Err: err}
	}
	return c.classify(statement, err)
}

func truncateForLog(query string) string {
	query = strings.Join(strings.Fields(query), " ")
	if len(query) > queryLogLength {
		return query[:queryLogLength] + "..."
	}
	return query
}
