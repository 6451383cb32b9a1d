package warehouse

import (
	"errors"
	"fmt"
	"strings"
)

// Static errors for adapter usage mistakes
var (
	ErrTableNameRequired  = errors.New("table name is required")
	ErrEmptyQuery         = errors.New("query is empty")
	ErrUnsupportedDriver  = errors.New("unsupported warehouse driver")
	ErrClientClosed       = errors.New("warehouse client is closed")
	ErrUnexpectedRowCount = errors.New("count query returned no rows")
)

// ConfigurationError reports missing or invalid connection settings.
type ConfigurationError struct {
	Missing []string
	Reason  string
	Err     error
}

func (e *ConfigurationError) Error() string {
	switch {
	case len(e.Missing) > 0:
		return "Missing Databricks configuration: " + strings.Join(e.Missing, ", ")
	case e.Reason == "" && e.Err != nil:
		return "invalid configuration: " + e.Err.Error()
	default:
		return "invalid configuration: " + e.Reason
	}
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// ConnectionError reports a transport-level failure reaching the warehouse.
type ConnectionError struct {
	Host string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to connect to %s: %v", e.Host, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// QueryError reports a statement the warehouse rejected. Error returns the
// warehouse's own message unmodified.
type QueryError struct {
	Statement string
	Err       error
}

func (e *QueryError) Error() string {
	return e.Err.Error()
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// TableNotFoundError carries the fully-qualified resolved table name.
type TableNotFoundError struct {
	Table string
	Err   error
}

func (e *TableNotFoundError) Error() string {
	return "table not found: " + e.Table
}

func (e *TableNotFoundError) Unwrap() error {
	return e.Err
}

// isConnectionError checks if an error is due to a closed or broken connection
func isConnectionError(err error) bool {
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "bad connection") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "broken pipe") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "i/o timeout") ||
		strings.Contains(errStr, "sql: database is closed")
}
