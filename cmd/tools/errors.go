package tools

import (
	"context"
	"errors"

	"github.com/airframesio/databricks-mcp/cmd/comparator"
	"github.com/airframesio/databricks-mcp/cmd/formatters"
	"github.com/airframesio/databricks-mcp/cmd/warehouse"
)

var (
	// ErrInvalidLimit is returned when limit is zero or negative
	ErrInvalidLimit = errors.New("limit must be greater than 0")
	// ErrInvalidDiffLines is returned when diff_lines is negative
	ErrInvalidDiffLines = errors.New("diff_lines must be 0 or greater")
	// ErrMissingArgument is returned when a required argument is empty
	ErrMissingArgument = errors.New("missing required argument")
)

// ErrorKind groups errors by how they are reported.
type ErrorKind string

const (
	KindNone          ErrorKind = ""
	KindInvalidInput  ErrorKind = "invalid_input"
	KindConfiguration ErrorKind = "configuration"
	KindConnection    ErrorKind = "connection"
	KindQuery         ErrorKind = "query"
	KindTableNotFound ErrorKind = "table_not_found"
	KindIO            ErrorKind = "io"
	KindDiffTool      ErrorKind = "diff_tool"
	KindInterrupted   ErrorKind = "interrupted"
	KindUnexpected    ErrorKind = "unexpected"
)

// Exit codes used by the CLI.
const (
	ExitOK            = 0
	ExitUnexpected    = 1
	ExitConfiguration = 2
	ExitConnection    = 3
	ExitQuery         = 4
	ExitTableNotFound = 5
	ExitIO            = 6
	ExitDiffTool      = 7
	ExitInterrupted   = 130
)

// Classify maps err onto an ErrorKind.
func Classify(err error) ErrorKind {
	var (
		cfgErr      *warehouse.ConfigurationError
		connErr     *warehouse.ConnectionError
		queryErr    *warehouse.QueryError
		notFoundErr *warehouse.TableNotFoundError
		ioErr       *formatters.IOError
		toolErr     *comparator.DiffToolError
	)

	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, context.Canceled):
		return KindInterrupted
	case errors.As(err, &cfgErr):
		return KindConfiguration
	case errors.As(err, &notFoundErr):
		return KindTableNotFound
	case errors.As(err, &connErr):
		return KindConnection
	case errors.As(err, &queryErr):
		return KindQuery
	case errors.As(err, &ioErr):
		return KindIO
	case errors.As(err, &toolErr):
		return KindDiffTool
	case errors.Is(err, ErrInvalidLimit),
		errors.Is(err, ErrInvalidDiffLines),
		errors.Is(err, ErrMissingArgument),
		errors.Is(err, warehouse.ErrEmptyQuery),
		errors.Is(err, warehouse.ErrTableNameRequired),
		errors.Is(err, comparator.ErrNegativeContext):
		return KindInvalidInput
	default:
		return KindUnexpected
	}
}

// ExitCode returns the process exit status for err.
func ExitCode(err error) int {
	switch Classify(err) {
	case KindNone:
		return ExitOK
	case KindConfiguration, KindInvalidInput:
		return ExitConfiguration
	case KindConnection:
		return ExitConnection
	case KindQuery:
		return ExitQuery
	case KindTableNotFound:
		return ExitTableNotFound
	case KindIO:
		return ExitIO
	case KindDiffTool:
		return ExitDiffTool
	case KindInterrupted:
		return ExitInterrupted
	default:
		return ExitUnexpected
	}
}
