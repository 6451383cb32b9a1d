package tools

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/airframesio/databricks-mcp/cmd/comparator"
	"github.com/airframesio/databricks-mcp/cmd/warehouse"
)

// Warehouse is the client surface used by the service. *warehouse.Client
// satisfies it.
type Warehouse interface {
	comparator.Source
	Execute(ctx context.Context, query string, limit int) (*warehouse.QueryResult, error)
}

// Service implements the four operations shared by the CLI and the MCP
// server. Calls are serialized.
type Service struct {
	mu         sync.Mutex
	client     Warehouse
	comparator *comparator.Comparator
	retry      RetryPolicy
	logger     *slog.Logger
}

// NewService wires a service around an existing client and comparator.
func NewService(client Warehouse, cmp *comparator.Comparator, retry RetryPolicy, logger *slog.Logger) *Service {
	return &Service{
		client:     client,
		comparator: cmp,
		retry:      retry,
		logger:     logger,
	}
}

// ExecuteQuery runs an arbitrary statement and returns at most limit rows.
func (s *Service) ExecuteQuery(ctx context.Context, params ExecuteQueryParams) (*QueryResponse, error) {
	if strings.TrimSpace(params.Query) == "" {
		return nil, fmt.Errorf("%w: query", ErrMissingArgument)
	}
	limit := intOr(params.Limit, DefaultLimit)
	if limit <= 0 {
		return nil, fmt.Errorf("%w, got %d", ErrInvalidLimit, limit)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var result *warehouse.QueryResult
	err := s.retry.do(ctx, s.logger, OpExecuteQuery, func() error {
		var err error
		result, err = s.client.Execute(ctx, params.Query, limit)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(fmt.Sprintf("✅ Query returned %d rows", result.RowCount()))
	return &QueryResponse{
		Success:   true,
		Query:     result.Statement,
		RowCount:  result.RowCount(),
		Columns:   result.ColumnNames(),
		Data:      result.Records(),
		Truncated: result.Truncated,
		Result:    result,
	}, nil
}

// GetTableInfo describes a table.
func (s *Service) GetTableInfo(ctx context.Context, params TableInfoParams) (*TableInfoResponse, error) {
	if strings.TrimSpace(params.TableName) == "" {
		return nil, fmt.Errorf("%w: table_name", ErrMissingArgument)
	}
	id := warehouse.TableIdentity{Catalog: params.Catalog, Schema: params.Schema, Name: params.TableName}

	s.mu.Lock()
	defer s.mu.Unlock()

	var info *warehouse.TableInfo
	err := s.retry.do(ctx, s.logger, OpGetTableInfo, func() error {
		var err error
		info, err = s.client.Describe(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	resp := newTableInfoResponse(info)
	return &resp, nil
}

// CompareTables diffs the full contents of two tables.
func (s *Service) CompareTables(ctx context.Context, params CompareParams) (*CompareResponse, error) {
	if err := requireTables(params.Table1, params.Table2); err != nil {
		return nil, err
	}
	diffLines := intOr(params.DiffLines, DefaultDiffLines)
	if diffLines < 0 {
		return nil, fmt.Errorf("%w, got %d", ErrInvalidDiffLines, diffLines)
	}
	table1, table2 := params.identities()

	s.mu.Lock()
	defer s.mu.Unlock()

	var result *comparator.FullResult
	err := s.retry.do(ctx, s.logger, OpCompareTables, func() error {
		var err error
		result, err = s.comparator.Compare(ctx, table1, table2, diffLines)
		return err
	})
	if err != nil {
		return nil, err
	}

	resp := newCompareResponse(result)
	return &resp, nil
}

// QuickCompareTables compares row counts and column lists only.
func (s *Service) QuickCompareTables(ctx context.Context, params QuickCompareParams) (*QuickCompareResponse, error) {
	if err := requireTables(params.Table1, params.Table2); err != nil {
		return nil, err
	}
	table1, table2 := params.identities()

	s.mu.Lock()
	defer s.mu.Unlock()

	var result *comparator.QuickResult
	err := s.retry.do(ctx, s.logger, OpQuickCompareTables, func() error {
		var err error
		result, err = s.comparator.QuickCompare(ctx, table1, table2)
		return err
	})
	if err != nil {
		return nil, err
	}

	resp := newQuickCompareResponse(result)
	return &resp, nil
}

func requireTables(table1, table2 string) error {
	if strings.TrimSpace(table1) == "" {
		return fmt.Errorf("%w: table1", ErrMissingArgument)
	}
	if strings.TrimSpace(table2) == "" {
		return fmt.Errorf("%w: table2", ErrMissingArgument)
	}
	return nil
}

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

// IntPtr returns a pointer to v, for optional numeric parameters.
func IntPtr(v int) *int {
	return &v
}
