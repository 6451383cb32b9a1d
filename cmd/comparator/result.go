package comparator

import (
	"fmt"

	"github.com/airframesio/databricks-mcp/cmd/warehouse"
)

// Kind tells the two comparison result shapes apart.
type Kind string

const (
	KindFull  Kind = "full"
	KindQuick Kind = "quick"
)

// Result is either a *FullResult or a *QuickResult.
type Result interface {
	Kind() Kind
	isResult()
}

// Snapshot is one side of a full comparison, materialized on local disk.
type Snapshot struct {
	Table   warehouse.TableIdentity
	Path    string
	Size    int64
	Columns []warehouse.ColumnDescriptor
	// Rows is the number of rows written; DescribedRows is the COUNT(*) seen
	// before the fetch.
	Rows          int
	DescribedRows int64
	// Partial is set when the fetch limit cut the table short.
	Partial  bool
	Retained bool
}

// FullResult is the outcome of a data diff between two tables.
type FullResult struct {
	RunID          string
	Left           Snapshot
	Right          Snapshot
	DiffText       string
	Identical      bool
	Command        string
	Hunks          int
	Truncated      bool
	TotalDiffLines int
	ContextLines   int
	FetchLimit     int
	// SampleSize is non-zero when the sampled strategy produced the diff.
	SampleSize int
}

func (*FullResult) Kind() Kind { return KindFull }
func (*FullResult) isResult()  {}

// TruncationNote describes how much of the diff was cut, or "" when nothing was.
func (r *FullResult) TruncationNote() string {
	if !r.Truncated {
		return ""
	}
	shown := len(splitLines(r.DiffText))
	return fmt.Sprintf("... (truncated %d more lines, showing first %d lines)", r.TotalDiffLines-shown, shown)
}

// TypeMismatch is a column present in both tables with different types.
type TypeMismatch struct {
	Column string `json:"column"`
	Type1  string `json:"type1"`
	Type2  string `json:"type2"`
}

// QuickResult compares table metadata only.
type QuickResult struct {
	Table1                 *warehouse.TableInfo
	Table2                 *warehouse.TableInfo
	SchemasMatch           bool
	RowCountsMatch         bool
	RowCountDifference     int64
	ColumnCountDifference  int
	ColumnsMissingInTable1 []string
	ColumnsMissingInTable2 []string
	TypeMismatches         []TypeMismatch
}

func (*QuickResult) Kind() Kind { return KindQuick }
func (*QuickResult) isResult()  {}
