package comparator

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/airframesio/databricks-mcp/cmd/compressors"
	"github.com/airframesio/databricks-mcp/cmd/formatters"
	"github.com/airframesio/databricks-mcp/cmd/warehouse"
	"github.com/google/uuid"
)

// DefaultFetchLimit caps the rows fetched per table for a full comparison.
const DefaultFetchLimit = 1_000_000

// DefaultMaxDiffLines caps the diff text returned by Compare.
const DefaultMaxDiffLines = 200

// Source is the warehouse access the comparator needs. *warehouse.Client
// satisfies it.
type Source interface {
	Resolve(id warehouse.TableIdentity) warehouse.TableIdentity
	Describe(ctx context.Context, id warehouse.TableIdentity) (*warehouse.TableInfo, error)
	FetchTable(ctx context.Context, id warehouse.TableIdentity, columns []warehouse.ColumnDescriptor, limit int, ordered bool) (*warehouse.QueryResult, error)
}

// Phase is a step of a comparison run.
type Phase string

const (
	PhaseFetching  Phase = "FETCHING"
	PhaseComparing Phase = "COMPARING"
	PhaseDone      Phase = "DONE"
	PhaseFailed    Phase = "FAILED"
)

// Event is sent to the Observer whenever a run changes phase or finishes a step.
type Event struct {
	RunID   string
	Phase   Phase
	Message string
	Err     error
}

// Observer receives progress events. It is called synchronously.
type Observer func(Event)

// Options configure a Comparator.
type Options struct {
	TempDir string
	// FetchLimit is the per-table row cap; 0 fetches everything.
	FetchLimit int
	// OrderRows sorts each table by all of its columns before writing.
	OrderRows bool
	// MaxDiffLines caps the returned diff text; 0 keeps everything.
	MaxDiffLines  int
	KeepSnapshots bool
	// Compression is applied to retained snapshots; nil keeps plain CSV.
	Compression      compressors.StreamingCompressor
	CompressionLevel int
}

// DefaultOptions returns the options used when nothing is configured
func DefaultOptions() Options {
	return Options{
		TempDir:       DefaultTempDir(),
		FetchLimit:    DefaultFetchLimit,
		OrderRows:     true,
		MaxDiffLines:  DefaultMaxDiffLines,
		KeepSnapshots: true,
	}
}

// DefaultTempDir is the scratch directory used when none is configured.
func DefaultTempDir() string {
	return filepath.Join(os.TempDir(), "databricks_mcp")
}

// Comparator runs full and quick table comparisons.
type Comparator struct {
	source   Source
	engine   DiffEngine
	opts     Options
	logger   *slog.Logger
	observer Observer
}

// New creates a comparator. A nil engine is allowed for quick comparisons only.
func New(source Source, engine DiffEngine, opts Options, logger *slog.Logger) *Comparator {
	if opts.TempDir == "" {
		opts.TempDir = DefaultTempDir()
	}
	return &Comparator{
		source: source,
		engine: engine,
		opts:   opts,
		logger: logger,
	}
}

// SetObserver installs fn as the progress observer.
func (c *Comparator) SetObserver(fn Observer) {
	c.observer = fn
}

func (c *Comparator) emit(ev Event) {
	if c.observer != nil {
		c.observer(ev)
	}
}

// Compare fetches both tables, writes them as CSV snapshots and diffs them
// with contextLines of context.
func (c *Comparator) Compare(ctx context.Context, table1, table2 warehouse.TableIdentity, contextLines int) (result *FullResult, err error) {
	if contextLines < 0 {
		return nil, ErrNegativeContext
	}
	if c.engine == nil {
		return nil, ErrNoDiffEngine
	}

	runID := uuid.NewString()
	logger := c.logger.With("run_id", runID)

	defer func() {
		if err != nil {
			logger.Debug(fmt.Sprintf("❌ Comparison failed: %v", err))
			c.emit(Event{RunID: runID, Phase: PhaseFailed, Err: err})
		}
	}()

	left := c.source.Resolve(table1)
	right := c.source.Resolve(table2)
	logger.Info(fmt.Sprintf("🔄 Comparing %s with %s", left.FullName(), right.FullName()))

	c.emit(Event{RunID: runID, Phase: PhaseFetching, Message: "Fetching " + left.FullName()})
	leftSnap, err := c.snapshot(ctx, logger, SideLeft, left)
	if err != nil {
		return nil, err
	}

	c.emit(Event{RunID: runID, Phase: PhaseFetching, Message: "Fetching " + right.FullName()})
	rightSnap, err := c.snapshot(ctx, logger, SideRight, right)
	if err != nil {
		return nil, err
	}

	c.emit(Event{RunID: runID, Phase: PhaseComparing, Message: "Diffing snapshots"})
	diff, err := c.engine.Diff(ctx, leftSnap.Path, rightSnap.Path, contextLines)
	if err != nil {
		return nil, err
	}

	text, truncated, total := truncateLines(diff.Text, c.opts.MaxDiffLines)
	hunks := 0
	if !diff.Identical {
		hunks = countHunks(diff.Text)
	}

	result = &FullResult{
		RunID:          runID,
		Left:           *leftSnap,
		Right:          *rightSnap,
		DiffText:       text,
		Identical:      diff.Identical,
		Command:        diff.Command,
		Hunks:          hunks,
		Truncated:      truncated,
		TotalDiffLines: total,
		ContextLines:   contextLines,
		FetchLimit:     c.opts.FetchLimit,
		SampleSize:     diff.SampleSize,
	}

	if err := c.finishSnapshot(&result.Left); err != nil {
		return nil, err
	}
	if err := c.finishSnapshot(&result.Right); err != nil {
		return nil, err
	}

	logger.Info(fmt.Sprintf("✅ Comparison finished: identical=%t hunks=%d", result.Identical, result.Hunks))
	c.emit(Event{RunID: runID, Phase: PhaseDone})
	return result, nil
}

func (c *Comparator) snapshot(ctx context.Context, logger *slog.Logger, side string, id warehouse.TableIdentity) (*Snapshot, error) {
	info, err := c.source.Describe(ctx, id)
	if err != nil {
		return nil, err
	}

	data, err := c.source.FetchTable(ctx, id, info.Columns, c.opts.FetchLimit, c.opts.OrderRows)
	if err != nil {
		return nil, err
	}

	path := SnapshotPath(c.opts.TempDir, side, id)
	size, err := formatters.Materialize(data, path)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		Table:         info.Table,
		Path:          path,
		Size:          size,
		Columns:       info.Columns,
		Rows:          len(data.Rows),
		DescribedRows: info.RowCount,
		Partial:       int64(len(data.Rows)) < info.RowCount,
		Retained:      true,
	}
	if snap.Partial {
		logger.Warn(fmt.Sprintf("⚠️  %s has %d rows, snapshot holds the first %d", id.FullName(), info.RowCount, snap.Rows))
	}
	logger.Debug(fmt.Sprintf("💾 Wrote %s (%d rows, %d bytes)", path, snap.Rows, size), "table", id.FullName(), "rows", snap.Rows)
	return snap, nil
}

// finishSnapshot compresses or removes a snapshot once the diff is done.
func (c *Comparator) finishSnapshot(snap *Snapshot) error {
	if !c.opts.KeepSnapshots {
		if err := os.Remove(snap.Path); err != nil && !os.IsNotExist(err) {
			return &formatters.IOError{Op: "remove", Path: snap.Path, Err: err}
		}
		snap.Retained = false
		return nil
	}

	if c.opts.Compression == nil || c.opts.Compression.Extension() == "" {
		return nil
	}

	target, err := compressors.CompressFile(c.opts.Compression, snap.Path, c.opts.CompressionLevel)
	if err != nil {
		return &formatters.IOError{Op: "compress", Path: snap.Path, Err: err}
	}
	info, err := os.Stat(target)
	if err != nil {
		return &formatters.IOError{Op: "stat", Path: target, Err: err}
	}
	snap.Path = target
	snap.Size = info.Size()
	return nil
}

// QuickCompare compares row counts and column lists without fetching data.
func (c *Comparator) QuickCompare(ctx context.Context, table1, table2 warehouse.TableIdentity) (*QuickResult, error) {
	info1, err := c.source.Describe(ctx, table1)
	if err != nil {
		return nil, err
	}
	info2, err := c.source.Describe(ctx, table2)
	if err != nil {
		return nil, err
	}

	return buildQuickResult(info1, info2), nil
}

func buildQuickResult(info1, info2 *warehouse.TableInfo) *QuickResult {
	result := &QuickResult{
		Table1:                 info1,
		Table2:                 info2,
		SchemasMatch:           sameColumns(info1.Columns, info2.Columns),
		RowCountsMatch:         info1.RowCount == info2.RowCount,
		RowCountDifference:     info1.RowCount - info2.RowCount,
		ColumnCountDifference:  len(info1.Columns) - len(info2.Columns),
		ColumnsMissingInTable1: []string{},
		ColumnsMissingInTable2: []string{},
		TypeMismatches:         []TypeMismatch{},
	}

	types1 := columnTypes(info1.Columns)
	types2 := columnTypes(info2.Columns)

	for name, type1 := range types1 {
		type2, ok := types2[name]
		if !ok {
			result.ColumnsMissingInTable2 = append(result.ColumnsMissingInTable2, name)
			continue
		}
		if type1 != type2 {
			result.TypeMismatches = append(result.TypeMismatches, TypeMismatch{Column: name, Type1: type1, Type2: type2})
		}
	}
	for name := range types2 {
		if _, ok := types1[name]; !ok {
			result.ColumnsMissingInTable1 = append(result.ColumnsMissingInTable1, name)
		}
	}

	sort.Strings(result.ColumnsMissingInTable1)
	sort.Strings(result.ColumnsMissingInTable2)
	sort.Slice(result.TypeMismatches, func(i, j int) bool {
		return result.TypeMismatches[i].Column < result.TypeMismatches[j].Column
	})

	return result
}

// sameColumns is order-sensitive equality of (name, type) pairs.
func sameColumns(a, b []warehouse.ColumnDescriptor) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func columnTypes(columns []warehouse.ColumnDescriptor) map[string]string {
	types := make(map[string]string, len(columns))
	for _, col := range columns {
		types[col.Name] = col.DataType
	}
	return types
}
