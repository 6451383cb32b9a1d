package comparator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/airframesio/databricks-mcp/cmd/formatters"
	"github.com/pmezard/go-difflib/difflib"
)

// DefaultDiffTimeout bounds a single external diff run.
const DefaultDiffTimeout = 300 * time.Second

// Diff is the raw outcome of one diff engine run.
type Diff struct {
	Text      string
	Identical bool
	Command   string
	// SampleSize is set by the sampled engine.
	SampleSize int
}

// DiffEngine produces a unified diff of two files.
type DiffEngine interface {
	Diff(ctx context.Context, fileA, fileB string, contextLines int) (*Diff, error)
}

// GetDiffEngine returns the engine registered under name
func GetDiffEngine(name string) (DiffEngine, error) {
	switch name {
	case "", "builtin":
		return NewBuiltinDiff(), nil
	case "exec":
		return NewExecDiff(), nil
	default:
		return nil, fmt.Errorf("unsupported diff engine: %s", name)
	}
}

// BuiltinDiff computes unified diffs in-process.
type BuiltinDiff struct{}

// NewBuiltinDiff creates a new in-process diff engine
func NewBuiltinDiff() *BuiltinDiff {
	return &BuiltinDiff{}
}

func (d *BuiltinDiff) Diff(ctx context.Context, fileA, fileB string, contextLines int) (*Diff, error) {
	if contextLines < 0 {
		return nil, ErrNegativeContext
	}

	a, err := os.ReadFile(fileA)
	if err != nil {
		return nil, &formatters.IOError{Op: "read", Path: fileA, Err: err}
	}
	b, err := os.ReadFile(fileB)
	if err != nil {
		return nil, &formatters.IOError{Op: "read", Path: fileB, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	command := fmt.Sprintf("builtin unified diff -U%d %s %s", contextLines, fileA, fileB)
	if bytes.Equal(a, b) {
		return &Diff{Identical: true, Command: command}, nil
	}

	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        fileLines(a),
		B:        fileLines(b),
		FromFile: fileA,
		ToFile:   fileB,
		Context:  contextLines,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build diff: %w", err)
	}

	return &Diff{Text: text, Identical: text == "", Command: command}, nil
}

// ExecDiff runs the system diff binary.
type ExecDiff struct {
	Binary  string
	Timeout time.Duration
}

// NewExecDiff creates an engine using "diff" from PATH
func NewExecDiff() *ExecDiff {
	return &ExecDiff{Binary: "diff", Timeout: DefaultDiffTimeout}
}

func (d *ExecDiff) Diff(ctx context.Context, fileA, fileB string, contextLines int) (*Diff, error) {
	if contextLines < 0 {
		return nil, ErrNegativeContext
	}

	timeout := d.Timeout
	if timeout <= 0 {
		timeout = DefaultDiffTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := []string{fmt.Sprintf("-U%d", contextLines), fileA, fileB}
	command := d.Binary + " " + strings.Join(args, " ")

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, d.Binary, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return &Diff{Identical: true, Command: command}, nil
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, &DiffToolError{Command: command, ExitCode: -1, Stderr: fmt.Sprintf("timed out after %s", timeout), Err: ctx.Err()}
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		return nil, ctx.Err()
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if exitErr.ExitCode() == 1 {
			return &Diff{Text: stdout.String(), Command: command}, nil
		}
		return nil, &DiffToolError{Command: command, ExitCode: exitErr.ExitCode(), Stderr: strings.TrimSpace(stderr.String()), Err: err}
	}

	// binary missing or not executable
	return nil, &DiffToolError{Command: command, ExitCode: -1, Err: err}
}

// countHunks returns the number of lines starting with "@@".
func countHunks(text string) int {
	hunks := 0
	for _, line := range splitLines(text) {
		if strings.HasPrefix(line, "@@") {
			hunks++
		}
	}
	return hunks
}

// truncateLines keeps the first max lines of text. It reports whether lines
// were dropped and the original line count. max <= 0 keeps everything.
func truncateLines(text string, max int) (string, bool, int) {
	lines := splitLines(text)
	total := len(lines)
	if max <= 0 || total <= max {
		return text, false, total
	}
	return strings.Join(lines[:max], "\n") + "\n", true, total
}

// fileLines splits file content into newline-terminated lines the way diff
// reads them. A missing final newline is added so the last line still ends
// its output line.
func fileLines(data []byte) []string {
	if len(data) == 0 {
		return nil
	}
	lines := strings.SplitAfter(string(data), "\n")
	if last := lines[len(lines)-1]; last == "" {
		lines = lines[:len(lines)-1]
	} else {
		lines[len(lines)-1] = last + "\n"
	}
	return lines
}

func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}
