package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/airframesio/databricks-mcp/cmd/formatters"
	"github.com/airframesio/databricks-mcp/cmd/tools"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mattn/go-isatty"
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D56F4")).
			Bold(true).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().Padding(0, 1)

	diffAddStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
	diffRemoveStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87"))
	diffHunkStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#00D9FF"))
)

// isTerminal reports whether f is attached to a terminal
func isTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// writeJSON prints v as indented JSON
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// formatThousands inserts comma separators, for display only
func formatThousands(n int64) string {
	s := strconv.FormatInt(n, 10)
	sign := ""
	if n < 0 {
		sign, s = "-", s[1:]
	}
	if len(s) <= 3 {
		return sign + s
	}

	var b strings.Builder
	head := len(s) % 3
	if head > 0 {
		b.WriteString(s[:head])
	}
	for i := head; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return sign + b.String()
}

func renderQuery(w io.Writer, resp *tools.QueryResponse) {
	if resp.RowCount == 0 {
		fmt.Fprintln(w, "No results returned.")
		return
	}

	rows := make([][]string, len(resp.Result.Rows))
	for i, row := range resp.Result.Rows {
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = formatters.EncodeValue(v)
		}
		rows[i] = cells
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#555555"))).
		StyleFunc(func(row, _ int) lipgloss.Style {
			// row 0 is the header
			if row == 0 {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(resp.Columns...).
		Rows(rows...)

	fmt.Fprintln(w, t.Render())
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Returned %d rows.\n", resp.RowCount)
	if resp.Truncated {
		fmt.Fprintln(w, warningStyle.Render("Results were truncated to the requested limit."))
	}
}

func renderTableInfo(w io.Writer, resp *tools.TableInfoResponse) {
	fmt.Fprintf(w, "Table: %s\n", resp.TableName)
	fmt.Fprintf(w, "Row Count: %s\n", formatThousands(resp.RowCount))
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Schema:")
	for _, col := range resp.Columns {
		fmt.Fprintf(w, "  %s: %s\n", col.Name, col.DataType)
	}
}

// colorDiffLine styles added, removed and hunk header lines
func colorDiffLine(line string) string {
	switch {
	case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
		return titleStyle.UnsetUnderline().Render(line)
	case strings.HasPrefix(line, "@@"):
		return diffHunkStyle.Render(line)
	case strings.HasPrefix(line, "+"):
		return diffAddStyle.Render(line)
	case strings.HasPrefix(line, "-"):
		return diffRemoveStyle.Render(line)
	default:
		return line
	}
}

func renderCompare(w io.Writer, resp *tools.CompareResponse, color bool) {
	if !color {
		fmt.Fprintln(w, resp.DiffOutput)
		return
	}

	if resp.FilesIdentical {
		fmt.Fprintln(w, successStyle.Render("✅ "+resp.DiffOutput))
		return
	}
	for _, line := range strings.Split(strings.TrimRight(resp.DiffOutput, "\n"), "\n") {
		fmt.Fprintln(w, colorDiffLine(line))
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, infoStyle.Render(fmt.Sprintf("%d hunk(s), %s", resp.Hunks, resp.DiffCommand)))
	if resp.Partial1 || resp.Partial2 {
		fmt.Fprintln(w, warningStyle.Render(fmt.Sprintf("⚠️  Snapshots were capped at %s rows per table", formatThousands(int64(resp.FetchLimit)))))
	}
}

func renderQuickCompare(w io.Writer, resp *tools.QuickCompareResponse) {
	fmt.Fprintln(w, "Quick comparison results:")
	fmt.Fprintf(w, "Table 1 rows: %s\n", formatThousands(resp.Table1Info.RowCount))
	fmt.Fprintf(w, "Table 2 rows: %s\n", formatThousands(resp.Table2Info.RowCount))
	fmt.Fprintf(w, "Row difference: %s\n", formatThousands(resp.RowCountDifference))
	fmt.Fprintf(w, "Columns match: %t\n", resp.ColumnsMatch)
	fmt.Fprintf(w, "Row counts match: %t\n", resp.RowCountsMatch)

	if len(resp.ColumnsMissingInTable1) > 0 {
		fmt.Fprintf(w, "Columns missing in table 1: %s\n", strings.Join(resp.ColumnsMissingInTable1, ", "))
	}
	if len(resp.ColumnsMissingInTable2) > 0 {
		fmt.Fprintf(w, "Columns missing in table 2: %s\n", strings.Join(resp.ColumnsMissingInTable2, ", "))
	}
	for _, m := range resp.TypeMismatches {
		fmt.Fprintf(w, "Type mismatch: %s (%s vs %s)\n", m.Column, m.Type1, m.Type2)
	}
}

// formatBytes renders a byte count with a binary unit
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
