package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/airframesio/databricks-mcp/cmd"
	"github.com/airframesio/databricks-mcp/cmd/tools"
	"github.com/charmbracelet/lipgloss"
)

var (
	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFA500"))
)

func main() {
	// Register signal handling before Cobra or any driver starts goroutines
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	cmd.SetSignalContext(ctx)

	err := cmd.Execute()
	stop()

	if err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, warningStyle.Render("⚠️  Operation cancelled by user"))
		} else {
			fmt.Fprintln(os.Stderr, errorStyle.Render("❌ Error: "+err.Error()))
		}
		os.Exit(tools.ExitCode(err))
	}
}
