package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Version information - set via ldflags during build
	// Example: go build -ldflags "-X github.com/airframesio/databricks-mcp/cmd.Version=1.2.3"
	Version = "dev"

	// signalContext is set by main() before Cobra initialization
	signalContext context.Context

	cfgFile      string
	verbose      bool
	logFormat    string
	outputFormat string

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D56F4")).
			Bold(true).
			Underline(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00D9FF"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFA500"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	// replaced by initLogger once flags are parsed
	logger = newLogger(false, "text", "", os.Stderr)
)

// SetSignalContext stores the signal-aware context created in main()
// This must be called before Execute() to ensure proper signal handling
func SetSignalContext(ctx context.Context) {
	signalContext = ctx
}

// textOnlyHandler is a custom slog handler that outputs only the message text
type textOnlyHandler struct {
	opts   slog.HandlerOptions
	writer io.Writer
}

func newTextOnlyHandler(w io.Writer, opts *slog.HandlerOptions) *textOnlyHandler {
	h := &textOnlyHandler{writer: w}
	if opts != nil {
		h.opts = *opts
	}
	return h
}

func (h *textOnlyHandler) Enabled(_ context.Context, level slog.Level) bool {
	minLevel := slog.LevelInfo
	if h.opts.Level != nil {
		minLevel = h.opts.Level.Level()
	}
	return level >= minLevel
}

func (h *textOnlyHandler) Handle(_ context.Context, r slog.Record) error {
	// Format: YYYY-MM-DD HH:MM:SS LEVEL message
	timestamp := r.Time.Format("2006-01-02 15:04:05")
	_, err := fmt.Fprintf(h.writer, "%s %s %s\n", timestamp, r.Level.String(), r.Message)
	return err
}

func (h *textOnlyHandler) WithAttrs(_ []slog.Attr) slog.Handler {
	// attributes are dropped in text-only mode
	return h
}

func (h *textOnlyHandler) WithGroup(_ string) slog.Handler {
	return h
}

// parseLogLevel accepts debug, info, warn/warning and error. Anything else
// falls back to WARN.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

func newLogger(isVerbose bool, format, level string, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: parseLogLevel(level),
	}
	if isVerbose {
		opts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	case "logfmt":
		// logfmt uses slog.TextHandler which outputs key=value pairs
		handler = slog.NewTextHandler(w, opts)
	default:
		handler = newTextOnlyHandler(w, opts)
	}

	return slog.New(handler)
}

// initLogger installs the package logger. Logs always go to stderr so that
// stdout carries only command output or the MCP protocol stream.
func initLogger(isVerbose bool, format, level string, w io.Writer) {
	logger = newLogger(isVerbose, format, level, w)
}

var rootCmd = &cobra.Command{
	Use:     "databricks-mcp",
	Version: Version,
	Short:   "🧱 Query, inspect and compare Databricks SQL warehouse tables",
	Long: titleStyle.Render("Databricks MCP") + `

A CLI and MCP (stdio) server exposing four warehouse operations:
execute_query, get_table_info, compare_tables and quick_compare_tables.
Full comparisons export both tables to CSV and report a unified diff.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		initLogger(viper.GetBool("verbose"), viper.GetString("log_format"), viper.GetString("log_level"), os.Stderr)
	},
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(serveCmd)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.databricks-mcp.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log output format: text, logfmt, json")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "table", "result output format: table, json")

	// Warehouse flags
	rootCmd.PersistentFlags().String("server-hostname", "", "warehouse server hostname")
	rootCmd.PersistentFlags().String("http-path", "", "warehouse HTTP path (must start with /)")
	rootCmd.PersistentFlags().String("access-token", "", "personal access token")
	rootCmd.PersistentFlags().String("catalog", "", "default catalog (default \"main\")")
	rootCmd.PersistentFlags().String("schema", "", "default schema (default \"default\")")
	rootCmd.PersistentFlags().String("driver", "databricks", "warehouse driver: databricks, postgres")
	rootCmd.PersistentFlags().Int("port", 0, "warehouse port (0 uses the driver default)")
	rootCmd.PersistentFlags().Duration("query-timeout", 0, "per-statement timeout (0 = none)")
	rootCmd.PersistentFlags().String("temp-dir", "", "scratch directory for comparison snapshots")
	rootCmd.PersistentFlags().Int("retries", 0, "retries for operations that fail to connect")
	rootCmd.PersistentFlags().Duration("retry-delay", defaultRetryDelay, "delay between retries")

	bindFlags(rootCmd, map[string]string{
		"verbose":         "verbose",
		"log_format":      "log-format",
		"format":          "format",
		"server_hostname": "server-hostname",
		"http_path":       "http-path",
		"access_token":    "access-token",
		"catalog":         "catalog",
		"schema":          "schema",
		"driver":          "driver",
		"port":            "port",
		"query_timeout":   "query-timeout",
		"temp_dir":        "temp-dir",
		"retry.attempts":  "retries",
		"retry.delay":     "retry-delay",
	}, true)
}

// bindFlags binds viper keys to flags of cmd.
func bindFlags(cmd *cobra.Command, keys map[string]string, persistent bool) {
	flags := cmd.Flags()
	if persistent {
		flags = cmd.PersistentFlags()
	}
	for key, flag := range keys {
		_ = viper.BindPFlag(key, flags.Lookup(flag))
	}
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".databricks-mcp")
	}

	loadDotEnv(".env")

	viper.SetEnvPrefix("DATABRICKS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	_ = viper.BindEnv("log_level", "DATABRICKS_LOG_LEVEL", "LOG_LEVEL")

	if err := viper.ReadInConfig(); err == nil && viper.GetBool("verbose") {
		if logger == nil {
			initLogger(true, logFormat, "", os.Stderr)
		}
		logger.Debug(fmt.Sprintf("📄 Using config file: %s", viper.ConfigFileUsed()))
	}
}

// loadDotEnv exports the variables of a dotenv file that are not already set
// in the process environment.
func loadDotEnv(path string) {
	if _, err := os.Stat(path); err != nil {
		return
	}

	env := viper.New()
	env.SetConfigFile(path)
	env.SetConfigType("env")
	if err := env.ReadInConfig(); err != nil {
		return
	}

	for _, key := range env.AllKeys() {
		name := strings.ToUpper(key)
		if _, set := os.LookupEnv(name); set {
			continue
		}
		_ = os.Setenv(name, env.GetString(key))
	}
}

// commandContext returns the signal-aware context created in main(), or a
// fresh one when SetSignalContext was not called.
func commandContext() (context.Context, context.CancelFunc) {
	if signalContext != nil {
		return context.WithCancel(signalContext)
	}
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// recoverPanic converts a panic in a command into an error.
func recoverPanic(err *error) {
	if r := recover(); r != nil {
		if logger != nil {
			logger.Error(fmt.Sprintf("❌ PANIC: %v", r))
		}
		*err = fmt.Errorf("unexpected panic: %v", r)
	}
}
