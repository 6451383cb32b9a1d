package cmd

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/airframesio/databricks-mcp/cmd/comparator"
	"github.com/airframesio/databricks-mcp/cmd/compressors"
	"github.com/airframesio/databricks-mcp/cmd/tools"
	"github.com/airframesio/databricks-mcp/cmd/warehouse"
	"github.com/spf13/viper"
)

// Static errors for configuration validation
var (
	ErrLogFormatInvalid        = errors.New("log format must be one of: text, logfmt, json")
	ErrOutputFormatInvalid     = errors.New("output format must be one of: table, json")
	ErrDiffLinesInvalid        = errors.New("diff lines must be >= 0")
	ErrMaxDiffLinesInvalid     = errors.New("max diff lines must be >= 0")
	ErrFetchLimitInvalid       = errors.New("fetch limit must be >= 0")
	ErrDiffEngineInvalid       = errors.New("diff engine must be one of: builtin, exec")
	ErrDiffTimeoutInvalid      = errors.New("diff timeout must be >= 0")
	ErrCompressionInvalid      = errors.New("compression must be one of: zstd, lz4, gzip, none")
	ErrCompressionLevelInvalid = errors.New("compression level must be between 1 and 22 (zstd), 1-9 (lz4/gzip)")
	ErrRetriesInvalid          = errors.New("retries must be >= 0")
	ErrRetryDelayInvalid       = errors.New("retry delay must be >= 0")
	ErrS3EndpointRequired      = errors.New("S3 endpoint is required")
	ErrS3BucketRequired        = errors.New("S3 bucket is required")
	ErrS3AccessKeyRequired     = errors.New("S3 access key is required")
	ErrS3SecretKeyRequired     = errors.New("S3 secret key is required")
	ErrS3RegionInvalid         = errors.New("S3 region contains invalid characters or is too long")
	ErrPathTemplateInvalid     = errors.New("path template must contain {run_id} placeholder")
)

const (
	regionAuto = "auto"

	defaultRetryDelay   = 2 * time.Second
	defaultPathTemplate = "databricks-mcp/{YYYY}/{MM}/{DD}/{run_id}"
)

type Config struct {
	Verbose      bool
	LogFormat    string
	OutputFormat string
	Warehouse    WarehouseConfig
	Compare      CompareConfig
	Snapshot     SnapshotConfig
	Retry        RetryConfig
	S3           S3Config
}

type WarehouseConfig struct {
	Driver         string
	ServerHostname string
	Port           int
	HTTPPath       string
	AccessToken    string
	User           string // postgres only
	SSLMode        string // postgres only
	Catalog        string
	Schema         string
	QueryTimeout   time.Duration // 0 = no timeout
}

type CompareConfig struct {
	DiffLines    int
	MaxDiffLines int // 0 keeps the whole diff
	FetchLimit   int // 0 fetches every row
	OrderRows    bool
	Engine       string // builtin or exec
	DiffTimeout  time.Duration
	Sample       bool
}

type SnapshotConfig struct {
	TempDir          string
	Keep             bool
	Compression      string
	CompressionLevel int
}

type RetryConfig struct {
	Attempts int
	Delay    time.Duration
}

type S3Config struct {
	Endpoint     string
	Bucket       string
	AccessKey    string
	SecretKey    string
	Region       string
	PathTemplate string
}

// setDefaults registers the fallback value of every key that has no flag.
func setDefaults(v *viper.Viper) {
	v.SetDefault("compare.diff_lines", tools.DefaultDiffLines)
	v.SetDefault("compare.max_diff_lines", comparator.DefaultMaxDiffLines)
	v.SetDefault("compare.fetch_limit", comparator.DefaultFetchLimit)
	v.SetDefault("compare.order_rows", true)
	v.SetDefault("compare.engine", "builtin")
	v.SetDefault("compare.diff_timeout", comparator.DefaultDiffTimeout)
	v.SetDefault("snapshot.keep", true)
	v.SetDefault("snapshot.compression", "none")
	v.SetDefault("retry.delay", defaultRetryDelay)
	v.SetDefault("s3.region", regionAuto)
	v.SetDefault("s3.path_template", defaultPathTemplate)
	v.SetDefault("format", "table")
	v.SetDefault("log_format", "text")
	v.SetDefault("driver", warehouse.DriverDatabricks)
}

// configFromViper builds a Config from v. Nothing is validated here.
func configFromViper(v *viper.Viper) *Config {
	setDefaults(v)

	return &Config{
		Verbose:      v.GetBool("verbose"),
		LogFormat:    v.GetString("log_format"),
		OutputFormat: v.GetString("format"),
		Warehouse: WarehouseConfig{
			Driver:         v.GetString("driver"),
			ServerHostname: v.GetString("server_hostname"),
			Port:           v.GetInt("port"),
			HTTPPath:       v.GetString("http_path"),
			AccessToken:    v.GetString("access_token"),
			User:           v.GetString("user"),
			SSLMode:        v.GetString("sslmode"),
			Catalog:        v.GetString("catalog"),
			Schema:         v.GetString("schema"),
			QueryTimeout:   v.GetDuration("query_timeout"),
		},
		Compare: CompareConfig{
			DiffLines:    v.GetInt("compare.diff_lines"),
			MaxDiffLines: v.GetInt("compare.max_diff_lines"),
			FetchLimit:   v.GetInt("compare.fetch_limit"),
			OrderRows:    v.GetBool("compare.order_rows"),
			Engine:       v.GetString("compare.engine"),
			DiffTimeout:  v.GetDuration("compare.diff_timeout"),
			Sample:       v.GetBool("compare.sample"),
		},
		Snapshot: SnapshotConfig{
			TempDir:          v.GetString("temp_dir"),
			Keep:             v.GetBool("snapshot.keep"),
			Compression:      v.GetString("snapshot.compression"),
			CompressionLevel: v.GetInt("snapshot.compression_level"),
		},
		Retry: RetryConfig{
			Attempts: v.GetInt("retry.attempts"),
			Delay:    v.GetDuration("retry.delay"),
		},
		S3: S3Config{
			Endpoint:     v.GetString("s3.endpoint"),
			Bucket:       v.GetString("s3.bucket"),
			AccessKey:    v.GetString("s3.access_key"),
			SecretKey:    v.GetString("s3.secret_key"),
			Region:       v.GetString("s3.region"),
			PathTemplate: v.GetString("s3.path_template"),
		},
	}
}

// loadConfig reads the global viper state and validates it. Every failure is
// reported as a *warehouse.ConfigurationError.
func loadConfig() (*Config, error) {
	config := configFromViper(viper.GetViper())
	if err := config.Validate(); err != nil {
		var cfgErr *warehouse.ConfigurationError
		if errors.As(err, &cfgErr) {
			return nil, err
		}
		return nil, &warehouse.ConfigurationError{Err: err}
	}
	return config, nil
}

// isValidRegion validates that an S3 region is reasonable
func isValidRegion(region string) bool {
	if region == "" || len(region) > 50 {
		return false
	}
	matched, _ := regexp.MatchString(`^[a-zA-Z0-9_-]+$`, region)
	return matched
}

// isValidCompression validates the compression type
func isValidCompression(compression string) bool {
	validCompressions := map[string]bool{
		"zstd": true,
		"lz4":  true,
		"gzip": true,
		"none": true,
	}
	return validCompressions[compression]
}

// isValidCompressionLevel validates compression level based on compression
// type. 0 selects the compressor's default.
func isValidCompressionLevel(compression string, level int) bool {
	if level == 0 {
		return true
	}
	switch compression {
	case "zstd":
		return level >= 1 && level <= 22
	case "lz4", "gzip":
		return level >= 1 && level <= 9
	default:
		return false
	}
}

func (c *Config) warehouseConfig() warehouse.Config {
	return warehouse.Config{
		Driver:         c.Warehouse.Driver,
		ServerHostname: c.Warehouse.ServerHostname,
		Port:           c.Warehouse.Port,
		HTTPPath:       c.Warehouse.HTTPPath,
		AccessToken:    c.Warehouse.AccessToken,
		User:           c.Warehouse.User,
		SSLMode:        c.Warehouse.SSLMode,
		Catalog:        c.Warehouse.Catalog,
		Schema:         c.Warehouse.Schema,
		QueryTimeout:   c.Warehouse.QueryTimeout,
	}
}

func (c *Config) Validate() error {
	if err := c.warehouseConfig().Validate(); err != nil {
		return err
	}
	if _, err := warehouse.GetDialect(c.Warehouse.Driver); err != nil {
		return &warehouse.ConfigurationError{Err: err}
	}

	switch c.LogFormat {
	case "", "text", "logfmt", "json":
	default:
		return fmt.Errorf("%w: '%s'", ErrLogFormatInvalid, c.LogFormat)
	}
	switch c.OutputFormat {
	case "", "table", "json":
	default:
		return fmt.Errorf("%w: '%s'", ErrOutputFormatInvalid, c.OutputFormat)
	}

	if c.Compare.DiffLines < 0 {
		return fmt.Errorf("%w, got %d", ErrDiffLinesInvalid, c.Compare.DiffLines)
	}
	if c.Compare.MaxDiffLines < 0 {
		return fmt.Errorf("%w, got %d", ErrMaxDiffLinesInvalid, c.Compare.MaxDiffLines)
	}
	if c.Compare.FetchLimit < 0 {
		return fmt.Errorf("%w, got %d", ErrFetchLimitInvalid, c.Compare.FetchLimit)
	}
	if _, err := comparator.GetDiffEngine(c.Compare.Engine); err != nil {
		return fmt.Errorf("%w: '%s'", ErrDiffEngineInvalid, c.Compare.Engine)
	}
	if c.Compare.DiffTimeout < 0 {
		return fmt.Errorf("%w, got %s", ErrDiffTimeoutInvalid, c.Compare.DiffTimeout)
	}

	if !isValidCompression(c.Snapshot.Compression) {
		return fmt.Errorf("%w: '%s'", ErrCompressionInvalid, c.Snapshot.Compression)
	}
	if !isValidCompressionLevel(c.Snapshot.Compression, c.Snapshot.CompressionLevel) {
		return fmt.Errorf("%w for compression %s: got %d", ErrCompressionLevelInvalid, c.Snapshot.Compression, c.Snapshot.CompressionLevel)
	}

	if c.Retry.Attempts < 0 {
		return fmt.Errorf("%w, got %d", ErrRetriesInvalid, c.Retry.Attempts)
	}
	if c.Retry.Delay < 0 {
		return fmt.Errorf("%w, got %s", ErrRetryDelayInvalid, c.Retry.Delay)
	}

	return nil
}

// ValidateExport checks the S3 settings. They are only required by
// compare --export.
func (c *Config) ValidateExport() error {
	if c.S3.Endpoint == "" {
		return ErrS3EndpointRequired
	}
	if c.S3.Bucket == "" {
		return ErrS3BucketRequired
	}
	if c.S3.AccessKey == "" {
		return ErrS3AccessKeyRequired
	}
	if c.S3.SecretKey == "" {
		return ErrS3SecretKeyRequired
	}
	if c.S3.Region != "" && c.S3.Region != regionAuto && !isValidRegion(c.S3.Region) {
		return fmt.Errorf("%w: %s", ErrS3RegionInvalid, c.S3.Region)
	}
	if !strings.Contains(c.S3.PathTemplate, "{run_id}") {
		return fmt.Errorf("%w: '%s'", ErrPathTemplateInvalid, c.S3.PathTemplate)
	}
	return nil
}

// diffEngine builds the configured engine, wrapped in progressive sampling
// when enabled.
func (c *Config) diffEngine() (comparator.DiffEngine, error) {
	engine, err := comparator.GetDiffEngine(c.Compare.Engine)
	if err != nil {
		return nil, err
	}
	if exec, ok := engine.(*comparator.ExecDiff); ok && c.Compare.DiffTimeout > 0 {
		exec.Timeout = c.Compare.DiffTimeout
	}
	if c.Compare.Sample {
		return comparator.NewSampledDiff(engine), nil
	}
	return engine, nil
}

func (c *Config) comparatorOptions() (comparator.Options, error) {
	opts := comparator.Options{
		TempDir:          c.Snapshot.TempDir,
		FetchLimit:       c.Compare.FetchLimit,
		OrderRows:        c.Compare.OrderRows,
		MaxDiffLines:     c.Compare.MaxDiffLines,
		KeepSnapshots:    c.Snapshot.Keep,
		CompressionLevel: c.Snapshot.CompressionLevel,
	}
	if opts.TempDir == "" {
		opts.TempDir = comparator.DefaultTempDir()
	}

	if c.Snapshot.Compression != "" && c.Snapshot.Compression != "none" {
		compressor, err := compressors.GetCompressor(c.Snapshot.Compression)
		if err != nil {
			return opts, err
		}
		opts.Compression = compressor
		if opts.CompressionLevel == 0 {
			opts.CompressionLevel = compressor.DefaultLevel()
		}
	}
	return opts, nil
}

func (c *Config) retryPolicy() tools.RetryPolicy {
	return tools.RetryPolicy{
		Attempts: c.Retry.Attempts,
		Delay:    c.Retry.Delay,
	}
}

// maskString hides all but the first and last two characters of a secret
func maskString(s string) string {
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}

// logConfig prints the effective configuration at debug level.
func (c *Config) logConfig() {
	logger.Debug("Configuration:")
	logger.Debug(fmt.Sprintf("  Driver:            %s", c.Warehouse.Driver))
	logger.Debug(fmt.Sprintf("  Server Hostname:   %s", c.Warehouse.ServerHostname))
	logger.Debug(fmt.Sprintf("  HTTP Path:         %s", c.Warehouse.HTTPPath))
	logger.Debug(fmt.Sprintf("  Access Token:      %s", maskString(c.Warehouse.AccessToken)))
	logger.Debug(fmt.Sprintf("  Catalog:           %s", c.Warehouse.Catalog))
	logger.Debug(fmt.Sprintf("  Schema:            %s", c.Warehouse.Schema))
	logger.Debug(fmt.Sprintf("  Temp Dir:          %s", c.Snapshot.TempDir))
	logger.Debug(fmt.Sprintf("  Diff Engine:       %s (sample=%t)", c.Compare.Engine, c.Compare.Sample))
	logger.Debug(fmt.Sprintf("  Fetch Limit:       %d", c.Compare.FetchLimit))
	logger.Debug(fmt.Sprintf("  Retries:           %d (delay %s)", c.Retry.Attempts, c.Retry.Delay))
}
