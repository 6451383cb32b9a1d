package warehouse

import (
	"strings"
	"time"
)

// Supported drivers
const (
	DriverDatabricks = "databricks"
	DriverPostgres   = "postgres"
)

// Environment variable names reported when mandatory settings are missing
const (
	EnvServerHostname = "DATABRICKS_SERVER_HOSTNAME"
	EnvHTTPPath       = "DATABRICKS_HTTP_PATH"
	EnvAccessToken    = "DATABRICKS_ACCESS_TOKEN"
)

// Config holds everything the adapter needs to reach the warehouse.
type Config struct {
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

// Defaults returns the namespace defaults derived from the configuration.
func (c Config) Defaults() Defaults {
	return Defaults{Catalog: c.Catalog, Schema: c.Schema}.normalize()
}

// Validate fails fast with a ConfigurationError when host, endpoint or
// credential is absent.
func (c Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.ServerHostname) == "" {
		missing = append(missing, EnvServerHostname)
	}
	if strings.TrimSpace(c.HTTPPath) == "" {
		missing = append(missing, EnvHTTPPath)
	}
	if strings.TrimSpace(c.AccessToken) == "" {
		missing = append(missing, EnvAccessToken)
	}
	if len(missing) > 0 {
		return &ConfigurationError{Missing: missing}
	}
	if !strings.HasPrefix(c.HTTPPath, "/") {
		return &ConfigurationError{Reason: "http path must start with '/', got " + c.HTTPPath}
	}
	if c.Port < 0 || c.Port > 65535 {
		return &ConfigurationError{Reason: "port must be between 0 and 65535"}
	}
	if c.QueryTimeout < 0 {
		return &ConfigurationError{Reason: "query timeout must be >= 0"}
	}
	return nil
}

// host strips any scheme the user may have pasted from the workspace URL.
func (c Config) host() string {
	h := strings.TrimSpace(c.ServerHostname)
	h = strings.TrimPrefix(h, "https://")
	h = strings.TrimPrefix(h, "http://")
	return strings.TrimSuffix(h, "/")
}
