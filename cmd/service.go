package cmd

import (
	"log/slog"

	"github.com/airframesio/databricks-mcp/cmd/comparator"
	"github.com/airframesio/databricks-mcp/cmd/tools"
	"github.com/airframesio/databricks-mcp/cmd/warehouse"
)

// session bundles what one command invocation needs: the warehouse client,
// the comparator and the service that serializes access to both.
type session struct {
	config     *Config
	client     *warehouse.Client
	comparator *comparator.Comparator
	service    *tools.Service
}

// openSession builds the client and service from config. The warehouse is
// not contacted until the first operation.
func openSession(config *Config, log *slog.Logger) (*session, error) {
	client, err := warehouse.NewClient(config.warehouseConfig(), log)
	if err != nil {
		return nil, err
	}

	engine, err := config.diffEngine()
	if err != nil {
		client.Close()
		return nil, &warehouse.ConfigurationError{Err: err}
	}
	opts, err := config.comparatorOptions()
	if err != nil {
		client.Close()
		return nil, &warehouse.ConfigurationError{Err: err}
	}

	cmp := comparator.New(client, engine, opts, log)
	return &session{
		config:     config,
		client:     client,
		comparator: cmp,
		service:    tools.NewService(client, cmp, config.retryPolicy(), log),
	}, nil
}

func (s *session) Close() {
	if err := s.client.Close(); err != nil {
		logger.Debug("Failed to close warehouse connection: " + err.Error())
	}
}

// newCommandSession loads the configuration and opens a session for a CLI
// command.
func newCommandSession() (*session, error) {
	config, err := loadConfig()
	if err != nil {
		return nil, err
	}
	config.logConfig()
	return openSession(config, logger)
}
