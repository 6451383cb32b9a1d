package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/airframesio/databricks-mcp/cmd/warehouse"
)

// RetryPolicy retries operations that failed with a connection error.
// Nothing else is ever retried.
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
}

func (p RetryPolicy) do(ctx context.Context, logger *slog.Logger, op string, fn func() error) error {
	err := fn()
	for attempt := 1; attempt <= p.Attempts && err != nil; attempt++ {
		var connErr *warehouse.ConnectionError
		if !errors.As(err, &connErr) {
			return err
		}

		logger.Warn(fmt.Sprintf("⚠️  %s failed, retrying (%d/%d): %v", op, attempt, p.Attempts, err))

		if p.Delay > 0 {
			timer := time.NewTimer(p.Delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}

		err = fn()
	}
	return err
}
