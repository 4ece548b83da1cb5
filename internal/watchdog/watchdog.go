// Package watchdog gates process startup on database readiness.
package watchdog

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Pinger is the slice of the store the watchdog needs.
type Pinger interface {
	Ping(ctx context.Context) error
	Close()
}

// ConnectFunc attempts to open a database handle.
type ConnectFunc func(ctx context.Context) (Pinger, error)

// Config controls the retry cadence and overall deadline.
type Config struct {
	Interval time.Duration
	Timeout  time.Duration
}

// Wait retries connect on a fixed interval until a connection answers a ping
// or the deadline passes. It returns nil on success and an error on timeout
// or context cancellation; callers are expected to abort the process on a
// non-nil return. This is connection-readiness gating, not request-path
// retry logic.
func Wait(ctx context.Context, connect ConnectFunc, cfg Config, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	deadline := time.Now().Add(cfg.Timeout)
	logger.Info("watchdog waiting for database",
		zap.Duration("interval", cfg.Interval),
		zap.Duration("timeout", cfg.Timeout),
	)

	for {
		if conn, err := connect(ctx); err == nil {
			pingErr := conn.Ping(ctx)
			conn.Close()
			if pingErr == nil {
				logger.Info("watchdog connected to database")
				return nil
			}
			logger.Warn("watchdog ping failed", zap.Error(pingErr))
		} else {
			logger.Warn("watchdog connect failed", zap.Error(err))
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("database not reachable within %s", cfg.Timeout)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("watchdog canceled: %w", ctx.Err())
		case <-time.After(cfg.Interval):
		}
	}
}
