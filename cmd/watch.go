package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/shoplocal/shopfinder/internal/config"
	"github.com/shoplocal/shopfinder/internal/logging"
	"github.com/shoplocal/shopfinder/internal/storage/postgres"
	"github.com/shoplocal/shopfinder/internal/watchdog"
)

// newWatchCmd creates the 'watch' subcommand, a startup readiness probe that
// blocks until the database answers or a deadline passes. A non-zero exit
// signals the supervisor not to start the service.
func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Blocks until the database is reachable, then exits",
		RunE:  runWatch,
	}
}

func runWatch(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck // best-effort flush

	connect := func(ctx context.Context) (watchdog.Pinger, error) {
		return postgres.NewShopStore(ctx, postgres.ShopStoreConfig{DSN: cfg.DB.DSN})
	}

	return watchdog.Wait(cmd.Context(), connect, watchdog.Config{
		Interval: time.Duration(cfg.Watchdog.IntervalSeconds) * time.Second,
		Timeout:  time.Duration(cfg.Watchdog.TimeoutSeconds) * time.Second,
	}, logger.Named("watchdog"))
}
