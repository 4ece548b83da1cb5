// Package cmd defines and implements the CLI commands for the shopfinder
// executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shopfinder",
		Short: "A location-based directory service for local shops.",
		Long: `shopfinder stores shop records (name, contact URL, donation URL and a
geographic point) and answers proximity and fuzzy-name queries against them,
exposed over HTTP to a single-page front end.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: environment variables only)")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newWatchCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
