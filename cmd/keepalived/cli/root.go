// Package cli implements the keepalived command-line interface using Cobra.
package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/platforma-dev/keepalive/config"
)

const defaultConfigPath = "keepalive.yaml"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "keepalived",
	Short: "keepalived - keeps idle dependencies warm",
	Long: `keepalived watches activity on its HTTP server and, when a target has been
idle for longer than its inactivity limit, runs a keep-alive action against it:
a SQL query, a heartbeat write or an HTTP request.

Databases that pause when unused and containers that scale to zero stay warm
for the next real request.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		// --config flag > KEEPALIVE_CONFIG env var > default
		if configPath == "" {
			configPath = os.Getenv("KEEPALIVE_CONFIG")
		}
		if configPath == "" {
			configPath = defaultConfigPath
		}
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the configuration file (env: KEEPALIVE_CONFIG)")
}

func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}
