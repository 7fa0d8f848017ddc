package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/platforma-dev/keepalive/log"
)

func init() {
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the keep-alive schedulers and the HTTP server",
	Long: `Run one keep-alive scheduler per configured target until SIGINT or SIGTERM.

Every request to the HTTP server counts as activity for all targets, except
the ignored paths, /health and the admin API under /admin.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if err := log.Setup(os.Stdout, cfg.Log.Format, cfg.Log.Level); err != nil {
			return err
		}

		d, err := newDaemon(cfg, os.Stdout)
		if err != nil {
			log.ErrorContext(cmd.Context(), "failed to start", "error", err)
			return err
		}

		return d.run(cmd.Context())
	},
}
