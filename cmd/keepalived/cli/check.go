package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(checkCmd)
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the configuration file without connecting to any target",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s: ok\n", configPath)
		for _, t := range cfg.Targets {
			kind := "http"
			if t.SQL != nil {
				kind = "sql"
			}
			fmt.Fprintf(out, "  %-20s %-4s idle after %s\n", t.Label, kind, t.InactivityLimit)
		}

		return nil
	},
}
