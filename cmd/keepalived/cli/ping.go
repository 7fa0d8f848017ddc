package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/platforma-dev/keepalive/config"
	"github.com/platforma-dev/keepalive/keepalive"
	"github.com/platforma-dev/keepalive/log"
)

var pingLabel string

func init() {
	pingCmd.Flags().StringVarP(&pingLabel, "target", "t", "", "label of the target to ping, all targets when empty")
	rootCmd.AddCommand(pingCmd)
}

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Run the keep-alive action of each target once, with retries",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if err := log.Setup(os.Stderr, cfg.Log.Format, cfg.Log.Level); err != nil {
			return err
		}

		return ping(cmd, cfg, pingLabel)
	},
}

func ping(cmd *cobra.Command, cfg *config.Config, label string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	out := cmd.OutOrStdout()
	var pinged, failed int

	for _, tc := range cfg.Targets {
		if label != "" && tc.Label != label {
			continue
		}
		pinged++

		started := time.Now()
		if err := pingTarget(ctx, tc); err != nil {
			failed++
			fmt.Fprintf(out, "%s: failed after %s: %v\n", tc.Label, time.Since(started).Round(time.Millisecond), err)
			continue
		}

		fmt.Fprintf(out, "%s: ok in %s\n", tc.Label, time.Since(started).Round(time.Millisecond))
	}

	switch {
	case pinged == 0:
		return fmt.Errorf("unknown target %q", label)
	case failed > 0:
		return fmt.Errorf("%d of %d targets failed", failed, pinged)
	default:
		return nil
	}
}

func pingTarget(ctx context.Context, tc config.Target) error {
	t, err := buildTarget(tc)
	if err != nil {
		return err
	}
	defer func() {
		if err := t.close(); err != nil {
			log.WarnContext(ctx, "failed to close target", "label", tc.Label, "error", err)
		}
	}()

	if t.migrate != nil {
		if err := t.migrate.Run(ctx); err != nil {
			return err
		}
	}

	kaCfg, err := tc.KeepAliveConfig(t.action)
	if err != nil {
		return err
	}

	s, err := keepalive.New(kaCfg)
	if err != nil {
		return err
	}
	defer s.Stop()

	return s.Trigger(ctx)
}
