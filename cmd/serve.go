package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bridge daemon",
	Long: `Starts the WebSocket bridge and keeps a browser session warm so external
surfaces can drive runs with START_WITHDRAW, SCAN_CONNECTIONS and friends.
When scheduling is enabled in the config, unattended runs fire on the
configured cron spec.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return appl.Serve(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
