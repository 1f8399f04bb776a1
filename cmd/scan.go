package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan and group invitations by message content",
	Long: `Reveals the full sent-invitations list without withdrawing anything,
groups entries whose notes differ only by greeting name or dollar amount, and
exports the groups as JSON.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		groups, total, err := appl.Scan(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("Scanned %d invitation(s) in %d group(s)\n\n", total, len(groups))
		for _, g := range groups {
			sample := g.NormalizedMessage
			if sample == "" {
				sample = "(no message)"
			}
			if len(sample) > 70 {
				sample = sample[:70] + "..."
			}
			fmt.Printf("%6s  x%-4d  %s\n", g.ContentHash, g.Count, sample)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
}
