package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sweeplab/invitesweep/internal/invites"
)

var (
	runMode     string
	runCount    int
	runAgeValue int
	runAgeUnit  string
	runPatterns []string
	runSafe     bool
	runSafeVal  int
	runSafeUnit string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Perform one withdrawal run",
	Long: `Performs a single withdrawal run to completion.

Modes:
  count    withdraw the N oldest invitations
  age      withdraw every invitation at least as old as the threshold
  message  withdraw every invitation whose note matches a pattern`,
	RunE: func(cmd *cobra.Command, args []string) error {
		mode := invites.Mode(runMode)
		switch mode {
		case invites.ModeCount, invites.ModeAge, invites.ModeMessage:
		default:
			return fmt.Errorf("unknown mode %q", runMode)
		}
		if mode == invites.ModeCount && runCount <= 0 {
			return fmt.Errorf("count mode requires --count > 0")
		}
		if mode == invites.ModeMessage && len(runPatterns) == 0 {
			return fmt.Errorf("message mode requires at least one --pattern")
		}

		runCfg := invites.RunConfig{
			Mode:            mode,
			TargetCount:     runCount,
			AgeThreshold:    invites.Threshold{Value: runAgeValue, Unit: invites.Unit(runAgeUnit)},
			MessagePatterns: runPatterns,
			SafeMode:        runSafe,
			SafeThreshold:   invites.Threshold{Value: runSafeVal, Unit: invites.Unit(runSafeUnit)},
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return appl.RunOnce(ctx, runCfg)
	},
}

func init() {
	runCmd.Flags().StringVar(&runMode, "mode", string(invites.ModeAge), "selection mode: count, age, or message")
	runCmd.Flags().IntVar(&runCount, "count", 0, "how many invitations to withdraw (count mode)")
	runCmd.Flags().IntVar(&runAgeValue, "age", 1, "age threshold value (age mode)")
	runCmd.Flags().StringVar(&runAgeUnit, "age-unit", string(invites.Month), "age threshold unit: day, week, month, or year")
	runCmd.Flags().StringSliceVar(&runPatterns, "pattern", nil, "message pattern to match (message mode, repeatable)")
	runCmd.Flags().BoolVar(&runSafe, "safe", true, "apply the minimum-age safety floor")
	runCmd.Flags().IntVar(&runSafeVal, "safe-threshold", 2, "safety floor value")
	runCmd.Flags().StringVar(&runSafeUnit, "safe-unit", string(invites.Week), "safety floor unit")

	rootCmd.AddCommand(runCmd)
}
