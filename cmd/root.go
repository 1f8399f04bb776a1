// Package cmd implements the invitesweep CLI.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sweeplab/invitesweep/internal/app"
	"github.com/sweeplab/invitesweep/internal/config"
	"github.com/sweeplab/invitesweep/internal/observability"
)

var (
	cfg      *config.Config
	appl     *app.App
	logLevel string
	headful  bool
)

var rootCmd = &cobra.Command{
	Use:   "invitesweep",
	Short: "Bulk withdrawal of pending connection invitations",
	Long: `invitesweep automates bulk withdrawal of pending outgoing connection
invitations: it reveals the full sent-invitations list, classifies entries by
age and message content, and withdraws them one at a time with safety gating,
pause/resume, and persistent history.`,
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		createdDefault := false
		cfg, err = config.Load()
		if err != nil {
			// First run (or unreadable config): fall back to defaults,
			// persisting them when the file simply didn't exist yet.
			cfg = config.Default()
			if os.IsNotExist(err) && cfg.Save() == nil {
				createdDefault = true
			}
		}

		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}
		if headful {
			cfg.Target.Headless = false
		}
		observability.Initialize(cfg.Logging)

		if createdDefault {
			if path, pathErr := config.Path(); pathErr == nil {
				observability.L().Info("created default config", zap.String("path", path))
			}
		}

		appl, err = app.New(cfg, observability.L())
		return err
	},
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override configured log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().BoolVar(&headful, "headful", false, "run the browser with a visible window")
}
