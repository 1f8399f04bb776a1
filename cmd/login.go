package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and store session cookies",
	Long: `Opens a visible browser window on the login page. Complete the login
(including any verification challenge); once the feed loads, session cookies
are extracted and stored for headless runs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := appl.Login(ctx); err != nil {
			return err
		}
		fmt.Println("Login successful - session cookies saved.")
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Clear stored session cookies",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := appl.Logout(); err != nil && !os.IsNotExist(err) {
			return err
		}
		fmt.Println("Stored session cookies cleared.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
}
