package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/chromedp/chromedp"
	"github.com/spf13/cobra"

	"github.com/sweeplab/invitesweep/internal/browser"
)

// doctorCmd opens a fingerprint-audit page with the same stealth options as
// the page driver, so the browser profile can be inspected by eye.
var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Audit the browser fingerprint",
	Long: `Opens bot.sannysoft.com in a visible browser using the same stealth
options as the scraper, so you can check what automation signals the page
sees. Press Ctrl-C to close.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		opts := browser.Options(false) // non-headless so you can see it

		allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)
		defer cancel()

		browserCtx, cancel := chromedp.NewContext(allocCtx)
		defer cancel()

		err := chromedp.Run(browserCtx,
			chromedp.Navigate("https://bot.sannysoft.com"),
			chromedp.WaitVisible("body", chromedp.ByQuery),
		)
		if err != nil {
			return err
		}

		fmt.Println("Fingerprint page open - Ctrl-C to exit.")
		<-ctx.Done()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
