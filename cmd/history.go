package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show withdrawal history",
	Long:  `Prints persisted withdrawal sessions, newest first, grouped by day.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sessions, err := appl.History(historyLimit)
		if err != nil {
			return err
		}
		if len(sessions) == 0 {
			fmt.Println("No withdrawal history yet.")
			return nil
		}

		for _, sess := range sessions {
			fmt.Printf("%s  (%d withdrawn)\n", sess.Date, len(sess.Records))
			for _, r := range sess.Records {
				line := "  " + r.Name
				if r.Age != "" {
					line += "  [" + r.Age + "]"
				}
				if r.ProfileURL != "" {
					line += "  " + r.ProfileURL
				}
				fmt.Println(line)
			}
			fmt.Println()
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 10, "how many sessions to show")
	rootCmd.AddCommand(historyCmd)
}
