package cmd

import "github.com/spf13/cobra"

var rateLimitCmd = &cobra.Command{
	Use:   "rate-limit",
	Short: "Inspect and reset stored chat quota windows",
	Long: `Inspect and reset chat quota windows held in the SQL store.

Keys have the form chat:<client-id>. With store.driver=memory the windows
live inside the running server and cannot be reached from here.`,
}

func init() {
	rateLimitCmd.AddCommand(rateLimitListCmd)
	rateLimitCmd.AddCommand(rateLimitResetCmd)
	rootCmd.AddCommand(rateLimitCmd)
}
