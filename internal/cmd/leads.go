package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ixra/ixra-api/internal/output"
)

var (
	leadsSince time.Duration
	leadsLimit int
)

var leadsCmd = &cobra.Command{
	Use:   "leads",
	Short: "Review contact form submissions",
}

var leadsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored leads, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := resolveOutputFormat(cmd)
		if err != nil {
			return err
		}
		if leadsLimit < 1 {
			return fmt.Errorf("--limit must be at least 1")
		}

		db, err := openConfiguredStore(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		var since time.Time
		if leadsSince > 0 {
			since = time.Now().UTC().Add(-leadsSince)
		}

		leads, err := db.ListLeads(cmd.Context(), since, leadsLimit)
		if err != nil {
			return err
		}

		rendered, err := output.Leads(format, leads)
		if err != nil {
			return err
		}
		return writeRendered(cmd, "leads", format, rendered)
	},
}

func init() {
	addOutputFlags(leadsListCmd)
	leadsListCmd.Flags().DurationVar(&leadsSince, "since", 0, "Only leads received within this duration, e.g. 168h")
	leadsListCmd.Flags().IntVar(&leadsLimit, "limit", 50, "Maximum number of leads")

	leadsCmd.AddCommand(leadsListCmd)
	rootCmd.AddCommand(leadsCmd)
}
