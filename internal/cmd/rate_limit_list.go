package cmd

import (
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ixra/ixra-api/internal/core/store"
	"github.com/ixra/ixra-api/internal/output"
)

var (
	rateLimitListPrefix string
	rateLimitListKey    string
)

var rateLimitListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored quota windows",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := resolveOutputFormat(cmd)
		if err != nil {
			return err
		}

		db, err := openConfiguredStore(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		query := store.RateLimitQuery{
			Key:    strings.TrimSpace(rateLimitListKey),
			Prefix: strings.TrimSpace(rateLimitListPrefix),
		}
		if query.Key == "" && query.Prefix == "" {
			query.All = true
		}

		records, err := db.ListRateLimits(cmd.Context(), query)
		if err != nil {
			return err
		}

		rendered, err := output.RateLimits(format, records, time.Now().UTC())
		if err != nil {
			return err
		}
		return writeRendered(cmd, "rate-limit.list", format, rendered)
	},
}

func init() {
	addOutputFlags(rateLimitListCmd)
	rateLimitListCmd.Flags().StringVar(&rateLimitListKey, "key", "", "List a single key (exact match)")
	rateLimitListCmd.Flags().StringVar(&rateLimitListPrefix, "prefix", "", "List keys with matching prefix, e.g. chat:203.0.113.")
}
