package cmd

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ixra/ixra-api/internal/core/store"
	"github.com/ixra/ixra-api/internal/output"
)

var (
	rateLimitResetAll    bool
	rateLimitResetKey    string
	rateLimitResetClient string
	rateLimitResetPrefix string
	rateLimitResetYes    bool
	rateLimitResetDryRun bool
)

var rateLimitResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset stored quota windows",
	Example: `  ixra rate-limit reset --client 203.0.113.9
  ixra rate-limit reset --prefix chat: --dry-run
  ixra rate-limit reset --all --yes`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := resolveOutputFormat(cmd)
		if err != nil {
			return err
		}

		query, err := rateLimitResetQuery()
		if err != nil {
			return err
		}

		db, err := openConfiguredStore(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		matched, err := db.CountRateLimits(cmd.Context(), query)
		if err != nil {
			return err
		}

		var deleted int64
		if !rateLimitResetDryRun {
			deleted, err = db.ResetRateLimits(cmd.Context(), query)
			if err != nil {
				return err
			}
		}

		rendered, err := output.ResetResult(format, matched, deleted, rateLimitResetDryRun)
		if err != nil {
			return err
		}
		return writeRendered(cmd, "rate-limit.reset", format, rendered)
	},
}

func rateLimitResetQuery() (store.RateLimitQuery, error) {
	query := store.RateLimitQuery{
		All:    rateLimitResetAll,
		Key:    strings.TrimSpace(rateLimitResetKey),
		Prefix: strings.TrimSpace(rateLimitResetPrefix),
	}
	if client := strings.TrimSpace(rateLimitResetClient); client != "" {
		if query.Key != "" {
			return query, errors.New("--client and --key are mutually exclusive")
		}
		query.Key = "chat:" + client
	}
	if err := query.Validate(); err != nil {
		return query, err
	}
	if query.All && !rateLimitResetYes && !rateLimitResetDryRun {
		return query, errors.New("--all requires --yes (or use --dry-run)")
	}
	return query, nil
}

func init() {
	addOutputFlags(rateLimitResetCmd)
	rateLimitResetCmd.Flags().BoolVar(&rateLimitResetAll, "all", false, "Reset every key")
	rateLimitResetCmd.Flags().StringVar(&rateLimitResetKey, "key", "", "Reset a single key (exact match)")
	rateLimitResetCmd.Flags().StringVar(&rateLimitResetClient, "client", "", "Reset the chat quota of one client identifier")
	rateLimitResetCmd.Flags().StringVar(&rateLimitResetPrefix, "prefix", "", "Reset keys with matching prefix")
	rateLimitResetCmd.Flags().BoolVar(&rateLimitResetYes, "yes", false, "Confirm destructive reset")
	rateLimitResetCmd.Flags().BoolVar(&rateLimitResetDryRun, "dry-run", false, "Show what would be deleted")
}
