package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ixra/ixra-api/internal/output"
	"github.com/ixra/ixra-api/internal/quote"
)

var (
	quoteService    string
	quoteBuild      string
	quoteComplexity string
	quoteDepth      string
)

var quoteCmd = &cobra.Command{
	Use:   "quote",
	Short: "Estimate the price of a simulation project",
	Long: `Estimate the price of a simulation project offline.

Prices are base rate x complexity x depth, shown as a range from 80% to 120%
rounded to the nearest $100. Complete builds and exhaustive analyses return
a custom quote or consultation notice instead of a range.`,
	Example: `  ixra quote --service sim-only --complexity complex --depth 2x
  ixra quote options --output-format markdown`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := resolveOutputFormat(cmd)
		if err != nil {
			return err
		}

		sel := quote.ParseSelection(quoteService, quoteBuild, quoteComplexity, quoteDepth)
		est, err := quote.Calculate(sel)
		if err != nil {
			return err
		}

		rendered, err := output.Quote(format, sel, est)
		if err != nil {
			return err
		}
		return writeRendered(cmd, "quote", format, rendered)
	},
}

var quoteOptionsCmd = &cobra.Command{
	Use:   "options",
	Short: "List services, build types, and tiers",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := resolveOutputFormat(cmd)
		if err != nil {
			return err
		}
		rendered, err := output.QuoteOptions(format)
		if err != nil {
			return err
		}
		return writeRendered(cmd, "quote.options", format, rendered)
	},
}

func init() {
	addOutputFlags(quoteCmd)
	quoteCmd.Flags().StringVar(&quoteService, "service", "", "full-service|sim-only (default full-service)")
	quoteCmd.Flags().StringVar(&quoteBuild, "build", "", "single|multi (default single)")
	quoteCmd.Flags().StringVar(&quoteComplexity, "complexity", "", "simple|medium|complex (default medium)")
	quoteCmd.Flags().StringVar(&quoteDepth, "depth", "", "1x|2x|4x|10x (default 1x)")

	addOutputFlags(quoteOptionsCmd)
	quoteCmd.AddCommand(quoteOptionsCmd)
	rootCmd.AddCommand(quoteCmd)
}
