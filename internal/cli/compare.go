package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// CompareCmd returns the compare command
func CompareCmd() *cobra.Command {
	var outputJSON bool

	cmd := &cobra.Command{
		Use:   "compare <publication-id> <publication-id>",
		Short: "Compare two stored publications",
		Long:  "Generates a side-by-side comparison of methodology, results and conclusions. Requires DATABASE_URL.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if !cfg.HasDatabase() {
				return fmt.Errorf("DATABASE_URL is required")
			}
			a, err := newApp(ctx, cfg, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			cmp, err := a.analytics.Compare(ctx, args[0], args[1])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if outputJSON {
				return writeJSON(out, cmp)
			}
			fmt.Fprintf(out, "Methodology:\n%s\n\n", cmp.MethodologyComparison)
			fmt.Fprintf(out, "Results:\n%s\n\n", cmp.ResultsComparison)
			_, err = fmt.Fprintf(out, "Conclusions:\n%s\n", cmp.ConclusionsComparison)
			return err
		},
	}

	cmd.Flags().BoolVarP(&outputJSON, "output", "o", false, "Print the comparison as JSON")

	return cmd
}
