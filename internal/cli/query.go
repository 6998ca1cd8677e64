package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/biorag/internal/domain"
	"github.com/cloo-solutions/biorag/internal/service"
)

// AskCmd returns the ask command
func AskCmd() *cobra.Command {
	var (
		id         string
		k          int
		outputJSON bool
	)

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question about one publication",
		Long:  "Answers a question from the most relevant chunks of a single ingested publication.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			a, err := newApp(ctx, cfg, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.qa.Ask(ctx, service.QARequest{
				DocumentID: id,
				Question:   strings.Join(args, " "),
				K:          k,
			})
			if err != nil {
				return err
			}

			if outputJSON {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), res.Answer)
			return err
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Publication id (required)")
	cmd.Flags().IntVar(&k, "k", service.DefaultQAK, "Number of chunks to retrieve")
	cmd.Flags().BoolVarP(&outputJSON, "output", "o", false, "Print the answer as JSON")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}

// SearchCmd returns the search command
func SearchCmd() *cobra.Command {
	var (
		k          int
		outputJSON bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search across all publications",
		Long:  "Searches the global index and returns the best chunk of each matching publication.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			a, err := newApp(ctx, cfg, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			results, err := a.search.Search(ctx, strings.Join(args, " "), k)
			if errors.Is(err, domain.ErrIndexMissing) {
				results, err = []service.SearchResult{}, nil
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if outputJSON {
				return writeJSON(out, results)
			}
			if len(results) == 0 {
				fmt.Fprintln(out, "No results found.")
				return nil
			}
			for i, r := range results {
				fmt.Fprintf(out, "%d. [%.3f] %s (%s)\n", i+1, r.Score, r.Title, r.DocumentID)
				fmt.Fprintf(out, "   %s\n", r.Snippet)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&k, "k", service.DefaultSearchK, "Number of chunks to retrieve before deduplication")
	cmd.Flags().BoolVarP(&outputJSON, "output", "o", false, "Print results as JSON")

	return cmd
}
