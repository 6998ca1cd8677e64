package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/biorag/internal/domain"
	"github.com/cloo-solutions/biorag/internal/repository"
	"github.com/cloo-solutions/biorag/internal/service"
)

type ingestFlags struct {
	id          string
	title       string
	file        string
	abstract    string
	year        string
	organism    string
	environment string
}

// IngestCmd returns the ingest command
func IngestCmd() *cobra.Command {
	var f ingestFlags

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest a publication",
		Long: "Extracts summaries from a publication's text and indexes its chunks.\n" +
			"With DATABASE_URL set the publication and its summaries are stored; otherwise the summaries are printed as JSON.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runIngest(cmd, f)
		},
	}

	cmd.Flags().StringVar(&f.id, "id", "", "Publication id (required)")
	cmd.Flags().StringVar(&f.title, "title", "", "Publication title")
	cmd.Flags().StringVarP(&f.file, "file", "f", "", "Path to the publication text, - for stdin (required)")
	cmd.Flags().StringVar(&f.abstract, "abstract", "", "Publication abstract")
	cmd.Flags().StringVar(&f.year, "year", "", "Publication year")
	cmd.Flags().StringVar(&f.organism, "organism", "", "Studied organism")
	cmd.Flags().StringVar(&f.environment, "environment", "", "Experimental environment")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runIngest(cmd *cobra.Command, f ingestFlags) error {
	ctx, stop := signalContext()
	defer stop()

	text, err := readText(cmd.InOrStdin(), f.file)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cfg, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	in := service.IngestInput{
		DocumentID:  f.id,
		Title:       f.title,
		Abstract:    f.abstract,
		Text:        text,
		Year:        f.year,
		Organism:    f.organism,
		Environment: f.environment,
	}

	out := cmd.OutOrStdout()
	var writer service.RecordWriter = &jsonRecordWriter{out: out}
	if a.publications != nil {
		if err := a.publications.Save(ctx, publicationFromInput(in)); err != nil {
			return fmt.Errorf("save publication: %w", err)
		}
		writer = repository.NewPublicationRepository(a.pool)
	}

	result, err := a.ingestion.Ingest(ctx, in, writer)
	if err != nil {
		return fmt.Errorf("ingest %s: %w", f.id, err)
	}
	return writeJSON(out, result)
}

func publicationFromInput(in service.IngestInput) *domain.Publication {
	return &domain.Publication{
		ID:          in.DocumentID,
		Title:       in.Title,
		Abstract:    in.Abstract,
		Text:        in.Text,
		Year:        in.Year,
		Organism:    in.Organism,
		Environment: in.Environment,
	}
}

func readText(stdin io.Reader, path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read publication text: %w", err)
	}
	return string(data), nil
}

// jsonRecordWriter prints summaries instead of storing them.
type jsonRecordWriter struct {
	out io.Writer
}

func (w *jsonRecordWriter) WriteSummaries(_ context.Context, publicationID string, s *domain.PublicationSummaries) error {
	return writeJSON(w.out, struct {
		PublicationID string                       `json:"publication_id"`
		Summaries     *domain.PublicationSummaries `json:"summaries"`
	}{publicationID, s})
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
