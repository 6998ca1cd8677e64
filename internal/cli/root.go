package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/cloo-solutions/biorag/internal/config"
)

// RootCmd returns the bioragd command tree.
func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "bioragd",
		Short:         "Bioscience publication RAG service",
		Long:          "bioragd ingests bioscience publications into vector indices and answers questions over them.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	fs := root.PersistentFlags()
	fs.String("log-level", "", "Log level override (debug, info, warn, error)")
	fs.String("index-backend", "", "Index storage backend override (file, s3, postgres)")
	fs.String("indices-dir", "", "Directory for the file index backend")
	fs.String("prompts", "", "YAML file with prompt overrides")

	root.AddCommand(ServeCmd())
	root.AddCommand(IngestCmd())
	root.AddCommand(AskCmd())
	root.AddCommand(SearchCmd())
	root.AddCommand(CompareCmd())
	root.AddCommand(MigrateCmd())

	return root
}

// loadConfig reads the environment and applies any persistent flag the user
// set explicitly on top of it.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if applyOverrides(cmd.Flags(), cfg) {
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid flags: %w", err)
		}
	}
	return cfg, nil
}

func applyOverrides(fs *pflag.FlagSet, cfg *config.Config) bool {
	targets := map[string]*string{
		"log-level":     &cfg.LogLevel,
		"index-backend": &cfg.IndexBackend,
		"indices-dir":   &cfg.IndicesDir,
		"prompts":       &cfg.PromptsFile,
	}

	changed := false
	fs.Visit(func(f *pflag.Flag) {
		if dst, ok := targets[f.Name]; ok {
			*dst = f.Value.String()
			changed = true
		}
	})
	return changed
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
