package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/hupe1980/lexis"
	"github.com/hupe1980/lexis/codec"
)

var (
	corpusPath  string
	logLevel    string
	parallelism int
	outputJSON  bool
)

var rootCmd = &cobra.Command{
	Use:   "lexis",
	Short: "Full-text search over an in-memory corpus",
	Long: `Loads a corpus file into in-memory segments and evaluates queries
against it with TF-IDF scoring. Several shards are searched as one index.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&corpusPath, "corpus", "c", "corpus.toml", "corpus file or s3:// / minio:// URL (TOML or JSON)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().IntVarP(&parallelism, "parallel", "p", 1, "concurrent sub-searches")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output results as JSON")
}

// openSearcher loads the corpus and returns a searcher over it.
func openSearcher(ctx context.Context, opts ...lexis.Option) (*lexis.Searcher, *corpus, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q: %w", logLevel, err)
	}
	c, err := loadCorpus(ctx, corpusPath)
	if err != nil {
		return nil, nil, err
	}
	readers, err := c.readers()
	if err != nil {
		return nil, nil, err
	}
	s, err := lexis.New(readers, append([]lexis.Option{
		lexis.WithLogLevel(level),
		lexis.WithDefaultField(c.DefaultField),
		lexis.WithParallelism(parallelism),
	}, opts...)...)
	if err != nil {
		return nil, nil, err
	}
	return s, c, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := codec.JSON{Indent: "  "}.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
