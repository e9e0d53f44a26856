package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var explainCmd = &cobra.Command{
	Use:   "explain [query] [doc]",
	Short: "Explain the score of a document",
	Long:  `Prints the tree of factors that make up the score of a document for a query.`,
	Args:  cobra.ExactArgs(2),
	RunE:  runExplain,
}

func init() {
	rootCmd.AddCommand(explainCmd)
}

func runExplain(cmd *cobra.Command, args []string) error {
	doc, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid doc id %q: %w", args[1], err)
	}
	s, c, err := openSearcher(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	q, err := resolveQuery(cmd.Context(), s, c, args[0])
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}
	exp, err := s.Explain(cmd.Context(), q, doc)
	if err != nil {
		return fmt.Errorf("explain failed: %w", err)
	}
	cmd.Print(exp.String())
	return nil
}
