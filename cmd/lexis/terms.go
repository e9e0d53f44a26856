package main

import (
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hupe1980/lexis/index"
)

var termsLimit int

var termsCmd = &cobra.Command{
	Use:   "terms [field] [prefix]",
	Short: "List the terms of a field",
	Long:  `Lists the terms of a field, optionally starting with a prefix, with their document frequency across all shards.`,
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runTerms,
}

func init() {
	termsCmd.Flags().IntVarP(&termsLimit, "limit", "n", 50, "maximum number of terms")
	rootCmd.AddCommand(termsCmd)
}

type termFreq struct {
	Term    string `json:"term"`
	DocFreq int    `json:"doc_freq"`
}

func runTerms(cmd *cobra.Command, args []string) error {
	field, prefix := args[0], ""
	if len(args) > 1 {
		prefix = args[1]
	}
	s, _, err := openSearcher(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	var texts []string
	for _, r := range s.Readers() {
		found, err := fieldTerms(r, field, prefix)
		if err != nil {
			return err
		}
		texts = append(texts, found...)
	}
	slices.Sort(texts)
	texts = slices.Compact(texts)
	if termsLimit > 0 && len(texts) > termsLimit {
		texts = texts[:termsLimit]
	}

	out := make([]termFreq, len(texts))
	for i, text := range texts {
		df, err := s.DocFreq(index.NewTerm(field, text))
		if err != nil {
			return err
		}
		out[i] = termFreq{Term: text, DocFreq: df}
	}

	if outputJSON {
		return printJSON(cmd, out)
	}
	for _, tf := range out {
		cmd.Printf("%-24s %d\n", tf.Term, tf.DocFreq)
	}
	return nil
}

// fieldTerms lists the terms of field in r starting with prefix.
func fieldTerms(r index.Reader, field, prefix string) ([]string, error) {
	te, err := r.Terms(index.NewTerm(field, prefix))
	if err != nil {
		return nil, err
	}
	var out []string
	for {
		ok, err := te.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		t := te.Term()
		if t.Field != field || !strings.HasPrefix(t.Text, prefix) {
			return out, nil
		}
		out = append(out, t.Text)
	}
}
