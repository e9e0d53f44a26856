package main

import (
	"fmt"
	"math"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hupe1980/lexis"
	"github.com/hupe1980/lexis/search"
)

var (
	searchLimit  int
	searchSort   string
	searchFilter string
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the corpus",
	Long: `Ranks the documents of the corpus against a query. The query is a
list of words or the path of a TOML or JSON query file.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "maximum number of results")
	searchCmd.Flags().StringVar(&searchSort, "sort", "", "sort keys as field:type[:desc], comma separated (types: score, doc, string, int, float)")
	searchCmd.Flags().StringVar(&searchFilter, "filter", "", "filter file (TOML or JSON filter spec)")
	rootCmd.AddCommand(searchCmd)
}

// searchResult is one printed hit.
type searchResult struct {
	Doc    int               `json:"doc"`
	Score  *float64          `json:"score,omitempty"`
	Sort   []any             `json:"sort,omitempty"`
	Fields map[string]string `json:"fields"`
}

func runSearch(cmd *cobra.Command, args []string) error {
	s, c, err := openSearcher(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	q, err := resolveQuery(cmd.Context(), s, c, args[0])
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}
	sb := s.Search(q).Top(searchLimit).WithDocuments()
	if searchSort != "" {
		sort, err := parseSort(searchSort)
		if err != nil {
			return err
		}
		sb = sb.SortBy(sort)
	}
	if searchFilter != "" {
		f, err := loadFilter(cmd.Context(), s, searchFilter)
		if err != nil {
			return err
		}
		sb = sb.Filter(f)
	}

	hits, err := sb.Execute(cmd.Context())
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	results := make([]searchResult, len(hits))
	for i, h := range hits {
		results[i] = searchResult{Doc: h.Doc, Sort: h.Fields, Fields: storedFields(h)}
		// sorted searches without score tracking leave the score NaN
		if !math.IsNaN(h.Score) {
			results[i].Score = &h.Score
		}
	}

	if outputJSON {
		return outputSearchJSON(cmd, results)
	}
	return outputSearchTable(cmd, c, results)
}

func storedFields(h lexis.Hit) map[string]string {
	out := map[string]string{}
	if h.Document == nil {
		return out
	}
	for _, f := range h.Document.Fields {
		out[f.Name] = f.Value
	}
	return out
}

func outputSearchJSON(cmd *cobra.Command, results []searchResult) error {
	return printJSON(cmd, results)
}

func outputSearchTable(cmd *cobra.Command, c *corpus, results []searchResult) error {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}
	for i, r := range results {
		cmd.Printf("  [%d] doc %d", i+1, r.Doc)
		if r.Score != nil {
			cmd.Printf(" (%.4f)", *r.Score)
		}
		if len(r.Sort) > 0 {
			cmd.Printf(" sort=%v", r.Sort)
		}
		cmd.Println()
		if text := r.Fields[c.DefaultField]; text != "" {
			cmd.Printf("      %s\n", text)
		}
	}
	return nil
}

// parseSort parses "price:int:desc,score" style sort keys.
func parseSort(spec string) (*search.Sort, error) {
	var fields []search.SortField
	for _, key := range strings.Split(spec, ",") {
		parts := strings.Split(strings.TrimSpace(key), ":")
		var (
			field string
			typ   = parts[0]
		)
		if len(parts) > 1 {
			field, typ = parts[0], parts[1]
		}
		reverse := len(parts) > 2 && parts[2] == "desc"
		t, ok := sortTypes[typ]
		if !ok {
			return nil, fmt.Errorf("%w: unknown sort type %q", lexis.ErrInvalidArgument, typ)
		}
		sf, err := search.NewSortField(field, t, reverse)
		if err != nil {
			return nil, err
		}
		fields = append(fields, sf)
	}
	return search.NewSort(fields...), nil
}

var sortTypes = map[string]search.SortType{
	"score":  search.SortScore,
	"doc":    search.SortDoc,
	"string": search.SortString,
	"int":    search.SortInt,
	"float":  search.SortFloat,
}
