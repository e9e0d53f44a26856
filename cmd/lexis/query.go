package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hupe1980/lexis"
	"github.com/hupe1980/lexis/codec"
	"github.com/hupe1980/lexis/index"
	"github.com/hupe1980/lexis/querydsl"
	"github.com/hupe1980/lexis/search"
)

// resolveQuery turns a command argument into a query. An existing .toml or
// .json file is decoded as a query spec; anything else is split into words
// searched as optional terms of the default field.
func resolveQuery(ctx context.Context, s *lexis.Searcher, c *corpus, arg string) (search.Query, error) {
	switch filepath.Ext(arg) {
	case ".toml", ".json":
		if sourceExists(arg) {
			data, err := readSource(ctx, arg)
			if err != nil {
				return nil, err
			}
			return s.ParseQuery(data, codec.ForPath(arg))
		}
	}

	words := strings.Fields(strings.ToLower(arg))
	if len(words) == 1 {
		return search.NewTermQuery(index.NewTerm(c.DefaultField, words[0])), nil
	}
	clauses := make([]search.BooleanClause, len(words))
	for i, w := range words {
		clauses[i] = search.BooleanClause{
			Query: search.NewTermQuery(index.NewTerm(c.DefaultField, w)),
			Occur: search.Should,
		}
	}
	return search.NewBooleanQuery(clauses)
}

// loadFilter decodes a filter spec file.
func loadFilter(ctx context.Context, s *lexis.Searcher, path string) (search.Filter, error) {
	data, err := readSource(ctx, path)
	if err != nil {
		return nil, err
	}
	var spec querydsl.FilterSpec
	if err := codec.ForPath(path).Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("decode filter %s: %w", path, err)
	}
	return s.BuildFilter(spec)
}
