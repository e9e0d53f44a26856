package main

import (
	"context"
	"fmt"
	"slices"

	"github.com/hupe1980/lexis/codec"
	"github.com/hupe1980/lexis/index"
	"github.com/hupe1980/lexis/index/memindex"
)

// corpus is the decoded corpus file.
type corpus struct {
	DefaultField string `json:"default_field" toml:"default_field"`
	// Shards splits the documents into contiguous shards searched as one
	// index. Defaults to 1.
	Shards int `json:"shards" toml:"shards"`
	// Segments splits every shard into segments. Defaults to 1.
	Segments int `json:"segments" toml:"segments"`
	// Compression of stored fields: none, lz4 or zstd.
	Compression   string              `json:"compression" toml:"compression"`
	KeywordFields []string            `json:"keyword_fields" toml:"keyword_fields"`
	Deleted       []int               `json:"deleted" toml:"deleted"`
	Documents     []map[string]string `json:"documents" toml:"documents"`
}

// loadCorpus reads a corpus from a local path or a remote source.
func loadCorpus(ctx context.Context, path string) (*corpus, error) {
	data, err := readSource(ctx, path)
	if err != nil {
		return nil, err
	}
	c := &corpus{}
	if err := codec.ForPath(path).Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("decode corpus %s: %w", path, err)
	}
	if c.DefaultField == "" {
		c.DefaultField = "body"
	}
	c.Shards = max(c.Shards, 1)
	c.Segments = max(c.Segments, 1)
	if len(c.Documents) == 0 {
		return nil, fmt.Errorf("corpus %s has no documents", path)
	}
	return c, nil
}

func (c *corpus) document(fields map[string]string) *index.Document {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	slices.Sort(names)

	doc := index.NewDocument()
	for _, name := range names {
		if slices.Contains(c.KeywordFields, name) {
			doc.Add(index.KeywordField(name, fields[name]))
		} else {
			doc.Add(index.TextField(name, fields[name]))
		}
	}
	return doc
}

// readers builds one reader per shard. Shards with several segments are
// multi-readers over them.
func (c *corpus) readers() ([]index.Reader, error) {
	ct, err := memindex.ParseCompression(c.Compression)
	if err != nil {
		return nil, err
	}
	shardDocs := split(len(c.Documents), c.Shards)
	out := make([]index.Reader, 0, len(shardDocs))
	for _, shard := range shardDocs {
		var segs []index.Reader
		for _, seg := range split(shard.end-shard.start, c.Segments) {
			b := memindex.NewBuilder(memindex.WithCompression(ct))
			for i := shard.start + seg.start; i < shard.start+seg.end; i++ {
				if _, err := b.Add(c.document(c.Documents[i])); err != nil {
					return nil, fmt.Errorf("document %d: %w", i, err)
				}
				if slices.Contains(c.Deleted, i) {
					if err := b.Delete(i - shard.start - seg.start); err != nil {
						return nil, fmt.Errorf("delete document %d: %w", i, err)
					}
				}
			}
			s, err := b.Build()
			if err != nil {
				return nil, err
			}
			segs = append(segs, s)
		}
		if len(segs) == 1 {
			out = append(out, segs[0])
		} else {
			out = append(out, index.NewMultiReader(segs...))
		}
	}
	return out, nil
}

type span struct{ start, end int }

// split divides n items into at most parts contiguous, non-empty spans.
func split(n, parts int) []span {
	size := (n + parts - 1) / parts
	var out []span
	for start := 0; start < n; start += size {
		out = append(out, span{start, min(start+size, n)})
	}
	return out
}
