package spans

import (
	"github.com/hupe1980/lexis/index"
)

// CollectPayloads returns, in span order, the payloads of every span q
// matches in r. Spans without payloads contribute nothing. It is meant for
// highlighting and does not affect scoring.
func CollectPayloads(r index.Reader, q SpanQuery) ([][]byte, error) {
	sp, err := q.Spans(r)
	if err != nil {
		return nil, err
	}
	var out [][]byte
	for {
		ok, err := sp.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		if !sp.IsPayloadAvailable() {
			continue
		}
		p, err := sp.Payload()
		if err != nil {
			return nil, err
		}
		out = append(out, p...)
	}
}

// DocPayloads is CollectPayloads restricted to one document.
func DocPayloads(r index.Reader, q SpanQuery, doc int) ([][]byte, error) {
	sp, err := q.Spans(r)
	if err != nil {
		return nil, err
	}
	ok, err := sp.SkipTo(doc)
	var out [][]byte
	for ; err == nil && ok && sp.Doc() == doc; ok, err = sp.Next() {
		if !sp.IsPayloadAvailable() {
			continue
		}
		p, perr := sp.Payload()
		if perr != nil {
			return nil, perr
		}
		out = append(out, p...)
	}
	return out, err
}
