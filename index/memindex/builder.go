package memindex

import (
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/hupe1980/lexis/index"
	"github.com/hupe1980/lexis/internal/docset"
)

type posting struct {
	docs      []int
	freqs     []int
	positions [][]int
	// payloads[i][j] is the payload at positions[i][j]; nil when the term never
	// carried one.
	payloads [][][]byte
}

type storedField struct {
	Name  string `json:"n" toml:"n"`
	Value string `json:"v" toml:"v"`
}

// Builder accumulates documents for a Segment. It is not safe for concurrent use.
type Builder struct {
	opts     options
	postings map[index.Term]*posting
	norms    map[string][]float64
	stored   [][]byte
	deleted  *docset.Bitmap
	maxDoc   int
	built    bool
}

// NewBuilder returns an empty builder.
func NewBuilder(opts ...Option) *Builder {
	return &Builder{
		opts:     applyOptions(opts),
		postings: make(map[index.Term]*posting),
		norms:    make(map[string][]float64),
		deleted:  docset.New(),
	}
}

// Add indexes doc and returns its id.
func (b *Builder) Add(doc *index.Document) (int, error) {
	if b.built {
		return 0, fmt.Errorf("add after build: %w", index.ErrUnsupported)
	}
	id := b.maxDoc

	type fieldState struct {
		pos      int
		numTerms int
		boost    float64
		norms    bool
	}
	fields := make(map[string]*fieldState)
	var order []string
	var stored []storedField

	docBoost := doc.Boost
	if docBoost == 0 {
		docBoost = 1
	}

	for _, f := range doc.Fields {
		if f.Stored {
			stored = append(stored, storedField{Name: f.Name, Value: f.Value})
		}
		if !f.Indexed {
			continue
		}
		st, ok := fields[f.Name]
		if !ok {
			st = &fieldState{pos: -1, boost: docBoost}
			fields[f.Name] = st
			order = append(order, f.Name)
		}
		if f.Boost != 0 {
			st.boost *= f.Boost
		}
		st.norms = st.norms || !f.OmitNorms

		for _, tok := range b.tokens(f) {
			inc := tok.PositionIncrement
			if inc < 0 {
				inc = 1
			}
			st.pos += inc
			if st.pos < 0 {
				st.pos = 0
			}
			st.numTerms++
			b.addPosition(index.Term{Field: f.Name, Text: tok.Text}, id, st.pos, tok.Payload)
		}
	}

	for _, name := range order {
		st := fields[name]
		if !st.norms {
			continue
		}
		b.norms[name] = append(b.norms[name], make([]float64, id+1-len(b.norms[name]))...)
		b.norms[name][id] = st.boost * b.opts.lengthNorm(name, st.numTerms)
	}

	block, err := b.encodeStored(stored)
	if err != nil {
		return 0, fmt.Errorf("store document %d: %w", id, err)
	}
	b.stored = append(b.stored, block)
	b.maxDoc++
	return id, nil
}

// Delete marks doc as deleted in the segment being built.
func (b *Builder) Delete(doc int) error {
	if b.built {
		return fmt.Errorf("delete after build: %w", index.ErrUnsupported)
	}
	if doc < 0 || doc >= b.maxDoc {
		return fmt.Errorf("delete %d: %w", doc, index.ErrDocOutOfRange)
	}
	b.deleted.Add(doc)
	return nil
}

// Build freezes the builder into a Segment. The builder cannot be reused.
func (b *Builder) Build() (*Segment, error) {
	if b.built {
		return nil, fmt.Errorf("build twice: %w", index.ErrUnsupported)
	}
	b.built = true

	terms := make([]index.Term, 0, len(b.postings))
	for t := range b.postings {
		terms = append(terms, t)
	}
	slices.SortFunc(terms, index.Term.Compare)

	norms := make(map[string][]byte, len(b.norms))
	for field, values := range b.norms {
		encoded := make([]byte, b.maxDoc)
		for doc := range encoded {
			v := 1.0 // docs without the field keep a neutral norm
			if doc < len(values) && values[doc] != 0 {
				v = values[doc]
			}
			encoded[doc] = index.EncodeNorm(v)
		}
		norms[field] = encoded
	}

	return &Segment{
		id:          uuid.New(),
		maxDoc:      b.maxDoc,
		terms:       terms,
		postings:    b.postings,
		norms:       norms,
		stored:      b.stored,
		compression: b.opts.compression,
		codec:       b.opts.codec,
		deleted:     b.deleted,
	}, nil
}

func (b *Builder) tokens(f index.Field) []index.Token {
	if f.Tokens != nil {
		return f.Tokens
	}
	if !f.Tokenized {
		return []index.Token{{Text: f.Value, PositionIncrement: 1}}
	}
	return b.opts.analyzer(f.Name, f.Value)
}

func (b *Builder) addPosition(t index.Term, doc, pos int, payload []byte) {
	p, ok := b.postings[t]
	if !ok {
		p = &posting{}
		b.postings[t] = p
	}
	last := len(p.docs) - 1
	if last < 0 || p.docs[last] != doc {
		p.docs = append(p.docs, doc)
		p.freqs = append(p.freqs, 0)
		p.positions = append(p.positions, nil)
		if p.payloads != nil {
			p.payloads = append(p.payloads, nil)
		}
		last++
	}
	p.freqs[last]++
	p.positions[last] = append(p.positions[last], pos)

	if len(payload) > 0 && p.payloads == nil {
		p.payloads = make([][][]byte, len(p.docs))
	}
	if p.payloads != nil {
		per := p.payloads[last]
		per = append(per, make([][]byte, len(p.positions[last])-len(per))...)
		per[len(per)-1] = slices.Clone(payload)
		p.payloads[last] = per
	}
}

func (b *Builder) encodeStored(fields []storedField) ([]byte, error) {
	raw, err := b.opts.codec.Marshal(storedDoc{Fields: fields})
	if err != nil {
		return nil, err
	}
	return compressBlock(raw, b.opts.compression)
}

type storedDoc struct {
	Fields []storedField `json:"f" toml:"f"`
}
