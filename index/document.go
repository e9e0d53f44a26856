package index

// Token is one pre-analyzed term occurrence of a field.
type Token struct {
	Text string
	// PositionIncrement is the gap to the previous token. Zero stacks the token
	// on the previous position; values < 0 are treated as 1.
	PositionIncrement int
	Payload           []byte
}

// Field is a named value of a document.
type Field struct {
	Name  string
	Value string
	// Tokens, when set, replaces analysis of Value.
	Tokens []Token

	Stored    bool
	Indexed   bool
	Tokenized bool
	OmitNorms bool
	Boost     float64
}

// TextField is indexed, tokenized and stored.
func TextField(name, value string) Field {
	return Field{Name: name, Value: value, Stored: true, Indexed: true, Tokenized: true, Boost: 1}
}

// KeywordField is indexed as a single term without norms, and stored.
func KeywordField(name, value string) Field {
	return Field{Name: name, Value: value, Stored: true, Indexed: true, OmitNorms: true, Boost: 1}
}

// StoredField is stored only.
func StoredField(name, value string) Field {
	return Field{Name: name, Value: value, Stored: true, Boost: 1}
}

// TokenField indexes pre-analyzed tokens. The field is not stored.
func TokenField(name string, tokens []Token) Field {
	return Field{Name: name, Tokens: tokens, Indexed: true, Tokenized: true, Boost: 1}
}

// Document is an ordered list of fields.
type Document struct {
	Fields []Field
	Boost  float64
}

// NewDocument returns a document with the given fields.
func NewDocument(fields ...Field) *Document {
	return &Document{Fields: fields, Boost: 1}
}

// Add appends a field.
func (d *Document) Add(f Field) {
	d.Fields = append(d.Fields, f)
}

// Get returns the first value of the named field, or "" when absent.
func (d *Document) Get(name string) string {
	for _, f := range d.Fields {
		if f.Name == name {
			return f.Value
		}
	}
	return ""
}

// Values returns all values of the named field.
func (d *Document) Values(name string) []string {
	var out []string
	for _, f := range d.Fields {
		if f.Name == name {
			out = append(out, f.Value)
		}
	}
	return out
}
