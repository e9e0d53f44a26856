package codec

import "encoding/json"

// JSON encodes with encoding/json. A non-empty Indent pretty-prints the
// output with that indent per level.
type JSON struct {
	Indent string
}

func (c JSON) Marshal(v any) ([]byte, error) {
	if c.Indent == "" {
		return json.Marshal(v)
	}
	return json.MarshalIndent(v, "", c.Indent)
}

func (JSON) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// Name returns "json".
func (JSON) Name() string { return "json" }
