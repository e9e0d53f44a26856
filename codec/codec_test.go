package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type storedDoc struct {
	Title string   `json:"title" toml:"title"`
	Tags  []string `json:"tags" toml:"tags"`
}

func TestByName(t *testing.T) {
	for _, name := range []string{"json", "toml", "JSON", "go-json"} {
		c, ok := ByName(name)
		require.True(t, ok, name)
		assert.NotEmpty(t, c.Name())
	}
	_, ok := ByName("yaml")
	assert.False(t, ok)
}

func TestForPath(t *testing.T) {
	assert.Equal(t, "toml", ForPath("corpus.toml").Name())
	assert.Equal(t, "json", ForPath("query.json").Name())
	assert.Equal(t, Default.Name(), ForPath("README").Name())
}

func TestCodecsDecodeWhatTheyEncode(t *testing.T) {
	in := storedDoc{Title: "go search", Tags: []string{"a", "b"}}
	for _, c := range []Codec{JSON{}, GoJSON{}, TOML{}} {
		t.Run(c.Name(), func(t *testing.T) {
			var out storedDoc
			require.NoError(t, c.Unmarshal(MustMarshal(c, in), &out))
			assert.Equal(t, in, out)
		})
	}
}

func TestJSONIndent(t *testing.T) {
	in := storedDoc{Title: "t", Tags: []string{"a"}}
	assert.Equal(t, `{"title":"t","tags":["a"]}`, string(MustMarshal(JSON{}, in)))
	assert.Equal(t, "{\n  \"title\": \"t\",\n  \"tags\": [\n    \"a\"\n  ]\n}", string(MustMarshal(JSON{Indent: "  "}, in)))
}

func TestGoJSONInterchangeable(t *testing.T) {
	in := storedDoc{Title: "go search", Tags: []string{"x"}}
	var out storedDoc
	require.NoError(t, JSON{}.Unmarshal(MustMarshal(GoJSON{}, in), &out))
	assert.Equal(t, in, out)
}
