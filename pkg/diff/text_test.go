package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	assert.Nil(t, Tokenize(""))
	assert.Equal(t, []string{"hello", " ", "world"}, Tokenize("hello world"))
	assert.Equal(t, []string{"  ", "a", "\n\t", "b", " "}, Tokenize("  a\n\tb "))
	assert.Equal(t, []string{"héllo", " ", "wörld"}, Tokenize("héllo wörld"))
}

func TestTextIdentical(t *testing.T) {
	for _, s := range []string{"x", "hello world", "  spaced\n\nlines  "} {
		segs := Text(s, s)
		require.Len(t, segs, 1)
		assert.Equal(t, Segment{Kind: Unchanged, Text: s}, segs[0])
	}
	assert.Empty(t, Text("", ""))
}

func TestTextAllAddedOrRemoved(t *testing.T) {
	assert.Equal(t, []Segment{{Kind: Added, Text: "newtext"}}, Text("", "newtext"))
	assert.Equal(t, []Segment{{Kind: Removed, Text: "oldtext"}}, Text("oldtext", ""))
	assert.Equal(t, []Segment{{Kind: Added, Text: "two words"}}, Text("", "two words"))
}

func TestTextReplacement(t *testing.T) {
	got := Text("the quick fox", "the slow fox")
	assert.Equal(t, []Segment{
		{Kind: Unchanged, Text: "the "},
		{Kind: Removed, Text: "quick"},
		{Kind: Added, Text: "slow"},
		{Kind: Unchanged, Text: " fox"},
	}, got)
}

func TestTextInsertion(t *testing.T) {
	got := Text("a c", "a b c")
	assert.Equal(t, "a c", Join(got, Unchanged, Removed))
	assert.Equal(t, "a b c", Join(got, Unchanged, Added))
	assert.True(t, Changed(got))
}

func TestTextReconstructs(t *testing.T) {
	pairs := [][2]string{
		{"Write a {tone} email", "Write a short {tone} email to {who}"},
		{"one two three", "three two one"},
		{"line one\nline two", "line one\nline 2\nline three"},
		{"", ""},
	}
	for _, p := range pairs {
		segs := Text(p[0], p[1])
		assert.Equal(t, p[0], Join(segs, Unchanged, Removed))
		assert.Equal(t, p[1], Join(segs, Unchanged, Added))

		for i := 1; i < len(segs); i++ {
			assert.NotEqual(t, segs[i-1].Kind, segs[i].Kind, "adjacent segments must be merged")
		}
	}
}

func TestSegmentKindText(t *testing.T) {
	for _, k := range []SegmentKind{Unchanged, Added, Removed} {
		b, err := k.MarshalText()
		require.NoError(t, err)

		var back SegmentKind
		require.NoError(t, back.UnmarshalText(b))
		assert.Equal(t, k, back)
	}

	var k SegmentKind
	assert.Error(t, k.UnmarshalText([]byte("bogus")))
}
