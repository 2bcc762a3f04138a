package textdiff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPatchRoundTrip asserts property 7: applying patches built from (a,b)
// back onto a produces b, and every patch reports applied=true when the
// source text hasn't drifted from what the patches were built against.
func TestPatchRoundTrip(t *testing.T) {
	config := NewDefaultConfig()
	cases := [][2]string{
		{"The quick brown fox jumps over the lazy dog.",
			"The quick brown cat leaps over two lazy dogs."},
		{"", "freshly inserted text"},
		{"entirely removed", ""},
		{"a short line", "a considerably longer replacement line with more words in it"},
	}
	for _, c := range cases {
		patches := config.PatchMake(c[0], c[1])
		result, applied := config.PatchApply(patches, c[0])
		assert.Equal(t, c[1], result)
		for _, ok := range applied {
			assert.True(t, ok)
		}
	}
}

// TestPatchRoundTripOverLongText exercises PatchSplitMax's hunk-splitting
// path by diffing two texts long enough to exceed MatchMaxBits.
func TestPatchRoundTripOverLongText(t *testing.T) {
	config := NewDefaultConfig()
	base := ""
	for i := 0; i < 20; i++ {
		base += "the quick brown fox jumps over the lazy dog. "
	}
	updated := base[:50] + "AN ENTIRELY DIFFERENT MIDDLE SECTION GOES RIGHT HERE. " + base[120:]

	patches := config.PatchMake(base, updated)
	result, applied := config.PatchApply(patches, base)
	assert.Equal(t, updated, result)
	for _, ok := range applied {
		assert.True(t, ok)
	}
}

// TestPatchToTextFromTextRoundTrip checks that the textual patch
// representation round-trips through PatchFromText/PatchToText.
func TestPatchToTextFromTextRoundTrip(t *testing.T) {
	config := NewDefaultConfig()
	patches := config.PatchMake("hello there world", "hello big world")
	text := config.PatchToText(patches)

	parsed, err := config.PatchFromText(text)
	require.NoError(t, err)
	assert.Equal(t, patches, parsed)
}

// TestPatchFromTextRejectsMalformedHeader checks the parser error path for
// a line that isn't a valid hunk header.
func TestPatchFromTextRejectsMalformedHeader(t *testing.T) {
	config := NewDefaultConfig()
	_, err := config.PatchFromText("not a patch header\n")
	assert.Error(t, err)
}

// TestPatchApplyFailsOnUnrelatedText checks that applying a patch set to
// text it wasn't built against is reported as not applied (rather than
// corrupting the input) once the source has drifted too far to locate.
func TestPatchApplyFailsOnUnrelatedText(t *testing.T) {
	config := NewDefaultConfig()
	patches := config.PatchMake("alpha beta gamma delta", "alpha beta GAMMA delta")
	_, applied := config.PatchApply(patches, "completely unrelated content that shares nothing")
	for _, ok := range applied {
		assert.False(t, ok)
	}
}
