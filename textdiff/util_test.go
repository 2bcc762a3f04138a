package textdiff

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommonPrefixLength(t *testing.T) {
	assert.Equal(t, 4, commonPrefixLength([]rune("1234abcdef"), []rune("1234xyz")))
	assert.Equal(t, 0, commonPrefixLength([]rune("1234abcdef"), []rune("xyz1234")))
	assert.Equal(t, 0, commonPrefixLength(nil, []rune("abc")))
}

func TestCommonSuffixLength(t *testing.T) {
	assert.Equal(t, 4, commonSuffixLength([]rune("abcdef1234"), []rune("xyz1234")))
	assert.Equal(t, 0, commonSuffixLength([]rune("abcdef1234"), []rune("1234xyz")))
	assert.Equal(t, 0, commonSuffixLength(nil, []rune("abc")))
}

func TestIndexOfRespectsStartOffset(t *testing.T) {
	assert.Equal(t, 1, indexOf("ababab", "bab", 0))
	assert.Equal(t, 3, indexOf("ababab", "bab", 2))
	assert.Equal(t, -1, indexOf("ababab", "bab", 4))
	assert.Equal(t, -1, indexOf("abc", "x", 10))
}

func TestLastIndexOfRespectsEndOffset(t *testing.T) {
	assert.Equal(t, 3, lastIndexOf("ababab", "bab", 5))
	assert.Equal(t, -1, lastIndexOf("abc", "x", -1))
}

func TestRunesIndexOf(t *testing.T) {
	target := []rune("the quick brown fox")
	assert.Equal(t, 4, runesIndexOf(target, []rune("quick"), 0))
	assert.Equal(t, -1, runesIndexOf(target, []rune("slow"), 0))
}

func TestSpliceReplacesInPlace(t *testing.T) {
	base := []Diff{{OpEqual, "a"}, {OpEqual, "b"}, {OpEqual, "c"}}
	out := splice(append([]Diff(nil), base...), 1, 1, Diff{OpInsert, "x"}, Diff{OpInsert, "y"})
	assert.Equal(t, []Diff{{OpEqual, "a"}, {OpInsert, "x"}, {OpInsert, "y"}, {OpEqual, "c"}}, out)
}

func TestSpliceShrinksSlice(t *testing.T) {
	base := []Diff{{OpEqual, "a"}, {OpEqual, "b"}, {OpEqual, "c"}, {OpEqual, "d"}}
	out := splice(append([]Diff(nil), base...), 1, 2, Diff{OpInsert, "x"})
	assert.Equal(t, []Diff{{OpEqual, "a"}, {OpInsert, "x"}, {OpEqual, "d"}}, out)
}

func TestIntArrayToString(t *testing.T) {
	assert.Equal(t, "", intArrayToString(nil))
	assert.Equal(t, "1,2,3", intArrayToString([]uint32{1, 2, 3}))
}

func TestUnescaperRestoresPunctuation(t *testing.T) {
	assert.Equal(t, "hello, world!", unescaper.Replace("hello%2C world%21"))
}
