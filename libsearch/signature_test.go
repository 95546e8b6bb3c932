package libsearch

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testKey is the fixed key used by the worked examples in these tests.
var testKey = KeyFromUint64s(0, 0x42)

// Tests the `Features` function.  Checks the start, middle and end markers for
// ordinary, one-character and empty words.
func TestFeatures(t *testing.T) {
	expected := []Feature{
		{Kind: FeatureStart, First: 'a'},
		{Kind: FeatureMiddle, First: 'a', Second: 'b'},
		{Kind: FeatureMiddle, First: 'b', Second: 'c'},
		{Kind: FeatureEnd, First: 'c'},
	}
	assert.Equal(t, expected, Features("abc"))

	single := Features("x")
	require.Len(t, single, 2, "a one-character word should only have start and end markers")
	assert.Equal(t, FeatureStart, single[0].Kind)
	assert.Equal(t, FeatureEnd, single[1].Kind)
	assert.Nil(t, Features(""), "an empty word should not have any features")

	// Multi-byte characters are split on rune boundaries.
	runes := Features("日本")
	require.Len(t, runes, 3)
	assert.Equal(t, Feature{Kind: FeatureMiddle, First: '日', Second: '本'}, runes[1])
}

// Tests that bytes outside valid UTF-8 are kept apart from each other and from
// the replacement character.
func TestFeaturesInvalidUTF8(t *testing.T) {
	words := []string{"a\xffb", "a\xfeb", "a�b", "a\xe6b"}
	sigs := make(map[Signature]string)
	for _, word := range words {
		assert.Len(t, Features(word), 4, "%q", word)
		sig := ComputeSignature(testKey, word)
		other, seen := sigs[sig]
		assert.False(t, seen, "%q and %q have the same signature", word, other)
		sigs[sig] = word
	}

	// A truncated sequence is one character per byte.
	assert.Len(t, Features("\xe6\x97"), 3)
	assert.Len(t, Features("\xe6\x97\xa5"), 2)
}

// Tests that signatures are deterministic.
func TestSignatureDeterministic(t *testing.T) {
	words := []string{"a", "hello", "Tokio", "fuzzy-keyword", "日本語"}
	for _, word := range words {
		assert.Equal(t, ComputeSignature(testKey, word), ComputeSignature(testKey, word), "signature of %q is not deterministic", word)
		assert.Equal(t, ComputeSignature(testKey, word), Trapdoor(testKey, word), "trapdoor of %q differs from its signature", word)
	}
}

// Tests that the aggregation does not depend on the order of the features.
func TestSignatureFromFeaturesOrderIndependent(t *testing.T) {
	features := Features("searchable")
	reversed := make([]Feature, len(features))
	for i, f := range features {
		reversed[len(features)-1-i] = f
	}
	assert.Equal(t, SignatureFromFeatures(testKey, features), SignatureFromFeatures(testKey, reversed))
}

// Tests that different keys give unrelated signatures.  The average distance
// over many samples should be near half of the bits.
func TestSignatureKeyIndependence(t *testing.T) {
	words := []string{"hello", "world", "signature", "trapdoor", "index", "search", "fuzzy", "keyword", "a", "Tokio"}
	total := 0
	samples := 100
	for i := 0; i < samples; i++ {
		word := words[i%len(words)]
		s1 := ComputeSignature(KeyFromUint64s(uint64(i), 1), word)
		s2 := ComputeSignature(KeyFromUint64s(uint64(i), 2), word)
		total += int(s1.Distance(s2))
	}
	avg := float64(total) / float64(samples)
	assert.InDelta(t, 64, avg, 16, "average distance between keys should be close to 64")
}

// Tests the worked examples: similar words stay within the threshold and
// unrelated ones do not.
func TestSignatureSimilarity(t *testing.T) {
	hello := ComputeSignature(testKey, "hello")
	assert.LessOrEqual(t, HammingDistance(hello, ComputeSignature(testKey, "hallo")), DefaultThreshold)
	assert.Greater(t, HammingDistance(hello, ComputeSignature(testKey, "simhash")), DefaultThreshold)
	assert.LessOrEqual(t, HammingDistance(ComputeSignature(testKey, "Tokio"), ComputeSignature(testKey, "tokio")), DefaultThreshold)
}

// Tests that counters saturate instead of wrapping.
func TestVoteSaturates(t *testing.T) {
	var c voteCounters
	c[0] = math.MaxInt32
	c[1] = math.MinInt32
	c[64] = math.MaxInt32
	c.vote(1, 1)
	assert.Equal(t, int32(math.MaxInt32), c[0], "counter wrapped")
	assert.Equal(t, int32(math.MinInt32), c[1], "counter wrapped")
	assert.Equal(t, int32(math.MaxInt32), c[64], "counter wrapped")
	c.vote(0, 0)
	assert.Equal(t, int32(math.MaxInt32-1), c[0], "counter did not decrement")
	assert.Equal(t, int32(math.MaxInt32-1), c[64], "counter did not decrement")
	s := c.signature()
	assert.True(t, s.Bit(0))
	assert.False(t, s.Bit(1))
	assert.True(t, s.Bit(64))

	// A very long word still hashes without trouble.
	long := strings.Repeat("ab", 50000)
	assert.Equal(t, ComputeSignature(testKey, long), ComputeSignature(testKey, long))
}

// Tests that a counter of exactly zero leaves its bit unset.
func TestZeroVoteLeavesBitUnset(t *testing.T) {
	var c voteCounters
	c.vote(0x0123456789abcdef, 0xfedcba9876543210)
	c.vote(^uint64(0x0123456789abcdef), ^uint64(0xfedcba9876543210))
	assert.Equal(t, Signature{}, c.signature(), "tied counters should give the zero signature")
	assert.Equal(t, Signature{}, ComputeSignature(testKey, ""), "the empty word should give the zero signature")
}

// Tests the helpers on `Signature`.
func TestSignatureHelpers(t *testing.T) {
	a := Signature{Hi: 1, Lo: 0}
	b := Signature{Hi: 0, Lo: math.MaxUint64}
	assert.True(t, b.Less(a))
	assert.False(t, a.Less(b))
	assert.Zero(t, a.Compare(a))
	assert.Equal(t, uint32(65), a.Distance(b))
	assert.True(t, a.Bit(64))
	assert.False(t, a.Bit(0))
	assert.True(t, b.Bit(63))

	parsed, err := ParseSignature(b.String())
	require.NoError(t, err, "error when parsing signature")
	assert.Equal(t, b, parsed)
	_, err = ParseSignature("xyz")
	assert.Error(t, err, "no error returned for a malformed signature")
}
