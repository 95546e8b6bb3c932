// Copyright 2016 Keybase Inc. All rights reserved.
// Use of this source code is governed by a BSD
// license that can be found in the LICENSE file.

package libsearch

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"math/bits"
	"strings"
	"unicode/utf8"

	"github.com/dchest/siphash"
)

// SignatureBits is the width of a signature, and the number of vote channels.
const SignatureBits = 128

// ErrInvalidSignature is returned when a signature cannot be parsed.
var ErrInvalidSignature = errors.New("invalid signature")

// FeatureKind tells which position of a word a feature was taken from.
type FeatureKind byte

// The three feature shapes.  The values double as the tag byte that prefixes
// the hashed encoding of a feature, so they must never change.
const (
	FeatureStart  FeatureKind = 1
	FeatureMiddle FeatureKind = 2
	FeatureEnd    FeatureKind = 3
)

// Feature is a single unit hashed and voted on when computing a signature.
// `Second` is only meaningful for `FeatureMiddle`.
type Feature struct {
	Kind   FeatureKind
	First  rune
	Second rune
}

// rawByte is added to a byte that is not part of valid UTF-8 to keep it apart
// from every real code point.
const rawByte rune = utf8.MaxRune + 1

// appendUnit appends a character, or the original byte for a raw byte.
func appendUnit(buf []byte, r rune) []byte {
	if r >= rawByte {
		return append(buf, byte(r-rawByte))
	}
	return utf8.AppendRune(buf, r)
}

// appendEncoding appends the canonical byte encoding of the feature: the kind
// tag followed by the UTF-8 encoding of its runes.
func (f Feature) appendEncoding(buf []byte) []byte {
	buf = append(buf, byte(f.Kind))
	buf = appendUnit(buf, f.First)
	if f.Kind == FeatureMiddle {
		buf = appendUnit(buf, f.Second)
	}
	return buf
}

// wordUnits splits `word` into characters.  A byte that does not belong to a
// valid UTF-8 sequence is kept as its own unit, offset by `rawByte`, so words
// that differ only in such bytes still decompose differently.
func wordUnits(word string) []rune {
	units := make([]rune, 0, len(word))
	for i := 0; i < len(word); {
		r, size := utf8.DecodeRuneInString(word[i:])
		if r == utf8.RuneError && size == 1 {
			r = rawByte + rune(word[i])
		}
		units = append(units, r)
		i += size
	}
	return units
}

// Features decomposes `word` into its start marker, one middle marker per pair
// of adjacent characters, and its end marker.  A one-character word has no
// middle markers and an empty word has no features at all.  Invalid UTF-8
// bytes count as one character each and hash as the raw byte.
func Features(word string) []Feature {
	runes := wordUnits(word)
	if len(runes) == 0 {
		return nil
	}
	features := make([]Feature, 0, len(runes)+1)
	features = append(features, Feature{Kind: FeatureStart, First: runes[0]})
	for i := 1; i < len(runes); i++ {
		features = append(features, Feature{Kind: FeatureMiddle, First: runes[i-1], Second: runes[i]})
	}
	features = append(features, Feature{Kind: FeatureEnd, First: runes[len(runes)-1]})
	return features
}

// Signature is a 128-bit fuzzy fingerprint.  Bits 0-63 live in `Lo` and bits
// 64-127 in `Hi`.
type Signature struct {
	Hi uint64
	Lo uint64
}

// Bit reports whether bit `i` of the signature is set.
func (s Signature) Bit(i int) bool {
	if i < 64 {
		return s.Lo>>uint(i)&1 == 1
	}
	return s.Hi>>uint(i-64)&1 == 1
}

// Distance returns the Hamming distance between `s` and `other`.
func (s Signature) Distance(other Signature) uint32 {
	return uint32(bits.OnesCount64(s.Hi^other.Hi) + bits.OnesCount64(s.Lo^other.Lo))
}

// Compare orders signatures by their numeric 128-bit value.  It returns -1, 0
// or +1.
func (s Signature) Compare(other Signature) int {
	switch {
	case s.Hi < other.Hi:
		return -1
	case s.Hi > other.Hi:
		return 1
	case s.Lo < other.Lo:
		return -1
	case s.Lo > other.Lo:
		return 1
	}
	return 0
}

// Less reports whether `s` orders before `other`.
func (s Signature) Less(other Signature) bool {
	return s.Compare(other) < 0
}

// Bytes returns the signature as 16 big-endian bytes.
func (s Signature) Bytes() [16]byte {
	var b [16]byte
	binary.BigEndian.PutUint64(b[0:8], s.Hi)
	binary.BigEndian.PutUint64(b[8:16], s.Lo)
	return b
}

// String returns the signature as 32 lowercase hex digits.
func (s Signature) String() string {
	b := s.Bytes()
	return hex.EncodeToString(b[:])
}

// ParseSignature parses the output of `Signature.String`.
func ParseSignature(str string) (Signature, error) {
	str = strings.TrimPrefix(strings.TrimSpace(str), "0x")
	if len(str) != 32 {
		return Signature{}, fmt.Errorf("%w: want 32 hex digits, got %d", ErrInvalidSignature, len(str))
	}
	var b [16]byte
	if _, err := hex.Decode(b[:], []byte(str)); err != nil {
		return Signature{}, fmt.Errorf("%w: %s", ErrInvalidSignature, err)
	}
	return Signature{Hi: binary.BigEndian.Uint64(b[0:8]), Lo: binary.BigEndian.Uint64(b[8:16])}, nil
}

// HammingDistance returns the number of bits in which `a` and `b` differ.
func HammingDistance(a, b Signature) uint32 {
	return a.Distance(b)
}

// voteCounters holds one signed counter per bit channel.
type voteCounters [SignatureBits]int32

// vote casts one vote per channel from the 128-bit hash (lo holds bits 0-63):
// a set bit increments its counter and a clear bit decrements it.  Counters
// saturate instead of wrapping.
func (c *voteCounters) vote(lo, hi uint64) {
	for i := 0; i < SignatureBits; i++ {
		var bit uint64
		if i < 64 {
			bit = lo >> uint(i) & 1
		} else {
			bit = hi >> uint(i-64) & 1
		}
		if bit == 1 {
			if c[i] != math.MaxInt32 {
				c[i]++
			}
		} else if c[i] != math.MinInt32 {
			c[i]--
		}
	}
}

// signature sets bit i iff counter i is strictly positive.  A counter of
// exactly zero leaves its bit unset.
func (c *voteCounters) signature() Signature {
	var s Signature
	for i := 0; i < 64; i++ {
		if c[i] > 0 {
			s.Lo |= 1 << uint(i)
		}
		if c[i+64] > 0 {
			s.Hi |= 1 << uint(i)
		}
	}
	return s
}

// SignatureFromFeatures aggregates the keyed hashes of `features` into a
// signature.  The result does not depend on the order of `features`.
func SignatureFromFeatures(key Key, features []Feature) Signature {
	k0, k1 := key.Halves()
	var counters voteCounters
	buf := make([]byte, 0, 1+2*utf8.UTFMax)
	for _, f := range features {
		buf = f.appendEncoding(buf[:0])
		lo, hi := siphash.Hash128(k0, k1, buf)
		counters.vote(lo, hi)
	}
	return counters.signature()
}

// ComputeSignature computes the signature of `word` under `key`.  An empty word
// has no features and yields the zero signature; callers are expected to drop
// empty words before getting here.
func ComputeSignature(key Key, word string) Signature {
	return SignatureFromFeatures(key, Features(word))
}
