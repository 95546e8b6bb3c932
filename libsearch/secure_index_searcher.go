package libsearch

import (
	"sort"

	"github.com/Workiva/go-datastructures/bitarray"
)

// DefaultThreshold is the largest Hamming distance, out of 128 bits, at which a
// signature still matches a trapdoor.
const DefaultThreshold uint32 = 32

// Trapdoor computes the search token for `word` under `key`.  It is the same
// value as the signature of `word`.
func Trapdoor(key Key, word string) Signature {
	return ComputeSignature(key, word)
}

// Search returns the documents whose words lie within `DefaultThreshold` of
// `trapdoor`.
func Search(idx *Index, trapdoor Signature) []uint64 {
	return SearchThreshold(idx, trapdoor, DefaultThreshold)
}

// SearchThreshold scans every entry of `idx` and returns, in ascending order
// and without duplicates, the documents of every entry whose signature is at
// most `threshold` bits away from `trapdoor`.
func SearchThreshold(idx *Index, trapdoor Signature, threshold uint32) []uint64 {
	result := bitarray.NewSparseBitArray()
	for i := 0; i < idx.Len(); i++ {
		e := idx.entries[i]
		if e.sig.Distance(trapdoor) <= threshold {
			result = result.Or(e.docs)
		}
	}
	return result.ToNums()
}

// Match is one index entry that qualified for a search.
type Match struct {
	Signature Signature
	Distance  uint32
	Documents []uint64
}

// SearchMatches is like `SearchThreshold` but reports each qualifying entry on
// its own, closest first.  Ties are broken by signature order.
func SearchMatches(idx *Index, trapdoor Signature, threshold uint32) []Match {
	var matches []Match
	for i := 0; i < idx.Len(); i++ {
		e := idx.entries[i]
		if d := e.sig.Distance(trapdoor); d <= threshold {
			matches = append(matches, Match{Signature: e.sig, Distance: d, Documents: e.docs.ToNums()})
		}
	}
	// Entries are already in signature order, so a stable sort keeps ties in it.
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})
	return matches
}
