// Copyright 2016 Keybase Inc. All rights reserved.
// Use of this source code is governed by a BSD
// license that can be found in the LICENSE file.

package libsearch

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"

	"github.com/Workiva/go-datastructures/bitarray"
)

// indexMagic prefixes every marshaled index.
var indexMagic = []byte("FSI1")

// ErrCorruptIndex is returned when a marshaled index cannot be decoded.
var ErrCorruptIndex = errors.New("corrupt index")

// indexEntry maps one signature to the set of documents containing a word with
// that signature.
type indexEntry struct {
	sig  Signature
	docs bitarray.BitArray // Sparse set of document references.
}

// Index maps signatures to sets of document references.  The entries are kept
// in ascending signature order.  An Index is never modified once built, so it
// is safe for concurrent use.
type Index struct {
	entries []indexEntry
}

// newIndex freezes the accumulated postings into an Index.
func newIndex(postings map[Signature]bitarray.BitArray) *Index {
	idx := &Index{entries: make([]indexEntry, 0, len(postings))}
	for sig, docs := range postings {
		idx.entries = append(idx.entries, indexEntry{sig: sig, docs: docs})
	}
	sort.Slice(idx.entries, func(i, j int) bool {
		return idx.entries[i].sig.Less(idx.entries[j].sig)
	})
	return idx
}

// Len returns the number of distinct signatures in the index.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.entries)
}

// Signatures returns the indexed signatures in ascending order.
func (idx *Index) Signatures() []Signature {
	sigs := make([]Signature, idx.Len())
	for i := range sigs {
		sigs[i] = idx.entries[i].sig
	}
	return sigs
}

// find returns the position of `sig` in the entries, or -1.
func (idx *Index) find(sig Signature) int {
	n := idx.Len()
	i := sort.Search(n, func(i int) bool {
		return !idx.entries[i].sig.Less(sig)
	})
	if i < n && idx.entries[i].sig == sig {
		return i
	}
	return -1
}

// Documents returns the document references stored under exactly `sig`, in
// ascending order.  It returns nil if `sig` is not in the index.
func (idx *Index) Documents(sig Signature) []uint64 {
	i := idx.find(sig)
	if i < 0 {
		return nil
	}
	return idx.entries[i].docs.ToNums()
}

// Each calls `fn` for every entry in ascending signature order, stopping early
// if `fn` returns false.
func (idx *Index) Each(fn func(sig Signature, docs []uint64) bool) {
	for i := 0; i < idx.Len(); i++ {
		if !fn(idx.entries[i].sig, idx.entries[i].docs.ToNums()) {
			return
		}
	}
}

// NumDocuments returns the number of distinct document references in the
// index.
func (idx *Index) NumDocuments() int {
	all := bitarray.NewSparseBitArray()
	for i := 0; i < idx.Len(); i++ {
		all = all.Or(idx.entries[i].docs)
	}
	return len(all.ToNums())
}

// Equal reports whether the two indexes hold the same signature to document
// set mapping.
func (idx *Index) Equal(other *Index) bool {
	if idx.Len() != other.Len() {
		return false
	}
	for i := 0; i < idx.Len(); i++ {
		if idx.entries[i].sig != other.entries[i].sig {
			return false
		}
		if !idx.entries[i].docs.Equals(other.entries[i].docs) {
			return false
		}
	}
	return true
}

// MarshalBinary implements the encoding.BinaryMarshaler interface.  The key is
// never part of the output.
func (idx *Index) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	var scratch [binary.MaxVarintLen64]byte
	buf.Write(indexMagic)
	buf.Write(scratch[:binary.PutUvarint(scratch[:], uint64(idx.Len()))])
	for i := 0; i < idx.Len(); i++ {
		e := idx.entries[i]
		docBytes, err := bitarray.Marshal(e.docs)
		if err != nil {
			return nil, err
		}
		sigBytes := e.sig.Bytes()
		buf.Write(sigBytes[:])
		buf.Write(scratch[:binary.PutUvarint(scratch[:], uint64(len(docBytes)))])
		buf.Write(docBytes)
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary implements the encoding.BinaryUnmarshaler interface.
func (idx *Index) UnmarshalBinary(input []byte) error {
	if !bytes.HasPrefix(input, indexMagic) {
		return fmt.Errorf("%w: bad magic", ErrCorruptIndex)
	}
	input = input[len(indexMagic):]
	count, err := readUvarint(&input)
	if err != nil {
		return fmt.Errorf("%w: entry count: %s", ErrCorruptIndex, err)
	}
	// Each entry takes at least 17 bytes.
	if count > uint64(len(input))/17 {
		return fmt.Errorf("%w: entry count %d exceeds input", ErrCorruptIndex, count)
	}
	entries := make([]indexEntry, 0, count)
	for i := uint64(0); i < count; i++ {
		if len(input) < 16 {
			return fmt.Errorf("%w: truncated entry %d", ErrCorruptIndex, i)
		}
		sig := Signature{Hi: binary.BigEndian.Uint64(input[0:8]), Lo: binary.BigEndian.Uint64(input[8:16])}
		input = input[16:]
		if len(entries) > 0 && !entries[len(entries)-1].sig.Less(sig) {
			return fmt.Errorf("%w: entry %d out of order", ErrCorruptIndex, i)
		}
		n, err := readUvarint(&input)
		if err != nil || n > uint64(len(input)) {
			return fmt.Errorf("%w: truncated document set %d", ErrCorruptIndex, i)
		}
		if err := checkDocSet(input[:n]); err != nil {
			return fmt.Errorf("%w: document set %d: %s", ErrCorruptIndex, i, err)
		}
		docs, err := bitarray.Unmarshal(input[:n:n])
		if err != nil {
			return fmt.Errorf("%w: document set %d: %s", ErrCorruptIndex, i, err)
		}
		input = input[n:]
		entries = append(entries, indexEntry{sig: sig, docs: docs})
	}
	if len(input) != 0 {
		return fmt.Errorf("%w: %d trailing bytes", ErrCorruptIndex, len(input))
	}
	idx.entries = entries
	return nil
}

// checkDocSet validates a serialized sparse bit array before it is handed to
// `bitarray.Unmarshal`, which trusts the lengths it reads.  The layout is the
// byte 'S', a little-endian block count, the blocks, a little-endian index
// count and the indices, all as 64-bit words.
func checkDocSet(b []byte) error {
	if len(b) < 17 || b[0] != 'S' {
		return errors.New("not a sparse document set")
	}
	blocks := binary.LittleEndian.Uint64(b[1:9])
	if blocks > uint64(len(b)-17)/16 {
		return fmt.Errorf("block count %d exceeds payload", blocks)
	}
	off := 9 + 8*blocks
	indices := binary.LittleEndian.Uint64(b[off : off+8])
	if indices != blocks {
		return fmt.Errorf("%d blocks but %d indices", blocks, indices)
	}
	if uint64(len(b)) != off+8+8*indices {
		return fmt.Errorf("payload is %d bytes, expected %d", len(b), off+8+8*indices)
	}
	for i := uint64(0); i < blocks; i++ {
		if binary.LittleEndian.Uint64(b[9+8*i:]) == 0 {
			return fmt.Errorf("block %d is empty", i)
		}
	}
	idx := b[off+8:]
	for i := uint64(1); i < indices; i++ {
		if binary.LittleEndian.Uint64(idx[8*i:]) <= binary.LittleEndian.Uint64(idx[8*(i-1):]) {
			return fmt.Errorf("index %d out of order", i)
		}
	}
	return nil
}
