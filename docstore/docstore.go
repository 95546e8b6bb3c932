// Package docstore keeps the lines of a corpus sealed with a secret key, so
// that the document references returned by a search can be turned back into
// text by the key holder only.
package docstore

import (
	"bufio"
	"bytes"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/keybase/fsse/libsearch"
	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/pbkdf2"
)

// The length of the overhead added to padding.
const padPrefixLength = 4
const recordNonceLength = 24

// sealingSalt separates the sealing key from the signature key.
var sealingSalt = []byte("fsse docstore sealing key")

var (
	// ErrNotFound is returned when a document reference is out of range.
	ErrNotFound = errors.New("document not found")
	// ErrInvalidRecord is returned when a record cannot be decoded or fails
	// authentication.
	ErrInvalidRecord = errors.New("invalid record")
)

// DeriveKey derives the 32-byte sealing key from the search key.
func DeriveKey(key libsearch.Key) [32]byte {
	var sealingKey [32]byte
	copy(sealingKey[:], pbkdf2.Key(key[:], sealingSalt, 4096, 32, sha256.New))
	return sealingKey
}

// Store holds one sealed record per corpus line.  Record i belongs to document
// reference i.
type Store struct {
	records [][]byte
}

// Len returns the number of records, blank lines included.
func (s *Store) Len() int {
	return len(s.records)
}

// Seal seals every line of `corpus`.  Lines are split the same way
// `libsearch.BuildIndex` splits them, so positions line up with document
// references.
func Seal(key [32]byte, corpus string) (*Store, error) {
	s := new(Store)
	if corpus == "" {
		return s, nil
	}
	for _, line := range strings.Split(strings.TrimSuffix(corpus, "\n"), "\n") {
		record, err := sealLine(key, strings.TrimSuffix(line, "\r"))
		if err != nil {
			return nil, err
		}
		s.records = append(s.records, record)
	}
	return s, nil
}

// Open decrypts the line for document reference `ref`.
func (s *Store) Open(key [32]byte, ref uint64) (string, error) {
	if ref >= uint64(len(s.records)) {
		return "", fmt.Errorf("%w: %d", ErrNotFound, ref)
	}
	return openLine(key, s.records[ref])
}

// WriteTo writes the records, one base64url line each.
func (s *Store) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var n int64
	for _, record := range s.records {
		m, err := fmt.Fprintln(bw, base64.RawURLEncoding.EncodeToString(record))
		n += int64(m)
		if err != nil {
			return n, err
		}
	}
	return n, bw.Flush()
}

// Read reads records written by `Store.WriteTo`.  Records are only decoded,
// not opened.
func Read(r io.Reader) (*Store, error) {
	s := new(Store)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	for scanner.Scan() {
		record, err := base64.RawURLEncoding.DecodeString(scanner.Text())
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: %s", ErrInvalidRecord, len(s.records), err)
		}
		if len(record) < recordNonceLength+secretbox.Overhead {
			return nil, fmt.Errorf("%w: record %d too short", ErrInvalidRecord, len(s.records))
		}
		s.records = append(s.records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return s, nil
}

// sealLine pads `line` and seals it under a random nonce.  The nonce is stored
// in front of the sealed box.
func sealLine(key [32]byte, line string) ([]byte, error) {
	var nonce [recordNonceLength]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, err
	}
	padded, err := padLine(line)
	if err != nil {
		return nil, err
	}
	return secretbox.Seal(nonce[:], padded, &nonce, &key), nil
}

// openLine reverses `sealLine`.
func openLine(key [32]byte, record []byte) (string, error) {
	if len(record) < recordNonceLength+secretbox.Overhead {
		return "", ErrInvalidRecord
	}
	var nonce [recordNonceLength]byte
	copy(nonce[:], record[:recordNonceLength])
	padded, ok := secretbox.Open(nil, record[recordNonceLength:], &nonce, &key)
	if !ok {
		return "", ErrInvalidRecord
	}
	return depadLine(padded)
}

// nextPowerOfTwo returns the next power of two that is strictly greater than n.
func nextPowerOfTwo(n uint32) uint32 {
	if n&(n-1) == 0 {
		n++
	}

	n--
	n = n | (n >> 1)
	n = n | (n >> 2)
	n = n | (n >> 4)
	n = n | (n >> 8)
	n = n | (n >> 16)
	n++

	return n
}

// padLine zero-pads `line` to the next power of two, behind a little-endian
// length prefix, so sealed records only leak the rough length of a line.
func padLine(line string) ([]byte, error) {
	origLen := uint32(len(line))
	paddedLen := nextPowerOfTwo(origLen)

	buf := bytes.NewBuffer(make([]byte, 0, padPrefixLength+paddedLen))

	if err := binary.Write(buf, binary.LittleEndian, origLen); err != nil {
		return nil, err
	}

	buf.WriteString(line)
	buf.Write(make([]byte, paddedLen-origLen))

	return buf.Bytes(), nil
}

// depadLine extracts the line from a padded byte slice.  The string returned is
// empty iff error is not nil or the line was empty.
func depadLine(padded []byte) (string, error) {
	buf := bytes.NewBuffer(padded)

	var origLen uint32
	if err := binary.Read(buf, binary.LittleEndian, &origLen); err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidRecord, err)
	}

	if uint64(padPrefixLength)+uint64(origLen) > uint64(len(padded)) {
		return "", fmt.Errorf("%w: bad padding", ErrInvalidRecord)
	}

	return string(buf.Next(int(origLen))), nil
}
