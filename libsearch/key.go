// Copyright 2016 Keybase Inc. All rights reserved.
// Use of this source code is governed by a BSD
// license that can be found in the LICENSE file.

package libsearch

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// KeySize is the length of a Key in bytes.
const KeySize = 16

// keyDerivationRounds is the PBKDF2 iteration count used by `DeriveKey`.
const keyDerivationRounds = 4096

// ErrInvalidKey is returned when a key cannot be parsed.
var ErrInvalidKey = errors.New("invalid key")

// Key is the 128-bit secret that seeds every signature computation.  It is
// stored big-endian, so `Key[0]` holds the most significant byte.
type Key [KeySize]byte

// KeyFromUint64s builds a Key from its high and low 64-bit halves.
func KeyFromUint64s(hi, lo uint64) Key {
	var k Key
	binary.BigEndian.PutUint64(k[0:8], hi)
	binary.BigEndian.PutUint64(k[8:16], lo)
	return k
}

// Halves returns the high and low 64-bit halves of the key.  These are the two
// SipHash seeds.
func (k Key) Halves() (hi, lo uint64) {
	return binary.BigEndian.Uint64(k[0:8]), binary.BigEndian.Uint64(k[8:16])
}

// String returns the key as 32 lowercase hex digits.
func (k Key) String() string {
	return hex.EncodeToString(k[:])
}

// ParseKey parses a key written as 32 hex digits, with an optional "0x"
// prefix.
func ParseKey(s string) (Key, error) {
	var k Key
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if len(s) != 2*KeySize {
		return k, fmt.Errorf("%w: want %d hex digits, got %d", ErrInvalidKey, 2*KeySize, len(s))
	}
	if _, err := hex.Decode(k[:], []byte(s)); err != nil {
		return k, fmt.Errorf("%w: %s", ErrInvalidKey, err)
	}
	return k, nil
}

// GenerateKey returns a fresh random key read from `crypto/rand`.
func GenerateKey() (Key, error) {
	var k Key
	if _, err := rand.Read(k[:]); err != nil {
		return k, err
	}
	return k, nil
}

// DeriveKey derives a key from `passphrase` and `salt` by using PBKDF2 with
// HMAC-SHA256.  The same passphrase and salt always yield the same key.
func DeriveKey(passphrase, salt []byte) Key {
	var k Key
	copy(k[:], pbkdf2.Key(passphrase, salt, keyDerivationRounds, KeySize, sha256.New))
	return k
}
