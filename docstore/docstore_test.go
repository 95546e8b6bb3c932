package docstore

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keybase/fsse/libsearch"
)

const corpus = "first line\n\nthird line with Tokio\r\n"

func TestSealAndOpen(t *testing.T) {
	key := DeriveKey(libsearch.KeyFromUint64s(0, 0x42))

	store, err := Seal(key, corpus)
	require.NoError(t, err)
	require.Equal(t, 3, store.Len())

	line, err := store.Open(key, 0)
	require.NoError(t, err)
	assert.Equal(t, "first line", line)

	line, err = store.Open(key, 1)
	require.NoError(t, err)
	assert.Equal(t, "", line)

	line, err = store.Open(key, 2)
	require.NoError(t, err)
	assert.Equal(t, "third line with Tokio", line)

	_, err = store.Open(key, 3)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOpenWithWrongKey(t *testing.T) {
	store, err := Seal(DeriveKey(libsearch.KeyFromUint64s(0, 1)), corpus)
	require.NoError(t, err)

	_, err = store.Open(DeriveKey(libsearch.KeyFromUint64s(0, 2)), 0)
	assert.ErrorIs(t, err, ErrInvalidRecord)
}

func TestWriteToAndRead(t *testing.T) {
	key := DeriveKey(libsearch.KeyFromUint64s(7, 7))
	store, err := Seal(key, corpus)
	require.NoError(t, err)

	var buf bytes.Buffer
	n, err := store.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)
	assert.NotContains(t, buf.String(), "Tokio")
	assert.Equal(t, 3, strings.Count(buf.String(), "\n"))

	read, err := Read(&buf)
	require.NoError(t, err)
	require.Equal(t, store.Len(), read.Len())
	line, err := read.Open(key, 2)
	require.NoError(t, err)
	assert.Equal(t, "third line with Tokio", line)
}

func TestReadRejectsGarbage(t *testing.T) {
	_, err := Read(strings.NewReader("not base64!\n"))
	assert.ErrorIs(t, err, ErrInvalidRecord)

	_, err = Read(strings.NewReader("AAAA\n"))
	assert.ErrorIs(t, err, ErrInvalidRecord)
}

func TestTamperedRecord(t *testing.T) {
	key := DeriveKey(libsearch.KeyFromUint64s(0, 3))
	store, err := Seal(key, "secret")
	require.NoError(t, err)

	store.records[0][len(store.records[0])-1] ^= 0xff
	_, err = store.Open(key, 0)
	assert.ErrorIs(t, err, ErrInvalidRecord)
}

func TestPadding(t *testing.T) {
	short, err := padLine("abc")
	require.NoError(t, err)
	long, err := padLine("abcd")
	require.NoError(t, err)
	assert.Equal(t, padPrefixLength+4, len(short))
	assert.Equal(t, padPrefixLength+8, len(long))

	line, err := depadLine(long)
	require.NoError(t, err)
	assert.Equal(t, "abcd", line)

	_, err = depadLine([]byte{0xff, 0, 0, 0, 'a'})
	assert.ErrorIs(t, err, ErrInvalidRecord)

	assert.Equal(t, uint32(1), nextPowerOfTwo(0))
	assert.Equal(t, uint32(8), nextPowerOfTwo(4))
	assert.Equal(t, uint32(8), nextPowerOfTwo(5))
}

func TestSealEmptyCorpus(t *testing.T) {
	store, err := Seal(DeriveKey(libsearch.Key{}), "")
	require.NoError(t, err)
	assert.Equal(t, 0, store.Len())
}
