package libsearch

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// GenerateSalt generates a random salt of `lenSalt` bytes.  Returns an error if
// the salt cannot be properly generated.
func GenerateSalt(lenSalt int) ([]byte, error) {
	if lenSalt < 8 {
		return nil, errors.New("lenSalt must be at least 8")
	}
	salt := make([]byte, lenSalt)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	return salt, nil
}

// Reads an uvarint from the front of `input` and advances it past the value.
func readUvarint(input *[]byte) (uint64, error) {
	num, numBytes := binary.Uvarint(*input)
	if numBytes <= 0 {
		return 0, errors.New("cannot read the uvarint")
	}
	*input = (*input)[numBytes:]
	return num, nil
}

// WriteFileAtomic writes `content` to a file with `pathname`.  First writes to
// a temporary file in the same directory and then performs a rename so that
// the write is atomic.  The file ends up with mode 0644.
func WriteFileAtomic(pathname string, content []byte) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(pathname), ".tmp-"+filepath.Base(pathname))
	if err != nil {
		return err
	}
	defer os.Remove(tmpFile.Name())

	if err := tmpFile.Chmod(0644); err != nil {
		tmpFile.Close()
		return err
	}
	if _, err := tmpFile.Write(content); err != nil {
		tmpFile.Close()
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return err
	}

	return os.Rename(tmpFile.Name(), pathname)
}

// NormalizeKeyword normalizes a keyword by converting it to lower case and
// keeping only the alphanumeric characters.
func NormalizeKeyword(keyword string) string {
	lowerKeyword := strings.ToLower(keyword)
	normalizedKeyword := make([]rune, 0, len(lowerKeyword))

	for _, c := range lowerKeyword {
		if unicode.IsDigit(c) || unicode.IsLetter(c) {
			normalizedKeyword = append(normalizedKeyword, c)
		}
	}

	return string(normalizedKeyword)
}
