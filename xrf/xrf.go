// Package xrf generates the cross-site request forgery keys required by the Qlik Sense
// REST endpoints. The same key must be sent in the X-Qlik-Xrfkey header and in the
// xrfkey query parameter of every request.
package xrf

import (
	"crypto/rand"
	"errors"
	"fmt"
)

const (
	// DefaultSize is the number of characters in a generated key
	DefaultSize = 16
	// DefaultAlphabet is the set of characters a key is drawn from
	DefaultAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

var (
	// ErrInvalidSize is returned when a negative key size is requested
	ErrInvalidSize = errors.New("xrf: key size must not be negative")
	// ErrEmptyAlphabet is returned when the alphabet has no characters
	ErrEmptyAlphabet = errors.New("xrf: alphabet must not be empty")
)

// Generate returns a random key of size characters picked from alphabet.
// The alphabet is indexed by rune, so non-ASCII characters are kept whole.
// Each character consumes one byte from crypto/rand; the byte is mapped onto the
// alphabet modulo its length, so alphabets whose length is not a power of two are
// slightly biased.
func Generate(size int, alphabet string) (string, error) {
	if size < 0 {
		return "", ErrInvalidSize
	}
	if alphabet == "" {
		return "", ErrEmptyAlphabet
	}
	if size == 0 {
		return "", nil
	}

	rnd := make([]byte, size)
	if _, err := rand.Read(rnd); err != nil {
		return "", fmt.Errorf("xrf: read random bytes: %w", err)
	}

	chars := []rune(alphabet)
	n := len(chars)
	key := make([]rune, size)
	for i, b := range rnd {
		key[i] = chars[int(b)%n]
	}
	return string(key), nil
}

// NewKey returns a key of DefaultSize characters from DefaultAlphabet.
// It panics if the operating system random source is unavailable.
func NewKey() string {
	key, err := Generate(DefaultSize, DefaultAlphabet)
	if err != nil {
		panic(err)
	}
	return key
}

// Generator produces keys with a fixed size and alphabet.
// Zero values fall back to DefaultSize and DefaultAlphabet.
type Generator struct {
	Size     int
	Alphabet string
}

// Key returns a freshly generated key.
func (g Generator) Key() (string, error) {
	size := g.Size
	if size == 0 {
		size = DefaultSize
	}
	alphabet := g.Alphabet
	if alphabet == "" {
		alphabet = DefaultAlphabet
	}
	return Generate(size, alphabet)
}
