package domain

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
)

// Alphabet is the code character set. Visually confusable characters
// (0/O, 1/I) are excluded because codes are typed by humans.
const Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const (
	codeLength = 16
	groupSize  = 4
)

var ErrMalformedCode = errors.New("malformed_code")

// Generate returns a fresh code in canonical XXXX-XXXX-XXXX-XXXX form.
func Generate() (string, error) {
	max := big.NewInt(int64(len(Alphabet)))
	var b strings.Builder
	for i := 0; i < codeLength; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(Alphabet[idx.Int64()])
		if (i+1)%groupSize == 0 && i != codeLength-1 {
			b.WriteByte('-')
		}
	}
	return b.String(), nil
}

// Normalize canonicalizes user input: case folds, strips separators and
// whitespace, and re-inserts group dashes. Returns ErrMalformedCode when the
// result is not 16 characters from the alphabet.
func Normalize(raw string) (string, error) {
	compact := strings.Map(func(r rune) rune {
		switch r {
		case '-', ' ', '\t':
			return -1
		}
		return r
	}, strings.ToUpper(strings.TrimSpace(raw)))

	if len(compact) != codeLength {
		return "", ErrMalformedCode
	}
	for i := 0; i < len(compact); i++ {
		if !strings.ContainsRune(Alphabet, rune(compact[i])) {
			return "", ErrMalformedCode
		}
	}

	groups := make([]string, 0, codeLength/groupSize)
	for i := 0; i < codeLength; i += groupSize {
		groups = append(groups, compact[i:i+groupSize])
	}
	return strings.Join(groups, "-"), nil
}
