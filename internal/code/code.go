package code

import (
	"crypto/rand"
	"math/big"
	"strings"
)

// Alphabet holds the 31 symbols a wedding code is drawn from.
// 0, O, 1, I and L are left out so codes survive being read aloud or copied by hand.
const Alphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

const (
	MinLength     = 6
	MaxLength     = 8
	DefaultLength = 6
)

// Generate returns a random code of the given length, clamped to [MinLength, MaxLength].
// Uniqueness is not guaranteed; callers retry against storage.
func Generate(length int) string {
	if length < MinLength {
		length = MinLength
	}
	if length > MaxLength {
		length = MaxLength
	}

	max := big.NewInt(int64(len(Alphabet)))
	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand does not fail on supported platforms
			panic(err)
		}
		b.WriteByte(Alphabet[n.Int64()])
	}
	return b.String()
}

// Normalize uppercases input and keeps only alphabet symbols. Separators,
// punctuation and the ambiguous glyphs (O, I and friends) are dropped, so the
// result is always a candidate for IsValid and Normalize is idempotent.
func Normalize(input string) string {
	var b strings.Builder
	b.Grow(len(input))
	for _, r := range strings.ToUpper(input) {
		if r < 0x80 && strings.IndexByte(Alphabet, byte(r)) >= 0 {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IsValid reports whether code has an allowed length and only alphabet symbols.
func IsValid(code string) bool {
	if len(code) < MinLength || len(code) > MaxLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if strings.IndexByte(Alphabet, code[i]) < 0 {
			return false
		}
	}
	return true
}
