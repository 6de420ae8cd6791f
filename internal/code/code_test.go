package code

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlphabet(t *testing.T) {
	assert.Len(t, Alphabet, 31)
	for _, ch := range "01OIL" {
		assert.NotContains(t, Alphabet, string(ch))
	}
}

func TestGenerate(t *testing.T) {
	tests := []struct {
		name   string
		length int
		want   int
	}{
		{"default", DefaultLength, 6},
		{"seven", 7, 7},
		{"eight", 8, 8},
		{"too short clamps", 2, MinLength},
		{"too long clamps", 40, MaxLength},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i := 0; i < 200; i++ {
				c := Generate(tt.length)
				require.Len(t, c, tt.want)
				require.True(t, IsValid(c), "generated code %q should be valid", c)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"abc-def", "ABCDEF"},
		{"  xy z9 8 7 ", "XYZ987"},
		{"ab-12o1", "AB2"},
		{"IOIOIO", ""},
		{"", ""},
		{"hjk mnp", "HJKMNP"},
		{"ñandú42", "AND42"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := Normalize(tt.in)
			assert.Equal(t, tt.want, got)
			assert.NotContains(t, got, "O")
			assert.NotContains(t, got, "I")
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"ab-12o1", "wedding-2026!", "QWERTYUIOP", "lowercase", "x", strings.Repeat("z9", 10)}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
		assert.Equal(t, strings.ToUpper(once), once)
		for _, r := range once {
			assert.Contains(t, Alphabet, string(r))
		}
		assert.Equal(t, len(once) >= MinLength && len(once) <= MaxLength, IsValid(once))
	}
}

func TestIsValid(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"ABCDEF", true},
		{"23456789", true},
		{"ABCDE", false},
		{"ABCDEFGHJ", false},
		{"ABCDE0", false},
		{"ABCDEI", false},
		{"abcdef", false},
		{"ABC-DE", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValid(tt.code))
		})
	}
}
