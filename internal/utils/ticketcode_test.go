package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTicketNumber(t *testing.T) {
	num, err := NewTicketNumber()
	require.NoError(t, err)
	require.Len(t, num, 16)
	assert.True(t, strings.HasPrefix(num, "TKT-"))
	assert.Equal(t, byte('-'), num[9])
	assert.True(t, ValidTicketNumber(num))
}

func TestNewTicketNumber_Distinct(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		num, err := NewTicketNumber()
		require.NoError(t, err)
		require.False(t, seen[num], "duplicate number %s after %d draws", num, i)
		seen[num] = true
	}
}

func TestValidTicketNumber(t *testing.T) {
	num, err := NewTicketNumber()
	require.NoError(t, err)

	t.Run("rejects malformed codes", func(t *testing.T) {
		for _, code := range []string{
			"",
			"TKT-",
			"tkt-ABCDE-ABCDE0",
			"TKT-ABCDE-ABCDE",    // missing checksum
			"TKT-ABCDEABCDE0",    // missing group separator
			"XYZ-ABCDE-ABCDE0",   // wrong prefix
			"TKT-ABCIE-ABCDE0",   // I is not in the alphabet
			num + "0",            // trailing junk
		} {
			assert.False(t, ValidTicketNumber(code), "code %q", code)
		}
	})

	t.Run("detects corruption", func(t *testing.T) {
		// Flip one body character; the checksum must catch it.
		pos := 4
		replacement := byte('A')
		if num[pos] == replacement {
			replacement = 'B'
		}
		corrupted := num[:pos] + string(replacement) + num[pos+1:]
		assert.False(t, ValidTicketNumber(corrupted))
	})

	t.Run("detects transposition", func(t *testing.T) {
		// Swap two adjacent distinct body characters.
		b := []byte(num)
		for i := 4; i < 8; i++ {
			if b[i] != b[i+1] {
				b[i], b[i+1] = b[i+1], b[i]
				assert.False(t, ValidTicketNumber(string(b)))
				return
			}
		}
		t.Skip("drawn number has no adjacent distinct pair in the first group")
	})
}
