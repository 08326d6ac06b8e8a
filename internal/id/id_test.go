package id

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_Unique(t *testing.T) {
	seen := make(map[string]bool)
	const count = 1000

	for range count {
		placeID, err := Generate("place")
		require.NoError(t, err)
		assert.False(t, seen[placeID], "duplicate ID: %s", placeID)
		seen[placeID] = true
	}

	assert.Len(t, seen, count)
}

func TestGenerate_Format(t *testing.T) {
	// The prefixes actually stored: user records, place records, sessions.
	for _, prefix := range []string{"user", "place", "sess"} {
		t.Run(prefix, func(t *testing.T) {
			generated, err := Generate(prefix)
			require.NoError(t, err)

			assert.True(t, strings.HasPrefix(generated, prefix+"-"))

			// Prefix, hyphen, then a 21-character nanoid.
			assert.Len(t, generated, len(prefix)+1+21, "ID: %s", generated)

			for _, char := range strings.TrimPrefix(generated, prefix+"-") {
				urlSafe := (char >= 'A' && char <= 'Z') ||
					(char >= 'a' && char <= 'z') ||
					(char >= '0' && char <= '9') ||
					char == '_' || char == '-'
				assert.True(t, urlSafe, "character %c is not URL-safe", char)
			}
		})
	}
}

func TestMustGenerate(t *testing.T) {
	userID := MustGenerate("user")

	assert.True(t, strings.HasPrefix(userID, "user-"))
	assert.Len(t, userID, len("user")+1+21)
}

func BenchmarkGenerate(b *testing.B) {
	for b.Loop() {
		_, _ = Generate("place")
	}
}
