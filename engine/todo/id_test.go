package todo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseID(t *testing.T) {
	t.Run("Should parse decimal identifiers", func(t *testing.T) {
		id, err := ParseID("42")
		require.NoError(t, err)
		assert.Equal(t, int64(42), id)
	})

	t.Run("Should trim surrounding whitespace", func(t *testing.T) {
		id, err := ParseID(" 7\n")
		require.NoError(t, err)
		assert.Equal(t, int64(7), id)
	})

	t.Run("Should reject non numeric input", func(t *testing.T) {
		for _, raw := range []string{"", "abc", "1.5", "0x10"} {
			_, err := ParseID(raw)
			assert.ErrorIs(t, err, ErrInvalidID, raw)
		}
	})
}

func TestUserSession(t *testing.T) {
	t.Run("Should expose the username", func(t *testing.T) {
		var s Session = UserSession("alice")
		assert.Equal(t, "alice", s.Username())
	})
}
