package focus

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRoomCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		code := newRoomCode()
		require.Len(t, code, roomCodeLength)
		for _, c := range code {
			require.True(t, strings.ContainsRune(roomCodeAlphabet, c),
				"code %q contains %q outside the room code alphabet", code, c)
		}
		seen[code] = true
	}
	// 200 draws from a 36^6 space colliding down to a handful would mean a
	// broken generator.
	require.Greater(t, len(seen), 190)
}
