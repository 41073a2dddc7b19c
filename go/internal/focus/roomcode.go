package focus

import "math/rand/v2"

const (
	roomCodeLength   = 6
	roomCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// newRoomCode returns a random 6-character uppercase alphanumeric code.
// Uniqueness against live sessions is the registry's job; it resamples on
// collision.
func newRoomCode() string {
	code := make([]byte, roomCodeLength)
	for i := range code {
		code[i] = roomCodeAlphabet[rand.IntN(len(roomCodeAlphabet))]
	}
	return string(code)
}
