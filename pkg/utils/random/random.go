package random

import (
	"crypto/rand"
	"math/big"
	"strings"
)

// Ambiguous glyphs (0/O, 1/I) are left out.
const letters = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const gameCodeLength = 6

func Code(length int) string {
	if length <= 0 {
		return ""
	}
	max := big.NewInt(int64(len(letters)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			out[i] = letters[0]
			continue
		}
		out[i] = letters[n.Int64()]
	}
	return string(out)
}

// GameID returns prefix followed by a six character code, e.g. GAME-7QK2MX.
func GameID(prefix string) string {
	return strings.TrimSpace(prefix) + Code(gameCodeLength)
}
