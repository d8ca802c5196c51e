package code

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// Length of a verification code. Short enough to type from a phone screen;
// brute force is bounded by the 180s TTL plus the per-IP rate limit.
const Length = 5

// New generates a random lowercase-alphanumeric verification code.
func New() (string, error) {
	b := make([]byte, Length)
	for i := range b {
		idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
		if err != nil {
			return "", fmt.Errorf("generate verification code: %w", err)
		}
		b[i] = alphabet[idx.Int64()]
	}
	return string(b), nil
}
