package vault

import (
	"fmt"
	"io"

	"github.com/illarion/boveda/internal/crypto"
)

const (
	DefaultPasswordLength = 16
	passwordAlphabet      = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%^&*"
)

// GeneratePassword returns a random password drawn uniformly from a fixed
// alphabet of letters, digits and symbols. A nil reader means crypto/rand.
func GeneratePassword(r io.Reader, length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("%w: password length must be positive", ErrValidation)
	}

	// Bytes at or above limit are rejected to keep the distribution uniform.
	limit := 256 - 256%len(passwordAlphabet)
	out := make([]byte, 0, length)
	for len(out) < length {
		buf, err := crypto.GenerateRandom(r, length)
		if err != nil {
			return "", err
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, passwordAlphabet[int(b)%len(passwordAlphabet)])
			if len(out) == length {
				break
			}
		}
	}
	return string(out), nil
}
