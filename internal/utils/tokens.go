package utils

import (
	"crypto/rand"
	"errors"
	"math/big"
)

const base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// RandomPassword returns n characters drawn uniformly from [0-9a-z] using
// crypto/rand. Reset passwords are short on purpose: the user is told to
// change it right after logging in.
func RandomPassword(n int) (string, error) {
	if n <= 0 {
		return "", errors.New("password length must be positive")
	}
	max := big.NewInt(int64(len(base36Alphabet)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = base36Alphabet[idx.Int64()]
	}
	return string(b), nil
}
