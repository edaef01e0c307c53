package common

import (
	"crypto/rand"
	"encoding/hex"
)

// MakeRandHexString generates a cryptographically random hexadecimal string.
// The size parameter is the number of random bytes drawn, so the resulting
// string is twice as long. It returns an error only if the system random
// source fails.
func MakeRandHexString(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
