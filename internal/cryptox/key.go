// Package cryptox implements the at-rest protection of provider tokens:
// derivation of the 32-byte symmetric key from an operator secret, and the
// AES-256-GCM cipher that seals token strings into portable envelopes.
package cryptox

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"regexp"

	"golang.org/x/crypto/scrypt"
)

// KeySize is the symmetric key length required by the token cipher.
const KeySize = 32

// scrypt cost parameters for passphrase stretching.
const (
	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1
)

var hexKeyPattern = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)

// IsHexKey reports whether secret is a 64-hex-digit literal key, which is
// decoded directly and needs no salt.
func IsHexKey(secret string) bool {
	return hexKeyPattern.MatchString(secret)
}

// DeriveKey turns an operator secret into a 32-byte key. A 64-hex-digit
// secret is decoded as raw key bytes and the salt is ignored. Anything else
// is treated as a passphrase and stretched with scrypt, which requires a
// non-empty salt.
func DeriveKey(secret, salt string) ([]byte, error) {
	if secret == "" {
		return nil, fmt.Errorf("encryption secret is empty")
	}
	if IsHexKey(secret) {
		key, err := hex.DecodeString(secret)
		if err != nil {
			return nil, fmt.Errorf("error decoding hex key: %w", err)
		}
		return key, nil
	}
	if salt == "" {
		return nil, fmt.Errorf("passphrase secret requires a salt")
	}
	key, err := scrypt.Key([]byte(secret), []byte(salt), scryptN, scryptR, scryptP, KeySize)
	if err != nil {
		return nil, fmt.Errorf("error deriving key from passphrase: %w", err)
	}
	return key, nil
}

// FallbackSalt derives a deterministic salt from the local hostname.
// Intended for development only: the salt is neither secret nor portable
// across hosts.
func FallbackSalt() (string, error) {
	host, err := os.Hostname()
	if err != nil {
		return "", fmt.Errorf("error reading hostname: %w", err)
	}
	sum := sha256.Sum256([]byte("spotify-token:" + host))
	return hex.EncodeToString(sum[:]), nil
}
