package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/spotivault/internal/common"
)

const (
	nonceSize   = 12
	tagSize     = 16
	envelopeSep = "."
)

// TokenCipher encrypts and decrypts opaque token strings with AES-256-GCM.
// The wire form is an envelope of three base64 parts joined with dots:
// nonce.tag.ciphertext. A nil key disables the cipher entirely: every
// operation fails closed with common.ErrCipherUnavailable.
type TokenCipher struct {
	key []byte
}

// NewTokenCipher wraps the derived key. Pass nil to construct a disabled
// cipher when no valid key could be derived.
func NewTokenCipher(key []byte) *TokenCipher {
	return &TokenCipher{key: key}
}

// Enabled reports whether the cipher holds a usable key.
func (c *TokenCipher) Enabled() bool {
	return len(c.key) == KeySize
}

func (c *TokenCipher) aead() (cipher.AEAD, error) {
	if !c.Enabled() {
		return nil, common.ErrCipherUnavailable
	}
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return nil, fmt.Errorf("error creating cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("error creating GCM: %w", err)
	}
	return aead, nil
}

// Encrypt seals plaintext under a fresh random nonce and returns the
// envelope. Nonces are never reused for a given key.
func (c *TokenCipher) Encrypt(plaintext string) (string, error) {
	aead, err := c.aead()
	if err != nil {
		return "", err
	}
	if plaintext == "" {
		return "", fmt.Errorf("cannot encrypt an empty token")
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("error generating nonce: %w", err)
	}

	sealed := aead.Seal(nil, nonce, []byte(plaintext), nil)
	ct, tag := sealed[:len(sealed)-tagSize], sealed[len(sealed)-tagSize:]

	b64 := base64.StdEncoding
	parts := []string{
		b64.EncodeToString(nonce),
		b64.EncodeToString(tag),
		b64.EncodeToString(ct),
	}
	return strings.Join(parts, envelopeSep), nil
}

// Decrypt opens an envelope produced by Encrypt. Envelopes missing any of
// the three parts, carrying a malformed nonce, or failing authentication all
// yield an error; no partial plaintext is ever returned.
func (c *TokenCipher) Decrypt(envelope string) (string, error) {
	aead, err := c.aead()
	if err != nil {
		return "", err
	}

	parts := strings.Split(envelope, envelopeSep)
	if len(parts) != 3 {
		return "", fmt.Errorf("malformed token envelope")
	}
	for _, p := range parts {
		if p == "" {
			return "", fmt.Errorf("malformed token envelope")
		}
	}

	b64 := base64.StdEncoding
	nonce, err := b64.DecodeString(parts[0])
	if err != nil {
		return "", fmt.Errorf("error decoding envelope nonce: %w", err)
	}
	if len(nonce) != nonceSize {
		return "", fmt.Errorf("malformed token envelope")
	}
	tag, err := b64.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("error decoding envelope tag: %w", err)
	}
	ct, err := b64.DecodeString(parts[2])
	if err != nil {
		return "", fmt.Errorf("error decoding envelope ciphertext: %w", err)
	}

	plaintext, err := aead.Open(nil, nonce, append(ct, tag...), nil)
	if err != nil {
		return "", fmt.Errorf("token decryption failed: %w", err)
	}
	return string(plaintext), nil
}
