package cryptox

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/spotivault/internal/common"
)

func testCipher(t *testing.T) *TokenCipher {
	t.Helper()
	key, err := DeriveKey(strings.Repeat("ab", 32), "")
	require.NoError(t, err)
	return NewTokenCipher(key)
}

func TestTokenCipher_RoundTrip(t *testing.T) {
	c := testCipher(t)

	for _, plaintext := range []string{"AT1", "a", "BQDa3...long-opaque-token...xyz", "token with spaces"} {
		envelope, err := c.Encrypt(plaintext)
		require.NoError(t, err)

		parts := strings.Split(envelope, ".")
		require.Len(t, parts, 3)

		got, err := c.Decrypt(envelope)
		require.NoError(t, err)
		assert.Equal(t, plaintext, got)
	}
}

func TestTokenCipher_FreshNoncePerCall(t *testing.T) {
	c := testCipher(t)

	e1, err := c.Encrypt("same plaintext")
	require.NoError(t, err)
	e2, err := c.Encrypt("same plaintext")
	require.NoError(t, err)

	assert.NotEqual(t, e1, e2)
	assert.NotEqual(t, strings.Split(e1, ".")[0], strings.Split(e2, ".")[0])
}

func TestTokenCipher_TamperedEnvelope(t *testing.T) {
	c := testCipher(t)

	envelope, err := c.Encrypt("sensitive-token")
	require.NoError(t, err)
	parts := strings.Split(envelope, ".")

	flip := func(encoded string) string {
		raw, err := base64.StdEncoding.DecodeString(encoded)
		require.NoError(t, err)
		raw[0] ^= 0x01
		return base64.StdEncoding.EncodeToString(raw)
	}

	// flipping any byte of the tag or the ciphertext must fail authentication
	tampered := strings.Join([]string{parts[0], flip(parts[1]), parts[2]}, ".")
	_, err = c.Decrypt(tampered)
	assert.Error(t, err)

	tampered = strings.Join([]string{parts[0], parts[1], flip(parts[2])}, ".")
	_, err = c.Decrypt(tampered)
	assert.Error(t, err)

	tampered = strings.Join([]string{flip(parts[0]), parts[1], parts[2]}, ".")
	_, err = c.Decrypt(tampered)
	assert.Error(t, err)
}

func TestTokenCipher_MalformedEnvelope(t *testing.T) {
	c := testCipher(t)

	for _, envelope := range []string{
		"",
		"onlyonepart",
		"two.parts",
		"..",
		"a.b",
		"a.b.c.d",
		"!!!.###.$$$",
	} {
		_, err := c.Decrypt(envelope)
		assert.Error(t, err, "envelope %q must be rejected", envelope)
	}
}

func TestTokenCipher_WrongKey(t *testing.T) {
	c1 := testCipher(t)
	key2, err := DeriveKey(strings.Repeat("cd", 32), "")
	require.NoError(t, err)
	c2 := NewTokenCipher(key2)

	envelope, err := c1.Encrypt("secret")
	require.NoError(t, err)

	_, err = c2.Decrypt(envelope)
	assert.Error(t, err)
}

func TestTokenCipher_Disabled(t *testing.T) {
	c := NewTokenCipher(nil)
	assert.False(t, c.Enabled())

	_, err := c.Encrypt("anything")
	assert.True(t, errors.Is(err, common.ErrCipherUnavailable))

	_, err = c.Decrypt("a.b.c")
	assert.True(t, errors.Is(err, common.ErrCipherUnavailable))
}

func TestTokenCipher_EmptyPlaintext(t *testing.T) {
	c := testCipher(t)
	_, err := c.Encrypt("")
	assert.Error(t, err)
}
