package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)

	ciphertext, err := Encrypt("1BVtsOKAVtelethon-session-string", key)
	require.NoError(t, err)
	assert.NotEqual(t, "1BVtsOKAVtelethon-session-string", ciphertext)

	plaintext, err := Decrypt(ciphertext, key)
	require.NoError(t, err)
	assert.Equal(t, "1BVtsOKAVtelethon-session-string", plaintext)
}

func TestEncryptRejectsShortKey(t *testing.T) {
	_, err := Encrypt("secret", []byte("too-short"))
	assert.ErrorIs(t, err, ErrInvalidKeySize)
}

func TestDecryptRejectsDifferentKey(t *testing.T) {
	key1, err := GenerateKey()
	require.NoError(t, err)
	key2, err := GenerateKey()
	require.NoError(t, err)

	ciphertext, err := Encrypt("secret", key1)
	require.NoError(t, err)

	_, err = Decrypt(ciphertext, key2)
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestDecryptRejectsTruncatedCiphertext(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)

	_, err = Decrypt("YWJj", key) // base64("abc"), shorter than a nonce
	assert.ErrorIs(t, err, ErrInvalidCiphertext)
}
