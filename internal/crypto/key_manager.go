package crypto

import (
	"encoding/base64"
	"errors"
	"os"
)

var (
	ErrMasterKeyNotSet  = errors.New("master key not set in environment")
	ErrInvalidMasterKey = errors.New("invalid master key: must decode to 32 bytes")
)

// KeyManager encrypts and decrypts account secrets (API hashes, Telegram
// session strings) with a master key taken from the environment. Secrets
// never hit the database in the clear.
type KeyManager struct {
	masterKey []byte
}

// NewKeyManager creates a key manager from the MASTER_KEY environment
// variable (base64, 32 bytes).
func NewKeyManager() (*KeyManager, error) {
	masterKeyB64 := os.Getenv("MASTER_KEY")
	if masterKeyB64 == "" {
		return nil, ErrMasterKeyNotSet
	}

	masterKey, err := base64.StdEncoding.DecodeString(masterKeyB64)
	if err != nil || len(masterKey) != 32 {
		return nil, ErrInvalidMasterKey
	}

	return &KeyManager{masterKey: masterKey}, nil
}

// EncryptSecret encrypts a secret for storage.
func (km *KeyManager) EncryptSecret(plaintext string) (string, error) {
	return Encrypt(plaintext, km.masterKey)
}

// DecryptSecret decrypts a stored secret.
func (km *KeyManager) DecryptSecret(ciphertext string) (string, error) {
	return Decrypt(ciphertext, km.masterKey)
}
