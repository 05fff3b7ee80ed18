package store

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"os"

	"wagate/internal/constants"

	"golang.org/x/crypto/pbkdf2"
)

type encryptor struct {
	gcm cipher.AEAD
}

// newEncryptor derives a snapshot encryption key from the environment secret.
// When the secret is unset the snapshot is stored as plain JSON.
func newEncryptor() (*encryptor, error) {
	secret := os.Getenv(constants.EncryptionSecretEnv)
	if secret == "" {
		return &encryptor{gcm: nil}, nil
	}

	if len(secret) < 32 {
		return nil, fmt.Errorf("snapshot encryption secret must be at least 32 characters long")
	}

	key := pbkdf2.Key([]byte(secret), []byte(constants.EncryptionSalt), constants.PBKDF2Iterations, constants.EncryptionKeySize, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &encryptor{gcm: gcm}, nil
}

func (e *encryptor) enabled() bool {
	return e.gcm != nil
}

func (e *encryptor) encrypt(plaintext []byte) ([]byte, error) {
	if e.gcm == nil {
		return plaintext, nil
	}

	nonce := make([]byte, constants.EncryptionNonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := e.gcm.Seal(nil, nonce, plaintext, nil)
	encoded := base64.StdEncoding.EncodeToString(append(nonce, ciphertext...))
	return []byte(encoded), nil
}

func (e *encryptor) decrypt(content []byte) ([]byte, error) {
	if e.gcm == nil {
		return content, nil
	}

	data, err := base64.StdEncoding.DecodeString(string(content))
	if err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}

	if len(data) < constants.EncryptionNonceSize {
		return nil, fmt.Errorf("snapshot ciphertext too short")
	}

	nonce, ciphertext := data[:constants.EncryptionNonceSize], data[constants.EncryptionNonceSize:]
	plaintext, err := e.gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt snapshot: %w", err)
	}

	return plaintext, nil
}
