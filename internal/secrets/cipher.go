// Package secrets encrypts tenant credentials at rest.
package secrets

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"github.com/go-jose/go-jose/v4"
	"golang.org/x/crypto/hkdf"
)

// MinMasterKeyLength is the shortest master key accepted.
const MinMasterKeyLength = 32

const keyInfo = "recordsapi tenant dsn v1"

// ErrMasterKeyTooShort is returned when the configured master key is weaker than MinMasterKeyLength.
var ErrMasterKeyTooShort = errors.New("master key must be at least 32 bytes")

// Cipher seals and opens small secrets such as tenant DSNs.
type Cipher interface {
	Encrypt(plaintext []byte) (string, error)
	Decrypt(ciphertext string) ([]byte, error)
}

// JWECipher produces compact JWE strings (dir + A256GCM) under a key derived
// from the master key with HKDF-SHA256.
type JWECipher struct {
	key       []byte
	encrypter jose.Encrypter
}

// NewJWECipher derives the content key from masterKey and salt.
func NewJWECipher(masterKey, salt []byte) (*JWECipher, error) {
	if len(masterKey) < MinMasterKeyLength {
		return nil, ErrMasterKeyTooShort
	}

	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, masterKey, salt, []byte(keyInfo)), key); err != nil {
		return nil, fmt.Errorf("derive content key: %w", err)
	}

	encrypter, err := jose.NewEncrypter(jose.A256GCM, jose.Recipient{Algorithm: jose.DIRECT, Key: key}, nil)
	if err != nil {
		return nil, fmt.Errorf("create jwe encrypter: %w", err)
	}

	return &JWECipher{key: key, encrypter: encrypter}, nil
}

// Encrypt returns the compact serialization of plaintext.
func (c *JWECipher) Encrypt(plaintext []byte) (string, error) {
	obj, err := c.encrypter.Encrypt(plaintext)
	if err != nil {
		return "", fmt.Errorf("encrypt: %w", err)
	}
	return obj.CompactSerialize()
}

// Decrypt opens a compact JWE produced by Encrypt.
func (c *JWECipher) Decrypt(ciphertext string) ([]byte, error) {
	obj, err := jose.ParseEncrypted(ciphertext,
		[]jose.KeyAlgorithm{jose.DIRECT},
		[]jose.ContentEncryption{jose.A256GCM},
	)
	if err != nil {
		return nil, fmt.Errorf("parse jwe: %w", err)
	}
	plaintext, err := obj.Decrypt(c.key)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	return plaintext, nil
}
