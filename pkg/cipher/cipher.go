// Package cipher encrypts and decrypts message bodies with a single
// process-wide symmetric key. The key is owned by the Box it is given to;
// it is never read from ambient state and never logged.
package cipher

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

const (
	// KeySize is the required key length in bytes.
	KeySize = chacha20poly1305.KeySize
	// nonceSize and overhead determine the minimum decodable ciphertext.
	nonceSize     = chacha20poly1305.NonceSize
	overhead      = chacha20poly1305.Overhead
	minSealedSize = nonceSize + overhead
)

var (
	// ErrDecrypt is returned when a ciphertext cannot be decrypted, either
	// because it is malformed or because it was sealed under a different key.
	// Callers on read paths must treat this as recoverable and substitute
	// fallback content rather than failing the operation.
	ErrDecrypt = errors.New("cipher: decryption failed")
)

// Box seals and opens message bodies with ChaCha20-Poly1305.
// Every call constructs its own AEAD instance, so a Box is safe for
// concurrent use.
type Box struct {
	key []byte
}

// NewBox returns a Box using the given key. The key must be exactly
// KeySize bytes.
func NewBox(key []byte) (*Box, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("cipher: key must be %d bytes, got %d", KeySize, len(key))
	}
	k := make([]byte, KeySize)
	copy(k, key)
	return &Box{key: k}, nil
}

// Encrypt seals plaintext under the box key with a random nonce and
// returns base64(nonce || ciphertext).
func (b *Box) Encrypt(plaintext string) (string, error) {
	aead, err := chacha20poly1305.New(b.key)
	if err != nil {
		return "", fmt.Errorf("cipher: %w", err)
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("cipher: reading nonce: %w", err)
	}

	sealed := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a ciphertext produced by Encrypt. It returns ErrDecrypt
// if the ciphertext is malformed or was sealed under a different key.
func (b *Box) Decrypt(ciphertext string) (string, error) {
	sealed, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: decoding: %v", ErrDecrypt, err)
	}
	if len(sealed) < minSealedSize {
		return "", fmt.Errorf("%w: ciphertext too short", ErrDecrypt)
	}

	aead, err := chacha20poly1305.New(b.key)
	if err != nil {
		return "", fmt.Errorf("cipher: %w", err)
	}

	nonce, body := sealed[:nonceSize], sealed[nonceSize:]
	plaintext, err := aead.Open(nil, nonce, body, nil)
	if err != nil {
		return "", fmt.Errorf("%w: opening: %v", ErrDecrypt, err)
	}
	return string(plaintext), nil
}
