// ABOUTME: Symmetric cipher for provider tokens stored at rest
// ABOUTME: NaCl secretbox with random nonces, base64 wire format

package secrets

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
)

// ErrDecrypt is returned when a ciphertext cannot be opened, either because
// it was produced under a different key or because it has been corrupted.
var ErrDecrypt = errors.New("cannot decrypt value")

const nonceSize = 24

// Cipher encrypts and decrypts short secret strings (OAuth tokens).
// It is the only place plaintext tokens cross into or out of storage;
// callers above the store never see ciphertext, rows never hold plaintext.
type Cipher struct {
	key [32]byte
}

// NewCipher creates a Cipher from a 32-byte key.
func NewCipher(key [32]byte) *Cipher {
	return &Cipher{key: key}
}

// Encrypt seals plaintext under a fresh random nonce and returns
// base64(nonce || box). An empty plaintext produces an empty ciphertext so
// optional tokens (e.g. a missing refresh token) round-trip as empty.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}

	sealed := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &c.key)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. Tampered or wrong-key ciphertexts return ErrDecrypt.
func (c *Cipher) Decrypt(ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}

	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	if len(raw) < nonceSize {
		return "", ErrDecrypt
	}

	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])

	opened, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, &c.key)
	if !ok {
		return "", ErrDecrypt
	}

	return string(opened), nil
}
