package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"

	"golang.org/x/crypto/nacl/secretbox"
)

const nonceSize = 24

// ErrUnseal is returned for ciphertext that was not produced with this key.
var ErrUnseal = errors.New("failed to unseal value")

// Sealer encrypts provider tokens at rest with NaCl secretbox.
// The box key is SHA-256 of the application secret.
type Sealer struct {
	key [32]byte
}

// NewSealer derives the box key from secret.
func NewSealer(secret string) (*Sealer, error) {
	if secret == "" {
		return nil, errors.New("secret key is required")
	}
	return &Sealer{key: sha256.Sum256([]byte(secret))}, nil
}

// Seal returns nonce || box. Empty plaintext seals to nil.
func (s *Sealer) Seal(plaintext string) ([]byte, error) {
	if plaintext == "" {
		return nil, nil
	}
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("failed to read nonce: %w", err)
	}
	return secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &s.key), nil
}

// Open reverses Seal. Nil input opens to "".
func (s *Sealer) Open(sealed []byte) (string, error) {
	if len(sealed) == 0 {
		return "", nil
	}
	if len(sealed) < nonceSize+secretbox.Overhead {
		return "", ErrUnseal
	}
	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])
	out, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, &s.key)
	if !ok {
		return "", ErrUnseal
	}
	return string(out), nil
}
