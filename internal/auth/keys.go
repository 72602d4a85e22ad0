// Package auth holds API key hashing, token sealing and OAuth state tracking.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// KeyPrefix marks user API keys.
const KeyPrefix = "sk_sponte_"

const keyEntropyBytes = 24

// HashKey is the lookup form of an API key. Only this digest is persisted.
func HashKey(key string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(key)))
	return hex.EncodeToString(sum[:])
}

// GenerateKey mints a user API key. The plaintext is returned to the caller
// exactly once.
func GenerateKey() (key, hash string, err error) {
	buf := make([]byte, keyEntropyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("failed to generate key: %w", err)
	}
	key = KeyPrefix + hex.EncodeToString(buf)
	return key, HashKey(key), nil
}

// WellFormed reports whether key could have come from GenerateKey.
func WellFormed(key string) bool {
	body, ok := strings.CutPrefix(strings.TrimSpace(key), KeyPrefix)
	if !ok || len(body) != 2*keyEntropyBytes {
		return false
	}
	_, err := hex.DecodeString(body)
	return err == nil
}
