package server

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// hashAPIKey creates a SHA256 hash of an API key for storage
func hashAPIKey(apiKey string) string {
	hash := sha256.Sum256([]byte(apiKey))
	return fmt.Sprintf("%x", hash)
}

// truncateHash returns a truncated hash for display/logging
// Returns first 16 chars + "..." or the full hash if shorter
func truncateHash(hash string) string {
	if len(hash) <= 16 {
		return hash
	}
	return hash[:16] + "..."
}

// keyID is the public handle for an API key: the first 16 hex chars of
// its hash.
func keyID(hash string) string {
	if len(hash) <= 16 {
		return hash
	}
	return hash[:16]
}

func newAPIKey() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return apiKeyPrefix + "live_" + base64.RawURLEncoding.EncodeToString(b), nil
}
