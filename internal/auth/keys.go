// Package auth resolves bearer tokens into actors. Customer API keys are
// verified against bcrypt hashes; the web application authenticates with a
// shared service key and names the signed-in user in a header.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"wordsmith/internal/types"
)

const (
	// bcryptCost is the bcrypt cost factor for API key hashes.
	bcryptCost = 12

	// KeyPrefixLength is the number of leading characters of a key stored
	// in plaintext as its lookup handle ("wsk_" plus 8 hex chars).
	KeyPrefixLength = len(types.APIKeyPrefix) + 8

	keySecretBytes = 20
)

// KeyHasher abstracts bcrypt operations for testability.
type KeyHasher interface {
	Compare(hash, key string) error
	Hash(key string) (string, error)
}

type bcryptHasher struct {
	cost int
}

// NewBcryptHasher returns the production KeyHasher. A cost of 0 selects the
// default.
func NewBcryptHasher(cost int) KeyHasher {
	if cost == 0 {
		cost = bcryptCost
	}
	return &bcryptHasher{cost: cost}
}

func (b *bcryptHasher) Compare(hash, key string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(key))
}

func (b *bcryptHasher) Hash(key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), b.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// HashToken produces a hex-encoded SHA-256 hash of a raw token. It keys the
// verified-token cache so plaintext keys are never held in memory maps.
func HashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// KeyPrefix returns the lookup handle of a key, or "" when the token is not
// a well-formed API key.
func KeyPrefix(token string) string {
	if !types.IsAPIKey(token) || len(token) <= KeyPrefixLength {
		return ""
	}
	return token[:KeyPrefixLength]
}

// GenerateAPIKey returns a new plaintext key.
// Format: "wsk_" + 40 hex chars.
func GenerateAPIKey() (string, error) {
	b := make([]byte, keySecretBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating api key: %w", err)
	}
	return types.APIKeyPrefix + hex.EncodeToString(b), nil
}
