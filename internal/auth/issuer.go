package auth

import (
	"context"
	"strings"
	"time"

	"wordsmith/internal/types"
)

// APIKeyStore is the write side of the api_keys table.
type APIKeyStore interface {
	Create(ctx context.Context, key types.APIKey) (types.APIKey, error)
	Revoke(ctx context.Context, id string, at time.Time) error
}

// KeyIssuer creates and revokes API keys for operators.
type KeyIssuer struct {
	store  APIKeyStore
	hasher KeyHasher
	now    func() time.Time
}

// NewKeyIssuer returns a KeyIssuer. A nil hasher selects bcrypt.
func NewKeyIssuer(store APIKeyStore, hasher KeyHasher) *KeyIssuer {
	if hasher == nil {
		hasher = NewBcryptHasher(0)
	}
	return &KeyIssuer{store: store, hasher: hasher, now: time.Now}
}

// Issue creates a key for userID and returns the stored record together with
// the plaintext, which is not recoverable afterwards.
func (i *KeyIssuer) Issue(ctx context.Context, userID, name string, ttl time.Duration) (types.APIKey, string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return types.APIKey{}, "", types.NewAppError(types.ErrCodeValidationInvalidParameter, "user id is required", nil)
	}

	plaintext, err := GenerateAPIKey()
	if err != nil {
		return types.APIKey{}, "", types.NewAppError(types.ErrCodeInternalUnexpected, "failed to generate api key", err)
	}
	hash, err := i.hasher.Hash(plaintext)
	if err != nil {
		return types.APIKey{}, "", types.NewAppError(types.ErrCodeInternalUnexpected, "failed to hash api key", err)
	}

	now := i.now().UTC()
	key := types.APIKey{
		UserID:    userID,
		KeyHash:   hash,
		KeyPrefix: KeyPrefix(plaintext),
		Name:      name,
		CreatedAt: now,
	}
	if ttl > 0 {
		expires := now.Add(ttl)
		key.ExpiresAt = &expires
	}

	created, err := i.store.Create(ctx, key)
	if err != nil {
		return types.APIKey{}, "", err
	}
	return created, plaintext, nil
}

// Revoke disables a key. Cached verifications expire within DefaultCacheTTL.
func (i *KeyIssuer) Revoke(ctx context.Context, id string) error {
	return i.store.Revoke(ctx, id, i.now().UTC())
}
