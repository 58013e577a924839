package auth

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"sync"
	"time"

	"wordsmith/internal/types"
)

// DefaultCacheTTL bounds how long a verified key is trusted without
// re-reading the api_keys table. Revocations take effect within this window.
const DefaultCacheTTL = 5 * time.Minute

const maxCacheEntries = 10000

// APIKeyLookup is the read side of the api_keys table.
type APIKeyLookup interface {
	GetByPrefix(ctx context.Context, prefix string) ([]types.APIKey, error)
	TouchLastUsed(ctx context.Context, id string, at time.Time) error
}

// AuthenticatorConfig holds the dependencies for creating an Authenticator.
type AuthenticatorConfig struct {
	Keys       APIKeyLookup
	ServiceKey types.SecretString
	Hasher     KeyHasher
	CacheTTL   time.Duration
	Clock      func() time.Time
	Logger     *slog.Logger
}

type cachedActor struct {
	actor   types.Actor
	expires time.Time
}

// Authenticator resolves bearer tokens to actors.
type Authenticator struct {
	keys       APIKeyLookup
	serviceKey []byte
	hasher     KeyHasher
	ttl        time.Duration
	now        func() time.Time
	logger     *slog.Logger

	mu    sync.Mutex
	cache map[string]cachedActor
}

// NewAuthenticator creates an Authenticator. A nil Hasher selects bcrypt; a
// zero CacheTTL selects DefaultCacheTTL; a negative one disables caching.
func NewAuthenticator(cfg AuthenticatorConfig) *Authenticator {
	hasher := cfg.Hasher
	if hasher == nil {
		hasher = NewBcryptHasher(0)
	}
	ttl := cfg.CacheTTL
	if ttl == 0 {
		ttl = DefaultCacheTTL
	}
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{
		keys:       cfg.Keys,
		serviceKey: []byte(cfg.ServiceKey.Unmask()),
		hasher:     hasher,
		ttl:        ttl,
		now:        now,
		logger:     logger,
		cache:      make(map[string]cachedActor),
	}
}

// ResolveToken maps a bearer token to an Actor. onBehalfOf is the X-User-ID
// header and is only honored for the service key.
func (a *Authenticator) ResolveToken(ctx context.Context, token, onBehalfOf string) (*types.Actor, error) {
	if token == "" {
		return nil, types.NewAppError(types.ErrCodeAuthTokenMissing, "bearer token is required", nil)
	}
	if types.IsAPIKey(token) {
		return a.resolveAPIKey(ctx, token)
	}
	return a.resolveServiceKey(token, onBehalfOf)
}

func (a *Authenticator) resolveServiceKey(token, onBehalfOf string) (*types.Actor, error) {
	if len(a.serviceKey) == 0 || subtle.ConstantTimeCompare([]byte(token), a.serviceKey) != 1 {
		return nil, types.NewAppError(types.ErrCodeAuthTokenInvalid, "invalid authentication token", nil)
	}
	if onBehalfOf == "" {
		return nil, types.NewAppError(types.ErrCodeAuthTokenInvalid, "X-User-ID header is required with the service key", nil)
	}
	return &types.Actor{ID: onBehalfOf, Type: types.ActorTypeUser, Source: "web"}, nil
}

func (a *Authenticator) resolveAPIKey(ctx context.Context, token string) (*types.Actor, error) {
	if a.keys == nil {
		return nil, types.NewAppError(types.ErrCodeAuthTokenInvalid, "api keys are not accepted", nil)
	}
	prefix := KeyPrefix(token)
	if prefix == "" {
		return nil, types.NewAppError(types.ErrCodeAuthTokenInvalid, "malformed api key", nil)
	}

	now := a.now()
	cacheKey := HashToken(token)
	if actor, ok := a.cached(cacheKey, now); ok {
		return &actor, nil
	}

	candidates, err := a.keys.GetByPrefix(ctx, prefix)
	if err != nil {
		return nil, err
	}
	for _, key := range candidates {
		if a.hasher.Compare(key.KeyHash, token) != nil {
			continue
		}
		if !key.Usable(now) {
			return nil, types.NewAppError(types.ErrCodeAuthTokenRevoked, "api key has been revoked or has expired", nil)
		}

		actor := types.Actor{ID: key.UserID, Type: types.ActorTypeAPIKey, KeyID: key.ID, Source: "api"}
		a.store(cacheKey, actor, now)
		if err := a.keys.TouchLastUsed(ctx, key.ID, now); err != nil {
			a.logger.WarnContext(ctx, "failed to update api key last_used_at",
				"key_id", key.ID,
				"error", err,
			)
		}
		return &actor, nil
	}
	return nil, types.NewAppError(types.ErrCodeAuthTokenInvalid, "invalid api key", nil)
}

func (a *Authenticator) cached(key string, now time.Time) (types.Actor, bool) {
	if a.ttl < 0 {
		return types.Actor{}, false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	entry, ok := a.cache[key]
	if !ok {
		return types.Actor{}, false
	}
	if !now.Before(entry.expires) {
		delete(a.cache, key)
		return types.Actor{}, false
	}
	return entry.actor, true
}

func (a *Authenticator) store(key string, actor types.Actor, now time.Time) {
	if a.ttl < 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.cache) >= maxCacheEntries {
		a.cache = make(map[string]cachedActor)
	}
	a.cache[key] = cachedActor{actor: actor, expires: now.Add(a.ttl)}
}
