package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"wordsmith/internal/types"
)

type mockKeyStore struct {
	mock.Mock
}

func (m *mockKeyStore) Create(ctx context.Context, key types.APIKey) (types.APIKey, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(types.APIKey), args.Error(1)
}

func (m *mockKeyStore) Revoke(ctx context.Context, id string, at time.Time) error {
	return m.Called(ctx, id, at).Error(0)
}

func TestKeyIssuer_IssueThenAuthenticate(t *testing.T) {
	store := new(mockKeyStore)
	issuer := NewKeyIssuer(store, plainHasher{})
	issuer.now = func() time.Time { return fixedNow }

	var saved types.APIKey
	store.On("Create", mock.Anything, mock.AnythingOfType("types.APIKey")).
		Run(func(args mock.Arguments) {
			saved = args.Get(1).(types.APIKey)
			saved.ID = "key-new"
		}).
		Return(types.APIKey{}, nil)

	_, plaintext, err := issuer.Issue(context.Background(), "user-7", "ci", 24*time.Hour)
	require.NoError(t, err)
	assert.True(t, types.IsAPIKey(plaintext))
	assert.Equal(t, KeyPrefix(plaintext), saved.KeyPrefix)
	assert.Equal(t, "hash:"+plaintext, saved.KeyHash)
	require.NotNil(t, saved.ExpiresAt)
	assert.Equal(t, fixedNow.Add(24*time.Hour), *saved.ExpiresAt)

	keys := new(mockKeyLookup)
	keys.On("GetByPrefix", mock.Anything, saved.KeyPrefix).Return([]types.APIKey{saved}, nil)
	keys.On("TouchLastUsed", mock.Anything, "key-new", mock.Anything).Return(nil)
	now := fixedNow.Add(time.Hour)
	a := newTestAuthenticator(keys, &now)

	actor, err := a.ResolveToken(context.Background(), plaintext, "")
	require.NoError(t, err)
	assert.Equal(t, "user-7", actor.ID)

	// Past expiry the key no longer authenticates.
	later := fixedNow.Add(25 * time.Hour)
	expired := newTestAuthenticator(keys, &later)
	_, err = expired.ResolveToken(context.Background(), plaintext, "")
	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeAuthTokenRevoked, appErr.Code)
}

func TestKeyIssuer_IssueRequiresUser(t *testing.T) {
	issuer := NewKeyIssuer(new(mockKeyStore), plainHasher{})

	_, _, err := issuer.Issue(context.Background(), "  ", "ci", 0)
	assert.Equal(t, types.KindInvalidInput, types.KindOf(err))
}

func TestKeyIssuer_Revoke(t *testing.T) {
	store := new(mockKeyStore)
	issuer := NewKeyIssuer(store, plainHasher{})
	issuer.now = func() time.Time { return fixedNow }
	store.On("Revoke", mock.Anything, "key-1", fixedNow).Return(nil)

	require.NoError(t, issuer.Revoke(context.Background(), "key-1"))
	store.AssertExpectations(t)
}
