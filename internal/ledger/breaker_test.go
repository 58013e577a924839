package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"wordsmith/internal/types"
)

// countingStore fails while failing is set and counts calls that reach it.
type countingStore struct {
	*MemoryStore
	failing bool
	calls   int
}

func (s *countingStore) Increment(ctx context.Context, userID string, period types.PeriodKey, c types.Capability, at time.Time) (types.UsageRecord, error) {
	s.calls++
	if s.failing {
		return types.UsageRecord{}, errors.New("db unreachable")
	}
	return s.MemoryStore.Increment(ctx, userID, period, c, at)
}

func TestBreakerStore_PassesThrough(t *testing.T) {
	store := NewBreakerStore(NewMemoryStore(), BreakerSettings{})
	ctx := context.Background()

	_, err := store.Increment(ctx, "user-1", "2025-06", types.CapabilityContentGeneration, fixedNow)
	require.NoError(t, err)

	rec, found, err := store.Get(ctx, "user-1", "2025-06")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(1), rec.ContentGenerated)

	hist, err := store.History(ctx, "user-1", 10)
	require.NoError(t, err)
	assert.Len(t, hist, 1)
}

func TestBreakerStore_OpensAfterConsecutiveFailures(t *testing.T) {
	inner := &countingStore{MemoryStore: NewMemoryStore(), failing: true}
	store := NewBreakerStore(inner, BreakerSettings{ConsecutiveFailures: 2, OpenTimeout: time.Minute})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := store.Increment(ctx, "user-1", "2025-06", types.CapabilityContentGeneration, fixedNow)
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, store.State())

	_, err := store.Increment(ctx, "user-1", "2025-06", types.CapabilityContentGeneration, fixedNow)
	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodePersistenceUnavailable, appErr.Code)
	assert.Equal(t, 3, inner.calls, "open breaker must not reach the store")
}

func TestBreakerStore_InvalidInputDoesNotTrip(t *testing.T) {
	invalid := types.NewAppError(types.ErrCodeValidationInvalidParameter, "bad capability", nil)
	store := NewBreakerStore(failingStore{err: invalid}, BreakerSettings{ConsecutiveFailures: 1})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := store.Increment(ctx, "user-1", "2025-06", "bogus", fixedNow)
		assert.Equal(t, types.KindInvalidInput, types.KindOf(err))
	}
	assert.Equal(t, gobreaker.StateClosed, store.State())
}

func TestLedgerOverBreaker_FailOpenWhenOpen(t *testing.T) {
	inner := &countingStore{MemoryStore: NewMemoryStore(), failing: true}
	pub := new(mockPublisher)
	pub.On("PublishUsageEvent", mock.Anything, mock.Anything).Return(nil)
	l := newTestLedger(NewBreakerStore(inner, BreakerSettings{ConsecutiveFailures: 1}), WithRetryPublisher(pub))

	for i := 0; i < 4; i++ {
		_, ok := l.RecordUseBestEffort(context.Background(), "user-1", types.CapabilityContentGeneration, "2025-06")
		assert.False(t, ok)
	}
	pub.AssertNumberOfCalls(t, "PublishUsageEvent", 4)
}

func TestBreakerStore_ApplyEventForwardsDeduplication(t *testing.T) {
	store := NewBreakerStore(NewMemoryStore(), BreakerSettings{})
	ctx := context.Background()
	event := types.UsageEvent{EventID: "evt-9", UserID: "user-1", Capability: types.CapabilitySentimentAnalysis, PeriodKey: "2025-06"}

	_, applied, err := store.ApplyEvent(ctx, event, fixedNow)
	require.NoError(t, err)
	assert.True(t, applied)

	rec, applied, err := store.ApplyEvent(ctx, event, fixedNow)
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, int64(1), rec.SentimentAnalysisUsed)
}
