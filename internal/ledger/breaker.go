package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"

	"wordsmith/internal/types"
)

type breakerResult struct {
	record  types.UsageRecord
	found   bool
	applied bool
	history []types.UsageRecord
}

// BreakerStore guards a Store with a circuit breaker so a failing database
// is not hammered by every request. While open, calls fail immediately with
// persistence_store_unavailable.
type BreakerStore struct {
	next    Store
	breaker *gobreaker.CircuitBreaker[breakerResult]
}

// BreakerSettings tunes the breaker. Zero values take the defaults below.
type BreakerSettings struct {
	Name                string
	ConsecutiveFailures uint32        // trips after more than this many; default 5
	OpenTimeout         time.Duration // default 30s
}

// NewBreakerStore wraps next.
func NewBreakerStore(next Store, settings BreakerSettings) *BreakerStore {
	if settings.Name == "" {
		settings.Name = "usage-ledger"
	}
	if settings.ConsecutiveFailures == 0 {
		settings.ConsecutiveFailures = 5
	}
	if settings.OpenTimeout == 0 {
		settings.OpenTimeout = 30 * time.Second
	}

	cb := gobreaker.NewCircuitBreaker[breakerResult](gobreaker.Settings{
		Name:        settings.Name,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > settings.ConsecutiveFailures
		},
		IsSuccessful: countsAsSuccess,
	})
	return &BreakerStore{next: next, breaker: cb}
}

// countsAsSuccess keeps caller mistakes and cancellations from tripping the
// breaker; only store faults count.
func countsAsSuccess(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return true
	}
	return types.KindOf(err) == types.KindInvalidInput
}

// State exposes the breaker state for health reporting.
func (s *BreakerStore) State() gobreaker.State {
	return s.breaker.State()
}

func (s *BreakerStore) Get(ctx context.Context, userID string, period types.PeriodKey) (types.UsageRecord, bool, error) {
	res, err := s.breaker.Execute(func() (breakerResult, error) {
		rec, found, err := s.next.Get(ctx, userID, period)
		return breakerResult{record: rec, found: found}, err
	})
	if err != nil {
		return types.UsageRecord{}, false, mapBreakerErr(err)
	}
	return res.record, res.found, nil
}

func (s *BreakerStore) Increment(ctx context.Context, userID string, period types.PeriodKey, c types.Capability, at time.Time) (types.UsageRecord, error) {
	res, err := s.breaker.Execute(func() (breakerResult, error) {
		rec, err := s.next.Increment(ctx, userID, period, c, at)
		return breakerResult{record: rec}, err
	})
	if err != nil {
		return types.UsageRecord{}, mapBreakerErr(err)
	}
	return res.record, nil
}

// ApplyEvent forwards to next when it is an EventStore. Otherwise the event
// is counted with a plain Increment.
func (s *BreakerStore) ApplyEvent(ctx context.Context, event types.UsageEvent, at time.Time) (types.UsageRecord, bool, error) {
	res, err := s.breaker.Execute(func() (breakerResult, error) {
		if events, ok := s.next.(EventStore); ok {
			rec, applied, err := events.ApplyEvent(ctx, event, at)
			return breakerResult{record: rec, applied: applied}, err
		}
		rec, err := s.next.Increment(ctx, event.UserID, event.PeriodKey, event.Capability, at)
		return breakerResult{record: rec, applied: err == nil}, err
	})
	if err != nil {
		return types.UsageRecord{}, false, mapBreakerErr(err)
	}
	return res.record, res.applied, nil
}

func (s *BreakerStore) History(ctx context.Context, userID string, limit int) ([]types.UsageRecord, error) {
	res, err := s.breaker.Execute(func() (breakerResult, error) {
		recs, err := s.next.History(ctx, userID, limit)
		return breakerResult{history: recs}, err
	})
	if err != nil {
		return nil, mapBreakerErr(err)
	}
	return res.history, nil
}

func mapBreakerErr(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return types.NewAppError(types.ErrCodePersistenceUnavailable, "usage store temporarily unavailable", err)
	}
	return err
}
