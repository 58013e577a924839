// Package ledger owns the per-user, per-period usage counters.
//
// Reads used for authorization fail closed: a store failure is returned to
// the caller as a PersistenceError. Recording after a capability has already
// run fails open through RecordUseBestEffort, which logs the failure and
// hands the use to a retry queue instead of failing the request.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"wordsmith/internal/types"
)

// Store is the narrow persistence contract the ledger needs.
type Store interface {
	// Get returns the record for (userID, period). found is false when the
	// period has no record yet.
	Get(ctx context.Context, userID string, period types.PeriodKey) (rec types.UsageRecord, found bool, err error)

	// Increment atomically creates or bumps the record for (userID, period).
	// A new record starts with only the capability's counter at 1; on an
	// existing record the counter and APICalls each go up by one. UpdatedAt
	// is set to at. N concurrent calls must yield a counter of exactly N.
	Increment(ctx context.Context, userID string, period types.PeriodKey, c types.Capability, at time.Time) (types.UsageRecord, error)

	// History returns up to limit records for userID, newest period first.
	// limit must be at least 1.
	History(ctx context.Context, userID string, limit int) ([]types.UsageRecord, error)
}

// EventStore is implemented by stores that apply a queued UsageEvent at
// most once. The event ID is recorded in the same transaction as the
// increment. applied is false when the ID was already recorded; rec is then
// the current record and nothing is counted.
type EventStore interface {
	ApplyEvent(ctx context.Context, event types.UsageEvent, at time.Time) (rec types.UsageRecord, applied bool, err error)
}

// Ledger is the service wrapper around a Store.
type Ledger struct {
	store   Store
	retry   types.UsageEventPublisher
	metrics types.CapabilityMetrics
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithRetryPublisher sets where failed best-effort recordings are queued.
func WithRetryPublisher(p types.UsageEventPublisher) Option {
	return func(l *Ledger) { l.retry = p }
}

// WithMetrics records ledger write failures.
func WithMetrics(m types.CapabilityMetrics) Option {
	return func(l *Ledger) { l.metrics = m }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithClock overrides time.Now for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// New creates a Ledger over store.
func New(store Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:  store,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// CurrentPeriod returns the period key for the ledger's clock.
func (l *Ledger) CurrentPeriod() types.PeriodKey {
	return types.PeriodKeyFor(l.now())
}

// Snapshot returns the usage for (userID, period), or a zero record when the
// period has not been used yet.
func (l *Ledger) Snapshot(ctx context.Context, userID string, period types.PeriodKey) (types.UsageRecord, error) {
	if err := validateKey(userID, period); err != nil {
		return types.UsageRecord{}, err
	}

	rec, found, err := l.store.Get(ctx, userID, period)
	if err != nil {
		return types.UsageRecord{}, asPersistence(types.ErrCodePersistenceRead, "failed to read usage record", err)
	}
	if !found {
		return types.EmptyUsage(userID, period), nil
	}
	return rec, nil
}

// RecordUse counts one use of c in period and returns the updated record.
func (l *Ledger) RecordUse(ctx context.Context, userID string, c types.Capability, period types.PeriodKey) (types.UsageRecord, error) {
	if err := validateUse(userID, c, period); err != nil {
		return types.UsageRecord{}, err
	}

	rec, err := l.store.Increment(ctx, userID, period, c, l.now().UTC())
	if err != nil {
		return types.UsageRecord{}, asPersistence(types.ErrCodePersistenceWrite, "failed to record usage", err)
	}
	return rec, nil
}

// RecordUseBestEffort is RecordUse for callers that have already delivered
// the capability's result. Failures are logged and queued for replay; ok
// reports whether the write landed.
func (l *Ledger) RecordUseBestEffort(ctx context.Context, userID string, c types.Capability, period types.PeriodKey) (rec types.UsageRecord, ok bool) {
	rec, err := l.RecordUse(ctx, userID, c, period)
	if err == nil {
		return rec, true
	}

	l.logger.WarnContext(ctx, "usage recording failed, continuing",
		"user_id", userID,
		"capability", string(c),
		"period", string(period),
		"request_id", types.GetRequestID(ctx),
		"error", err,
	)
	if l.metrics != nil {
		l.metrics.RecordLedgerFailure(ctx, c)
	}

	if l.retry == nil || types.KindOf(err) != types.KindPersistenceError {
		return types.UsageRecord{}, false
	}

	event := types.UsageEvent{
		EventID:    uuid.NewString(),
		UserID:     userID,
		Capability: c,
		PeriodKey:  period,
		OccurredAt: l.now().UTC(),
		Attempt:    1,
		TraceID:    types.GetRequestID(ctx),
	}
	// The request context may already be done; queueing must not depend on it.
	if pubErr := l.retry.PublishUsageEvent(context.WithoutCancel(ctx), event); pubErr != nil {
		l.logger.ErrorContext(ctx, "failed to queue usage event for replay",
			"event_id", event.EventID,
			"user_id", userID,
			"capability", string(c),
			"error", pubErr,
		)
	}
	return types.UsageRecord{}, false
}

// Replay applies a queued usage event. Queue delivery is at-least-once;
// when the store is an EventStore a redelivered event is recognised by its
// EventID and not counted again. applied reports whether this call counted
// the event.
func (l *Ledger) Replay(ctx context.Context, event types.UsageEvent) (rec types.UsageRecord, applied bool, err error) {
	if err := validateUse(event.UserID, event.Capability, event.PeriodKey); err != nil {
		return types.UsageRecord{}, false, err
	}

	events, ok := l.store.(EventStore)
	if !ok || event.EventID == "" {
		rec, err := l.RecordUse(ctx, event.UserID, event.Capability, event.PeriodKey)
		return rec, err == nil, err
	}

	rec, applied, err = events.ApplyEvent(ctx, event, l.now().UTC())
	if err != nil {
		return types.UsageRecord{}, false, asPersistence(types.ErrCodePersistenceWrite, "failed to replay usage event", err)
	}
	if !applied {
		l.logger.InfoContext(ctx, "usage event already applied",
			"event_id", event.EventID,
			"user_id", event.UserID,
		)
	}
	return rec, applied, nil
}

// History returns up to limit records for userID, newest first.
func (l *Ledger) History(ctx context.Context, userID string, limit int) ([]types.UsageRecord, error) {
	if userID == "" {
		return nil, types.NewAppError(types.ErrCodeValidationInvalidParameter, "user id is required", nil)
	}
	if limit < 1 {
		return nil, types.NewAppError(types.ErrCodeValidationInvalidParameter, "history limit must be at least 1", nil)
	}
	recs, err := l.store.History(ctx, userID, limit)
	if err != nil {
		return nil, asPersistence(types.ErrCodePersistenceRead, "failed to read usage history", err)
	}
	return recs, nil
}

func validateUse(userID string, c types.Capability, period types.PeriodKey) error {
	if err := validateKey(userID, period); err != nil {
		return err
	}
	if !c.Valid() {
		return types.NewAppError(
			types.ErrCodeValidationInvalidParameter,
			fmt.Sprintf("unknown capability %q", string(c)),
			nil,
		)
	}
	return nil
}

func validateKey(userID string, period types.PeriodKey) error {
	if userID == "" {
		return types.NewAppError(types.ErrCodeValidationInvalidParameter, "user id is required", nil)
	}
	if period == "" {
		return types.NewAppError(types.ErrCodeValidationInvalidPeriod, "period is required", nil)
	}
	return nil
}

// asPersistence keeps AppErrors raised by the store and wraps anything else.
func asPersistence(code types.ErrorCode, msg string, err error) error {
	var appErr *types.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return types.NewAppError(code, msg, err)
}
