package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"wordsmith/internal/types"
)

type recordKey struct {
	userID string
	period types.PeriodKey
}

// MemoryStore is a process-local Store for tests and single-node use.
type MemoryStore struct {
	mu      sync.Mutex
	records map[recordKey]types.UsageRecord
	applied map[string]struct{}
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[recordKey]types.UsageRecord),
		applied: make(map[string]struct{}),
	}
}

func (s *MemoryStore) Get(ctx context.Context, userID string, period types.PeriodKey) (types.UsageRecord, bool, error) {
	if err := ctx.Err(); err != nil {
		return types.UsageRecord{}, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[recordKey{userID, period}]
	return rec, ok, nil
}

func (s *MemoryStore) Increment(ctx context.Context, userID string, period types.PeriodKey, c types.Capability, at time.Time) (types.UsageRecord, error) {
	if err := ctx.Err(); err != nil {
		return types.UsageRecord{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.incrementLocked(userID, period, c, at), nil
}

// ApplyEvent counts event unless its ID has been applied before.
func (s *MemoryStore) ApplyEvent(ctx context.Context, event types.UsageEvent, at time.Time) (types.UsageRecord, bool, error) {
	if err := ctx.Err(); err != nil {
		return types.UsageRecord{}, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, seen := s.applied[event.EventID]; seen {
		rec, ok := s.records[recordKey{event.UserID, event.PeriodKey}]
		if !ok {
			rec = types.EmptyUsage(event.UserID, event.PeriodKey)
		}
		return rec, false, nil
	}
	s.applied[event.EventID] = struct{}{}
	return s.incrementLocked(event.UserID, event.PeriodKey, event.Capability, at), true, nil
}

func (s *MemoryStore) incrementLocked(userID string, period types.PeriodKey, c types.Capability, at time.Time) types.UsageRecord {
	key := recordKey{userID, period}
	rec, ok := s.records[key]
	if !ok {
		rec = types.EmptyUsage(userID, period)
	}
	rec = rec.Increment(c, at)
	s.records[key] = rec
	return rec
}

func (s *MemoryStore) History(ctx context.Context, userID string, limit int) ([]types.UsageRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	out := make([]types.UsageRecord, 0)
	for key, rec := range s.records {
		if key.userID == userID {
			out = append(out, rec)
		}
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].PeriodKey > out[j].PeriodKey
	})
	// Same as SQL LIMIT: a non-positive limit yields nothing.
	if len(out) > limit {
		out = out[:max(limit, 0)]
	}
	return out, nil
}
