package external

import (
	"context"

	"wordsmith/internal/types"
)

// StaticSubscriptionReader reports the same active plan for every user. It
// backs local development and the CLI when no billing source is configured.
type StaticSubscriptionReader struct {
	Plan types.PlanType
}

// NewStaticSubscriptionReader returns a reader for plan. An unknown plan
// selects free.
func NewStaticSubscriptionReader(plan string) *StaticSubscriptionReader {
	p, err := parsePlan(plan)
	if err != nil {
		p = types.PlanFree
	}
	return &StaticSubscriptionReader{Plan: p}
}

// GetSubscription implements types.SubscriptionReader.
func (s *StaticSubscriptionReader) GetSubscription(_ context.Context, userID string) (types.Subscription, error) {
	return types.Subscription{UserID: userID, PlanType: s.Plan, Status: types.SubStatusActive}, nil
}

var _ types.SubscriptionReader = (*StaticSubscriptionReader)(nil)
