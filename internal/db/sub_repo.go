package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"wordsmith/internal/types"
)

// SubscriptionRepo reads plan state from the subscriptions table. The table
// is owned by the billing subsystem; this repo never writes to it.
type SubscriptionRepo struct {
	db DBTX
}

func NewSubscriptionRepo(db DBTX) *SubscriptionRepo {
	return &SubscriptionRepo{db: db}
}

// GetSubscription returns the user's subscription. A user with no row is on
// the default free plan.
func (r *SubscriptionRepo) GetSubscription(ctx context.Context, userID string) (types.Subscription, error) {
	var (
		sub    types.Subscription
		plan   string
		status string
	)
	err := r.db.QueryRow(ctx,
		`SELECT user_id, plan_type, status FROM subscriptions WHERE user_id = $1`,
		userID,
	).Scan(&sub.UserID, &plan, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return types.DefaultSubscription(userID), nil
		}
		return types.Subscription{}, types.NewAppError(types.ErrCodePersistenceRead, "failed to load subscription", err)
	}
	sub.PlanType = types.PlanType(plan)
	sub.Status = types.SubscriptionStatus(status)
	return sub, nil
}
