package billing

import (
	"context"

	"golang.org/x/sync/errgroup"

	"wordsmith/internal/types"
)

// History page size bounds.
const (
	DefaultHistoryLimit = 12
	MaxHistoryLimit     = 120
)

// UsageSource is the read side of the usage ledger.
type UsageSource interface {
	Snapshot(ctx context.Context, userID string, period types.PeriodKey) (types.UsageRecord, error)
	History(ctx context.Context, userID string, limit int) ([]types.UsageRecord, error)
}

// UsageReporter reports usage against plan limits.
type UsageReporter struct {
	subs    types.SubscriptionReader
	usage   UsageSource
	catalog PlanCatalog
}

// NewUsageReporter creates a reporter. All dependencies are required.
func NewUsageReporter(subs types.SubscriptionReader, usage UsageSource, catalog PlanCatalog) *UsageReporter {
	return &UsageReporter{
		subs:    subs,
		usage:   usage,
		catalog: catalog,
	}
}

// GetCurrentUsage returns the user's counters for period alongside the limits
// of their effective plan. The subscription and usage reads run concurrently;
// either failure aborts the report.
func (r *UsageReporter) GetCurrentUsage(ctx context.Context, userID string, period types.PeriodKey) (types.UsageReport, error) {
	var (
		sub    types.Subscription
		record types.UsageRecord
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sub, err = r.subs.GetSubscription(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		record, err = r.usage.Snapshot(gctx, userID, period)
		return err
	})
	if err := g.Wait(); err != nil {
		return types.UsageReport{}, err
	}

	plan := sub.EffectivePlan()
	limits := r.catalog.GetLimits(plan)

	return types.UsageReport{
		UserID:      userID,
		Period:      period,
		PlanType:    plan,
		Status:      sub.Status,
		Limits:      limits,
		Usage:       record,
		ContentLeft: ContentRemaining(limits, record),
	}, nil
}

// GetUsageHistory returns up to limit past periods, newest first. limit is
// clamped to [1, MaxHistoryLimit]; zero or negative selects the default.
func (r *UsageReporter) GetUsageHistory(ctx context.Context, userID string, limit int) ([]types.UsageRecord, error) {
	switch {
	case limit <= 0:
		limit = DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		limit = MaxHistoryLimit
	}
	return r.usage.History(ctx, userID, limit)
}

// ContentRemaining is the number of content generations left in the period,
// or UnlimitedContent when the plan has no quota.
func ContentRemaining(limits types.PlanLimits, record types.UsageRecord) int {
	if limits.Unlimited() {
		return types.UnlimitedContent
	}
	left := int64(limits.MonthlyContentLimit) - record.ContentGenerated
	if left < 0 {
		return 0
	}
	return int(left)
}
