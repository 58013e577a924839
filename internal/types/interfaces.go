package types

import "context"

// Logger defines the structured logging interface used by request-scoped code.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
	With(args ...any) Logger
}

// SubscriptionReader loads the billing subsystem's view of a user's plan.
// Implementations return DefaultSubscription when the user has none.
type SubscriptionReader interface {
	GetSubscription(ctx context.Context, userID string) (Subscription, error)
}

// UsageEventPublisher hands a failed usage recording to the retry queue.
type UsageEventPublisher interface {
	PublishUsageEvent(ctx context.Context, event UsageEvent) error
}

// DecisionOutcome labels the result of a capability authorization.
type DecisionOutcome string

const (
	OutcomeAllowed DecisionOutcome = "allowed"
	OutcomeDenied  DecisionOutcome = "denied"
	OutcomeErrored DecisionOutcome = "errored"
)

// CapabilityMetrics records engine-level counters.
type CapabilityMetrics interface {
	RecordDecision(ctx context.Context, capability Capability, outcome DecisionOutcome)
	RecordLedgerFailure(ctx context.Context, capability Capability)
}
