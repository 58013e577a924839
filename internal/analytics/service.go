// Package analytics is the capability engine: it loads the caller's
// subscription and usage, asks the gate for a decision, runs the text
// algorithm and records the use.
package analytics

import (
	"context"
	"log/slog"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"wordsmith/internal/billing"
	"wordsmith/internal/textproc"
	"wordsmith/internal/types"
)

// UsageLedger is the subset of the ledger the engine uses.
type UsageLedger interface {
	CurrentPeriod() types.PeriodKey
	Snapshot(ctx context.Context, userID string, period types.PeriodKey) (types.UsageRecord, error)
	RecordUseBestEffort(ctx context.Context, userID string, c types.Capability, period types.PeriodKey) (types.UsageRecord, bool)
	History(ctx context.Context, userID string, limit int) ([]types.UsageRecord, error)
}

// Config holds the dependencies for creating a Service.
type Config struct {
	Subscriptions types.SubscriptionReader
	Ledger        UsageLedger
	Catalog       billing.PlanCatalog
	Lexicon       *textproc.Lexicon
	Metrics       types.CapabilityMetrics
	Logger        *slog.Logger
}

// Service orchestrates gated capability calls.
type Service struct {
	subs     types.SubscriptionReader
	ledger   UsageLedger
	gate     *billing.CapabilityGate
	reporter *billing.UsageReporter

	keywords   *textproc.KeywordRanker
	sentiment  *textproc.SentimentScorer
	summarizer *textproc.Summarizer

	metrics types.CapabilityMetrics
	logger  *slog.Logger
}

// NewService creates a Service. A nil Catalog selects the static catalog and
// a nil Lexicon the built-in word lists.
func NewService(cfg Config) *Service {
	catalog := cfg.Catalog
	if catalog == nil {
		catalog = billing.NewStaticPlanCatalog()
	}
	lex := cfg.Lexicon
	if lex == nil {
		lex = textproc.DefaultLexicon()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		subs:       cfg.Subscriptions,
		ledger:     cfg.Ledger,
		gate:       billing.NewCapabilityGate(catalog),
		reporter:   billing.NewUsageReporter(cfg.Subscriptions, cfg.Ledger, catalog),
		keywords:   textproc.NewKeywordRanker(lex),
		sentiment:  textproc.NewSentimentScorer(lex),
		summarizer: textproc.NewSummarizer(lex),
		metrics:    cfg.Metrics,
		logger:     logger,
	}
}

// state is what a gating decision was made on.
type state struct {
	period       types.PeriodKey
	subscription types.Subscription
	usage        types.UsageRecord
	limits       types.PlanLimits
}

// authorize loads the caller's subscription and usage concurrently and runs
// the gate. Any load failure denies the call.
func (s *Service) authorize(ctx context.Context, actor types.Actor, c types.Capability, contentLength int) (state, error) {
	st := state{period: s.ledger.CurrentPeriod()}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		st.subscription, err = s.subs.GetSubscription(gctx, actor.ID)
		return err
	})
	g.Go(func() error {
		var err error
		st.usage, err = s.ledger.Snapshot(gctx, actor.ID, st.period)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.ErrorContext(ctx, "failed to load authorization state",
			"user_id", actor.ID,
			"capability", string(c),
			"error", err,
		)
		s.recordDecision(ctx, c, types.OutcomeErrored)
		return st, err
	}

	st.limits = s.gate.Limits(st.subscription)
	err := s.gate.Authorize(billing.AuthorizationRequest{
		Capability:    c,
		Subscription:  st.subscription,
		Usage:         st.usage,
		ViaAPI:        actor.ViaAPI(),
		ContentLength: contentLength,
	})
	if err != nil {
		s.recordDecision(ctx, c, types.OutcomeDenied)
		return st, err
	}
	s.recordDecision(ctx, c, types.OutcomeAllowed)
	return st, nil
}

// record counts a delivered use. It never fails the call.
func (s *Service) record(ctx context.Context, actor types.Actor, c types.Capability, period types.PeriodKey) (types.UsageRecord, bool) {
	return s.ledger.RecordUseBestEffort(ctx, actor.ID, c, period)
}

func (s *Service) recordDecision(ctx context.Context, c types.Capability, outcome types.DecisionOutcome) {
	if s.metrics != nil {
		s.metrics.RecordDecision(ctx, c, outcome)
	}
}

func requireActor(actor types.Actor) error {
	if actor.ID == "" {
		return types.NewAppError(types.ErrCodeAuthTokenMissing, "an authenticated user is required", nil)
	}
	return nil
}

func contentLength(text string) int {
	return utf8.RuneCountInString(text)
}

// CurrentUsage reports the caller's usage for the current period, or for
// period when it is non-empty.
func (s *Service) CurrentUsage(ctx context.Context, actor types.Actor, period types.PeriodKey) (types.UsageReport, error) {
	if err := requireActor(actor); err != nil {
		return types.UsageReport{}, err
	}
	if period == "" {
		period = s.ledger.CurrentPeriod()
	} else if err := period.Validate(); err != nil {
		return types.UsageReport{}, err
	}
	return s.reporter.GetCurrentUsage(ctx, actor.ID, period)
}

// UsageHistory returns up to limit past periods for the caller, newest first.
func (s *Service) UsageHistory(ctx context.Context, actor types.Actor, limit int) ([]types.UsageRecord, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	return s.reporter.GetUsageHistory(ctx, actor.ID, limit)
}

func elapsedMillis(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}
