package types

import (
	"fmt"
	"regexp"
	"time"
)

// PlanLimits describes what a plan tier allows. Values are immutable and
// defined at process start by the plan catalog.
type PlanLimits struct {
	MonthlyContentLimit int  `json:"monthly_content_limit"` // -1 means unlimited
	MaxContentLength    int  `json:"max_content_length"`
	AllowSentiment      bool `json:"allow_sentiment"`
	AllowKeywords       bool `json:"allow_keywords"`
	AllowSummarization  bool `json:"allow_summarization"`
	AllowAPIAccess      bool `json:"allow_api_access"`
}

// UnlimitedContent is the MonthlyContentLimit sentinel for no quota.
const UnlimitedContent = -1

// Unlimited reports whether the monthly content quota is unbounded.
func (l PlanLimits) Unlimited() bool {
	return l.MonthlyContentLimit == UnlimitedContent
}

// Grants reports whether the plan carries the given entitlement flag.
// EntitlementNone is always granted.
func (l PlanLimits) Grants(e Entitlement) bool {
	switch e {
	case EntitlementNone:
		return true
	case EntitlementSentiment:
		return l.AllowSentiment
	case EntitlementKeywords:
		return l.AllowKeywords
	case EntitlementSummarization:
		return l.AllowSummarization
	case EntitlementAPIAccess:
		return l.AllowAPIAccess
	default:
		return false
	}
}

// Subscription is the billing subsystem's view of a user's plan. The engine
// only reads it.
type Subscription struct {
	UserID   string             `json:"user_id" db:"user_id"`
	PlanType PlanType           `json:"plan_type" db:"plan_type"`
	Status   SubscriptionStatus `json:"status" db:"status"`
}

// DefaultSubscription is used when the billing subsystem has no record for
// a user.
func DefaultSubscription(userID string) Subscription {
	return Subscription{
		UserID:   userID,
		PlanType: PlanFree,
		Status:   SubStatusActive,
	}
}

// EffectivePlan returns the plan whose limits apply. Statuses that do not
// grant the plan fall back to free.
func (s Subscription) EffectivePlan() PlanType {
	if !s.Status.GrantsPlan() {
		return PlanFree
	}
	return s.PlanType
}

// PeriodKey identifies an accounting bucket, normally a calendar month of a
// given year in "YYYY-MM" form.
type PeriodKey string

const periodKeyLayout = "2006-01"

var periodKeyPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// PeriodKeyFor returns the monthly period key containing t (in UTC).
func PeriodKeyFor(t time.Time) PeriodKey {
	return PeriodKey(t.UTC().Format(periodKeyLayout))
}

// Validate checks that the key is in "YYYY-MM" form.
func (p PeriodKey) Validate() error {
	if !periodKeyPattern.MatchString(string(p)) {
		return NewAppError(
			ErrCodeValidationInvalidPeriod,
			fmt.Sprintf("period %q must be formatted as YYYY-MM", string(p)),
			nil,
		)
	}
	return nil
}

// Bounds returns the [start, end) instants of a monthly key.
func (p PeriodKey) Bounds() (time.Time, time.Time, error) {
	start, err := time.Parse(periodKeyLayout, string(p))
	if err != nil {
		return time.Time{}, time.Time{}, NewAppError(
			ErrCodeValidationInvalidPeriod,
			fmt.Sprintf("period %q must be formatted as YYYY-MM", string(p)),
			err,
		)
	}
	return start, start.AddDate(0, 1, 0), nil
}

// UsageRecord holds one user's counters for one period. There is exactly one
// record per (UserID, PeriodKey) and its counters never decrease.
type UsageRecord struct {
	UserID                string    `json:"user_id" db:"user_id"`
	PeriodKey             PeriodKey `json:"period_key" db:"period_key"`
	ContentGenerated      int64     `json:"content_generated" db:"content_generated"`
	SentimentAnalysisUsed int64     `json:"sentiment_analysis_used" db:"sentiment_analysis_used"`
	KeywordExtractionUsed int64     `json:"keyword_extraction_used" db:"keyword_extraction_used"`
	TextSummarizationUsed int64     `json:"text_summarization_used" db:"text_summarization_used"`
	APICalls              int64     `json:"api_calls" db:"api_calls"`
	CreatedAt             time.Time `json:"created_at" db:"created_at"`
	UpdatedAt             time.Time `json:"updated_at" db:"updated_at"`
}

// EmptyUsage is the snapshot of a period that has no record yet.
func EmptyUsage(userID string, period PeriodKey) UsageRecord {
	return UsageRecord{UserID: userID, PeriodKey: period}
}

// Counter returns the counter tracking c.
func (r UsageRecord) Counter(c Capability) int64 {
	switch c {
	case CapabilityContentGeneration:
		return r.ContentGenerated
	case CapabilitySentimentAnalysis:
		return r.SentimentAnalysisUsed
	case CapabilityKeywordExtraction:
		return r.KeywordExtractionUsed
	case CapabilitySummarization:
		return r.TextSummarizationUsed
	default:
		return 0
	}
}

// Increment counts one use of c, returning the updated copy. A record that
// has not been created yet starts with only c's counter at 1; APICalls is
// bumped only on records that already exist. Stores without a native
// upsert-increment apply it under their own lock.
func (r UsageRecord) Increment(c Capability, at time.Time) UsageRecord {
	existed := !r.CreatedAt.IsZero()
	switch c {
	case CapabilityContentGeneration:
		r.ContentGenerated++
	case CapabilitySentimentAnalysis:
		r.SentimentAnalysisUsed++
	case CapabilityKeywordExtraction:
		r.KeywordExtractionUsed++
	case CapabilitySummarization:
		r.TextSummarizationUsed++
	}
	if existed {
		r.APICalls++
	} else {
		r.CreatedAt = at
	}
	r.UpdatedAt = at
	return r
}

// CounterColumn returns the usage_records column that tracks c.
func CounterColumn(c Capability) (string, error) {
	switch c {
	case CapabilityContentGeneration:
		return "content_generated", nil
	case CapabilitySentimentAnalysis:
		return "sentiment_analysis_used", nil
	case CapabilityKeywordExtraction:
		return "keyword_extraction_used", nil
	case CapabilitySummarization:
		return "text_summarization_used", nil
	default:
		return "", NewAppError(
			ErrCodeValidationInvalidParameter,
			fmt.Sprintf("unknown capability %q", string(c)),
			nil,
		)
	}
}

// SentimentResult is the output of the sentiment scorer.
type SentimentResult struct {
	Label    SentimentLabel `json:"label"`
	Score    float64        `json:"score"`
	Positive int            `json:"positive_matches"`
	Negative int            `json:"negative_matches"`
	Words    int            `json:"word_count"`
}

// KeywordCount pairs a keyword with its frequency in the source text.
type KeywordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// UsageEvent is a capability use that could not be written to the ledger
// and was handed to the retry queue.
type UsageEvent struct {
	EventID    string     `json:"event_id"`
	UserID     string     `json:"user_id"`
	Capability Capability `json:"capability"`
	PeriodKey  PeriodKey  `json:"period_key"`
	OccurredAt time.Time  `json:"occurred_at"`
	Attempt    int        `json:"attempt"`
	TraceID    string     `json:"trace_id,omitempty"`
}

// UsageReport is the current-period view returned to callers.
type UsageReport struct {
	UserID      string             `json:"user_id"`
	Period      PeriodKey          `json:"period"`
	PlanType    PlanType           `json:"plan_type"`
	Status      SubscriptionStatus `json:"status"`
	Limits      PlanLimits         `json:"limits"`
	Usage       UsageRecord        `json:"usage"`
	ContentLeft int                `json:"content_remaining"` // -1 means unlimited
}

// APIKey is a programmatic credential. Only the bcrypt hash of the secret is
// stored; KeyPrefix is the indexed lookup handle.
type APIKey struct {
	ID         string     `json:"id" db:"id"`
	UserID     string     `json:"user_id" db:"user_id"`
	KeyHash    string     `json:"-" db:"key_hash"`
	KeyPrefix  string     `json:"key_prefix" db:"key_prefix"`
	Name       string     `json:"name" db:"name"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty" db:"last_used_at"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty" db:"expires_at"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty" db:"revoked_at"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
}

// Usable reports whether the key may authenticate at now.
func (k APIKey) Usable(now time.Time) bool {
	if k.RevokedAt != nil && !k.RevokedAt.After(now) {
		return false
	}
	if k.ExpiresAt != nil && !k.ExpiresAt.After(now) {
		return false
	}
	return true
}
