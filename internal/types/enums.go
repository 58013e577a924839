package types

// PlanType identifies the subscription tier of a user.
type PlanType string

const (
	PlanFree         PlanType = "free"
	PlanBasic        PlanType = "basic"
	PlanProfessional PlanType = "professional"
	PlanEnterprise   PlanType = "enterprise"
)

// PlanOrder lists the plan tiers from cheapest to most expensive.
var PlanOrder = []PlanType{PlanFree, PlanBasic, PlanProfessional, PlanEnterprise}

// SubscriptionStatus represents the state of a billing subscription as
// reported by the billing subsystem.
type SubscriptionStatus string

const (
	SubStatusActive            SubscriptionStatus = "active"
	SubStatusTrialing          SubscriptionStatus = "trialing"
	SubStatusPastDue           SubscriptionStatus = "past_due"
	SubStatusCanceled          SubscriptionStatus = "canceled"
	SubStatusUnpaid            SubscriptionStatus = "unpaid"
	SubStatusIncomplete        SubscriptionStatus = "incomplete"
	SubStatusIncompleteExpired SubscriptionStatus = "incomplete_expired"
)

// GrantsPlan reports whether a subscription in this status keeps the paid
// plan's entitlements. past_due is the dunning grace window.
func (s SubscriptionStatus) GrantsPlan() bool {
	switch s {
	case SubStatusActive, SubStatusTrialing, SubStatusPastDue:
		return true
	default:
		return false
	}
}

// Capability is a metered operation of the engine.
type Capability string

const (
	CapabilityKeywordExtraction Capability = "keyword_extraction"
	CapabilitySentimentAnalysis Capability = "sentiment_analysis"
	CapabilitySummarization     Capability = "text_summarization"
	CapabilityContentGeneration Capability = "content_generation"
)

// Capabilities lists every metered capability.
var Capabilities = []Capability{
	CapabilityKeywordExtraction,
	CapabilitySentimentAnalysis,
	CapabilitySummarization,
	CapabilityContentGeneration,
}

// Valid reports whether c is a known capability.
func (c Capability) Valid() bool {
	for _, known := range Capabilities {
		if c == known {
			return true
		}
	}
	return false
}

// Entitlement is a plan-level flag permitting a specific capability.
type Entitlement string

const (
	EntitlementNone          Entitlement = ""
	EntitlementSentiment     Entitlement = "sentiment"
	EntitlementKeywords      Entitlement = "keywords"
	EntitlementSummarization Entitlement = "summarization"
	EntitlementAPIAccess     Entitlement = "api_access"
)

// RequiredEntitlement returns the flag a plan must carry to use c.
// Content generation is quota-gated rather than flag-gated.
func (c Capability) RequiredEntitlement() Entitlement {
	switch c {
	case CapabilitySentimentAnalysis:
		return EntitlementSentiment
	case CapabilityKeywordExtraction:
		return EntitlementKeywords
	case CapabilitySummarization:
		return EntitlementSummarization
	default:
		return EntitlementNone
	}
}

// SentimentLabel is the polarity bucket of a sentiment score.
type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "positive"
	SentimentNegative SentimentLabel = "negative"
	SentimentNeutral  SentimentLabel = "neutral"
)

// SummaryType is the requested summarization style. It is validated on
// input only; the summarizer is always extractive.
type SummaryType string

const (
	SummaryExtractive  SummaryType = "extractive"
	SummaryAbstractive SummaryType = "abstractive"
)
