package billing

import (
	"fmt"

	"wordsmith/internal/types"
)

// AuthorizationRequest carries the snapshots a gating decision is made on.
// The gate never reads or writes storage itself.
type AuthorizationRequest struct {
	Capability    types.Capability
	Subscription  types.Subscription
	Usage         types.UsageRecord
	ViaAPI        bool
	ContentLength int
}

// CapabilityGate decides whether a capability may run for a user.
type CapabilityGate struct {
	catalog PlanCatalog
}

// NewCapabilityGate returns a gate backed by catalog.
func NewCapabilityGate(catalog PlanCatalog) *CapabilityGate {
	return &CapabilityGate{catalog: catalog}
}

// Limits returns the limits that apply to a subscription.
func (g *CapabilityGate) Limits(sub types.Subscription) types.PlanLimits {
	return g.catalog.GetLimits(sub.EffectivePlan())
}

// Authorize runs every check in a fixed order and returns the first failure:
//
//  1. API callers need api_access (NotEntitled).
//  2. The capability's entitlement flag must be set (NotEntitled).
//  3. ContentLength must not exceed the plan's maximum (InvalidInput).
//  4. Content generation must be under the monthly quota (CapacityExceeded).
//
// A nil return means the capability may run.
func (g *CapabilityGate) Authorize(req AuthorizationRequest) error {
	if !req.Capability.Valid() {
		return types.NewAppError(
			types.ErrCodeValidationInvalidParameter,
			fmt.Sprintf("unknown capability %q", string(req.Capability)),
			nil,
		)
	}

	plan := req.Subscription.EffectivePlan()
	limits := g.catalog.GetLimits(plan)

	if req.ViaAPI && !limits.AllowAPIAccess {
		return g.notEntitled(types.ErrCodeEntitlementAPIAccess, "API access", types.EntitlementAPIAccess, plan, req.Capability)
	}

	if ent := req.Capability.RequiredEntitlement(); !limits.Grants(ent) {
		return g.notEntitled(types.ErrCodeEntitlementCapability, humanName(req.Capability), ent, plan, req.Capability)
	}

	if req.ContentLength > limits.MaxContentLength {
		return types.NewAppErrorWithDetails(
			types.ErrCodeValidationContentTooLong,
			fmt.Sprintf("content length %d exceeds the %d character limit of the %s plan",
				req.ContentLength, limits.MaxContentLength, plan),
			nil,
			map[string]any{
				"content_length": req.ContentLength,
				"max_length":     limits.MaxContentLength,
				"plan":           string(plan),
			},
		)
	}

	if req.Capability == types.CapabilityContentGeneration && !limits.Unlimited() {
		used := req.Usage.ContentGenerated
		if used >= int64(limits.MonthlyContentLimit) {
			return types.NewAppErrorWithDetails(
				types.ErrCodeLimitMonthlyContent,
				fmt.Sprintf("monthly content limit of %d reached for the %s plan", limits.MonthlyContentLimit, plan),
				nil,
				map[string]any{
					"current": used,
					"limit":   limits.MonthlyContentLimit,
					"plan":    string(plan),
					"period":  string(req.Usage.PeriodKey),
				},
			)
		}
	}

	return nil
}

func (g *CapabilityGate) notEntitled(
	code types.ErrorCode,
	feature string,
	ent types.Entitlement,
	plan types.PlanType,
	capability types.Capability,
) error {
	details := map[string]any{
		"capability":   string(capability),
		"current_plan": string(plan),
	}
	msg := fmt.Sprintf("%s is not available on the %s plan", feature, plan)
	if required, ok := g.catalog.MinimumPlanFor(ent); ok {
		details["required_plan"] = string(required)
		msg = fmt.Sprintf("%s requires the %s plan or higher", feature, required)
	}
	return types.NewAppErrorWithDetails(code, msg, nil, details)
}

func humanName(c types.Capability) string {
	switch c {
	case types.CapabilityKeywordExtraction:
		return "Keyword extraction"
	case types.CapabilitySentimentAnalysis:
		return "Sentiment analysis"
	case types.CapabilitySummarization:
		return "Text summarization"
	case types.CapabilityContentGeneration:
		return "Content generation"
	default:
		return string(c)
	}
}
