// Package billing provides plan limits, capability gating and usage reporting.
package billing

import "wordsmith/internal/types"

// PlanCatalog defines the authoritative limits for each tier.
// This is the single source of truth for what each plan allows.
type PlanCatalog interface {
	// GetLimits returns the limits for the given plan. Unknown plans resolve
	// to the free tier; this is a documented default, not an error.
	GetLimits(plan types.PlanType) types.PlanLimits

	// MinimumPlanFor returns the cheapest tier that grants the entitlement.
	// ok is false when no tier grants it.
	MinimumPlanFor(e types.Entitlement) (plan types.PlanType, ok bool)
}

// staticPlanCatalog is the in-memory catalog used in production.
type staticPlanCatalog struct {
	limits map[types.PlanType]types.PlanLimits
}

// planDefaults holds the canonical tier table:
//
//	| Plan         | Content/month | Max length | Sentiment | Keywords | Summary | API |
//	|--------------|---------------|------------|-----------|----------|---------|-----|
//	| free         | 5             | 1,000      | no        | no       | no      | no  |
//	| basic        | 20            | 3,000      | yes       | yes      | no      | no  |
//	| professional | 100           | 10,000     | yes       | yes      | yes     | yes |
//	| enterprise   | unlimited     | 50,000     | yes       | yes      | yes     | yes |
var planDefaults = map[types.PlanType]types.PlanLimits{
	types.PlanFree: {
		MonthlyContentLimit: 5,
		MaxContentLength:    1000,
	},
	types.PlanBasic: {
		MonthlyContentLimit: 20,
		MaxContentLength:    3000,
		AllowSentiment:      true,
		AllowKeywords:       true,
	},
	types.PlanProfessional: {
		MonthlyContentLimit: 100,
		MaxContentLength:    10000,
		AllowSentiment:      true,
		AllowKeywords:       true,
		AllowSummarization:  true,
		AllowAPIAccess:      true,
	},
	types.PlanEnterprise: {
		MonthlyContentLimit: types.UnlimitedContent,
		MaxContentLength:    50000,
		AllowSentiment:      true,
		AllowKeywords:       true,
		AllowSummarization:  true,
		AllowAPIAccess:      true,
	},
}

// freeLimits is cached to avoid map lookups on the fallback path.
var freeLimits = planDefaults[types.PlanFree]

// NewStaticPlanCatalog returns a PlanCatalog backed by the canonical tier
// table. No database or external service is required.
func NewStaticPlanCatalog() PlanCatalog {
	// Copy so callers cannot mutate the package-level table.
	m := make(map[types.PlanType]types.PlanLimits, len(planDefaults))
	for k, v := range planDefaults {
		m[k] = v
	}
	return &staticPlanCatalog{limits: m}
}

func (c *staticPlanCatalog) GetLimits(plan types.PlanType) types.PlanLimits {
	if limits, ok := c.limits[plan]; ok {
		return limits
	}
	return freeLimits
}

func (c *staticPlanCatalog) MinimumPlanFor(e types.Entitlement) (types.PlanType, bool) {
	for _, plan := range types.PlanOrder {
		if c.GetLimits(plan).Grants(e) {
			return plan, true
		}
	}
	return "", false
}
