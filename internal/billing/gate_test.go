package billing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wordsmith/internal/types"
)

func sub(plan types.PlanType) types.Subscription {
	return types.Subscription{UserID: "user-1", PlanType: plan, Status: types.SubStatusActive}
}

func usage(content int64) types.UsageRecord {
	return types.UsageRecord{UserID: "user-1", PeriodKey: "2025-06", ContentGenerated: content}
}

func requireAppError(t *testing.T, err error, code types.ErrorCode) *types.AppError {
	t.Helper()
	require.Error(t, err)
	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr), "expected *types.AppError, got %T", err)
	assert.Equal(t, code, appErr.Code)
	return appErr
}

func TestAuthorize_EntitlementMatrix(t *testing.T) {
	gate := NewCapabilityGate(NewStaticPlanCatalog())

	tests := []struct {
		plan    types.PlanType
		cap     types.Capability
		allowed bool
	}{
		{types.PlanFree, types.CapabilitySentimentAnalysis, false},
		{types.PlanFree, types.CapabilityKeywordExtraction, false},
		{types.PlanFree, types.CapabilitySummarization, false},
		{types.PlanFree, types.CapabilityContentGeneration, true},
		{types.PlanBasic, types.CapabilitySentimentAnalysis, true},
		{types.PlanBasic, types.CapabilityKeywordExtraction, true},
		{types.PlanBasic, types.CapabilitySummarization, false},
		{types.PlanProfessional, types.CapabilitySummarization, true},
		{types.PlanEnterprise, types.CapabilitySummarization, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.plan)+"/"+string(tt.cap), func(t *testing.T) {
			err := gate.Authorize(AuthorizationRequest{
				Capability:   tt.cap,
				Subscription: sub(tt.plan),
				Usage:        usage(0),
			})
			if tt.allowed {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, types.KindNotEntitled, types.KindOf(err))
		})
	}
}

func TestAuthorize_NotEntitledNamesRequiredPlan(t *testing.T) {
	gate := NewCapabilityGate(NewStaticPlanCatalog())

	err := gate.Authorize(AuthorizationRequest{
		Capability:   types.CapabilitySummarization,
		Subscription: sub(types.PlanBasic),
	})

	appErr := requireAppError(t, err, types.ErrCodeEntitlementCapability)
	assert.Contains(t, appErr.Message, "professional")
	assert.Equal(t, "professional", appErr.Details["required_plan"])
	assert.Equal(t, "basic", appErr.Details["current_plan"])
}

func TestAuthorize_APIAccess(t *testing.T) {
	gate := NewCapabilityGate(NewStaticPlanCatalog())

	err := gate.Authorize(AuthorizationRequest{
		Capability:   types.CapabilityKeywordExtraction,
		Subscription: sub(types.PlanBasic),
		ViaAPI:       true,
	})
	appErr := requireAppError(t, err, types.ErrCodeEntitlementAPIAccess)
	assert.Equal(t, "professional", appErr.Details["required_plan"])

	err = gate.Authorize(AuthorizationRequest{
		Capability:   types.CapabilityKeywordExtraction,
		Subscription: sub(types.PlanProfessional),
		ViaAPI:       true,
	})
	assert.NoError(t, err)
}

func TestAuthorize_ContentLength(t *testing.T) {
	gate := NewCapabilityGate(NewStaticPlanCatalog())

	err := gate.Authorize(AuthorizationRequest{
		Capability:    types.CapabilityContentGeneration,
		Subscription:  sub(types.PlanFree),
		ContentLength: 1000,
	})
	assert.NoError(t, err, "length equal to the maximum is allowed")

	err = gate.Authorize(AuthorizationRequest{
		Capability:    types.CapabilityContentGeneration,
		Subscription:  sub(types.PlanFree),
		ContentLength: 1001,
	})
	requireAppError(t, err, types.ErrCodeValidationContentTooLong)
}

func TestAuthorize_MonthlyQuota(t *testing.T) {
	gate := NewCapabilityGate(NewStaticPlanCatalog())

	err := gate.Authorize(AuthorizationRequest{
		Capability:   types.CapabilityContentGeneration,
		Subscription: sub(types.PlanFree),
		Usage:        usage(4),
	})
	assert.NoError(t, err)

	err = gate.Authorize(AuthorizationRequest{
		Capability:   types.CapabilityContentGeneration,
		Subscription: sub(types.PlanFree),
		Usage:        usage(5),
	})
	appErr := requireAppError(t, err, types.ErrCodeLimitMonthlyContent)
	assert.Equal(t, int64(5), appErr.Details["current"])
	assert.Equal(t, 5, appErr.Details["limit"])
}

func TestAuthorize_QuotaOnlyAppliesToContentGeneration(t *testing.T) {
	gate := NewCapabilityGate(NewStaticPlanCatalog())

	err := gate.Authorize(AuthorizationRequest{
		Capability:   types.CapabilitySentimentAnalysis,
		Subscription: sub(types.PlanBasic),
		Usage:        usage(500),
	})
	assert.NoError(t, err)
}

func TestAuthorize_EnterpriseUnlimited(t *testing.T) {
	gate := NewCapabilityGate(NewStaticPlanCatalog())

	err := gate.Authorize(AuthorizationRequest{
		Capability:   types.CapabilityContentGeneration,
		Subscription: sub(types.PlanEnterprise),
		Usage:        usage(1_000_000),
	})
	assert.NoError(t, err)
}

func TestAuthorize_InactiveSubscriptionUsesFree(t *testing.T) {
	gate := NewCapabilityGate(NewStaticPlanCatalog())
	canceled := types.Subscription{UserID: "user-1", PlanType: types.PlanProfessional, Status: types.SubStatusCanceled}

	err := gate.Authorize(AuthorizationRequest{
		Capability:   types.CapabilitySummarization,
		Subscription: canceled,
	})
	assert.Equal(t, types.KindNotEntitled, types.KindOf(err))

	err = gate.Authorize(AuthorizationRequest{
		Capability:   types.CapabilityContentGeneration,
		Subscription: canceled,
		Usage:        usage(5),
	})
	assert.Equal(t, types.KindCapacityExceeded, types.KindOf(err))
}

func TestAuthorize_UnknownPlanTreatedAsFree(t *testing.T) {
	gate := NewCapabilityGate(NewStaticPlanCatalog())

	err := gate.Authorize(AuthorizationRequest{
		Capability:   types.CapabilitySentimentAnalysis,
		Subscription: sub("platinum"),
	})
	assert.Equal(t, types.KindNotEntitled, types.KindOf(err))
}

func TestAuthorize_APICheckPrecedesEntitlement(t *testing.T) {
	gate := NewCapabilityGate(NewStaticPlanCatalog())

	err := gate.Authorize(AuthorizationRequest{
		Capability:   types.CapabilitySummarization,
		Subscription: sub(types.PlanFree),
		ViaAPI:       true,
	})
	requireAppError(t, err, types.ErrCodeEntitlementAPIAccess)
}

func TestAuthorize_UnknownCapability(t *testing.T) {
	gate := NewCapabilityGate(NewStaticPlanCatalog())

	err := gate.Authorize(AuthorizationRequest{
		Capability:   "image_generation",
		Subscription: sub(types.PlanEnterprise),
	})
	requireAppError(t, err, types.ErrCodeValidationInvalidParameter)
}
