package external

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	stripe "github.com/stripe/stripe-go/v82"

	"wordsmith/internal/types"
)

func newTestStripe(t *testing.T, handler http.HandlerFunc) *StripeSubscriptionReader {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	reader, err := NewStripeSubscriptionReader(newTestClient(t, fastPolicy(1)), StripeConfig{
		SecretKey:  "sk_test_123",
		BaseURL:    server.URL,
		PricePlans: map[string]string{"price_basic": "basic", "price_pro": "Professional"},
	})
	if err != nil {
		t.Fatalf("NewStripeSubscriptionReader: %v", err)
	}
	return reader
}

func TestStripeGetSubscription_MapsPriceAndStatus(t *testing.T) {
	reader := newTestStripe(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/subscriptions/search" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("query"); got != "metadata['user_id']:'user-42'" {
			t.Errorf("unexpected query %q", got)
		}
		if r.Header.Get("Authorization") != "Bearer sk_test_123" {
			t.Error("missing secret key")
		}
		if r.Header.Get("Stripe-Version") != stripe.APIVersion {
			t.Errorf("unexpected Stripe-Version %q", r.Header.Get("Stripe-Version"))
		}
		fmt.Fprint(w, `{"data":[
			{"id":"sub_old","status":"canceled","created":100,"items":{"data":[{"price":{"id":"price_basic"}}]}},
			{"id":"sub_new","status":"past_due","created":200,"items":{"data":[{"price":{"id":"price_pro"}}]}}
		],"has_more":false}`)
	})

	sub, err := reader.GetSubscription(context.Background(), "user-42")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sub.PlanType != types.PlanProfessional || sub.Status != types.SubStatusPastDue {
		t.Errorf("unexpected subscription %+v", sub)
	}
	if sub.EffectivePlan() != types.PlanProfessional {
		t.Error("past_due should keep the paid plan")
	}
}

func TestStripeGetSubscription_PriceMetadataFallback(t *testing.T) {
	reader := newTestStripe(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[{"id":"sub_1","status":"active","created":1,
			"items":{"data":[{"price":{"id":"price_unknown","metadata":{"plan_type":"enterprise"}}}]}}]}`)
	})

	sub, err := reader.GetSubscription(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sub.PlanType != types.PlanEnterprise {
		t.Errorf("expected enterprise, got %s", sub.PlanType)
	}
}

func TestStripeGetSubscription_NoneIsFree(t *testing.T) {
	reader := newTestStripe(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[],"has_more":false}`)
	})

	sub, err := reader.GetSubscription(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sub != types.DefaultSubscription("u1") {
		t.Errorf("expected default subscription, got %+v", sub)
	}
}

func TestStripeGetSubscription_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   types.ErrorCode
	}{
		{"invalid request", http.StatusBadRequest, `{"error":{"type":"invalid_request_error","message":"bad query"}}`, types.ErrCodeUpstreamStripe},
		{"non-json error", http.StatusUnauthorized, `nope`, types.ErrCodeUpstreamStripe},
		{"server error", http.StatusInternalServerError, `{}`, types.ErrCodeUpstreamUnavailable},
		{"malformed success", http.StatusOK, `{"data":`, types.ErrCodeUpstreamStripe},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := newTestStripe(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			})

			_, err := reader.GetSubscription(context.Background(), "u1")
			if code := appErrorCode(t, err); code != tt.want {
				t.Errorf("code = %q, want %q", code, tt.want)
			}
			if types.KindOf(err) != types.KindUpstream {
				t.Errorf("expected upstream kind, got %s", types.KindOf(err))
			}
		})
	}
}

func TestNewStripeSubscriptionReader_Validation(t *testing.T) {
	if _, err := NewStripeSubscriptionReader(nil, StripeConfig{}); err == nil {
		t.Error("expected error without secret key")
	}
	if _, err := NewStripeSubscriptionReader(nil, StripeConfig{SecretKey: "sk", PricePlans: map[string]string{"p": "gold"}}); err == nil {
		t.Error("expected error for unknown plan in price map")
	}
}

func TestStaticSubscriptionReader(t *testing.T) {
	sub, _ := NewStaticSubscriptionReader("Basic").GetSubscription(context.Background(), "u1")
	if sub.PlanType != types.PlanBasic || sub.Status != types.SubStatusActive {
		t.Errorf("unexpected subscription %+v", sub)
	}
	if NewStaticSubscriptionReader("platinum").Plan != types.PlanFree {
		t.Error("unknown plan should select free")
	}
}
