package external

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	stripe "github.com/stripe/stripe-go/v82"

	"wordsmith/internal/types"
)

// stripeAPIBase is the production Stripe API host.
const stripeAPIBase = "https://api.stripe.com"

// userIDMetadataKey is the subscription metadata key holding our user ID.
const userIDMetadataKey = "user_id"

// StripeConfig configures a StripeSubscriptionReader.
type StripeConfig struct {
	SecretKey string
	BaseURL   string
	// PricePlans maps Stripe price IDs to plan types. Prices that are not
	// listed fall back to the price's "plan_type" metadata.
	PricePlans map[string]string
	Logger     *slog.Logger
}

// StripeSubscriptionReader implements types.SubscriptionReader against the
// Stripe REST API. The most recent subscription tagged with the user's ID is
// authoritative; a user without one is on the free plan.
type StripeSubscriptionReader struct {
	base       *BaseClient
	secretKey  string
	baseURL    string
	pricePlans map[string]types.PlanType
	logger     *slog.Logger
}

// NewStripeSubscriptionReader creates a reader. A nil base selects a client
// with a 10 second timeout and the default retry policy.
func NewStripeSubscriptionReader(base *BaseClient, cfg StripeConfig) (*StripeSubscriptionReader, error) {
	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("stripe secret key is required")
	}
	if base == nil {
		base = NewBaseClient(&http.Client{Timeout: 10 * time.Second}, "stripe", DefaultRetryPolicy(), "Wordsmith/1.0")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = stripeAPIBase
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	plans := make(map[string]types.PlanType, len(cfg.PricePlans))
	for price, plan := range cfg.PricePlans {
		p, err := parsePlan(plan)
		if err != nil {
			return nil, fmt.Errorf("price %s: %w", price, err)
		}
		plans[price] = p
	}

	return &StripeSubscriptionReader{
		base:       base,
		secretKey:  cfg.SecretKey,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		pricePlans: plans,
		logger:     logger,
	}, nil
}

// GetSubscription implements types.SubscriptionReader.
func (s *StripeSubscriptionReader) GetSubscription(ctx context.Context, userID string) (types.Subscription, error) {
	params := url.Values{}
	params.Set("query", fmt.Sprintf("metadata['%s']:'%s'", userIDMetadataKey, escapeSearchValue(userID)))
	params.Set("limit", "10")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/v1/subscriptions/search?"+params.Encode(), nil)
	if err != nil {
		return types.Subscription{}, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to build Stripe request", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.secretKey)
	req.Header.Set("Stripe-Version", stripe.APIVersion)

	resp, err := s.base.Do(req)
	if err != nil {
		return types.Subscription{}, wrapStripeError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return types.Subscription{}, handleErrorResponse(resp)
	}

	var list stripeSubscriptionList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return types.Subscription{}, types.NewAppError(types.ErrCodeUpstreamStripe, "failed to decode Stripe subscriptions", err)
	}
	if len(list.Data) == 0 {
		return types.DefaultSubscription(userID), nil
	}

	latest := list.Data[0]
	for _, sub := range list.Data[1:] {
		if sub.Created > latest.Created {
			latest = sub
		}
	}
	return s.mapSubscription(userID, latest), nil
}

func (s *StripeSubscriptionReader) mapSubscription(userID string, sub stripeSubscription) types.Subscription {
	plan := types.PlanFree
	for _, item := range sub.Items.Data {
		if p, ok := s.pricePlans[item.Price.ID]; ok {
			plan = p
			break
		}
		if p, err := parsePlan(item.Price.Metadata["plan_type"]); err == nil {
			plan = p
			break
		}
	}
	if plan == types.PlanFree && len(sub.Items.Data) > 0 {
		s.logger.Warn("stripe subscription has no known price",
			"user_id", userID,
			"subscription_id", sub.ID,
			"price_id", sub.Items.Data[0].Price.ID,
		)
	}
	return types.Subscription{
		UserID:   userID,
		PlanType: plan,
		Status:   types.SubscriptionStatus(sub.Status),
	}
}

func parsePlan(s string) (types.PlanType, error) {
	p := types.PlanType(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range types.PlanOrder {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown plan %q", s)
}

// escapeSearchValue escapes quotes for the Stripe search query language.
func escapeSearchValue(v string) string {
	return strings.ReplaceAll(v, "'", `\'`)
}

// --- Error handling ---

type stripeErrorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// handleErrorResponse maps a non-200 Stripe response. 429 and 5xx never
// reach here because BaseClient retries them.
func handleErrorResponse(resp *http.Response) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return types.NewAppError(
			types.ErrCodeUpstreamStripe,
			fmt.Sprintf("Stripe returned status %d with an unreadable body", resp.StatusCode),
			err,
		)
	}

	var se stripeErrorResponse
	if err := json.Unmarshal(body, &se); err != nil {
		return types.NewAppError(
			types.ErrCodeUpstreamStripe,
			fmt.Sprintf("Stripe returned status %d with a non-JSON body", resp.StatusCode),
			err,
		)
	}
	return types.NewAppErrorWithDetails(
		types.ErrCodeUpstreamStripe,
		fmt.Sprintf("Stripe error (%d): %s", resp.StatusCode, se.Error.Message),
		nil,
		map[string]any{"stripe_type": se.Error.Type, "stripe_code": se.Error.Code},
	)
}

func wrapStripeError(err error) error {
	if _, ok := err.(*types.AppError); ok {
		return err
	}
	return types.NewAppError(types.ErrCodeUpstreamStripe, "Stripe request failed", err)
}

// --- Response types ---

type stripeSubscriptionList struct {
	Data    []stripeSubscription `json:"data"`
	HasMore bool                 `json:"has_more"`
}

type stripeSubscription struct {
	ID       string                  `json:"id"`
	Status   string                  `json:"status"`
	Created  int64                   `json:"created"`
	Items    stripeSubscriptionItems `json:"items"`
	Metadata map[string]string       `json:"metadata"`
}

type stripeSubscriptionItems struct {
	Data []stripeSubscriptionItem `json:"data"`
}

type stripeSubscriptionItem struct {
	Price stripePrice `json:"price"`
}

type stripePrice struct {
	ID       string            `json:"id"`
	Metadata map[string]string `json:"metadata"`
}

var _ types.SubscriptionReader = (*StripeSubscriptionReader)(nil)
