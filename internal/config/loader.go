package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"wordsmith/internal/types"
)

// ConfigError is returned by LoadConfig to aid debugging.
type ConfigError struct {
	Type    ConfigErrorType
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// LoadConfig loads and validates the configuration:
//  1. Sets the process timezone to UTC.
//  2. Loads a .env file if present (non-fatal if missing).
//  3. Processes envconfig tags.
//  4. Populates Build from linker-injected variables.
//  5. Validates struct tags, then cross-field rules.
func LoadConfig() (*Config, error) {
	time.Local = time.UTC

	// godotenv never overrides variables already set in the environment.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, &ConfigError{
			Type:    ErrParsing,
			Message: "failed to process environment configuration",
			Err:     err,
		}
	}

	cfg.Build = NewBuildInfo()

	if err := validator.New().Struct(cfg); err != nil {
		return nil, &ConfigError{
			Type:    ErrValidation,
			Message: "configuration validation failed",
			Err:     err,
		}
	}
	if err := cfg.validateDependencies(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// validateDependencies enforces rules that span sections.
func (c *Config) validateDependencies() error {
	var missing []string

	needsDB := c.Ledger.Backend == LedgerPostgres || c.Billing.SubscriptionSource == SubscriptionsDatabase
	if needsDB && !c.Database.URL.IsSet() {
		missing = append(missing, "DATABASE_URL")
	}
	if c.Billing.SubscriptionSource == SubscriptionsStripe {
		if !c.Billing.StripeSecretKey.IsSet() {
			missing = append(missing, "STRIPE_SECRET_KEY")
		}
		if len(c.Billing.StripePricePlans) == 0 {
			missing = append(missing, "STRIPE_PRICE_PLANS")
		}
	}
	if len(missing) > 0 {
		return &ConfigError{
			Type:    ErrMissingEnv,
			Message: "required for the selected backends: " + strings.Join(missing, ", "),
		}
	}

	for price, plan := range c.Billing.StripePricePlans {
		if !knownPlan(types.PlanType(plan)) {
			return &ConfigError{
				Type:    ErrValidation,
				Message: fmt.Sprintf("STRIPE_PRICE_PLANS maps %s to unknown plan %q", price, plan),
			}
		}
	}

	if c.Database.MinConns > c.Database.MaxConns {
		return &ConfigError{
			Type:    ErrValidation,
			Message: fmt.Sprintf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.Database.MinConns, c.Database.MaxConns),
		}
	}
	return nil
}

// PricePlans converts StripePricePlans into typed plans.
func (b BillingConfig) PricePlans() map[string]types.PlanType {
	out := make(map[string]types.PlanType, len(b.StripePricePlans))
	for price, plan := range b.StripePricePlans {
		out[price] = types.PlanType(plan)
	}
	return out
}

func knownPlan(p types.PlanType) bool {
	for _, known := range types.PlanOrder {
		if p == known {
			return true
		}
	}
	return false
}
