// Package config defines the configuration of the Wordsmith services.
// Configuration is loaded once at process start and is immutable thereafter.
//
// Values are resolved with the priority:
//
//	OS Environment (Highest) -> Dotenv File (Lowest)
//
// Any missing required value or invalid format fails startup.
package config

import (
	"time"

	"wordsmith/internal/types"
)

// SecretString is an alias for types.SecretString.
type SecretString = types.SecretString

// Ledger storage backends.
const (
	LedgerPostgres = "postgres"
	LedgerSQLite   = "sqlite"
	LedgerMemory   = "memory"
)

// Subscription sources.
const (
	SubscriptionsDatabase = "database"
	SubscriptionsStripe   = "stripe"
	SubscriptionsStatic   = "static"
)

// Config is the top-level configuration struct. Components receive only the
// section they need.
type Config struct {
	Environment string `envconfig:"APP_ENV" default:"local" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"wordsmith-api"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	Server    ServerConfig
	Database  DatabaseConfig
	Ledger    LedgerConfig
	Billing   BillingConfig
	AWS       AWSConfig
	Auth      AuthConfig
	Analytics AnalyticsConfig

	// Injected via ldflags, not env.
	Build BuildInfo
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string        `envconfig:"PORT" default:"8080"`
	RequestTimeout     time.Duration `envconfig:"REQUEST_TIMEOUT" default:"15s" validate:"gt=0"`
	ShutdownTimeout    time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
	CorsAllowedOrigins []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

// DatabaseConfig holds Postgres connection and pool tuning parameters.
type DatabaseConfig struct {
	URL SecretString `envconfig:"DATABASE_URL"`

	MaxConns          int           `envconfig:"DB_MAX_CONNS" default:"10" validate:"gte=1"`
	MinConns          int           `envconfig:"DB_MIN_CONNS" default:"2" validate:"gte=0"`
	MaxConnLifetime   time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
	AcquireTimeout    time.Duration `envconfig:"DB_ACQUIRE_TIMEOUT" default:"2s"`
	HealthCheckPeriod time.Duration `envconfig:"DB_HEALTH_CHECK_PERIOD" default:"1m"`
}

// LedgerConfig selects and tunes the usage ledger store.
type LedgerConfig struct {
	Backend         string        `envconfig:"LEDGER_BACKEND" default:"postgres" validate:"oneof=postgres sqlite memory"`
	SQLitePath      string        `envconfig:"LEDGER_SQLITE_PATH" default:"wordsmith.db"`
	BreakerFailures uint32        `envconfig:"LEDGER_BREAKER_FAILURES" default:"5" validate:"gte=1"`
	BreakerTimeout  time.Duration `envconfig:"LEDGER_BREAKER_TIMEOUT" default:"30s"`
}

// BillingConfig selects where subscriptions are read from.
type BillingConfig struct {
	SubscriptionSource string       `envconfig:"SUBSCRIPTION_SOURCE" default:"database" validate:"oneof=database stripe static"`
	StaticPlan         string       `envconfig:"STATIC_PLAN" default:"free" validate:"oneof=free basic professional enterprise"`
	StripeSecretKey    SecretString `envconfig:"STRIPE_SECRET_KEY"`
	StripeBaseURL      string       `envconfig:"STRIPE_BASE_URL" default:"https://api.stripe.com" validate:"url"`
	// StripePricePlans maps Stripe price IDs to plan types, e.g.
	// "price_123:basic,price_456:professional".
	StripePricePlans map[string]string `envconfig:"STRIPE_PRICE_PLANS"`
}

// AWSConfig holds AWS resource identifiers.
type AWSConfig struct {
	Region          string `envconfig:"AWS_REGION" default:"us-east-1"`
	UsageRetryQueue string `envconfig:"SQS_USAGE_RETRY" validate:"omitempty,url"`
	MetricsEnabled  bool   `envconfig:"METRICS_ENABLED" default:"false"`
	MetricNamespace string `envconfig:"METRIC_NAMESPACE" default:"Wordsmith"`

	// LocalStack support; empty in prod.
	EndpointURL string `envconfig:"AWS_ENDPOINT_URL" validate:"omitempty,url"`
}

// AuthConfig holds credentials for resolving callers.
type AuthConfig struct {
	// InternalServiceKey authenticates the web application, which names the
	// end user in the X-User-ID header.
	InternalServiceKey SecretString `envconfig:"INTERNAL_SERVICE_KEY" validate:"required,min=32"`

	// APIKeyCacheTTL bounds how long a verified API key skips the database.
	APIKeyCacheTTL time.Duration `envconfig:"API_KEY_CACHE_TTL" default:"5m"`
}

// AnalyticsConfig tunes the text algorithms.
type AnalyticsConfig struct {
	// LexiconFile optionally replaces the built-in word lists (.yaml or .toml).
	LexiconFile string `envconfig:"LEXICON_FILE"`
}

// BuildInfo holds build-time metadata injected via ldflags.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// ConfigErrorType categorizes configuration loading failures.
type ConfigErrorType string

const (
	// ErrMissingEnv indicates a required environment variable was not found.
	ErrMissingEnv ConfigErrorType = "MISSING_ENV"
	// ErrValidation indicates the configuration failed validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrParsing indicates an environment value could not be parsed.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
)
