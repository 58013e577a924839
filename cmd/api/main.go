// Package main is the entry point for the Wordsmith API server.
//
// It loads the configuration, connects the usage ledger and subscription
// source selected by it, builds the HTTP server with the core chassis
// (middleware, routing, health checks) and serves until SIGINT or SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"

	"wordsmith/internal/analytics"
	"wordsmith/internal/api/handlers"
	"wordsmith/internal/auth"
	"wordsmith/internal/config"
	"wordsmith/internal/core"
	"wordsmith/internal/db"
	"wordsmith/internal/external"
	"wordsmith/internal/ledger"
	"wordsmith/internal/queue"
	"wordsmith/internal/telemetry"
	"wordsmith/internal/textproc"
	"wordsmith/internal/types"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so that main() can cleanly exit on error.
func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("wordsmith API starting",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"commit", cfg.Build.Commit,
		"port", cfg.Server.Port,
		"ledger_backend", cfg.Ledger.Backend,
		"subscription_source", cfg.Billing.SubscriptionSource,
	)

	srv, err := buildServer(context.Background(), cfg, logger)
	if err != nil {
		return err
	}
	return runHTTPServer(srv, cfg, logger)
}

// buildServer wires every dependency named by cfg into a server with its
// routes mounted. Resources opened along the way are registered as Closers;
// on error the ones already opened are closed before returning.
func buildServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (srv *core.Server, err error) {
	srv, err = core.NewServer(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("creating server: %w", err)
	}
	defer func() {
		if err != nil {
			_ = srv.Shutdown(ctx)
		}
	}()

	var pool *pgxpool.Pool
	if cfg.Database.URL.IsSet() {
		pool, err = db.NewPool(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("connecting to database: %w", err)
		}
		srv.Closers = append(srv.Closers, poolCloser{pool})
		srv.HealthProbes = append(srv.HealthProbes, db.NewPingProbe("postgres", pool))
	}

	store, err := openLedgerStore(cfg.Ledger, pool, logger, srv)
	if err != nil {
		return nil, err
	}

	subs, err := newSubscriptionReader(cfg.Billing, pool, logger)
	if err != nil {
		return nil, err
	}

	metrics, publisher, err := newAWSClients(ctx, cfg.AWS, logger)
	if err != nil {
		return nil, err
	}

	lexicon := textproc.DefaultLexicon()
	if cfg.Analytics.LexiconFile != "" {
		lexicon, err = textproc.LoadLexiconFile(cfg.Analytics.LexiconFile)
		if err != nil {
			return nil, fmt.Errorf("loading lexicon: %w", err)
		}
		if overlap := lexicon.Overlap(); len(overlap) > 0 {
			logger.Warn("lexicon words are both positive and negative", "words", overlap)
		}
	}

	ledgerOpts := []ledger.Option{ledger.WithMetrics(metrics), ledger.WithLogger(logger)}
	if publisher != nil {
		ledgerOpts = append(ledgerOpts, ledger.WithRetryPublisher(publisher))
	}
	usage := ledger.New(ledger.NewBreakerStore(store, ledger.BreakerSettings{
		Name:                "usage-ledger",
		ConsecutiveFailures: cfg.Ledger.BreakerFailures,
		OpenTimeout:         cfg.Ledger.BreakerTimeout,
	}), ledgerOpts...)

	svc := analytics.NewService(analytics.Config{
		Subscriptions: subs,
		Ledger:        usage,
		Lexicon:       lexicon,
		Metrics:       metrics,
		Logger:        logger,
	})

	authCfg := auth.AuthenticatorConfig{
		ServiceKey: cfg.Auth.InternalServiceKey,
		CacheTTL:   cfg.Auth.APIKeyCacheTTL,
		Logger:     logger,
	}
	if pool != nil {
		authCfg.Keys = db.NewAPIKeyRepo(pool)
	}

	srv.Metrics = metrics
	srv.Authenticator = auth.NewAuthenticator(authCfg)

	analyticsHandler := handlers.NewAnalyticsHandler(svc, srv.Validator, logger)
	usageHandler := handlers.NewUsageHandler(svc, logger)
	srv.V1RouteRegistrars = append(srv.V1RouteRegistrars,
		analyticsHandler.RegisterRoutes,
		usageHandler.RegisterRoutes,
	)

	srv.MountRoutes()
	return srv, nil
}

// openLedgerStore returns the store for the configured backend. SQLite
// stores are registered with srv for health checks and shutdown.
func openLedgerStore(cfg config.LedgerConfig, pool *pgxpool.Pool, logger *slog.Logger, srv *core.Server) (ledger.Store, error) {
	switch cfg.Backend {
	case config.LedgerPostgres:
		if pool == nil {
			return nil, fmt.Errorf("ledger backend %q requires DATABASE_URL", cfg.Backend)
		}
		return db.NewUsageRepo(pool), nil
	case config.LedgerSQLite:
		store, err := db.OpenSQLiteUsageStore(cfg.SQLitePath, logger)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite ledger: %w", err)
		}
		srv.Closers = append(srv.Closers, store)
		srv.HealthProbes = append(srv.HealthProbes, db.NewPingProbe("sqlite", store))
		return store, nil
	case config.LedgerMemory:
		logger.Warn("usage ledger is in memory; counters are lost on restart")
		return ledger.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown ledger backend %q", cfg.Backend)
	}
}

// newSubscriptionReader returns the configured source of subscriptions.
func newSubscriptionReader(cfg config.BillingConfig, pool *pgxpool.Pool, logger *slog.Logger) (types.SubscriptionReader, error) {
	switch cfg.SubscriptionSource {
	case config.SubscriptionsDatabase:
		if pool == nil {
			return nil, fmt.Errorf("subscription source %q requires DATABASE_URL", cfg.SubscriptionSource)
		}
		return db.NewSubscriptionRepo(pool), nil
	case config.SubscriptionsStripe:
		reader, err := external.NewStripeSubscriptionReader(nil, external.StripeConfig{
			SecretKey:  cfg.StripeSecretKey.Unmask(),
			BaseURL:    cfg.StripeBaseURL,
			PricePlans: cfg.StripePricePlans,
			Logger:     logger,
		})
		if err != nil {
			return nil, fmt.Errorf("creating stripe reader: %w", err)
		}
		return reader, nil
	case config.SubscriptionsStatic:
		logger.Warn("every user is on a static plan", "plan", cfg.StaticPlan)
		return external.NewStaticSubscriptionReader(cfg.StaticPlan), nil
	default:
		return nil, fmt.Errorf("unknown subscription source %q", cfg.SubscriptionSource)
	}
}

// apiMetrics is what both the engine and the HTTP chassis record into.
type apiMetrics interface {
	types.CapabilityMetrics
	core.MetricsCollector
}

// newAWSClients builds the CloudWatch metrics publisher and the usage retry
// publisher. The AWS SDK config is only loaded when one of them is enabled.
func newAWSClients(ctx context.Context, cfg config.AWSConfig, logger *slog.Logger) (apiMetrics, types.UsageEventPublisher, error) {
	if !cfg.MetricsEnabled && cfg.UsageRetryQueue == "" {
		logger.Warn("usage retry queue is not configured; failed ledger writes are only logged")
		return telemetry.NopMetrics{}, nil, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, nil, fmt.Errorf("loading AWS SDK config: %w", err)
	}

	var metrics apiMetrics = telemetry.NopMetrics{}
	if cfg.MetricsEnabled {
		client := cloudwatch.NewFromConfig(awsCfg, func(o *cloudwatch.Options) {
			if cfg.EndpointURL != "" {
				o.BaseEndpoint = aws.String(cfg.EndpointURL)
			}
		})
		metrics = telemetry.NewCloudWatchMetrics(client, cfg.MetricNamespace, core.NewLoggerAdapter(logger))
	}

	var publisher types.UsageEventPublisher
	if cfg.UsageRetryQueue != "" {
		client := sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
			if cfg.EndpointURL != "" {
				o.BaseEndpoint = aws.String(cfg.EndpointURL)
			}
		})
		publisher = queue.NewUsageRetryPublisher(client, cfg.UsageRetryQueue, logger)
	} else {
		logger.Warn("usage retry queue is not configured; failed ledger writes are only logged")
	}
	return metrics, publisher, nil
}

// poolCloser adapts pgxpool.Pool, whose Close returns nothing, to io.Closer.
type poolCloser struct {
	pool *pgxpool.Pool
}

func (c poolCloser) Close() error {
	c.pool.Close()
	return nil
}

var _ io.Closer = poolCloser{}

// runHTTPServer starts the server in standard HTTP mode with graceful shutdown.
func runHTTPServer(srv *core.Server, cfg *config.Config, logger *slog.Logger) error {
	addr := ":" + cfg.Server.Port

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Channel to capture server errors from ListenAndServe.
	serverErr := make(chan error, 1)

	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("initiating graceful shutdown")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout(cfg))
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	// Closes the ledger store and the database pool.
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server resource shutdown error", "error", err)
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped cleanly")
	return nil
}

func shutdownTimeout(cfg *config.Config) time.Duration {
	if cfg.Server.ShutdownTimeout > 0 {
		return cfg.Server.ShutdownTimeout
	}
	return 10 * time.Second
}

// newLogger creates a structured slog.Logger configured for the given log level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     lvl,
		AddSource: false,
	})
	return slog.New(handler)
}
