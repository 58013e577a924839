// Package main implements the Ledger Replayer Lambda function.
//
// The API hands usage events it could not write to the ledger to the
// usage-retry SQS queue. This function consumes that queue and applies each
// event to the ledger.
//
// Handler flow for each SQS message in the batch:
//  1. Decode and validate the UsageEvent. Malformed bodies are logged and
//     acknowledged; retrying them cannot succeed.
//  2. Apply it with Ledger.Replay, which claims the event ID in
//     usage_events_applied alongside the upsert-increment.
//  3. Persistence failures are reported as batch item failures so SQS
//     redelivers them; other failures are logged and acknowledged.
//
// SQS delivery is at-least-once. A redelivered event finds its ID already
// claimed and is acknowledged without being counted again.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/kelseyhightower/envconfig"

	"wordsmith/internal/config"
	"wordsmith/internal/core"
	"wordsmith/internal/db"
	"wordsmith/internal/ledger"
	"wordsmith/internal/queue"
	"wordsmith/internal/telemetry"
	"wordsmith/internal/types"
)

// UsageReplayer is the ledger operation the handler needs.
type UsageReplayer interface {
	Replay(ctx context.Context, event types.UsageEvent) (rec types.UsageRecord, applied bool, err error)
}

// ReplayMetrics counts replay outcomes.
type ReplayMetrics interface {
	RecordReplay(ctx context.Context, ok bool)
}

// Handler processes batches of usage-retry messages.
type Handler struct {
	ledger  UsageReplayer
	metrics ReplayMetrics
	logger  types.Logger
}

// Handle processes an SQS batch and reports the messages to redeliver.
func (h *Handler) Handle(ctx context.Context, sqsEvent events.SQSEvent) (events.SQSEventResponse, error) {
	response := events.SQSEventResponse{}

	for _, record := range sqsEvent.Records {
		if err := h.processMessage(ctx, record); err != nil {
			h.logger.Error("failed to replay usage event",
				"message_id", record.MessageId,
				"error", err.Error(),
			)
			response.BatchItemFailures = append(response.BatchItemFailures,
				events.SQSBatchItemFailure{ItemIdentifier: record.MessageId},
			)
		}
	}

	return response, nil
}

// processMessage returns an error only when the message should be retried.
func (h *Handler) processMessage(ctx context.Context, record events.SQSMessage) error {
	event, err := queue.DecodeUsageEvent(record.Body)
	if err != nil {
		h.logger.Error("dropping malformed usage event",
			"message_id", record.MessageId,
			"error", err.Error(),
		)
		return nil
	}

	logger := h.logger.With(
		"event_id", event.EventID,
		"user_id", event.UserID,
		"capability", string(event.Capability),
		"period", string(event.PeriodKey),
		"attempt", event.Attempt,
		"trace_id", event.TraceID,
	)

	rec, applied, err := h.ledger.Replay(ctx, event)
	if err != nil {
		h.metrics.RecordReplay(ctx, false)
		if types.KindOf(err) == types.KindPersistenceError {
			return fmt.Errorf("replay event %s: %w", event.EventID, err)
		}
		logger.Warn("dropping usage event the ledger rejected", "error", err.Error())
		return nil
	}

	h.metrics.RecordReplay(ctx, true)
	if !applied {
		logger.Info("duplicate usage event acknowledged")
		return nil
	}
	logger.Info("usage event replayed",
		"api_calls", rec.APICalls,
		"lag_ms", time.Since(event.OccurredAt).Milliseconds(),
	)
	return nil
}

// replayerConfig is read from the Lambda environment.
type replayerConfig struct {
	DatabaseURL     config.SecretString `envconfig:"DATABASE_URL" required:"true"`
	MaxConns        int                 `envconfig:"DB_MAX_CONNS" default:"2"`
	MetricsEnabled  bool                `envconfig:"METRICS_ENABLED" default:"true"`
	MetricNamespace string              `envconfig:"METRIC_NAMESPACE" default:"Wordsmith"`
	LogLevel        string              `envconfig:"LOG_LEVEL" default:"info"`
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	logger.Info("Ledger Replayer Lambda initializing (cold start)")

	typedLogger := core.NewLoggerAdapter(logger)

	var cfg replayerConfig
	if err := envconfig.Process("", &cfg); err != nil {
		logger.Error("Failed to read configuration", "error", err)
		os.Exit(1)
	}
	if cfg.LogLevel == "debug" {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
		typedLogger = core.NewLoggerAdapter(logger)
	}

	ctx := context.Background()

	// The pool is reused across warm invocations.
	pool, err := db.NewPool(ctx, config.DatabaseConfig{
		URL:            cfg.DatabaseURL,
		MaxConns:       cfg.MaxConns,
		AcquireTimeout: 5 * time.Second,
	})
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	// No retry publisher: a failed replay is redelivered by SQS instead.
	usage := ledger.New(db.NewUsageRepo(pool), ledger.WithLogger(logger))

	var metrics ReplayMetrics = telemetry.NopMetrics{}
	if cfg.MetricsEnabled {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			logger.Error("Failed to load AWS SDK config", "error", err)
			os.Exit(1)
		}
		cw := cloudwatch.NewFromConfig(awsCfg, func(o *cloudwatch.Options) {
			if endpoint := os.Getenv("AWS_ENDPOINT_URL"); endpoint != "" {
				o.BaseEndpoint = aws.String(endpoint)
			}
		})
		metrics = telemetry.NewCloudWatchMetrics(cw, cfg.MetricNamespace, typedLogger)
	}

	handler := &Handler{
		ledger:  usage,
		metrics: metrics,
		logger:  typedLogger,
	}

	logger.Info("Ledger Replayer Lambda initialized",
		"metrics_enabled", cfg.MetricsEnabled,
		"metric_namespace", cfg.MetricNamespace,
	)

	lambda.Start(handler.Handle)
}
