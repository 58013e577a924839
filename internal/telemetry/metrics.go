// Package telemetry publishes engine and API metrics to CloudWatch.
package telemetry

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"wordsmith/internal/types"
)

// CloudWatchClient abstracts the CloudWatch PutMetricData operation for testability.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudWatchMetrics implements types.CapabilityMetrics and the API's request
// collector. Publishing failures are logged and never reach the caller.
//
// Metrics emitted:
//   - CapabilityDecision: Dims {Capability, Outcome}
//   - LedgerWriteFailure: Dims {Capability}
//   - LedgerReplayed:     Dims {Outcome}
//   - APIRequests, APILatency: Dims {Endpoint, Status}
type CloudWatchMetrics struct {
	client    CloudWatchClient
	namespace string
	logger    types.Logger
}

// NewCloudWatchMetrics creates a publisher for namespace. An empty namespace
// selects types.MetricNamespace.
func NewCloudWatchMetrics(client CloudWatchClient, namespace string, logger types.Logger) *CloudWatchMetrics {
	if namespace == "" {
		namespace = types.MetricNamespace
	}
	return &CloudWatchMetrics{client: client, namespace: namespace, logger: logger}
}

// RecordDecision counts one authorization outcome.
func (m *CloudWatchMetrics) RecordDecision(ctx context.Context, capability types.Capability, outcome types.DecisionOutcome) {
	m.put(ctx, "capability decision", count(types.MetricCapabilityDecision,
		dim(types.DimCapability, string(capability)),
		dim(types.DimOutcome, string(outcome)),
	))
}

// RecordLedgerFailure counts a usage recording that did not reach the store.
func (m *CloudWatchMetrics) RecordLedgerFailure(ctx context.Context, capability types.Capability) {
	m.put(ctx, "ledger failure", count(types.MetricLedgerWriteFailure,
		dim(types.DimCapability, string(capability)),
	))
}

// RecordReplay counts one replayed usage event. ok is false when the event
// was returned to the queue.
func (m *CloudWatchMetrics) RecordReplay(ctx context.Context, ok bool) {
	outcome := "applied"
	if !ok {
		outcome = "failed"
	}
	m.put(ctx, "ledger replay", count(types.MetricLedgerReplayed, dim(types.DimOutcome, outcome)))
}

// RecordRequest emits the request count and latency in one call.
func (m *CloudWatchMetrics) RecordRequest(ctx context.Context, method, endpoint, status string, duration time.Duration) {
	dims := []cwtypes.Dimension{
		dim(types.DimEndpoint, method+" "+endpoint),
		dim(types.DimStatus, status),
	}
	m.put(ctx, "api request",
		count(types.MetricAPIRequests, dims...),
		cwtypes.MetricDatum{
			MetricName: aws.String(types.MetricAPILatency),
			Value:      aws.Float64(float64(duration.Milliseconds())),
			Unit:       cwtypes.StandardUnitMilliseconds,
			Dimensions: dims,
		},
	)
}

func (m *CloudWatchMetrics) put(ctx context.Context, what string, data ...cwtypes.MetricDatum) {
	input := &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(m.namespace),
		MetricData: data,
	}
	if _, err := m.client.PutMetricData(context.WithoutCancel(ctx), input); err != nil && m.logger != nil {
		m.logger.Error("failed to record "+what+" metric",
			"error", err.Error(),
			"metric", aws.ToString(data[0].MetricName),
		)
	}
}

func count(name string, dims ...cwtypes.Dimension) cwtypes.MetricDatum {
	return cwtypes.MetricDatum{
		MetricName: aws.String(name),
		Value:      aws.Float64(1),
		Unit:       cwtypes.StandardUnitCount,
		Dimensions: dims,
	}
}

func dim(name, value string) cwtypes.Dimension {
	return cwtypes.Dimension{Name: aws.String(name), Value: aws.String(value)}
}

// NopMetrics discards every metric. It is used when CloudWatch is disabled.
type NopMetrics struct{}

func (NopMetrics) RecordDecision(context.Context, types.Capability, types.DecisionOutcome) {}
func (NopMetrics) RecordLedgerFailure(context.Context, types.Capability)                   {}
func (NopMetrics) RecordReplay(context.Context, bool)                                      {}
func (NopMetrics) RecordRequest(context.Context, string, string, string, time.Duration)    {}

var (
	_ types.CapabilityMetrics = (*CloudWatchMetrics)(nil)
	_ types.CapabilityMetrics = NopMetrics{}
)
