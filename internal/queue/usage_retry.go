// Package queue provides the SQS producer for usage events that could not be
// written to the ledger. The ledger-replayer consumes the same queue.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqsTypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"wordsmith/internal/types"
)

// SQSSender abstracts the SQS SendMessage operation for testability.
// Production code uses the *sqs.Client from aws-sdk-go-v2.
type SQSSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// Message attribute names set on every usage event.
const (
	AttrCapability = "capability"
	AttrAttempt    = "attempt"
)

// UsageRetryPublisher implements types.UsageEventPublisher on SQS.
type UsageRetryPublisher struct {
	client   SQSSender
	queueURL string
	logger   *slog.Logger
}

// NewUsageRetryPublisher creates a publisher for the queue at queueURL.
func NewUsageRetryPublisher(client SQSSender, queueURL string, logger *slog.Logger) *UsageRetryPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &UsageRetryPublisher{client: client, queueURL: queueURL, logger: logger}
}

// PublishUsageEvent serializes the event to JSON and sends it.
func (p *UsageRetryPublisher) PublishUsageEvent(ctx context.Context, event types.UsageEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("queue: failed to marshal UsageEvent: %w", err)
	}

	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]sqsTypes.MessageAttributeValue{
			AttrCapability: {
				DataType:    aws.String("String"),
				StringValue: aws.String(string(event.Capability)),
			},
			AttrAttempt: {
				DataType:    aws.String("Number"),
				StringValue: aws.String(strconv.Itoa(event.Attempt)),
			},
		},
	}

	if _, err := p.client.SendMessage(ctx, input); err != nil {
		return fmt.Errorf("queue: failed to send UsageEvent to %s: %w", p.queueURL, err)
	}

	p.logger.InfoContext(ctx, "usage event queued for replay",
		"event_id", event.EventID,
		"user_id", event.UserID,
		"capability", string(event.Capability),
		"period", string(event.PeriodKey),
		"trace_id", event.TraceID,
	)
	return nil
}

// DecodeUsageEvent parses a message body produced by PublishUsageEvent.
func DecodeUsageEvent(body string) (types.UsageEvent, error) {
	var event types.UsageEvent
	if err := json.Unmarshal([]byte(body), &event); err != nil {
		return types.UsageEvent{}, fmt.Errorf("queue: malformed UsageEvent: %w", err)
	}
	if event.UserID == "" || !event.Capability.Valid() {
		return types.UsageEvent{}, fmt.Errorf("queue: UsageEvent %q is missing user or capability", event.EventID)
	}
	if err := event.PeriodKey.Validate(); err != nil {
		return types.UsageEvent{}, fmt.Errorf("queue: UsageEvent %q: %w", event.EventID, err)
	}
	return event, nil
}

var _ types.UsageEventPublisher = (*UsageRetryPublisher)(nil)
