package core

import (
	"context"
	"time"

	"wordsmith/internal/types"
)

// Authenticator decouples the HTTP layer from credential storage.
type Authenticator interface {
	// ResolveToken maps a bearer token to an Actor. onBehalfOf carries the
	// X-User-ID header, which only the internal service key may set.
	//
	// Errors are AppErrors with auth_token_missing, auth_token_invalid or
	// auth_token_revoked codes; persistence failures pass through unchanged.
	ResolveToken(ctx context.Context, token, onBehalfOf string) (*types.Actor, error)
}

// MetricsCollector records API request telemetry.
type MetricsCollector interface {
	RecordRequest(ctx context.Context, method, endpoint, status string, duration time.Duration)
}
