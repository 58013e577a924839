package core

import (
	"context"
	"sync"
	"time"

	"wordsmith/internal/types"
)

// MockAuthenticator implements Authenticator for tests. ResolveTokenFunc
// takes precedence over Err, and Err over Actor.
type MockAuthenticator struct {
	Actor            *types.Actor
	Err              error
	ResolveTokenFunc func(ctx context.Context, token, onBehalfOf string) (*types.Actor, error)

	mu    sync.Mutex
	Calls []AuthCall
}

// AuthCall records one ResolveToken invocation.
type AuthCall struct {
	Token      string
	OnBehalfOf string
}

func (m *MockAuthenticator) ResolveToken(ctx context.Context, token, onBehalfOf string) (*types.Actor, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, AuthCall{Token: token, OnBehalfOf: onBehalfOf})
	m.mu.Unlock()

	if m.ResolveTokenFunc != nil {
		return m.ResolveTokenFunc(ctx, token, onBehalfOf)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Actor, nil
}

// MockMetricsCollector records RecordRequest calls.
type MockMetricsCollector struct {
	mu       sync.Mutex
	Requests []RecordedRequest
}

// RecordedRequest is one RecordRequest invocation.
type RecordedRequest struct {
	Method   string
	Endpoint string
	Status   string
	Duration time.Duration
}

func (m *MockMetricsCollector) RecordRequest(_ context.Context, method, endpoint, status string, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requests = append(m.Requests, RecordedRequest{Method: method, Endpoint: endpoint, Status: status, Duration: duration})
}

// Snapshot returns a copy of the recorded requests.
func (m *MockMetricsCollector) Snapshot() []RecordedRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]RecordedRequest(nil), m.Requests...)
}

var (
	_ Authenticator    = (*MockAuthenticator)(nil)
	_ MetricsCollector = (*MockMetricsCollector)(nil)
)
