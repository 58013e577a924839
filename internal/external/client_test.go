package external

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"

	"wordsmith/internal/types"
)

// noopSleep skips the wait between retries.
func noopSleep(context.Context, time.Duration) error { return nil }

func newTestClient(t *testing.T, policy RetryPolicy, opts ...BaseClientOption) *BaseClient {
	t.Helper()
	opts = append([]BaseClientOption{WithSleepFunc(noopSleep)}, opts...)
	return NewBaseClient(&http.Client{Timeout: 5 * time.Second}, "test-breaker", policy, "Wordsmith-Test/1.0", opts...)
}

func fastPolicy(retries int) RetryPolicy {
	return RetryPolicy{MaxRetries: retries, MinWait: time.Millisecond, MaxWait: 10 * time.Millisecond}
}

func appErrorCode(t *testing.T, err error) types.ErrorCode {
	t.Helper()
	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *types.AppError, got %T: %v", err, err)
	}
	return appErr.Code
}

func TestDo_SuccessInjectsHeaders(t *testing.T) {
	var traceID, userAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID = r.Header.Get("X-B3-TraceId")
		userAgent = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	ctx := types.WithRequestID(context.Background(), "trace-abc")
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
	resp, err := newTestClient(t, fastPolicy(0)).Do(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if string(body) != "ok" {
		t.Errorf("unexpected body %q", body)
	}
	if traceID != "trace-abc" {
		t.Errorf("expected trace id, got %q", traceID)
	}
	if userAgent != "Wordsmith-Test/1.0" {
		t.Errorf("unexpected user agent %q", userAgent)
	}
}

func TestDo_RetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if string(body) != "payload" {
			t.Errorf("body not replayed on attempt %d: %q", calls.Load()+1, body)
		}
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	req, _ := http.NewRequest(http.MethodPost, server.URL, strings.NewReader("payload"))
	resp, err := newTestClient(t, fastPolicy(3)).Do(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()
	if calls.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestDo_ExhaustedRetries(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   types.ErrorCode
	}{
		{"server error", http.StatusInternalServerError, types.ErrCodeUpstreamUnavailable},
		{"rate limited", http.StatusTooManyRequests, types.ErrCodeUpstreamRateLimited},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			req, _ := http.NewRequest(http.MethodGet, server.URL, nil)
			_, err := newTestClient(t, fastPolicy(2)).Do(req)
			if code := appErrorCode(t, err); code != tt.want {
				t.Errorf("code = %q, want %q", code, tt.want)
			}
			if calls.Load() != 3 {
				t.Errorf("expected 3 attempts, got %d", calls.Load())
			}
		})
	}
}

func TestDo_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	req, _ := http.NewRequest(http.MethodGet, server.URL, nil)
	resp, err := newTestClient(t, fastPolicy(3)).Do(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest || calls.Load() != 1 {
		t.Errorf("expected single 400, got %d after %d calls", resp.StatusCode, calls.Load())
	}
}

func TestDo_BreakerOpens(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	cb := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:    "trip-fast",
		Timeout: time.Minute,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 2
		},
	})
	client := newTestClient(t, fastPolicy(5), WithBreaker(cb))

	req, _ := http.NewRequest(http.MethodGet, server.URL, nil)
	_, err := client.Do(req)
	if code := appErrorCode(t, err); code != types.ErrCodeUpstreamUnavailable {
		t.Errorf("unexpected code %q", code)
	}
	if calls.Load() != 2 {
		t.Errorf("expected the breaker to stop after 2 calls, got %d", calls.Load())
	}
	if cb.State() != gobreaker.StateOpen {
		t.Errorf("expected open breaker, got %s", cb.State())
	}
}

func TestDo_ContextCancelledDuringBackoff(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	client := newTestClient(t, fastPolicy(3), WithSleepFunc(func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}))

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
	_, err := client.Do(req)
	if types.KindOf(err) != types.KindUpstream {
		t.Errorf("expected upstream error, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected wrapped context.Canceled, got %v", err)
	}
}

func TestBackoff(t *testing.T) {
	c := newTestClient(t, RetryPolicy{MaxRetries: 3, MinWait: 100 * time.Millisecond, MaxWait: time.Second})

	if got := c.backoff(0, "3"); got != time.Second {
		t.Errorf("Retry-After should be capped at MaxWait, got %v", got)
	}
	if got := c.backoff(0, ""); got != 100*time.Millisecond {
		t.Errorf("first attempt should wait MinWait, got %v", got)
	}
	for attempt := 1; attempt < 6; attempt++ {
		got := c.backoff(attempt, "")
		if got < 100*time.Millisecond || got > time.Second {
			t.Errorf("attempt %d: backoff %v outside [MinWait, MaxWait]", attempt, got)
		}
	}
}
