package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"wordsmith/internal/config"
	"wordsmith/internal/core"
	"wordsmith/internal/ledger"
	"wordsmith/internal/telemetry"
	"wordsmith/internal/types"
)

const testServiceKey = "test-internal-service-key-0123456789abcdef"

// setTestEnv selects backends that need neither Postgres nor AWS.
func setTestEnv(t *testing.T) {
	t.Helper()
	t.Setenv("APP_ENV", "local")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("LEDGER_BACKEND", "memory")
	t.Setenv("SUBSCRIPTION_SOURCE", "static")
	t.Setenv("STATIC_PLAN", "basic")
	t.Setenv("INTERNAL_SERVICE_KEY", testServiceKey)
	t.Setenv("SQS_USAGE_RETRY", "")
	t.Setenv("METRICS_ENABLED", "false")
	t.Setenv("LEXICON_FILE", "")
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func buildTestServer(t *testing.T) *core.Server {
	t.Helper()
	setTestEnv(t)

	cfg, err := config.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	srv, err := buildServer(context.Background(), cfg, discardLogger())
	if err != nil {
		t.Fatalf("buildServer: %v", err)
	}
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func serve(srv *core.Server, method, path, body string, authenticated bool) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if authenticated {
		req.Header.Set("Authorization", "Bearer "+testServiceKey)
		req.Header.Set("X-User-ID", "user-1")
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestBuildServer_HealthIsPublic(t *testing.T) {
	srv := buildTestServer(t)

	rec := serve(srv, http.MethodGet, "/health", "", false)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding health body: %v", err)
	}
	if body.Status != "healthy" {
		t.Errorf("expected healthy, got %q", body.Status)
	}
}

func TestBuildServer_RequiresCredentials(t *testing.T) {
	srv := buildTestServer(t)

	rec := serve(srv, http.MethodPost, "/v1/analyze/keywords", `{"text":"hello world"}`, false)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestBuildServer_KeywordsAreMetered(t *testing.T) {
	srv := buildTestServer(t)

	rec := serve(srv, http.MethodPost, "/v1/analyze/keywords",
		`{"text":"Gophers write simple code. Simple code ships."}`, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("keywords: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = serve(srv, http.MethodGet, "/v1/usage", "", true)
	if rec.Code != http.StatusOK {
		t.Fatalf("usage: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Data types.UsageReport `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding usage body: %v", err)
	}
	if body.Data.PlanType != types.PlanBasic {
		t.Errorf("expected plan basic, got %q", body.Data.PlanType)
	}
	if body.Data.Usage.KeywordExtractionUsed != 1 {
		t.Errorf("expected 1 keyword extraction, got %d", body.Data.Usage.KeywordExtractionUsed)
	}
	if body.Data.Usage.APICalls != 0 {
		t.Errorf("expected 0 api calls after the first use, got %d", body.Data.Usage.APICalls)
	}
}

func TestOpenLedgerStore(t *testing.T) {
	logger := discardLogger()

	t.Run("postgres without pool", func(t *testing.T) {
		srv, _ := core.NewServer(&config.Config{}, logger)
		if _, err := openLedgerStore(config.LedgerConfig{Backend: config.LedgerPostgres}, nil, logger, srv); err == nil {
			t.Fatal("expected an error without a database pool")
		}
	})

	t.Run("memory", func(t *testing.T) {
		srv, _ := core.NewServer(&config.Config{}, logger)
		store, err := openLedgerStore(config.LedgerConfig{Backend: config.LedgerMemory}, nil, logger, srv)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, ok := store.(*ledger.MemoryStore); !ok {
			t.Errorf("expected *ledger.MemoryStore, got %T", store)
		}
		if len(srv.Closers) != 0 || len(srv.HealthProbes) != 0 {
			t.Error("memory store should register no closers or probes")
		}
	})

	t.Run("sqlite registers closer and probe", func(t *testing.T) {
		srv, _ := core.NewServer(&config.Config{}, logger)
		cfg := config.LedgerConfig{
			Backend:    config.LedgerSQLite,
			SQLitePath: filepath.Join(t.TempDir(), "usage.db"),
		}
		store, err := openLedgerStore(cfg, nil, logger, srv)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

		if store == nil {
			t.Fatal("expected a store")
		}
		if len(srv.Closers) != 1 {
			t.Errorf("expected 1 closer, got %d", len(srv.Closers))
		}
		if len(srv.HealthProbes) != 1 || srv.HealthProbes[0].Name() != "sqlite" {
			t.Errorf("expected a sqlite health probe, got %v", srv.HealthProbes)
		}
	})
}

func TestNewSubscriptionReader(t *testing.T) {
	logger := discardLogger()

	if _, err := newSubscriptionReader(config.BillingConfig{SubscriptionSource: config.SubscriptionsDatabase}, nil, logger); err == nil {
		t.Error("database source without pool: expected an error")
	}
	if _, err := newSubscriptionReader(config.BillingConfig{SubscriptionSource: config.SubscriptionsStripe}, nil, logger); err == nil {
		t.Error("stripe source without secret key: expected an error")
	}

	reader, err := newSubscriptionReader(config.BillingConfig{
		SubscriptionSource: config.SubscriptionsStatic,
		StaticPlan:         "professional",
	}, nil, logger)
	if err != nil {
		t.Fatalf("static source: unexpected error: %v", err)
	}
	sub, err := reader.GetSubscription(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("GetSubscription: %v", err)
	}
	if sub.PlanType != types.PlanProfessional || sub.UserID != "user-1" {
		t.Errorf("unexpected subscription %+v", sub)
	}
}

func TestNewAWSClients_Disabled(t *testing.T) {
	metrics, publisher, err := newAWSClients(context.Background(), config.AWSConfig{}, discardLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := metrics.(telemetry.NopMetrics); !ok {
		t.Errorf("expected NopMetrics, got %T", metrics)
	}
	if publisher != nil {
		t.Errorf("expected no publisher, got %T", publisher)
	}
}

func TestNewLogger_Levels(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		level    string
		enabled  slog.Level
		disabled slog.Level
	}{
		{"debug", slog.LevelDebug, slog.LevelDebug - 1},
		{"info", slog.LevelInfo, slog.LevelDebug},
		{"warn", slog.LevelWarn, slog.LevelInfo},
		{"error", slog.LevelError, slog.LevelWarn},
		{"bogus", slog.LevelInfo, slog.LevelDebug},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger := newLogger(tt.level)
			if !logger.Enabled(ctx, tt.enabled) {
				t.Errorf("expected %v to be enabled", tt.enabled)
			}
			if logger.Enabled(ctx, tt.disabled) {
				t.Errorf("expected %v to be disabled", tt.disabled)
			}
		})
	}
}

func TestShutdownTimeout(t *testing.T) {
	cfg := &config.Config{}
	if got := shutdownTimeout(cfg); got != 10*time.Second {
		t.Errorf("default: expected 10s, got %v", got)
	}
	cfg.Server.ShutdownTimeout = 3 * time.Second
	if got := shutdownTimeout(cfg); got != 3*time.Second {
		t.Errorf("configured: expected 3s, got %v", got)
	}
}
