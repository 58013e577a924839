package core

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"wordsmith/internal/config"
)

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func TestNewServer_RequiresConfigAndLogger(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	if _, err := NewServer(nil, logger); err == nil {
		t.Error("expected error for nil config")
	}
	if _, err := NewServer(&config.Config{}, nil); err == nil {
		t.Error("expected error for nil logger")
	}
}

func TestShutdown_ClosesAllAndJoinsErrors(t *testing.T) {
	srv := newTestServer(t)
	var closed []string
	srv.Closers = []io.Closer{
		closerFunc(func() error { closed = append(closed, "a"); return nil }),
		closerFunc(func() error { closed = append(closed, "b"); return errors.New("boom") }),
		closerFunc(func() error { closed = append(closed, "c"); return nil }),
	}

	err := srv.Shutdown(context.Background())
	if err == nil {
		t.Fatal("expected shutdown error")
	}
	if len(closed) != 3 {
		t.Errorf("expected all closers to run, ran %v", closed)
	}
}

func TestMountRoutes_V1Registrars(t *testing.T) {
	srv := newTestServer(t)
	srv.V1RouteRegistrars = append(srv.V1RouteRegistrars, func(r chi.Router) {
		r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
			Data(w, r, http.StatusOK, "pong")
		})
	})
	srv.MountRoutes()

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/ping", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Body.String(); got != `{"data":"pong"}` {
		t.Errorf("unexpected body %s", got)
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Error("expected X-Request-Id header from the global chain")
	}
}

func TestMountRoutes_HealthIsPublic(t *testing.T) {
	srv := newTestServer(t)
	srv.Authenticator = &MockAuthenticator{Err: errors.New("should not be called")}
	srv.MountRoutes()

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if calls := len(srv.Authenticator.(*MockAuthenticator).Calls); calls != 0 {
		t.Errorf("expected no auth calls, got %d", calls)
	}
}

func TestRequestTimeout_FromConfig(t *testing.T) {
	srv := newTestServer(t)
	if srv.requestTimeout() != defaultRequestTimeout {
		t.Errorf("expected default timeout")
	}
	srv.Config.Server.RequestTimeout = 3e9
	if srv.requestTimeout().Seconds() != 3 {
		t.Errorf("expected configured timeout, got %v", srv.requestTimeout())
	}
}
