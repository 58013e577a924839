package core

import (
	"bytes"
	"io"
	"log/slog"
	"testing"

	"wordsmith/internal/config"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	srv, err := NewServer(&config.Config{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return srv
}

// newCapturingServer returns a server whose logs are written to the buffer.
func newCapturingServer(t *testing.T) (*Server, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	srv, err := NewServer(&config.Config{}, slog.New(slog.NewJSONHandler(buf, nil)))
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return srv, buf
}
