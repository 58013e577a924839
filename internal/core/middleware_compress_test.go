package core

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"

	"wordsmith/internal/types"
)

func echoBody(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("read body: %v", err)
		}
		if r.Header.Get("Content-Encoding") != "" {
			t.Error("Content-Encoding should be removed after decoding")
		}
		_, _ = w.Write(body)
	})
}

func TestDecompressMiddleware_Zstd(t *testing.T) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatalf("zstd writer: %v", err)
	}
	payload := `{"text":"` + strings.Repeat("great product ", 200) + `"}`
	compressed := enc.EncodeAll([]byte(payload), nil)
	_ = enc.Close()

	req := httptest.NewRequest(http.MethodPost, "/v1/analyze/sentiment", strings.NewReader(string(compressed)))
	req.Header.Set("Content-Encoding", "zstd")
	rec := httptest.NewRecorder()
	DecompressMiddleware(echoBody(t)).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Body.String() != payload {
		t.Error("decoded body does not match payload")
	}
}

func TestDecompressMiddleware_IdentityPassesThrough(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("plain"))
	rec := httptest.NewRecorder()
	DecompressMiddleware(echoBody(t)).ServeHTTP(rec, req)

	if rec.Body.String() != "plain" {
		t.Errorf("unexpected body %q", rec.Body.String())
	}
}

func TestDecompressMiddleware_UnsupportedEncoding(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("x"))
	req.Header.Set("Content-Encoding", "br")
	rec := httptest.NewRecorder()
	DecompressMiddleware(echoBody(t)).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnsupportedMediaType {
		t.Errorf("expected 415, got %d", rec.Code)
	}
}

func TestDecompressMiddleware_CorruptBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("definitely not zstd"))
	req.Header.Set("Content-Encoding", "zstd")
	rec := httptest.NewRecorder()
	DecompressMiddleware(echoBody(t)).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != string(types.ErrCodeValidationInvalidJSON) {
		t.Errorf("unexpected code %q", code)
	}
}
