package core

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"wordsmith/internal/types"
)

func TestError_AppErrorKeepsCodeAndDetails(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(types.WithRequestID(req.Context(), "req-7"))
	rec := httptest.NewRecorder()

	Error(rec, req, types.NewAppErrorWithDetails(
		types.ErrCodeLimitMonthlyContent,
		"monthly content limit reached",
		nil,
		map[string]any{"limit": 5},
	))

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	var resp APIErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Error.Code != string(types.ErrCodeLimitMonthlyContent) || resp.Error.RequestID != "req-7" {
		t.Errorf("unexpected error detail %+v", resp.Error)
	}
	if resp.Error.Details["limit"] != float64(5) {
		t.Errorf("expected details to be preserved, got %v", resp.Error.Details)
	}
}

func TestError_PlainErrorHidesInternals(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, httptest.NewRequest(http.MethodGet, "/", nil), errors.New("pq: password authentication failed"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Error("internal error text leaked to client")
	}
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Text string `json:"text"`
		Max  int    `json:"max_keywords"`
	}

	tests := []struct {
		name    string
		body    string
		wantErr bool
		msg     string
	}{
		{name: "valid", body: `{"text":"hello","max_keywords":3}`},
		{name: "empty", body: ``, wantErr: true, msg: "must not be empty"},
		{name: "syntax", body: `{"text":`, wantErr: true},
		{name: "unknown field", body: `{"txt":"x"}`, wantErr: true, msg: "unknown field"},
		{name: "wrong type", body: `{"max_keywords":"ten"}`, wantErr: true, msg: "invalid value"},
		{name: "trailing object", body: `{"text":"a"}{"text":"b"}`, wantErr: true, msg: "single JSON object"},
		{name: "too large", body: `{"text":"` + strings.Repeat("a", maxRequestBodySize) + `"}`, wantErr: true, msg: "1MB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var dst payload
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			err := DecodeJSON(httptest.NewRecorder(), req, &dst)

			if !tt.wantErr {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if dst.Text != "hello" || dst.Max != 3 {
					t.Errorf("unexpected decode %+v", dst)
				}
				return
			}

			var appErr *types.AppError
			if !errors.As(err, &appErr) {
				t.Fatalf("expected AppError, got %v", err)
			}
			if appErr.Code != types.ErrCodeValidationInvalidJSON {
				t.Errorf("unexpected code %q", appErr.Code)
			}
			if tt.msg != "" && !strings.Contains(appErr.Message, tt.msg) {
				t.Errorf("message %q does not contain %q", appErr.Message, tt.msg)
			}
		})
	}
}
