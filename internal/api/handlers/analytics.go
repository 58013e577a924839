// Package handlers contains the HTTP handlers of the Wordsmith API.
//
// Handlers decode and validate the request body, resolve the Actor placed in
// the context by the auth middleware and delegate to the analytics engine.
// All gating, metering and error classification happens in the engine; the
// handlers only translate to and from the JSON envelope.
package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"wordsmith/internal/analytics"
	"wordsmith/internal/core"
	"wordsmith/internal/types"
)

// AnalyticsService is the engine contract the analysis and generation
// handlers depend on.
type AnalyticsService interface {
	ExtractKeywords(ctx context.Context, actor types.Actor, in analytics.KeywordsInput) (analytics.KeywordsResult, error)
	AnalyzeSentiment(ctx context.Context, actor types.Actor, text string) (analytics.SentimentOutput, error)
	Summarize(ctx context.Context, actor types.Actor, in analytics.SummaryInput) (analytics.SummaryResult, error)
	AuthorizeGeneration(ctx context.Context, actor types.Actor, length int) (analytics.GenerationDecision, error)
	RecordGeneration(ctx context.Context, actor types.Actor) (analytics.GenerationRecord, error)
}

// --- Request Models ---

// KeywordsRequest is the body of POST /v1/analyze/keywords.
type KeywordsRequest struct {
	Text        string `json:"text" validate:"required,notblank"`
	MaxKeywords int    `json:"max_keywords,omitempty" validate:"omitempty,min=1,max=100"`
}

// SentimentRequest is the body of POST /v1/analyze/sentiment.
type SentimentRequest struct {
	Text string `json:"text" validate:"required,notblank"`
}

// SummaryRequest is the body of POST /v1/analyze/summary.
type SummaryRequest struct {
	Text      string `json:"text" validate:"required,notblank"`
	MaxLength int    `json:"max_length,omitempty" validate:"omitempty,min=50,max=1000"`
	Type      string `json:"type,omitempty" validate:"omitempty,oneof=extractive abstractive"`
	Language  string `json:"language,omitempty" validate:"omitempty,max=16"`
}

// AuthorizeGenerationRequest is the body of POST /v1/generation/authorize.
type AuthorizeGenerationRequest struct {
	ContentLength int `json:"content_length" validate:"min=0"`
}

// RecordGenerationRequest is the body of POST /v1/generation/record. It
// carries no fields; an empty body is accepted.
type RecordGenerationRequest struct{}

// AnalyticsHandler serves the analysis and content generation endpoints.
type AnalyticsHandler struct {
	svc       AnalyticsService
	validator *core.Validator
	logger    *slog.Logger
}

// NewAnalyticsHandler creates an AnalyticsHandler.
func NewAnalyticsHandler(svc AnalyticsService, v *core.Validator, l *slog.Logger) *AnalyticsHandler {
	if l == nil {
		l = slog.Default()
	}
	if v == nil {
		v = core.NewValidator(l)
	}
	return &AnalyticsHandler{
		svc:       svc,
		validator: v,
		logger:    l,
	}
}

// RegisterRoutes mounts the handler under the /v1 router.
func (h *AnalyticsHandler) RegisterRoutes(r chi.Router) {
	r.Route("/analyze", func(r chi.Router) {
		r.Post("/keywords", h.Keywords)
		r.Post("/sentiment", h.Sentiment)
		r.Post("/summary", h.Summary)
	})
	r.Route("/generation", func(r chi.Router) {
		r.Post("/authorize", h.AuthorizeGeneration)
		r.Post("/record", h.RecordGeneration)
	})
}

// Keywords handles POST /v1/analyze/keywords.
func (h *AnalyticsHandler) Keywords(w http.ResponseWriter, r *http.Request) {
	actor, err := core.ActorFromRequest(r)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	var req KeywordsRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.svc.ExtractKeywords(r.Context(), actor, analytics.KeywordsInput{
		Text:        req.Text,
		MaxKeywords: req.MaxKeywords,
	})
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.Data(w, r, http.StatusOK, result)
}

// Sentiment handles POST /v1/analyze/sentiment.
func (h *AnalyticsHandler) Sentiment(w http.ResponseWriter, r *http.Request) {
	actor, err := core.ActorFromRequest(r)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	var req SentimentRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.svc.AnalyzeSentiment(r.Context(), actor, req.Text)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.Data(w, r, http.StatusOK, result)
}

// Summary handles POST /v1/analyze/summary.
func (h *AnalyticsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	actor, err := core.ActorFromRequest(r)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	var req SummaryRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.svc.Summarize(r.Context(), actor, analytics.SummaryInput{
		Text:      req.Text,
		MaxLength: req.MaxLength,
		Type:      types.SummaryType(req.Type),
		Language:  req.Language,
	})
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.Data(w, r, http.StatusOK, result)
}

// AuthorizeGeneration handles POST /v1/generation/authorize. A denial is
// returned as the matching 403/429 error, never as allowed=false.
func (h *AnalyticsHandler) AuthorizeGeneration(w http.ResponseWriter, r *http.Request) {
	actor, err := core.ActorFromRequest(r)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	var req AuthorizeGenerationRequest
	if !h.decode(w, r, &req) {
		return
	}

	decision, err := h.svc.AuthorizeGeneration(r.Context(), actor, req.ContentLength)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.Data(w, r, http.StatusOK, decision)
}

// RecordGeneration handles POST /v1/generation/record.
func (h *AnalyticsHandler) RecordGeneration(w http.ResponseWriter, r *http.Request) {
	actor, err := core.ActorFromRequest(r)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	if r.ContentLength > 0 {
		var req RecordGenerationRequest
		if !h.decode(w, r, &req) {
			return
		}
	}

	rec, err := h.svc.RecordGeneration(r.Context(), actor)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	if !rec.Recorded {
		h.logger.WarnContext(r.Context(), "content generation queued for replay",
			"user_id", actor.ID,
			"period", rec.Period,
		)
		core.Data(w, r, http.StatusAccepted, rec)
		return
	}
	core.Data(w, r, http.StatusOK, rec)
}

// decode reads and validates the body into dst, writing the error response
// itself. It reports whether the handler should continue.
func (h *AnalyticsHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := core.DecodeJSON(w, r, dst); err != nil {
		core.Error(w, r, err)
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		core.Error(w, r, err)
		return false
	}
	return true
}
