package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"wordsmith/internal/billing"
	"wordsmith/internal/core"
	"wordsmith/internal/types"
)

// UsageService is the reporting contract of the usage endpoints.
type UsageService interface {
	CurrentUsage(ctx context.Context, actor types.Actor, period types.PeriodKey) (types.UsageReport, error)
	UsageHistory(ctx context.Context, actor types.Actor, limit int) ([]types.UsageRecord, error)
}

// UsageHandler serves the caller's own usage reports.
type UsageHandler struct {
	svc    UsageService
	logger *slog.Logger
}

// NewUsageHandler creates a UsageHandler.
func NewUsageHandler(svc UsageService, l *slog.Logger) *UsageHandler {
	if l == nil {
		l = slog.Default()
	}
	return &UsageHandler{svc: svc, logger: l}
}

// RegisterRoutes mounts the handler under the /v1 router.
func (h *UsageHandler) RegisterRoutes(r chi.Router) {
	r.Route("/usage", func(r chi.Router) {
		r.Get("/", h.Current)
		r.Get("/history", h.History)
	})
}

// Current handles GET /v1/usage. The optional period query parameter selects
// a past month in YYYY-MM form.
func (h *UsageHandler) Current(w http.ResponseWriter, r *http.Request) {
	actor, err := core.ActorFromRequest(r)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	report, err := h.svc.CurrentUsage(r.Context(), actor, types.PeriodKey(r.URL.Query().Get("period")))
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.Data(w, r, http.StatusOK, report)
}

// History handles GET /v1/usage/history.
func (h *UsageHandler) History(w http.ResponseWriter, r *http.Request) {
	actor, err := core.ActorFromRequest(r)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err = strconv.Atoi(limitStr)
		if err != nil || limit < 1 || limit > billing.MaxHistoryLimit {
			core.Error(w, r, types.NewAppErrorWithDetails(
				types.ErrCodeValidationInvalidParameter,
				"limit must be a number between 1 and "+strconv.Itoa(billing.MaxHistoryLimit),
				nil,
				map[string]any{"field": "limit", "value": limitStr},
			))
			return
		}
	}

	records, err := h.svc.UsageHistory(r.Context(), actor, limit)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	if records == nil {
		records = []types.UsageRecord{}
	}
	core.Data(w, r, http.StatusOK, records)
}
