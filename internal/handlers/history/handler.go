package history

import (
	"context"
	"net/http"
	"strconv"

	apperrors "evbot/internal/common/errors"
	"evbot/internal/common/logger"
	"evbot/internal/handlers"
	"evbot/internal/history"
	"evbot/internal/models"
)

type Handler struct {
	config *Config
	reader history.Reader
	errors *apperrors.ErrorHandler
	logger logger.Logger
}

func NewHandler(cfg *Config, deps Dependencies) *Handler {
	log := deps.Logger.WithFields(map[string]interface{}{"handler": HandlerName})
	return &Handler{
		config: cfg,
		reader: deps.Reader,
		errors: apperrors.NewErrorHandler(log),
		logger: log,
	}
}

func (h *Handler) Routes() handlers.Group {
	return handlers.Group{
		Prefix: "/api/history",
		Routes: []handlers.Route{
			{Method: "GET", Pattern: "/summary", Handler: h.Summary},
			{Method: "GET", Pattern: "/recent", Handler: h.Recent},
		},
	}
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	if h.reader == nil {
		h.errors.HandleHTTPError(w, r, apperrors.NewStorageUnavailableError(HandlerName))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.config.Timeout)
	defer cancel()

	summary, err := h.reader.Summary(ctx)
	if err != nil {
		h.errors.HandleHTTPError(w, r, err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, summary)
}

// Recent lists the newest records. limit defaults to 20 and is capped at 200.
func (h *Handler) Recent(w http.ResponseWriter, r *http.Request) {
	if h.reader == nil {
		h.errors.HandleHTTPError(w, r, apperrors.NewStorageUnavailableError(HandlerName))
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.errors.HandleHTTPError(w, r, apperrors.NewInvalidRequestError("limit must be a non-negative integer"))
			return
		}
		limit = n
	}
	limit = history.ClampLimit(limit)

	ctx, cancel := context.WithTimeout(r.Context(), h.config.Timeout)
	defer cancel()

	records, err := h.reader.Recent(ctx, limit)
	if err != nil {
		h.errors.HandleHTTPError(w, r, err)
		return
	}
	if records == nil {
		records = []models.PredictionRecord{}
	}
	handlers.RespondJSON(w, http.StatusOK, RecentOutput{Limit: limit, Records: records})
}
