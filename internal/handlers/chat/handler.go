package chat

import (
	"context"
	"net/http"

	apperrors "evbot/internal/common/errors"
	"evbot/internal/common/logger"
	"evbot/internal/common/validation"
	"evbot/internal/handlers"
	"evbot/internal/models"
	"evbot/internal/web"
)

const PageTitle = "EVBot"

type Handler struct {
	config   *Config
	bot      Responder
	pages    *web.Pages
	reporter *handlers.Reporter
	schema   *validation.Compiled
	errors   *apperrors.ErrorHandler
	logger   logger.Logger
}

func NewHandler(cfg *Config, deps Dependencies) *Handler {
	log := deps.Logger.WithFields(map[string]interface{}{"handler": HandlerName})
	return &Handler{
		config:   cfg,
		bot:      deps.Bot,
		pages:    deps.Pages,
		reporter: deps.Reporter,
		schema:   validation.MustCompile(GetInputSchema()),
		errors:   apperrors.NewErrorHandler(log),
		logger:   log,
	}
}

func (h *Handler) Routes() handlers.Group {
	return handlers.Group{
		Routes: []handlers.Route{
			{Method: "GET", Pattern: "/chatbot", Handler: h.Page},
			{Method: "POST", Pattern: "/api/chat", Handler: h.Chat},
		},
	}
}

func (h *Handler) Page(w http.ResponseWriter, r *http.Request) {
	page := web.ChatPage{
		Title:    PageTitle,
		Provider: h.bot.Provider().String(),
		Fields:   web.Fields(nil, nil),
	}
	if err := h.pages.RenderChat(w, http.StatusOK, page); err != nil {
		h.logger.WithError(err).Error("Failed to render chat page", nil)
	}
}

// Chat answers one turn. Provider and model failures are part of the reply, so only a
// malformed envelope is an error response.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := handlers.DecodeJSON(r, h.config.MaxBodyBytes, h.schema, &req); err != nil {
		h.errors.HandleHTTPError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.config.Timeout)
	defer cancel()

	reply := h.bot.Respond(ctx, req.Message, req.Payload)
	if reply.Prediction != nil {
		h.reporter.Success(ctx, models.SourceChat, reply.Prediction)
	}

	handlers.RespondJSON(w, http.StatusOK, models.ChatResponse{
		Response:    reply.Text,
		Provider:    reply.Provider,
		Prediction:  reply.Prediction,
		ModelNotice: reply.ModelNotice,
	})
}
