package chat

import (
	"context"

	"evbot/internal/chatbot"
	"evbot/internal/common/logger"
	"evbot/internal/handlers"
	"evbot/internal/models"
	"evbot/internal/web"
)

// Responder answers one chat turn. *chatbot.Bot satisfies it.
type Responder interface {
	Respond(ctx context.Context, input string, payload models.RawPayload) chatbot.Reply
	Provider() chatbot.ProviderID
}

type Dependencies struct {
	Bot      Responder
	Pages    *web.Pages
	Reporter *handlers.Reporter
	Logger   logger.Logger
}
