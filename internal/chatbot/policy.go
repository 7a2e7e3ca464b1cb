package chatbot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	apperrors "evbot/internal/common/errors"
	"evbot/internal/common/logger"
	"evbot/internal/common/metrics"
	"evbot/internal/models"
	"evbot/internal/prediction"
)

const SystemPrompt = `You are EVBot, a virtual assistant that provides electric vehicle battery advice.
Focus on EV charging strategies, battery health, efficiency, thermal management, and maintenance best practices.
Give concise, actionable answers tailored to everyday EV owners.
If you are uncertain or the user asks for something outside EV battery guidance, acknowledge the limitation clearly.`

const (
	MessageEmptyInput    = "Please ask me a question about EV battery maintenance or charging!"
	MessageNotConfigured = "The chatbot is not configured yet. Please set either OPENAI_API_KEY or HF_API_KEY as an environment variable and restart the application."
	MessageEmptyReply    = "I’m sorry, I couldn’t generate a response right now. Please try asking your EV question again."
	MessageUnreachable   = "Sorry, I couldn't reach the EV assistant service: "

	ModelUnavailableNotice = "EV model assistance is unavailable for this request."
)

// Turn outcomes reported to metrics.
const (
	statusOK            = "ok"
	statusEmptyInput    = "empty_input"
	statusNotConfigured = "not_configured"
	statusProviderError = "provider_error"
	statusEmptyReply    = "empty_reply"
)

// TurnRecorder receives one event per chat turn.
type TurnRecorder interface {
	RecordChatTurn(ctx context.Context, provider, status string)
}

// Tracer starts the span around a provider call. observability.Observability satisfies it.
type Tracer interface {
	StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span)
}

// Reply is the outcome of one chat turn. Text is always set.
type Reply struct {
	Text        string
	Provider    string
	Prediction  *models.PredictionResult
	ModelNotice string
}

// Bot answers EV battery questions through whichever provider is active.
type Bot struct {
	factory   Factory
	predictor prediction.Predictor
	logger    logger.Logger
	turns     TurnRecorder
	tracer    Tracer

	mu        sync.RWMutex
	selection Selection
}

// Option configures a Bot.
type Option func(*Bot)

// WithTurnRecorder reports every turn to r.
func WithTurnRecorder(r TurnRecorder) Option {
	return func(b *Bot) { b.turns = r }
}

// WithTracer traces every provider call through t.
func WithTracer(t Tracer) Option {
	return func(b *Bot) { b.tracer = t }
}

func NewBot(selection Selection, factory Factory, predictor prediction.Predictor, log logger.Logger, opts ...Option) *Bot {
	b := &Bot{
		factory:   factory,
		predictor: predictor,
		logger:    log.WithFields(map[string]interface{}{"component": "chatbot"}),
		selection: selection,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// SetOpenAIKey reconfigures the OpenAI credential. An empty key clears it.
func (b *Bot) SetOpenAIKey(key string) {
	b.transition(func(s Selection) Selection { return s.ConfigureOpenAI(key) })
}

// SetHuggingFaceKey reconfigures the Hugging Face credential. An empty key clears it.
func (b *Bot) SetHuggingFaceKey(key string) {
	b.transition(func(s Selection) Selection { return s.ConfigureHuggingFace(key) })
}

func (b *Bot) transition(fn func(Selection) Selection) {
	b.mu.Lock()
	prev := b.selection.Active
	b.selection = fn(b.selection)
	next := b.selection.Active
	b.mu.Unlock()

	if prev != next {
		b.logger.Info("Chat provider changed", map[string]interface{}{
			"from": prev.String(),
			"to":   next.String(),
		})
	}
}

// Provider returns the active provider.
func (b *Bot) Provider() ProviderID {
	return b.snapshot().Active
}

func (b *Bot) snapshot() Selection {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.selection
}

// GetResponse returns only the reply text.
func (b *Bot) GetResponse(ctx context.Context, input string, payload models.RawPayload) string {
	return b.Respond(ctx, input, payload).Text
}

// Respond runs one chat turn. Failures are reported in the reply text, never returned.
func (b *Bot) Respond(ctx context.Context, input string, payload models.RawPayload) Reply {
	question := strings.TrimSpace(input)
	if question == "" {
		b.record(ctx, ProviderNone.String(), statusEmptyInput)
		return Reply{Text: MessageEmptyInput}
	}

	selection := b.snapshot()
	if selection.Active == ProviderNone {
		b.record(ctx, ProviderNone.String(), statusNotConfigured)
		return Reply{Text: MessageNotConfigured}
	}

	var reply Reply
	var extra []string
	if len(payload) > 0 {
		reply.Prediction, extra, reply.ModelNotice = b.modelContext(ctx, payload)
	}

	messages := make([]Message, 0, len(extra)+2)
	messages = append(messages, Message{Role: RoleSystem, Content: SystemPrompt})
	for _, c := range extra {
		messages = append(messages, Message{Role: RoleSystem, Content: c})
	}
	messages = append(messages, Message{Role: RoleUser, Content: question})

	provider := b.factory(selection.Active, selection.ActiveKey())
	if provider == nil {
		b.record(ctx, selection.Active.String(), statusNotConfigured)
		reply.Text = MessageNotConfigured
		return reply
	}
	reply.Provider = provider.Name()

	text, err := b.complete(ctx, provider, messages)

	if err != nil {
		b.logger.WithError(providerError(reply.Provider, err)).Warn("Chat provider call failed", map[string]interface{}{
			"provider": reply.Provider,
		})
		b.record(ctx, reply.Provider, statusProviderError)
		reply.Text = MessageUnreachable + err.Error()
		return reply
	}

	text = strings.TrimSpace(text)
	if text == "" {
		b.record(ctx, reply.Provider, statusEmptyReply)
		reply.Text = MessageEmptyReply
		return reply
	}

	b.record(ctx, reply.Provider, statusOK)
	reply.Text = text
	return reply
}

func (b *Bot) complete(ctx context.Context, provider Provider, messages []Message) (string, error) {
	var span trace.Span = noop.Span{}
	if b.tracer != nil {
		ctx, span = b.tracer.StartSpan(ctx, "chat.provider",
			attribute.String("provider", provider.Name()),
			attribute.Int("messages", len(messages)),
		)
	}
	defer span.End()

	start := time.Now()
	text, err := provider.Complete(ctx, messages)
	metrics.ProviderDuration.WithLabelValues(provider.Name()).Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "provider call failed")
	}
	return text, err
}

// modelContext runs the prediction for the turn. A failure becomes a notice in the context.
func (b *Bot) modelContext(ctx context.Context, payload models.RawPayload) (*models.PredictionResult, []string, string) {
	if b.predictor == nil {
		lines, notice := noticeLines(apperrors.NewModelUnavailableError(errors.New("no predictor configured")))
		return nil, lines, notice
	}

	result, err := b.predictor.Predict(ctx, payload)
	if err != nil {
		b.logger.WithError(err).Info("Prediction for chat context failed", map[string]interface{}{
			"code": string(apperrors.CodeOf(err)),
		})
		lines, notice := noticeLines(err)
		return nil, lines, notice
	}
	return result, []string{Summary(result)}, ""
}

func noticeLines(err error) ([]string, string) {
	modelErr := "Model error: " + prediction.UserMessage(err)
	return []string{ModelUnavailableNotice, modelErr}, ModelUnavailableNotice + " " + modelErr
}

func (b *Bot) record(ctx context.Context, provider, status string) {
	metrics.ChatRequests.WithLabelValues(provider, status).Inc()
	if b.turns != nil {
		b.turns.RecordChatTurn(ctx, provider, status)
	}
}

func providerError(provider string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.NewProviderTimeoutError(provider, err)
	}
	return apperrors.NewProviderRequestFailedError(provider, err)
}
