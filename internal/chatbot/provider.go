package chatbot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"evbot/internal/common/config"
	commonhttp "evbot/internal/common/http"
)

// Message is one entry of the conversation sent upstream.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Provider sends a conversation to a hosted model and returns its reply text.
type Provider interface {
	Name() string
	Complete(ctx context.Context, messages []Message) (string, error)
}

// Factory builds the provider for a selection. It is called once per chat turn.
type Factory func(id ProviderID, apiKey string) Provider

// NewFactory builds HTTP providers from configuration. Each provider keeps one HTTP client.
func NewFactory(cfg config.ChatbotConfig) Factory {
	openAIClient := commonhttp.NewClient(config.GetDuration(cfg.OpenAI.Timeout))
	hfClient := commonhttp.NewClient(config.GetDuration(cfg.HuggingFace.Timeout))

	return func(id ProviderID, apiKey string) Provider {
		switch id {
		case ProviderOpenAI:
			return NewOpenAI(cfg.OpenAI, apiKey, openAIClient)
		case ProviderHuggingFace:
			return NewHuggingFace(cfg.HuggingFace, apiKey, hfClient)
		default:
			return nil
		}
	}
}

// normalizeContent flattens a message body into text. Bodies arrive as a plain string, a list of
// parts, or an object carrying text or content. List parts are joined with sep.
func normalizeContent(raw json.RawMessage, sep string) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return s
	case '[':
		var parts []json.RawMessage
		if err := json.Unmarshal(raw, &parts); err != nil {
			return ""
		}
		texts := make([]string, 0, len(parts))
		for _, part := range parts {
			texts = append(texts, normalizeContent(part, sep))
		}
		return strings.Join(texts, sep)
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			return ""
		}
		for _, key := range []string{"text", "content", "value"} {
			if v, ok := obj[key]; ok {
				return normalizeContent(v, sep)
			}
		}
	}
	return ""
}

// apiError turns an upstream error body into an error. Both providers answer with
// {"error": {"message", "type"}} or {"error": "..."}.
func apiError(provider string, status int, body []byte) error {
	var envelope struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("%s error status %d", provider, status)
	}

	var detail struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	}
	if len(envelope.Error) > 0 && envelope.Error[0] == '{' {
		if err := json.Unmarshal(envelope.Error, &detail); err == nil && detail.Message != "" {
			if detail.Type != "" {
				return fmt.Errorf("%s error: %s (type=%s)", provider, detail.Message, detail.Type)
			}
			return fmt.Errorf("%s error: %s", provider, detail.Message)
		}
	}
	if msg := normalizeContent(envelope.Error, " "); msg != "" {
		return fmt.Errorf("%s error: %s", provider, msg)
	}
	if envelope.Message != "" {
		return fmt.Errorf("%s error: %s", provider, envelope.Message)
	}
	return fmt.Errorf("%s error status %d", provider, status)
}
