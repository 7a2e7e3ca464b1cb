package chatbot

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"evbot/internal/common/config"
	commonhttp "evbot/internal/common/http"
)

// OpenAI calls the Responses API.
type OpenAI struct {
	apiKey           string
	model            string
	baseURL          string
	maxTokens        int
	maxResponseBytes int64
	client           *commonhttp.Client
}

func NewOpenAI(cfg config.ProviderConfig, apiKey string, client *commonhttp.Client) *OpenAI {
	p := &OpenAI{
		apiKey:           apiKey,
		model:            cfg.Model,
		baseURL:          strings.TrimRight(cfg.BaseURL, "/"),
		maxTokens:        cfg.MaxTokens,
		maxResponseBytes: cfg.MaxResponseBytes,
		client:           client,
	}
	if p.model == "" {
		p.model = config.DefaultOpenAIModel
	}
	if p.baseURL == "" {
		p.baseURL = config.DefaultOpenAIBaseURL
	}
	if p.maxTokens <= 0 {
		p.maxTokens = config.DefaultMaxTokens
	}
	return p
}

type responsesRequest struct {
	Model           string    `json:"model"`
	Input           []Message `json:"input"`
	MaxOutputTokens int       `json:"max_output_tokens"`
}

type responsesResponse struct {
	OutputText *string `json:"output_text"`
	Output     []struct {
		Type    string          `json:"type"`
		Content json.RawMessage `json:"content"`
	} `json:"output"`
}

func (p *OpenAI) Name() string { return ProviderOpenAI.String() }

func (p *OpenAI) Complete(ctx context.Context, messages []Message) (string, error) {
	req := responsesRequest{
		Model:           p.model,
		Input:           messages,
		MaxOutputTokens: p.maxTokens,
	}
	headers := map[string]string{"Authorization": "Bearer " + p.apiKey}

	resp, err := p.client.PostJSON(ctx, p.baseURL+"/responses", headers, req, p.maxResponseBytes)
	if err != nil {
		return "", fmt.Errorf("call openai: %w", err)
	}
	if resp.StatusCode >= 400 {
		return "", apiError("openai", resp.StatusCode, resp.Body)
	}

	var out responsesResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return "", fmt.Errorf("decode openai response: %w", err)
	}
	return out.text(), nil
}

// text prefers the aggregated output_text and otherwise concatenates the message parts.
func (r responsesResponse) text() string {
	if r.OutputText != nil {
		return *r.OutputText
	}
	var b strings.Builder
	for _, item := range r.Output {
		if item.Type != "" && item.Type != "message" {
			continue
		}
		b.WriteString(normalizeContent(item.Content, ""))
	}
	return b.String()
}
