package chatbot

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"evbot/internal/common/config"
	commonhttp "evbot/internal/common/http"
)

// HuggingFace calls the OpenAI-compatible chat completions endpoint of the inference router.
type HuggingFace struct {
	apiKey           string
	model            string
	baseURL          string
	maxTokens        int
	temperature      float64
	maxResponseBytes int64
	client           *commonhttp.Client
}

func NewHuggingFace(cfg config.ProviderConfig, apiKey string, client *commonhttp.Client) *HuggingFace {
	p := &HuggingFace{
		apiKey:           apiKey,
		model:            cfg.Model,
		baseURL:          strings.TrimRight(cfg.BaseURL, "/"),
		maxTokens:        cfg.MaxTokens,
		temperature:      cfg.Temperature,
		maxResponseBytes: cfg.MaxResponseBytes,
		client:           client,
	}
	if p.model == "" {
		p.model = config.DefaultHuggingFaceModel
	}
	if p.baseURL == "" {
		p.baseURL = config.DefaultHuggingFaceURL
	}
	if p.maxTokens <= 0 {
		p.maxTokens = config.DefaultMaxTokens
	}
	return p
}

type chatCompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Role    string          `json:"role"`
			Content json.RawMessage `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (p *HuggingFace) Name() string { return ProviderHuggingFace.String() }

// Complete returns the first choice. A reply without choices is empty text, not an error.
func (p *HuggingFace) Complete(ctx context.Context, messages []Message) (string, error) {
	req := chatCompletionRequest{
		Model:       p.model,
		Messages:    messages,
		MaxTokens:   p.maxTokens,
		Temperature: p.temperature,
	}
	headers := map[string]string{"Authorization": "Bearer " + p.apiKey}

	resp, err := p.client.PostJSON(ctx, p.baseURL+"/chat/completions", headers, req, p.maxResponseBytes)
	if err != nil {
		return "", fmt.Errorf("call huggingface: %w", err)
	}
	if resp.StatusCode >= 400 {
		return "", apiError("huggingface", resp.StatusCode, resp.Body)
	}

	var out chatCompletionResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return "", fmt.Errorf("decode huggingface response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", nil
	}
	return normalizeContent(out.Choices[0].Message.Content, " "), nil
}
