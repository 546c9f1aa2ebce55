package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/uneeb123/alpha-hunter-sub000/internal/clients_api/transport"
	"github.com/uneeb123/alpha-hunter-sub000/internal/infra/config"
)

const (
	anthropicBaseURL      = "https://api.anthropic.com/v1"
	anthropicVersion      = "2023-06-01"
	defaultAnthropicModel = "claude-3-5-sonnet-latest"
)

type Anthropic struct {
	http  *transport.Client
	model string
}

func AnthropicTransportOptions(cfg config.LLMConfig) transport.Options {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = anthropicBaseURL
	}
	return transportOptions("anthropic", baseURL, map[string]string{
		"x-api-key":         cfg.APIKey,
		"anthropic-version": anthropicVersion,
	})
}

func NewAnthropic(cfg config.LLMConfig) *Anthropic {
	return NewAnthropicWithTransport(transport.New(AnthropicTransportOptions(cfg)), cfg.Model)
}

func NewAnthropicWithTransport(t *transport.Client, model string) *Anthropic {
	if model == "" {
		model = defaultAnthropicModel
	}
	return &Anthropic{http: t, model: model}
}

type messagesRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	System    string        `json:"system,omitempty"`
	Messages  []chatMessage `json:"messages"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

func (a *Anthropic) Complete(ctx context.Context, system, prompt string) (string, error) {
	req := messagesRequest{
		Model:     a.model,
		MaxTokens: 2048,
		System:    system,
		Messages:  []chatMessage{{Role: "user", Content: prompt}},
	}
	var resp messagesResponse
	if err := a.http.PostJSON(ctx, "/messages", req, &resp); err != nil {
		return "", fmt.Errorf("anthropic completion failed: %w", err)
	}
	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("no text in anthropic response")
	}
	return sb.String(), nil
}
