package llm

import (
	"context"
	"fmt"
	"sort"

	"github.com/uneeb123/alpha-hunter-sub000/internal/clients_api/transport"
	"github.com/uneeb123/alpha-hunter-sub000/internal/infra/config"
)

const (
	openAIBaseURL         = "https://api.openai.com/v1"
	defaultChatModel      = "gpt-4o-mini"
	defaultEmbeddingModel = "text-embedding-3-small"
	// EmbeddingDimensions is the vector size of text-embedding-3-small.
	EmbeddingDimensions = 1536
)

type OpenAI struct {
	http           *transport.Client
	model          string
	embeddingModel string
}

func OpenAITransportOptions(cfg config.LLMConfig) transport.Options {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = openAIBaseURL
	}
	return transportOptions("openai", baseURL, map[string]string{"Authorization": "Bearer " + cfg.APIKey})
}

func NewOpenAI(cfg config.LLMConfig) *OpenAI {
	return NewOpenAIWithTransport(transport.New(OpenAITransportOptions(cfg)), cfg)
}

func NewOpenAIWithTransport(t *transport.Client, cfg config.LLMConfig) *OpenAI {
	model, embeddingModel := cfg.Model, cfg.EmbeddingModel
	if model == "" {
		model = defaultChatModel
	}
	if embeddingModel == "" {
		embeddingModel = defaultEmbeddingModel
	}
	return &OpenAI{http: t, model: model, embeddingModel: embeddingModel}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (o *OpenAI) Complete(ctx context.Context, system, prompt string) (string, error) {
	req := chatRequest{Model: o.model, Temperature: 0.7, MaxTokens: 2000}
	if system != "" {
		req.Messages = append(req.Messages, chatMessage{Role: "system", Content: system})
	}
	req.Messages = append(req.Messages, chatMessage{Role: "user", Content: prompt})

	var resp chatResponse
	if err := o.http.PostJSON(ctx, "/chat/completions", req, &resp); err != nil {
		return "", fmt.Errorf("openai completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from openai")
	}
	return resp.Choices[0].Message.Content, nil
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed returns one vector per input, in input order.
func (o *OpenAI) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	var resp embeddingResponse
	if err := o.http.PostJSON(ctx, "/embeddings", embeddingRequest{Model: o.embeddingModel, Input: texts}, &resp); err != nil {
		return nil, fmt.Errorf("openai embeddings failed: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai returned %d embeddings for %d inputs", len(resp.Data), len(texts))
	}
	sort.Slice(resp.Data, func(i, j int) bool { return resp.Data[i].Index < resp.Data[j].Index })
	out := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		out[i] = d.Embedding
	}
	return out, nil
}
