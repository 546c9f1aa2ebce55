package llm

// Package llm holds the hosted-model clients: OpenAI chat and embeddings, Anthropic messages
// and Fal image generation. Features depend on the small interfaces below, not on a vendor.

import (
	"context"
	"time"

	"github.com/uneeb123/alpha-hunter-sub000/internal/clients_api/transport"
	"github.com/uneeb123/alpha-hunter-sub000/internal/infra/config"
	"github.com/uneeb123/alpha-hunter-sub000/internal/infra/retry"
)

type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) (string, error)
}

func llmRetry() retry.Options {
	return retry.Options{
		MaxRetries: 3,
		BaseDelay:  time.Second,
		MaxDelay:   20 * time.Second,
		Backoff:    2,
		Jitter:     true,
	}
}

func transportOptions(provider, baseURL string, headers map[string]string) transport.Options {
	return transport.Options{
		Provider: provider,
		BaseURL:  baseURL,
		Headers:  headers,
		Timeout:  120 * time.Second,
		Retry:    llmRetry(),
	}
}

// NewCompleter prefers Anthropic when it has a key and falls back to OpenAI.
func NewCompleter(cfg *config.Config) Completer {
	if cfg.Anthropic.APIKey != "" {
		return NewAnthropic(cfg.Anthropic)
	}
	return NewOpenAI(cfg.OpenAI)
}
