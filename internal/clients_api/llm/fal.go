package llm

import (
	"context"
	"fmt"

	"github.com/uneeb123/alpha-hunter-sub000/internal/clients_api/transport"
	"github.com/uneeb123/alpha-hunter-sub000/internal/infra/config"
)

const (
	falBaseURL = "https://fal.run"
	falModel   = "/fal-ai/flux/schnell"
)

type Fal struct {
	http *transport.Client
}

func FalTransportOptions(cfg config.ProviderConfig) transport.Options {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = falBaseURL
	}
	return transportOptions("fal", baseURL, map[string]string{"Authorization": "Key " + cfg.APIKey})
}

func NewFal(cfg config.ProviderConfig) *Fal {
	return NewFalWithTransport(transport.New(FalTransportOptions(cfg)))
}

func NewFalWithTransport(t *transport.Client) *Fal {
	return &Fal{http: t}
}

type falRequest struct {
	Prompt    string `json:"prompt"`
	ImageSize string `json:"image_size"`
	NumImages int    `json:"num_images"`
}

type falResponse struct {
	Images []struct {
		URL    string `json:"url"`
		Width  int    `json:"width"`
		Height int    `json:"height"`
	} `json:"images"`
}

// GenerateImage renders prompt and returns the hosted image URL.
func (f *Fal) GenerateImage(ctx context.Context, prompt string) (string, error) {
	var resp falResponse
	req := falRequest{Prompt: prompt, ImageSize: "landscape_16_9", NumImages: 1}
	if err := f.http.PostJSON(ctx, falModel, req, &resp); err != nil {
		return "", fmt.Errorf("fal image generation failed: %w", err)
	}
	if len(resp.Images) == 0 || resp.Images[0].URL == "" {
		return "", fmt.Errorf("fal returned no image")
	}
	return resp.Images[0].URL, nil
}
