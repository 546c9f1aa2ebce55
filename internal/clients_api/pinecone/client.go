package pinecone

// Package pinecone talks to a single Pinecone index over its data-plane REST API.

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/uneeb123/alpha-hunter-sub000/internal/clients_api/transport"
	"github.com/uneeb123/alpha-hunter-sub000/internal/infra/config"
	"github.com/uneeb123/alpha-hunter-sub000/internal/infra/retry"
)

const (
	apiVersion = "2024-07"
	// upsertBatch keeps each request well under Pinecone's 2MB body cap for 1536-dim vectors.
	upsertBatch = 100
)

type Client struct {
	http      *transport.Client
	namespace string
}

func TransportOptions(cfg config.PineconeConfig) transport.Options {
	host := cfg.IndexHost
	if host != "" && !strings.HasPrefix(host, "http") {
		host = "https://" + host
	}
	return transport.Options{
		Provider: "pinecone",
		BaseURL:  host,
		Headers: map[string]string{
			"Api-Key":                cfg.APIKey,
			"X-Pinecone-API-Version": apiVersion,
		},
		Retry: retry.Options{
			MaxRetries: 3,
			BaseDelay:  500 * time.Millisecond,
			MaxDelay:   10 * time.Second,
			Jitter:     true,
		},
	}
}

func New(cfg config.PineconeConfig) *Client {
	return NewWithTransport(transport.New(TransportOptions(cfg)), cfg.Namespace)
}

func NewWithTransport(t *transport.Client, namespace string) *Client {
	return &Client{http: t, namespace: namespace}
}

type Vector struct {
	ID       string         `json:"id"`
	Values   []float32      `json:"values"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type Match struct {
	ID       string         `json:"id"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata"`
}

type upsertRequest struct {
	Vectors   []Vector `json:"vectors"`
	Namespace string   `json:"namespace,omitempty"`
}

type upsertResponse struct {
	UpsertedCount int `json:"upsertedCount"`
}

func (c *Client) ns(namespace string) string {
	if namespace == "" {
		return c.namespace
	}
	return namespace
}

// Upsert writes vectors in batches and returns how many Pinecone accepted.
func (c *Client) Upsert(ctx context.Context, namespace string, vectors []Vector) (int, error) {
	total := 0
	for start := 0; start < len(vectors); start += upsertBatch {
		end := min(start+upsertBatch, len(vectors))
		var resp upsertResponse
		req := upsertRequest{Vectors: vectors[start:end], Namespace: c.ns(namespace)}
		if err := c.http.PostJSON(ctx, "/vectors/upsert", req, &resp); err != nil {
			return total, fmt.Errorf("pinecone upsert batch at %d: %w", start, err)
		}
		total += resp.UpsertedCount
	}
	return total, nil
}

type queryRequest struct {
	Namespace       string    `json:"namespace,omitempty"`
	Vector          []float32 `json:"vector"`
	TopK            int       `json:"topK"`
	IncludeMetadata bool      `json:"includeMetadata"`
}

type queryResponse struct {
	Matches []Match `json:"matches"`
}

func (c *Client) Query(ctx context.Context, namespace string, vector []float32, topK int) ([]Match, error) {
	if topK <= 0 {
		topK = 10
	}
	var resp queryResponse
	req := queryRequest{Namespace: c.ns(namespace), Vector: vector, TopK: topK, IncludeMetadata: true}
	if err := c.http.PostJSON(ctx, "/query", req, &resp); err != nil {
		return nil, fmt.Errorf("pinecone query failed: %w", err)
	}
	return resp.Matches, nil
}
