package birdeye

// Package birdeye is the client for the Birdeye Solana market-data API.
// Only HTTP 429 is retried; every other failure is returned to the caller on the first attempt.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/uneeb123/alpha-hunter-sub000/internal/clients_api/transport"
	"github.com/uneeb123/alpha-hunter-sub000/internal/infra/config"
	"github.com/uneeb123/alpha-hunter-sub000/internal/infra/log"
	"github.com/uneeb123/alpha-hunter-sub000/internal/infra/retry"

	"go.uber.org/zap"
)

const (
	DefaultBaseURL = "https://public-api.birdeye.so"
	// MaxPageSize is the largest limit /defi/v3/token/list accepts.
	MaxPageSize = 100
)

// ErrNoData is returned when Birdeye answers success with an empty data object.
var ErrNoData = errors.New("birdeye: no data for token")

type Client struct {
	http *transport.Client
}

// TransportOptions builds the transport settings for cfg. Exposed so tests can shorten delays.
func TransportOptions(cfg config.ProviderConfig) transport.Options {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return transport.Options{
		Provider:  "birdeye",
		BaseURL:   baseURL,
		RateLimit: float64(cfg.RateLimit),
		Headers: map[string]string{
			"X-API-KEY": cfg.APIKey,
			"x-chain":   "solana",
		},
		Retry: retry.Options{
			MaxRetries: cfg.MaxRetries, // birdeye.max_retries defaults to 3, 0 disables retries
			BaseDelay:  time.Second,
			MaxDelay:   30 * time.Second,
			Backoff:    2,
			Jitter:     true,
			RetryOn:    retry.IsRateLimited,
		},
	}
}

func New(cfg config.ProviderConfig) *Client {
	return NewWithTransport(transport.New(TransportOptions(cfg)))
}

func NewWithTransport(t *transport.Client) *Client {
	return &Client{http: t}
}

type envelope[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    *T     `json:"data"`
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	return c.http.Do(ctx, transport.Request{Path: path, Query: query})
}

func decode[T any](raw []byte, what string) (*T, error) {
	var env envelope[T]
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s response: %w", what, err)
	}
	if !env.Success {
		if env.Message == "" {
			env.Message = "unsuccessful response"
		}
		return nil, fmt.Errorf("birdeye %s: %s", what, env.Message)
	}
	if env.Data == nil {
		return nil, ErrNoData
	}
	return env.Data, nil
}

// TokenList fetches one page of /defi/v3/token/list.
func (c *Client) TokenList(ctx context.Context, offset, limit int, filters ListFilters) (*TokenListPage, error) {
	if limit <= 0 || limit > MaxPageSize {
		limit = MaxPageSize
	}
	query := filters.values()
	query.Set("offset", strconv.Itoa(offset))
	query.Set("limit", strconv.Itoa(limit))

	raw, err := c.get(ctx, "/defi/v3/token/list", query)
	if err != nil {
		return nil, fmt.Errorf("failed to get token list: %w", err)
	}
	page, err := decode[TokenListPage](raw, "token list")
	if err != nil {
		return nil, err
	}
	page.Raw = raw
	return page, nil
}

// ListAllTokens pages through the token list until has_next is false, a page comes back
// empty, or maxPages pages were read (0 = no page limit).
func (c *Client) ListAllTokens(ctx context.Context, opts ListOptions) (*TokenListResult, error) {
	pageSize := opts.PageSize
	if pageSize <= 0 || pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	result := &TokenListResult{}
	offset := 0
	for {
		page, err := c.TokenList(ctx, offset, pageSize, opts.Filters)
		if err != nil {
			return result, fmt.Errorf("token list page at offset %d: %w", offset, err)
		}
		result.Pages++
		result.Items = append(result.Items, page.Items...)
		result.Total += len(page.Items)
		if opts.OnPage != nil {
			opts.OnPage(offset, page)
		}

		if !page.HasNext || len(page.Items) == 0 {
			break
		}
		if opts.MaxPages > 0 && result.Pages >= opts.MaxPages {
			log.LogDebug("Token list page limit reached", zap.Int("pages", result.Pages), zap.Int("total", result.Total))
			break
		}
		offset += len(page.Items)
	}
	return result, nil
}

func (c *Client) TokenOverview(ctx context.Context, address string) (*TokenOverview, error) {
	raw, err := c.get(ctx, "/defi/token_overview", url.Values{"address": {address}})
	if err != nil {
		return nil, fmt.Errorf("failed to get token overview: %w", err)
	}
	return decode[TokenOverview](raw, "token overview")
}

func (c *Client) TokenCreationInfo(ctx context.Context, address string) (*CreationInfo, error) {
	raw, err := c.get(ctx, "/defi/token_creation_info", url.Values{"address": {address}})
	if err != nil {
		return nil, fmt.Errorf("failed to get token creation info: %w", err)
	}
	return decode[CreationInfo](raw, "token creation info")
}

func (c *Client) TokenSecurity(ctx context.Context, address string) (*Security, error) {
	raw, err := c.get(ctx, "/defi/token_security", url.Values{"address": {address}})
	if err != nil {
		return nil, fmt.Errorf("failed to get token security: %w", err)
	}
	return decode[Security](raw, "token security")
}
