package elfa

// Package elfa reads social mentions and trending tokens from the Elfa API.

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/uneeb123/alpha-hunter-sub000/internal/clients_api/transport"
	"github.com/uneeb123/alpha-hunter-sub000/internal/infra/config"
	"github.com/uneeb123/alpha-hunter-sub000/internal/infra/retry"
)

const DefaultBaseURL = "https://api.elfa.ai"

type Client struct {
	http *transport.Client
}

func TransportOptions(cfg config.ProviderConfig) transport.Options {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return transport.Options{
		Provider:  "elfa",
		BaseURL:   baseURL,
		RateLimit: float64(cfg.RateLimit),
		Headers:   map[string]string{"x-elfa-api-key": cfg.APIKey},
		Retry: retry.Options{
			MaxRetries: cfg.MaxRetries,
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

type response[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

type paged[T any] struct {
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
	Data     []T `json:"data"`
}

func get[T any](ctx context.Context, c *Client, path string, query url.Values) (T, error) {
	var resp response[T]
	if err := c.http.GetJSON(ctx, path, query, &resp); err != nil {
		return resp.Data, err
	}
	if !resp.Success {
		msg := resp.Message
		if msg == "" {
			msg = "unsuccessful response"
		}
		return resp.Data, fmt.Errorf("elfa %s: %s", path, msg)
	}
	return resp.Data, nil
}

type TrendingToken struct {
	Token         string  `json:"token"`
	CurrentCount  int     `json:"current_count"`
	PreviousCount int     `json:"previous_count"`
	ChangePercent float64 `json:"change_percent"`
}

// TrendingTokens ranks tickers by mention count over timeWindow ("1h", "24h", "7d").
func (c *Client) TrendingTokens(ctx context.Context, timeWindow string, page, pageSize int) ([]TrendingToken, error) {
	if timeWindow == "" {
		timeWindow = "24h"
	}
	query := url.Values{"timeWindow": {timeWindow}}
	if page > 0 {
		query.Set("page", strconv.Itoa(page))
	}
	if pageSize > 0 {
		query.Set("pageSize", strconv.Itoa(pageSize))
	}
	data, err := get[paged[TrendingToken]](ctx, c, "/v2/aggregations/trending-tokens", query)
	if err != nil {
		return nil, fmt.Errorf("failed to get trending tokens: %w", err)
	}
	return data.Data, nil
}

type Account struct {
	Username      string `json:"username"`
	FollowerCount int64  `json:"followerCount"`
	IsVerified    bool   `json:"isVerified"`
}

type Mention struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	Content     string          `json:"content"`
	Link        string          `json:"link"`
	OriginalURL string          `json:"originalUrl"`
	LikeCount   int64           `json:"likeCount"`
	RepostCount int64           `json:"repostCount"`
	ViewCount   int64           `json:"viewCount"`
	QuoteCount  int64           `json:"quoteCount"`
	ReplyCount  int64           `json:"replyCount"`
	MentionedAt time.Time       `json:"mentionedAt"`
	Account     *Account        `json:"account"`
	Sentiment   json.RawMessage `json:"sentiment,omitempty"`
}

func (m Mention) URL() string {
	if m.OriginalURL != "" {
		return m.OriginalURL
	}
	return m.Link
}

// Mentions returns posts mentioning ticker since the given time.
func (c *Client) Mentions(ctx context.Context, ticker string, since time.Time, limit int) ([]Mention, error) {
	query := url.Values{
		"keywords": {strings.TrimPrefix(ticker, "$")},
		"from":     {strconv.FormatInt(since.Unix(), 10)},
		"to":       {strconv.FormatInt(time.Now().Unix(), 10)},
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	data, err := get[[]Mention](ctx, c, "/v2/data/keyword-mentions", query)
	if err != nil {
		return nil, fmt.Errorf("failed to get mentions: %w", err)
	}
	return data, nil
}

// TopMentions returns the most engaged posts for ticker in window.
func (c *Client) TopMentions(ctx context.Context, ticker, window string) ([]Mention, error) {
	if window == "" {
		window = "24h"
	}
	query := url.Values{
		"ticker":     {strings.TrimPrefix(ticker, "$")},
		"timeWindow": {window},
		"page":       {"1"},
		"pageSize":   {"10"},
	}
	data, err := get[paged[Mention]](ctx, c, "/v2/data/top-mentions", query)
	if err != nil {
		return nil, fmt.Errorf("failed to get top mentions: %w", err)
	}
	return data.Data, nil
}
