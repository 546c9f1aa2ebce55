package defillama

// Package defillama reads yield pools from yields.llama.fi. No API key is required.

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/uneeb123/alpha-hunter-sub000/internal/clients_api/transport"
	"github.com/uneeb123/alpha-hunter-sub000/internal/infra/config"
	"github.com/uneeb123/alpha-hunter-sub000/internal/infra/retry"
)

const DefaultBaseURL = "https://yields.llama.fi"

type Client struct {
	http *transport.Client
}

func TransportOptions(cfg config.ProviderConfig) transport.Options {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return transport.Options{
		Provider:  "defillama",
		BaseURL:   baseURL,
		RateLimit: float64(cfg.RateLimit),
		Timeout:   60 * time.Second,
		// /pools returns every tracked pool in one document.
		MaxResponseSize: 64 * 1024 * 1024,
		Retry: retry.Options{
			MaxRetries: cfg.MaxRetries,
			BaseDelay:  2 * time.Second,
			MaxDelay:   20 * time.Second,
		},
	}
}

func New(cfg config.ProviderConfig) *Client {
	return NewWithTransport(transport.New(TransportOptions(cfg)))
}

func NewWithTransport(t *transport.Client) *Client {
	return &Client{http: t}
}

type Pool struct {
	Pool             string   `json:"pool"`
	Chain            string   `json:"chain"`
	Project          string   `json:"project"`
	Symbol           string   `json:"symbol"`
	TVLUsd           float64  `json:"tvlUsd"`
	APY              *float64 `json:"apy"`
	APYBase          *float64 `json:"apyBase"`
	APYReward        *float64 `json:"apyReward"`
	APYPct7D         *float64 `json:"apyPct7D"`
	APYMean30d       *float64 `json:"apyMean30d"`
	Stablecoin       bool     `json:"stablecoin"`
	ILRisk           string   `json:"ilRisk"`
	Exposure         string   `json:"exposure"`
	RewardTokens     []string `json:"rewardTokens"`
	UnderlyingTokens []string `json:"underlyingTokens"`
}

// APYValue returns the total APY, or 0 when DeFiLlama has none.
func (p Pool) APYValue() float64 {
	if p.APY != nil {
		return *p.APY
	}
	var total float64
	if p.APYBase != nil {
		total += *p.APYBase
	}
	if p.APYReward != nil {
		total += *p.APYReward
	}
	return total
}

type poolsResponse struct {
	Status string `json:"status"`
	Data   []Pool `json:"data"`
}

func (c *Client) Pools(ctx context.Context) ([]Pool, error) {
	var resp poolsResponse
	if err := c.http.GetJSON(ctx, "/pools", nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to get yield pools: %w", err)
	}
	if resp.Status != "" && resp.Status != "success" {
		return nil, fmt.Errorf("defillama pools: status %q", resp.Status)
	}
	return resp.Data, nil
}

type PoolFilter struct {
	Chain      string // case-insensitive, empty = any
	Project    string
	MinTVL     float64
	MinAPY     float64
	MaxAPY     float64 // 0 = no cap; filters out reward-farm outliers
	Stablecoin *bool
	Limit      int
}

// FilterPools returns the pools matching f, highest APY first.
func FilterPools(pools []Pool, f PoolFilter) []Pool {
	out := make([]Pool, 0, len(pools))
	for _, p := range pools {
		if f.Chain != "" && !strings.EqualFold(p.Chain, f.Chain) {
			continue
		}
		if f.Project != "" && !strings.EqualFold(p.Project, f.Project) {
			continue
		}
		if p.TVLUsd < f.MinTVL {
			continue
		}
		apy := p.APYValue()
		if apy < f.MinAPY || (f.MaxAPY > 0 && apy > f.MaxAPY) {
			continue
		}
		if f.Stablecoin != nil && p.Stablecoin != *f.Stablecoin {
			continue
		}
		out = append(out, p)
	}

	sort.SliceStable(out, func(i, j int) bool {
		ai, aj := out[i].APYValue(), out[j].APYValue()
		if ai != aj {
			return ai > aj
		}
		return out[i].TVLUsd > out[j].TVLUsd
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out
}
