package moralis

// Package moralis wraps the Moralis Solana gateway: token swaps and holder statistics.

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/uneeb123/alpha-hunter-sub000/internal/clients_api/transport"
	"github.com/uneeb123/alpha-hunter-sub000/internal/infra/config"
	"github.com/uneeb123/alpha-hunter-sub000/internal/infra/retry"
)

const DefaultBaseURL = "https://solana-gateway.moralis.io"

type Client struct {
	http *transport.Client
}

func TransportOptions(cfg config.ProviderConfig) transport.Options {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return transport.Options{
		Provider:  "moralis",
		BaseURL:   baseURL,
		RateLimit: float64(cfg.RateLimit),
		Headers:   map[string]string{"X-API-Key": cfg.APIKey},
		Retry: retry.Options{
			MaxRetries: cfg.MaxRetries,
			BaseDelay:  time.Second,
			MaxDelay:   15 * time.Second,
			Jitter:     true,
		},
	}
}

func New(cfg config.ProviderConfig) *Client {
	return NewWithTransport(transport.New(TransportOptions(cfg)))
}

func NewWithTransport(t *transport.Client) *Client {
	return &Client{http: t}
}

type SwapType string

const (
	SwapTypeBuy  SwapType = "buy"
	SwapTypeSell SwapType = "sell"
)

type SwapLeg struct {
	Address   string  `json:"address"`
	Name      string  `json:"name"`
	Symbol    string  `json:"symbol"`
	Amount    string  `json:"amount"`
	USDPrice  float64 `json:"usdPrice"`
	USDAmount float64 `json:"usdAmount"`
}

type Swap struct {
	TransactionHash string    `json:"transactionHash"`
	TransactionType SwapType  `json:"transactionType"`
	BlockTimestamp  time.Time `json:"blockTimestamp"`
	WalletAddress   string    `json:"walletAddress"`
	PairAddress     string    `json:"pairAddress"`
	ExchangeName    string    `json:"exchangeName"`
	Bought          SwapLeg   `json:"bought"`
	Sold            SwapLeg   `json:"sold"`
	TotalValueUSD   float64   `json:"totalValueUsd"`
}

type SwapsPage struct {
	Cursor   string `json:"cursor"`
	Page     int    `json:"page"`
	PageSize int    `json:"pageSize"`
	Result   []Swap `json:"result"`
}

// TokenSwaps returns one page of swaps for a token, newest first. Pass the previous page's
// Cursor to continue; an empty Cursor in the reply means there are no more pages.
func (c *Client) TokenSwaps(ctx context.Context, address, cursor string, limit int) (*SwapsPage, error) {
	query := url.Values{"order": {"DESC"}}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if cursor != "" {
		query.Set("cursor", cursor)
	}
	var page SwapsPage
	path := fmt.Sprintf("/token/mainnet/%s/swaps", url.PathEscape(address))
	if err := c.http.GetJSON(ctx, path, query, &page); err != nil {
		return nil, fmt.Errorf("failed to get token swaps: %w", err)
	}
	return &page, nil
}

type HolderChange struct {
	Change        int64   `json:"change"`
	ChangePercent float64 `json:"changePercent"`
}

type SupplyShare struct {
	Supply        string  `json:"supply"`
	SupplyPercent float64 `json:"supplyPercent"`
}

type HolderStats struct {
	TotalHolders         int64                   `json:"totalHolders"`
	HoldersByAcquisition map[string]int64        `json:"holdersByAcquisition"`
	HolderChange         map[string]HolderChange `json:"holderChange"`
	HolderSupply         map[string]SupplyShare  `json:"holderSupply"`
}

func (c *Client) HolderStats(ctx context.Context, address string) (*HolderStats, error) {
	var stats HolderStats
	path := fmt.Sprintf("/token/mainnet/holders/%s", url.PathEscape(address))
	if err := c.http.GetJSON(ctx, path, nil, &stats); err != nil {
		return nil, fmt.Errorf("failed to get holder stats: %w", err)
	}
	return &stats, nil
}
