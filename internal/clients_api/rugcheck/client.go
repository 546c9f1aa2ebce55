package rugcheck

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/uneeb123/alpha-hunter-sub000/internal/clients_api/transport"
	"github.com/uneeb123/alpha-hunter-sub000/internal/infra/config"
	"github.com/uneeb123/alpha-hunter-sub000/internal/infra/log"
	"github.com/uneeb123/alpha-hunter-sub000/internal/infra/retry"

	"go.uber.org/zap"
)

const DefaultBaseURL = "https://api.rugcheck.xyz"

type Client struct {
	http    *transport.Client
	wallet  *Wallet
	dataDir string
	now     func() time.Time

	authMu sync.Mutex
}

func TransportOptions(cfg config.RugcheckConfig) transport.Options {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return transport.Options{
		Provider:  "rugcheck",
		BaseURL:   baseURL,
		RateLimit: 3,
		Retry: retry.Options{
			MaxRetries: 2,
			BaseDelay:  time.Second,
			MaxDelay:   10 * time.Second,
		},
	}
}

// New builds a client. A missing wallet key is not an error: reports are then fetched anonymously.
func New(cfg config.RugcheckConfig, dataDir string) (*Client, error) {
	return NewWithTransport(transport.New(TransportOptions(cfg)), cfg.WalletPrivateKey, dataDir)
}

func NewWithTransport(t *transport.Client, walletKey, dataDir string) (*Client, error) {
	c := &Client{http: t, dataDir: dataDir, now: time.Now}
	if walletKey != "" {
		w, err := ParseWallet(walletKey)
		if err != nil {
			return nil, err
		}
		c.wallet = w
	}
	return c, nil
}

type Risk struct {
	Name        string  `json:"name"`
	Value       string  `json:"value"`
	Description string  `json:"description"`
	Score       float64 `json:"score"`
	Level       string  `json:"level"` // "warn" | "danger" | "info"
}

type Report struct {
	Mint                 string  `json:"mint"`
	Score                float64 `json:"score"`
	ScoreNormalised      float64 `json:"score_normalised"`
	Risks                []Risk  `json:"risks"`
	Rugged               bool    `json:"rugged"`
	TotalHolders         int64   `json:"totalHolders"`
	TotalMarketLiquidity float64 `json:"totalMarketLiquidity"`
	TokenMeta            struct {
		Name   string `json:"name"`
		Symbol string `json:"symbol"`
	} `json:"tokenMeta"`
}

type Summary struct {
	Score           float64 `json:"score"`
	ScoreNormalised float64 `json:"score_normalised"`
	Risks           []Risk  `json:"risks"`
	TokenProgram    string  `json:"tokenProgram"`
	TokenType       string  `json:"tokenType"`
}

// DangerCount returns how many risks are at "danger" level.
func (s *Summary) DangerCount() int {
	n := 0
	for _, r := range s.Risks {
		if r.Level == "danger" {
			n++
		}
	}
	return n
}

func (c *Client) TokenReport(ctx context.Context, mint string) (*Report, error) {
	var report Report
	if err := c.getAuthed(ctx, fmt.Sprintf("/v1/tokens/%s/report", url.PathEscape(mint)), &report); err != nil {
		return nil, fmt.Errorf("failed to get rugcheck report: %w", err)
	}
	return &report, nil
}

func (c *Client) TokenSummary(ctx context.Context, mint string) (*Summary, error) {
	var summary Summary
	if err := c.getAuthed(ctx, fmt.Sprintf("/v1/tokens/%s/report/summary", url.PathEscape(mint)), &summary); err != nil {
		return nil, fmt.Errorf("failed to get rugcheck summary: %w", err)
	}
	return &summary, nil
}

// getAuthed signs in lazily and retries once with a fresh token on 401.
func (c *Client) getAuthed(ctx context.Context, path string, out any) error {
	if c.wallet != nil && c.http.Header("Authorization") == "" {
		if err := c.Login(ctx); err != nil {
			log.LogWarn("Rugcheck login failed, continuing anonymously", zap.Error(err))
		}
	}

	err := c.http.GetJSON(ctx, path, nil, out)
	if err == nil || c.wallet == nil || retry.StatusCode(err) != http.StatusUnauthorized {
		return err
	}

	c.setToken("")
	c.invalidateCache()
	if loginErr := c.Login(ctx); loginErr != nil {
		return errors.Join(err, loginErr)
	}
	return c.http.GetJSON(ctx, path, nil, out)
}

func (c *Client) invalidateCache() {
	if c.dataDir == "" {
		return
	}
	_, _ = SaveTokenToFile(c.dataDir, TokenFile{PublicKey: c.wallet.PublicKey})
}
