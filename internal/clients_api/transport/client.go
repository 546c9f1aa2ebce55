package transport

// Shared HTTP layer for every provider client.
// Knows nothing about endpoints: it applies headers, rate limiting, the circuit breaker and
// retries, logs each attempt with a request id and turns non-2xx replies into *retry.HTTPError.

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/uneeb123/alpha-hunter-sub000/internal/infra/log"
	"github.com/uneeb123/alpha-hunter-sub000/internal/infra/retry"
	"github.com/uneeb123/alpha-hunter-sub000/internal/metrics"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const defaultMaxResponseSize = 10 * 1024 * 1024

type Options struct {
	Provider        string
	BaseURL         string
	Headers         map[string]string
	RateLimit       float64 // requests per second, 0 = unlimited
	Burst           int
	Timeout         time.Duration
	MaxResponseSize int64
	Retry           retry.Options
	HTTPClient      *http.Client
}

// Request describes one call. Header values override the client defaults.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
	Header http.Header
}

type Client struct {
	provider        string
	baseURL         string
	httpClient      *http.Client
	rateLimiter     *rate.Limiter
	circuitBreaker  *gobreaker.CircuitBreaker
	retryOpts       retry.Options
	maxResponseSize int64

	mu      sync.RWMutex
	headers map[string]string
}

func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxResponseSize <= 0 {
		opts.MaxResponseSize = defaultMaxResponseSize
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:    10,
				IdleConnTimeout: 90 * time.Second,
			},
		}
	}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = int(opts.RateLimit) * 2
			if burst < 1 {
				burst = 1
			}
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        opts.Provider,
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		// 4xx replies, 429 included, mean the provider is up. Rate limits are left to retry.
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			code := retry.StatusCode(err)
			return code >= 400 && code < 500
		},
	})

	headers := make(map[string]string, len(opts.Headers))
	for k, v := range opts.Headers {
		headers[k] = v
	}

	return &Client{
		provider:        opts.Provider,
		baseURL:         strings.TrimRight(opts.BaseURL, "/"),
		httpClient:      httpClient,
		rateLimiter:     limiter,
		circuitBreaker:  breaker,
		retryOpts:       opts.Retry,
		maxResponseSize: opts.MaxResponseSize,
		headers:         headers,
	}
}

func (c *Client) Provider() string { return c.provider }
func (c *Client) BaseURL() string  { return c.baseURL }

// SetHeader sets a default header for all later requests, e.g. a refreshed auth token.
func (c *Client) SetHeader(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if value == "" {
		delete(c.headers, key)
		return
	}
	c.headers[key] = value
}

func (c *Client) Header(key string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.headers[key]
}

// Do sends one logical request, retrying per the client's retry options.
func (c *Client) Do(ctx context.Context, req Request) ([]byte, error) {
	if ctx.Err() != nil {
		return nil, fmt.Errorf("context cancelled: %w", ctx.Err())
	}

	var payload []byte
	if req.Body != nil {
		var err error
		payload, err = json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	var respBody []byte
	err := retry.Do(ctx, c.retryOpts, func() error {
		if c.rateLimiter != nil {
			if err := c.rateLimiter.Wait(ctx); err != nil {
				return fmt.Errorf("rate limiter wait failed: %w", err)
			}
		}
		out, err := c.circuitBreaker.Execute(func() (interface{}, error) {
			return c.attempt(ctx, req, payload)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				log.LogWarn("Circuit breaker rejected request", zap.String("provider", c.provider), zap.String("endpoint", req.Path), zap.Error(err))
			}
			return err
		}
		respBody = out.([]byte)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return respBody, nil
}

func (c *Client) attempt(ctx context.Context, req Request, payload []byte) ([]byte, error) {
	requestID := log.GenerateRequestID()
	startTime := time.Now()

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	target := c.baseURL + req.Path
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(httpReq, req.Header, payload != nil)

	log.LogRequest(requestID, method, req.Path, zap.String("provider", c.provider))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		duration := time.Since(startTime)
		log.LogResponse(requestID, 0, duration.Milliseconds(), zap.String("provider", c.provider), zap.String("endpoint", req.Path), zap.Error(err))
		metrics.ObserveProvider(c.provider, 0, duration)
		return nil, fmt.Errorf("failed to perform request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResponseSize))
	duration := time.Since(startTime)
	metrics.ObserveProvider(c.provider, resp.StatusCode, duration)
	if err != nil {
		log.LogResponse(requestID, resp.StatusCode, duration.Milliseconds(), zap.String("provider", c.provider), zap.String("endpoint", req.Path), zap.Error(err))
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.LogResponse(requestID, resp.StatusCode, duration.Milliseconds(), zap.String("provider", c.provider), zap.String("endpoint", req.Path))
		return nil, &retry.HTTPError{
			StatusCode: resp.StatusCode,
			Body:       respBody,
			RetryAfter: retry.ParseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}

	log.LogResponse(requestID, resp.StatusCode, duration.Milliseconds(), zap.String("provider", c.provider), zap.String("endpoint", req.Path), zap.Int("bytes", len(respBody)))
	return respBody, nil
}

func (c *Client) setHeaders(req *http.Request, extra http.Header, hasBody bool) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "alpha-hunter/1.0")
	if hasBody {
		req.Header.Set("Content-Type", "application/json")
	}

	c.mu.RLock()
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	c.mu.RUnlock()

	for k, vs := range extra {
		req.Header.Del(k)
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
}

// GetJSON issues a GET and decodes the JSON reply into out.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, out any) error {
	return c.DoJSON(ctx, Request{Method: http.MethodGet, Path: path, Query: query}, out)
}

// PostJSON sends body as JSON and decodes the reply into out (out may be nil).
func (c *Client) PostJSON(ctx context.Context, path string, body, out any) error {
	return c.DoJSON(ctx, Request{Method: http.MethodPost, Path: path, Body: body}, out)
}

func (c *Client) DoJSON(ctx context.Context, req Request, out any) error {
	respBody, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to unmarshal %s response: %w", c.provider, err)
	}
	return nil
}
