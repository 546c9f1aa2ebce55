package retry

// Retry with exponential backoff for outbound provider calls.
// Transport errors carry the HTTP status so callers can decide what is retryable:
// market-data and social providers only retry on 429, the rest also on 5xx.
// A Retry-After header on a 429 overrides the computed delay.

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"
	"time"
)

type Options struct {
	MaxRetries int           // retries after the first attempt
	BaseDelay  time.Duration // delay before the first retry
	MaxDelay   time.Duration // upper bound for a single delay, 0 = unbounded
	Backoff    float64       // multiplier per attempt, 2 when unset
	Jitter     bool          // full jitter: sleep a random duration in [0, delay]
	RetryOn    func(error) bool
}

// HTTPError is returned by the provider transport for non-2xx responses.
type HTTPError struct {
	StatusCode int
	Body       []byte
	RetryAfter time.Duration
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "http error: <nil>"
	}
	if len(e.Body) == 0 {
		return fmt.Sprintf("http error (%d)", e.StatusCode)
	}
	body := string(e.Body)
	if len(body) > 300 {
		body = body[:300] + "..."
	}
	return fmt.Sprintf("http error (%d): %s", e.StatusCode, body)
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.StatusCode
	}
	return 0
}

// IsRateLimited reports whether err is an HTTP 429.
func IsRateLimited(err error) bool {
	return StatusCode(err) == http.StatusTooManyRequests
}

// IsRetryable reports whether err is a 429 or a transient 5xx.
func IsRetryable(err error) bool {
	switch StatusCode(err) {
	case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// ExhaustedError wraps the last error once every attempt has failed.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("giving up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

func ParseRetryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	for _, layout := range []string{time.RFC1123, time.RFC1123Z, time.RFC850, time.ANSIC} {
		if t, err := time.Parse(layout, v); err == nil {
			if d := time.Until(t); d > 0 {
				return d
			}
			return 0
		}
	}
	return 0
}

func clamp(d, max time.Duration) time.Duration {
	if max > 0 && d > max {
		return max
	}
	return d
}

// Delay returns the backoff before retry number attempt (0-based).
func Delay(opts Options, attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if opts.BaseDelay <= 0 {
		return 0
	}
	backoff := opts.Backoff
	if backoff <= 0 {
		backoff = 2.0
	}
	d := time.Duration(float64(opts.BaseDelay) * math.Pow(backoff, float64(attempt)))
	if d <= 0 {
		d = opts.MaxDelay
	}
	d = clamp(d, opts.MaxDelay)
	if opts.Jitter && d > 0 {
		d = time.Duration(rand.Int64N(int64(d) + 1))
	}
	return d
}

// Do calls fn until it succeeds, returns a non-retryable error, or MaxRetries retries are spent.
func Do(ctx context.Context, opts Options, fn func() error) error {
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	retryOn := opts.RetryOn
	if retryOn == nil {
		retryOn = IsRetryable
	}

	totalAttempts := 1 + opts.MaxRetries
	var lastErr error

	for attempt := 0; attempt < totalAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !retryOn(err) {
			return err
		}
		if attempt == totalAttempts-1 {
			break
		}

		sleep := Delay(opts, attempt)
		var he *HTTPError
		if errors.As(err, &he) && he.StatusCode == http.StatusTooManyRequests && he.RetryAfter > 0 {
			sleep = clamp(he.RetryAfter, opts.MaxDelay)
		}

		t := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}

	return &ExhaustedError{Attempts: totalAttempts, Err: lastErr}
}
