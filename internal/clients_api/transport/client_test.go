package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/uneeb123/alpha-hunter-sub000/internal/infra/retry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc, maxRetries int) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Options{
		Provider: "test",
		BaseURL:  srv.URL + "/",
		Headers:  map[string]string{"X-API-KEY": "secret"},
		Retry:    retry.Options{MaxRetries: maxRetries, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond},
	})
}

func TestGetJSONSendsHeadersAndQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/defi/token_overview", r.URL.Path)
		assert.Equal(t, "abc", r.URL.Query().Get("address"))
		assert.Equal(t, "secret", r.Header.Get("X-API-KEY"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		_, _ = w.Write([]byte(`{"success":true,"data":{"symbol":"BONK"}}`))
	}, 0)

	var out struct {
		Success bool `json:"success"`
		Data    struct {
			Symbol string `json:"symbol"`
		} `json:"data"`
	}
	err := c.GetJSON(context.Background(), "/defi/token_overview", url.Values{"address": {"abc"}}, &out)
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Equal(t, "BONK", out.Data.Symbol)
}

func TestPostJSONEncodesBodyAndOverridesHeader(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer user", r.Header.Get("Authorization"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gm", body["text"])
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":"1"}}`))
	}, 0)
	c.SetHeader("Authorization", "Bearer app")

	var out struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	err := c.DoJSON(context.Background(), Request{
		Method: http.MethodPost,
		Path:   "/2/tweets",
		Body:   map[string]string{"text": "gm"},
		Header: http.Header{"Authorization": {"Bearer user"}},
	}, &out)
	require.NoError(t, err)
	assert.Equal(t, "1", out.Data.ID)
	assert.Equal(t, "Bearer app", c.Header("Authorization"))
}

func TestNon2xxBecomesHTTPError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"not found"}`))
	}, 3)

	_, err := c.Do(context.Background(), Request{Path: "/missing"})
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, retry.StatusCode(err))
	assert.Contains(t, err.Error(), "not found")
}

func TestRetriesOn429ThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}, 3)

	_, err := c.Do(context.Background(), Request{Path: "/x"})
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClientErrorsDoNotOpenBreaker(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}, 0)

	for i := 0; i < 10; i++ {
		_, err := c.Do(context.Background(), Request{Path: "/bad"})
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, retry.StatusCode(err))
	}
	assert.Equal(t, int32(10), calls.Load())
}

func TestRateLimitsDoNotOpenBreaker(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}, 8)

	for i := 1; i <= 2; i++ {
		_, err := c.Do(context.Background(), Request{Path: "/limited"})
		require.Error(t, err)
		var exhausted *retry.ExhaustedError
		require.ErrorAs(t, err, &exhausted)
		assert.Equal(t, 9, exhausted.Attempts)
		assert.True(t, retry.IsRateLimited(err))
		assert.Equal(t, int32(9*i), calls.Load())
	}
}

func TestCancelledContext(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Do(ctx, Request{Path: "/x"})
	require.ErrorIs(t, err, context.Canceled)
}
