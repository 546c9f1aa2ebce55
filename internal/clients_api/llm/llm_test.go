package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/uneeb123/alpha-hunter-sub000/internal/infra/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk", r.Header.Get("Authorization"))
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-test", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"memecoins"}}]}`)
	}))
	defer srv.Close()

	o := NewOpenAI(config.LLMConfig{BaseURL: srv.URL, APIKey: "sk", Model: "gpt-test"})
	out, err := o.Complete(context.Background(), "label clusters", "tweets...")
	require.NoError(t, err)
	assert.Equal(t, "memecoins", out)
}

func TestOpenAIEmbedKeepsInputOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, defaultEmbeddingModel, req.Model)
		assert.Equal(t, []string{"a", "b"}, req.Input)
		fmt.Fprint(w, `{"data":[{"index":1,"embedding":[0.2,0.2]},{"index":0,"embedding":[0.1,0.1]}]}`)
	}))
	defer srv.Close()

	o := NewOpenAI(config.LLMConfig{BaseURL: srv.URL})
	vecs, err := o.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.Equal(t, []float32{0.1, 0.1}, vecs[0])
	assert.Equal(t, []float32{0.2, 0.2}, vecs[1])

	none, err := o.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestAnthropicComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "ak", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))
		var req messagesRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "be brief", req.System)
		fmt.Fprint(w, `{"content":[{"type":"text","text":"Hello "},{"type":"text","text":"world"}],"stop_reason":"end_turn"}`)
	}))
	defer srv.Close()

	a := NewAnthropic(config.LLMConfig{BaseURL: srv.URL, APIKey: "ak"})
	out, err := a.Complete(context.Background(), "be brief", "hi")
	require.NoError(t, err)
	assert.Equal(t, "Hello world", out)
}

func TestFalGenerateImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, falModel, r.URL.Path)
		assert.Equal(t, "Key fk", r.Header.Get("Authorization"))
		fmt.Fprint(w, `{"images":[{"url":"https://fal.media/cover.png","width":1024,"height":576}]}`)
	}))
	defer srv.Close()

	f := NewFal(config.ProviderConfig{BaseURL: srv.URL, APIKey: "fk"})
	url, err := f.GenerateImage(context.Background(), "neon solana city")
	require.NoError(t, err)
	assert.Equal(t, "https://fal.media/cover.png", url)
}

func TestNewCompleterPrefersAnthropic(t *testing.T) {
	cfg := &config.Config{}
	_, isOpenAI := NewCompleter(cfg).(*OpenAI)
	assert.True(t, isOpenAI)

	cfg.Anthropic.APIKey = "ak"
	_, isAnthropic := NewCompleter(cfg).(*Anthropic)
	assert.True(t, isAnthropic)
}
