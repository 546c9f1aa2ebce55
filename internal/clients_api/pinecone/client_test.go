package pinecone

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

func TestUpsertBatches(t *testing.T) {
	var batches []int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/vectors/upsert", r.URL.Path)
		assert.Equal(t, "pk", r.Header.Get("Api-Key"))
		var req upsertRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "tweets", req.Namespace)
		batches = append(batches, len(req.Vectors))
		fmt.Fprintf(w, `{"upsertedCount":%d}`, len(req.Vectors))
	}))
	defer srv.Close()

	c := New(config.PineconeConfig{IndexHost: srv.URL, APIKey: "pk", Namespace: "tweets"})
	vectors := make([]Vector, 250)
	for i := range vectors {
		vectors[i] = Vector{ID: fmt.Sprint(i), Values: []float32{1, 0}}
	}
	n, err := c.Upsert(context.Background(), "", vectors)
	require.NoError(t, err)
	assert.Equal(t, 250, n)
	assert.Equal(t, []int{100, 100, 50}, batches)
}

func TestQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/query", r.URL.Path)
		var req queryRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 3, req.TopK)
		assert.Equal(t, "other", req.Namespace)
		assert.True(t, req.IncludeMetadata)
		fmt.Fprint(w, `{"matches":[{"id":"t1","score":0.91,"metadata":{"text":"gm"}}]}`)
	}))
	defer srv.Close()

	c := New(config.PineconeConfig{IndexHost: srv.URL, Namespace: "tweets"})
	matches, err := c.Query(context.Background(), "other", []float32{0.1}, 3)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "gm", matches[0].Metadata["text"])
}
