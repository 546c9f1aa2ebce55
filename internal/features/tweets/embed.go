package tweets

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/uneeb123/alpha-hunter-sub000/internal/clients_api/llm"
	"github.com/uneeb123/alpha-hunter-sub000/internal/infra/log"
	"github.com/uneeb123/alpha-hunter-sub000/internal/metrics"
	"github.com/uneeb123/alpha-hunter-sub000/internal/store"
	"github.com/uneeb123/alpha-hunter-sub000/internal/store/vectors"

	"go.uber.org/zap"
)

const (
	DefaultBatchSize   = 100
	DefaultConcurrency = 4
	defaultEmbedLimit  = 2000
)

type EmbedStore interface {
	TweetsWithoutEmbedding(ctx context.Context, limit int) ([]store.Tweet, error)
	MarkEmbedded(ctx context.Context, ids []uint) error
}

type EmbedOptions struct {
	BatchSize   int
	Concurrency int
	Limit       int // tweets per run
}

type Embedder struct {
	store    EmbedStore
	embedder llm.Embedder
	index    vectors.Index
	opts     EmbedOptions
}

func NewEmbedder(s EmbedStore, e llm.Embedder, idx vectors.Index, opts EmbedOptions) *Embedder {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Limit <= 0 {
		opts.Limit = defaultEmbedLimit
	}
	return &Embedder{store: s, embedder: e, index: idx, opts: opts}
}

type EmbedResult struct {
	Pending  int `json:"pending"`
	Batches  int `json:"batches"`
	Embedded int `json:"embedded"`
	Failed   int `json:"failed"`
}

// Embed vectors every tweet that has none yet. Batches run concurrently; a failed batch
// leaves its tweets unmarked so the next run retries them.
func (e *Embedder) Embed(ctx context.Context) (*EmbedResult, error) {
	pending, err := e.store.TweetsWithoutEmbedding(ctx, e.opts.Limit)
	if err != nil {
		return nil, fmt.Errorf("load unembedded tweets: %w", err)
	}
	batches := Batches(pending, e.opts.BatchSize)
	res := &EmbedResult{Pending: len(pending), Batches: len(batches)}
	if len(batches) == 0 {
		return res, nil
	}

	var embedded, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Concurrency)
	for i, batch := range batches {
		g.Go(func() error {
			if err := e.embedBatch(gctx, batch); err != nil {
				failed.Add(int64(len(batch)))
				log.LogError("Embedding batch failed", zap.Int("batch", i), zap.Int("size", len(batch)), zap.Error(err))
				return nil
			}
			embedded.Add(int64(len(batch)))
			return nil
		})
	}
	_ = g.Wait()

	res.Embedded = int(embedded.Load())
	res.Failed = int(failed.Load())
	metrics.AddTweetsEmbedded(res.Embedded)
	log.LogSuccess("Tweet embedding finished",
		zap.Int("pending", res.Pending),
		zap.Int("embedded", res.Embedded),
		zap.Int("failed", res.Failed))
	if err := ctx.Err(); err != nil {
		return res, err
	}
	return res, nil
}

func (e *Embedder) embedBatch(ctx context.Context, batch []store.Tweet) error {
	texts := make([]string, len(batch))
	for i, tw := range batch {
		texts[i] = tw.Text
	}
	vecs, err := e.embedder.Embed(ctx, texts)
	if err != nil {
		return err
	}
	if len(vecs) != len(batch) {
		return fmt.Errorf("embedder returned %d vectors for %d tweets", len(vecs), len(batch))
	}

	records := make([]vectors.Record, len(batch))
	ids := make([]uint, len(batch))
	for i, tw := range batch {
		records[i] = vectors.Record{
			TweetID:  tw.TweetID,
			Author:   tw.AuthorUsername,
			Text:     tw.Text,
			PostedAt: tw.PostedAt,
			Vector:   vecs[i],
		}
		ids[i] = tw.ID
	}
	if err := e.index.Upsert(ctx, records); err != nil {
		return fmt.Errorf("store vectors: %w", err)
	}
	return e.store.MarkEmbedded(ctx, ids)
}

// Batches splits items into consecutive chunks of at most size.
func Batches[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = DefaultBatchSize
	}
	var out [][]T
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		out = append(out, items[start:end])
	}
	return out
}
