// Package vectors stores tweet embeddings for similarity search and clustering.
package vectors

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/uneeb123/alpha-hunter-sub000/internal/clients_api/pinecone"
	"github.com/uneeb123/alpha-hunter-sub000/internal/infra/config"
	"github.com/uneeb123/alpha-hunter-sub000/internal/infra/log"

	"go.uber.org/zap"
)

const (
	BackendPgvector = "pgvector"
	BackendPinecone = "pinecone"
	BackendBoth     = "both"
)

// ErrNoListing is returned when the configured index cannot enumerate its vectors.
var ErrNoListing = errors.New("vector index does not support listing")

// Record is one embedded tweet.
type Record struct {
	TweetID  string
	Author   string
	Text     string
	PostedAt time.Time
	Vector   []float32
}

// Match is a search hit. Score is cosine similarity, higher is closer.
type Match struct {
	TweetID  string
	Author   string
	Text     string
	PostedAt time.Time
	Score    float64
}

type Index interface {
	Upsert(ctx context.Context, records []Record) error
	Search(ctx context.Context, vector []float32, k int) ([]Match, error)
}

// Lister is implemented by indexes that can return stored vectors.
type Lister interface {
	All(ctx context.Context, limit int) ([]Record, error)
}

// Open builds the index selected by cfg.Embeddings.Backend. The returned close func
// releases any pool that was opened.
func Open(ctx context.Context, cfg *config.Config) (Index, func(), error) {
	backend := cfg.Embeddings.Backend
	if backend == "" {
		backend = BackendPgvector
	}

	var (
		pg  *PgStore
		err error
	)
	if backend == BackendPgvector || backend == BackendBoth {
		pg, err = NewPgStore(ctx, cfg.Database.DSN)
		if err != nil {
			return nil, nil, err
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			pg.Close()
			return nil, nil, err
		}
	}
	closeFn := func() {
		if pg != nil {
			pg.Close()
		}
	}

	log.LogInfo("Vector index ready", zap.String("backend", backend))
	switch backend {
	case BackendPgvector:
		return pg, closeFn, nil
	case BackendPinecone:
		return NewPineconeIndex(pinecone.New(cfg.Pinecone)), closeFn, nil
	case BackendBoth:
		return Multi{pg, NewPineconeIndex(pinecone.New(cfg.Pinecone))}, closeFn, nil
	default:
		return nil, nil, fmt.Errorf("unknown embeddings backend %q", backend)
	}
}

// Multi writes to every index and searches the first one.
type Multi []Index

func (m Multi) Upsert(ctx context.Context, records []Record) error {
	var errs []error
	for _, idx := range m {
		if err := idx.Upsert(ctx, records); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Search(ctx context.Context, vector []float32, k int) ([]Match, error) {
	if len(m) == 0 {
		return nil, nil
	}
	return m[0].Search(ctx, vector, k)
}

func (m Multi) All(ctx context.Context, limit int) ([]Record, error) {
	for _, idx := range m {
		if l, ok := idx.(Lister); ok {
			return l.All(ctx, limit)
		}
	}
	return nil, ErrNoListing
}

// AsLister returns idx as a Lister, or ErrNoListing.
func AsLister(idx Index) (Lister, error) {
	if l, ok := idx.(Lister); ok {
		return l, nil
	}
	return nil, ErrNoListing
}
